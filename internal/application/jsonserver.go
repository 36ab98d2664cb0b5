package application

import (
	"context"
	"encoding/json"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// JSONServerPublisher POSTs each submission to a generic JSON endpoint,
// authenticated with a configured auth key. It has no remote setup at
// all; Initiate only flips the task to active.
type JSONServerPublisher struct {
	taskState

	endpoint driven.JSONEndpoint
	locks    *DeliveryLocks
}

// Initiate marks the task active. The endpoint is not probed: a generic
// JSON server has no sanctioned way to validate credentials short of
// delivering data, so credential failures surface on first delivery.
func (p *JSONServerPublisher) Initiate(ctx context.Context) error {
	if err := p.activate(ctx); err != nil {
		return err
	}
	p.logger.Info("json server publisher active", "task", p.task.URI, "endpoint", p.cred.Endpoint)
	return nil
}

// InsertData posts one submission as a JSON document.
func (p *JSONServerPublisher) InsertData(ctx context.Context, sub model.Submission) error {
	if !p.locks.TryAcquire(sub.URI) {
		p.logger.Info("duplicate delivery of submission, bailing", "submission", sub.URI, "task", p.task.URI)
		return nil
	}
	defer p.locks.Release(sub.URI)

	payload, err := json.Marshal(buildSurvey(sub))
	if err != nil {
		return &model.PublicationError{Detail: "encode submission", Err: err}
	}

	if err := p.endpoint.Post(ctx, p.cred.Endpoint, p.cred.APIKey, payload); err != nil {
		if model.IsCredentialsError(err) {
			return p.failCredentials(ctx, err)
		}
		return err
	}

	p.logger.Info("posted submission", "submission", sub.URI, "task", p.task.URI)
	return nil
}

// DescriptiveTarget identifies the endpoint this publisher posts to.
func (p *JSONServerPublisher) DescriptiveTarget() string {
	return p.cred.Endpoint
}
