package application

import (
	"context"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// REDCapPublisher imports each submission as one flat record into a
// REDCap research-data server. It is the only kind whose API token can
// be rotated by an operator after a credentials failure.
type REDCapPublisher struct {
	taskState

	records driven.RecordServer
	locks   *DeliveryLocks
}

// Initiate verifies the stored token against the server, then marks the
// task active. There is no remote registration phase; an accepted token
// is all the setup REDCap needs.
func (p *REDCapPublisher) Initiate(ctx context.Context) error {
	if err := p.records.VerifyToken(ctx, p.cred.Endpoint, p.cred.APIKey); err != nil {
		return err
	}
	if err := p.activate(ctx); err != nil {
		return err
	}
	p.logger.Info("redcap publisher active", "task", p.task.URI, "endpoint", p.cred.Endpoint)
	return nil
}

// InsertData imports one submission as a record.
func (p *REDCapPublisher) InsertData(ctx context.Context, sub model.Submission) error {
	if !p.locks.TryAcquire(sub.URI) {
		p.logger.Info("duplicate delivery of submission, bailing", "submission", sub.URI, "task", p.task.URI)
		return nil
	}
	defer p.locks.Release(sub.URI)

	if err := p.records.ImportRecord(ctx, p.cred.Endpoint, p.cred.APIKey, buildRecord(sub)); err != nil {
		if model.IsCredentialsError(err) {
			return p.failCredentials(ctx, err)
		}
		return err
	}

	p.logger.Info("imported submission record", "submission", sub.URI, "task", p.task.URI)
	return nil
}

// DescriptiveTarget identifies the REDCap server this publisher writes to.
func (p *REDCapPublisher) DescriptiveTarget() string {
	return p.cred.Endpoint
}
