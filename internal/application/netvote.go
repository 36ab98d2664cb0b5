package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// NetvotePublisher notarizes submissions on a blockchain through the
// Netrosa registry. It is the only publisher with a real multi-stage
// protocol: a one-time registration phase run by Initiate, and a
// three-step per-submission phase (pin attachments, acquire a bearer
// token, submit the envelope).
type NetvotePublisher struct {
	taskState

	form       *model.Form
	registry   driven.NotaryRegistry
	content    driven.ContentStore
	contentKey string
	creds      driven.CredentialStore
	subs       driven.SubmissionSource
	locks      *DeliveryLocks

	pollInterval time.Duration
	openTimeout  time.Duration
}

// notarizedEnvelope is the payload submitted to the registry for one
// submission: the formatted survey plus the content references of its
// pinned attachments.
type notarizedEnvelope struct {
	Survey     Survey   `json:"survey"`
	References []string `json:"references"`
	Timestamp  int64    `json:"timestamp"`
}

// errFormNotOpen drives the registration readiness poll: the registry
// provisions asynchronously and reports a transitional status until the
// form is able to accept submissions.
var errFormNotOpen = errors.New("form not open yet")

// Initiate runs the one-time registration phase: register the form
// definition, generate a submit key, then poll the registry until the
// form reports open. Only after polling succeeds is the task persisted
// as active, carrying the remote form id and submit key in its
// credential record. Polling is bounded; a registry that never opens the
// form is a fatal setup error and the task never reaches active.
func (p *NetvotePublisher) Initiate(ctx context.Context) error {
	if !p.task.Prepared {
		if err := p.register(ctx); err != nil {
			return err
		}
	}

	if err := p.activate(ctx); err != nil {
		return err
	}

	p.logger.Info("netvote publisher active",
		"task", p.task.URI,
		"form", p.task.FormID,
		"remote_form", p.cred.RemoteFormID,
		"network", p.cred.Network,
	)
	return nil
}

// register performs the remote-registration protocol against the registry.
func (p *NetvotePublisher) register(ctx context.Context) error {
	remoteID, err := p.registry.RegisterForm(ctx, p.cred.APIKey, driven.RegisterFormRequest{
		Name:          p.form.Name,
		DefinitionXML: p.form.DefinitionXML,
		Network:       p.cred.Network,
	})
	if err != nil {
		return err
	}
	p.logger.Info("registered form with notarization registry", "task", p.task.URI, "remote_form", remoteID)

	submitKey, err := p.registry.GenerateSubmitKey(ctx, p.cred.APIKey, remoteID)
	if err != nil {
		return err
	}

	if err := p.awaitOpen(ctx, remoteID); err != nil {
		return err
	}

	p.cred.RemoteFormID = remoteID
	p.cred.SubmitKey = submitKey
	p.cred.UpdatedAt = time.Now().UTC()
	if err := p.creds.Update(ctx, *p.cred); err != nil {
		return fmt.Errorf("persist registration credentials for %s: %w", p.task.URI, err)
	}

	return nil
}

// awaitOpen polls the registry's form-status endpoint at a fixed interval
// until the form reports open, bounded by the configured timeout. The
// registry offers no push notification for provisioning completion, so
// polling is the only way to avoid returning an unusable publisher.
func (p *NetvotePublisher) awaitOpen(ctx context.Context, remoteFormID string) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.openTimeout)
	defer cancel()

	poll := func() error {
		status, err := p.registry.FormStatus(waitCtx, p.cred.APIKey, remoteFormID)
		if err != nil {
			// Poll failures are fatal setup errors, not worth retrying.
			return backoff.Permanent(err)
		}
		if status != driven.FormStatusOpen {
			p.logger.Info("waiting for form to open", "remote_form", remoteFormID, "status", status)
			return errFormNotOpen
		}
		return nil
	}

	interval := backoff.WithContext(backoff.NewConstantBackOff(p.pollInterval), waitCtx)
	if err := backoff.Retry(poll, interval); err != nil {
		if errors.Is(err, errFormNotOpen) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return &model.PublicationError{
				Detail: fmt.Sprintf("form %s did not open within %s", remoteFormID, p.openTimeout),
				Err:    err,
			}
		}
		return err
	}
	return nil
}

// InsertData notarizes one submission. The delivery lock makes the
// operation idempotent across concurrent schedules: if another delivery
// of the same submission is in flight, this call logs and returns
// without side effects. The lock is released on every exit path.
func (p *NetvotePublisher) InsertData(ctx context.Context, sub model.Submission) error {
	if !p.locks.TryAcquire(sub.URI) {
		p.logger.Info("duplicate delivery of submission, bailing", "submission", sub.URI, "task", p.task.URI)
		return nil
	}
	defer p.locks.Release(sub.URI)

	survey := buildSurvey(sub)

	references, err := p.pinAttachments(ctx, sub)
	if err != nil {
		return err
	}

	token, err := p.registry.IssueToken(ctx, p.cred.RemoteFormID, p.cred.SubmitKey)
	if err != nil {
		if model.IsCredentialsError(err) {
			return p.failCredentials(ctx, err)
		}
		return err
	}

	envelope, err := json.Marshal(notarizedEnvelope{
		Survey:     survey,
		References: references,
		Timestamp:  sub.SubmittedAt.UnixMilli(),
	})
	if err != nil {
		return &model.PublicationError{Detail: "encode submission envelope", Err: err}
	}

	if err := p.registry.SubmitEnvelope(ctx, p.cred.RemoteFormID, token, envelope); err != nil {
		return err
	}

	p.logger.Info("notarized submission",
		"submission", sub.URI,
		"task", p.task.URI,
		"references", len(references),
	)
	return nil
}

// pinAttachments uploads every attachment to the content-addressed store,
// one item per call, and collects the returned references. The content
// store uses credentials independent of the registry, so failures here
// are publication errors, never credentials errors against the task.
func (p *NetvotePublisher) pinAttachments(ctx context.Context, sub model.Submission) ([]string, error) {
	references := make([]string, 0, len(sub.Attachments))
	for _, att := range sub.Attachments {
		data, err := p.subs.ReadAttachment(ctx, att.ID)
		if err != nil {
			return nil, &model.PublicationError{
				Detail: fmt.Sprintf("read attachment %s of %s", att.Name, sub.URI),
				Err:    err,
			}
		}

		ref, err := p.content.Pin(ctx, p.contentKey, att.Name, att.ContentType, data)
		if err != nil {
			return nil, err
		}

		p.logger.Info("pinned attachment", "submission", sub.URI, "attachment", att.Name, "reference", ref)
		references = append(references, ref)
	}
	return references, nil
}

// DescriptiveTarget identifies the notarization network this publisher
// writes to.
func (p *NetvotePublisher) DescriptiveTarget() string {
	return "NETVOTE://" + string(p.cred.Network)
}
