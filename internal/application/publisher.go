package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Publisher is the shared contract every destination kind implements.
//
// InsertData delivers one submission and must be idempotent with respect
// to the delivery lock set: if another delivery of the same submission is
// in flight it returns nil without side effects. It signals a
// *model.CredentialsError (caught by the runner to drive the state
// machine) or a *model.PublicationError (surfaced, no status change), or
// succeeds silently. Side effects are confined to network calls against
// the destination and persistence writes to the publisher's own task and
// credential rows.
type Publisher interface {
	// Initiate performs the destination's one-time setup, marks the task
	// prepared and active, and persists it. For destinations with a
	// remote registration protocol this can block for minutes; callers
	// off the request path should budget for that.
	Initiate(ctx context.Context) error

	// InsertData delivers one submission.
	InsertData(ctx context.Context, sub model.Submission) error

	// OwnerIdentity returns the account that owns this publisher.
	OwnerIdentity() string

	// DescriptiveTarget returns a human-readable destination identity,
	// for display and audit only.
	DescriptiveTarget() string

	// Task returns the publisher's task record.
	Task() *model.PublishTask
}

// PublisherDeps bundles the stores, destination clients, lock set, and
// pipeline tuning shared by all publisher implementations.
type PublisherDeps struct {
	Tasks  driven.TaskStore
	Creds  driven.CredentialStore
	Subs   driven.SubmissionSource
	Locks  *DeliveryLocks
	Logger *slog.Logger

	Registry driven.NotaryRegistry
	Content  driven.ContentStore
	Records  driven.RecordServer
	JSON     driven.JSONEndpoint
	Sheets   driven.WorksheetServer

	// ContentAPIKey authenticates against the content-addressed store,
	// which holds its own key independent of any task credential.
	ContentAPIKey string

	// FormPollInterval and FormOpenTimeout bound the registration-phase
	// readiness poll against the notarization registry.
	FormPollInterval time.Duration
	FormOpenTimeout  time.Duration
}

// NewPublisher builds the Publisher implementation for the task's
// destination kind. The kind set is closed; an unknown kind is a
// programming or data-corruption error.
func NewPublisher(deps PublisherDeps, task *model.PublishTask, cred *model.Credential, form *model.Form) (Publisher, error) {
	state := taskState{task: task, cred: cred, tasks: deps.Tasks, logger: deps.Logger}

	switch task.Kind {
	case model.KindNetvote:
		return &NetvotePublisher{
			taskState:    state,
			form:         form,
			registry:     deps.Registry,
			content:      deps.Content,
			contentKey:   deps.ContentAPIKey,
			creds:        deps.Creds,
			subs:         deps.Subs,
			locks:        deps.Locks,
			pollInterval: deps.FormPollInterval,
			openTimeout:  deps.FormOpenTimeout,
		}, nil
	case model.KindREDCap:
		return &REDCapPublisher{taskState: state, records: deps.Records, locks: deps.Locks}, nil
	case model.KindJSONServer:
		return &JSONServerPublisher{taskState: state, endpoint: deps.JSON, locks: deps.Locks}, nil
	case model.KindWorksheet:
		return &WorksheetPublisher{taskState: state, form: form, sheets: deps.Sheets, creds: deps.Creds, locks: deps.Locks}, nil
	default:
		return nil, fmt.Errorf("unknown destination kind %q", task.Kind)
	}
}

// taskState is the state and persistence plumbing embedded in every
// publisher: the task row, its credential record, and the transitions
// the publishers are allowed to make.
type taskState struct {
	task   *model.PublishTask
	cred   *model.Credential
	tasks  driven.TaskStore
	logger *slog.Logger
}

// Task returns the publisher's task record.
func (s *taskState) Task() *model.PublishTask { return s.task }

// OwnerIdentity returns the owning account from the credential record.
func (s *taskState) OwnerIdentity() string { return s.cred.OwnerEmail }

// activate marks the task prepared and active and persists it. The task
// is not considered active until the write succeeds.
func (s *taskState) activate(ctx context.Context) error {
	s.task.Prepared = true
	s.task.Status = model.StatusActive
	s.task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, *s.task); err != nil {
		return fmt.Errorf("persist active status for %s: %w", s.task.URI, err)
	}
	return nil
}

// failCredentials persists bad_credentials and returns cause, so the
// failure is durable even if the process dies right after. If the
// persistence write itself fails the caller gets that error instead;
// the next delivery attempt will fail the same way and re-persist.
func (s *taskState) failCredentials(ctx context.Context, cause error) error {
	s.task.Status = model.StatusBadCredentials
	s.task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, *s.task); err != nil {
		s.logger.Error("unable to persist bad_credentials status",
			"task", s.task.URI, "error", err, "cause", cause)
		return &model.PublicationError{Detail: "persist bad_credentials status", Err: err}
	}
	return cause
}
