package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// RequestError marks an admin request that was rejected before or during
// publisher construction: missing parameters, a form in the wrong state,
// or a destination-side setup failure whose message is passed through.
type RequestError struct {
	Msg string
	Err error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RequestError) Unwrap() error { return e.Err }

// CreateDestinationRequest carries the parameters for creating a new
// publisher. Kind-specific fields: Network for netvote, Endpoint for
// every other kind.
type CreateDestinationRequest struct {
	FormID     string                  `validate:"required"`
	Kind       model.DestinationKind   `validate:"required"`
	OwnerEmail string                  `validate:"required,email"`
	Option     model.PublicationOption `validate:"required"`
	APIKey     string                  `validate:"required"`
	Network    string
	Endpoint   string
}

// DestinationSummary is the admin-surface view of one configured
// publisher.
type DestinationSummary struct {
	TaskURI       string
	Kind          model.DestinationKind
	Status        model.TaskStatus
	Prepared      bool
	Option        model.PublicationOption
	OwnerEmail    string
	Target        string
	EstablishedAt time.Time
}

// AdminService is the control surface for publisher lifecycle: create,
// list, delete, restart, rotate credentials, pause, abandon. It enforces
// status-transition legality before any remote call is made.
type AdminService struct {
	tasks driven.TaskStore
	creds driven.CredentialStore
	forms driven.FormStore

	runner       *Runner
	newPublisher func(task *model.PublishTask, cred *model.Credential, form *model.Form) (Publisher, error)
	validate     *validator.Validate
	settleDelay  time.Duration
	logger       *slog.Logger
}

// NewAdminService creates an AdminService. settleDelay is the mandatory
// minimum wait after a delete before the deletion is reported to the
// caller, letting in-flight deliveries observe pre-delete state.
func NewAdminService(
	tasks driven.TaskStore,
	creds driven.CredentialStore,
	forms driven.FormStore,
	runner *Runner,
	newPublisher func(task *model.PublishTask, cred *model.Credential, form *model.Form) (Publisher, error),
	settleDelay time.Duration,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		tasks:        tasks,
		creds:        creds,
		forms:        forms,
		runner:       runner,
		newPublisher: newPublisher,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		settleDelay:  settleDelay,
		logger:       logger,
	}
}

// CreateDestination allocates a credential record and a publish task,
// runs the destination's one-time setup, and schedules delivery of
// pending submissions. It returns the new task URI.
//
// For the netvote kind, setup includes the remote registration protocol
// and can block for minutes while the registry provisions the form.
func (s *AdminService) CreateDestination(ctx context.Context, req CreateDestinationRequest) (string, error) {
	cred, err := s.buildCredential(req)
	if err != nil {
		return "", err
	}

	form, err := s.getForm(ctx, req.FormID)
	if err != nil {
		return "", err
	}
	if form.MarkedForDeletion {
		return "", &RequestError{Msg: "form is marked for deletion - publishing request aborted"}
	}
	if !form.HasValidDefinition() {
		return "", &RequestError{Msg: "form does not have a valid definition"}
	}

	if err := s.creds.Create(ctx, *cred); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	task := model.PublishTask{
		URI:           uuid.NewString(),
		FormID:        req.FormID,
		Kind:          req.Kind,
		CredentialURI: cred.URI,
		Option:        req.Option,
		Status:        model.StatusCreated,
		EstablishedAt: now,
		UpdatedAt:     now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", err
	}

	pub, err := s.newPublisher(&task, cred, form)
	if err != nil {
		return "", err
	}
	if err := pub.Initiate(ctx); err != nil {
		return "", err
	}

	s.kickAsync(task.URI)
	s.logger.Info("publisher created",
		"task", task.URI,
		"form", req.FormID,
		"kind", req.Kind,
		"target", pub.DescriptiveTarget(),
		"owner", pub.OwnerIdentity(),
	)
	return task.URI, nil
}

// buildCredential validates the request and assembles an unsaved
// credential record for it.
func (s *AdminService) buildCredential(req CreateDestinationRequest) (*model.Credential, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &RequestError{Msg: "invalid create request", Err: err}
	}
	if !req.Kind.Valid() {
		return nil, &RequestError{Msg: fmt.Sprintf("unknown destination kind %q", req.Kind)}
	}
	if !req.Option.Valid() {
		return nil, &RequestError{Msg: fmt.Sprintf("unknown publication option %q", req.Option)}
	}

	cred := &model.Credential{
		URI:        uuid.NewString(),
		Kind:       req.Kind,
		OwnerEmail: req.OwnerEmail,
		APIKey:     req.APIKey,
		UpdatedAt:  time.Now().UTC(),
	}

	switch req.Kind {
	case model.KindNetvote:
		network := model.Network(req.Network)
		if !network.Valid() {
			return nil, &RequestError{Msg: fmt.Sprintf("unknown notarization network %q", req.Network)}
		}
		cred.Network = network
	default:
		if err := s.validate.Var(req.Endpoint, "required,url"); err != nil {
			return nil, &RequestError{Msg: fmt.Sprintf("destination endpoint %q is not a valid URL", req.Endpoint)}
		}
		cred.Endpoint = req.Endpoint
	}

	return cred, nil
}

// ListDestinations returns summaries of all publishers configured for a
// form. An empty form id is a no-op.
func (s *AdminService) ListDestinations(ctx context.Context, formID string) ([]DestinationSummary, error) {
	if formID == "" {
		return nil, nil
	}

	ts, err := s.tasks.ListByForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	summaries := make([]DestinationSummary, 0, len(ts))
	for i := range ts {
		task := &ts[i]

		cred, err := s.creds.Get(ctx, task.CredentialURI)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			return nil, fmt.Errorf("task %s: %w", task.URI, model.ErrCredentialNotFound)
		}

		summaries = append(summaries, DestinationSummary{
			TaskURI:       task.URI,
			Kind:          task.Kind,
			Status:        task.Status,
			Prepared:      task.Prepared,
			Option:        task.Option,
			OwnerEmail:    cred.OwnerEmail,
			Target:        describeTarget(cred),
			EstablishedAt: task.EstablishedAt,
		})
	}
	return summaries, nil
}

// describeTarget mirrors Publisher.DescriptiveTarget for listing without
// constructing a full publisher per row.
func describeTarget(cred *model.Credential) string {
	switch cred.Kind {
	case model.KindNetvote:
		return "NETVOTE://" + string(cred.Network)
	case model.KindWorksheet:
		return fmt.Sprintf("%s#%s", cred.Endpoint, cred.RemoteFormID)
	default:
		return cred.Endpoint
	}
}

// DeleteDestination removes a publisher and its credential record. It is
// legal from any status. Before reporting success it waits the settle
// delay so deliveries already in flight observe the task's pre-delete
// state rather than racing the removal. Returns false if no such task
// exists.
func (s *AdminService) DeleteDestination(ctx context.Context, taskURI string) (bool, error) {
	task, err := s.tasks.Get(ctx, taskURI)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	if err := s.creds.Delete(ctx, task.CredentialURI); err != nil {
		return false, err
	}
	if err := s.tasks.Delete(ctx, taskURI); err != nil {
		return false, err
	}

	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
	}

	s.logger.Info("publisher deleted", "task", taskURI)
	return true, nil
}

// RestartDestination re-runs the publisher's setup. It is legal only
// from bad_credentials, paused, or abandoned; any other status is an
// operator mistake and is rejected without touching the destination.
func (s *AdminService) RestartDestination(ctx context.Context, taskURI string) error {
	task, cred, form, err := s.loadPublisherParts(ctx, taskURI)
	if err != nil {
		return err
	}

	if !task.Status.CanRestart() {
		return &model.IllegalTransitionError{From: task.Status, Op: "restart"}
	}

	pub, err := s.newPublisher(task, cred, form)
	if err != nil {
		return err
	}
	if err := pub.Initiate(ctx); err != nil {
		return err
	}

	s.kickAsync(taskURI)
	s.logger.Info("publisher restarted", "task", taskURI, "target", pub.DescriptiveTarget())
	return nil
}

// RotateCredentials replaces the API key and restarts the publisher.
// Rotation is legal only from bad_credentials and only for destination
// kinds that support it.
func (s *AdminService) RotateCredentials(ctx context.Context, taskURI, newAPIKey string) error {
	if newAPIKey == "" {
		return &RequestError{Msg: "replacement API key must be supplied"}
	}

	task, cred, form, err := s.loadPublisherParts(ctx, taskURI)
	if err != nil {
		return err
	}

	if task.Status != model.StatusBadCredentials {
		return &model.IllegalTransitionError{From: task.Status, Op: "rotate credentials for"}
	}
	if !task.Kind.SupportsKeyRotation() {
		return &RequestError{Msg: fmt.Sprintf("destination kind %q does not support key rotation", task.Kind)}
	}

	cred.APIKey = newAPIKey
	cred.UpdatedAt = time.Now().UTC()
	if err := s.creds.Update(ctx, *cred); err != nil {
		return err
	}

	pub, err := s.newPublisher(task, cred, form)
	if err != nil {
		return err
	}
	if err := pub.Initiate(ctx); err != nil {
		return err
	}

	s.kickAsync(taskURI)
	s.logger.Info("publisher credentials rotated", "task", taskURI)
	return nil
}

// PauseDestination stops future scheduling for an active publisher. Work
// already dispatched is not interrupted.
func (s *AdminService) PauseDestination(ctx context.Context, taskURI string) error {
	return s.transition(ctx, taskURI, model.StatusPaused, "pause", func(from model.TaskStatus) bool {
		return from == model.StatusActive
	})
}

// AbandonDestination permanently retires a publisher without deleting its
// history. Legal from any status except abandoned itself.
func (s *AdminService) AbandonDestination(ctx context.Context, taskURI string) error {
	return s.transition(ctx, taskURI, model.StatusAbandoned, "abandon", func(from model.TaskStatus) bool {
		return from != model.StatusAbandoned
	})
}

// transition applies a guarded status change and persists it.
func (s *AdminService) transition(ctx context.Context, taskURI string, to model.TaskStatus, op string, legal func(model.TaskStatus) bool) error {
	task, err := s.tasks.Get(ctx, taskURI)
	if err != nil {
		return err
	}
	if task == nil {
		return model.ErrTaskNotFound
	}

	if !legal(task.Status) {
		return &model.IllegalTransitionError{From: task.Status, Op: op}
	}

	task.Status = to
	task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, *task); err != nil {
		return err
	}

	s.logger.Info("publisher status changed", "task", taskURI, "status", to)
	return nil
}

// loadPublisherParts fetches the task, credential, and form needed to
// reconstruct a publisher.
func (s *AdminService) loadPublisherParts(ctx context.Context, taskURI string) (*model.PublishTask, *model.Credential, *model.Form, error) {
	task, err := s.tasks.Get(ctx, taskURI)
	if err != nil {
		return nil, nil, nil, err
	}
	if task == nil {
		return nil, nil, nil, model.ErrTaskNotFound
	}

	cred, err := s.creds.Get(ctx, task.CredentialURI)
	if err != nil {
		return nil, nil, nil, err
	}
	if cred == nil {
		return nil, nil, nil, fmt.Errorf("task %s: %w", taskURI, model.ErrCredentialNotFound)
	}

	form, err := s.getForm(ctx, task.FormID)
	if err != nil {
		return nil, nil, nil, err
	}
	return task, cred, form, nil
}

// getForm fetches a form, mapping absence to the form-not-found category.
func (s *AdminService) getForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, model.ErrFormNotFound)
	}
	return form, nil
}

// asyncKickTimeout bounds a fire-and-forget kick so its goroutine cannot
// hang on the kick channel after the runner loop has shut down.
const asyncKickTimeout = time.Minute

// kickAsync schedules a publish-all-pending pass off the request path.
// The request context is not reused: it dies with the HTTP response.
func (s *AdminService) kickAsync(taskURI string) {
	if s.runner == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncKickTimeout)
		defer cancel()
		if err := s.runner.Kick(ctx, taskURI); err != nil {
			s.logger.Error("async publish kick failed", "task", taskURI, "error", err)
		}
	}()
}
