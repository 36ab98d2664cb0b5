package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// kickRequest asks the runner to deliver a single task's pending
// submissions immediately, bypassing the sweep interval.
type kickRequest struct {
	taskURI string
	done    chan error
}

// Runner dispatches submission delivery as background work, decoupled
// from the admin requests that trigger it. It periodically sweeps all
// active tasks and also accepts per-task kicks (sent after Initiate so a
// new publisher drains its backlog without waiting for the next sweep).
//
// There is no per-submission delivery bookkeeping: a submission that
// fails with a publication error is simply retried on the next sweep.
type Runner struct {
	tasks driven.TaskStore
	creds driven.CredentialStore
	forms driven.FormStore
	subs  driven.SubmissionSource

	newPublisher func(task *model.PublishTask, cred *model.Credential, form *model.Form) (Publisher, error)
	interval     time.Duration
	kickCh       chan kickRequest
}

// NewRunner creates a Runner. newPublisher is the factory closure the
// composition root builds around NewPublisher and the shared deps.
func NewRunner(
	tasks driven.TaskStore,
	creds driven.CredentialStore,
	forms driven.FormStore,
	subs driven.SubmissionSource,
	newPublisher func(task *model.PublishTask, cred *model.Credential, form *model.Form) (Publisher, error),
	interval time.Duration,
) *Runner {
	return &Runner{
		tasks:        tasks,
		creds:        creds,
		forms:        forms,
		subs:         subs,
		newPublisher: newPublisher,
		interval:     interval,
		kickCh:       make(chan kickRequest),
	}
}

// Start begins the sweep loop. It runs an immediate sweep, then sweeps on
// the configured interval, and serves kick requests in between. Start
// blocks until the context is canceled.
func (r *Runner) Start(ctx context.Context) {
	if err := r.sweepAll(ctx); err != nil {
		slog.Error("initial publish sweep failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("task runner stopped")
			return
		case <-ticker.C:
			if err := r.sweepAll(ctx); err != nil {
				slog.Error("publish sweep failed", "error", err)
			}
		case req := <-r.kickCh:
			req.done <- r.sweepOne(ctx, req.taskURI)
		}
	}
}

// Kick requests immediate delivery of all pending submissions for one
// task. It blocks until the delivery pass completes or the context is
// canceled.
func (r *Runner) Kick(ctx context.Context, taskURI string) error {
	done := make(chan error, 1)

	select {
	case r.kickCh <- kickRequest{taskURI: taskURI, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepAll delivers pending submissions for every active task. One
// task's failure does not abort the others.
func (r *Runner) sweepAll(ctx context.Context) error {
	start := time.Now()

	active, err := r.tasks.ListByStatus(ctx, model.StatusActive)
	if err != nil {
		return err
	}

	var sweepErrors int
	for i := range active {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.sweepTask(ctx, &active[i]); err != nil {
			slog.Error("task sweep failed", "task", active[i].URI, "error", err)
			sweepErrors++
		}
	}

	slog.Info("publish sweep complete",
		"tasks", len(active),
		"errors", sweepErrors,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// sweepOne delivers pending submissions for a single task by URI.
func (r *Runner) sweepOne(ctx context.Context, taskURI string) error {
	task, err := r.tasks.Get(ctx, taskURI)
	if err != nil {
		return err
	}
	if task == nil {
		return model.ErrTaskNotFound
	}
	if task.Status != model.StatusActive {
		slog.Info("skipping sweep of inactive task", "task", taskURI, "status", task.Status)
		return nil
	}
	return r.sweepTask(ctx, task)
}

// sweepTask iterates the task's pending submissions in submission order
// and delivers each one. A credentials error stops the sweep for this
// task (the publisher has already persisted bad_credentials); any other
// delivery error is isolated to its submission.
func (r *Runner) sweepTask(ctx context.Context, task *model.PublishTask) error {
	cred, err := r.creds.Get(ctx, task.CredentialURI)
	if err != nil {
		return err
	}
	if cred == nil {
		return model.ErrCredentialNotFound
	}

	form, err := r.forms.Get(ctx, task.FormID)
	if err != nil {
		return err
	}
	if form == nil {
		return model.ErrFormNotFound
	}

	pub, err := r.newPublisher(task, cred, form)
	if err != nil {
		return err
	}

	since := time.Time{}
	if task.Option == model.OptionStreamOnly {
		since = task.EstablishedAt
	}

	subs, err := r.subs.ListByForm(ctx, task.FormID, since)
	if err != nil {
		return err
	}

	var delivered, failed int
	for _, sub := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := pub.InsertData(ctx, sub); err != nil {
			if model.IsCredentialsError(err) {
				slog.Error("destination rejected credentials, suspending task",
					"task", task.URI, "submission", sub.URI, "target", pub.DescriptiveTarget(), "error", err)
				return err
			}
			slog.Error("submission delivery failed",
				"task", task.URI, "submission", sub.URI, "target", pub.DescriptiveTarget(), "error", err)
			failed++
			continue
		}
		delivered++
	}

	slog.Info("task swept",
		"task", task.URI,
		"target", pub.DescriptiveTarget(),
		"submissions", len(subs),
		"delivered", delivered,
		"failed", failed,
	)
	return nil
}
