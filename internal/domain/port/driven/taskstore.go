// Package driven defines the outbound port interfaces the application
// layer depends on: entity stores and destination-service clients.
// Adapters implement these; the application never imports an adapter.
package driven

import (
	"context"

	"github.com/netvote/aggregate/internal/domain/model"
)

// TaskStore persists publish tasks. Implementations map storage-exhaustion
// failures to model.ErrQuotaExceeded so the admin surface can report them
// as a distinct category.
type TaskStore interface {
	// Create inserts a new task.
	Create(ctx context.Context, task model.PublishTask) error

	// Get retrieves a task by URI. Returns nil, nil if it does not exist.
	Get(ctx context.Context, uri string) (*model.PublishTask, error)

	// ListByForm returns all tasks configured for the given form, oldest first.
	ListByForm(ctx context.Context, formID string) ([]model.PublishTask, error)

	// ListByStatus returns all tasks currently in the given status.
	ListByStatus(ctx context.Context, status model.TaskStatus) ([]model.PublishTask, error)

	// Update persists the task's mutable fields (status, prepared,
	// updated_at). A status transition is not effective until Update returns.
	Update(ctx context.Context, task model.PublishTask) error

	// Delete removes a task. Returns model.ErrTaskNotFound if no row matched.
	Delete(ctx context.Context, uri string) error
}
