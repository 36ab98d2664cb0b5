package driven

import (
	"context"

	"github.com/netvote/aggregate/internal/domain/model"
)

// FormStore is the read-mostly view of the platform's form registry.
// The publication subsystem only reads forms; Upsert exists for the
// ingestion side of the platform and for test fixtures.
type FormStore interface {
	// Get retrieves a form by ID. Returns nil, nil if it does not exist.
	Get(ctx context.Context, formID string) (*model.Form, error)

	// Upsert inserts or replaces a form definition.
	Upsert(ctx context.Context, form model.Form) error
}
