package driven

import (
	"context"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
)

// SubmissionSource is the read-only iterator over already-validated
// submissions that the task runner delivers from. Attachment blobs are
// intentionally not part of the listing; publishers read them one at a
// time so large media is only pulled for destinations that want it.
type SubmissionSource interface {
	// ListByForm returns submissions for a form in submission order.
	// A zero since returns everything; otherwise only submissions at or
	// after since are returned.
	ListByForm(ctx context.Context, formID string, since time.Time) ([]model.Submission, error)

	// ReadAttachment returns the blob for one attachment.
	ReadAttachment(ctx context.Context, attachmentID int64) ([]byte, error)
}
