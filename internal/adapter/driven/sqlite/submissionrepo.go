package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubmissionSource = (*SubmissionRepo)(nil)

// SubmissionRepo is the SQLite implementation of the SubmissionSource
// port interface. Field values are serialized as a JSON array in a TEXT
// column; attachment blobs live in their own table and are only read on
// demand through ReadAttachment.
type SubmissionRepo struct {
	db *DB
}

// NewSubmissionRepo creates a new SubmissionRepo backed by the given DB.
func NewSubmissionRepo(db *DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

// submittedAtFormat is fixed-width so lexicographic comparison of stored
// values matches chronological order in the since filter.
const submittedAtFormat = "2006-01-02 15:04:05.000000000"

// AttachmentBlob carries one attachment body for ingestion.
type AttachmentBlob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Insert stores a submission together with its attachment blobs. This is
// the ingestion side of the platform; the publication subsystem only reads.
func (r *SubmissionRepo) Insert(ctx context.Context, sub model.Submission, blobs []AttachmentBlob) error {
	values := sub.Values
	if values == nil {
		values = []model.FieldValue{}
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal field values: %w", err)
	}

	const subQuery = `
		INSERT INTO submissions (uri, form_id, submitted_at, field_values)
		VALUES (?, ?, ?, ?)
	`
	_, err = r.db.Writer.ExecContext(ctx, subQuery,
		sub.URI, sub.FormID, sub.SubmittedAt.UTC().Format(submittedAtFormat), string(valuesJSON),
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("insert submission %s: %w", sub.URI, err))
	}

	const attQuery = `
		INSERT INTO attachments (submission_uri, name, content_type, data)
		VALUES (?, ?, ?, ?)
	`
	for _, blob := range blobs {
		_, err = r.db.Writer.ExecContext(ctx, attQuery,
			sub.URI, blob.Name, blob.ContentType, blob.Data,
		)
		if err != nil {
			return mapWriteErr(fmt.Errorf("insert attachment %s/%s: %w", sub.URI, blob.Name, err))
		}
	}

	return nil
}

// ListByForm returns submissions for a form in submission order. A zero
// since returns everything; otherwise only submissions at or after since.
func (r *SubmissionRepo) ListByForm(ctx context.Context, formID string, since time.Time) ([]model.Submission, error) {
	const query = `
		SELECT uri, form_id, submitted_at, field_values
		FROM submissions
		WHERE form_id = ? AND (? = '' OR submitted_at >= ?)
		ORDER BY submitted_at, uri
	`

	sinceArg := ""
	if !since.IsZero() {
		sinceArg = since.UTC().Format(submittedAtFormat)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, formID, sinceArg, sinceArg)
	if err != nil {
		return nil, fmt.Errorf("list submissions for form %s: %w", formID, err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		var submittedAt, valuesJSON string

		if err := rows.Scan(&sub.URI, &sub.FormID, &submittedAt, &valuesJSON); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}

		sub.SubmittedAt, err = parseTime(submittedAt)
		if err != nil {
			return nil, fmt.Errorf("parse submitted_at for submission %s: %w", sub.URI, err)
		}

		if err := json.Unmarshal([]byte(valuesJSON), &sub.Values); err != nil {
			return nil, fmt.Errorf("unmarshal field values for submission %s: %w", sub.URI, err)
		}

		sub.Attachments, err = r.listAttachments(ctx, sub.URI)
		if err != nil {
			return nil, err
		}

		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return subs, nil
}

// ReadAttachment returns the blob for one attachment.
func (r *SubmissionRepo) ReadAttachment(ctx context.Context, attachmentID int64) ([]byte, error) {
	const query = `SELECT data FROM attachments WHERE id = ?`

	var data []byte
	err := r.db.Reader.QueryRowContext(ctx, query, attachmentID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read attachment %d: not found", attachmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("read attachment %d: %w", attachmentID, err)
	}

	return data, nil
}

func (r *SubmissionRepo) listAttachments(ctx context.Context, submissionURI string) ([]model.Attachment, error) {
	const query = `
		SELECT id, submission_uri, name, content_type
		FROM attachments WHERE submission_uri = ?
		ORDER BY id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, submissionURI)
	if err != nil {
		return nil, fmt.Errorf("list attachments for %s: %w", submissionURI, err)
	}
	defer rows.Close()

	var atts []model.Attachment
	for rows.Next() {
		var att model.Attachment
		if err := rows.Scan(&att.ID, &att.SubmissionURI, &att.Name, &att.ContentType); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}

	return atts, nil
}
