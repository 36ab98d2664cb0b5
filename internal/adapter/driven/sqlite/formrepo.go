package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FormStore = (*FormRepo)(nil)

// FormRepo is the SQLite implementation of the FormStore port interface.
type FormRepo struct {
	db *DB
}

// NewFormRepo creates a new FormRepo backed by the given DB.
func NewFormRepo(db *DB) *FormRepo {
	return &FormRepo{db: db}
}

// Get retrieves a form by ID. Returns (nil, nil) if not found.
func (r *FormRepo) Get(ctx context.Context, formID string) (*model.Form, error) {
	const query = `
		SELECT form_id, name, definition_xml, valid, marked_for_deletion, created_at
		FROM forms WHERE form_id = ?
	`

	var form model.Form
	var valid, marked int
	var createdAt string

	err := r.db.Reader.QueryRowContext(ctx, query, formID).Scan(
		&form.ID, &form.Name, &form.DefinitionXML, &valid, &marked, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get form %s: %w", formID, err)
	}

	form.Valid = valid != 0
	form.MarkedForDeletion = marked != 0

	form.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for form %s: %w", formID, err)
	}

	return &form, nil
}

// Upsert inserts or replaces a form definition.
func (r *FormRepo) Upsert(ctx context.Context, form model.Form) error {
	const query = `
		INSERT INTO forms (form_id, name, definition_xml, valid, marked_for_deletion, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(form_id) DO UPDATE SET
			name = excluded.name,
			definition_xml = excluded.definition_xml,
			valid = excluded.valid,
			marked_for_deletion = excluded.marked_for_deletion
	`

	valid := 0
	if form.Valid {
		valid = 1
	}

	marked := 0
	if form.MarkedForDeletion {
		marked = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		form.ID, form.Name, form.DefinitionXML, valid, marked, form.CreatedAt.UTC(),
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("upsert form %s: %w", form.ID, err))
	}

	return nil
}
