package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskStore = (*TaskRepo)(nil)

// TaskRepo is the SQLite implementation of the TaskStore port interface.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new TaskRepo backed by the given DB.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create inserts a new publish task.
func (r *TaskRepo) Create(ctx context.Context, task model.PublishTask) error {
	const query = `
		INSERT INTO publish_tasks (
			uri, form_id, kind, credential_uri, option, status, prepared,
			established_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	prepared := 0
	if task.Prepared {
		prepared = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		task.URI, task.FormID, string(task.Kind), task.CredentialURI,
		string(task.Option), string(task.Status), prepared,
		task.EstablishedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("create publish task %s: %w", task.URI, err))
	}

	return nil
}

// Get retrieves a publish task by URI. Returns (nil, nil) if not found.
func (r *TaskRepo) Get(ctx context.Context, uri string) (*model.PublishTask, error) {
	const query = `
		SELECT uri, form_id, kind, credential_uri, option, status, prepared,
			established_at, updated_at
		FROM publish_tasks WHERE uri = ?
	`

	task, err := scanTask(r.db.Reader.QueryRowContext(ctx, query, uri))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publish task %s: %w", uri, err)
	}

	return task, nil
}

// ListByForm returns all publish tasks attached to the given form,
// oldest first.
func (r *TaskRepo) ListByForm(ctx context.Context, formID string) ([]model.PublishTask, error) {
	const query = `
		SELECT uri, form_id, kind, credential_uri, option, status, prepared,
			established_at, updated_at
		FROM publish_tasks WHERE form_id = ?
		ORDER BY established_at, uri
	`

	return r.listTasks(ctx, query, formID)
}

// ListByStatus returns all publish tasks in the given status, oldest first.
func (r *TaskRepo) ListByStatus(ctx context.Context, status model.TaskStatus) ([]model.PublishTask, error) {
	const query = `
		SELECT uri, form_id, kind, credential_uri, option, status, prepared,
			established_at, updated_at
		FROM publish_tasks WHERE status = ?
		ORDER BY established_at, uri
	`

	return r.listTasks(ctx, query, string(status))
}

// Update persists the mutable fields of an existing publish task.
// Returns ErrTaskNotFound if no task exists with the given URI.
func (r *TaskRepo) Update(ctx context.Context, task model.PublishTask) error {
	const query = `
		UPDATE publish_tasks
		SET status = ?, prepared = ?, updated_at = ?
		WHERE uri = ?
	`

	prepared := 0
	if task.Prepared {
		prepared = 1
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		string(task.Status), prepared, task.UpdatedAt.UTC(), task.URI,
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("update publish task %s: %w", task.URI, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update publish task %s: rows affected: %w", task.URI, err)
	}
	if affected == 0 {
		return fmt.Errorf("update publish task %s: %w", task.URI, model.ErrTaskNotFound)
	}

	return nil
}

// Delete removes a publish task. Returns ErrTaskNotFound if no task
// exists with the given URI.
func (r *TaskRepo) Delete(ctx context.Context, uri string) error {
	const query = `DELETE FROM publish_tasks WHERE uri = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, uri)
	if err != nil {
		return fmt.Errorf("delete publish task %s: %w", uri, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete publish task %s: rows affected: %w", uri, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete publish task %s: %w", uri, model.ErrTaskNotFound)
	}

	return nil
}

func (r *TaskRepo) listTasks(ctx context.Context, query string, arg any) ([]model.PublishTask, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list publish tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.PublishTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publish task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publish tasks: %w", err)
	}

	return tasks, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*model.PublishTask, error) {
	var task model.PublishTask
	var kind, option, status string
	var prepared int
	var establishedAt, updatedAt string

	err := s.Scan(&task.URI, &task.FormID, &kind, &task.CredentialURI,
		&option, &status, &prepared, &establishedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	task.Kind = model.DestinationKind(kind)
	task.Option = model.PublicationOption(option)
	task.Status = model.TaskStatus(status)
	task.Prepared = prepared != 0

	task.EstablishedAt, err = parseTime(establishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse established_at: %w", err)
	}

	task.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &task, nil
}

// mapWriteErr translates a full-database write failure into the
// quota sentinel so callers can surface it as a capacity problem.
func mapWriteErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "database or disk is full") {
		return fmt.Errorf("%w: %v", model.ErrQuotaExceeded, err)
	}
	return err
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.000000000",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
