package application

import (
	"context"
	"fmt"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// WorksheetPublisher appends each submission as one row to a remote
// spreadsheet. Its one-time setup creates the worksheet and stores the
// returned id in the credential record.
type WorksheetPublisher struct {
	taskState

	form   *model.Form
	sheets driven.WorksheetServer
	creds  driven.CredentialStore
	locks  *DeliveryLocks
}

// Initiate creates the remote worksheet (once) and marks the task active.
// The header row carries the bookkeeping columns followed by the form's
// field names, matching the keys buildRecord emits for each row.
func (p *WorksheetPublisher) Initiate(ctx context.Context) error {
	if !p.task.Prepared {
		header := append([]string{"record_id", "submitted_at"}, formFieldNames(p.form.DefinitionXML)...)
		worksheetID, err := p.sheets.CreateWorksheet(ctx, p.cred.Endpoint, p.cred.APIKey, p.form.Name, header)
		if err != nil {
			return err
		}

		p.cred.RemoteFormID = worksheetID
		p.cred.UpdatedAt = time.Now().UTC()
		if err := p.creds.Update(ctx, *p.cred); err != nil {
			return fmt.Errorf("persist worksheet id for %s: %w", p.task.URI, err)
		}
	}

	if err := p.activate(ctx); err != nil {
		return err
	}
	p.logger.Info("worksheet publisher active", "task", p.task.URI, "worksheet", p.cred.RemoteFormID)
	return nil
}

// InsertData appends one submission row.
func (p *WorksheetPublisher) InsertData(ctx context.Context, sub model.Submission) error {
	if !p.locks.TryAcquire(sub.URI) {
		p.logger.Info("duplicate delivery of submission, bailing", "submission", sub.URI, "task", p.task.URI)
		return nil
	}
	defer p.locks.Release(sub.URI)

	if err := p.sheets.AppendRow(ctx, p.cred.Endpoint, p.cred.APIKey, p.cred.RemoteFormID, buildRecord(sub)); err != nil {
		if model.IsCredentialsError(err) {
			return p.failCredentials(ctx, err)
		}
		return err
	}

	p.logger.Info("appended submission row", "submission", sub.URI, "task", p.task.URI)
	return nil
}

// DescriptiveTarget identifies the worksheet this publisher appends to.
func (p *WorksheetPublisher) DescriptiveTarget() string {
	return fmt.Sprintf("%s#%s", p.cred.Endpoint, p.cred.RemoteFormID)
}
