package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Store fakes ---

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]model.PublishTask
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]model.PublishTask)}
}

func (f *fakeTaskStore) Create(_ context.Context, task model.PublishTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.URI] = task
	return nil
}

func (f *fakeTaskStore) Get(_ context.Context, uri string) (*model.PublishTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[uri]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (f *fakeTaskStore) ListByForm(_ context.Context, formID string) ([]model.PublishTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PublishTask
	for _, task := range f.tasks {
		if task.FormID == formID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListByStatus(_ context.Context, status model.TaskStatus) ([]model.PublishTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PublishTask
	for _, task := range f.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task model.PublishTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.URI]; !ok {
		return model.ErrTaskNotFound
	}
	f.tasks[task.URI] = task
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[uri]; !ok {
		return model.ErrTaskNotFound
	}
	delete(f.tasks, uri)
	return nil
}

func (f *fakeTaskStore) status(uri string) model.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[uri].Status
}

type fakeCredStore struct {
	mu    sync.Mutex
	creds map[string]model.Credential
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{creds: make(map[string]model.Credential)}
}

func (f *fakeCredStore) Create(_ context.Context, cred model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds[cred.URI] = cred
	return nil
}

func (f *fakeCredStore) Get(_ context.Context, uri string) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[uri]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (f *fakeCredStore) Update(_ context.Context, cred model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.creds[cred.URI]; !ok {
		return model.ErrCredentialNotFound
	}
	f.creds[cred.URI] = cred
	return nil
}

func (f *fakeCredStore) Delete(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, uri)
	return nil
}

func (f *fakeCredStore) get(uri string) model.Credential {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds[uri]
}

type fakeFormStore struct {
	forms map[string]model.Form
}

func newFakeFormStore() *fakeFormStore {
	return &fakeFormStore{forms: make(map[string]model.Form)}
}

func (f *fakeFormStore) Get(_ context.Context, formID string) (*model.Form, error) {
	form, ok := f.forms[formID]
	if !ok {
		return nil, nil
	}
	return &form, nil
}

func (f *fakeFormStore) Upsert(_ context.Context, form model.Form) error {
	f.forms[form.ID] = form
	return nil
}

type fakeSubmissionSource struct {
	subs        []model.Submission
	attachments map[int64][]byte
	lastSince   time.Time
}

func (f *fakeSubmissionSource) ListByForm(_ context.Context, formID string, since time.Time) ([]model.Submission, error) {
	f.lastSince = since
	var out []model.Submission
	for _, sub := range f.subs {
		if sub.FormID != formID {
			continue
		}
		if !since.IsZero() && sub.SubmittedAt.Before(since) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (f *fakeSubmissionSource) ReadAttachment(_ context.Context, attachmentID int64) ([]byte, error) {
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, &model.PublicationError{Detail: "attachment not found"}
	}
	return data, nil
}

// --- Destination client fakes ---

type fakeRegistry struct {
	mu sync.Mutex

	registerErr  error
	remoteFormID string

	submitKey    string
	submitKeyErr error

	// statuses is consumed one per FormStatus call; the last entry
	// repeats once exhausted.
	statuses    []string
	statusErr   error
	statusCalls int

	token    string
	tokenErr error

	submitErr error
	envelopes [][]byte
}

func (f *fakeRegistry) RegisterForm(_ context.Context, _ string, _ driven.RegisterFormRequest) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return f.remoteFormID, nil
}

func (f *fakeRegistry) FormStatus(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[idx], nil
}

func (f *fakeRegistry) GenerateSubmitKey(_ context.Context, _, _ string) (string, error) {
	if f.submitKeyErr != nil {
		return "", f.submitKeyErr
	}
	return f.submitKey, nil
}

func (f *fakeRegistry) IssueToken(_ context.Context, _, _ string) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.token, nil
}

func (f *fakeRegistry) SubmitEnvelope(_ context.Context, _, _ string, envelope []byte) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, envelope)
	return nil
}

type fakeContentStore struct {
	mu     sync.Mutex
	pinErr error
	pinned []string
}

func (f *fakeContentStore) Pin(_ context.Context, _, name, _ string, _ []byte) (string, error) {
	if f.pinErr != nil {
		return "", f.pinErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, name)
	return "Qm-" + name, nil
}

type fakeRecordServer struct {
	verifyErr error
	importErr error
	records   []map[string]string
}

func (f *fakeRecordServer) VerifyToken(_ context.Context, _, _ string) error {
	return f.verifyErr
}

func (f *fakeRecordServer) ImportRecord(_ context.Context, _, _ string, record map[string]string) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.records = append(f.records, record)
	return nil
}

type fakeJSONEndpoint struct {
	postErr  error
	payloads [][]byte
}

func (f *fakeJSONEndpoint) Post(_ context.Context, _, _ string, payload []byte) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeWorksheetServer struct {
	createErr   error
	worksheetID string
	header      []string
	appendErr   error
	rows        []map[string]string
}

func (f *fakeWorksheetServer) CreateWorksheet(_ context.Context, _, _, _ string, header []string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.header = header
	return f.worksheetID, nil
}

func (f *fakeWorksheetServer) AppendRow(_ context.Context, _, _, _ string, row map[string]string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, row)
	return nil
}

// recordingPublisher is a Publisher stub for runner and admin tests.
type recordingPublisher struct {
	task        *model.PublishTask
	initiateErr error
	initiated   int
	insertErrs  map[string]error
	delivered   []string
}

func (p *recordingPublisher) Initiate(_ context.Context) error {
	p.initiated++
	return p.initiateErr
}

func (p *recordingPublisher) InsertData(_ context.Context, sub model.Submission) error {
	if err, ok := p.insertErrs[sub.URI]; ok {
		return err
	}
	p.delivered = append(p.delivered, sub.URI)
	return nil
}

func (p *recordingPublisher) OwnerIdentity() string { return "owner@example.org" }

func (p *recordingPublisher) DescriptiveTarget() string { return "test://target" }

func (p *recordingPublisher) Task() *model.PublishTask { return p.task }
