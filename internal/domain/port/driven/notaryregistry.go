package driven

import (
	"context"

	"github.com/netvote/aggregate/internal/domain/model"
)

// RegisterFormRequest carries the form definition submitted to the
// notarization registry during the one-time registration phase.
type RegisterFormRequest struct {
	Name          string
	DefinitionXML string
	Network       model.Network
	Test          bool
}

// NotaryRegistry is the client port for the Netrosa notarization registry.
// Implementations return *model.CredentialsError for unauthorized
// responses and *model.PublicationError for every other remote failure,
// so the publisher can drive the task state machine without inspecting
// HTTP details.
type NotaryRegistry interface {
	// RegisterForm registers a form definition and returns the remote
	// form identifier. The registry provisions asynchronously; the form
	// is not ready until FormStatus reports "open".
	RegisterForm(ctx context.Context, apiKey string, req RegisterFormRequest) (string, error)

	// FormStatus returns the registry's provisioning status for the form.
	FormStatus(ctx context.Context, apiKey, remoteFormID string) (string, error)

	// GenerateSubmitKey creates one long-lived submission credential
	// scoped to the remote form.
	GenerateSubmitKey(ctx context.Context, apiKey, remoteFormID string) (string, error)

	// IssueToken exchanges the long-lived submit key for a short-lived
	// bearer token.
	IssueToken(ctx context.Context, remoteFormID, submitKey string) (string, error)

	// SubmitEnvelope posts one JSON-encoded submission envelope using the
	// bearer token.
	SubmitEnvelope(ctx context.Context, remoteFormID, token string, envelope []byte) error
}

// FormStatusOpen is the registry status value that marks a form as ready
// to accept submissions.
const FormStatusOpen = "open"
