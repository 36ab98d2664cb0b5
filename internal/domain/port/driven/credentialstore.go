package driven

import (
	"context"
	"errors"

	"github.com/netvote/aggregate/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// AGGREGATE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set AGGREGATE_SECRET_KEY")

// CredentialStore persists destination credential records. Secrets are
// immutable once validated; Update exists for the two sanctioned writes —
// the registration phase filling in SubmitKey/RemoteFormID, and
// operator-initiated key rotation.
//
// The adapter layer is responsible for at-rest encryption of the secret
// fields; this interface operates on plaintext values at the domain
// boundary.
type CredentialStore interface {
	// Create inserts a new credential record. Returns
	// ErrEncryptionKeyNotSet if the adapter was constructed without an
	// encryption key.
	Create(ctx context.Context, cred model.Credential) error

	// Get retrieves a credential record by URI. Returns nil, nil if it
	// does not exist, and ErrEncryptionKeyNotSet if the adapter was
	// constructed without an encryption key.
	Get(ctx context.Context, uri string) (*model.Credential, error)

	// Update persists the record's mutable fields.
	Update(ctx context.Context, cred model.Credential) error

	// Delete removes a credential record. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, uri string) error
}
