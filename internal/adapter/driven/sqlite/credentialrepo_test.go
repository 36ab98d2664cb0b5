package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecretKey is a fixed 32-byte AES-256 key for repo tests.
var testSecretKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCredentialRepo(t *testing.T) *CredentialRepo {
	t.Helper()
	return NewCredentialRepo(setupTestDB(t), testSecretKey)
}

func makeCredential(uri string) model.Credential {
	return model.Credential{
		URI:        uri,
		Kind:       model.KindNetvote,
		OwnerEmail: "researcher@example.org",
		APIKey:     "nv-api-key",
		Network:    model.NetworkRopsten,
		UpdatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestCredentialRepo_CreateAndGet(t *testing.T) {
	credRepo := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, credRepo.Create(ctx, makeCredential("cred-1")))

	got, err := credRepo.Get(ctx, "cred-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "cred-1", got.URI)
	assert.Equal(t, model.KindNetvote, got.Kind)
	assert.Equal(t, "researcher@example.org", got.OwnerEmail)
	assert.Equal(t, "nv-api-key", got.APIKey)
	assert.Equal(t, model.NetworkRopsten, got.Network)
	assert.Empty(t, got.SubmitKey)
	assert.Empty(t, got.RemoteFormID)
}

func TestCredentialRepo_SecretsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	credRepo := NewCredentialRepo(db, testSecretKey)
	ctx := context.Background()

	cred := makeCredential("cred-1")
	cred.SubmitKey = "submit-key-1"
	require.NoError(t, credRepo.Create(ctx, cred))

	// The stored columns must not contain the plaintext secrets.
	var apiKey, submitKey string
	err := db.Reader.QueryRowContext(ctx,
		`SELECT api_key, submit_key FROM credentials WHERE uri = ?`, "cred-1",
	).Scan(&apiKey, &submitKey)
	require.NoError(t, err)
	assert.NotEqual(t, "nv-api-key", apiKey)
	assert.NotEqual(t, "submit-key-1", submitKey)
	assert.NotContains(t, apiKey, "nv-api-key")
	assert.NotContains(t, submitKey, "submit-key-1")

	got, err := credRepo.Get(ctx, "cred-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "nv-api-key", got.APIKey)
	assert.Equal(t, "submit-key-1", got.SubmitKey)
}

func TestCredentialRepo_KeyNotSet(t *testing.T) {
	credRepo := NewCredentialRepo(setupTestDB(t), nil)
	ctx := context.Background()

	err := credRepo.Create(ctx, makeCredential("cred-1"))
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = credRepo.Get(ctx, "cred-1")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	err = credRepo.Update(ctx, makeCredential("cred-1"))
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_Get_NotFound(t *testing.T) {
	credRepo := newTestCredentialRepo(t)

	got, err := credRepo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepo_Update_FillsRegistrationFields(t *testing.T) {
	credRepo := newTestCredentialRepo(t)
	ctx := context.Background()

	cred := makeCredential("cred-1")
	require.NoError(t, credRepo.Create(ctx, cred))

	cred.SubmitKey = "submit-key-1"
	cred.RemoteFormID = "remote-42"
	cred.UpdatedAt = cred.UpdatedAt.Add(time.Minute)
	require.NoError(t, credRepo.Update(ctx, cred))

	got, err := credRepo.Get(ctx, "cred-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "submit-key-1", got.SubmitKey)
	assert.Equal(t, "remote-42", got.RemoteFormID)
}

func TestCredentialRepo_Update_NotFound(t *testing.T) {
	credRepo := newTestCredentialRepo(t)

	err := credRepo.Update(context.Background(), makeCredential("missing"))
	require.ErrorIs(t, err, model.ErrCredentialNotFound)
}

func TestCredentialRepo_Delete(t *testing.T) {
	credRepo := newTestCredentialRepo(t)
	ctx := context.Background()

	require.NoError(t, credRepo.Create(ctx, makeCredential("cred-1")))
	require.NoError(t, credRepo.Delete(ctx, "cred-1"))

	got, err := credRepo.Get(ctx, "cred-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error.
	require.NoError(t, credRepo.Delete(ctx, "cred-1"))
}
