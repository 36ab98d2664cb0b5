package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port
// interface. Each publish task owns exactly one credential row; the
// destination kind decides which columns carry meaning. The secret columns
// (api_key, submit_key) are encrypted with AES-256-GCM before write and
// decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
// key must be 32 bytes for AES-256-GCM, or nil to disable credential
// storage (writes and reads will return driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Create inserts a new credential record.
func (r *CredentialRepo) Create(ctx context.Context, cred model.Credential) error {
	apiKey, err := r.encrypt(cred.APIKey)
	if err != nil {
		return err
	}
	submitKey, err := r.encrypt(cred.SubmitKey)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO credentials (
			uri, kind, owner_email, api_key, submit_key, remote_form_id,
			network, endpoint, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Writer.ExecContext(ctx, query,
		cred.URI, string(cred.Kind), cred.OwnerEmail, apiKey,
		submitKey, cred.RemoteFormID, string(cred.Network),
		cred.Endpoint, cred.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("create credential %s: %w", cred.URI, err))
	}

	return nil
}

// Get retrieves a credential by URI. Returns (nil, nil) if not found.
func (r *CredentialRepo) Get(ctx context.Context, uri string) (*model.Credential, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `
		SELECT uri, kind, owner_email, api_key, submit_key, remote_form_id,
			network, endpoint, updated_at
		FROM credentials WHERE uri = ?
	`

	var cred model.Credential
	var kind, network, updatedAt string
	var apiKey, submitKey string

	err := r.db.Reader.QueryRowContext(ctx, query, uri).Scan(
		&cred.URI, &kind, &cred.OwnerEmail, &apiKey, &submitKey,
		&cred.RemoteFormID, &network, &cred.Endpoint, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", uri, err)
	}

	cred.APIKey, err = r.decrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key for credential %s: %w", uri, err)
	}
	cred.SubmitKey, err = r.decrypt(submitKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt submit key for credential %s: %w", uri, err)
	}

	cred.Kind = model.DestinationKind(kind)
	cred.Network = model.Network(network)

	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for credential %s: %w", uri, err)
	}

	return &cred, nil
}

// Update persists the mutable fields of an existing credential.
// Returns ErrCredentialNotFound if no credential exists with the given URI.
func (r *CredentialRepo) Update(ctx context.Context, cred model.Credential) error {
	apiKey, err := r.encrypt(cred.APIKey)
	if err != nil {
		return err
	}
	submitKey, err := r.encrypt(cred.SubmitKey)
	if err != nil {
		return err
	}

	const query = `
		UPDATE credentials
		SET api_key = ?, submit_key = ?, remote_form_id = ?, updated_at = ?
		WHERE uri = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		apiKey, submitKey, cred.RemoteFormID, cred.UpdatedAt.UTC(), cred.URI,
	)
	if err != nil {
		return mapWriteErr(fmt.Errorf("update credential %s: %w", cred.URI, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential %s: rows affected: %w", cred.URI, err)
	}
	if affected == 0 {
		return fmt.Errorf("update credential %s: %w", cred.URI, model.ErrCredentialNotFound)
	}

	return nil
}

// Delete removes a credential. Deleting a missing credential is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, uri string) error {
	const query = `DELETE FROM credentials WHERE uri = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, uri)
	if err != nil {
		return fmt.Errorf("delete credential %s: %w", uri, err)
	}

	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
