package model

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to distinct admin error categories.
var (
	// ErrFormNotFound indicates the referenced form does not exist.
	ErrFormNotFound = errors.New("form not found")
	// ErrTaskNotFound indicates the referenced publish task does not exist.
	ErrTaskNotFound = errors.New("publish task not found")
	// ErrCredentialNotFound indicates a task references a credential record
	// that no longer exists.
	ErrCredentialNotFound = errors.New("credential record not found")
	// ErrQuotaExceeded indicates the storage layer is exhausted. It is
	// reported to callers as its own category, never silently swallowed.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// CredentialsError indicates the destination rejected the stored
// credentials. The task runner catches it and drives the task status to
// bad_credentials; recovery requires an operator restart or key rotation.
type CredentialsError struct {
	Detail string
}

func (e *CredentialsError) Error() string {
	return "destination rejected credentials: " + e.Detail
}

// IsCredentialsError reports whether err is, or wraps, a CredentialsError.
func IsCredentialsError(err error) bool {
	var ce *CredentialsError
	return errors.As(err, &ce)
}

// PublicationError is any other destination-side delivery failure:
// network error, malformed response, non-success status code. It is
// surfaced and logged but does not change task status; the submission is
// retried on the next sweep.
type PublicationError struct {
	Detail string
	Err    error
}

func (e *PublicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publication failed: %s: %v", e.Detail, e.Err)
	}
	return "publication failed: " + e.Detail
}

func (e *PublicationError) Unwrap() error { return e.Err }

// IsPublicationError reports whether err is, or wraps, a PublicationError.
func IsPublicationError(err error) bool {
	var pe *PublicationError
	return errors.As(err, &pe)
}

// IllegalTransitionError rejects an operator request that is not legal
// from the task's current status. It signals an operator mistake, not a
// system fault, and is raised before any remote call is made.
type IllegalTransitionError struct {
	From TaskStatus
	Op   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s publisher in status %q", e.Op, e.From)
}

// IsIllegalTransition reports whether err is, or wraps, an
// IllegalTransitionError.
func IsIllegalTransition(err error) bool {
	var te *IllegalTransitionError
	return errors.As(err, &te)
}
