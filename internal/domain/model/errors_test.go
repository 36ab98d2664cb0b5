package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategoryMatchers(t *testing.T) {
	credErr := &CredentialsError{Detail: "token revoked"}
	pubErr := &PublicationError{Detail: "endpoint down"}
	transErr := &IllegalTransitionError{From: StatusActive, Op: "restart"}

	assert.True(t, IsCredentialsError(credErr))
	assert.False(t, IsCredentialsError(pubErr))
	assert.False(t, IsCredentialsError(transErr))

	assert.True(t, IsPublicationError(pubErr))
	assert.False(t, IsPublicationError(credErr))

	assert.True(t, IsIllegalTransition(transErr))
	assert.False(t, IsIllegalTransition(pubErr))
}

func TestErrorMatchers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sweep task: %w", &CredentialsError{Detail: "revoked"})
	assert.True(t, IsCredentialsError(wrapped))

	// PublicationError carrying a cause still matches its own category
	// through Unwrap chains.
	outer := fmt.Errorf("deliver: %w", &PublicationError{Detail: "pin failed", Err: fmt.Errorf("io")})
	assert.True(t, IsPublicationError(outer))
}
