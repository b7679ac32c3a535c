// internal/models/errors_test.go
package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorMatchesByKind(t *testing.T) {
	err := NewNotFound("address", "a1")
	wrapped := fmt.Errorf("remove address: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrLimitReached))
	assert.Equal(t, "address.not_found", err.Key)

	de, ok := AsDomainError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, de.Kind)
}

func TestWrapCollaborator(t *testing.T) {
	assert.Nil(t, WrapCollaborator("store", "put", nil))

	io := errors.New("connection reset")
	err := WrapCollaborator("store", "put", io)
	assert.True(t, IsCollaboratorError(err))
	assert.ErrorIs(t, err, io)
	assert.Contains(t, err.Error(), "store: put")

	again := WrapCollaborator("payment", "confirm", err)
	assert.Same(t, err, again)

	domain := NewValidationError("cart.quantity", "bad")
	assert.Same(t, error(domain), WrapCollaborator("store", "put", domain))
	assert.False(t, IsCollaboratorError(domain))
}
