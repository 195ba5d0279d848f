package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_UnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("create: %w", NewValidationError("custom_alias", "too short", ErrInvalidAlias))

	assert.True(t, errors.Is(err, ErrInvalidAlias))
	assert.False(t, errors.Is(err, ErrInvalidURL))
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "custom_alias", GetValidationError(err).Field)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sentinel", ErrNotFound, CodeNotFound},
		{"wrapped sentinel", fmt.Errorf("resolve abc: %w", ErrExpired), CodeExpired},
		{"validation", NewValidationError("original_url", "bad", ErrInvalidURL), CodeInvalidURL},
		{"storage", NewStorageError("failed to get link", errors.New("conn reset")), CodeStorage},
		{"foreign", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestBusinessError_Error(t *testing.T) {
	withCause := NewStorageError("failed to delete link", errors.New("driver: bad connection"))
	assert.Equal(t, "failed to delete link: driver: bad connection", withCause.Error())
	assert.Equal(t, "link not found", ErrNotFound.Error())
}
