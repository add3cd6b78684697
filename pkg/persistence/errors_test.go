package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorWrapsSentinel(t *testing.T) {
	err := NewStoreError("GetByID", "prompt", "p1", ErrPromptNotFound)

	assert.True(t, IsPromptNotFound(err))
	assert.True(t, errors.Is(err, ErrPromptNotFound))
	assert.Contains(t, err.Error(), "GetByID")
	assert.Contains(t, err.Error(), "p1")
}

func TestStoreErrorThroughFmtWrap(t *testing.T) {
	inner := NewStoreError("Insert", "status", "s1", ErrStatusAlreadyExists)
	wrapped := fmt.Errorf("ensuring record: %w", inner)

	assert.True(t, IsStatusAlreadyExists(wrapped))
	assert.False(t, IsStatusNotFound(wrapped))
}

func TestIsHelpersRejectUnrelatedErrors(t *testing.T) {
	err := errors.New("boom")

	assert.False(t, IsPromptNotFound(err))
	assert.False(t, IsSessionNotFound(err))
	assert.False(t, IsStatusNotFound(err))
	assert.False(t, IsPinNotFound(err))
}
