// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPromptNotFound indicates a prompt was not found by the given identifier.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrSessionNotFound indicates a session was not found by the given identifier.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStatusNotFound indicates no status record exists for the given prompt.
	ErrStatusNotFound = errors.New("status record not found")

	// ErrStatusAlreadyExists indicates a status record already exists for the prompt.
	ErrStatusAlreadyExists = errors.New("status record already exists")

	// ErrPinNotFound indicates a pin was not found by the given identifier.
	ErrPinNotFound = errors.New("pin not found")
)

// StoreError wraps storage errors with the operation and entity context.
type StoreError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save")
	Entity   string // Entity kind (prompt, session, status, pin)
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new storage error with context.
func NewStoreError(op, entity, entityID string, err error) *StoreError {
	return &StoreError{
		Op:       op,
		Entity:   entity,
		EntityID: entityID,
		Err:      err,
	}
}

// IsPromptNotFound checks if an error indicates a prompt was not found.
func IsPromptNotFound(err error) bool {
	return errors.Is(err, ErrPromptNotFound)
}

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsStatusNotFound checks if an error indicates a status record was not found.
func IsStatusNotFound(err error) bool {
	return errors.Is(err, ErrStatusNotFound)
}

// IsStatusAlreadyExists checks if an error indicates a duplicate status insert.
func IsStatusAlreadyExists(err error) bool {
	return errors.Is(err, ErrStatusAlreadyExists)
}

// IsPinNotFound checks if an error indicates a pin was not found.
func IsPinNotFound(err error) bool {
	return errors.Is(err, ErrPinNotFound)
}
