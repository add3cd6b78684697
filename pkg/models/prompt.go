// Package models defines the core domain models for feed curation runs.
package models

import "time"

// PromptStatus represents the lifecycle state of a curation run.
type PromptStatus string

const (
	PromptStatusPending   PromptStatus = "pending"   // Accepted, not started yet
	PromptStatusRunning   PromptStatus = "running"   // Background run in progress
	PromptStatusCompleted PromptStatus = "completed" // All phases succeeded
	PromptStatusError     PromptStatus = "error"     // A phase failed or the run crashed
)

// Prompt is one end-to-end curation run, created per user request.
// The orchestrator is its only writer after creation.
type Prompt struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"       validate:"required,min=3"`
	Status    PromptStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
