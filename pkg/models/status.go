package models

import "time"

// RunStatus is the overall status carried by a StatusRecord.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StatusRecord is the single progress record for one prompt. Step counting
// and the percentage are independent signals: every message appended bumps
// CurrentStep (raising TotalSteps when it falls behind), while Progress is
// only ever overwritten by explicit hints.
type StatusRecord struct {
	ID            string     `json:"id"`
	PromptID      string     `json:"prompt_id"`
	OverallStatus RunStatus  `json:"overall_status"`
	CurrentStep   int        `json:"current_step"`
	TotalSteps    int        `json:"total_steps"`
	Progress      float64    `json:"progress"`
	Messages      []string   `json:"messages"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// StatusSnapshot is the read-only projection of a StatusRecord served to
// status queries and observer catch-up.
type StatusSnapshot struct {
	PromptID      string     `json:"prompt_id"`
	OverallStatus RunStatus  `json:"overall_status"`
	CurrentStep   int        `json:"current_step"`
	TotalSteps    int        `json:"total_steps"`
	Progress      float64    `json:"progress"`
	Messages      []string   `json:"messages"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Snapshot copies the record into its query projection.
func (r *StatusRecord) Snapshot() StatusSnapshot {
	messages := make([]string, len(r.Messages))
	copy(messages, r.Messages)

	return StatusSnapshot{
		PromptID:      r.PromptID,
		OverallStatus: r.OverallStatus,
		CurrentStep:   r.CurrentStep,
		TotalSteps:    r.TotalSteps,
		Progress:      r.Progress,
		Messages:      messages,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}
