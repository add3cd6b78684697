// Package web provides the HTTP surface of the curation service.
package web

import (
	"time"

	"github.com/pinfeed/curator/pkg/models"
)

// recentLogLines caps the per-session log excerpt in status responses.
const recentLogLines = 3

// CreatePromptRequest is the body for submitting a new prompt.
type CreatePromptRequest struct {
	Text string `json:"text" validate:"required,min=3"`
}

// CreatePromptResponse acknowledges an accepted prompt. The run
// continues in the background; progress is served by the status and
// live endpoints.
type CreatePromptResponse struct {
	PromptID string              `json:"prompt_id"`
	Status   models.PromptStatus `json:"status"`
	Message  string              `json:"message"`
}

// SessionSummary is the per-session excerpt included in status
// responses: the stage, outcome and the last few log lines.
type SessionSummary struct {
	ID        string               `json:"id"`
	Stage     models.Stage         `json:"stage"`
	Status    models.SessionStatus `json:"status"`
	RecentLog []string             `json:"recent_log"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// StatusResponse combines the prompt, its progress snapshot and
// session excerpts.
type StatusResponse struct {
	PromptID      string              `json:"prompt_id"`
	Text          string              `json:"text"`
	PromptStatus  models.PromptStatus `json:"prompt_status"`
	CreatedAt     time.Time           `json:"created_at"`
	CurrentPhase  models.Stage        `json:"current_phase,omitempty"`
	OverallStatus models.RunStatus    `json:"overall_status"`
	CurrentStep   int                 `json:"current_step"`
	TotalSteps    int                 `json:"total_steps"`
	Progress      float64             `json:"progress"`
	Messages      []string            `json:"messages"`
	StartedAt     time.Time           `json:"started_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	Sessions      []SessionSummary    `json:"sessions"`
}

// ResultsResponse returns the curated pins with aggregate counts.
type ResultsResponse struct {
	PromptID string                `json:"prompt_id"`
	Summary  models.ResultsSummary `json:"summary"`
	Pins     []*models.Pin         `json:"pins"`
}

// UpdatePinStatusRequest overrides a pin's verdict by hand.
type UpdatePinStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved disqualified"`
}

// TransformSessionSummary trims a session to its status excerpt.
func TransformSessionSummary(session *models.Session) SessionSummary {
	recent := session.Log
	if len(recent) > recentLogLines {
		recent = recent[len(recent)-recentLogLines:]
	}

	return SessionSummary{
		ID:        session.ID,
		Stage:     session.Stage,
		Status:    session.Status,
		RecentLog: recent,
		UpdatedAt: session.UpdatedAt,
	}
}
