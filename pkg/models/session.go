package models

import "time"

// Stage names the pipeline phase a session records.
type Stage string

const (
	StageWarmup     Stage = "warmup"
	StageCollection Stage = "collection"
	StageEnrichment Stage = "enrichment"
	StageEvaluation Stage = "evaluation"
)

// SessionStatus represents the outcome of a phase session.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusReady   SessionStatus = "ready"
	SessionStatusFailed  SessionStatus = "failed"
)

// Session is the execution record for one (prompt, phase) pair: a status
// plus ordered log lines. Collection and enrichment share a session; the
// stage field is advanced when enrichment begins.
type Session struct {
	ID        string        `json:"id"`
	PromptID  string        `json:"prompt_id"`
	Stage     Stage         `json:"stage"`
	Status    SessionStatus `json:"status"`
	Log       []string      `json:"log"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
