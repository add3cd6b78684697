// Package sessionlog records per-phase execution sessions and their
// append-only log lines.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

// Log wraps the session repository with the lifecycle rules phases rely
// on: sessions start pending, log lines carry a timestamp prefix, and a
// session reused across phases changes stage without losing history.
type Log struct {
	repo   persistence.SessionRepository
	logger *slog.Logger
}

func NewLog(repo persistence.SessionRepository, logger *slog.Logger) *Log {
	return &Log{repo: repo, logger: logger}
}

// Create opens a new pending session for a prompt at the given stage.
func (l *Log) Create(ctx context.Context, promptID string, stage models.Stage) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		PromptID:  promptID,
		Stage:     stage,
		Status:    models.SessionStatusPending,
		Log:       []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := l.repo.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s session for prompt %s: %w", stage, promptID, err)
	}

	return session, nil
}

// Append adds a timestamped line to the session log.
func (l *Log) Append(ctx context.Context, sessionID, message string) error {
	line := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), message)

	err := l.repo.AppendLog(ctx, sessionID, line)
	if err != nil {
		return fmt.Errorf("failed to append to session %s: %w", sessionID, err)
	}

	l.logger.DebugContext(ctx, "Session log entry", "session_id", sessionID, "message", message)

	return nil
}

// SetStatus marks the session ready or failed.
func (l *Log) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	return l.repo.SetStatus(ctx, sessionID, status)
}

// SetStage moves a session to a later stage, keeping its log.
func (l *Log) SetStage(ctx context.Context, sessionID string, stage models.Stage) error {
	return l.repo.SetStage(ctx, sessionID, stage)
}

func (l *Log) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return l.repo.GetByID(ctx, sessionID)
}

// ListByPrompt returns all sessions recorded for a prompt, oldest first.
func (l *Log) ListByPrompt(ctx context.Context, promptID string) ([]*models.Session, error) {
	return l.repo.ListByPrompt(ctx, promptID)
}
