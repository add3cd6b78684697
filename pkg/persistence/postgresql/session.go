package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

// SessionRepository handles phase session database operations.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	logData, err := json.Marshal(session.Log)
	if err != nil {
		return fmt.Errorf("failed to marshal session log: %w", err)
	}

	if len(session.Log) == 0 {
		logData = []byte("[]")
	}

	query := `
		INSERT INTO sessions (id, prompt_id, stage, status, log, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		session.ID, session.PromptID, session.Stage, session.Status,
		logData, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, prompt_id, stage, status, log, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("GetByID", "session", id, persistence.ErrSessionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) ListByPrompt(ctx context.Context, promptID string) ([]*models.Session, error) {
	query := `
		SELECT id, prompt_id, stage, status, log, created_at, updated_at
		FROM sessions
		WHERE prompt_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) AppendLog(ctx context.Context, id, line string) error {
	query := `
		UPDATE sessions
		SET log = log || jsonb_build_array($2::text), updated_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, "AppendLog", id, query, id, line)
}

func (r *SessionRepository) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	query := `UPDATE sessions SET status = $2, updated_at = NOW() WHERE id = $1`

	return r.exec(ctx, "SetStatus", id, query, id, status)
}

func (r *SessionRepository) SetStage(ctx context.Context, id string, stage models.Stage) error {
	query := `UPDATE sessions SET stage = $2, updated_at = NOW() WHERE id = $1`

	return r.exec(ctx, "SetStage", id, query, id, stage)
}

func (r *SessionRepository) exec(ctx context.Context, op, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError(op, "session", id, persistence.ErrSessionNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepository) scanSession(row rowScanner) (*models.Session, error) {
	var (
		session models.Session
		logData []byte
	)

	err := row.Scan(&session.ID, &session.PromptID, &session.Stage, &session.Status,
		&logData, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(logData) > 0 {
		err = json.Unmarshal(logData, &session.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal session log: %w", err)
		}
	}

	return &session, nil
}
