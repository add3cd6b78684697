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

// StatusRepository handles progress record database operations. The
// prompt_id unique constraint makes Insert an atomic check-then-insert:
// a losing racer gets ErrStatusAlreadyExists instead of a duplicate row.
type StatusRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *StatusRepository) Insert(ctx context.Context, record *models.StatusRecord) error {
	messages, err := marshalMessages(record.Messages)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO status_records
			(id, prompt_id, overall_status, current_step, total_steps, progress, messages, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (prompt_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, record.PromptID, record.OverallStatus,
		record.CurrentStep, record.TotalSteps, record.Progress,
		messages, record.StartedAt, record.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert status record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Insert", "status", record.PromptID, persistence.ErrStatusAlreadyExists)
	}

	return nil
}

func (r *StatusRepository) GetByPrompt(ctx context.Context, promptID string) (*models.StatusRecord, error) {
	query := `
		SELECT id, prompt_id, overall_status, current_step, total_steps, progress, messages, started_at, completed_at
		FROM status_records
		WHERE prompt_id = $1
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, promptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("GetByPrompt", "status", promptID, persistence.ErrStatusNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query status record: %w", err)
	}

	return record, nil
}

func (r *StatusRepository) ListByPrompt(ctx context.Context, promptID string) ([]*models.StatusRecord, error) {
	record, err := r.GetByPrompt(ctx, promptID)
	if persistence.IsStatusNotFound(err) {
		return []*models.StatusRecord{}, nil
	}

	if err != nil {
		return nil, err
	}

	return []*models.StatusRecord{record}, nil
}

func (r *StatusRepository) Save(ctx context.Context, record *models.StatusRecord) error {
	messages, err := marshalMessages(record.Messages)
	if err != nil {
		return err
	}

	query := `
		UPDATE status_records
		SET overall_status = $2
		  , current_step = $3
		  , total_steps = $4
		  , progress = $5
		  , messages = $6
		  , completed_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, record.OverallStatus, record.CurrentStep, record.TotalSteps,
		record.Progress, messages, record.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update status record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Save", "status", record.ID, persistence.ErrStatusNotFound)
	}

	return nil
}

func (r *StatusRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM status_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status record: %w", err)
	}

	return nil
}

func (r *StatusRepository) PromptIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT prompt_id FROM status_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status prompt ids: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	ids := make([]string, 0)

	for rows.Next() {
		var id string

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating prompt ids: %w", err)
	}

	return ids, nil
}

func (r *StatusRepository) scanRecord(row rowScanner) (*models.StatusRecord, error) {
	var (
		record      models.StatusRecord
		messages    []byte
		completedAt sql.NullTime
	)

	err := row.Scan(&record.ID, &record.PromptID, &record.OverallStatus,
		&record.CurrentStep, &record.TotalSteps, &record.Progress,
		&messages, &record.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		err = json.Unmarshal(messages, &record.Messages)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal status messages: %w", err)
		}
	}

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	return &record, nil
}

func marshalMessages(messages []string) ([]byte, error) {
	if len(messages) == 0 {
		return []byte("[]"), nil
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status messages: %w", err)
	}

	return data, nil
}
