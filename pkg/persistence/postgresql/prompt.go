package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

// PromptRepository handles prompt-related database operations.
type PromptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *PromptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	query := `
		INSERT INTO prompts (id, text, status, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, prompt.ID, prompt.Text, prompt.Status, prompt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert prompt: %w", err)
	}

	return nil
}

func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	query := `
		SELECT id, text, status, created_at
		FROM prompts
		WHERE id = $1
	`

	var prompt models.Prompt

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&prompt.ID, &prompt.Text, &prompt.Status, &prompt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("GetByID", "prompt", id, persistence.ErrPromptNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query prompt: %w", err)
	}

	return &prompt, nil
}

func (r *PromptRepository) List(ctx context.Context) ([]*models.Prompt, error) {
	query := `
		SELECT id, text, status, created_at
		FROM prompts
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	prompts := make([]*models.Prompt, 0)

	for rows.Next() {
		var prompt models.Prompt

		err = rows.Scan(&prompt.ID, &prompt.Text, &prompt.Status, &prompt.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}

		prompts = append(prompts, &prompt)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}

	return prompts, nil
}

func (r *PromptRepository) UpdateStatus(ctx context.Context, id string, status models.PromptStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE prompts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update prompt status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateStatus", "prompt", id, persistence.ErrPromptNotFound)
	}

	return nil
}
