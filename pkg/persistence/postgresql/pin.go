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

// PinRepository handles pin database operations.
type PinRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *PinRepository) CreateBatch(ctx context.Context, pins []*models.Pin) error {
	if len(pins) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin pin batch: %w", err)
	}

	query := `
		INSERT INTO pins
			(id, prompt_id, image_url, pin_url, title, description, match_score, status, explanation, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, pin := range pins {
		_, err = tx.ExecContext(ctx, query,
			pin.ID, pin.PromptID, pin.ImageURL, pin.PinURL,
			nullString(pin.Title), nullString(pin.Description),
			pin.MatchScore, pin.Status, nullString(pin.Explanation), pin.CollectedAt)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to insert pin %s: %w", pin.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit pin batch: %w", err)
	}

	return nil
}

func (r *PinRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	query := selectPins + ` WHERE id = $1`

	pin, err := r.scanPin(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("GetByID", "pin", id, persistence.ErrPinNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query pin: %w", err)
	}

	return pin, nil
}

func (r *PinRepository) ListByPrompt(ctx context.Context, promptID string) ([]*models.Pin, error) {
	query := selectPins + ` WHERE prompt_id = $1 ORDER BY collected_at ASC`

	rows, err := r.db.QueryContext(ctx, query, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	pins := make([]*models.Pin, 0)

	for rows.Next() {
		pin, err := r.scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}

		pins = append(pins, pin)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating pins: %w", err)
	}

	return pins, nil
}

func (r *PinRepository) Save(ctx context.Context, pin *models.Pin) error {
	query := `
		UPDATE pins
		SET title = $2
		  , description = $3
		  , match_score = $4
		  , status = $5
		  , explanation = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		pin.ID, nullString(pin.Title), nullString(pin.Description),
		pin.MatchScore, pin.Status, nullString(pin.Explanation))
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Save", "pin", pin.ID, persistence.ErrPinNotFound)
	}

	return nil
}

func (r *PinRepository) CountByPrompt(ctx context.Context, promptID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pins WHERE prompt_id = $1`, promptID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pins: %w", err)
	}

	return count, nil
}

const selectPins = `
	SELECT id, prompt_id, image_url, pin_url, title, description, match_score, status, explanation, collected_at
	FROM pins
`

func (r *PinRepository) scanPin(row rowScanner) (*models.Pin, error) {
	var (
		pin         models.Pin
		title       sql.NullString
		description sql.NullString
		explanation sql.NullString
		matchScore  sql.NullFloat64
	)

	err := row.Scan(&pin.ID, &pin.PromptID, &pin.ImageURL, &pin.PinURL,
		&title, &description, &matchScore, &pin.Status, &explanation, &pin.CollectedAt)
	if err != nil {
		return nil, err
	}

	pin.Title = title.String
	pin.Description = description.String
	pin.Explanation = explanation.String

	if matchScore.Valid {
		score := matchScore.Float64
		pin.MatchScore = &score
	}

	return &pin, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
