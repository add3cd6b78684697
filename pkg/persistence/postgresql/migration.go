package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

// migrator applies schema migrations in version order, recording each
// applied version in schema_migrations.
type migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations map[int]string
}

func newMigrator(logger *slog.Logger, db *sql.DB, migrations map[int]string) *migrator {
	return &migrator{db: db, logger: logger, migrations: migrations}
}

func (m *migrator) Run(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current sql.NullInt64

	err = m.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	sort.Ints(versions)

	for _, version := range versions {
		if current.Valid && int64(version) <= current.Int64 {
			continue
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}

		_, err = tx.ExecContext(ctx, m.migrations[version])
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE prompts (
				id UUID PRIMARY KEY,
				text TEXT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'error')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_prompts_status ON prompts(status);
			CREATE INDEX idx_prompts_created_at ON prompts(created_at);

			CREATE TABLE sessions (
				id UUID PRIMARY KEY,
				prompt_id UUID NOT NULL,
				stage VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				log JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sessions_prompt_id ON sessions(prompt_id);

			-- One live record per prompt, enforced at the store level. The
			-- tracker's reconciliation pass remains as a defensive fallback
			-- for stores without this constraint.
			CREATE TABLE status_records (
				id UUID PRIMARY KEY,
				prompt_id UUID NOT NULL UNIQUE,
				overall_status VARCHAR(50) NOT NULL,
				current_step INTEGER NOT NULL DEFAULT 0,
				total_steps INTEGER NOT NULL DEFAULT 0,
				progress DOUBLE PRECISION NOT NULL DEFAULT 0,
				messages JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE pins (
				id UUID PRIMARY KEY,
				prompt_id UUID NOT NULL,
				image_url TEXT NOT NULL,
				pin_url TEXT NOT NULL,
				title TEXT,
				description TEXT,
				match_score DOUBLE PRECISION,
				status VARCHAR(50) NOT NULL,
				explanation TEXT,
				collected_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_pins_prompt_id ON pins(prompt_id);
			CREATE INDEX idx_pins_status ON pins(status);
		`,
	}
}
