// Package postgresql provides PostgreSQL persistence for prompts, sessions,
// status records and pins.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/pinfeed/curator/pkg/persistence"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	promptRepo  *PromptRepository
	sessionRepo *SessionRepository
	statusRepo  *StatusRepository
	pinRepo     *PinRepository
}

// NewPersistence opens the database, runs migrations and wires repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator := newMigrator(logger, database, migrations())

	err = migrator.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		promptRepo:  &PromptRepository{db: database, logger: logger},
		sessionRepo: &SessionRepository{db: database, logger: logger},
		statusRepo:  &StatusRepository{db: database, logger: logger},
		pinRepo:     &PinRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Prompts() persistence.PromptRepository {
	return p.promptRepo
}

func (p *Persistence) Sessions() persistence.SessionRepository {
	return p.sessionRepo
}

func (p *Persistence) StatusRecords() persistence.StatusRepository {
	return p.statusRepo
}

func (p *Persistence) Pins() persistence.PinRepository {
	return p.pinRepo
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
