package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pinfeed/curator/pkg/persistence"
	"github.com/pinfeed/curator/pkg/persistence/file"
	"github.com/pinfeed/curator/pkg/persistence/postgresql"
)

// NewPersistence creates a store for the given URL. Postgres URLs get
// the SQL store with its uniqueness guarantees; anything else is
// treated as a file path for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
