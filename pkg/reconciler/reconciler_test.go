package reconciler

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence/file"
	"github.com/pinfeed/curator/pkg/status"
)

func TestStartRejectsBadSchedule(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	tracker := status.NewTracker(store.StatusRecords(), slog.Default())

	r := NewReconciler(tracker, slog.Default())

	err := r.Start("not a schedule")
	assert.Error(t, err)
}

func TestSweepRemovesDuplicates(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	repo := store.StatusRecords()
	tracker := status.NewTracker(repo, slog.Default())
	ctx := context.Background()
	promptID := uuid.New().String()

	for range 3 {
		require.NoError(t, repo.Insert(ctx, &models.StatusRecord{
			ID:       uuid.New().String(),
			PromptID: promptID,
			Messages: []string{},
		}))
	}

	r := NewReconciler(tracker, slog.Default())
	r.sweep()

	records, err := repo.ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
