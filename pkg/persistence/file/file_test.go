package file

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

func newTestStore(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestPromptRepository_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prompt := &models.Prompt{
		ID:        uuid.New().String(),
		Text:      "cozy industrial home office",
		Status:    models.PromptStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.Prompts().Create(ctx, prompt))

	got, err := store.Prompts().GetByID(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Equal(t, prompt.Text, got.Text)
	assert.Equal(t, models.PromptStatusPending, got.Status)

	require.NoError(t, store.Prompts().UpdateStatus(ctx, prompt.ID, models.PromptStatusRunning))

	got, err = store.Prompts().GetByID(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PromptStatusRunning, got.Status)
}

func TestPromptRepository_GetMissingReturnsTypedError(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Prompts().GetByID(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, persistence.IsPromptNotFound(err))
}

func TestSessionRepository_ListByPromptOrdersByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	promptID := uuid.New().String()

	base := time.Now().UTC()
	stages := []models.Stage{models.StageWarmup, models.StageCollection, models.StageEvaluation}

	for i, stage := range stages {
		session := &models.Session{
			ID:        uuid.New().String(),
			PromptID:  promptID,
			Stage:     stage,
			Status:    models.SessionStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Sessions().Create(ctx, session))
	}

	// Session for another prompt must not leak into the listing.
	other := &models.Session{
		ID:        uuid.New().String(),
		PromptID:  uuid.New().String(),
		Stage:     models.StageWarmup,
		CreatedAt: base,
	}
	require.NoError(t, store.Sessions().Create(ctx, other))

	sessions, err := store.Sessions().ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	for i, stage := range stages {
		assert.Equal(t, stage, sessions[i].Stage)
	}
}

func TestSessionRepository_AppendLogAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := &models.Session{
		ID:        uuid.New().String(),
		PromptID:  uuid.New().String(),
		Stage:     models.StageCollection,
		Status:    models.SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Sessions().Create(ctx, session))

	require.NoError(t, store.Sessions().AppendLog(ctx, session.ID, "collecting pins"))
	require.NoError(t, store.Sessions().AppendLog(ctx, session.ID, "found 3 pins"))
	require.NoError(t, store.Sessions().SetStage(ctx, session.ID, models.StageEnrichment))
	require.NoError(t, store.Sessions().SetStatus(ctx, session.ID, models.SessionStatusReady))

	got, err := store.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"collecting pins", "found 3 pins"}, got.Log)
	assert.Equal(t, models.StageEnrichment, got.Stage)
	assert.Equal(t, models.SessionStatusReady, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStatusRepository_DuplicatesAreListed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	promptID := uuid.New().String()

	first := &models.StatusRecord{
		ID:        uuid.New().String(),
		PromptID:  promptID,
		Messages:  []string{"a", "b"},
		StartedAt: time.Now().UTC(),
	}
	second := &models.StatusRecord{
		ID:        uuid.New().String(),
		PromptID:  promptID,
		Messages:  []string{"a"},
		StartedAt: time.Now().UTC(),
	}

	require.NoError(t, store.StatusRecords().Insert(ctx, first))
	require.NoError(t, store.StatusRecords().Insert(ctx, second))

	records, err := store.StatusRecords().ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, store.StatusRecords().Delete(ctx, second.ID))

	records, err = store.StatusRecords().ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].ID)

	promptIDs, err := store.StatusRecords().PromptIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{promptID}, promptIDs)
}

func TestStatusRepository_GetByPromptMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.StatusRecords().GetByPrompt(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsStatusNotFound(err))
}

func TestPinRepository_BatchAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	promptID := uuid.New().String()

	base := time.Now().UTC()
	pins := []*models.Pin{
		{
			ID:          uuid.New().String(),
			PromptID:    promptID,
			ImageURL:    "https://img.example/1.jpg",
			PinURL:      "https://feed.example/pin/1",
			Status:      models.PinStatusReady,
			CollectedAt: base,
		},
		{
			ID:          uuid.New().String(),
			PromptID:    promptID,
			ImageURL:    "https://img.example/2.jpg",
			PinURL:      "https://feed.example/pin/2",
			Status:      models.PinStatusReady,
			CollectedAt: base.Add(time.Second),
		},
	}

	require.NoError(t, store.Pins().CreateBatch(ctx, pins))

	count, err := store.Pins().CountByPrompt(ctx, promptID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	listed, err := store.Pins().ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, pins[0].ID, listed[0].ID)

	scored := 0.82
	listed[0].MatchScore = &scored
	listed[0].Status = models.PinStatusApproved
	require.NoError(t, store.Pins().Save(ctx, listed[0]))

	got, err := store.Pins().GetByID(ctx, listed[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.MatchScore)
	assert.InDelta(t, 0.82, *got.MatchScore, 1e-9)
	assert.Equal(t, models.PinStatusApproved, got.Status)
}
