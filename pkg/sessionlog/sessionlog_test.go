package sessionlog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence/file"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return NewLog(store.Sessions(), slog.Default())
}

func TestCreateStartsPending(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	promptID := uuid.New().String()

	session, err := log.Create(ctx, promptID, models.StageWarmup)
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusPending, session.Status)
	assert.Equal(t, models.StageWarmup, session.Stage)
	assert.Empty(t, session.Log)

	fetched, err := log.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, fetched.ID)
	assert.Equal(t, promptID, fetched.PromptID)
}

func TestAppendPrefixesTimestamp(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	session, err := log.Create(ctx, uuid.New().String(), models.StageCollection)
	require.NoError(t, err)

	require.NoError(t, log.Append(ctx, session.ID, "collected 12 pins"))
	require.NoError(t, log.Append(ctx, session.ID, "deduplicated to 9"))

	fetched, err := log.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Log, 2)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z\] collected 12 pins$`, fetched.Log[0])
	assert.Contains(t, fetched.Log[1], "deduplicated to 9")
}

func TestSetStageKeepsLog(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	session, err := log.Create(ctx, uuid.New().String(), models.StageCollection)
	require.NoError(t, err)

	require.NoError(t, log.Append(ctx, session.ID, "collection done"))
	require.NoError(t, log.SetStage(ctx, session.ID, models.StageEnrichment))
	require.NoError(t, log.Append(ctx, session.ID, "enriching"))

	fetched, err := log.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageEnrichment, fetched.Stage)
	assert.Len(t, fetched.Log, 2)
}

func TestListByPromptOnlyReturnsOwnSessions(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	promptID := uuid.New().String()

	_, err := log.Create(ctx, promptID, models.StageWarmup)
	require.NoError(t, err)
	_, err = log.Create(ctx, promptID, models.StageCollection)
	require.NoError(t, err)
	_, err = log.Create(ctx, uuid.New().String(), models.StageWarmup)
	require.NoError(t, err)

	sessions, err := log.ListByPrompt(ctx, promptID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSetStatus(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	session, err := log.Create(ctx, uuid.New().String(), models.StageEvaluation)
	require.NoError(t, err)

	require.NoError(t, log.SetStatus(ctx, session.ID, models.SessionStatusReady))

	fetched, err := log.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusReady, fetched.Status)
}
