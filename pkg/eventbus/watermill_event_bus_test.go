package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinfeed/curator/pkg/channels/gochannel"
	"github.com/pinfeed/curator/pkg/events"
	"github.com/pinfeed/curator/pkg/eventbus"
	"github.com/pinfeed/curator/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishDeliversDecodedEvent(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	received := make(chan *events.StatusUpdated, 1)

	err := bus.Handle(events.StatusUpdatedEvent, func(_ context.Context, event interface{}) error {
		update, ok := event.(*events.StatusUpdated)
		require.True(t, ok)
		received <- update

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := &events.StatusUpdated{
		BaseEvent: events.NewBaseEvent(events.StatusUpdatedEvent, "prompt-1"),
		Snapshot: models.StatusSnapshot{
			PromptID:      "prompt-1",
			OverallStatus: models.RunStatusRunning,
			CurrentStep:   2,
			TotalSteps:    4,
			Progress:      55.0,
			Messages:      []string{"Collected 9 pins"},
		},
	}

	require.NoError(t, bus.Publish(ctx, "prompt-1", sent))

	select {
	case update := <-received:
		assert.Equal(t, "prompt-1", update.PromptID)
		assert.Equal(t, models.RunStatusRunning, update.Snapshot.OverallStatus)
		assert.Equal(t, 2, update.Snapshot.CurrentStep)
		assert.Equal(t, []string{"Collected 9 pins"}, update.Snapshot.Messages)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventsWithoutHandlerAreDropped(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	received := make(chan *events.SessionUpdated, 1)

	err := bus.Handle(events.SessionUpdatedEvent, func(_ context.Context, event interface{}) error {
		update, ok := event.(*events.SessionUpdated)
		require.True(t, ok)
		received <- update

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for status updates; only the session event
	// should come through.
	require.NoError(t, bus.Publish(ctx, "prompt-1", &events.StatusUpdated{
		BaseEvent: events.NewBaseEvent(events.StatusUpdatedEvent, "prompt-1"),
	}))
	require.NoError(t, bus.Publish(ctx, "prompt-1", &events.SessionUpdated{
		BaseEvent: events.NewBaseEvent(events.SessionUpdatedEvent, "prompt-1"),
		Session:   &models.Session{ID: "s1", PromptID: "prompt-1", Stage: models.StageWarmup},
	}))

	select {
	case update := <-received:
		assert.Equal(t, "s1", update.Session.ID)
	case <-time.After(time.Second):
		t.Fatal("session event was not delivered")
	}
}
