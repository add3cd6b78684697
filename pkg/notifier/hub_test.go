package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	envelopes []Envelope
	fail      bool
}

func (s *recordingSink) Send(envelope Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("connection closed")
	}

	s.envelopes = append(s.envelopes, envelope)

	return nil
}

func (s *recordingSink) received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Envelope(nil), s.envelopes...)
}

func TestBroadcastReachesEveryObserver(t *testing.T) {
	hub := NewHub(slog.Default())
	first := &recordingSink{}
	second := &recordingSink{}

	hub.Subscribe("prompt-1", first)
	hub.Subscribe("prompt-1", second)

	hub.Broadcast(context.Background(), Envelope{
		Type:      "status_update",
		Timestamp: time.Now().UTC(),
		PromptID:  "prompt-1",
		Data:      map[string]string{"status": "running"},
	})

	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, "prompt-1", first.received()[0].PromptID)
}

func TestBroadcastIsScopedToPrompt(t *testing.T) {
	hub := NewHub(slog.Default())
	mine := &recordingSink{}
	other := &recordingSink{}

	hub.Subscribe("prompt-1", mine)
	hub.Subscribe("prompt-2", other)

	hub.Broadcast(context.Background(), Envelope{PromptID: "prompt-1"})

	assert.Len(t, mine.received(), 1)
	assert.Empty(t, other.received())
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(slog.Default())
	sink := &recordingSink{}

	hub.Subscribe("prompt-1", sink)
	hub.Subscribe("prompt-1", sink)

	assert.Equal(t, 1, hub.ObserverCount("prompt-1"))

	hub.Broadcast(context.Background(), Envelope{PromptID: "prompt-1"})
	assert.Len(t, sink.received(), 1)
}

func TestDeadObserverDoesNotDisruptOthers(t *testing.T) {
	hub := NewHub(slog.Default())
	dead := &recordingSink{fail: true}
	alive := &recordingSink{}

	hub.Subscribe("prompt-1", dead)
	hub.Subscribe("prompt-1", alive)

	hub.Broadcast(context.Background(), Envelope{PromptID: "prompt-1"})

	assert.Len(t, alive.received(), 1)
	assert.Equal(t, 1, hub.ObserverCount("prompt-1"))

	// The dead observer was removed; later broadcasts skip it.
	hub.Broadcast(context.Background(), Envelope{PromptID: "prompt-1"})
	assert.Len(t, alive.received(), 2)
}

func TestUnsubscribeLastObserverClearsPrompt(t *testing.T) {
	hub := NewHub(slog.Default())
	sink := &recordingSink{}

	hub.Subscribe("prompt-1", sink)
	hub.Unsubscribe("prompt-1", sink)

	assert.Zero(t, hub.ObserverCount("prompt-1"))

	// Broadcasting to a prompt with no observers is a no-op.
	hub.Broadcast(context.Background(), Envelope{PromptID: "prompt-1"})
	assert.Empty(t, sink.received())
}

func TestUnsubscribeUnknownSinkIsNoOp(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Unsubscribe("prompt-1", &recordingSink{})

	assert.Zero(t, hub.ObserverCount("prompt-1"))
}
