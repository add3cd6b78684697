// Package notifier fans run updates out to live observers.
package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pinfeed/curator/pkg/events"
	"github.com/pinfeed/curator/pkg/eventbus"
)

// Envelope is the wire format delivered to observers.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	PromptID  string      `json:"prompt_id"`
	Data      interface{} `json:"data"`
}

// Sink receives envelopes for one observer. A Send error marks the
// observer dead; the hub drops it and keeps serving the others.
type Sink interface {
	Send(envelope Envelope) error
}

// Hub tracks observers per prompt and broadcasts run updates to them.
// Registration and broadcast never fail from the caller's perspective:
// a prompt with no observers is a no-op, and a failing observer is
// removed rather than surfaced.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]map[Sink]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sinks:  make(map[string]map[Sink]struct{}),
		logger: logger,
	}
}

// Subscribe registers a sink for a prompt's updates. Subscribing the
// same sink twice is a no-op.
func (h *Hub) Subscribe(promptID string, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sinks[promptID] == nil {
		h.sinks[promptID] = make(map[Sink]struct{})
	}

	h.sinks[promptID][sink] = struct{}{}
}

// Unsubscribe removes a sink. The prompt's entry is dropped entirely
// when its last sink leaves.
func (h *Hub) Unsubscribe(promptID string, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.sinks[promptID]
	if !ok {
		return
	}

	delete(group, sink)

	if len(group) == 0 {
		delete(h.sinks, promptID)
	}
}

// ObserverCount reports how many sinks are registered for a prompt.
func (h *Hub) ObserverCount(promptID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sinks[promptID])
}

// Broadcast delivers an envelope to every observer of its prompt.
// Observers whose Send fails are unsubscribed.
func (h *Hub) Broadcast(ctx context.Context, envelope Envelope) {
	h.mu.RLock()

	targets := make([]Sink, 0, len(h.sinks[envelope.PromptID]))
	for sink := range h.sinks[envelope.PromptID] {
		targets = append(targets, sink)
	}

	h.mu.RUnlock()

	var dead []Sink

	for _, sink := range targets {
		if err := sink.Send(envelope); err != nil {
			h.logger.WarnContext(ctx, "Dropping unreachable observer",
				"prompt_id", envelope.PromptID, "error", err)
			dead = append(dead, sink)
		}
	}

	for _, sink := range dead {
		h.Unsubscribe(envelope.PromptID, sink)
	}
}

// Attach registers the hub on the event bus so every published run
// update reaches live observers. Handlers never return an error: a
// broadcast problem affects only the failing observer.
func (h *Hub) Attach(bus eventbus.EventSubscriber) error {
	err := bus.Handle(events.StatusUpdatedEvent, func(ctx context.Context, event interface{}) error {
		update, ok := event.(*events.StatusUpdated)
		if !ok {
			h.logger.WarnContext(ctx, "Unexpected payload for status update event")

			return nil
		}

		h.Broadcast(ctx, Envelope{
			Type:      string(events.StatusUpdatedEvent),
			Timestamp: update.Timestamp,
			PromptID:  update.PromptID,
			Data:      update.Snapshot,
		})

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Handle(events.SessionUpdatedEvent, func(ctx context.Context, event interface{}) error {
		update, ok := event.(*events.SessionUpdated)
		if !ok {
			h.logger.WarnContext(ctx, "Unexpected payload for session update event")

			return nil
		}

		h.Broadcast(ctx, Envelope{
			Type:      string(events.SessionUpdatedEvent),
			Timestamp: update.Timestamp,
			PromptID:  update.PromptID,
			Data:      update.Session,
		})

		return nil
	})
}
