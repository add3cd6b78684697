package web

import (
	"context"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/pinfeed/curator/pkg/events"
	"github.com/pinfeed/curator/pkg/notifier"
	"github.com/pinfeed/curator/pkg/persistence"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(_ *fasthttp.RequestCtx) bool { return true },
}

// wsSink delivers envelopes over one websocket connection. Writes are
// serialized; a write failure marks the observer dead and the hub drops
// it on the next broadcast.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(envelope notifier.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return s.conn.WriteJSON(envelope)
}

// LiveUpdates upgrades the connection and streams run updates for one
// prompt. The observer is registered before the catch-up snapshot is
// sent, so an update landing in between is delivered twice rather than
// missed.
func (h *APIHandlers) LiveUpdates(c fiber.Ctx) error {
	promptID := c.Params("id")
	if promptID == "" {
		return badRequest(c, "Prompt ID is required")
	}

	if _, err := h.persistence.Prompts().GetByID(c.Context(), promptID); err != nil {
		return handleStoreError(c, err)
	}

	err := upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
		h.serveObserver(conn, promptID)
	})
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "prompt_id", promptID, "error", err)
	}

	return nil
}

func (h *APIHandlers) serveObserver(conn *websocket.Conn, promptID string) {
	ctx := context.Background()
	sink := &wsSink{conn: conn}

	h.hub.Subscribe(promptID, sink)

	defer func() {
		h.hub.Unsubscribe(promptID, sink)

		_ = conn.Close()
	}()

	if err := h.sendCatchUp(ctx, sink, promptID); err != nil {
		h.logger.Warn("Observer catch-up failed", "prompt_id", promptID, "error", err)

		return
	}

	// Inbound frames are ignored; the read loop only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sendCatchUp replays the current state so late joiners start from the
// present instead of an empty stream.
func (h *APIHandlers) sendCatchUp(ctx context.Context, sink *wsSink, promptID string) error {
	snapshot, err := h.tracker.Progress(ctx, promptID)
	if err != nil && !persistence.IsStatusNotFound(err) {
		return err
	}

	if snapshot != nil {
		err = sink.Send(notifier.Envelope{
			Type:      string(events.StatusUpdatedEvent),
			Timestamp: time.Now().UTC(),
			PromptID:  promptID,
			Data:      *snapshot,
		})
		if err != nil {
			return err
		}
	}

	sessions, err := h.sessions.ListByPrompt(ctx, promptID)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		err = sink.Send(notifier.Envelope{
			Type:      string(events.SessionUpdatedEvent),
			Timestamp: time.Now().UTC(),
			PromptID:  promptID,
			Data:      session,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
