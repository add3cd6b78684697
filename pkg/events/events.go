// Package events defines the update events broadcast during a curation run.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pinfeed/curator/pkg/models"
)

type EventType string

// Topic carries every run update; observers filter by prompt id.
const Topic = "curator.updates"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// StatusUpdatedEvent carries the full progress snapshot after a
	// status tracker update.
	StatusUpdatedEvent EventType = "status_update"

	// SessionUpdatedEvent carries one phase session after it changed.
	SessionUpdatedEvent EventType = "session_update"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PromptID  string    `json:"prompt_id"`
}

func NewBaseEvent(eventType EventType, promptID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PromptID:  promptID,
	}
}

type StatusUpdated struct {
	BaseEvent

	Snapshot models.StatusSnapshot `json:"data"`
}

func (s StatusUpdated) GetType() EventType {
	return StatusUpdatedEvent
}

type SessionUpdated struct {
	BaseEvent

	Session *models.Session `json:"data"`
}

func (s SessionUpdated) GetType() EventType {
	return SessionUpdatedEvent
}
