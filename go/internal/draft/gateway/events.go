// Package gateway fans draft events out to WebSocket clients and serves
// read-only draft state over HTTP. It consumes the same JetStream stream the
// outbox relay publishes to.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/pennant-sim/pennant/go/internal/draft/events"
)

// DraftEvent is the frame sent to WebSocket clients.
type DraftEvent struct {
	ID        string          `json:"id"`
	DraftID   string          `json:"draft_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type EventType string

const (
	EventTypePickCommitted  EventType = EventType(events.TypePickCommitted)
	EventTypePickStarted    EventType = EventType(events.TypePickStarted)
	EventTypeDraftStarted   EventType = EventType(events.TypeDraftStarted)
	EventTypeDraftPaused    EventType = EventType(events.TypeDraftPaused)
	EventTypeDraftResumed   EventType = EventType(events.TypeDraftResumed)
	EventTypeDraftCompleted EventType = EventType(events.TypeDraftCompleted)
)

// ParseEventPayload decodes an event frame's data into its concrete payload.
func ParseEventPayload(event *DraftEvent) (any, error) {
	switch event.Type {
	case EventTypePickCommitted:
		var payload events.PickCommittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypePickStarted:
		var payload events.PickStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeDraftStarted:
		var payload events.DraftStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeDraftPaused:
		var payload events.DraftPausedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeDraftResumed:
		var payload events.DraftResumedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeDraftCompleted:
		var payload events.DraftCompletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	default:
		return nil, nil
	}
}
