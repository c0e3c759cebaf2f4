// Package outbox relays committed draft events from the database outbox
// table to JetStream. Events are written in the same transaction scope as
// the pick they describe; this package only moves them.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one undelivered outbox row.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
