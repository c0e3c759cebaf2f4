package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick is one entry in a session's pick log. Every slot is pre-allocated
// when the session is created (team assignment fixed by snake order) and the
// occupant fields stay nil until the pick is committed. Once committed the
// occupant never changes.
type DraftPick struct {
	ID          uuid.UUID `json:"id"`
	DraftID     uuid.UUID `json:"draft_id"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`         // pick number within the round
	OverallPick int       `json:"overall_pick"` // unique key within the session
	TeamID      uuid.UUID `json:"team_id"`

	// Occupant. SeasonID is the season-scoped identity; PlayerRef is the
	// persistent identity shared by all of that player's seasons. Both are
	// persisted: dropping PlayerRef on read breaks cross-season dedup, and
	// dropping Position/SlotIndex breaks roster reconstruction.
	SeasonID  *uuid.UUID   `json:"season_id,omitempty"`
	PlayerRef *string      `json:"player_ref,omitempty"`
	Position  SlotPosition `json:"position,omitempty"`
	SlotIndex *int         `json:"slot_index,omitempty"`
	PickedAt  *time.Time   `json:"picked_at,omitempty"`
}

// Committed reports whether the pick slot has an occupant.
func (p *DraftPick) Committed() bool {
	return p.SeasonID != nil
}
