package events

import (
	"time"
)

// Event payload types shared between the engine, outbox, and gateway.

// Event type names as stored on outbox rows and published subjects.
const (
	TypeDraftStarted   = "DraftStarted"
	TypeDraftPaused    = "DraftPaused"
	TypeDraftResumed   = "DraftResumed"
	TypeDraftCompleted = "DraftCompleted"
	TypePickStarted    = "PickStarted"
	TypePickCommitted  = "PickCommitted"
)

// PickStartedPayload announces that a team is on the clock.
type PickStartedPayload struct {
	TeamID         string     `json:"team_id"`
	Round          int        `json:"round"`
	Pick           int        `json:"pick"`
	OverallPick    int        `json:"overall_pick"`
	StartedAt      time.Time  `json:"started_at"`
	TimeoutAt      *time.Time `json:"timeout_at,omitempty"`
	TimePerPickSec int        `json:"time_per_pick_sec"`
}

// PickCommittedPayload announces a durably committed pick. Both identities
// and the assigned slot travel with the event: consumers rebuilding rosters
// need the recorded position/slot keys, not inference.
type PickCommittedPayload struct {
	TeamID      string    `json:"team_id"`
	SeasonID    string    `json:"season_id"`
	PlayerRef   string    `json:"player_ref,omitempty"`
	PlayerName  string    `json:"player_name"`
	SeasonYear  int       `json:"season_year"`
	Position    string    `json:"position"`
	SlotIndex   int       `json:"slot_index"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	OverallPick int       `json:"overall_pick"`
	MadeAt      time.Time `json:"made_at"`
}

// DraftStartedPayload is emitted when a session enters IN_PROGRESS.
type DraftStartedPayload struct {
	DraftID     string    `json:"draft_id"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftCompletedPayload is emitted when the last pick slot fills.
type DraftCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is emitted on pause, manual or retry-exhaustion.
type DraftPausedPayload struct {
	DraftID  string    `json:"draft_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// DraftResumedPayload is emitted when a paused session resumes.
type DraftResumedPayload struct {
	DraftID   string    `json:"draft_id"`
	ResumedAt time.Time `json:"resumed_at"`
}
