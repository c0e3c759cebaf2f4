package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of a draft session.
type DraftStatus string

const (
	DraftStatusSetup      DraftStatus = "SETUP"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
	DraftStatusAbandoned  DraftStatus = "ABANDONED"
)

// SeasonFilter bounds which historical seasons feed a draft's candidate pool.
type SeasonFilter struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
}

// DraftSettings holds JSONB configuration for a draft session.
type DraftSettings struct {
	Rounds       int          `json:"rounds"`
	DraftOrder   []uuid.UUID  `json:"draft_order"`
	SeasonFilter SeasonFilter `json:"season_filter"`
	// TimePerPickSec of 0 disables pick deadlines (humans pick at leisure,
	// CPU teams pick as soon as they are on the clock).
	TimePerPickSec int `json:"time_per_pick_sec"`
}

// Draft represents one draft session. CurrentPick is 1-based and monotonic;
// CurrentRound is derived from it but persisted for cheap reads.
type Draft struct {
	ID           uuid.UUID     `json:"id"`
	Status       DraftStatus   `json:"status"`
	Settings     DraftSettings `json:"settings"`
	CurrentPick  int           `json:"current_pick"`
	CurrentRound int           `json:"current_round"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NumTeams is the number of teams in the draft order.
func (d *Draft) NumTeams() int {
	return len(d.Settings.DraftOrder)
}

// TotalPicks is the fixed size of the pick log.
func (d *Draft) TotalPicks() int {
	return d.Settings.Rounds * d.NumTeams()
}
