package models

import (
	"github.com/google/uuid"
)

// Candidate is a single player-season record in the draft pool. Read-only for
// the lifetime of a draft.
//
// SeasonID uniquely identifies this season record; PlayerRef identifies the
// real player across all of their seasons and drives cross-season dedup. Some
// very old records lack a resolvable PlayerRef, in which case dedup falls
// back on SeasonID alone.
type Candidate struct {
	SeasonID   uuid.UUID  `json:"season_id"`
	PlayerRef  string     `json:"player_ref"`
	Name       string     `json:"name"`
	SeasonYear int        `json:"season_year"`
	Position   Position   `json:"position"`
	Rating     float64    `json:"rating"` // precomputed, opaque to the engine
	Bats       Handedness `json:"bats"`

	// Counting stats feeding eligibility thresholds.
	PlateAppearances int `json:"plate_appearances"`
	AtBats           int `json:"at_bats"`
	OutsPitched      int `json:"outs_pitched"` // innings pitched x 3
	Saves            int `json:"saves"`
}

// PAOrAB returns plate appearances when recorded, else at-bats. Early
// seasons only carry AB.
func (c *Candidate) PAOrAB() int {
	if c.PlateAppearances > 0 {
		return c.PlateAppearances
	}
	return c.AtBats
}
