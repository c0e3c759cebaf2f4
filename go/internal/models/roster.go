package models

import (
	"github.com/google/uuid"
)

// RosterSlot is one required position on a team's roster. SlotIndex
// disambiguates multiple slots of the same position (OF 0..2, SP 0..3, ...).
// Filled iff SeasonID is non-nil.
type RosterSlot struct {
	Position  SlotPosition `json:"position"`
	SlotIndex int          `json:"slot_index"`
	SeasonID  *uuid.UUID   `json:"season_id,omitempty"`
	PlayerRef *string      `json:"player_ref,omitempty"`
}

// Filled reports whether the slot has an occupant.
func (s *RosterSlot) Filled() bool {
	return s.SeasonID != nil
}

// RosterQuota is an ordered slot template applied to every team at creation.
// Slot counts never change after team creation.
type RosterQuota []struct {
	Position SlotPosition
	Count    int
}

// DefaultQuota is the standard league roster shape: one of each infield spot,
// three outfielders, a DH, four starters, three relievers, a closer, and a
// three-man bench.
func DefaultQuota() RosterQuota {
	return RosterQuota{
		{SlotCatcher, 1},
		{SlotFirstBase, 1},
		{SlotSecondBase, 1},
		{SlotThirdBase, 1},
		{SlotShortstop, 1},
		{SlotOutfield, 3},
		{SlotDH, 1},
		{SlotStarter, 4},
		{SlotReliever, 3},
		{SlotCloser, 1},
		{SlotBench, 3},
	}
}

// BuildRoster expands a quota into empty roster slots in template order.
func BuildRoster(quota RosterQuota) []RosterSlot {
	var slots []RosterSlot
	for _, q := range quota {
		for i := 0; i < q.Count; i++ {
			slots = append(slots, RosterSlot{Position: q.Position, SlotIndex: i})
		}
	}
	return slots
}

// TotalSlots is the roster size the quota produces.
func (q RosterQuota) TotalSlots() int {
	n := 0
	for _, e := range q {
		n += e.Count
	}
	return n
}
