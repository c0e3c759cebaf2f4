// Package roster tracks a team's slot occupancy during a draft and resolves
// which slot a chosen candidate lands in.
package roster

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// Allocator owns one team's roster slots. It is not safe for concurrent use;
// the session guard serializes access.
type Allocator struct {
	slots []models.RosterSlot
	th    eligibility.Thresholds
}

// NewAllocator builds an allocator over freshly expanded quota slots.
func NewAllocator(quota models.RosterQuota, th eligibility.Thresholds) *Allocator {
	return &Allocator{
		slots: models.BuildRoster(quota),
		th:    th,
	}
}

// Rebuild reconstructs occupancy from the authoritative pick log using each
// pick's recorded position and slot index. It never infers slots
// positionally: a pick recorded at OF/2 fills OF/2 even if OF/0 is empty.
func Rebuild(quota models.RosterQuota, th eligibility.Thresholds, teamID uuid.UUID, picks []models.DraftPick) (*Allocator, error) {
	a := NewAllocator(quota, th)
	for i := range picks {
		p := &picks[i]
		if p.TeamID != teamID || !p.Committed() {
			continue
		}
		if p.SlotIndex == nil {
			return nil, fmt.Errorf("pick %d for team %s has no slot index recorded", p.OverallPick, teamID)
		}
		if err := a.Fill(p.Position, *p.SlotIndex, *p.SeasonID, p.PlayerRef); err != nil {
			return nil, fmt.Errorf("rebuilding roster from pick %d: %w", p.OverallPick, err)
		}
	}
	return a, nil
}

// Slots returns a copy of the roster slots in template order.
func (a *Allocator) Slots() []models.RosterSlot {
	out := make([]models.RosterSlot, len(a.slots))
	copy(out, a.slots)
	return out
}

// find returns the slot with the given position and index, or nil.
func (a *Allocator) find(pos models.SlotPosition, idx int) *models.RosterSlot {
	for i := range a.slots {
		if a.slots[i].Position == pos && a.slots[i].SlotIndex == idx {
			return &a.slots[i]
		}
	}
	return nil
}

// SlotOpen reports whether the given slot exists and is unfilled.
func (a *Allocator) SlotOpen(pos models.SlotPosition, idx int) bool {
	s := a.find(pos, idx)
	return s != nil && !s.Filled()
}

// FirstOpenSlot returns the lowest open slot index for a position.
func (a *Allocator) FirstOpenSlot(pos models.SlotPosition) (int, bool) {
	best := -1
	for i := range a.slots {
		s := &a.slots[i]
		if s.Position != pos || s.Filled() {
			continue
		}
		if best == -1 || s.SlotIndex < best {
			best = s.SlotIndex
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// OpenPositions returns the distinct slot positions still below quota, in
// template order, bench included.
func (a *Allocator) OpenPositions() []models.SlotPosition {
	seen := map[models.SlotPosition]bool{}
	var out []models.SlotPosition
	for i := range a.slots {
		s := &a.slots[i]
		if s.Filled() || seen[s.Position] {
			continue
		}
		seen[s.Position] = true
		out = append(out, s.Position)
	}
	return out
}

// OpenCount returns how many slots remain unfilled.
func (a *Allocator) OpenCount() int {
	n := 0
	for i := range a.slots {
		if !a.slots[i].Filled() {
			n++
		}
	}
	return n
}

// Complete reports whether every slot is filled.
func (a *Allocator) Complete() bool {
	return a.OpenCount() == 0
}

// Fill marks a slot occupied. It rejects unknown slots and double fills; the
// commit protocol relies on that second check.
func (a *Allocator) Fill(pos models.SlotPosition, idx int, seasonID uuid.UUID, playerRef *string) error {
	if _, err := models.ParseSlotPosition(string(pos)); err != nil {
		return err
	}
	s := a.find(pos, idx)
	if s == nil {
		return fmt.Errorf("no %s slot with index %d", pos, idx)
	}
	if s.Filled() {
		return fmt.Errorf("%s slot %d is already filled", pos, idx)
	}
	s.SeasonID = &seasonID
	s.PlayerRef = playerRef
	return nil
}

// TargetFor resolves the slot a candidate should land in: the first open
// slot, in template order, among positions the candidate is eligible for.
// Bench is considered only when no starting-position need exists for the
// candidate. Returns false when the candidate fits no open slot.
func (a *Allocator) TargetFor(c *models.Candidate) (models.SlotPosition, int, bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.Filled() || s.Position == models.SlotBench {
			continue
		}
		if a.th.Eligible(s.Position, c) {
			return s.Position, s.SlotIndex, true
		}
	}
	for i := range a.slots {
		s := &a.slots[i]
		if s.Filled() || s.Position != models.SlotBench {
			continue
		}
		if a.th.Eligible(models.SlotBench, c) {
			return models.SlotBench, s.SlotIndex, true
		}
	}
	return "", 0, false
}
