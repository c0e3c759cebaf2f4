// Package eligibility decides which candidates may legally occupy which
// roster slots. Two independent rules apply in sequence: a position-match
// table, then a playing-time threshold per slot category. Keeping them
// separate means a change to one can never silently bypass the other.
package eligibility

import (
	"github.com/pennant-sim/pennant/go/internal/models"
)

// Thresholds are the minimum playing-time requirements per slot category.
// Product-tuned; loaded from engine config, defaults below.
type Thresholds struct {
	// MinPlateAppearances applies to position-player slots and bench.
	// At-bats stand in when a season predates PA records.
	MinPlateAppearances int `yaml:"min_plate_appearances"`
	// MinOutsPitched applies to pitcher slots (innings pitched x 3).
	MinOutsPitched int `yaml:"min_outs_pitched"`
	// MinCloserSaves additionally applies to closer slots.
	MinCloserSaves int `yaml:"min_closer_saves"`
}

// DefaultThresholds returns the stock league thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPlateAppearances: 200,
		MinOutsPitched:      150, // 50 innings
		MinCloserSaves:      10,
	}
}

// slotAccepts maps each roster slot position to the player primary positions
// it takes. DH and bench accept any primary position: pure pitchers are
// screened out by the hitting playing-time threshold, which also lets
// two-way players through.
var slotAccepts = map[models.SlotPosition]map[models.Position]bool{
	models.SlotCatcher:    {models.PositionCatcher: true},
	models.SlotFirstBase:  {models.PositionFirstBase: true},
	models.SlotSecondBase: {models.PositionSecondBase: true},
	models.SlotThirdBase:  {models.PositionThirdBase: true},
	models.SlotShortstop:  {models.PositionShortstop: true},
	models.SlotOutfield: {
		models.PositionLeftField:   true,
		models.PositionCenterField: true,
		models.PositionRightField:  true,
		models.PositionOutfield:    true,
	},
	models.SlotStarter: {
		models.PositionPitcher: true,
		models.PositionStarter: true,
	},
	models.SlotReliever: {
		models.PositionPitcher:  true,
		models.PositionReliever: true,
		models.PositionCloser:   true,
	},
	models.SlotCloser: {
		models.PositionPitcher:  true,
		models.PositionReliever: true,
		models.PositionCloser:   true,
	},
	models.SlotDH:    nil, // nil = accepts every valid position
	models.SlotBench: nil,
}

// PositionEligible reports whether a primary position may occupy a slot,
// ignoring playing time.
func PositionEligible(slot models.SlotPosition, pos models.Position) bool {
	accepts, ok := slotAccepts[slot]
	if !ok {
		return false
	}
	if accepts == nil {
		return true
	}
	return accepts[pos]
}

// MeetsPlayingTime reports whether a candidate clears the slot category's
// threshold, ignoring position.
func (t Thresholds) MeetsPlayingTime(slot models.SlotPosition, c *models.Candidate) bool {
	if slot.IsPitcherSlot() {
		if c.OutsPitched < t.MinOutsPitched {
			return false
		}
		if slot == models.SlotCloser && c.Saves < t.MinCloserSaves {
			return false
		}
		return true
	}
	return c.PAOrAB() >= t.MinPlateAppearances
}

// Eligible applies both rules in sequence: position match, then playing time.
func (t Thresholds) Eligible(slot models.SlotPosition, c *models.Candidate) bool {
	return PositionEligible(slot, c.Position) && t.MeetsPlayingTime(slot, c)
}

// QualifiesAsHitter reports whether a candidate clears the hitting threshold.
func (t Thresholds) QualifiesAsHitter(c *models.Candidate) bool {
	return c.PAOrAB() >= t.MinPlateAppearances
}

// QualifiesAsPitcher reports whether a candidate clears the pitching threshold.
func (t Thresholds) QualifiesAsPitcher(c *models.Candidate) bool {
	return c.OutsPitched >= t.MinOutsPitched
}

// TwoWay reports whether a candidate clears both thresholds simultaneously
// and so belongs in both the hitter and pitcher candidate views.
func (t Thresholds) TwoWay(c *models.Candidate) bool {
	return t.QualifiesAsHitter(c) && t.QualifiesAsPitcher(c)
}
