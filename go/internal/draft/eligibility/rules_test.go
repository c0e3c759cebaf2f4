package eligibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pennant-sim/pennant/go/internal/models"
)

func hitter(pos models.Position, pa int) *models.Candidate {
	return &models.Candidate{
		SeasonID:         uuid.New(),
		PlayerRef:        "h1",
		Position:         pos,
		PlateAppearances: pa,
	}
}

func pitcher(pos models.Position, outs, saves int) *models.Candidate {
	return &models.Candidate{
		SeasonID:    uuid.New(),
		PlayerRef:   "p1",
		Position:    pos,
		OutsPitched: outs,
		Saves:       saves,
	}
}

func TestPositionEligible(t *testing.T) {
	cases := []struct {
		slot models.SlotPosition
		pos  models.Position
		want bool
	}{
		{models.SlotCatcher, models.PositionCatcher, true},
		{models.SlotCatcher, models.PositionFirstBase, false},
		{models.SlotOutfield, models.PositionLeftField, true},
		{models.SlotOutfield, models.PositionCenterField, true},
		{models.SlotOutfield, models.PositionRightField, true},
		{models.SlotOutfield, models.PositionOutfield, true},
		{models.SlotOutfield, models.PositionShortstop, false},
		{models.SlotStarter, models.PositionPitcher, true},
		{models.SlotStarter, models.PositionStarter, true},
		{models.SlotStarter, models.PositionReliever, false},
		{models.SlotCloser, models.PositionPitcher, true},
		{models.SlotCloser, models.PositionReliever, true},
		{models.SlotCloser, models.PositionCloser, true},
		{models.SlotCloser, models.PositionStarter, false},
		{models.SlotDH, models.PositionCatcher, true},
		{models.SlotDH, models.PositionPitcher, true}, // screened later by PA threshold
		{models.SlotBench, models.PositionShortstop, true},
		{models.SlotBench, models.PositionPitcher, true},
	}
	for _, c := range cases {
		if got := PositionEligible(c.slot, c.pos); got != c.want {
			t.Errorf("PositionEligible(%s, %s) = %v, want %v", c.slot, c.pos, got, c.want)
		}
	}
}

func TestPlayingTimeThresholds(t *testing.T) {
	th := DefaultThresholds()

	if th.MeetsPlayingTime(models.SlotCatcher, hitter(models.PositionCatcher, th.MinPlateAppearances-1)) {
		t.Error("token-PA season should fail the hitting threshold")
	}
	if !th.MeetsPlayingTime(models.SlotCatcher, hitter(models.PositionCatcher, th.MinPlateAppearances)) {
		t.Error("qualifying PA season should pass the hitting threshold")
	}
	if th.MeetsPlayingTime(models.SlotStarter, pitcher(models.PositionStarter, th.MinOutsPitched-1, 0)) {
		t.Error("token innings season should fail the pitching threshold")
	}
	if !th.MeetsPlayingTime(models.SlotStarter, pitcher(models.PositionStarter, th.MinOutsPitched, 0)) {
		t.Error("qualifying innings season should pass the pitching threshold")
	}
}

func TestCloserNeedsSaves(t *testing.T) {
	th := DefaultThresholds()
	workhorse := pitcher(models.PositionReliever, 300, 0)
	if th.Eligible(models.SlotCloser, workhorse) {
		t.Error("reliever without saves should not fill a closer slot")
	}
	closer := pitcher(models.PositionCloser, 300, th.MinCloserSaves)
	if !th.Eligible(models.SlotCloser, closer) {
		t.Error("closer with saves should fill a closer slot")
	}
	// Still fine as a plain reliever.
	if !th.Eligible(models.SlotReliever, workhorse) {
		t.Error("reliever without saves should still fill a reliever slot")
	}
}

func TestPurePitcherExcludedFromBenchAndDH(t *testing.T) {
	th := DefaultThresholds()
	pure := pitcher(models.PositionStarter, 600, 0)
	if th.Eligible(models.SlotBench, pure) {
		t.Error("pure pitcher should not occupy a bench slot")
	}
	if th.Eligible(models.SlotDH, pure) {
		t.Error("pure pitcher should not occupy a DH slot")
	}
}

func TestTwoWayQualifiesBothCategories(t *testing.T) {
	th := DefaultThresholds()
	twoWay := &models.Candidate{
		SeasonID:         uuid.New(),
		PlayerRef:        "ruth21",
		Position:         models.PositionPitcher,
		PlateAppearances: 540,
		OutsPitched:      400,
	}
	if !th.TwoWay(twoWay) {
		t.Fatal("candidate clearing both thresholds should be two-way")
	}
	if !th.Eligible(models.SlotStarter, twoWay) {
		t.Error("two-way pitcher should fill a starter slot")
	}
	if !th.Eligible(models.SlotDH, twoWay) {
		t.Error("two-way pitcher should fill a DH slot")
	}
	if !th.Eligible(models.SlotBench, twoWay) {
		t.Error("two-way pitcher should fill a bench slot")
	}
}

func TestRulesAreIndependent(t *testing.T) {
	th := DefaultThresholds()

	// Passes position match but fails playing time.
	parttime := hitter(models.PositionShortstop, 50)
	if !PositionEligible(models.SlotShortstop, parttime.Position) {
		t.Fatal("position rule should accept SS at SS")
	}
	if th.Eligible(models.SlotShortstop, parttime) {
		t.Error("playing-time rule should still reject the candidate")
	}

	// Passes playing time but fails position match.
	slugger := hitter(models.PositionFirstBase, 650)
	if !th.MeetsPlayingTime(models.SlotCatcher, slugger) {
		t.Fatal("playing-time rule should accept a full season")
	}
	if th.Eligible(models.SlotCatcher, slugger) {
		t.Error("position rule should still reject the candidate")
	}
}
