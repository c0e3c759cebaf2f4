package pool

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// fakeSource serves a fixed candidate slice with real paging so the loader's
// page walk is exercised.
type fakeSource struct {
	hitters  []models.Candidate
	pitchers []models.Candidate
}

func (f *fakeSource) ListCandidates(_ context.Context, _ models.SeasonFilter, cat Category, limit, offset int) ([]models.Candidate, error) {
	src := f.hitters
	if cat == CategoryPitchers {
		src = f.pitchers
	}
	if offset >= len(src) {
		return nil, nil
	}
	end := offset + limit
	if end > len(src) {
		end = len(src)
	}
	return src[offset:end], nil
}

func hitter(ref string, rating float64) models.Candidate {
	return models.Candidate{
		SeasonID:         uuid.New(),
		PlayerRef:        ref,
		Name:             ref,
		Position:         models.PositionOutfield,
		Rating:           rating,
		PlateAppearances: 600,
	}
}

func pitcher(ref string, rating float64) models.Candidate {
	return models.Candidate{
		SeasonID:    uuid.New(),
		PlayerRef:   ref,
		Name:        ref,
		Position:    models.PositionStarter,
		Rating:      rating,
		OutsPitched: 600,
	}
}

func mustLoad(t *testing.T, src *fakeSource) *Pool {
	t.Helper()
	p, err := Load(context.Background(), src, models.SeasonFilter{FromYear: 1901, ToYear: 1999}, eligibility.DefaultThresholds())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return p
}

func TestLoadRejectsBadPositionCode(t *testing.T) {
	bad := hitter("x", 50)
	bad.Position = models.Position("cf") // miscased
	src := &fakeSource{hitters: []models.Candidate{bad}}
	if _, err := Load(context.Background(), src, models.SeasonFilter{}, eligibility.DefaultThresholds()); err == nil {
		t.Fatal("expected load to reject unrecognized position code")
	}
}

func TestLoadPagesPastSinglePage(t *testing.T) {
	var hitters []models.Candidate
	for i := 0; i < loadPageSize+50; i++ {
		hitters = append(hitters, hitter(fmt.Sprintf("h%d", i), float64(i)))
	}
	p := mustLoad(t, &fakeSource{hitters: hitters})
	nh, _ := p.Size()
	if nh != loadPageSize+50 {
		t.Errorf("loaded %d hitters, want %d", nh, loadPageSize+50)
	}
}

func TestExclusionsFromLog(t *testing.T) {
	drafted := hitter("ruth27", 99)
	season := drafted.SeasonID
	ref := drafted.PlayerRef
	picks := []models.DraftPick{{
		SeasonID:  &season,
		PlayerRef: &ref,
		PickedAt:  nil,
	}}
	ex := ExclusionsFromLog(picks)

	if !ex.Excluded(&drafted) {
		t.Error("drafted season should be excluded")
	}

	// Another season of the same player is excluded via the persistent ref.
	other := hitter("ruth27", 95)
	if !ex.Excluded(&other) {
		t.Error("other seasons of a drafted player should be excluded")
	}

	// A record with no persistent ref falls back to season identity.
	anon := hitter("", 90)
	if ex.Excluded(&anon) {
		t.Error("unrelated anonymous record should not be excluded")
	}
	anonSeason := anon.SeasonID
	ex2 := ExclusionsFromLog([]models.DraftPick{{SeasonID: &anonSeason}})
	if !ex2.Excluded(&anon) {
		t.Error("anonymous record should be excluded by season identity")
	}
}

func TestWorkingSetTruncatesByQuota(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 30; i++ {
		src.hitters = append(src.hitters, hitter(fmt.Sprintf("h%d", i), float64(100-i)))
		src.pitchers = append(src.pitchers, pitcher(fmt.Sprintf("p%d", i), float64(100-i)))
	}
	p := mustLoad(t, src)

	set := p.WorkingSet(ExclusionsFromLog(nil), Quotas{Hitters: 10, Pitchers: 5}, nil)
	if len(set) != 15 {
		t.Fatalf("working set size = %d, want 15", len(set))
	}
	// Top hitter must be present; hitter #11 must not.
	if set[0].PlayerRef != "h0" {
		t.Errorf("first working-set entry = %s, want h0", set[0].PlayerRef)
	}
	for _, c := range set {
		if c.PlayerRef == "h10" {
			t.Error("hitter beyond quota leaked into working set")
		}
	}
}

func TestWorkingSetBackfillsNeededPosition(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 20; i++ {
		src.hitters = append(src.hitters, hitter(fmt.Sprintf("h%d", i), float64(100-i)))
	}
	// One catcher, rated below every outfielder.
	catcher := models.Candidate{
		SeasonID:         uuid.New(),
		PlayerRef:        "c1",
		Position:         models.PositionCatcher,
		Rating:           1,
		PlateAppearances: 400,
	}
	src.hitters = append(src.hitters, catcher)
	p := mustLoad(t, src)

	// Quota of 5 would truncate the catcher away; the needed-position
	// backstop must pull him in.
	set := p.WorkingSet(ExclusionsFromLog(nil), Quotas{Hitters: 5, Pitchers: 5}, []models.SlotPosition{models.SlotCatcher})
	found := false
	for _, c := range set {
		if c.PlayerRef == "c1" {
			found = true
		}
	}
	if !found {
		t.Error("needed catcher missing from bounded working set")
	}
}

func TestTwoWayDraftRemovesFromBothViews(t *testing.T) {
	twoWay := models.Candidate{
		SeasonID:         uuid.New(),
		PlayerRef:        "ohtani",
		Position:         models.PositionPitcher,
		Rating:           99,
		PlateAppearances: 550,
		OutsPitched:      400,
	}
	src := &fakeSource{
		hitters:  []models.Candidate{twoWay, hitter("h1", 80)},
		pitchers: []models.Candidate{twoWay, pitcher("p1", 80)},
	}
	p := mustLoad(t, src)

	// Present in both views before the draft.
	set := p.WorkingSet(ExclusionsFromLog(nil), DefaultQuotas(), nil)
	count := 0
	for _, c := range set {
		if c.PlayerRef == "ohtani" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("two-way candidate should appear exactly once in the merged set, got %d", count)
	}

	// Drafted under the pitcher category: gone from every view.
	season := twoWay.SeasonID
	ref := twoWay.PlayerRef
	ex := ExclusionsFromLog([]models.DraftPick{{SeasonID: &season, PlayerRef: &ref, Position: models.SlotStarter}})
	set = p.WorkingSet(ex, DefaultQuotas(), nil)
	for _, c := range set {
		if c.PlayerRef == "ohtani" {
			t.Fatal("drafted two-way player still visible in working set")
		}
	}
}

func TestQuotasValidate(t *testing.T) {
	quota := models.DefaultQuota() // 12 hitter slots, 8 pitcher slots per team
	if err := DefaultQuotas().Validate(4, quota); err != nil {
		t.Errorf("default quotas should satisfy 4 teams: %v", err)
	}
	if err := (Quotas{Hitters: 10, Pitchers: 10}).Validate(4, quota); err == nil {
		t.Error("undersized quotas should fail validation")
	}
}
