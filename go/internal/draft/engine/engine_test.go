package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/events"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/draft/scheduler"
	"github.com/pennant-sim/pennant/go/internal/draft/selector"
	"github.com/pennant-sim/pennant/go/internal/models"
)

type testEnv struct {
	store  *repository.MemoryStore
	clock  *clockwork.FakeClock
	engine *engine.Engine
	draft  *models.Draft
	teams  []uuid.UUID
}

// leagueCandidates builds a pool that covers every slot of the default quota
// for two teams with headroom at each position. Ratings descend with index so
// input order is a stable tiebreak.
func leagueCandidates() []models.Candidate {
	specs := []struct {
		pos   models.Position
		count int
	}{
		{models.PositionCatcher, 4},
		{models.PositionFirstBase, 3},
		{models.PositionSecondBase, 3},
		{models.PositionThirdBase, 3},
		{models.PositionShortstop, 3},
		{models.PositionLeftField, 3},
		{models.PositionCenterField, 3},
		{models.PositionRightField, 3},
		{models.PositionOutfield, 5},
		{models.PositionStarter, 10},
		{models.PositionReliever, 6},
		{models.PositionCloser, 4},
	}

	var out []models.Candidate
	i := 0
	for _, s := range specs {
		for n := 0; n < s.count; n++ {
			c := models.Candidate{
				SeasonID:   uuid.New(),
				PlayerRef:  fmt.Sprintf("ref-%03d", i),
				Name:       fmt.Sprintf("%s Player %d", s.pos, n),
				SeasonYear: 1950 + i%30,
				Position:   s.pos,
				Rating:     95.0 - float64(i)*0.5,
				Bats:       []models.Handedness{models.BatsRight, models.BatsLeft, models.BatsRight, models.BatsSwitch}[i%4],
			}
			if s.pos.IsPitcher() {
				c.OutsPitched = 600
				c.Saves = 15
			} else {
				c.PlateAppearances = 500
			}
			out = append(out, c)
			i++
		}
	}
	return out
}

func newTestEnv(t *testing.T, candidates []models.Candidate, quota models.RosterQuota, rounds int) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	clock := clockwork.NewFakeClock()
	eng := engine.New(engine.Deps{
		Sessions:   store,
		Picks:      store,
		Outbox:     store,
		Source:     repository.NewMemoryCandidateSource(candidates),
		Quota:      quota,
		PoolQuotas: pool.DefaultQuotas(),
		Thresholds: eligibility.DefaultThresholds(),
		Selector:   selector.New(selector.DefaultConfig(), 1),
		Retry:      engine.DefaultRetryPolicy(),
		Clock:      clock,
		Logger:     zerolog.Nop(),
	})

	teams := []uuid.UUID{uuid.New(), uuid.New()}
	draft := &models.Draft{
		ID:     uuid.New(),
		Status: models.DraftStatusSetup,
		Settings: models.DraftSettings{
			Rounds:       rounds,
			DraftOrder:   teams,
			SeasonFilter: models.SeasonFilter{FromYear: 1900, ToYear: 2000},
		},
		CreatedAt: clock.Now(),
		UpdatedAt: clock.Now(),
	}
	if err := store.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	return &testEnv{store: store, clock: clock, engine: eng, draft: draft, teams: teams}
}

func (env *testEnv) mustStart(t *testing.T) *models.Draft {
	t.Helper()
	draft, err := env.engine.StartDraft(context.Background(), env.draft.ID)
	if err != nil {
		t.Fatalf("StartDraft: %v", err)
	}
	return draft
}

func TestFullCPUDraftCompletes(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
	env.mustStart(t)

	totalPicks := 2 * quota.TotalSlots()
	var last *engine.Result
	for i := 0; i < totalPicks; i++ {
		res, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
		if err != nil {
			t.Fatalf("pick %d: %v", i+1, err)
		}
		if res.Outcome != engine.OutcomeCommitted {
			t.Fatalf("pick %d: outcome = %s (%s), want %s", i+1, res.Outcome, res.Reason, engine.OutcomeCommitted)
		}
		last = res
	}
	if !last.Completed {
		t.Fatal("final pick did not complete the draft")
	}

	draft, err := env.store.GetDraft(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Status != models.DraftStatusCompleted {
		t.Errorf("status = %s, want %s", draft.Status, models.DraftStatusCompleted)
	}

	picks, err := env.store.ListPicks(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != totalPicks {
		t.Fatalf("len(picks) = %d, want %d", len(picks), totalPicks)
	}

	// Snake order: the committed team sequence must match the schedule.
	want := scheduler.Sequence(quota.TotalSlots(), env.teams)
	for i, p := range picks {
		if p.OverallPick != i+1 {
			t.Errorf("picks[%d].OverallPick = %d, want %d", i, p.OverallPick, i+1)
		}
		if p.TeamID != want[i] {
			t.Errorf("pick %d went to the wrong team", i+1)
		}
	}

	// No persistent player drafted twice, all shape fields present.
	seen := map[string]int{}
	for _, p := range picks {
		if p.SeasonID == nil || p.SlotIndex == nil || p.PickedAt == nil {
			t.Fatalf("pick %d is missing persisted fields: %+v", p.OverallPick, p)
		}
		if p.PlayerRef != nil {
			seen[*p.PlayerRef]++
		}
	}
	for ref, n := range seen {
		if n > 1 {
			t.Errorf("player %s drafted %d times", ref, n)
		}
	}

	// Both rosters complete, rebuilt from the log by recorded keys.
	for _, teamID := range env.teams {
		slots, err := env.engine.TeamRoster(ctx, env.draft.ID, teamID)
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range slots {
			if !s.Filled() {
				t.Errorf("team %s slot %s/%d left open", teamID, s.Position, s.SlotIndex)
			}
		}
	}

	// A PickCommitted event per pick plus lifecycle events.
	var committed int
	for _, ev := range env.store.Events() {
		if ev.EventType == events.TypePickCommitted {
			committed++
		}
	}
	if committed != totalPicks {
		t.Errorf("PickCommitted events = %d, want %d", committed, totalPicks)
	}
}

func TestCPUPickDuplicateAfterCounterLag(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
	env.mustStart(t)

	first, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != engine.OutcomeCommitted {
		t.Fatalf("outcome = %s, want %s", first.Outcome, engine.OutcomeCommitted)
	}

	// Simulate a crash between the durable append and the counter save.
	draft, err := env.store.GetDraft(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	draft.CurrentPick = 1
	if err := env.store.SaveDraft(ctx, draft); err != nil {
		t.Fatal(err)
	}

	retry, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retry.Outcome != engine.OutcomeDuplicate {
		t.Fatalf("outcome = %s, want %s", retry.Outcome, engine.OutcomeDuplicate)
	}
	if retry.Pick == nil || retry.Pick.ID != first.Pick.ID {
		t.Fatal("duplicate did not resolve to the originally committed pick")
	}

	// The counter healed past the committed pick.
	draft, err = env.store.GetDraft(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if draft.CurrentPick != 2 {
		t.Errorf("CurrentPick = %d, want 2", draft.CurrentPick)
	}
}

func TestConcurrentCommitsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
	env.mustStart(t)

	// Two engines sharing one store model two processes whose in-memory
	// guards cannot see each other; the log's uniqueness constraint is the
	// only thing between them and a double commit.
	other := engine.New(engine.Deps{
		Sessions:   env.store,
		Picks:      env.store,
		Outbox:     env.store,
		Source:     repository.NewMemoryCandidateSource(leagueCandidates()),
		Quota:      quota,
		PoolQuotas: pool.DefaultQuotas(),
		Thresholds: eligibility.DefaultThresholds(),
		Selector:   selector.New(selector.DefaultConfig(), 2),
		Retry:      engine.DefaultRetryPolicy(),
		Clock:      env.clock,
		Logger:     zerolog.Nop(),
	})

	engines := []*engine.Engine{env.engine, other}
	results := make([]*engine.Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engines[i].RequestCPUPick(ctx, env.draft.ID)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("engine %d: %v", i, err)
		}
	}

	var committed, duplicate int
	for _, res := range results {
		switch res.Outcome {
		case engine.OutcomeCommitted, engine.OutcomeDuplicate:
			if res.Outcome == engine.OutcomeCommitted {
				committed++
			} else {
				duplicate++
			}
		default:
			t.Fatalf("unexpected outcome %s (%s)", res.Outcome, res.Reason)
		}
	}
	if committed != 1 {
		t.Fatalf("committed = %d, want exactly 1 (duplicates: %d)", committed, duplicate)
	}

	picks, err := env.store.ListPicks(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	var forPickOne []models.DraftPick
	for _, p := range picks {
		if p.OverallPick == 1 {
			forPickOne = append(forPickOne, p)
		}
	}
	if len(forPickOne) != 1 {
		t.Fatalf("pick 1 has %d occupants, want 1", len(forPickOne))
	}
}

func TestRetryExhaustionPausesSession(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
	env.mustStart(t)

	policy := engine.DefaultRetryPolicy()
	env.store.FailNextAppends(policy.MaxAttempts)

	type outcome struct {
		res *engine.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
		done <- outcome{res, err}
	}()

	// Walk the fake clock through each backoff window.
	for i := 0; i < policy.MaxAttempts-1; i++ {
		env.clock.BlockUntil(1)
		env.clock.Advance(policy.MaxDelay)
	}

	got := <-done
	if !errors.Is(got.err, engine.ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", got.err)
	}
	if got.res == nil || got.res.Outcome != engine.OutcomeError {
		t.Fatalf("outcome = %+v, want %s", got.res, engine.OutcomeError)
	}

	draft, err := env.store.GetDraft(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Status != models.DraftStatusPaused {
		t.Fatalf("status = %s, want %s", draft.Status, models.DraftStatusPaused)
	}

	// The session resumes and the same pick commits cleanly.
	if _, err := env.engine.ResumeDraft(ctx, env.draft.ID); err != nil {
		t.Fatal(err)
	}
	res, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != engine.OutcomeCommitted {
		t.Fatalf("outcome after resume = %s (%s), want %s", res.Outcome, res.Reason, engine.OutcomeCommitted)
	}
	if res.Pick.OverallPick != 1 {
		t.Errorf("resumed commit went to pick %d, want 1", res.Pick.OverallPick)
	}
}

func TestHumanPickValidation(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	candidates := leagueCandidates()
	env := newTestEnv(t, candidates, quota, quota.TotalSlots())
	env.mustStart(t)

	catcher := findByPosition(t, candidates, models.PositionCatcher, 0)
	secondCatcher := findByPosition(t, candidates, models.PositionCatcher, 1)
	starter := findByPosition(t, candidates, models.PositionStarter, 0)

	base := engine.HumanPickRequest{
		SessionID:   env.draft.ID,
		TeamID:      env.teams[0],
		OverallPick: 1,
		SeasonID:    catcher.SeasonID,
		Position:    models.SlotCatcher,
		SlotIndex:   0,
	}

	t.Run("wrong team rejected", func(t *testing.T) {
		req := base
		req.TeamID = env.teams[1]
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeNotYourTurn {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeNotYourTurn)
		}
	})

	t.Run("future pick rejected", func(t *testing.T) {
		req := base
		req.OverallPick = 3
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeNotYourTurn {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeNotYourTurn)
		}
	})

	t.Run("pitcher at catcher rejected", func(t *testing.T) {
		req := base
		req.SeasonID = starter.SeasonID
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeIneligible {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeIneligible)
		}
	})

	t.Run("unknown slot code rejected", func(t *testing.T) {
		req := base
		req.Position = models.SlotPosition("c")
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeIneligible {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeIneligible)
		}
	})

	t.Run("unknown candidate rejected", func(t *testing.T) {
		req := base
		req.SeasonID = uuid.New()
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeIneligible {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeIneligible)
		}
	})

	t.Run("valid pick commits", func(t *testing.T) {
		res, err := env.engine.RequestHumanPick(ctx, base)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeCommitted {
			t.Fatalf("outcome = %s (%s), want %s", res.Outcome, res.Reason, engine.OutcomeCommitted)
		}
		if res.Pick.Position != models.SlotCatcher || *res.Pick.SlotIndex != 0 {
			t.Errorf("pick landed at %s/%d, want C/0", res.Pick.Position, *res.Pick.SlotIndex)
		}
	})

	t.Run("replay resolves to duplicate", func(t *testing.T) {
		res, err := env.engine.RequestHumanPick(ctx, base)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeDuplicate {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeDuplicate)
		}
		if res.Pick == nil || res.Pick.SeasonID == nil || *res.Pick.SeasonID != catcher.SeasonID {
			t.Fatal("duplicate did not carry the committed pick")
		}
	})

	t.Run("already drafted player rejected", func(t *testing.T) {
		// Team 2 commits pick 2 so team 1 is back on the clock at pick 3.
		if res, err := env.engine.RequestCPUPick(ctx, env.draft.ID); err != nil || res.Outcome != engine.OutcomeCommitted {
			t.Fatalf("cpu pick: res=%+v err=%v", res, err)
		}
		req := base
		req.OverallPick = 3
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeIneligible {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeIneligible)
		}
	})

	t.Run("filled slot rejected", func(t *testing.T) {
		req := base
		req.OverallPick = 3
		req.SeasonID = secondCatcher.SeasonID
		res, err := env.engine.RequestHumanPick(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeSlotTaken {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeSlotTaken)
		}
	})
}

func TestPoolExhaustionDistinctFromCompletion(t *testing.T) {
	ctx := context.Background()
	quota := models.RosterQuota{{Position: models.SlotCatcher, Count: 1}}

	// One catcher for two teams. Filler outfielders keep the category counts
	// up but no second catcher exists.
	candidates := []models.Candidate{
		{SeasonID: uuid.New(), PlayerRef: "c-1", Name: "Only Catcher", SeasonYear: 1955,
			Position: models.PositionCatcher, Rating: 80, Bats: models.BatsRight, PlateAppearances: 450},
	}
	for i := 0; i < 6; i++ {
		candidates = append(candidates, models.Candidate{
			SeasonID: uuid.New(), PlayerRef: fmt.Sprintf("of-%d", i), Name: fmt.Sprintf("Outfielder %d", i),
			SeasonYear: 1960, Position: models.PositionCenterField, Rating: 85, Bats: models.BatsLeft,
			PlateAppearances: 500,
		})
	}

	env := newTestEnv(t, candidates, quota, 1)
	env.mustStart(t)

	first, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != engine.OutcomeCommitted {
		t.Fatalf("outcome = %s (%s), want %s", first.Outcome, first.Reason, engine.OutcomeCommitted)
	}

	second, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Outcome != engine.OutcomePoolExhausted {
		t.Fatalf("outcome = %s (%s), want %s", second.Outcome, second.Reason, engine.OutcomePoolExhausted)
	}
	if second.Completed {
		t.Error("pool exhaustion must not read as completion")
	}
}

func TestStartDraftValidation(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()

	t.Run("single team rejected", func(t *testing.T) {
		env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
		env.draft.Settings.DraftOrder = env.draft.Settings.DraftOrder[:1]
		if err := env.store.SaveDraft(ctx, env.draft); err != nil {
			t.Fatal(err)
		}
		if _, err := env.engine.StartDraft(ctx, env.draft.ID); err == nil {
			t.Fatal("expected error for single-team draft")
		}
	})

	t.Run("double start rejected", func(t *testing.T) {
		env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
		env.mustStart(t)
		if _, err := env.engine.StartDraft(ctx, env.draft.ID); err == nil {
			t.Fatal("expected error starting an in-progress draft")
		}
	})

	t.Run("commit against setup session rejected", func(t *testing.T) {
		env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
		res, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != engine.OutcomeError {
			t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeError)
		}
	})
}

func TestPauseBlocksCommitsUntilResume(t *testing.T) {
	ctx := context.Background()
	quota := models.DefaultQuota()
	env := newTestEnv(t, leagueCandidates(), quota, quota.TotalSlots())
	env.mustStart(t)

	if _, err := env.engine.PauseDraft(ctx, env.draft.ID, "commissioner break"); err != nil {
		t.Fatal(err)
	}
	res, err := env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != engine.OutcomeError {
		t.Fatalf("outcome = %s, want %s", res.Outcome, engine.OutcomeError)
	}

	if _, err := env.engine.ResumeDraft(ctx, env.draft.ID); err != nil {
		t.Fatal(err)
	}
	res, err = env.engine.RequestCPUPick(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != engine.OutcomeCommitted {
		t.Fatalf("outcome after resume = %s, want %s", res.Outcome, engine.OutcomeCommitted)
	}
}

func findByPosition(t *testing.T, candidates []models.Candidate, pos models.Position, skip int) models.Candidate {
	t.Helper()
	for _, c := range candidates {
		if c.Position == pos {
			if skip == 0 {
				return c
			}
			skip--
		}
	}
	t.Fatalf("no candidate at position %s", pos)
	return models.Candidate{}
}
