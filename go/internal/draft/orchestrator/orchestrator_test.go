package orchestrator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/events"
	"github.com/pennant-sim/pennant/go/internal/draft/orchestrator"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/draft/selector"
	"github.com/pennant-sim/pennant/go/internal/models"
)

type orchEnv struct {
	store  *repository.MemoryStore
	clock  clockwork.Clock
	engine *engine.Engine
	orch   *orchestrator.Orchestrator
	draft  *models.Draft
	teams  []uuid.UUID
}

// smallCandidates is enough depth for a two-team, two-position draft with
// spare candidates at every slot.
func smallCandidates() []models.Candidate {
	var out []models.Candidate
	for i := 0; i < 3; i++ {
		out = append(out, models.Candidate{
			SeasonID: uuid.New(), PlayerRef: fmt.Sprintf("c-%d", i), Name: fmt.Sprintf("Catcher %d", i),
			SeasonYear: 1950 + i, Position: models.PositionCatcher, Rating: 90 - float64(i),
			Bats: models.BatsRight, PlateAppearances: 500,
		})
	}
	for i := 0; i < 3; i++ {
		out = append(out, models.Candidate{
			SeasonID: uuid.New(), PlayerRef: fmt.Sprintf("cf-%d", i), Name: fmt.Sprintf("Center Fielder %d", i),
			SeasonYear: 1950 + i, Position: models.PositionCenterField, Rating: 85 - float64(i),
			Bats: models.BatsLeft, PlateAppearances: 500,
		})
	}
	return out
}

func smallQuota() models.RosterQuota {
	return models.RosterQuota{
		{Position: models.SlotCatcher, Count: 1},
		{Position: models.SlotOutfield, Count: 1},
	}
}

func newOrchEnv(t *testing.T, candidates []models.Candidate, quota models.RosterQuota, rounds int,
	controls []models.ControlMode, timePerPickSec int, clock clockwork.Clock) *orchEnv {
	t.Helper()

	store := repository.NewMemoryStore().WithClock(clock)
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

	draftID := uuid.New()
	teams := make([]uuid.UUID, len(controls))
	for i, control := range controls {
		teams[i] = uuid.New()
		if err := store.CreateTeam(context.Background(), models.Team{
			ID:            teams[i],
			DraftID:       draftID,
			Name:          fmt.Sprintf("Team %d", i+1),
			Control:       control,
			DraftPosition: i + 1,
		}); err != nil {
			t.Fatalf("seed team: %v", err)
		}
	}

	draft := &models.Draft{
		ID:     draftID,
		Status: models.DraftStatusSetup,
		Settings: models.DraftSettings{
			Rounds:         rounds,
			DraftOrder:     teams,
			TimePerPickSec: timePerPickSec,
			SeasonFilter:   models.SeasonFilter{FromYear: 1900, ToYear: 2000},
		},
		CreatedAt: clock.Now(),
		UpdatedAt: clock.Now(),
	}
	if err := store.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	orch := orchestrator.NewOrchestrator(eng, store, store, zerolog.Nop()).WithClock(clock)
	return &orchEnv{store: store, clock: clock, engine: eng, orch: orch, draft: draft, teams: teams}
}

func (env *orchEnv) mustStart(t *testing.T) {
	t.Helper()
	if _, err := env.engine.StartDraft(context.Background(), env.draft.ID); err != nil {
		t.Fatalf("StartDraft: %v", err)
	}
}

func (env *orchEnv) currentDraft(t *testing.T) *models.Draft {
	t.Helper()
	d, err := env.store.GetDraft(context.Background(), env.draft.ID)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	return d
}

// The recovery scan alone must carry an all-CPU draft to completion: no
// events, no deadlines, just nudges chasing the pick counter.
func TestRecoveryDrivesCPUDraftToCompletion(t *testing.T) {
	env := newOrchEnv(t, smallCandidates(), smallQuota(), 2,
		[]models.ControlMode{models.ControlModeCPU, models.ControlModeCPU}, 0, clockwork.NewRealClock())
	env.mustStart(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.orch.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		d := env.currentDraft(t)
		if d.Status == models.DraftStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("draft did not complete, status %s at pick %d", d.Status, d.CurrentPick)
		}
		time.Sleep(5 * time.Millisecond)
	}

	picks, err := env.store.ListPicks(context.Background(), env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 4 {
		t.Fatalf("got %d picks, want 4", len(picks))
	}
	// Snake order for two teams over two rounds.
	wantTeams := []uuid.UUID{env.teams[0], env.teams[1], env.teams[1], env.teams[0]}
	for i, p := range picks {
		if p.TeamID != wantTeams[i] {
			t.Errorf("pick %d went to wrong team", p.OverallPick)
		}
	}

	nd, err := env.store.FetchNextDeadline(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if nd != nil {
		t.Error("completed draft left a deadline armed")
	}
}

// An overdue human team gets a CPU pick once its window lapses, and the draft
// keeps moving through the mixed human/CPU order.
func TestOverdueHumanGetsAutoPick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	env := newOrchEnv(t, smallCandidates(), smallQuota(), 2,
		[]models.ControlMode{models.ControlModeHuman, models.ControlModeCPU}, 30, clock)
	env.mustStart(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.orch.Run(ctx) }()

	// Deliver the PickStarted event for pick 1 the way the relay would.
	timeout := clock.Now().Add(30 * time.Second)
	payload, err := json.Marshal(events.PickStartedPayload{
		TeamID:      env.teams[0].String(),
		Round:       1,
		Pick:        1,
		OverallPick: 1,
		StartedAt:   clock.Now(),
		TimeoutAt:   &timeout,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.orch.HandleDomainEvent(ctx, events.TypePickStarted, env.draft.ID, payload); err != nil {
		t.Fatal(err)
	}

	nd, err := env.store.FetchNextDeadline(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if nd == nil || !nd.Deadline.Equal(timeout) {
		t.Fatalf("deadline not armed for human pick: %+v", nd)
	}

	// Advance well past every pick window repeatedly; each lapse forces an
	// auto-pick and the CPU picks in between chase immediately.
	deadline := time.Now().Add(5 * time.Second)
	for {
		d := env.currentDraft(t)
		if d.Status == models.DraftStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("draft did not complete, status %s at pick %d", d.Status, d.CurrentPick)
		}
		clock.Advance(40 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}

	picks, err := env.store.ListPicks(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 4 {
		t.Fatalf("got %d picks, want 4", len(picks))
	}
}

// Pool exhaustion pauses the session instead of spinning on it.
func TestExhaustedPoolPausesSession(t *testing.T) {
	quota := models.RosterQuota{{Position: models.SlotCatcher, Count: 1}}
	candidates := []models.Candidate{
		{SeasonID: uuid.New(), PlayerRef: "c-0", Name: "Only Catcher", SeasonYear: 1955,
			Position: models.PositionCatcher, Rating: 80, Bats: models.BatsRight, PlateAppearances: 450},
	}
	for i := 0; i < 4; i++ {
		candidates = append(candidates, models.Candidate{
			SeasonID: uuid.New(), PlayerRef: fmt.Sprintf("cf-%d", i), Name: fmt.Sprintf("Filler %d", i),
			SeasonYear: 1960, Position: models.PositionCenterField, Rating: 85, Bats: models.BatsLeft,
			PlateAppearances: 500,
		})
	}

	env := newOrchEnv(t, candidates, quota, 1,
		[]models.ControlMode{models.ControlModeCPU, models.ControlModeCPU}, 0, clockwork.NewRealClock())
	env.mustStart(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.orch.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		d := env.currentDraft(t)
		if d.Status == models.DraftStatusPaused {
			break
		}
		if d.Status == models.DraftStatusCompleted {
			t.Fatal("draft completed despite an exhausted pool")
		}
		if time.Now().After(deadline) {
			t.Fatalf("draft never paused, status %s at pick %d", d.Status, d.CurrentPick)
		}
		time.Sleep(5 * time.Millisecond)
	}

	picks, err := env.store.ListPicks(ctx, env.draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 1 {
		t.Fatalf("got %d picks, want 1 before the pool ran dry", len(picks))
	}
}

func TestHandleDomainEventRouting(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	env := newOrchEnv(t, smallCandidates(), smallQuota(), 2,
		[]models.ControlMode{models.ControlModeHuman, models.ControlModeCPU}, 30, clock)
	env.mustStart(t)

	t.Run("pause clears deadline", func(t *testing.T) {
		future := clock.Now().Add(time.Minute)
		if err := env.store.UpdateNextDeadline(ctx, env.draft.ID, &future); err != nil {
			t.Fatal(err)
		}
		payload, _ := json.Marshal(events.DraftPausedPayload{DraftID: env.draft.ID.String(), PausedAt: clock.Now(), Reason: "test"})
		if err := env.orch.HandleDomainEvent(ctx, events.TypeDraftPaused, env.draft.ID, payload); err != nil {
			t.Fatal(err)
		}
		nd, err := env.store.FetchNextDeadline(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if nd != nil {
			t.Fatalf("deadline survived a pause event: %+v", nd)
		}
	})

	t.Run("unknown event type ignored", func(t *testing.T) {
		if err := env.orch.HandleDomainEvent(ctx, "SomethingNew", env.draft.ID, []byte(`{}`)); err != nil {
			t.Fatalf("unknown event should be ignored, got %v", err)
		}
	})

	t.Run("pick started without a clock clears deadline", func(t *testing.T) {
		future := clock.Now().Add(time.Minute)
		if err := env.store.UpdateNextDeadline(ctx, env.draft.ID, &future); err != nil {
			t.Fatal(err)
		}
		payload, _ := json.Marshal(events.PickStartedPayload{TeamID: env.teams[0].String(), OverallPick: 1, StartedAt: clock.Now()})
		if err := env.orch.HandleDomainEvent(ctx, events.TypePickStarted, env.draft.ID, payload); err != nil {
			t.Fatal(err)
		}
		nd, err := env.store.FetchNextDeadline(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if nd != nil {
			t.Fatalf("deadline survived an unclocked pick: %+v", nd)
		}
	})
}
