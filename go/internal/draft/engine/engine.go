package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/draft/events"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/draft/roster"
	"github.com/pennant-sim/pennant/go/internal/draft/scheduler"
	"github.com/pennant-sim/pennant/go/internal/draft/selector"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// ErrRetriesExhausted is returned when a commit could not be durably written
// within the retry budget. The session is paused before this surfaces.
var ErrRetriesExhausted = errors.New("commit retries exhausted")

// HumanPickRequest is a human-driven pick. OverallPick is the pick number the
// caller believes is on the clock; a mismatch is rejected rather than
// silently redirected to the current pick.
type HumanPickRequest struct {
	SessionID   uuid.UUID           `json:"session_id"`
	TeamID      uuid.UUID           `json:"team_id"`
	OverallPick int                 `json:"overall_pick"`
	SeasonID    uuid.UUID           `json:"season_id"`
	Position    models.SlotPosition `json:"position"`
	SlotIndex   int                 `json:"slot_index"`
}

// Deps wires an Engine. All fields are required.
type Deps struct {
	Sessions   SessionStore
	Picks      PickLogStore
	Outbox     OutboxWriter
	Source     pool.CandidateSource
	Quota      models.RosterQuota
	PoolQuotas pool.Quotas
	Thresholds eligibility.Thresholds
	Selector   *selector.Engine
	Retry      RetryPolicy
	Clock      clockwork.Clock
	Logger     zerolog.Logger
}

// Engine owns the select-and-commit path for draft sessions. It is safe for
// concurrent use: each session has an in-memory guard serializing commit
// attempts, and the pick log's uniqueness constraint backstops the guard
// across process restarts.
type Engine struct {
	sessions SessionStore
	picks    PickLogStore
	outbox   OutboxWriter
	source   pool.CandidateSource
	quota    models.RosterQuota
	pq       pool.Quotas
	th       eligibility.Thresholds
	sel      *selector.Engine
	retry    RetryPolicy
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu     sync.Mutex
	guards map[uuid.UUID]*sync.Mutex
	pools  map[uuid.UUID]*pool.Pool
}

// New creates an Engine from its dependencies.
func New(deps Deps) *Engine {
	return &Engine{
		sessions: deps.Sessions,
		picks:    deps.Picks,
		outbox:   deps.Outbox,
		source:   deps.Source,
		quota:    deps.Quota,
		pq:       deps.PoolQuotas,
		th:       deps.Thresholds,
		sel:      deps.Selector,
		retry:    deps.Retry,
		clock:    deps.Clock,
		logger:   deps.Logger.With().Str("component", "engine").Logger(),
		guards:   make(map[uuid.UUID]*sync.Mutex),
		pools:    make(map[uuid.UUID]*pool.Pool),
	}
}

// guard returns the per-session commit mutex, creating it on first use.
func (e *Engine) guard(sessionID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guards[sessionID]
	if !ok {
		g = &sync.Mutex{}
		e.guards[sessionID] = g
	}
	return g
}

// poolFor loads (or returns the cached) candidate pool for a session.
func (e *Engine) poolFor(ctx context.Context, draft *models.Draft) (*pool.Pool, error) {
	e.mu.Lock()
	p, ok := e.pools[draft.ID]
	e.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := pool.Load(ctx, e.source, draft.Settings.SeasonFilter, e.th)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	if err := e.pq.Validate(draft.NumTeams(), e.quota); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.pools[draft.ID] = p
	e.mu.Unlock()
	return p, nil
}

// RequestCPUPick selects and commits a pick for whichever team is on the
// clock. Safe to re-invoke: a pick number already committed resolves to
// OutcomeDuplicate carrying the existing pick, and a concurrent in-flight
// attempt resolves to OutcomeDuplicate with a retry hint.
func (e *Engine) RequestCPUPick(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	g := e.guard(sessionID)
	if !g.TryLock() {
		return &Result{Outcome: OutcomeDuplicate, Reason: "a commit for this session is already in flight; retry shortly"}, nil
	}
	defer g.Unlock()

	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if res := rejectInactive(draft); res != nil {
		return res, nil
	}

	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		return nil, fmt.Errorf("resolve team on clock: %w", err)
	}

	picks, err := e.picks.ListPicks(ctx, draft.ID)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	alloc, err := roster.Rebuild(e.quota, e.th, teamID, picks)
	if err != nil {
		return nil, fmt.Errorf("rebuild roster: %w", err)
	}

	p, err := e.poolFor(ctx, draft)
	if err != nil {
		return nil, err
	}
	ex := pool.ExclusionsFromLog(picks)
	working := p.WorkingSet(ex, e.pq, alloc.OpenPositions())

	round := scheduler.RoundOf(draft.CurrentPick, draft.NumTeams())
	choice, err := e.sel.Select(working, alloc, round, e.batsFor(p, teamID, picks))
	if err != nil {
		if errors.Is(err, selector.ErrPoolExhausted) {
			e.logger.Error().
				Str("draft_id", draft.ID.String()).
				Int("overall_pick", draft.CurrentPick).
				Int("open_slots", alloc.OpenCount()).
				Msg("candidate pool exhausted with open roster slots")
			return &Result{
				Outcome: OutcomePoolExhausted,
				Reason:  fmt.Sprintf("%d open roster slots but no eligible candidate remains", alloc.OpenCount()),
			}, nil
		}
		return nil, fmt.Errorf("select candidate: %w", err)
	}
	if choice == nil {
		// A complete roster mid-draft means rounds exceed the quota total.
		return &Result{
			Outcome: OutcomeError,
			Reason:  fmt.Sprintf("team %s roster is complete but pick %d remains", teamID, draft.CurrentPick),
		}, nil
	}

	return e.commit(ctx, draft, alloc, &choice.Candidate, choice.Position, choice.SlotIndex)
}

// RequestHumanPick commits a human-chosen candidate into a named slot,
// subject to the same turn-legality and duplicate handling as the CPU path.
func (e *Engine) RequestHumanPick(ctx context.Context, req HumanPickRequest) (*Result, error) {
	if _, err := models.ParseSlotPosition(string(req.Position)); err != nil {
		return &Result{Outcome: OutcomeIneligible, Reason: err.Error()}, nil
	}

	g := e.guard(req.SessionID)
	if !g.TryLock() {
		return &Result{Outcome: OutcomeDuplicate, Reason: "a commit for this session is already in flight; retry shortly"}, nil
	}
	defer g.Unlock()

	draft, err := e.sessions.GetDraft(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	// Stale-turn handling: a retry of an already committed pick resolves as
	// a duplicate, anything else as a turn violation.
	if req.OverallPick != draft.CurrentPick {
		if req.OverallPick < draft.CurrentPick {
			if existing, err := e.picks.GetPick(ctx, draft.ID, req.OverallPick); err == nil && existing != nil &&
				existing.TeamID == req.TeamID && existing.SeasonID != nil && *existing.SeasonID == req.SeasonID {
				return &Result{Outcome: OutcomeDuplicate, Pick: existing}, nil
			}
		}
		return &Result{
			Outcome: OutcomeNotYourTurn,
			Reason:  fmt.Sprintf("pick %d targeted but pick %d is on the clock", req.OverallPick, draft.CurrentPick),
		}, nil
	}

	if res := rejectInactive(draft); res != nil {
		return res, nil
	}

	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		return nil, fmt.Errorf("resolve team on clock: %w", err)
	}
	if teamID != req.TeamID {
		return &Result{
			Outcome: OutcomeNotYourTurn,
			Reason:  fmt.Sprintf("team %s is on the clock", teamID),
		}, nil
	}

	picks, err := e.picks.ListPicks(ctx, draft.ID)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}

	p, err := e.poolFor(ctx, draft)
	if err != nil {
		return nil, err
	}
	cand, ok := p.Lookup(req.SeasonID)
	if !ok {
		return &Result{Outcome: OutcomeIneligible, Reason: fmt.Sprintf("unknown candidate %s", req.SeasonID)}, nil
	}
	if pool.ExclusionsFromLog(picks).Excluded(cand) {
		return &Result{Outcome: OutcomeIneligible, Reason: fmt.Sprintf("%s was already drafted", cand.Name)}, nil
	}

	alloc, err := roster.Rebuild(e.quota, e.th, teamID, picks)
	if err != nil {
		return nil, fmt.Errorf("rebuild roster: %w", err)
	}
	if !alloc.SlotOpen(req.Position, req.SlotIndex) {
		return &Result{
			Outcome: OutcomeSlotTaken,
			Reason:  fmt.Sprintf("slot %s/%d is already filled", req.Position, req.SlotIndex),
		}, nil
	}
	if !e.th.Eligible(req.Position, cand) {
		return &Result{
			Outcome: OutcomeIneligible,
			Reason:  fmt.Sprintf("%s (%s) is not eligible at %s", cand.Name, cand.Position, req.Position),
		}, nil
	}

	return e.commit(ctx, draft, alloc, cand, req.Position, req.SlotIndex)
}

// commit durably appends the pick, fills the roster slot, advances the
// session, and records events. Callers hold the session guard and have
// already validated turn legality, slot openness, and eligibility.
func (e *Engine) commit(ctx context.Context, draft *models.Draft, alloc *roster.Allocator, cand *models.Candidate, pos models.SlotPosition, slotIdx int) (*Result, error) {
	numTeams := draft.NumTeams()
	now := e.clock.Now().UTC()
	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		return nil, fmt.Errorf("resolve team on clock: %w", err)
	}

	pick := models.DraftPick{
		ID:          uuid.New(),
		DraftID:     draft.ID,
		Round:       scheduler.RoundOf(draft.CurrentPick, numTeams),
		Pick:        scheduler.PickInRound(draft.CurrentPick, numTeams),
		OverallPick: draft.CurrentPick,
		TeamID:      teamID,
		SeasonID:    &cand.SeasonID,
		Position:    pos,
		SlotIndex:   &slotIdx,
		PickedAt:    &now,
	}
	if cand.PlayerRef != "" {
		ref := cand.PlayerRef
		pick.PlayerRef = &ref
	}

	outcome, err := e.appendWithRetry(ctx, draft, pick)
	if err != nil {
		return &Result{Outcome: OutcomeError, Reason: err.Error()}, err
	}
	if outcome == AppendDuplicate {
		existing, err := e.picks.GetPick(ctx, draft.ID, pick.OverallPick)
		if err != nil {
			return nil, fmt.Errorf("load duplicate pick %d: %w", pick.OverallPick, err)
		}
		e.logger.Info().
			Str("draft_id", draft.ID.String()).
			Int("overall_pick", pick.OverallPick).
			Msg("pick already committed, resolving as duplicate")
		res := &Result{Outcome: OutcomeDuplicate, Pick: existing}
		// The counter may lag the log if an earlier attempt died between
		// append and save.
		if draft.CurrentPick == pick.OverallPick {
			if err := e.advance(ctx, draft, existing); err != nil {
				return nil, err
			}
			res.Completed = draft.Status == models.DraftStatusCompleted
		}
		return res, nil
	}

	if err := alloc.Fill(pos, slotIdx, cand.SeasonID, pick.PlayerRef); err != nil {
		return nil, fmt.Errorf("fill roster slot: %w", err)
	}
	if err := e.advance(ctx, draft, &pick); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("draft_id", draft.ID.String()).
		Str("team_id", teamID.String()).
		Int("overall_pick", pick.OverallPick).
		Str("player", cand.Name).
		Int("season_year", cand.SeasonYear).
		Str("slot", string(pos)).
		Msg("pick committed")

	e.writeEvent(ctx, draft.ID, events.TypePickCommitted, events.PickCommittedPayload{
		TeamID:      teamID.String(),
		SeasonID:    cand.SeasonID.String(),
		PlayerRef:   cand.PlayerRef,
		PlayerName:  cand.Name,
		SeasonYear:  cand.SeasonYear,
		Position:    string(pos),
		SlotIndex:   slotIdx,
		Round:       pick.Round,
		Pick:        pick.Pick,
		OverallPick: pick.OverallPick,
		MadeAt:      now,
	})

	if draft.Status == models.DraftStatusCompleted {
		e.writeEvent(ctx, draft.ID, events.TypeDraftCompleted, events.DraftCompletedPayload{
			DraftID:     draft.ID.String(),
			CompletedAt: now,
			Duration:    completedDuration(draft, now),
			TotalPicks:  draft.TotalPicks(),
		})
		return &Result{Outcome: OutcomeCommitted, Pick: &pick, Completed: true}, nil
	}

	e.announceOnClock(ctx, draft)
	return &Result{Outcome: OutcomeCommitted, Pick: &pick}, nil
}

// appendWithRetry writes the pick with bounded exponential backoff. When the
// retry budget is spent the session is paused rather than retried forever.
func (e *Engine) appendWithRetry(ctx context.Context, draft *models.Draft, pick models.DraftPick) (AppendOutcome, error) {
	var lastErr error
	for attempt := 0; attempt < e.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-e.clock.After(e.retry.Delay(attempt - 1)):
			}
		}

		outcome, err := e.picks.AppendPick(ctx, pick)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		e.logger.Warn().
			Err(err).
			Str("draft_id", draft.ID.String()).
			Int("overall_pick", pick.OverallPick).
			Int("attempt", attempt+1).
			Msg("pick append failed, backing off")
	}

	reason := fmt.Sprintf("pick %d failed after %d attempts: %v", pick.OverallPick, e.retry.MaxAttempts, lastErr)
	if err := e.pause(ctx, draft, reason); err != nil {
		e.logger.Error().Err(err).Str("draft_id", draft.ID.String()).Msg("failed to pause session after retry exhaustion")
	}
	return 0, fmt.Errorf("%w: %s", ErrRetriesExhausted, reason)
}

// advance moves the current-pick counter past a committed pick, completing
// the session when the log is full.
func (e *Engine) advance(ctx context.Context, draft *models.Draft, committed *models.DraftPick) error {
	draft.CurrentPick = committed.OverallPick + 1
	if draft.CurrentPick > draft.TotalPicks() {
		now := e.clock.Now().UTC()
		draft.Status = models.DraftStatusCompleted
		draft.CompletedAt = &now
		draft.CurrentRound = draft.Settings.Rounds
	} else {
		draft.CurrentRound = scheduler.RoundOf(draft.CurrentPick, draft.NumTeams())
	}
	draft.UpdatedAt = e.clock.Now().UTC()
	if err := e.sessions.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("save session after pick %d: %w", committed.OverallPick, err)
	}
	return nil
}

// announceOnClock emits a PickStarted event for the team now on the clock.
func (e *Engine) announceOnClock(ctx context.Context, draft *models.Draft) {
	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		e.logger.Error().Err(err).Str("draft_id", draft.ID.String()).Msg("failed to resolve next team on clock")
		return
	}
	numTeams := draft.NumTeams()
	now := e.clock.Now().UTC()
	payload := events.PickStartedPayload{
		TeamID:         teamID.String(),
		Round:          scheduler.RoundOf(draft.CurrentPick, numTeams),
		Pick:           scheduler.PickInRound(draft.CurrentPick, numTeams),
		OverallPick:    draft.CurrentPick,
		StartedAt:      now,
		TimePerPickSec: draft.Settings.TimePerPickSec,
	}
	if draft.Settings.TimePerPickSec > 0 {
		deadline := now.Add(time.Duration(draft.Settings.TimePerPickSec) * time.Second)
		payload.TimeoutAt = &deadline
	}
	e.writeEvent(ctx, draft.ID, events.TypePickStarted, payload)
}

// writeEvent records an outbox event. The pick is already durable at every
// call site, so a write failure is logged and the commit stands.
func (e *Engine) writeEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload any) {
	if err := e.outbox.WriteEvent(ctx, draftID, eventType, payload); err != nil {
		e.logger.Error().
			Err(err).
			Str("draft_id", draftID.String()).
			Str("event_type", eventType).
			Msg("failed to write outbox event")
	}
}

// batsFor tallies batting handedness already on a team's roster. Pitcher
// slots are skipped; switch hitters count toward neither side.
func (e *Engine) batsFor(p *pool.Pool, teamID uuid.UUID, picks []models.DraftPick) selector.BatsCount {
	var bats selector.BatsCount
	for i := range picks {
		pk := &picks[i]
		if pk.TeamID != teamID || pk.SeasonID == nil || pk.Position.IsPitcherSlot() {
			continue
		}
		c, ok := p.Lookup(*pk.SeasonID)
		if !ok {
			continue
		}
		switch c.Bats {
		case models.BatsLeft:
			bats.Left++
		case models.BatsRight:
			bats.Right++
		}
	}
	return bats
}

// rejectInactive returns a typed rejection unless the session accepts commits.
func rejectInactive(draft *models.Draft) *Result {
	if draft.Status == models.DraftStatusInProgress {
		return nil
	}
	return &Result{
		Outcome: OutcomeError,
		Reason: fmt.Sprintf("session is %s; only %s sessions accept picks",
			draft.Status, models.DraftStatusInProgress),
	}
}

func completedDuration(draft *models.Draft, completedAt time.Time) string {
	if draft.StartedAt == nil {
		return ""
	}
	return completedAt.Sub(*draft.StartedAt).Round(time.Second).String()
}
