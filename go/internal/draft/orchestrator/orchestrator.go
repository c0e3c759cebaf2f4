package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/draft/scheduler"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// PickEngine is what the orchestrator drives: CPU picks for teams on the
// clock (including overdue human teams) and pausing sessions it cannot help.
type PickEngine interface {
	RequestCPUPick(ctx context.Context, sessionID uuid.UUID) (*engine.Result, error)
	PauseDraft(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Draft, error)
}

// SessionStore is the orchestrator's view of session and deadline state.
type SessionStore interface {
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error)
	FetchNextDeadline(ctx context.Context) (*repository.NextDeadline, error)
	FetchDraftsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error)
	UpdateNextDeadline(ctx context.Context, draftID uuid.UUID, deadline *time.Time) error
}

// TeamDirectory resolves team control modes.
type TeamDirectory interface {
	GetTeamsByDraft(ctx context.Context, draftID uuid.UUID) ([]models.Team, error)
}

// Orchestrator is the per-process driver for draft sessions. A single
// scheduler goroutine sleeps until the soonest pick deadline; a worker pool
// handles due sessions, deduplicated so a session has at most one in-flight
// pick attempt here. The engine's own guard and the pick log's uniqueness
// constraint keep a second orchestrator instance harmless.
type Orchestrator struct {
	engine   PickEngine
	sessions SessionStore
	teams    TeamDirectory
	clock    clockwork.Clock
	logger   zerolog.Logger

	batchSize  int32
	numWorkers int
	instanceID string

	wakeCh chan struct{}
	workCh chan uuid.UUID

	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex

	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
}

func NewOrchestrator(eng PickEngine, sessions SessionStore, teams TeamDirectory, logger zerolog.Logger) *Orchestrator {
	numWorkers := 10
	return &Orchestrator{
		engine:     eng,
		sessions:   sessions,
		teams:      teams,
		clock:      clockwork.NewRealClock(),
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		batchSize:  100,
		numWorkers: numWorkers,
		instanceID: uuid.New().String()[:8],
		wakeCh:     make(chan struct{}, 1),
		workCh:     make(chan uuid.UUID, numWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// WithClock swaps the clock. Tests pair this with a fake clock.
func (o *Orchestrator) WithClock(clock clockwork.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// NudgeSession queues a session for a pick attempt if one is not already in
// flight. Safe from any goroutine.
func (o *Orchestrator) NudgeSession(draftID uuid.UUID) {
	o.inFlightMu.Lock()
	if o.inFlight[draftID] {
		o.inFlightMu.Unlock()
		return
	}
	o.inFlight[draftID] = true
	o.inFlightMu.Unlock()

	select {
	case o.workCh <- draftID:
	default:
		// Channel full; release the claim so the deadline sweep retries.
		o.inFlightMu.Lock()
		delete(o.inFlight, draftID)
		o.inFlightMu.Unlock()
		o.logger.Warn().Str("draft_id", draftID.String()).Msg("work channel full, dropping nudge")
	}
}

func (o *Orchestrator) wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// Run starts the worker pool and the deadline scheduler and blocks until ctx
// is cancelled. In-progress sessions found at startup are nudged so a restart
// never strands a CPU team on the clock.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("orchestrator starting")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer func() {
		cancelWorkers()
		wg.Wait()
		o.logger.Info().Str("instance", o.instanceID).Msg("orchestrator stopped")
	}()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	o.recover(ctx)

	if o.consumer != nil {
		if err := o.consumeEvents(ctx); err != nil {
			return err
		}
	}

	return o.runScheduler(ctx)
}

// recover nudges every in-progress session once at startup.
func (o *Orchestrator) recover(ctx context.Context) {
	drafts, err := o.sessions.ListDraftsByStatus(ctx, models.DraftStatusInProgress)
	if err != nil {
		o.logger.Error().Err(err).Msg("recovery scan failed")
		return
	}
	for i := range drafts {
		o.logger.Info().Str("draft_id", drafts[i].ID.String()).Msg("recovering in-progress draft")
		o.NudgeSession(drafts[i].ID)
	}
}

// worker drains due sessions and attempts picks for them.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case draftID := <-o.workCh:
			if err := o.handleDue(ctx, draftID); err != nil {
				o.logger.Error().
					Err(err).
					Str("draft_id", draftID.String()).
					Int("worker_id", workerID).
					Msg("pick attempt failed")
			}
			o.inFlightMu.Lock()
			delete(o.inFlight, draftID)
			o.inFlightMu.Unlock()
		}
	}
}

// handleDue attempts one pick for a session, then decides what keeps the
// session moving: another nudge for a CPU team, a fresh deadline for a human
// team, or nothing for a finished session.
func (o *Orchestrator) handleDue(ctx context.Context, draftID uuid.UUID) error {
	draft, err := o.sessions.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusInProgress {
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	}

	// A human team still inside its window is not due; just make sure the
	// deadline is armed.
	if onClock, err := o.controlOnClock(ctx, draft); err == nil && onClock == models.ControlModeHuman {
		if nd, err := o.sessions.FetchNextDeadline(ctx); err == nil && nd != nil &&
			nd.DraftID == draftID && nd.Deadline != nil && nd.Deadline.After(o.clock.Now()) {
			return nil
		}
	}

	res, err := o.engine.RequestCPUPick(ctx, draftID)
	if err != nil {
		// Back off; the deadline sweep will retry.
		deadline := o.clock.Now().Add(5 * time.Second)
		_ = o.sessions.UpdateNextDeadline(ctx, draftID, &deadline)
		o.wake()
		return err
	}

	switch res.Outcome {
	case engine.OutcomeCommitted, engine.OutcomeDuplicate:
		if res.Completed {
			return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
		}
		return o.armNext(ctx, draftID)
	case engine.OutcomePoolExhausted:
		if _, err := o.engine.PauseDraft(ctx, draftID, res.Reason); err != nil {
			o.logger.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to pause exhausted draft")
		}
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	default:
		o.logger.Warn().
			Str("draft_id", draftID.String()).
			Str("outcome", string(res.Outcome)).
			Str("reason", res.Reason).
			Msg("pick attempt rejected")
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	}
}

// armNext sets up whatever drives the next pick: an immediate nudge for a CPU
// team, a pick deadline for a human team with a clock, or nothing for a human
// team drafting at leisure.
func (o *Orchestrator) armNext(ctx context.Context, draftID uuid.UUID) error {
	draft, err := o.sessions.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusInProgress {
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	}

	control, err := o.controlOnClock(ctx, draft)
	if err != nil {
		return err
	}
	if control == models.ControlModeCPU {
		o.NudgeSession(draftID)
		return nil
	}
	if draft.Settings.TimePerPickSec <= 0 {
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	}
	deadline := o.clock.Now().Add(time.Duration(draft.Settings.TimePerPickSec) * time.Second)
	if err := o.sessions.UpdateNextDeadline(ctx, draftID, &deadline); err != nil {
		return err
	}
	o.wake()
	return nil
}

// controlOnClock resolves the control mode of the team currently picking.
// Unknown teams fall back to CPU so a misconfigured session cannot stall.
func (o *Orchestrator) controlOnClock(ctx context.Context, draft *models.Draft) (models.ControlMode, error) {
	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		return models.ControlModeCPU, err
	}
	teams, err := o.teams.GetTeamsByDraft(ctx, draft.ID)
	if err != nil {
		return models.ControlModeCPU, err
	}
	for i := range teams {
		if teams[i].ID == teamID {
			return teams[i].Control, nil
		}
	}
	return models.ControlModeCPU, nil
}
