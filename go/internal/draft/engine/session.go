package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/draft/events"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/draft/roster"
	"github.com/pennant-sim/pennant/go/internal/draft/scheduler"
	"github.com/pennant-sim/pennant/go/internal/models"
)

var allowedTransitions = map[models.DraftStatus][]models.DraftStatus{
	models.DraftStatusSetup:      {models.DraftStatusInProgress, models.DraftStatusAbandoned},
	models.DraftStatusInProgress: {models.DraftStatusPaused, models.DraftStatusCompleted, models.DraftStatusAbandoned},
	models.DraftStatusPaused:     {models.DraftStatusInProgress, models.DraftStatusAbandoned},
	models.DraftStatusCompleted:  {},
	models.DraftStatusAbandoned:  {},
}

func validateTransition(from, to models.DraftStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("transition from %s to %s is not allowed", from, to)
}

// StartDraft moves a session from SETUP to IN_PROGRESS and puts the first
// team on the clock. The candidate pool is loaded and sized before the
// transition so an undersized pool fails the start, not pick one.
func (e *Engine) StartDraft(ctx context.Context, sessionID uuid.UUID) (*models.Draft, error) {
	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := validateTransition(draft.Status, models.DraftStatusInProgress); err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusSetup {
		return nil, fmt.Errorf("session %s is %s, use ResumeDraft to continue a paused session", sessionID, draft.Status)
	}
	if draft.NumTeams() < 2 {
		return nil, fmt.Errorf("draft order has %d teams, need at least 2", draft.NumTeams())
	}
	if draft.Settings.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be greater than 0")
	}

	if _, err := e.poolFor(ctx, draft); err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC()
	draft.Status = models.DraftStatusInProgress
	draft.StartedAt = &now
	draft.CurrentPick = 1
	draft.CurrentRound = 1
	draft.UpdatedAt = now
	if err := e.sessions.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.logger.Info().
		Str("draft_id", draft.ID.String()).
		Int("teams", draft.NumTeams()).
		Int("rounds", draft.Settings.Rounds).
		Msg("draft started")

	e.writeEvent(ctx, draft.ID, events.TypeDraftStarted, events.DraftStartedPayload{
		DraftID:     draft.ID.String(),
		StartedAt:   now,
		TotalRounds: draft.Settings.Rounds,
		TotalPicks:  draft.TotalPicks(),
	})
	e.announceOnClock(ctx, draft)
	return draft, nil
}

// PauseDraft suspends an in-progress session.
func (e *Engine) PauseDraft(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Draft, error) {
	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := e.pause(ctx, draft, reason); err != nil {
		return nil, err
	}
	return draft, nil
}

// pause transitions an already loaded session to PAUSED. Also the landing
// state for commit retry exhaustion.
func (e *Engine) pause(ctx context.Context, draft *models.Draft, reason string) error {
	if err := validateTransition(draft.Status, models.DraftStatusPaused); err != nil {
		return err
	}
	now := e.clock.Now().UTC()
	draft.Status = models.DraftStatusPaused
	draft.UpdatedAt = now
	if err := e.sessions.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	e.logger.Warn().
		Str("draft_id", draft.ID.String()).
		Str("reason", reason).
		Msg("draft paused")

	e.writeEvent(ctx, draft.ID, events.TypeDraftPaused, events.DraftPausedPayload{
		DraftID:  draft.ID.String(),
		PausedAt: now,
		Reason:   reason,
	})
	return nil
}

// ResumeDraft returns a paused session to IN_PROGRESS and re-announces the
// team on the clock.
func (e *Engine) ResumeDraft(ctx context.Context, sessionID uuid.UUID) (*models.Draft, error) {
	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if draft.Status != models.DraftStatusPaused {
		return nil, fmt.Errorf("session %s is %s, only %s sessions can resume", sessionID, draft.Status, models.DraftStatusPaused)
	}
	now := e.clock.Now().UTC()
	draft.Status = models.DraftStatusInProgress
	draft.UpdatedAt = now
	if err := e.sessions.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.logger.Info().Str("draft_id", draft.ID.String()).Msg("draft resumed")

	e.writeEvent(ctx, draft.ID, events.TypeDraftResumed, events.DraftResumedPayload{
		DraftID:   draft.ID.String(),
		ResumedAt: now,
	})
	e.announceOnClock(ctx, draft)
	return draft, nil
}

// AbandonDraft terminates a session from any non-terminal state.
func (e *Engine) AbandonDraft(ctx context.Context, sessionID uuid.UUID) (*models.Draft, error) {
	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := validateTransition(draft.Status, models.DraftStatusAbandoned); err != nil {
		return nil, err
	}
	draft.Status = models.DraftStatusAbandoned
	draft.UpdatedAt = e.clock.Now().UTC()
	if err := e.sessions.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	e.logger.Info().Str("draft_id", draft.ID.String()).Msg("draft abandoned")
	return draft, nil
}

// TeamRoster rebuilds a team's roster occupancy from the pick log.
func (e *Engine) TeamRoster(ctx context.Context, sessionID, teamID uuid.UUID) ([]models.RosterSlot, error) {
	picks, err := e.picks.ListPicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	alloc, err := roster.Rebuild(e.quota, e.th, teamID, picks)
	if err != nil {
		return nil, fmt.Errorf("rebuild roster: %w", err)
	}
	return alloc.Slots(), nil
}

// AvailableCandidates returns the undrafted working set for a session,
// suitable for presenting a human drafter with a pick list.
func (e *Engine) AvailableCandidates(ctx context.Context, sessionID uuid.UUID) ([]models.Candidate, error) {
	draft, err := e.sessions.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	picks, err := e.picks.ListPicks(ctx, draft.ID)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	p, err := e.poolFor(ctx, draft)
	if err != nil {
		return nil, err
	}

	teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
	if err != nil {
		// Past the final pick; nothing left to list.
		return nil, nil
	}
	alloc, err := roster.Rebuild(e.quota, e.th, teamID, picks)
	if err != nil {
		return nil, fmt.Errorf("rebuild roster: %w", err)
	}
	return p.WorkingSet(pool.ExclusionsFromLog(picks), e.pq, alloc.OpenPositions()), nil
}
