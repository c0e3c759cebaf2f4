package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/draft/scheduler"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// StateProvider serves read-only draft snapshots for clients joining
// mid-session.
type StateProvider interface {
	GetDraftState(ctx context.Context, draftID uuid.UUID) (*DraftStateResponse, error)
	GetActiveDrafts(ctx context.Context) ([]DraftSummary, error)
}

// DraftStateResponse is the full snapshot a client needs to render a draft.
type DraftStateResponse struct {
	DraftID        string           `json:"draft_id"`
	Status         string           `json:"status"`
	CurrentPick    *CurrentPickInfo `json:"current_pick,omitempty"`
	RecentPicks    []RecentPickInfo `json:"recent_picks"`
	TotalPicks     int              `json:"total_picks"`
	CompletedPicks int              `json:"completed_picks"`
	Rounds         int              `json:"rounds"`
	NumTeams       int              `json:"num_teams"`
	TimePerPickSec int              `json:"time_per_pick_sec"`
}

// CurrentPickInfo describes the pick on the clock.
type CurrentPickInfo struct {
	TeamID      string     `json:"team_id"`
	TeamName    string     `json:"team_name"`
	Round       int        `json:"round"`
	Pick        int        `json:"pick"`
	OverallPick int        `json:"overall_pick"`
	TimeoutAt   *time.Time `json:"timeout_at,omitempty"`
}

// RecentPickInfo is one committed pick in the snapshot tail.
type RecentPickInfo struct {
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	PlayerRef   string    `json:"player_ref"`
	Position    string    `json:"position"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	OverallPick int       `json:"overall_pick"`
	PickedAt    time.Time `json:"picked_at"`
}

type DraftSummary struct {
	DraftID     string `json:"draft_id"`
	Status      string `json:"status"`
	CurrentPick int    `json:"current_pick"`
	TotalPicks  int    `json:"total_picks"`
	NumTeams    int    `json:"num_teams"`
}

const recentPickWindow = 10

// SessionReader is the gateway's read-only view of session storage.
type SessionReader interface {
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error)
	FetchNextDeadline(ctx context.Context) (*repository.NextDeadline, error)
}

type PickReader interface {
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
}

type TeamReader interface {
	GetTeamsByDraft(ctx context.Context, draftID uuid.UUID) ([]models.Team, error)
}

// StoreStateProvider builds snapshots straight from the repositories.
type StoreStateProvider struct {
	sessions SessionReader
	picks    PickReader
	teams    TeamReader
}

func NewStoreStateProvider(sessions SessionReader, picks PickReader, teams TeamReader) *StoreStateProvider {
	return &StoreStateProvider{sessions: sessions, picks: picks, teams: teams}
}

func (p *StoreStateProvider) GetDraftState(ctx context.Context, draftID uuid.UUID) (*DraftStateResponse, error) {
	draft, err := p.sessions.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	teams, err := p.teams.GetTeamsByDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("get teams: %w", err)
	}
	nameFor := make(map[uuid.UUID]string, len(teams))
	for _, t := range teams {
		nameFor[t.ID] = t.Name
	}

	picks, err := p.picks.ListPicks(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}

	resp := &DraftStateResponse{
		DraftID:        draftID.String(),
		Status:         string(draft.Status),
		RecentPicks:    []RecentPickInfo{},
		TotalPicks:     draft.TotalPicks(),
		CompletedPicks: len(picks),
		Rounds:         draft.Settings.Rounds,
		NumTeams:       draft.NumTeams(),
		TimePerPickSec: draft.Settings.TimePerPickSec,
	}

	start := len(picks) - recentPickWindow
	if start < 0 {
		start = 0
	}
	for _, pick := range picks[start:] {
		info := RecentPickInfo{
			TeamID:      pick.TeamID.String(),
			TeamName:    nameFor[pick.TeamID],
			Position:    string(pick.Position),
			Round:       pick.Round,
			Pick:        pick.Pick,
			OverallPick: pick.OverallPick,
		}
		if pick.PlayerRef != nil {
			info.PlayerRef = *pick.PlayerRef
		}
		if pick.PickedAt != nil {
			info.PickedAt = *pick.PickedAt
		}
		resp.RecentPicks = append(resp.RecentPicks, info)
	}

	if draft.Status == models.DraftStatusInProgress && draft.CurrentPick <= draft.TotalPicks() {
		teamID, err := scheduler.TeamOnClock(draft.CurrentPick, draft.Settings.DraftOrder)
		if err != nil {
			return nil, fmt.Errorf("resolve team on clock: %w", err)
		}
		current := &CurrentPickInfo{
			TeamID:      teamID.String(),
			TeamName:    nameFor[teamID],
			Round:       scheduler.RoundOf(draft.CurrentPick, draft.NumTeams()),
			Pick:        scheduler.PickInRound(draft.CurrentPick, draft.NumTeams()),
			OverallPick: draft.CurrentPick,
		}
		if nd, err := p.sessions.FetchNextDeadline(ctx); err == nil && nd != nil && nd.DraftID == draftID {
			current.TimeoutAt = nd.Deadline
		}
		resp.CurrentPick = current
	}

	return resp, nil
}

func (p *StoreStateProvider) GetActiveDrafts(ctx context.Context) ([]DraftSummary, error) {
	var summaries []DraftSummary
	for _, status := range []models.DraftStatus{models.DraftStatusInProgress, models.DraftStatusPaused} {
		drafts, err := p.sessions.ListDraftsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list %s drafts: %w", status, err)
		}
		for i := range drafts {
			d := &drafts[i]
			summaries = append(summaries, DraftSummary{
				DraftID:     d.ID.String(),
				Status:      string(d.Status),
				CurrentPick: d.CurrentPick,
				TotalPicks:  d.TotalPicks(),
				NumTeams:    d.NumTeams(),
			})
		}
	}
	return summaries, nil
}
