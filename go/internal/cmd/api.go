package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// api exposes the draft engine over JSON. Routes mutate through the engine
// only; the repositories back the read paths.
type api struct {
	services *Services
	logger   zerolog.Logger
}

func newAPI(services *Services, logger zerolog.Logger) *api {
	return &api{services: services, logger: logger.With().Str("component", "api").Logger()}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drafts", a.createDraft)
	mux.HandleFunc("GET /api/drafts/{id}", a.getDraft)
	mux.HandleFunc("GET /api/drafts/{id}/teams", a.listTeams)
	mux.HandleFunc("GET /api/drafts/{id}/picks", a.listPicks)
	mux.HandleFunc("GET /api/drafts/{id}/candidates", a.listCandidates)
	mux.HandleFunc("GET /api/drafts/{id}/teams/{teamID}/roster", a.teamRoster)

	mux.HandleFunc("POST /api/drafts/{id}/start", a.startDraft)
	mux.HandleFunc("POST /api/drafts/{id}/pause", a.pauseDraft)
	mux.HandleFunc("POST /api/drafts/{id}/resume", a.resumeDraft)
	mux.HandleFunc("POST /api/drafts/{id}/abandon", a.abandonDraft)

	mux.HandleFunc("POST /api/drafts/{id}/picks", a.humanPick)
	mux.HandleFunc("POST /api/drafts/{id}/picks/cpu", a.cpuPick)
}

type createTeamSpec struct {
	Name    string             `json:"name"`
	Control models.ControlMode `json:"control"`
}

type createDraftRequest struct {
	Rounds         int                 `json:"rounds"`
	TimePerPickSec int                 `json:"time_per_pick_sec"`
	SeasonFilter   models.SeasonFilter `json:"season_filter"`
	Teams          []createTeamSpec    `json:"teams"`
}

type createDraftResponse struct {
	Draft *models.Draft `json:"draft"`
	Teams []models.Team `json:"teams"`
}

func (a *api) createDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Rounds <= 0 {
		a.writeError(w, http.StatusBadRequest, errors.New("rounds must be greater than 0"))
		return
	}
	if len(req.Teams) < 2 {
		a.writeError(w, http.StatusBadRequest, errors.New("at least 2 teams are required"))
		return
	}

	draftID := uuid.New()
	teams := make([]models.Team, len(req.Teams))
	order := make([]uuid.UUID, len(req.Teams))
	for i, t := range req.Teams {
		control := t.Control
		if control == "" {
			control = models.ControlModeCPU
		}
		if control != models.ControlModeHuman && control != models.ControlModeCPU {
			a.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown control mode %q", t.Control))
			return
		}
		teams[i] = models.Team{
			ID:            uuid.New(),
			DraftID:       draftID,
			Name:          t.Name,
			Control:       control,
			DraftPosition: i + 1,
		}
		order[i] = teams[i].ID
	}

	draft, err := a.services.Drafts.CreateDraftWithTeams(r.Context(), repository.CreateDraftRequest{
		ID: draftID,
		Settings: models.DraftSettings{
			Rounds:         req.Rounds,
			DraftOrder:     order,
			SeasonFilter:   req.SeasonFilter,
			TimePerPickSec: req.TimePerPickSec,
		},
	}, teams)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	a.logger.Info().
		Str("draft_id", draftID.String()).
		Int("rounds", req.Rounds).
		Int("teams", len(teams)).
		Msg("draft created")
	a.writeJSON(w, http.StatusCreated, createDraftResponse{Draft: draft, Teams: teams})
}

func (a *api) getDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	draft, err := a.services.Drafts.GetDraft(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	a.writeJSON(w, http.StatusOK, draft)
}

func (a *api) listTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	teams, err := a.services.Teams.GetTeamsByDraft(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}
	a.writeJSON(w, http.StatusOK, teams)
}

func (a *api) listPicks(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	picks, err := a.services.Picks.ListPicks(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if picks == nil {
		picks = []models.DraftPick{}
	}
	a.writeJSON(w, http.StatusOK, picks)
}

func (a *api) listCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	candidates, err := a.services.Engine.AvailableCandidates(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	a.writeJSON(w, http.StatusOK, candidates)
}

func (a *api) teamRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	teamID, ok := a.pathUUID(w, r, "teamID")
	if !ok {
		return
	}
	roster, err := a.services.Engine.TeamRoster(r.Context(), id, teamID)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, roster)
}

func (a *api) startDraft(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(id uuid.UUID) (*models.Draft, error) {
		draft, err := a.services.Engine.StartDraft(r.Context(), id)
		if err == nil {
			a.services.Orchestrator.NudgeSession(id)
		}
		return draft, err
	})
}

func (a *api) pauseDraft(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(id uuid.UUID) (*models.Draft, error) {
		return a.services.Engine.PauseDraft(r.Context(), id, "paused by request")
	})
}

func (a *api) resumeDraft(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(id uuid.UUID) (*models.Draft, error) {
		draft, err := a.services.Engine.ResumeDraft(r.Context(), id)
		if err == nil {
			a.services.Orchestrator.NudgeSession(id)
		}
		return draft, err
	})
}

func (a *api) abandonDraft(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(id uuid.UUID) (*models.Draft, error) {
		return a.services.Engine.AbandonDraft(r.Context(), id)
	})
}

func (a *api) transition(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID) (*models.Draft, error)) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	draft, err := fn(id)
	if err != nil {
		a.writeError(w, http.StatusConflict, err)
		return
	}
	a.writeJSON(w, http.StatusOK, draft)
}

type humanPickRequest struct {
	TeamID      uuid.UUID           `json:"team_id"`
	OverallPick int                 `json:"overall_pick"`
	SeasonID    uuid.UUID           `json:"season_id"`
	Position    models.SlotPosition `json:"position"`
	SlotIndex   int                 `json:"slot_index"`
}

func (a *api) humanPick(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req humanPickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	result, err := a.services.Engine.RequestHumanPick(r.Context(), engine.HumanPickRequest{
		SessionID:   id,
		TeamID:      req.TeamID,
		OverallPick: req.OverallPick,
		SeasonID:    req.SeasonID,
		Position:    req.Position,
		SlotIndex:   req.SlotIndex,
	})
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if result.Outcome == engine.OutcomeCommitted && !result.Completed {
		a.services.Orchestrator.NudgeSession(id)
	}
	a.writeJSON(w, outcomeStatus(result.Outcome), result)
}

func (a *api) cpuPick(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := a.services.Engine.RequestCPUPick(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if result.Outcome == engine.OutcomeCommitted && !result.Completed {
		a.services.Orchestrator.NudgeSession(id)
	}
	a.writeJSON(w, outcomeStatus(result.Outcome), result)
}

// outcomeStatus maps engine outcomes to HTTP statuses. Rejections are
// conflicts, not server errors: the request was understood and answered.
func outcomeStatus(outcome engine.Outcome) int {
	switch outcome {
	case engine.OutcomeCommitted, engine.OutcomeDuplicate:
		return http.StatusOK
	case engine.OutcomeNotYourTurn, engine.OutcomeSlotTaken, engine.OutcomeIneligible, engine.OutcomePoolExhausted:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (a *api) pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", key, err))
		return uuid.Nil, false
	}
	return id, true
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Msg("request failed")
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
