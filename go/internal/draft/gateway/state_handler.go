package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler serves draft snapshots over HTTP for clients joining
// mid-session.
type StateHandler struct {
	provider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{provider: provider}
}

// HandleDraftState serves GET /api/drafts/{id}/state.
func (h *StateHandler) HandleDraftState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path shape: /api/drafts/{id}/state
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "state" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	draftID, err := uuid.Parse(parts[2])
	if err != nil {
		http.Error(w, "invalid draft id", http.StatusBadRequest)
		return
	}

	state, err := h.provider.GetDraftState(r.Context(), draftID)
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to build draft state")
		http.Error(w, "failed to load draft state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleActiveDrafts serves GET /api/drafts/active.
func (h *StateHandler) HandleActiveDrafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	drafts, err := h.provider.GetActiveDrafts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list active drafts")
		http.Error(w, "failed to list active drafts", http.StatusInternalServerError)
		return
	}
	if drafts == nil {
		drafts = []DraftSummary{}
	}

	writeJSON(w, http.StatusOK, drafts)
}

// RegisterStateRoutes wires the snapshot endpoints onto a mux.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/drafts/active", h.HandleActiveDrafts)
	mux.HandleFunc("/api/drafts/", h.HandleDraftState)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
