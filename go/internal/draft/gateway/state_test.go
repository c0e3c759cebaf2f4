package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pennant-sim/pennant/go/internal/draft/gateway"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/models"
)

func seedDraftState(t *testing.T) (*repository.MemoryStore, *models.Draft, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	teams := []uuid.UUID{uuid.New(), uuid.New()}
	draft := &models.Draft{
		ID:     uuid.New(),
		Status: models.DraftStatusInProgress,
		Settings: models.DraftSettings{
			Rounds:       2,
			DraftOrder:   teams,
			SeasonFilter: models.SeasonFilter{FromYear: 1900, ToYear: 2000},
		},
		CurrentPick:  2,
		CurrentRound: 1,
	}
	if err := store.SaveDraft(ctx, draft); err != nil {
		t.Fatal(err)
	}
	for i, id := range teams {
		err := store.CreateTeam(ctx, models.Team{
			ID: id, DraftID: draft.ID, Name: []string{"Aces", "Barons"}[i],
			Control: models.ControlModeCPU, DraftPosition: i + 1,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	ref := "ref-001"
	season := uuid.New()
	idx := 0
	now := time.Now()
	_, err := store.AppendPick(ctx, models.DraftPick{
		ID: uuid.New(), DraftID: draft.ID, Round: 1, Pick: 1, OverallPick: 1,
		TeamID: teams[0], SeasonID: &season, PlayerRef: &ref,
		Position: models.SlotCatcher, SlotIndex: &idx, PickedAt: &now,
	})
	if err != nil {
		t.Fatal(err)
	}
	return store, draft, teams
}

func TestDraftStateSnapshot(t *testing.T) {
	store, draft, teams := seedDraftState(t)
	provider := gateway.NewStoreStateProvider(store, store, store)

	state, err := provider.GetDraftState(context.Background(), draft.ID)
	if err != nil {
		t.Fatal(err)
	}

	if state.Status != string(models.DraftStatusInProgress) {
		t.Errorf("status = %s", state.Status)
	}
	if state.TotalPicks != 4 || state.CompletedPicks != 1 {
		t.Errorf("picks = %d/%d, want 1/4", state.CompletedPicks, state.TotalPicks)
	}
	if state.CurrentPick == nil {
		t.Fatal("expected a current pick")
	}
	if state.CurrentPick.TeamID != teams[1].String() {
		t.Errorf("team on clock = %s, want second team", state.CurrentPick.TeamName)
	}
	if state.CurrentPick.TeamName != "Barons" {
		t.Errorf("team name = %q", state.CurrentPick.TeamName)
	}
	if len(state.RecentPicks) != 1 || state.RecentPicks[0].PlayerRef != "ref-001" {
		t.Errorf("recent picks = %+v", state.RecentPicks)
	}
}

func TestActiveDraftsList(t *testing.T) {
	store, draft, _ := seedDraftState(t)
	provider := gateway.NewStoreStateProvider(store, store, store)

	summaries, err := provider.GetActiveDrafts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].DraftID != draft.ID.String() {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	draftID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := cm.UpgradeConnection(w, r, "tester", draftID); err != nil {
			t.Errorf("upgrade: %v", err)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Registration races the broadcast; wait for the pool to show up.
	deadline := time.Now().Add(2 * time.Second)
	for cm.ConnectionStats().TotalConnections == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cm.BroadcastToDraft(draftID, &gateway.DraftEvent{
		ID:      uuid.New().String(),
		DraftID: draftID.String(),
		Type:    gateway.EventTypePickCommitted,
		Data:    []byte(`{"overall_pick":1}`),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(frame), string(gateway.EventTypePickCommitted)) {
		t.Fatalf("frame = %s", frame)
	}
}
