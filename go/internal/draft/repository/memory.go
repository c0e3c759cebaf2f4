package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// MemoryStore is an in-memory implementation of the engine's stores. It
// enforces the same (draft, overall pick) uniqueness the Postgres schema
// does, so the commit protocol behaves identically under test. FailAppends
// makes the next N appends return a transient error, for exercising the
// retry path.
type MemoryStore struct {
	mu          sync.Mutex
	drafts      map[uuid.UUID]models.Draft
	picks       map[uuid.UUID]map[int]models.DraftPick
	teams       map[uuid.UUID][]models.Team
	deadlines   map[uuid.UUID]time.Time
	events      []MemoryEvent
	failAppends int
	clock       clockwork.Clock
}

// MemoryEvent is one recorded outbox write.
type MemoryEvent struct {
	DraftID   uuid.UUID
	EventType string
	Payload   any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:    make(map[uuid.UUID]models.Draft),
		picks:     make(map[uuid.UUID]map[int]models.DraftPick),
		teams:     make(map[uuid.UUID][]models.Team),
		deadlines: make(map[uuid.UUID]time.Time),
		clock:     clockwork.NewRealClock(),
	}
}

// WithClock swaps the clock used for deadline queries. Tests pair this with
// the fake clock driving the orchestrator.
func (m *MemoryStore) WithClock(clock clockwork.Clock) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
	return m
}

func (m *MemoryStore) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft %s not found", id)
	}
	return &d, nil
}

func (m *MemoryStore) SaveDraft(ctx context.Context, draft *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draft.ID] = *draft
	return nil
}

func (m *MemoryStore) ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Draft
	for _, d := range m.drafts {
		if d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *MemoryStore) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := m.picks[draftID]
	out := make([]models.DraftPick, 0, len(log))
	for _, p := range log {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverallPick < out[j].OverallPick })
	return out, nil
}

func (m *MemoryStore) GetPick(ctx context.Context, draftID uuid.UUID, overallPick int) (*models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.picks[draftID][overallPick]
	if !ok {
		return nil, fmt.Errorf("pick %d for draft %s not found", overallPick, draftID)
	}
	return &p, nil
}

func (m *MemoryStore) AppendPick(ctx context.Context, pick models.DraftPick) (engine.AppendOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppends > 0 {
		m.failAppends--
		return 0, fmt.Errorf("simulated transient store failure")
	}
	log, ok := m.picks[pick.DraftID]
	if !ok {
		log = make(map[int]models.DraftPick)
		m.picks[pick.DraftID] = log
	}
	if _, exists := log[pick.OverallPick]; exists {
		return engine.AppendDuplicate, nil
	}
	log[pick.OverallPick] = pick
	return engine.AppendCommitted, nil
}

func (m *MemoryStore) WriteEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, MemoryEvent{DraftID: draftID, EventType: eventType, Payload: payload})
	return nil
}

// Events returns a copy of all recorded outbox writes.
func (m *MemoryStore) Events() []MemoryEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MemoryEvent(nil), m.events...)
}

// FailNextAppends makes the next n AppendPick calls fail.
func (m *MemoryStore) FailNextAppends(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAppends = n
}

func (m *MemoryStore) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *NextDeadline
	for id, dl := range m.deadlines {
		d, ok := m.drafts[id]
		if !ok || d.Status != models.DraftStatusInProgress {
			continue
		}
		if best == nil || dl.Before(*best.Deadline) {
			t := dl
			best = &NextDeadline{DraftID: id, Deadline: &t}
		}
	}
	return best, nil
}

func (m *MemoryStore) FetchDraftsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	var due []uuid.UUID
	for id, dl := range m.deadlines {
		if int32(len(due)) >= limit {
			break
		}
		d, ok := m.drafts[id]
		if !ok || d.Status != models.DraftStatusInProgress {
			continue
		}
		if !dl.After(now) {
			due = append(due, id)
		}
	}
	return due, nil
}

func (m *MemoryStore) UpdateNextDeadline(ctx context.Context, draftID uuid.UUID, deadline *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deadline == nil {
		delete(m.deadlines, draftID)
		return nil
	}
	m.deadlines[draftID] = *deadline
	return nil
}

func (m *MemoryStore) CreateTeam(ctx context.Context, team models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[team.DraftID] = append(m.teams[team.DraftID], team)
	return nil
}

func (m *MemoryStore) GetTeamsByDraft(ctx context.Context, draftID uuid.UUID) ([]models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	teams := append([]models.Team(nil), m.teams[draftID]...)
	sort.Slice(teams, func(i, j int) bool { return teams[i].DraftPosition < teams[j].DraftPosition })
	return teams, nil
}

// MemoryCandidateSource serves a fixed candidate list with real pagination,
// rating descending within each category.
type MemoryCandidateSource struct {
	mu         sync.Mutex
	candidates []models.Candidate
}

func NewMemoryCandidateSource(candidates []models.Candidate) *MemoryCandidateSource {
	return &MemoryCandidateSource{candidates: append([]models.Candidate(nil), candidates...)}
}

func (s *MemoryCandidateSource) ListCandidates(ctx context.Context, filter models.SeasonFilter, category pool.Category, limit, offset int) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Candidate
	for _, c := range s.candidates {
		if c.SeasonYear < filter.FromYear || c.SeasonYear > filter.ToYear {
			continue
		}
		if (category == pool.CategoryPitchers) != c.Position.IsPitcher() {
			continue
		}
		matched = append(matched, c)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}
