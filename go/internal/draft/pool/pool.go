// Package pool holds the season records eligible for a draft and hands the
// selection engine a bounded, deduplicated working set.
package pool

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Category splits the pool into the two candidate views.
type Category string

const (
	CategoryHitters  Category = "HITTERS"
	CategoryPitchers Category = "PITCHERS"
)

// CandidateSource is the external season-record store. Implementations must
// honor limit/offset paging; the loader keeps paging until a short page so no
// fixed row cap silently truncates the pool.
type CandidateSource interface {
	ListCandidates(ctx context.Context, filter models.SeasonFilter, category Category, limit, offset int) ([]models.Candidate, error)
}

// Quotas are the reserved working-set sizes per category.
type Quotas struct {
	Hitters  int `yaml:"hitters"`
	Pitchers int `yaml:"pitchers"`
}

// DefaultQuotas returns the stock working-set reservation.
func DefaultQuotas() Quotas {
	return Quotas{Hitters: 200, Pitchers: 150}
}

// Validate checks the bounded-pool sufficiency precondition: each category's
// reservation must exceed numTeams times the largest per-team demand in that
// category, otherwise late rounds can starve.
func (q Quotas) Validate(numTeams int, quota models.RosterQuota) error {
	var hitterDemand, pitcherDemand int
	for _, e := range quota {
		if e.Position.IsPitcherSlot() {
			pitcherDemand += e.Count
		} else {
			hitterDemand += e.Count
		}
	}
	if q.Hitters <= numTeams*hitterDemand {
		return fmt.Errorf("hitter quota %d too small for %d teams needing %d hitters each", q.Hitters, numTeams, hitterDemand)
	}
	if q.Pitchers <= numTeams*pitcherDemand {
		return fmt.Errorf("pitcher quota %d too small for %d teams needing %d pitchers each", q.Pitchers, numTeams, pitcherDemand)
	}
	return nil
}

// Pool is the read-only candidate pool for one draft. Safe for concurrent
// readers once loaded.
type Pool struct {
	hitters  []models.Candidate // rating desc
	pitchers []models.Candidate // rating desc
	bySeason map[uuid.UUID]*models.Candidate
	th       eligibility.Thresholds
}

const loadPageSize = 1000

// Load pages the full candidate set for a season filter out of the source.
// Position codes are validated at ingestion; a bad code fails the load
// rather than silently dropping out of eligibility checks later. Two-way
// candidates land in both category views.
func Load(ctx context.Context, src CandidateSource, filter models.SeasonFilter, th eligibility.Thresholds) (*Pool, error) {
	p := &Pool{
		bySeason: make(map[uuid.UUID]*models.Candidate),
		th:       th,
	}

	for _, cat := range []Category{CategoryHitters, CategoryPitchers} {
		offset := 0
		for {
			page, err := src.ListCandidates(ctx, filter, cat, loadPageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("list %s page at offset %d: %w", cat, offset, err)
			}
			for _, c := range page {
				if _, err := models.ParsePosition(string(c.Position)); err != nil {
					return nil, fmt.Errorf("candidate %s (%s): %w", c.SeasonID, c.Name, err)
				}
				p.add(cat, c)
			}
			if len(page) < loadPageSize {
				break
			}
			offset += len(page)
		}
	}

	// Sources are expected to return rating-descending order; sort anyway so
	// a misordered source cannot corrupt the working-set truncation.
	byRating := func(s []models.Candidate) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Rating > s[j].Rating })
	}
	byRating(p.hitters)
	byRating(p.pitchers)

	log.Debug().
		Int("hitters", len(p.hitters)).
		Int("pitchers", len(p.pitchers)).
		Int("from_year", filter.FromYear).
		Int("to_year", filter.ToYear).
		Msg("candidate pool loaded")
	return p, nil
}

func (p *Pool) add(cat Category, c models.Candidate) {
	if prev, ok := p.bySeason[c.SeasonID]; ok {
		// Two-way seasons come back from both category queries; keep one
		// record and make sure it sits in both views.
		c = *prev
	} else {
		stored := c
		p.bySeason[c.SeasonID] = &stored
	}
	switch cat {
	case CategoryHitters:
		if !containsSeason(p.hitters, c.SeasonID) {
			p.hitters = append(p.hitters, c)
		}
	case CategoryPitchers:
		if !containsSeason(p.pitchers, c.SeasonID) {
			p.pitchers = append(p.pitchers, c)
		}
	}
}

func containsSeason(s []models.Candidate, id uuid.UUID) bool {
	for i := range s {
		if s[i].SeasonID == id {
			return true
		}
	}
	return false
}

// Lookup returns the season record for an ID.
func (p *Pool) Lookup(seasonID uuid.UUID) (*models.Candidate, bool) {
	c, ok := p.bySeason[seasonID]
	return c, ok
}

// Size returns the view sizes (a two-way season counts in both).
func (p *Pool) Size() (hitters, pitchers int) {
	return len(p.hitters), len(p.pitchers)
}

// Exclusions are the dedup sets derived from the pick log. They are always
// rebuilt from the log, never stored, so they cannot diverge from it.
type Exclusions struct {
	PlayerRefs map[string]bool
	SeasonIDs  map[uuid.UUID]bool
}

// ExclusionsFromLog derives the drafted-player and drafted-season sets from
// committed picks. Drafting any season of a player excludes all of that
// player's seasons; the season set is the fallback for records with no
// resolvable persistent identity.
func ExclusionsFromLog(picks []models.DraftPick) Exclusions {
	ex := Exclusions{
		PlayerRefs: make(map[string]bool),
		SeasonIDs:  make(map[uuid.UUID]bool),
	}
	for i := range picks {
		p := &picks[i]
		if !p.Committed() {
			continue
		}
		ex.SeasonIDs[*p.SeasonID] = true
		if p.PlayerRef != nil && *p.PlayerRef != "" {
			ex.PlayerRefs[*p.PlayerRef] = true
		}
	}
	return ex
}

// Excluded reports whether a candidate is already drafted under either
// identity.
func (ex Exclusions) Excluded(c *models.Candidate) bool {
	if ex.SeasonIDs[c.SeasonID] {
		return true
	}
	return c.PlayerRef != "" && ex.PlayerRefs[c.PlayerRef]
}

// WorkingSet returns the bounded candidate set for one CPU selection: the
// top-rated undrafted hitters and pitchers up to the category quotas. If the
// truncation would leave a still-needed slot position with zero eligible
// candidates, the best eligible candidate from the full pool is appended, so
// truncation can never starve an open position while the pool has a legal
// fill for it.
func (p *Pool) WorkingSet(ex Exclusions, q Quotas, needed []models.SlotPosition) []models.Candidate {
	out := make([]models.Candidate, 0, q.Hitters+q.Pitchers)
	out = appendTop(out, p.hitters, ex, q.Hitters)
	out = appendTop(out, p.pitchers, ex, q.Pitchers)

	for _, slot := range needed {
		if p.hasEligible(out, slot) {
			continue
		}
		if c, ok := p.bestEligible(slot, ex, out); ok {
			out = append(out, *c)
		}
	}
	return out
}

func appendTop(dst, src []models.Candidate, ex Exclusions, limit int) []models.Candidate {
	n := 0
	for i := range src {
		if n >= limit {
			break
		}
		c := &src[i]
		if ex.Excluded(c) || containsSeason(dst, c.SeasonID) {
			continue
		}
		dst = append(dst, *c)
		n++
	}
	return dst
}

func (p *Pool) hasEligible(set []models.Candidate, slot models.SlotPosition) bool {
	for i := range set {
		if p.th.Eligible(slot, &set[i]) {
			return true
		}
	}
	return false
}

// bestEligible scans both full views for the highest-rated undrafted
// candidate eligible at the slot.
func (p *Pool) bestEligible(slot models.SlotPosition, ex Exclusions, already []models.Candidate) (*models.Candidate, bool) {
	var best *models.Candidate
	for _, view := range [][]models.Candidate{p.hitters, p.pitchers} {
		for i := range view {
			c := &view[i]
			if ex.Excluded(c) || containsSeason(already, c.SeasonID) {
				continue
			}
			if !p.th.Eligible(slot, c) {
				continue
			}
			// Views are rating-descending, so the first eligible hit is the
			// best this view offers.
			if best == nil || c.Rating > best.Rating {
				best = c
			}
			break
		}
	}
	return best, best != nil
}
