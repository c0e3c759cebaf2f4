// Package selector implements the automated pick choice: best player
// available across every open roster position, weighted by position
// scarcity, season workload, and lineup handedness balance.
package selector

import (
	"errors"
	"math/rand"

	"github.com/pennant-sim/pennant/go/internal/draft/roster"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// ErrPoolExhausted means open roster slots remain but no candidate in the
// supplied set can legally fill any of them. Distinct from roster completion,
// which Select reports as (nil, nil).
var ErrPoolExhausted = errors.New("no eligible candidate for any open roster slot")

// Result is one resolved automated choice.
type Result struct {
	Candidate models.Candidate
	Position  models.SlotPosition
	SlotIndex int
	Score     float64
}

// BatsCount tallies the batting handedness already on a team's roster,
// feeding the platoon bonus.
type BatsCount struct {
	Left  int
	Right int
}

// Engine scores candidates. The rng drives only the jitter factor; a fixed
// seed reproduces the full pick sequence.
type Engine struct {
	cfg Config
	rng *rand.Rand
}

// New builds an engine with its own seeded rng.
func New(cfg Config, seed int64) *Engine {
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Select returns the best choice for a team, or (nil, nil) when the roster
// is already complete, or ErrPoolExhausted when open slots remain but no
// supplied candidate fits any of them.
func (e *Engine) Select(candidates []models.Candidate, alloc *roster.Allocator, round int, bats BatsCount) (*Result, error) {
	if alloc.Complete() {
		return nil, nil
	}

	var best *Result
	var bestJittered float64
	for i := range candidates {
		c := &candidates[i]
		pos, idx, ok := alloc.TargetFor(c)
		if !ok {
			continue
		}

		score := c.Rating *
			e.cfg.scarcityWeight(pos, round) *
			e.cfg.volumeMultiplier(c, pos) *
			e.cfg.platoonBonus(c, pos, bats)
		jittered := score * e.jitter()

		if best == nil || better(jittered, c, bestJittered, &best.Candidate) {
			best = &Result{Candidate: *c, Position: pos, SlotIndex: idx, Score: score}
			bestJittered = jittered
		}
	}

	if best == nil {
		return nil, ErrPoolExhausted
	}
	return best, nil
}

// better implements the deterministic tie-break: higher jittered score, then
// higher raw rating, then stable input order (the incumbent wins ties).
func better(score float64, c *models.Candidate, bestScore float64, bestC *models.Candidate) bool {
	if score != bestScore {
		return score > bestScore
	}
	return c.Rating > bestC.Rating
}

func (e *Engine) jitter() float64 {
	if e.cfg.JitterSpread <= 0 {
		return 1
	}
	return 1 + (e.rng.Float64()*2-1)*e.cfg.JitterSpread
}
