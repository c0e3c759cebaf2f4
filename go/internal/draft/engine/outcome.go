package engine

import (
	"time"

	"github.com/pennant-sim/pennant/go/internal/models"
)

// Outcome is the typed result of a pick request. Every rejected request
// carries one; nothing is swallowed silently.
type Outcome string

const (
	// OutcomeCommitted: the pick was durably written by this request.
	OutcomeCommitted Outcome = "COMMITTED"
	// OutcomeDuplicate: the pick was already committed (or a commit for this
	// session is in flight). Safe to treat as success or to retry shortly;
	// Result.Pick is set when the existing pick is known.
	OutcomeDuplicate Outcome = "DUPLICATE"
	// OutcomeNotYourTurn: the targeted pick number or team does not match the
	// session's current pick. Session state unchanged.
	OutcomeNotYourTurn Outcome = "NOT_YOUR_TURN"
	// OutcomeSlotTaken: the target roster slot filled between selection and
	// commit. Session state unchanged.
	OutcomeSlotTaken Outcome = "SLOT_TAKEN"
	// OutcomeIneligible: the candidate cannot legally occupy the target slot,
	// or was already drafted.
	OutcomeIneligible Outcome = "INELIGIBLE"
	// OutcomePoolExhausted: open roster slots remain but no eligible candidate
	// does. Distinct from a complete roster, which is normal completion.
	OutcomePoolExhausted Outcome = "POOL_EXHAUSTED"
	// OutcomeError: the session is not accepting commits, or an unrecoverable
	// failure occurred. Result.Reason explains.
	OutcomeError Outcome = "ERROR"
)

// Result is the engine's answer to a pick request.
type Result struct {
	Outcome   Outcome           `json:"outcome"`
	Pick      *models.DraftPick `json:"pick,omitempty"`
	Completed bool              `json:"completed,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// RetryPolicy bounds commit retries against transient store failures.
// Delays double per attempt up to MaxDelay; exhausting MaxAttempts pauses
// the session instead of looping.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// DefaultRetryPolicy matches the tuning shipped in config/engine.yaml.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Delay returns the backoff before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
