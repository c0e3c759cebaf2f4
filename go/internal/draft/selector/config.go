package selector

import (
	"github.com/pennant-sim/pennant/go/internal/models"
)

// Config holds the selection tuning knobs. All of these are product-tuned
// parameters loaded from the engine config file; the defaults below are a
// reasonable starting point, not gospel.
type Config struct {
	// ScarcityWeights is each slot position's base weight. Weights express
	// how hard the position is to fill; 1.0 is neutral.
	ScarcityWeights map[models.SlotPosition]float64 `yaml:"scarcity_weights"`

	// EarlyRounds/LateRounds bound the round-based scarcity adjustment:
	// through EarlyRounds the deviation from neutral is damped by
	// EarlyDampPct (raw talent dominates while bench flexibility is
	// highest); from LateRounds on it is boosted by LateBoostPct (remaining
	// needs take over as the roster fills). The percentage scales the base
	// weight's deviation, it never replaces the weight.
	EarlyRounds  int     `yaml:"early_rounds"`
	LateRounds   int     `yaml:"late_rounds"`
	EarlyDampPct float64 `yaml:"early_damp_pct"`
	LateBoostPct float64 `yaml:"late_boost_pct"`

	// Workload thresholds. Hitters measure by PA (or AB fallback), pitchers
	// by outs; the multiplier treatment is identical for both.
	HitterLowPA    int     `yaml:"hitter_low_pa"`
	HitterHighPA   int     `yaml:"hitter_high_pa"`
	PitcherLowOuts int     `yaml:"pitcher_low_outs"`
	PitcherHighOuts int    `yaml:"pitcher_high_outs"`
	LowVolumeMult  float64 `yaml:"low_volume_mult"`
	HighVolumeMult float64 `yaml:"high_volume_mult"`

	// Platoon bonuses apply to position players only.
	MinorityHandBonus float64 `yaml:"minority_hand_bonus"`
	SwitchHitterBonus float64 `yaml:"switch_hitter_bonus"`

	// JitterSpread is the half-width of the multiplicative perturbation,
	// e.g. 0.04 jitters scores by up to ±4%. Zero disables jitter.
	JitterSpread float64 `yaml:"jitter_spread"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ScarcityWeights: map[models.SlotPosition]float64{
			models.SlotCatcher:    1.25,
			models.SlotShortstop:  1.15,
			models.SlotSecondBase: 1.10,
			models.SlotThirdBase:  1.05,
			models.SlotOutfield:   1.00,
			models.SlotFirstBase:  0.95,
			models.SlotDH:         0.90,
			models.SlotStarter:    1.10,
			models.SlotCloser:     1.05,
			models.SlotReliever:   1.00,
			models.SlotBench:      0.60,
		},
		EarlyRounds:     3,
		LateRounds:      12,
		EarlyDampPct:    0.5,
		LateBoostPct:    0.5,
		HitterLowPA:     300,
		HitterHighPA:    650,
		PitcherLowOuts:  250,
		PitcherHighOuts: 650,
		LowVolumeMult:   0.85,
		HighVolumeMult:  1.10,
		MinorityHandBonus: 1.03,
		SwitchHitterBonus: 1.06,
		JitterSpread:      0.04,
	}
}

// scarcityWeight is the position's base weight with the round adjustment
// applied to its deviation from neutral.
func (c Config) scarcityWeight(pos models.SlotPosition, round int) float64 {
	base, ok := c.ScarcityWeights[pos]
	if !ok {
		base = 1.0
	}
	dev := base - 1.0
	switch {
	case round <= c.EarlyRounds:
		dev *= 1 - c.EarlyDampPct
	case round >= c.LateRounds:
		dev *= 1 + c.LateBoostPct
	}
	return 1.0 + dev
}

// volumeMultiplier rewards full-workload seasons and penalizes token ones,
// by the category of the slot being filled.
func (c Config) volumeMultiplier(cand *models.Candidate, pos models.SlotPosition) float64 {
	var vol, low, high int
	if pos.IsPitcherSlot() {
		vol, low, high = cand.OutsPitched, c.PitcherLowOuts, c.PitcherHighOuts
	} else {
		vol, low, high = cand.PAOrAB(), c.HitterLowPA, c.HitterHighPA
	}
	switch {
	case vol < low:
		return c.LowVolumeMult
	case vol > high:
		return c.HighVolumeMult
	default:
		return 1.0
	}
}

// platoonBonus favors handedness the roster is short on. Pitcher slots get
// no bonus.
func (c Config) platoonBonus(cand *models.Candidate, pos models.SlotPosition, bats BatsCount) float64 {
	if pos.IsPitcherSlot() {
		return 1.0
	}
	switch cand.Bats {
	case models.BatsSwitch:
		return c.SwitchHitterBonus
	case models.BatsLeft:
		if bats.Left < bats.Right {
			return c.MinorityHandBonus
		}
	case models.BatsRight:
		if bats.Right < bats.Left {
			return c.MinorityHandBonus
		}
	}
	return 1.0
}
