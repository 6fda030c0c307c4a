package combat

import "math"

// SuddenDeathRule decides the damage multiplier once a fight has stalled long
// enough to force a resolution. level is 1 when sudden death is first declared
// and grows by one per further stalemate escalation.
type SuddenDeathRule interface {
	Multiplier(stalledTicks int64, level int) float64
}

// EscalatingRule is the built-in SuddenDeathRule: Base at the first level,
// growing by Step per further level up to Max.
type EscalatingRule struct {
	Base float64
	Step float64
	Max  float64
}

// DefaultSuddenDeathRule returns the shipped escalation.
func DefaultSuddenDeathRule() EscalatingRule {
	return EscalatingRule{Base: 1.5, Step: 0.25, Max: 3}
}

// Multiplier implements SuddenDeathRule.
//
// Postcondition: result is in [1, max(1, r.Max)].
func (r EscalatingRule) Multiplier(_ int64, level int) float64 {
	if level < 1 {
		level = 1
	}
	m := r.Base + r.Step*float64(level-1)
	return math.Max(1, math.Min(m, r.Max))
}
