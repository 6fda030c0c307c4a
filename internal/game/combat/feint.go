package combat

import (
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// FeintOutcome is the target's reaction to a feint.
type FeintOutcome string

const (
	// FeintRead means the target saw through it; nothing happens.
	FeintRead FeintOutcome = "read"
	// FeintFlinch forces a brief stun on the target.
	FeintFlinch FeintOutcome = "flinch"
	// FeintDodge wastes the target's reaction and opens a follow-up window.
	FeintDodge FeintOutcome = "dodge"
)

// ReadChance returns the probability a target with the given instinct reads a feint.
//
// Postcondition: result is in [ReadChanceLow, ReadChanceHigh].
func ReadChance(instinct int) float64 {
	return geom.Lerp(ReadChanceLow, ReadChanceHigh, norm(instinct))
}

// ResolveFeintOutcome maps a single uniform draw u in [0,1) to exactly one outcome.
// The unit interval is split into read, then flinch, then dodge.
func ResolveFeintOutcome(u float64, targetInstinct int, t Tuning) FeintOutcome {
	read := ReadChance(targetInstinct)
	if u < read {
		return FeintRead
	}
	if u < read+(1-read)*t.FlinchShare {
		return FeintFlinch
	}
	return FeintDodge
}

// FeintChance returns the per-tick likelihood that an eligible fighter feints.
// High fury suppresses feints; instinct amplifies them while caution dominates.
//
// Postcondition: result is in [0,1].
func FeintChance(fury, instinct int, aggression, caution float64, t Tuning) float64 {
	p := t.FeintBaseChance * (1 - t.FeintFuryDamp*norm(fury))
	if caution >= aggression {
		p *= 1 + t.FeintInstinctGain*norm(instinct)
	}
	return geom.Clamp01(p)
}

// FeintCooldownTicks maps a uniform draw u in [0,1) to a cooldown in ticks.
//
// Postcondition: result is in [t.Ticks(FeintCooldownMin), t.Ticks(FeintCooldownMax)].
func FeintCooldownTicks(u float64, t Tuning) int {
	lo, hi := t.Ticks(t.FeintCooldownMin), t.Ticks(t.FeintCooldownMax)
	n := lo + int(u*float64(hi-lo+1))
	if n > hi {
		n = hi
	}
	if n < lo {
		n = lo
	}
	return n
}

// feintRange is the 3D distance inside which a feint can be telegraphed.
func feintRange(t Tuning) float64 { return t.EngageRange * t.FeintRangeFactor }
