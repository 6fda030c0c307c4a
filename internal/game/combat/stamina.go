package combat

import (
	"math"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// RegenRate returns passive stamina regen per tick for a speed stat.
//
// Postcondition: result is in [RegenLow, RegenHigh] for speed in [0,100].
func RegenRate(speed int) float64 {
	return geom.Lerp(RegenLow, RegenHigh, norm(speed))
}

// AttackCost returns the stamina cost of a basic attack.
//
// Postcondition: result is in [MinAttackCost, MaxAttackCost].
func AttackCost(w genome.WeaponProfile, fury int) float64 {
	return geom.Clamp(w.CostBase+w.CostFury*norm(fury), MinAttackCost, MaxAttackCost)
}

// stateRegenBonus reports whether the fighter's AI state grants the
// recovery bonus this tick.
func (f *Fighter) stateRegenBonus() bool {
	return f.AIState == StateCircling || f.AIState == StateRetreating
}

// attached reports whether the fighter is a wallcrawler holding a surface.
func (f *Fighter) attached() bool {
	return f.Mobility == genome.MobilityWallcrawler && f.Surface != geom.SurfaceNone
}

// regenerate adds one tick of passive regen. The state bonus and the
// attachment bonus compound.
//
// Postcondition: 0 <= stamina <= staminaMax.
func (f *Fighter) regenerate(t Tuning) float64 {
	amount := RegenRate(f.Genome.Stats.Speed)
	if f.stateRegenBonus() {
		amount *= t.RegenBonus
	}
	if f.attached() {
		amount *= t.AttachRegenBonus
	}
	before := f.stamina
	f.stamina = math.Min(f.staminaMax, f.stamina+amount)
	return f.stamina - before
}

// trySpend deducts cost if the fighter can afford it.
//
// Postcondition: Returns false and leaves stamina unchanged when cost > stamina;
// otherwise stamina decreases by cost and true is returned.
func (f *Fighter) trySpend(cost float64) bool {
	if cost > f.stamina {
		return false
	}
	f.stamina -= cost
	return true
}

// speedScale is the movement multiplier from stamina. Below LowStaminaRatio it
// falls linearly to the exhausted floor.
//
// Postcondition: result is in [t.ExhaustedSpeedFloor, 1].
func (f *Fighter) speedScale(t Tuning) float64 {
	ratio := f.StaminaRatio()
	if ratio >= LowStaminaRatio {
		return 1
	}
	return math.Max(ratio/LowStaminaRatio, t.ExhaustedSpeedFloor)
}

// maxSpeed returns the fighter's current top speed in units per tick.
func (f *Fighter) maxSpeed(t Tuning) float64 {
	return geom.Lerp(t.SpeedLow, t.SpeedHigh, norm(f.Genome.Stats.Speed)) * f.speedScale(t)
}
