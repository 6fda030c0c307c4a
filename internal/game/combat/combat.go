// Package combat implements the per-tick fighter simulation: drives, stamina,
// the AI state machine, mobility tactics, feints and attack resolution.
package combat

import (
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// AIState is the high-level behavior a fighter is in.
type AIState string

const (
	StateAggressive AIState = "aggressive"
	StateCircling   AIState = "circling"
	StateRetreating AIState = "retreating"
	StateStunned    AIState = "stunned"
)

// Intent refines AIState into the concrete movement goal for the tick.
type Intent int

const (
	IntentNone Intent = iota
	// IntentCharge closes distance at full speed.
	IntentCharge
	// IntentClose closes distance carefully.
	IntentClose
	// IntentEngage holds attack range and trades blows.
	IntentEngage
	// IntentStandoff orbits the opponent at standoff range.
	IntentStandoff
	// IntentFlee opens distance.
	IntentFlee
)

// String returns a short label for logging.
func (i Intent) String() string {
	switch i {
	case IntentCharge:
		return "charge"
	case IntentClose:
		return "close"
	case IntentEngage:
		return "engage"
	case IntentStandoff:
		return "standoff"
	case IntentFlee:
		return "flee"
	default:
		return "none"
	}
}

// Animation labels published in snapshots.
const (
	AnimIdle    = "idle"
	AnimMove    = "move"
	AnimAttack  = "attack"
	AnimSpecial = "special"
	AnimFeint   = "feint"
	AnimDodge   = "dodge"
	AnimJump    = "jump"
	AnimStunned = "stunned"
	AnimHit     = "hit"
	AnimDead    = "dead"
)

// Fighter is one combatant in a running match. A Fighter is owned by exactly
// one Engine and is only mutated by it.
//
// Invariant: 0 <= hp <= maxHP, 0 <= stamina <= staminaMax and both drives are
// in [0,1] after every mutation.
type Fighter struct {
	// Index is the fighter's slot in its match (0 or 1).
	Index    int
	Genome   genome.Genome
	Weapon   genome.WeaponProfile
	Defense  genome.DefenseProfile
	Mobility genome.Mobility

	Position geom.Vec3
	Velocity geom.Vec3
	// Facing is a unit vector.
	Facing geom.Vec3
	// Surface is the plane a wallcrawler is attached to; SurfaceNone when airborne
	// and always SurfaceNone for other mobility classes.
	Surface geom.Surface

	AIState   AIState
	Intent    Intent
	AnimState string

	hp, maxHP           float64
	stamina, staminaMax float64
	aggression, caution float64
	radius              float64

	// Timers in ticks. Zero means ready.
	attackCooldown int
	feintCooldown  int
	stunRemaining  int
	// exposed is the window after a wasted dodge in which this fighter's
	// dodge term is reduced.
	exposed int

	// orbitSign picks the orbit direction (+1 or -1).
	orbitSign float64

	// Per-tick flags, reset by the engine at the start of each tick.
	landedHit   bool
	damageTaken float64

	// lastPass records the last tick each phase ran for this fighter.
	lastPass [phaseCount]int64
}

// NewFighter derives a fighter's combat state from its genome.
//
// Precondition: g must pass Validate; facing should be non-zero.
// Postcondition: hp == maxHP, stamina == staminaMax and drives equal their
// baselines. Returns an error wrapping genome.ErrInvalidGenome otherwise.
func NewFighter(index int, g genome.Genome, spawn, facing geom.Vec3, t Tuning) (*Fighter, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if index != 0 && index != 1 {
		return nil, fmt.Errorf("fighter index must be 0 or 1, got %d", index)
	}
	bulk := norm(g.Stats.Bulk)
	f := &Fighter{
		Index:      index,
		Genome:     g,
		Weapon:     g.Weapon(),
		Defense:    g.Defense(),
		Mobility:   g.Traits.Mobility,
		Position:   spawn,
		Facing:     facing.Normalize(),
		AIState:    StateCircling,
		Intent:     IntentNone,
		AnimState:  AnimIdle,
		maxHP:      geom.Lerp(MaxHPLow, MaxHPHigh, bulk),
		staminaMax: geom.Lerp(StaminaMaxLow, StaminaMaxHigh, bulk),
		radius:     geom.Lerp(t.BodyRadiusLow, t.BodyRadiusHigh, bulk),
		orbitSign:  1,
	}
	if index == 1 {
		f.orbitSign = -1
	}
	if f.Facing == (geom.Vec3{}) {
		f.Facing = geom.V(1, 0, 0)
	}
	f.hp = f.maxHP
	f.stamina = f.staminaMax
	f.aggression, f.caution = driveBaselines(g.Stats, false, t)
	if f.Mobility == genome.MobilityWallcrawler && spawn.Y == 0 {
		f.Surface = geom.SurfaceFloor
	}
	for i := range f.lastPass {
		f.lastPass[i] = -1
	}
	return f, nil
}

// norm maps a stat in [0,100] to [0,1].
func norm(stat int) float64 { return geom.Clamp01(float64(stat) / 100) }

func (f *Fighter) fury() float64     { return norm(f.Genome.Stats.Fury) }
func (f *Fighter) instinct() float64 { return norm(f.Genome.Stats.Instinct) }

// HP returns current health.
func (f *Fighter) HP() float64 { return f.hp }

// MaxHP returns the health cap.
func (f *Fighter) MaxHP() float64 { return f.maxHP }

// Stamina returns current stamina.
func (f *Fighter) Stamina() float64 { return f.stamina }

// StaminaMax returns the stamina cap.
func (f *Fighter) StaminaMax() float64 { return f.staminaMax }

// StaminaRatio returns stamina / staminaMax.
func (f *Fighter) StaminaRatio() float64 { return f.stamina / f.staminaMax }

// Aggression returns the current aggression drive.
func (f *Fighter) Aggression() float64 { return f.aggression }

// Caution returns the current caution drive.
func (f *Fighter) Caution() float64 { return f.caution }

// Radius returns the collision radius.
func (f *Fighter) Radius() float64 { return f.radius }

// StunRemaining returns the ticks of stun left.
func (f *Fighter) StunRemaining() int { return f.stunRemaining }

// FeintCooldown returns the ticks until the fighter may feint again.
func (f *Fighter) FeintCooldown() int { return f.feintCooldown }

// AttackCooldown returns the ticks until the fighter may attack again.
func (f *Fighter) AttackCooldown() int { return f.attackCooldown }

// IsDead reports whether hp has reached zero.
func (f *Fighter) IsDead() bool { return f.hp <= 0 }

// IsStunned reports whether a stun is in effect.
func (f *Fighter) IsStunned() bool { return f.stunRemaining > 0 }

// applyDamage lowers hp by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: returns the hp actually removed.
func (f *Fighter) applyDamage(amount float64) float64 {
	if amount <= 0 || f.hp <= 0 {
		return 0
	}
	if amount > f.hp {
		amount = f.hp
	}
	f.hp -= amount
	f.damageTaken += amount
	return amount
}

// FighterView is the published, read-only state of a fighter.
type FighterView struct {
	Index      int             `json:"index" msgpack:"index"`
	ID         string          `json:"id" msgpack:"id"`
	Name       string          `json:"name" msgpack:"name"`
	Mobility   genome.Mobility `json:"mobility" msgpack:"mobility"`
	Position   geom.Vec3       `json:"position" msgpack:"position"`
	Velocity   geom.Vec3       `json:"velocity" msgpack:"velocity"`
	Facing     geom.Vec3       `json:"facing" msgpack:"facing"`
	Surface    string          `json:"surface" msgpack:"surface"`
	HP         float64         `json:"hp" msgpack:"hp"`
	MaxHP      float64         `json:"maxHp" msgpack:"maxHp"`
	Stamina    float64         `json:"stamina" msgpack:"stamina"`
	StaminaMax float64         `json:"staminaMax" msgpack:"staminaMax"`
	Aggression float64         `json:"aggression" msgpack:"aggression"`
	Caution    float64         `json:"caution" msgpack:"caution"`
	AIState    AIState         `json:"aiState" msgpack:"aiState"`
	AnimState  string          `json:"animState" msgpack:"animState"`
}

// View copies the fighter's public state.
func (f *Fighter) View() FighterView {
	return FighterView{
		Index:      f.Index,
		ID:         f.Genome.ID,
		Name:       f.Genome.Name,
		Mobility:   f.Mobility,
		Position:   f.Position,
		Velocity:   f.Velocity,
		Facing:     f.Facing,
		Surface:    f.Surface.String(),
		HP:         f.hp,
		MaxHP:      f.maxHP,
		Stamina:    f.stamina,
		StaminaMax: f.staminaMax,
		Aggression: f.aggression,
		Caution:    f.caution,
		AIState:    f.AIState,
		AnimState:  f.AnimState,
	}
}
