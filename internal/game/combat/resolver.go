package combat

import (
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// Source is the subset of rng.Source used by the engine.
type Source interface {
	Draw() float64
}

// AttackKind distinguishes a basic weapon attack from the special ability.
type AttackKind int

const (
	AttackBasic AttackKind = iota
	AttackSpecial
)

// AttackResult holds the outcome of a committed attack.
type AttackResult struct {
	Hit bool
	// Damage is the hp removed from the target.
	Damage float64
	// Multiplier is the product of positional and match modifiers applied.
	Multiplier float64
	Dive       float64
	Flank      bool
	Knockback  geom.Vec3
}

// DodgeTerm returns a target's dodge contribution to the hit roll.
//
// Postcondition: result is >= 0.
func DodgeTerm(instinct int, d genome.DefenseProfile, exposed bool, t Tuning) float64 {
	dodge := geom.Lerp(t.DodgeLow, t.DodgeHigh, norm(instinct)) + d.DodgeBonus
	if exposed {
		dodge *= t.ExposedDodgeFactor
	}
	return dodge
}

// HitChance returns the probability an attack on tgt lands. Stunned targets are
// always hit.
//
// Postcondition: result is in [0.05, 1].
func HitChance(tgt *Fighter, t Tuning) float64 {
	if tgt.IsStunned() {
		return 1
	}
	dodge := DodgeTerm(tgt.Genome.Stats.Instinct, tgt.Defense, tgt.exposed > 0, t)
	return geom.Clamp(t.HitChanceBase-dodge, 0.05, 1)
}

// DiveMultiplier returns the flyer height bonus for an attacker heightDelta
// above its target in an arena of the given height.
//
// Precondition: arenaHeight > 0 and bonus in [0, 0.5].
// Postcondition: result is in [1, 1+bonus] and non-decreasing in heightDelta.
func DiveMultiplier(heightDelta, arenaHeight, bonus float64) float64 {
	return 1 + bonus*geom.Clamp01(heightDelta/arenaHeight)
}

// FuryScale returns the fury damage multiplier.
func FuryScale(fury int, t Tuning) float64 {
	return geom.Lerp(t.FuryDamageLow, t.FuryDamageHigh, norm(fury))
}

// isFlank reports whether att strikes tgt from behind its facing.
func isFlank(att, tgt *Fighter, t Tuning) bool {
	toAttacker := att.Position.Sub(tgt.Position).Normalize()
	return tgt.Facing.Dot(toAttacker) < t.FlankDot
}

// resolveAttack rolls and computes an attack already paid for. It draws from
// src only when the target is not stunned.
//
// Precondition: att has committed the attack; damageMult >= 1.
func resolveAttack(att, tgt *Fighter, kind AttackKind, a geom.Arena, damageMult float64, src Source, t Tuning) AttackResult {
	if !tgt.IsStunned() && src.Draw() >= HitChance(tgt, t) {
		return AttackResult{}
	}
	res := AttackResult{Hit: true, Dive: 1}
	if att.Mobility == genome.MobilityFlyer {
		res.Dive = DiveMultiplier(att.Position.Y-tgt.Position.Y, a.Height, t.DiveBonus)
	}
	mult := res.Dive * damageMult
	if isFlank(att, tgt, t) {
		res.Flank = true
		mult *= t.FlankBonus
	}
	if kind == AttackSpecial {
		mult *= t.SpecialDamageMult
	}
	res.Multiplier = mult
	raw := att.Weapon.Damage * FuryScale(att.Genome.Stats.Fury, t) * mult * (1 - tgt.Defense.Reduction)
	res.Damage = raw

	dir := tgt.Position.Sub(att.Position).Normalize()
	if dir == (geom.Vec3{}) {
		dir = att.Facing
	}
	res.Knockback = dir.Scale(t.KnockbackBase * raw / att.Weapon.Damage)
	return res
}
