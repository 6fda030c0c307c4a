package combat

import (
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// groundTactic moves on the floor plane, flanks toward the arena interior and
// jumps at elevated opponents.
type groundTactic struct{}

func (groundTactic) Mobility() genome.Mobility { return genome.MobilityGround }

func (groundTactic) Steer(s Situation) geom.Vec3 {
	self, opp, t := s.Self, s.Opponent, s.Tuning
	if self.IsStunned() {
		return geom.Vec3{}
	}
	dist := self.Position.Dist(opp.Position)
	intent := self.Intent
	if intent == IntentStandoff && opponentOpen(opp) {
		intent = IntentEngage
	}

	var dir geom.Vec3
	switch intent {
	case IntentCharge, IntentClose, IntentEngage:
		if dist <= holdDistance(self) {
			return geom.Vec3{}
		}
		dir = flankPoint(self, opp, s.Arena, t).Sub(self.Position)
	case IntentStandoff:
		dir = orbitDir(self.Position.Sub(opp.Position).Horizontal(), standoffRadius(t), geom.Up, self.orbitSign)
	case IntentFlee:
		dir = self.Position.Sub(opp.Position)
	default:
		return geom.Vec3{}
	}
	heading := wallAwareHeading(self.Position, dir, s.Arena, t)
	return heading.Scale(self.maxSpeed(t) * intentFactor(intent))
}

// flankPoint is the approach target: a point offset from the opponent toward
// the arena center, cutting off its escape. The offset shrinks to zero as the
// fighter closes so the approach converges on the opponent.
func flankPoint(self, opp *Fighter, a geom.Arena, t Tuning) geom.Vec3 {
	escape := a.Center().Sub(opp.Position).Horizontal()
	if escape.Len() < 1 {
		return opp.Position
	}
	dist := self.Position.Dist(opp.Position)
	closing := geom.Clamp01((dist - self.Weapon.Reach) / t.EngageRange)
	offset := t.FlankOffset * self.instinct() * closing
	return opp.Position.Add(escape.Normalize().Scale(offset))
}

func (groundTactic) Integrate(s Situation, desired geom.Vec3) bool {
	f, t := s.Self, s.Tuning
	v := f.Velocity
	h := v.Horizontal().Lerp(desired.Horizontal(), t.Acceleration)
	v.X, v.Z = h.X, h.Z

	onFloor := f.Position.Y <= 0
	if onFloor && v.Y < 0 {
		v.Y = 0
	}
	jumped := false
	if onFloor && wantsJump(s) && f.trySpend(JumpCost) {
		v.Y = t.JumpImpulse
		f.AnimState = AnimJump
		jumped = true
	}
	if !onFloor || v.Y > 0 {
		v.Y -= t.Gravity
	}
	f.Velocity = v
	f.Position = f.Position.Add(v)
	return jumped
}

// wantsJump reports whether an aggressive ground fighter should jump at an
// opponent above its reach.
func wantsJump(s Situation) bool {
	self, opp := s.Self, s.Opponent
	if self.AIState != StateAggressive || self.IsStunned() {
		return false
	}
	rise := opp.Position.Y - self.Position.Y
	if rise <= self.Weapon.Reach*0.5 {
		return false
	}
	return self.Position.Sub(opp.Position).Horizontal().Len() <= self.Weapon.Reach
}

func (groundTactic) Contact(_ *Fighter, surface geom.Surface) bool {
	return surface == geom.SurfaceFloor
}
