package combat

import (
	"math"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// wallcrawlerTactic moves along whichever arena plane it is attached to,
// wraps around edges onto adjacent planes, leaps at opponents off its plane,
// and falls ballistically while detached.
type wallcrawlerTactic struct{}

func (wallcrawlerTactic) Mobility() genome.Mobility { return genome.MobilityWallcrawler }

// seeksRefuge reports whether the crawler should be heading for a surface.
func seeksRefuge(f *Fighter) bool {
	return f.StaminaRatio() < LowStaminaRatio || f.AIState == StateRetreating
}

// refuge picks the surface a retreating crawler makes for: its current plane
// if the opponent is not nearest to it, otherwise the closest edge-sharing
// plane the opponent is not near.
func refuge(self, opp *Fighter, a geom.Arena) geom.Surface {
	oppSide := a.Nearest(opp.Position)
	if opp.Surface != geom.SurfaceNone {
		oppSide = opp.Surface
	}
	if self.Surface != oppSide {
		return self.Surface
	}
	return a.Nearest(self.Position, self.Surface, geom.Opposite(self.Surface), oppSide)
}

func (wallcrawlerTactic) Steer(s Situation) geom.Vec3 {
	self, opp, t, a := s.Self, s.Opponent, s.Tuning, s.Arena
	if self.Surface == geom.SurfaceNone {
		v := self.Velocity
		if seeksRefuge(self) && !self.IsStunned() {
			// Limited air control toward the nearest grip.
			target := a.Nearest(self.Position)
			v = v.Add(geom.Normal(target).Scale(-t.Acceleration))
		}
		return v
	}
	if self.IsStunned() {
		return self.Velocity.Scale(1 - t.Acceleration)
	}

	plane := self.Surface
	speed := self.maxSpeed(t)
	if plane != geom.SurfaceFloor {
		speed *= t.ClimbSpeedFactor
	}
	intent := self.Intent
	if intent == IntentStandoff && opponentOpen(opp) {
		intent = IntentEngage
	}

	var dir geom.Vec3
	switch {
	case seeksRefuge(self):
		goal := refuge(self, opp, a)
		if goal == plane {
			dir = geom.ProjectOnto(self.Position.Sub(opp.Position), plane)
		} else {
			dir = geom.ProjectOnto(geom.Normal(goal).Scale(-1), plane)
		}
		intent = IntentFlee
	case intent == IntentCharge || intent == IntentClose || intent == IntentEngage:
		if self.Position.Dist(opp.Position) <= holdDistance(self) {
			return geom.Vec3{}
		}
		dir = geom.ProjectOnto(opp.Position.Sub(self.Position), plane)
	case intent == IntentStandoff:
		radial := geom.ProjectOnto(self.Position.Sub(opp.Position), plane)
		dir = orbitDir(radial, standoffRadius(t), geom.Normal(plane), self.orbitSign)
	default:
		return geom.Vec3{}
	}
	return dir.Normalize().Scale(speed * intentFactor(intent))
}

func (wallcrawlerTactic) Integrate(s Situation, desired geom.Vec3) bool {
	f, opp, t, a := s.Self, s.Opponent, s.Tuning, s.Arena
	if f.Surface == geom.SurfaceNone {
		f.Velocity = desired
		f.Velocity.Y -= t.Gravity
		f.Position = f.Position.Add(f.Velocity)
		return false
	}

	// A hard shove off the plane breaks the grip.
	if f.Velocity.Dot(geom.Normal(f.Surface)) > t.JumpImpulse*0.5 {
		f.Surface = geom.SurfaceNone
		f.Velocity.Y -= t.Gravity
		f.Position = f.Position.Add(f.Velocity)
		return false
	}

	if wantsLeap(s) && f.trySpend(JumpCost) {
		toOpp := opp.Position.Sub(f.Position)
		flight := toOpp.Len() / t.LeapSpeed
		f.Velocity = toOpp.Normalize().Scale(t.LeapSpeed).Add(geom.Up.Scale(t.Gravity * flight / 2))
		f.Surface = geom.SurfaceNone
		f.AnimState = AnimJump
		f.Position = f.Position.Add(f.Velocity)
		return true
	}

	v := geom.ProjectOnto(f.Velocity.Lerp(desired, t.Acceleration), f.Surface)
	pos := a.Snap(f.Position.Add(v), f.Surface)
	for _, next := range geom.Surfaces {
		if !geom.Adjacent(f.Surface, next) {
			continue
		}
		if a.DistanceTo(pos, next) < t.AttachDistance && v.Dot(geom.Normal(next)) < 0 {
			f.Surface = next
			pos = a.Snap(pos, next)
			v = geom.ProjectOnto(v, next)
			break
		}
	}
	f.Velocity = v
	f.Position = pos
	return false
}

// wantsLeap reports whether an attached, committed crawler should launch at an
// opponent that is off its plane and inside leap range.
func wantsLeap(s Situation) bool {
	self, opp, t, a := s.Self, s.Opponent, s.Tuning, s.Arena
	if self.AIState != StateAggressive || self.IsStunned() || seeksRefuge(self) {
		return false
	}
	if self.Intent != IntentCharge && self.Intent != IntentClose {
		return false
	}
	dist := self.Position.Dist(opp.Position)
	if dist <= self.Weapon.Reach*0.8 || dist > self.Weapon.Reach*t.LeapRangeFactor {
		return false
	}
	return math.Abs(a.DistanceTo(opp.Position, self.Surface)) > self.Weapon.Reach*0.5
}

func (wallcrawlerTactic) Contact(f *Fighter, surface geom.Surface) bool {
	if f.Surface == geom.SurfaceNone {
		f.Surface = surface
	}
	return true
}
