package combat

import (
	"math"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// flyerTactic moves freely in 3D: climbs above its target and dives, orbits
// on a precessing tilted plane, and retreats upward and sideways when hurt.
type flyerTactic struct{}

func (flyerTactic) Mobility() genome.Mobility { return genome.MobilityFlyer }

func (flyerTactic) Steer(s Situation) geom.Vec3 {
	self, opp, t, a := s.Self, s.Opponent, s.Tuning, s.Arena
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
		target := opp.Position
		if dist > t.EngageRange*1.5 {
			// Gain altitude over the target before committing to the dive.
			target = target.Add(geom.Up.Scale(t.DiveHeight))
			target.Y = math.Min(target.Y, a.Height-t.FlyerMinAltitude)
		}
		dir = target.Sub(self.Position).Normalize()
	case IntentStandoff:
		phase := float64(s.Tick)*t.OrbitTiltRate + float64(self.Index)*math.Pi
		axis := geom.V(0.5*math.Sin(phase), 1, 0.5*math.Cos(phase)).Normalize()
		dir = orbitDir(self.Position.Sub(opp.Position), standoffRadius(t), axis, self.orbitSign)
	case IntentFlee:
		away := self.Position.Sub(opp.Position).Normalize()
		if away == (geom.Vec3{}) {
			away = geom.Up
		}
		hurt := 1 - self.hp/self.maxHP
		lateral := geom.Up.Cross(away).Normalize().Scale(self.orbitSign)
		dir = away.Add(geom.Up.Scale(0.5 + hurt)).Add(lateral.Scale(0.5 * hurt)).Normalize()
	default:
		return geom.Vec3{}
	}

	if self.Position.Y < t.FlyerMinAltitude && opp.Position.Y >= self.Position.Y {
		dir = dir.Add(geom.Up).Normalize()
	}
	if self.Position.Y > a.Height-t.FlyerMinAltitude && dir.Y > 0 {
		dir.Y = 0
		dir = dir.Normalize()
	}
	dir = dir.Add(wallRepulsion(self.Position, a, t)).Normalize()
	return dir.Scale(self.maxSpeed(t) * intentFactor(intent))
}

func (flyerTactic) Integrate(s Situation, desired geom.Vec3) bool {
	f, t := s.Self, s.Tuning
	if f.IsStunned() {
		// A stunned flyer loses lift.
		v := f.Velocity
		h := v.Horizontal().Scale(1 - t.Acceleration)
		v.X, v.Z = h.X, h.Z
		v.Y -= t.Gravity
		f.Velocity = v
	} else {
		f.Velocity = f.Velocity.Lerp(desired, t.Acceleration)
	}
	f.Position = f.Position.Add(f.Velocity)
	return false
}

func (flyerTactic) Contact(_ *Fighter, surface geom.Surface) bool {
	return surface == geom.SurfaceFloor
}
