package combat

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// Situation is the read context a Tactic steers from. Only Self may be mutated,
// and only by Integrate.
type Situation struct {
	Self     *Fighter
	Opponent *Fighter
	Arena    geom.Arena
	Tuning   Tuning
	Tick     int64
}

// Tactic is the movement behavior of one mobility class. The set is closed:
// ground, flyer and wallcrawler.
type Tactic interface {
	// Mobility names the class this tactic drives.
	Mobility() genome.Mobility
	// Steer returns the desired velocity for s.Self this tick.
	Steer(s Situation) geom.Vec3
	// Integrate advances s.Self one tick toward desired under the class's
	// physics. It reports whether stamina was spent on a jump or leap.
	Integrate(s Situation, desired geom.Vec3) bool
	// Contact reports whether touching surface is absorbed as a landing or an
	// attachment rather than treated as a collision.
	Contact(f *Fighter, surface geom.Surface) bool
}

// TacticFor returns the tactic for a mobility class.
//
// Postcondition: Returns an error iff m is not a known mobility class.
func TacticFor(m genome.Mobility) (Tactic, error) {
	switch m {
	case genome.MobilityGround:
		return groundTactic{}, nil
	case genome.MobilityFlyer:
		return flyerTactic{}, nil
	case genome.MobilityWallcrawler:
		return wallcrawlerTactic{}, nil
	default:
		return nil, fmt.Errorf("no tactic for mobility %q", m)
	}
}

// intentFactor is the share of top speed each intent moves at.
func intentFactor(i Intent) float64 {
	switch i {
	case IntentCharge, IntentFlee:
		return 1.0
	case IntentClose:
		return 0.75
	case IntentEngage, IntentStandoff:
		return 0.6
	default:
		return 0
	}
}

// holdDistance is the 3D gap a fighter keeps once it has closed to attack.
func holdDistance(f *Fighter) float64 { return f.Weapon.Reach * 0.75 }

// standoffRadius is the 3D circling radius.
func standoffRadius(t Tuning) float64 { return t.EngageRange * t.StandoffFactor }

// opponentOpen reports whether the opponent is stunned or inside a wasted-dodge window.
func opponentOpen(opp *Fighter) bool { return opp.IsStunned() || opp.exposed > 0 }

// orbitDir returns a unit direction that circles the opponent around axis at
// the given radius. radial points from the opponent to the orbiting fighter.
func orbitDir(radial geom.Vec3, radius float64, axis geom.Vec3, sign float64) geom.Vec3 {
	n := radial.Normalize()
	if n == (geom.Vec3{}) {
		n = geom.V(1, 0, 0)
	}
	tangent := axis.Cross(n).Normalize()
	if tangent == (geom.Vec3{}) {
		tangent = geom.V(0, 0, 1).Cross(n).Normalize()
	}
	correction := geom.Clamp((radius-radial.Len())/radius, -1, 1) * 2
	return tangent.Scale(sign).Add(n.Scale(correction)).Normalize()
}

// rotateY rotates v about the vertical axis by angle radians.
func rotateY(v geom.Vec3, angle float64) geom.Vec3 {
	sin, cos := math.Sincos(angle)
	return geom.Vec3{X: v.X*cos - v.Z*sin, Y: v.Y, Z: v.X*sin + v.Z*cos}
}

// wallAwareHeading scores eight horizontal headings around dir and returns the
// one that best follows dir without running into a wall. Ties keep the
// earliest candidate so the choice is deterministic.
func wallAwareHeading(pos, dir geom.Vec3, a geom.Arena, t Tuning) geom.Vec3 {
	dir = dir.Horizontal().Normalize()
	if dir == (geom.Vec3{}) {
		return dir
	}
	best := dir
	bestScore := math.Inf(-1)
	for k := 0; k < 8; k++ {
		cand := rotateY(dir, float64(k)*math.Pi/4)
		probe := pos.Add(cand.Scale(t.WallMargin))
		penalty := math.Max(0, (t.WallMargin-a.BoundaryMargin(probe))/t.WallMargin)
		score := cand.Dot(dir) - t.WallPenalty*penalty
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}

// wallRepulsion returns an inward horizontal push that grows as pos nears a wall.
func wallRepulsion(pos geom.Vec3, a geom.Arena, t Tuning) geom.Vec3 {
	margin := a.BoundaryMargin(pos)
	if margin >= t.WallMargin {
		return geom.Vec3{}
	}
	strength := (t.WallMargin - margin) / t.WallMargin
	return a.Center().Sub(pos).Horizontal().Normalize().Scale(strength)
}
