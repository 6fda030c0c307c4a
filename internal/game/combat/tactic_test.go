package combat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

func TestTacticFor_ClosedSet(t *testing.T) {
	for _, m := range genome.Mobilities() {
		tac, err := TacticFor(m)
		require.NoError(t, err)
		assert.Equal(t, m, tac.Mobility())
	}
	_, err := TacticFor("burrower")
	assert.Error(t, err)
}

func TestWallAwareHeading_TurnsFromWall(t *testing.T) {
	tu := DefaultTuning()
	h := wallAwareHeading(geom.V(395, 0, 150), geom.V(1, 0, 0), testArena, tu)
	assert.LessOrEqual(t, h.X, 0.0)
	assert.InDelta(t, 1, h.Len(), 1e-9)

	open := wallAwareHeading(geom.V(200, 0, 150), geom.V(1, 0, 0), testArena, tu)
	assert.InDelta(t, 1, open.X, 1e-9)
}

func TestProperty_OrbitDir_TangentAtRadius(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := rapid.Float64Range(10, 100).Draw(rt, "radius")
		theta := rapid.Float64Range(0, 2*math.Pi).Draw(rt, "theta")
		radial := geom.V(math.Cos(theta)*r, 0, math.Sin(theta)*r)
		d := orbitDir(radial, r, geom.Up, 1)
		assert.InDelta(rt, 0, d.Dot(radial.Normalize()), 1e-9)
		assert.InDelta(rt, 1, d.Len(), 1e-9)
	})
}

func TestOrbitDir_CorrectsTowardRadius(t *testing.T) {
	inside := orbitDir(geom.V(10, 0, 0), 60, geom.Up, 1)
	outside := orbitDir(geom.V(200, 0, 0), 60, geom.Up, 1)
	assert.Greater(t, inside.X, 0.0)
	assert.Less(t, outside.X, 0.0)
}

func TestFlyerOrbit_Is3D(t *testing.T) {
	kite := makeGenome("kite", genome.Stats{Bulk: 40, Speed: 70, Fury: 20, Instinct: 80}, "claws", "scales", genome.MobilityFlyer)
	e := newEngine(t, kite, tactician(), geom.V(140, 80, 150), geom.V(200, 0, 150), seeded(5))
	f := e.Fighter(0)
	f.AIState, f.Intent = StateCircling, IntentStandoff
	sawVertical := false
	for tick := int64(0); tick < 200; tick += 10 {
		s := Situation{Self: f, Opponent: e.Fighter(1), Arena: testArena, Tuning: DefaultTuning(), Tick: tick}
		if math.Abs(flyerTactic{}.Steer(s).Y) > 0.05 {
			sawVertical = true
		}
	}
	assert.True(t, sawVertical, "flyer orbit never left the horizontal plane")
}

func TestFlyerRetreat_BiasesUp(t *testing.T) {
	kite := makeGenome("kite", genome.Stats{Bulk: 40, Speed: 70, Fury: 20, Instinct: 80}, "claws", "scales", genome.MobilityFlyer)
	e := newEngine(t, kite, brute(), geom.V(200, 60, 150), geom.V(230, 60, 150), seeded(5))
	f := e.Fighter(0)
	f.AIState, f.Intent = StateRetreating, IntentFlee
	f.hp = f.maxHP / 4
	s := Situation{Self: f, Opponent: e.Fighter(1), Arena: testArena, Tuning: DefaultTuning(), Tick: 1}
	d := flyerTactic{}.Steer(s)
	assert.Greater(t, d.Y, 0.0)
	assert.Less(t, d.X, 0.0)
	assert.NotZero(t, d.Z, "hurt flyer should break laterally")
}

func TestGroundJump_CostsStamina(t *testing.T) {
	kite := makeGenome("kite", genome.Stats{Bulk: 40, Speed: 70, Fury: 20, Instinct: 80}, "claws", "scales", genome.MobilityFlyer)
	e := newEngine(t, brute(), kite, geom.V(200, 0, 150), geom.V(205, 40, 150), seeded(5))
	g := e.Fighter(0)
	g.AIState, g.Intent = StateAggressive, IntentEngage
	before := g.Stamina()
	s := Situation{Self: g, Opponent: e.Fighter(1), Arena: testArena, Tuning: DefaultTuning(), Tick: 1}
	jumped := groundTactic{}.Integrate(s, geom.Vec3{})
	assert.True(t, jumped)
	assert.Equal(t, before-JumpCost, g.Stamina())
	assert.Greater(t, g.Velocity.Y, 0.0)

	g.Position.Y = 0
	g.Velocity = geom.Vec3{}
	g.stamina = JumpCost - 1
	assert.False(t, groundTactic{}.Integrate(s, geom.Vec3{}))
	assert.Equal(t, JumpCost-1, g.Stamina())
}

func TestWallcrawler_CrawlsAroundEdge(t *testing.T) {
	crawler := makeGenome("skitter", genome.Stats{Bulk: 30, Speed: 80, Fury: 40, Instinct: 70}, "fangs", "fur", genome.MobilityWallcrawler)
	e := newEngine(t, crawler, brute(), geom.V(1, 0, 150), geom.V(300, 0, 150), seeded(5))
	c := e.Fighter(0)
	require.Equal(t, geom.SurfaceFloor, c.Surface)
	s := Situation{Self: c, Opponent: e.Fighter(1), Arena: testArena, Tuning: DefaultTuning(), Tick: 1}
	wallcrawlerTactic{}.Integrate(s, geom.V(-4, 0, 0))
	assert.Equal(t, geom.SurfaceWest, c.Surface)
	assert.Equal(t, 0.0, c.Position.X)
}

func TestRefuge_AvoidsOpponentSurface(t *testing.T) {
	crawler := makeGenome("skitter", genome.Stats{Bulk: 30, Speed: 80, Fury: 40, Instinct: 70}, "fangs", "fur", genome.MobilityWallcrawler)
	e := newEngine(t, crawler, brute(), geom.V(20, 0, 150), geom.V(200, 0, 150), seeded(5))
	c, opp := e.Fighter(0), e.Fighter(1)
	assert.Equal(t, geom.SurfaceWest, refuge(c, opp, testArena))

	c.Surface = geom.SurfaceWest
	c.Position = geom.V(0, 50, 150)
	assert.Equal(t, geom.SurfaceWest, refuge(c, opp, testArena))
}

func TestWallcrawler_LeapsAtOffPlaneOpponent(t *testing.T) {
	crawler := makeGenome("skitter", genome.Stats{Bulk: 30, Speed: 80, Fury: 90, Instinct: 20}, "fangs", "fur", genome.MobilityWallcrawler)
	kite := makeGenome("kite", genome.Stats{Bulk: 40, Speed: 70, Fury: 20, Instinct: 80}, "claws", "scales", genome.MobilityFlyer)
	e := newEngine(t, crawler, kite, geom.V(200, 0, 150), geom.V(200, 80, 170), seeded(5))
	c := e.Fighter(0)
	c.AIState, c.Intent = StateAggressive, IntentClose
	s := Situation{Self: c, Opponent: e.Fighter(1), Arena: testArena, Tuning: DefaultTuning(), Tick: 1}
	require.True(t, wantsLeap(s))
	assert.True(t, wallcrawlerTactic{}.Integrate(s, geom.Vec3{}))
	assert.Equal(t, geom.SurfaceNone, c.Surface)
	assert.Greater(t, c.Velocity.Y, 0.0)
}
