package combat

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
	"github.com/cory-johannsen/arena/internal/game/rng"
)

var testArena = geom.Arena{Width: 400, Height: 200, Depth: 300}

// constSrc returns val for every draw and counts the draws.
type constSrc struct {
	val   float64
	draws int
}

func (c *constSrc) Draw() float64 {
	c.draws++
	return c.val
}

// panicSrc fails the test if anything draws from it.
type panicSrc struct{ t *testing.T }

func (p panicSrc) Draw() float64 {
	p.t.Fatalf("unexpected draw")
	return 0
}

func makeGenome(id string, stats genome.Stats, weapon, defense string, m genome.Mobility) genome.Genome {
	return genome.Genome{
		ID:     id,
		Name:   id,
		Stats:  stats,
		Traits: genome.Traits{Weapon: weapon, Defense: defense, Mobility: m},
	}
}

func brute() genome.Genome {
	return makeGenome("brute", genome.Stats{Bulk: 60, Speed: 50, Fury: 90, Instinct: 30}, "horns", "hide", genome.MobilityGround)
}

func tactician() genome.Genome {
	return makeGenome("tactician", genome.Stats{Bulk: 50, Speed: 60, Fury: 10, Instinct: 90}, "claws", "none", genome.MobilityGround)
}

func newFighter(t *testing.T, index int, g genome.Genome, pos geom.Vec3, facing geom.Vec3) *Fighter {
	t.Helper()
	f, err := NewFighter(index, g, pos, facing, DefaultTuning())
	require.NoError(t, err)
	return f
}

// newEngine builds an engine with a and b facing each other at the given spots.
func newEngine(t *testing.T, a, b genome.Genome, pa, pb geom.Vec3, src Source) *Engine {
	t.Helper()
	fa := newFighter(t, 0, a, pa, pb.Sub(pa))
	fb := newFighter(t, 1, b, pb, pa.Sub(pb))
	e, err := NewEngine(fa, fb, testArena, DefaultTuning(), src, zap.NewNop())
	require.NoError(t, err)
	return e
}

func seeded(seed uint64) Source { return rng.NewSeeded(seed) }

func eventsOfType(evs []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
