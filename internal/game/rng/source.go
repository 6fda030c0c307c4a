// Package rng provides the seedable randomness abstraction used by the combat
// simulation. Every match owns exactly one Source; Sources are never shared
// between matches.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	randv2 "math/rand/v2"
)

// Source is the randomness provider for a single match.
//
// Implementations are single-writer: only the goroutine driving a match may
// call Draw.
type Source interface {
	// Seed resets the generator to the deterministic sequence for v.
	Seed(v uint64)
	// Draw returns a uniformly distributed float in [0, 1).
	Draw() float64
	// CurrentSeed returns the seed of the active sequence.
	CurrentSeed() uint64
	// Draws returns how many values have been drawn since the last Seed.
	Draws() uint64
}

// pcgStream is the fixed second PCG word. Together with the seed it fully
// determines the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// seeded implements Source on top of a PCG generator.
//
// Invariant: identical seeds produce identical Draw sequences.
type seeded struct {
	seed  uint64
	draws uint64
	pcg   *randv2.PCG
	r     *randv2.Rand
}

// NewSeeded returns a Source producing the deterministic sequence for seed.
//
// Postcondition: CurrentSeed() == seed and Draws() == 0.
func NewSeeded(seed uint64) Source {
	s := &seeded{}
	s.Seed(seed)
	return s
}

func (s *seeded) Seed(v uint64) {
	s.seed = v
	s.draws = 0
	s.pcg = randv2.NewPCG(v, pcgStream)
	s.r = randv2.New(s.pcg)
}

func (s *seeded) Draw() float64 {
	s.draws++
	return s.r.Float64()
}

func (s *seeded) CurrentSeed() uint64 { return s.seed }

func (s *seeded) Draws() uint64 { return s.draws }

// NewSeed returns a fresh seed from crypto/rand for matches configured without
// a fixed seed.
//
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func NewSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:])
}
