package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/rng"
)

// Starter is the part of match.Manager the scheduler drives.
type Starter interface {
	Start(ctx context.Context, genomes [2]genome.Genome, seed uint64) (uuid.UUID, error)
	List() []match.Summary
}

// Pairings returns every unordered pair of the roster in roster order:
// (0,1), (0,2), ..., (1,2), ...
func Pairings(roster []genome.Genome) [][2]genome.Genome {
	var out [][2]genome.Genome
	for i := 0; i < len(roster); i++ {
		for j := i + 1; j < len(roster); j++ {
			out = append(out, [2]genome.Genome{roster[i], roster[j]})
		}
	}
	return out
}

// Scheduler keeps a fixed number of matches running back to back, cycling
// through every pairing of a roster.
//
// Invariant: Fill never leaves more than concurrent matches running.
type Scheduler struct {
	starter    Starter
	pairs      [][2]genome.Genome
	concurrent int
	interval   time.Duration
	baseSeed   uint64
	logger     *zap.Logger

	mu      sync.Mutex
	started uint64
}

// NewScheduler creates a scheduler. A zero seed draws a fresh seed per match;
// any other value makes match n use seed+n.
//
// Precondition: roster must hold at least two genomes; concurrent and interval must be > 0.
func NewScheduler(starter Starter, roster []genome.Genome, concurrent int, interval time.Duration, seed uint64, logger *zap.Logger) (*Scheduler, error) {
	if len(roster) < 2 {
		return nil, fmt.Errorf("scheduler needs at least two genomes, got %d", len(roster))
	}
	if concurrent <= 0 {
		return nil, fmt.Errorf("scheduler concurrency must be > 0, got %d", concurrent)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be > 0, got %s", interval)
	}
	return &Scheduler{
		starter:    starter,
		pairs:      Pairings(roster),
		concurrent: concurrent,
		interval:   interval,
		baseSeed:   seed,
		logger:     logger,
	}, nil
}

// Started returns how many matches the scheduler has started.
func (s *Scheduler) Started() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Fill starts matches until concurrent are running.
//
// Postcondition: Returns the number started; stops at the first start error.
func (s *Scheduler) Fill(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for running := len(s.starter.List()); running < s.concurrent; running++ {
		pair := s.pairs[s.started%uint64(len(s.pairs))]
		seed := s.baseSeed + s.started
		if s.baseSeed == 0 {
			seed = rng.NewSeed()
		}
		id, err := s.starter.Start(ctx, pair, seed)
		if err != nil {
			return n, fmt.Errorf("starting %s vs %s: %w", pair[0].ID, pair[1].ID, err)
		}
		s.started++
		n++
		s.logger.Info("scheduled match",
			zap.String("match_id", id.String()),
			zap.String("fighter0", pair[0].ID),
			zap.String("fighter1", pair[1].ID),
			zap.Uint64("seed", seed),
		)
	}
	return n, nil
}

// Run fills immediately and then once per interval until ctx ends or the
// manager shuts down.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Fill(ctx); err != nil {
			if errors.Is(err, match.ErrShuttingDown) {
				return
			}
			s.logger.Error("scheduling match", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
