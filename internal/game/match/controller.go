package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
	"github.com/cory-johannsen/arena/internal/game/rng"
)

// ErrMatchOver is returned by Step once the match reached a terminal phase.
var ErrMatchOver = errors.New("match is over")

// Controller drives one match through countdown, fighting and victory.
// Step, Abort and the accessors are safe for concurrent use; a match is
// normally stepped by exactly one goroutine (Run or Simulate).
type Controller struct {
	mu       sync.Mutex
	id       uuid.UUID
	settings Settings
	genomes  [2]genome.Genome
	src      rng.Source
	rule     combat.SuddenDeathRule
	engine   *combat.Engine
	logger   *zap.Logger

	warnTicks        int64
	suddenDeathTicks int64
	maxFightTicks    int64

	phase          Phase
	tick           int64
	countdownLeft  int64
	fightStart     int64
	stalemateLevel int
	last           Frame
	result         *Result
	startedAt      time.Time
}

// NewController builds the fighters and engine for a match between genomes.
//
// Precondition: src is freshly seeded and owned by this match alone; logger
// must be non-nil. A nil rule selects combat.DefaultSuddenDeathRule.
// Postcondition: Returns a controller in the countdown phase (or fighting, for
// a zero countdown) at tick 0, or an error wrapping genome.ErrInvalidGenome
// when either genome fails validation.
func NewController(id uuid.UUID, genomes [2]genome.Genome, src rng.Source, rule combat.SuddenDeathRule, s Settings, logger *zap.Logger) (*Controller, error) {
	if src == nil {
		return nil, fmt.Errorf("match requires a random source")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for i, g := range genomes {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("fighter %d: %w", i, err)
		}
	}
	if rule == nil {
		rule = combat.DefaultSuddenDeathRule()
	}

	var fighters [2]*combat.Fighter
	for i, g := range genomes {
		spawn, facing := spawnPoint(i, g.Traits.Mobility, s)
		f, err := combat.NewFighter(i, g, spawn, facing, s.Tuning)
		if err != nil {
			return nil, fmt.Errorf("fighter %d: %w", i, err)
		}
		fighters[i] = f
	}
	mlog := logger.With(zap.String("match_id", id.String()))
	eng, err := combat.NewEngine(fighters[0], fighters[1], s.Arena, s.Tuning, src, mlog)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		id:               id,
		settings:         s,
		genomes:          genomes,
		src:              src,
		rule:             rule,
		engine:           eng,
		logger:           mlog,
		warnTicks:        max(s.ticks(s.StalemateWarnAfter), 1),
		suddenDeathTicks: s.ticks(s.SuddenDeathAfter),
		maxFightTicks:    s.ticks(s.MaxFightDuration),
		phase:            PhaseCountdown,
		countdownLeft:    s.ticks(s.Countdown),
		startedAt:        time.Now(),
	}
	if c.countdownLeft == 0 {
		c.phase = PhaseFighting
	}
	c.last = c.frame(nil)
	return c, nil
}

// spawnPoint places fighter i on the arena's long axis, facing the other.
// Flyers start airborne.
func spawnPoint(i int, m genome.Mobility, s Settings) (geom.Vec3, geom.Vec3) {
	center := s.Arena.Center()
	sign := -1.0
	if i == 1 {
		sign = 1
	}
	pos := geom.V(center.X+sign*s.SpawnSeparation/2, 0, center.Z)
	if m == genome.MobilityFlyer {
		pos.Y = s.Arena.Height * 0.4
	}
	return pos, geom.V(-sign, 0, 0)
}

// ID returns the match ID.
func (c *Controller) ID() uuid.UUID { return c.id }

// Genomes returns the two genomes in slot order.
func (c *Controller) Genomes() [2]genome.Genome { return c.genomes }

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastFrame returns the most recently produced frame.
func (c *Controller) LastFrame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Result returns the outcome once the match is terminal.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Step advances the match by one tick and returns the frame for it.
//
// Postcondition: On success the frame holds exactly one snapshot and only this
// tick's events. Once the phase is terminal every further call returns the
// final frame and ErrMatchOver without mutating anything.
func (c *Controller) Step() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return c.last, ErrMatchOver
	}
	c.tick++

	if c.phase == PhaseCountdown {
		var events []combat.Event
		c.countdownLeft--
		if c.countdownLeft <= 0 {
			events = append(events, c.phaseEvent(PhaseCountdown, PhaseFighting))
			c.phase = PhaseFighting
			c.fightStart = c.tick + 1
			c.logger.Info("fight started", zap.Int64("tick", c.tick))
		}
		c.last = c.frame(events)
		return c.last, nil
	}

	if c.fightStart == 0 {
		c.fightStart = c.tick
	}
	events, err := c.engine.Step(c.tick)
	if err != nil {
		c.logger.Error("engine step failed", zap.Int64("tick", c.tick), zap.Error(err))
		events = append(events, c.finish(NoWinner, ReasonAborted, err.Error())...)
		c.last = c.frame(events)
		return c.last, err
	}

	switch {
	case c.engine.Fighter(0).IsDead():
		events = append(events, c.finish(1, ReasonKnockout, "")...)
	case c.engine.Fighter(1).IsDead():
		events = append(events, c.finish(0, ReasonKnockout, "")...)
	case c.tick-c.fightStart+1 >= c.maxFightTicks:
		events = append(events, c.finish(c.decision(), ReasonDecision, "")...)
	default:
		events = append(events, c.checkStalemate()...)
	}
	c.last = c.frame(events)
	return c.last, nil
}

// Abort stops the match administratively.
//
// Postcondition: Returns the final aborted frame and true, or the existing
// final frame and false if the match had already ended.
func (c *Controller) Abort(reason string) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return c.last, false
	}
	c.tick++
	events := c.finish(NoWinner, ReasonAborted, reason)
	c.last = c.frame(events)
	return c.last, true
}

// checkStalemate escalates a warning every warn window without damage and
// forces sudden death once the stall reaches the sudden-death span.
func (c *Controller) checkStalemate() []combat.Event {
	stalled := c.engine.TicksSinceDamage()
	level := int(stalled / c.warnTicks)
	if level == 0 && !c.engine.SuddenDeath() {
		c.stalemateLevel = 0
	}
	if level <= c.stalemateLevel {
		return nil
	}
	c.stalemateLevel = level
	ev := combat.Event{
		Tick:   c.tick,
		Type:   combat.EventStalemate,
		Actor:  combat.NoFighter,
		Target: combat.NoFighter,
		Level:  level,
	}
	if stalled >= c.suddenDeathTicks {
		// The rule counts escalations from the first sudden-death level.
		sdLevel := max(level-int(c.suddenDeathTicks/c.warnTicks)+1, 1)
		mult := c.rule.Multiplier(stalled, sdLevel)
		c.engine.SetSuddenDeath(mult)
		ev.To = "sudden_death"
		ev.Multiplier = c.engine.DamageMultiplier()
		c.logger.Warn("sudden death",
			zap.Int64("tick", c.tick),
			zap.Int("level", level),
			zap.Float64("multiplier", ev.Multiplier),
		)
	} else {
		c.logger.Warn("stalemate warning",
			zap.Int64("tick", c.tick),
			zap.Int("level", level),
			zap.Int64("stalled_ticks", stalled),
		)
	}
	return []combat.Event{ev}
}

// decision picks the fighter with the larger remaining hp fraction, or
// NoWinner on an exact tie.
func (c *Controller) decision() int {
	a, b := c.engine.Fighter(0), c.engine.Fighter(1)
	ra, rb := a.HP()/a.MaxHP(), b.HP()/b.MaxHP()
	switch {
	case ra > rb:
		return 0
	case rb > ra:
		return 1
	}
	return NoWinner
}

// finish moves the match to its terminal phase and records the result.
//
// Precondition: c.mu is held and the phase is not terminal.
func (c *Controller) finish(winner int, reason Reason, detail string) []combat.Event {
	to := PhaseVictory
	if reason == ReasonAborted {
		to = PhaseAborted
	}
	ev := c.phaseEvent(c.phase, to)
	c.phase = to
	a, b := c.engine.Fighter(0), c.engine.Fighter(1)
	c.result = &Result{
		MatchID:   c.id,
		Seed:      c.src.CurrentSeed(),
		Draws:     c.src.Draws(),
		Genomes:   c.genomes,
		Winner:    winner,
		Reason:    reason,
		Detail:    detail,
		Ticks:     c.tick,
		FinalHP:   [2]float64{a.HP(), b.HP()},
		StartedAt: c.startedAt,
		EndedAt:   time.Now(),
	}
	c.logger.Info("match finished",
		zap.String("reason", string(reason)),
		zap.Int("winner", winner),
		zap.Int64("tick", c.tick),
		zap.String("detail", detail),
	)
	return []combat.Event{ev}
}

func (c *Controller) phaseEvent(from, to Phase) combat.Event {
	return combat.Event{
		Tick:   c.tick,
		Type:   combat.EventPhase,
		Actor:  combat.NoFighter,
		Target: combat.NoFighter,
		From:   string(from),
		To:     string(to),
	}
}

func (c *Controller) frame(events []combat.Event) Frame {
	if events == nil {
		events = []combat.Event{}
	}
	return Frame{
		Snapshot: Snapshot{
			MatchID:     c.id.String(),
			Phase:       c.phase,
			Tick:        c.tick,
			SuddenDeath: c.engine.SuddenDeath(),
			Fighters:    c.engine.Views(),
		},
		Events: events,
	}
}

// Run paces Step at the tuning's tick interval and hands every frame to
// publish until the match ends or ctx is cancelled. Cancellation aborts the
// match, using the context cause as the abort detail, and publishes the final
// frame.
//
// Precondition: publish must not be nil and must not block for long.
// Postcondition: Returns the terminal result. A non-nil error means the engine
// failed and the match was aborted.
func (c *Controller) Run(ctx context.Context, publish func(Frame)) (Result, error) {
	ticker := time.NewTicker(c.settings.Tuning.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			reason := "cancelled"
			if cause := context.Cause(ctx); cause != nil {
				reason = cause.Error()
			}
			if f, ok := c.Abort(reason); ok {
				publish(f)
			}
			res, _ := c.Result()
			return res, nil
		case <-ticker.C:
			done, err := c.stepAndPublish(publish)
			if done || err != nil {
				res, _ := c.Result()
				return res, err
			}
		}
	}
}

// Simulate runs the match to completion as fast as possible. It checks ctx
// between ticks.
func (c *Controller) Simulate(ctx context.Context, publish func(Frame)) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			if f, ok := c.Abort(err.Error()); ok {
				publish(f)
			}
			res, _ := c.Result()
			return res, nil
		}
		done, err := c.stepAndPublish(publish)
		if done || err != nil {
			res, _ := c.Result()
			return res, err
		}
	}
}

func (c *Controller) stepAndPublish(publish func(Frame)) (bool, error) {
	f, err := c.Step()
	if errors.Is(err, ErrMatchOver) {
		return true, nil
	}
	publish(f)
	return f.Snapshot.Phase.Terminal(), err
}
