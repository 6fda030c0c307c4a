package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/rng"
)

var (
	// ErrMatchNotFound is returned for an unknown or already finished match ID.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchExists is returned when starting a match under a running match's ID.
	ErrMatchExists = errors.New("match already exists")
	// ErrAborted is the context cause for administrative aborts.
	ErrAborted = errors.New("aborted")
	// ErrShuttingDown is returned by Start once Shutdown has begun.
	ErrShuttingDown = errors.New("match manager is shutting down")
)

// recentResults bounds how many finished results the manager remembers.
const recentResults = 32

// ResultRecorder persists finished matches.
type ResultRecorder interface {
	SaveResult(ctx context.Context, r Result) error
}

// RuleSource builds the sudden-death rule for one match. Rules that hold
// resources implement io.Closer and are closed when the match ends.
type RuleSource interface {
	NewRule() (combat.SuddenDeathRule, error)
}

// FrameSink receives every frame of one match, in order, on a writer goroutine
// separate from the match loop. A failing sink is dropped for the rest of the
// match; the match itself goes on.
type FrameSink interface {
	WriteFrame(f Frame) error
	Finish(r Result) error
}

// SinkFactory opens the sink for a match about to start.
type SinkFactory func(id uuid.UUID, seed uint64, genomes [2]genome.Genome) (FrameSink, error)

// ManagerDeps are the optional collaborators of a Manager. Nil fields are
// skipped.
type ManagerDeps struct {
	Rules    RuleSource
	Recorder ResultRecorder
	Sinks    SinkFactory
}

// Summary describes a running match.
type Summary struct {
	ID       uuid.UUID
	Phase    Phase
	Tick     int64
	Genomes  [2]genome.Genome
	Watchers int
}

type running struct {
	ctrl   *Controller
	bcast  *Broadcaster
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Manager runs matches concurrently, one goroutine each.
// All methods are safe for concurrent use.
type Manager struct {
	settings Settings
	deps     ManagerDeps
	logger   *zap.Logger

	mu       sync.RWMutex
	matches  map[uuid.UUID]*running
	recent   []Result
	stopping bool
	wg       sync.WaitGroup
}

// NewManager creates a Manager whose matches use settings.
//
// Precondition: settings must validate; logger must be non-nil.
func NewManager(settings Settings, deps ManagerDeps, logger *zap.Logger) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		settings: settings,
		deps:     deps,
		logger:   logger,
		matches:  make(map[uuid.UUID]*running),
	}, nil
}

// Settings returns the settings new matches use.
func (m *Manager) Settings() Settings { return m.settings }

// Start creates a match between genomes seeded with seed and runs it paced in
// the background. ctx bounds the match lifetime.
//
// Postcondition: Returns the new match ID, or an error if a genome is invalid,
// the rule cannot be built, or the manager is shutting down. Nothing is
// registered on error.
func (m *Manager) Start(ctx context.Context, genomes [2]genome.Genome, seed uint64) (uuid.UUID, error) {
	id := uuid.New()
	if err := m.StartWithID(ctx, id, genomes, seed); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// StartWithID is Start under a caller-chosen match ID.
//
// Postcondition: Returns an error wrapping ErrMatchExists if id is running.
func (m *Manager) StartWithID(ctx context.Context, id uuid.UUID, genomes [2]genome.Genome, seed uint64) error {
	m.mu.RLock()
	stopping := m.stopping
	_, exists := m.matches[id]
	m.mu.RUnlock()
	if stopping {
		return ErrShuttingDown
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrMatchExists, id)
	}

	var rule combat.SuddenDeathRule
	if m.deps.Rules != nil {
		r, err := m.deps.Rules.NewRule()
		if err != nil {
			return fmt.Errorf("building sudden death rule: %w", err)
		}
		rule = r
	}
	ctrl, err := NewController(id, genomes, rng.NewSeeded(seed), rule, m.settings, m.logger)
	if err != nil {
		closeRule(rule)
		return err
	}
	mctx, cancel := context.WithCancelCause(ctx)
	r := &running{
		ctrl:   ctrl,
		bcast:  NewBroadcaster(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if _, dup := m.matches[id]; dup || m.stopping {
		m.mu.Unlock()
		cancel(ErrShuttingDown)
		closeRule(rule)
		if dup {
			return fmt.Errorf("%w: %s", ErrMatchExists, id)
		}
		return ErrShuttingDown
	}
	m.matches[id] = r
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("match started",
		zap.String("match_id", id.String()),
		zap.String("fighter_0", genomes[0].ID),
		zap.String("fighter_1", genomes[1].ID),
		zap.Uint64("seed", seed),
	)
	go m.run(mctx, id, seed, r, rule)
	return nil
}

func (m *Manager) run(ctx context.Context, id uuid.UUID, seed uint64, r *running, rule combat.SuddenDeathRule) {
	defer m.wg.Done()
	defer close(r.done)
	defer r.cancel(nil)

	var sink *sinkQueue
	if m.deps.Sinks != nil {
		s, err := m.deps.Sinks(id, seed, r.ctrl.Genomes())
		if err != nil {
			m.logger.Warn("opening frame sink", zap.String("match_id", id.String()), zap.Error(err))
		} else {
			sink = newSinkQueue(s, m.logger.With(zap.String("match_id", id.String())))
		}
	}

	if m.settings.WallClockLimit > 0 {
		d := NewDeadline(m.settings.WallClockLimit, func() {
			r.cancel(fmt.Errorf("%w: wall clock limit %s exceeded", ErrAborted, m.settings.WallClockLimit))
		})
		defer d.Stop()
	}

	publish := func(f Frame) {
		r.bcast.Publish(f)
		if sink != nil {
			sink.Enqueue(f)
		}
	}
	res, err := r.ctrl.Run(ctx, publish)
	if err != nil {
		m.logger.Error("match failed", zap.String("match_id", id.String()), zap.Error(err))
	}
	closeRule(rule)
	if sink != nil {
		if err := sink.Finish(res); err != nil {
			m.logger.Warn("frame sink finish failed", zap.String("match_id", id.String()), zap.Error(err))
		}
	}
	if m.deps.Recorder != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.deps.Recorder.SaveResult(sctx, res); err != nil {
			m.logger.Error("saving match result", zap.String("match_id", id.String()), zap.Error(err))
		}
		cancel()
	}
	r.bcast.Close()

	m.mu.Lock()
	delete(m.matches, id)
	m.recent = append(m.recent, res)
	if len(m.recent) > recentResults {
		m.recent = m.recent[len(m.recent)-recentResults:]
	}
	m.mu.Unlock()
}

func closeRule(rule combat.SuddenDeathRule) {
	if c, ok := rule.(io.Closer); ok {
		_ = c.Close()
	}
}

func (m *Manager) get(id uuid.UUID) (*running, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return r, nil
}

// Subscribe attaches a spectator to a running match. The channel closes after
// the terminal frame.
//
// Postcondition: Returns the frame channel and its cancel function, or an
// error wrapping ErrMatchNotFound.
func (m *Manager) Subscribe(id uuid.UUID, buffer int) (<-chan Frame, func(), error) {
	r, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := r.bcast.Subscribe(buffer)
	return ch, cancel, nil
}

// Abort stops a running match and waits until its final frame has been
// published or ctx ends.
func (m *Manager) Abort(ctx context.Context, id uuid.UUID, reason string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.cancel(fmt.Errorf("%w: %s", ErrAborted, reason))
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the match finishes or ctx ends.
func (m *Manager) Wait(ctx context.Context, id uuid.UUID) (Result, error) {
	r, err := m.get(id)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-r.done:
		res, _ := r.ctrl.Result()
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// List returns the running matches ordered by ID.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.matches))
	for id, r := range m.matches {
		f := r.ctrl.LastFrame()
		out = append(out, Summary{
			ID:       id,
			Phase:    f.Snapshot.Phase,
			Tick:     f.Snapshot.Tick,
			Genomes:  r.ctrl.Genomes(),
			Watchers: r.bcast.Len(),
		})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Recent returns the most recently finished results, oldest first.
func (m *Manager) Recent() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Result(nil), m.recent...)
}

// Shutdown aborts every running match and waits for their goroutines.
//
// Postcondition: Start fails with ErrShuttingDown afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.stopping = true
	for _, r := range m.matches {
		r.cancel(fmt.Errorf("%w: server shutting down", ErrAborted))
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
