package gameserver_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/gameserver"
)

type fakeStarter struct {
	mu      sync.Mutex
	running int
	calls   [][2]string
	seeds   []uint64
	err     error
}

func (f *fakeStarter) Start(_ context.Context, g [2]genome.Genome, seed uint64) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.running++
	f.calls = append(f.calls, [2]string{g[0].ID, g[1].ID})
	f.seeds = append(f.seeds, seed)
	return uuid.New(), nil
}

func (f *fakeStarter) List() []match.Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return make([]match.Summary, f.running)
}

func (f *fakeStarter) finishOne() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running--
}

func TestPairings_EveryUnorderedPairOnce(t *testing.T) {
	pairs := gameserver.Pairings(roster())
	var got [][2]string
	for _, p := range pairs {
		got = append(got, [2]string{p[0].ID, p[1].ID})
	}
	assert.Equal(t, [][2]string{{"brute", "skitter"}, {"brute", "kestrel"}, {"skitter", "kestrel"}}, got)
}

func TestPropertyPairings_Count(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		r := make([]genome.Genome, n)
		assert.Len(rt, gameserver.Pairings(r), n*(n-1)/2)
	})
}

func TestNewScheduler_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := gameserver.NewScheduler(&fakeStarter{}, roster()[:1], 1, time.Second, 0, logger)
	assert.Error(t, err)
	_, err = gameserver.NewScheduler(&fakeStarter{}, roster(), 0, time.Second, 0, logger)
	assert.Error(t, err)
	_, err = gameserver.NewScheduler(&fakeStarter{}, roster(), 1, 0, 0, logger)
	assert.Error(t, err)
}

func TestScheduler_FillTopsUpAndCyclesPairings(t *testing.T) {
	st := &fakeStarter{}
	s, err := gameserver.NewScheduler(st, roster(), 2, time.Second, 100, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	n, err := s.Fill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Fill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no slot is free")

	st.finishOne()
	st.finishOne()
	_, err = s.Fill(ctx)
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"brute", "skitter"}, {"brute", "kestrel"}, {"skitter", "kestrel"}, {"brute", "skitter"}}, st.calls)
	assert.Equal(t, []uint64{100, 101, 102, 103}, st.seeds)
	assert.Equal(t, uint64(4), s.Started())
}

func TestScheduler_FillReportsStartError(t *testing.T) {
	st := &fakeStarter{err: errors.New("boom")}
	s, err := gameserver.NewScheduler(st, roster(), 1, time.Second, 1, zaptest.NewLogger(t))
	require.NoError(t, err)
	n, err := s.Fill(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.Started())
}

func TestScheduler_RunStopsOnShutdown(t *testing.T) {
	m := newManager(t, shortSettings())
	s, err := gameserver.NewScheduler(m, roster(), 1, 20*time.Millisecond, 7, zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return len(m.Recent()) >= 1 && s.Started() >= 2 }, 10*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler kept running after manager shutdown")
	}
	assert.GreaterOrEqual(t, s.Started(), uint64(2))
}
