package replay_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/rng"
	"github.com/cory-johannsen/arena/internal/replay"
)

func genomes() [2]genome.Genome {
	return [2]genome.Genome{
		{
			ID: "kestrel", Name: "Kestrel",
			Stats:  genome.Stats{Bulk: 35, Speed: 85, Fury: 60, Instinct: 70},
			Traits: genome.Traits{Weapon: "claws", Defense: "fur", Mobility: genome.MobilityFlyer},
		},
		{
			ID: "tortoise", Name: "Tortoise",
			Stats:  genome.Stats{Bulk: 95, Speed: 25, Fury: 60, Instinct: 40},
			Traits: genome.Traits{Weapon: "horns", Defense: "shell", Mobility: genome.MobilityGround},
		},
	}
}

func settings() match.Settings {
	s := match.DefaultSettings()
	s.Countdown = 100 * time.Millisecond
	s.MaxFightDuration = 45 * time.Second
	return s
}

// record simulates a match and returns its replay bytes and result.
func record(t *testing.T, id uuid.UUID, seed uint64, headerSeed uint64) ([]byte, match.Result) {
	t.Helper()
	s := settings()
	c, err := match.NewController(id, genomes(), rng.NewSeeded(seed), nil, s, zap.NewNop())
	require.NoError(t, err)
	var buf bytes.Buffer
	w, err := replay.NewWriter(&buf, replay.Header{MatchID: id, Seed: headerSeed, Genomes: genomes(), TickInterval: s.Tuning.TickInterval})
	require.NoError(t, err)
	res, err := c.Simulate(context.Background(), func(f match.Frame) { require.NoError(t, w.WriteFrame(f)) })
	require.NoError(t, err)
	require.NoError(t, w.Finish(res))
	return buf.Bytes(), res
}

func TestWriterReader_RoundTrip(t *testing.T) {
	id := uuid.New()
	data, res := record(t, id, 21, 21)

	r, err := replay.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	h := r.Header()
	assert.Equal(t, replay.FormatVersion, h.Version)
	assert.Equal(t, id, h.MatchID)
	assert.Equal(t, uint64(21), h.Seed)
	assert.Equal(t, genomes(), h.Genomes)

	var n int64
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
		assert.Equal(t, n, f.Snapshot.Tick)
	}
	assert.Equal(t, res.Ticks, n)
	got, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, res.Winner, got.Winner)
	assert.Equal(t, res.Reason, got.Reason)
	assert.Equal(t, res.MatchID, got.MatchID)
	assert.Equal(t, res.FinalHP, got.FinalHP)
	assert.True(t, res.EndedAt.Equal(got.EndedAt))
}

func TestVerify_AcceptsGenuineRecording(t *testing.T) {
	data, res := record(t, uuid.New(), 77, 77)
	r, err := replay.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	got, err := replay.Verify(context.Background(), r, settings(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, res.Winner, got.Winner)
	assert.Equal(t, res.Draws, got.Draws)
}

func TestVerify_RejectsWrongSeed(t *testing.T) {
	data, _ := record(t, uuid.New(), 77, 78)
	r, err := replay.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = replay.Verify(context.Background(), r, settings(), nil, zap.NewNop())
	assert.ErrorIs(t, err, replay.ErrMismatch)
}

func TestVerify_AbortedRecording(t *testing.T) {
	id := uuid.New()
	s := settings()
	c, err := match.NewController(id, genomes(), rng.NewSeeded(5), nil, s, zap.NewNop())
	require.NoError(t, err)
	var buf bytes.Buffer
	w, err := replay.NewWriter(&buf, replay.Header{MatchID: id, Seed: 5, Genomes: genomes()})
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		f, err := c.Step()
		require.NoError(t, err)
		require.NoError(t, w.WriteFrame(f))
	}
	f, ok := c.Abort("operator")
	require.True(t, ok)
	require.NoError(t, w.WriteFrame(f))
	res, _ := c.Result()
	require.NoError(t, w.Finish(res))

	r, err := replay.NewReader(&buf)
	require.NoError(t, err)
	got, err := replay.Verify(context.Background(), r, s, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, match.ReasonAborted, got.Reason)
	assert.Equal(t, "operator", got.Detail)
}

func TestNewReader_RejectsForeignVersion(t *testing.T) {
	data, err := msgpack.Marshal(&replay.Header{Version: 99})
	require.NoError(t, err)
	_, err = replay.NewReader(bytes.NewReader(data))
	assert.ErrorIs(t, err, replay.ErrVersion)
}

func TestReader_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := replay.NewWriter(&buf, replay.Header{MatchID: uuid.New(), Genomes: genomes()})
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(match.Frame{Snapshot: match.Snapshot{Tick: 1}}))
	require.NoError(t, w.Finish(match.Result{}))
	cut := buf.Bytes()[:buf.Len()-3]

	r, err := replay.NewReader(bytes.NewReader(cut))
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
	_, ok := r.Result()
	assert.False(t, ok)
}

func TestFileSinks_WritesOneFilePerMatch(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	sink, err := replay.FileSinks(dir, combat.DefaultTickPeriod)(id, 3, genomes())
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrame(match.Frame{Snapshot: match.Snapshot{Tick: 1}}))
	require.NoError(t, sink.Finish(match.Result{MatchID: id, Winner: match.NoWinner}))

	f, err := os.Open(replay.Path(dir, id))
	require.NoError(t, err)
	defer f.Close()
	r, err := replay.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, combat.DefaultTickPeriod, r.Header().TickInterval)
}

func TestEncodeEvents_NilAndEmptyAgree(t *testing.T) {
	a, err := replay.EncodeEvents(nil)
	require.NoError(t, err)
	b, err := replay.EncodeEvents([]combat.Event{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProperty_EventStreamByteIdenticalPerSeed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		id := uuid.New()
		s := settings()
		s.MaxFightDuration = 40 * time.Second
		stream := func() []byte {
			c, err := match.NewController(id, genomes(), rng.NewSeeded(seed), nil, s, zap.NewNop())
			require.NoError(rt, err)
			var out bytes.Buffer
			_, err = c.Simulate(context.Background(), func(f match.Frame) {
				b, err := replay.EncodeEvents(f.Events)
				require.NoError(rt, err)
				out.Write(b)
			})
			require.NoError(rt, err)
			return out.Bytes()
		}
		assert.True(rt, bytes.Equal(stream(), stream()))
	})
}
