package gameserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/gameserver"
)

const adminToken = "let-me-in"

// testArenaServer starts an in-process gRPC server over bufconn and returns a connected client.
func testArenaServer(t *testing.T, m gameserver.Matches) *gameserver.Client {
	t.Helper()
	hash, err := gameserver.HashToken(adminToken)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	gameserver.NewArenaService(m, gameserver.NewAdminAuth(hash), 64, zaptest.NewLogger(t)).Register(grpcServer)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return gameserver.NewClient(conn)
}

func TestListMatches_RunningAndRecent(t *testing.T) {
	m := newManager(t, shortSettings())
	client := testArenaServer(t, m)
	ctx := context.Background()

	first := startMatch(t, m)
	res, err := m.Wait(ctx, first)
	require.NoError(t, err)
	second := startMatch(t, m)

	l, err := client.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, l.Running, 1)
	assert.Equal(t, second.String(), l.Running[0].ID)
	assert.Equal(t, "brute", l.Running[0].Fighters[0].ID)
	assert.Equal(t, "skitter", l.Running[0].Fighters[1].ID)

	require.Len(t, l.Recent, 1)
	assert.Equal(t, first.String(), l.Recent[0].MatchID)
	assert.Equal(t, "42", l.Recent[0].Seed)
	assert.Equal(t, res.Reason, l.Recent[0].Reason)
	assert.Equal(t, res.Ticks, l.Recent[0].Ticks)
}

func TestWatch_StreamsUntilTerminalFrame(t *testing.T) {
	m := newManager(t, shortSettings())
	client := testArenaServer(t, m)
	id := startMatch(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, id.String())
	require.NoError(t, err)

	var frames []match.Frame
	require.NoError(t, stream.Drain(func(f match.Frame) { frames = append(frames, f) }))
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, match.PhaseVictory, last.Snapshot.Phase)
	assert.Equal(t, id.String(), last.Snapshot.MatchID)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Snapshot.Tick, frames[i-1].Snapshot.Tick)
	}
}

func TestWatch_UnknownMatch(t *testing.T) {
	client := testArenaServer(t, newManager(t, shortSettings()))
	stream, err := client.Watch(context.Background(), uuid.NewString())
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestWatch_BadMatchID(t *testing.T) {
	client := testArenaServer(t, newManager(t, shortSettings()))
	stream, err := client.Watch(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAbort_RequiresToken(t *testing.T) {
	m := newManager(t, match.DefaultSettings())
	client := testArenaServer(t, m)
	id := startMatch(t, m)

	err := client.Abort(context.Background(), id.String(), "test", "wrong")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Len(t, m.List(), 1)
}

func TestAbort_StopsMatchAndWatcherSeesAbortedFrame(t *testing.T) {
	m := newManager(t, match.DefaultSettings())
	client := testArenaServer(t, m)
	id := startMatch(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, id.String())
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	require.NoError(t, client.Abort(ctx, id.String(), "maintenance", adminToken))

	var last match.Frame
	require.NoError(t, stream.Drain(func(f match.Frame) { last = f }))
	assert.Equal(t, match.PhaseAborted, last.Snapshot.Phase)

	recent := m.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, match.ReasonAborted, recent[0].Reason)
	assert.Contains(t, recent[0].Detail, "maintenance")
}

func TestAbort_UnknownMatch(t *testing.T) {
	client := testArenaServer(t, newManager(t, shortSettings()))
	err := client.Abort(context.Background(), uuid.NewString(), "", adminToken)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
