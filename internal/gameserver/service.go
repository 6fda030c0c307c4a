package gameserver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "arena.v1.ArenaService"

// Matches is the part of match.Manager the spectator surfaces use.
type Matches interface {
	List() []match.Summary
	Recent() []match.Result
	Subscribe(id uuid.UUID, buffer int) (<-chan match.Frame, func(), error)
	Abort(ctx context.Context, id uuid.UUID, reason string) error
}

// ArenaServer is the server API of ArenaService.
//
// ListMatches takes an Empty and answers a Listing as a Struct. Watch takes
// {"match_id"} and streams one Struct per frame until the terminal frame.
// Abort takes {"match_id", "reason"} and requires the admin token.
type ArenaServer interface {
	ListMatches(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStream) error
	Abort(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// ArenaService implements ArenaServer over a match manager.
type ArenaService struct {
	matches Matches
	auth    AdminAuth
	buffer  int
	logger  *zap.Logger
}

// NewArenaService creates the spectator service.
//
// Precondition: matches and logger must be non-nil; buffer must be > 0.
func NewArenaService(matches Matches, auth AdminAuth, buffer int, logger *zap.Logger) *ArenaService {
	return &ArenaService{matches: matches, auth: auth, buffer: buffer, logger: logger}
}

// Register attaches the service to a gRPC server.
func (s *ArenaService) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(&arenaServiceDesc, s)
}

// ListMatches returns the running matches and the recently finished results.
func (s *ArenaService) ListMatches(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summaries := s.matches.List()
	recent := s.matches.Recent()
	l := Listing{Running: make([]MatchInfo, 0, len(summaries)), Recent: make([]ResultInfo, 0, len(recent))}
	for _, sum := range summaries {
		l.Running = append(l.Running, newMatchInfo(sum))
	}
	for _, r := range recent {
		l.Recent = append(l.Recent, newResultInfo(r))
	}
	out, err := toStruct(l)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Watch streams a match's frames. The stream ends after the terminal frame or
// when the client goes away.
func (s *ArenaService) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	id, err := parseMatchID(req)
	if err != nil {
		return err
	}
	frames, cancel, err := s.matches.Subscribe(id, s.buffer)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()

	ctx := stream.Context()
	s.logger.Debug("spectator attached", zap.String("match_id", id.String()), zap.String("transport", "grpc"))
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			msg, err := toStruct(f)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
			if f.Snapshot.Phase.Terminal() {
				return nil
			}
		}
	}
}

// Abort stops a running match on behalf of an operator.
func (s *ArenaService) Abort(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if err := s.auth.CheckContext(ctx); err != nil {
		s.logger.Warn("rejected abort", zap.Error(err))
		return nil, toStatus(err)
	}
	id, err := parseMatchID(req)
	if err != nil {
		return nil, err
	}
	reason := stringField(req, "reason")
	if reason == "" {
		reason = "operator"
	}
	if err := s.matches.Abort(ctx, id, reason); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("match aborted by operator", zap.String("match_id", id.String()), zap.String("reason", reason))
	return &emptypb.Empty{}, nil
}

func parseMatchID(req *structpb.Struct) (uuid.UUID, error) {
	raw := stringField(req, "match_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "match_id %q: %v", raw, err)
	}
	return id, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func listMatchesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArenaServer).ListMatches(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListMatches"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ArenaServer).ListMatches(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func abortHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArenaServer).Abort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Abort"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ArenaServer).Abort(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ArenaServer).Watch(in, stream)
}

var arenaServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArenaServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMatches", Handler: listMatchesHandler},
		{MethodName: "Abort", Handler: abortHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "arena/v1/arena.proto",
}
