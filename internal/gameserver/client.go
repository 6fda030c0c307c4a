package gameserver

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// Client calls ArenaService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ListMatches fetches the running matches and recent results.
func (c *Client) ListMatches(ctx context.Context, opts ...grpc.CallOption) (Listing, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListMatches", &emptypb.Empty{}, out, opts...); err != nil {
		return Listing{}, err
	}
	var l Listing
	if err := fromStruct(out, &l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Abort asks the server to stop a match. token is the plaintext admin token.
func (c *Client) Abort(ctx context.Context, matchID, reason, token string, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(map[string]any{"match_id": matchID, "reason": reason})
	if err != nil {
		return err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, TokenMetadataKey, "Bearer "+token)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/Abort", req, new(emptypb.Empty), opts...)
}

// FrameStream receives frames from Watch.
type FrameStream struct {
	stream grpc.ClientStream
}

// Recv returns the next frame, or io.EOF after the terminal one.
func (s *FrameStream) Recv() (match.Frame, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return match.Frame{}, err
	}
	var f match.Frame
	if err := fromStruct(msg, &f); err != nil {
		return match.Frame{}, err
	}
	return f, nil
}

// Watch opens a frame stream for a match. Errors for unknown matches surface
// on the first Recv.
func (c *Client) Watch(ctx context.Context, matchID string, opts ...grpc.CallOption) (*FrameStream, error) {
	desc := &arenaServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, "/"+ServiceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"match_id": matchID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &FrameStream{stream: stream}, nil
}

// Drain reads frames until the stream ends, calling fn for each.
func (s *FrameStream) Drain(fn func(match.Frame)) error {
	for {
		f, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(f)
	}
}
