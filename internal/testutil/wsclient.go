package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// WSClient is a websocket spectator for tests.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// DialWS connects to url, rewriting an http:// prefix to ws://. The response
// is returned so handshake failures can be asserted on.
//
// Postcondition: A connected client is closed on test cleanup.
func DialWS(t *testing.T, url string) (*WSClient, *http.Response, error) {
	t.Helper()
	url = "ws" + strings.TrimPrefix(url, "http")
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, resp, err
	}
	c := &WSClient{conn: conn, t: t}
	t.Cleanup(func() { c.Close() })
	return c, resp, nil
}

// ReadFrame reads one message and decodes it as JSON (text) or msgpack (binary).
func (c *WSClient) ReadFrame(timeout time.Duration) (match.Frame, error) {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return match.Frame{}, err
	}
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		return match.Frame{}, err
	}
	var f match.Frame
	if kind == websocket.BinaryMessage {
		err = msgpack.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	return f, err
}

// ReadUntilTerminal reads frames until a victory or aborted frame and
// returns every frame read.
func (c *WSClient) ReadUntilTerminal(timeout time.Duration) []match.Frame {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	var frames []match.Frame
	for {
		f, err := c.ReadFrame(time.Until(deadline))
		if err != nil {
			c.t.Fatalf("reading frames after %d: %v", len(frames), err)
		}
		frames = append(frames, f)
		if f.Snapshot.Phase.Terminal() {
			return frames
		}
	}
}

// ExpectClose reads until the server closes the connection and returns the close error.
func (c *WSClient) ExpectClose(timeout time.Duration) *websocket.CloseError {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			ce, ok := err.(*websocket.CloseError)
			if !ok {
				c.t.Fatalf("expected close frame, got %v", err)
			}
			return ce
		}
	}
}

// Close closes the connection.
func (c *WSClient) Close() {
	_ = c.conn.Close()
}
