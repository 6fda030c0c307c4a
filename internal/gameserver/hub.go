package gameserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/match"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Frame encodings selectable with ?format=.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Hub serves spectators over websockets:
//
//	GET /matches                 running matches and recent results as JSON
//	GET /matches/{id}/watch      upgrade, then one message per frame
//
// JSON frames go out as text messages; ?format=msgpack sends binary messages.
type Hub struct {
	matches  Matches
	buffer   int
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a websocket hub over matches.
//
// Precondition: matches and logger must be non-nil; buffer must be > 0.
func NewHub(matches Matches, buffer int, logger *zap.Logger) *Hub {
	return &Hub{
		matches: matches,
		buffer:  buffer,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the hub's HTTP routes.
func (h *Hub) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/matches", h.serveList).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/watch", h.serveWatch).Methods(http.MethodGet)
	return r
}

func (h *Hub) serveList(w http.ResponseWriter, r *http.Request) {
	summaries := h.matches.List()
	recent := h.matches.Recent()
	l := Listing{Running: make([]MatchInfo, 0, len(summaries)), Recent: make([]ResultInfo, 0, len(recent))}
	for _, s := range summaries {
		l.Running = append(l.Running, newMatchInfo(s))
	}
	for _, res := range recent {
		l.Recent = append(l.Recent, newResultInfo(res))
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(l); err != nil {
		h.logger.Debug("writing match list", zap.Error(err))
	}
}

func (h *Hub) serveWatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatMsgpack {
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}
	frames, cancel, err := h.matches.Subscribe(id, h.buffer)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.track(conn) {
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	logger := h.logger.With(zap.String("match_id", id.String()), zap.String("remote", r.RemoteAddr))
	logger.Debug("spectator attached", zap.String("transport", "websocket"), zap.String("format", format))

	// Spectators never send data; reading is only how a client close is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			logger.Debug("spectator left")
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case f, ok := <-frames:
			if !ok {
				h.closeConn(conn, websocket.CloseNormalClosure, "match over")
				return
			}
			if err := writeFrame(conn, format, f); err != nil {
				logger.Debug("writing frame", zap.Error(err))
				return
			}
			if f.Snapshot.Phase.Terminal() {
				h.closeConn(conn, websocket.CloseNormalClosure, string(f.Snapshot.Phase))
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, format string, f match.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if format == FormatMsgpack {
		b, err := msgpack.Marshal(&f)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, b)
	}
	return conn.WriteJSON(f)
}

func (h *Hub) closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (h *Hub) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Hub) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
	h.wg.Done()
}

// Close sends a going-away close to every spectator and waits for their
// handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.closeConn(c, websocket.CloseGoingAway, "server shutting down")
		// Unblock the reader so the handler exits.
		_ = c.SetReadDeadline(time.Now())
	}
	h.wg.Wait()
}
