package service

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/runtime/sources"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}

// sameOrigin accepts handshakes without an Origin header (non-browser
// clients) and browser handshakes from the page the live view served.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// wsHub pushes panel and tally updates to connected dashboard clients. A
// client that cannot keep up with its buffer is dropped.
type wsHub struct {
	logger  zerolog.Logger
	initial func() *liveState
	lookup  func(id string) (PanelState, bool)

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

type wsMessage struct {
	Type   string      `json:"type"`
	Panel  *livePanel  `json:"panel,omitempty"`
	Health *liveHealth `json:"health,omitempty"`
	State  *liveState  `json:"state,omitempty"`
}

func newWSHub(logger zerolog.Logger, initial func() *liveState) *wsHub {
	return &wsHub{
		logger:  logger,
		initial: initial,
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *wsHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	if h.initial != nil {
		if payload, err := json.Marshal(wsMessage{Type: "state", State: h.initial()}); err == nil {
			client.send <- payload
		}
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go h.writeLoop(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
	}
	h.drop(client)
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
}

func (h *wsHub) writeLoop(client *wsClient) {
	defer client.conn.Close()
	for payload := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(client)
			return
		}
	}
	_ = client.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// drop unregisters a client and closes its send queue exactly once.
func (h *wsHub) drop(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *wsHub) broadcast(msg wsMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("encode websocket message")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			delete(h.clients, client)
			close(client.send)
			h.logger.Warn().Msg("websocket client too slow, dropped")
		}
	}
}

// PanelUpdated implements Sink.
func (h *wsHub) PanelUpdated(id string, outcome sources.Outcome) {
	panel := toLivePanelUpdate(id, outcome)
	if h.lookup != nil {
		if state, ok := h.lookup(id); ok {
			panel = toLivePanel(state)
		}
	}
	h.broadcast(wsMessage{Type: "panel", Panel: &panel})
}

// HealthPublished implements Sink.
func (h *wsHub) HealthPublished(tally HealthTally) {
	health := toLiveHealth(tally)
	h.broadcast(wsMessage{Type: "health", Health: &health})
}

func (h *wsHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}
