package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gunplay/internal/game"
	"gunplay/internal/input"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the default cap on WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Outbound message types.
const (
	MessageHello      = "hello"
	MessageFrame      = "frame"
	MessageSessionEnd = "session_end"
	MessageError      = "error"
)

// wsMessage is the envelope for everything the server sends.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsClient is one socket bound to a game session.
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	session string
	send    chan []byte
}

// Hub routes frame updates to the sockets of their session and socket input
// into the engine.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*wsClient]struct{}
	bySession map[string]map[*wsClient]struct{}

	engine    EngineInterface
	tokens    *TokenIssuer
	origins   *OriginChecker
	wsLimiter *WebSocketRateLimiter
	upgrader  websocket.Upgrader
	logger    zerolog.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a hub with per-IP connection limiting.
func NewHub(engine EngineInterface, tokens *TokenIssuer, origins *OriginChecker, maxPerIP int, logger zerolog.Logger) *Hub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &Hub{
		clients:   make(map[*wsClient]struct{}),
		bySession: make(map[string]map[*wsClient]struct{}),
		engine:    engine,
		tokens:    tokens,
		origins:   origins,
		wsLimiter: NewWebSocketRateLimiter(maxPerIP),
		logger:    logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			h.logger.Warn().Str("origin", origin).Msg("websocket connection rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

func (h *Hub) add(c *wsClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	set, ok := h.bySession[c.session]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.bySession[c.session] = set
	}
	set[c] = struct{}{}
	return len(h.clients)
}

// remove unregisters c and closes its send channel. Safe to call twice.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if set := h.bySession[c.session]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.bySession, c.session)
		}
	}
	close(c.send)
	h.wsLimiter.Release(c.ip)
	UpdateWSConnections(len(h.clients))
}

// queueLocked sends without blocking. A client too slow to keep up loses
// frames rather than stalling the engine.
func (h *Hub) queueLocked(c *wsClient, msg []byte) {
	select {
	case c.send <- msg:
		h.sent.Add(1)
	default:
		h.dropped.Add(1)
	}
}

// Publish delivers a frame update to the session's sockets. It matches
// game.Callbacks.OnFrame.
func (h *Hub) Publish(u game.FrameUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.bySession[u.SessionID]
	if len(set) == 0 {
		return
	}
	msg, err := json.Marshal(wsMessage{Type: MessageFrame, Data: u})
	if err != nil {
		h.logger.Error().Err(err).Str("session", u.SessionID).Msg("failed to encode frame")
		return
	}
	for c := range set {
		h.queueLocked(c, msg)
	}
}

// CloseSession tells the session's sockets it ended and disconnects them. It
// matches game.Callbacks.OnEnd.
func (h *Hub) CloseSession(s game.SessionSummary) {
	msg, _ := json.Marshal(wsMessage{Type: MessageSessionEnd, Data: s})

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.bySession[s.ID] {
		h.queueLocked(c, msg)
		h.removeLocked(c)
	}
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubStats holds delivery counters.
type HubStats struct {
	Clients  int    `json:"clients"`
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Rejected uint64 `json:"rejected"`
}

// Stats returns delivery counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:  h.ClientCount(),
		Sent:     h.sent.Load(),
		Dropped:  h.dropped.Load(),
		Rejected: h.wsLimiter.Rejected(),
	}
}

// HandleWebSocket upgrades /ws?token=<session token> and binds the socket to
// the token's session.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		h.logger.Warn().Int("limit", MaxWSConnectionsTotal).Msg("websocket rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	sessionID, err := h.tokens.Verify(tokenFromRequest(r))
	if err != nil {
		RecordConnectionRejected("token")
		writeError(w, "session token required", http.StatusUnauthorized)
		return
	}
	if want := r.URL.Query().Get("session"); want != "" && want != sessionID {
		RecordConnectionRejected("token")
		writeError(w, "token does not match session", http.StatusForbidden)
		return
	}
	info, ok := h.engine.Session(sessionID)
	if !ok {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		h.logger.Warn().Str("ip", ip).Msg("websocket rejected: per-IP limit reached")
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{
		conn:    conn,
		ip:      ip,
		session: sessionID,
		send:    make(chan []byte, sendBuffer),
	}
	hello, _ := json.Marshal(wsMessage{Type: MessageHello, Data: info})
	c.send <- hello

	count := h.add(c)
	UpdateWSConnections(count)
	h.logger.Info().Str("session", sessionID).Str("ip", ip).Int("clients", count).Msg("client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// readPump turns client messages into session input until the socket closes.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.logger.Debug().Str("session", c.session).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg input.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				RecordInputDropped("invalid")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("session", c.session).Msg("websocket read error")
			}
			return
		}
		recordWSMessage("in")

		ev, ok := msg.Resolve()
		if !ok {
			RecordInputDropped("invalid")
			continue
		}
		switch err := h.engine.Push(c.session, ev); {
		case errors.Is(err, game.ErrSessionNotFound):
			RecordInputDropped("unknown_session")
			return
		case errors.Is(err, game.ErrInputDropped):
			RecordInputDropped("limited")
		}
	}
}

// writePump drains the send channel and keeps the connection alive.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			recordWSMessage("out")
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
