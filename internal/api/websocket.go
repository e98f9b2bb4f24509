package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"sumo-arena/internal/match"
)

const (
	// MaxWSConnectionsTotal caps observer connections across all matches
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps observer connections per client IP
	MaxWSConnectionsPerIP = 10

	sendBufferSize = 32
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1024
)

// EventError reports a rejected inbound message back to one observer
const EventError = "match:error"

// Hub upgrades observer connections and wires them to the match registry
type Hub struct {
	matches  Matches
	tokens   *TokenIssuer
	origins  *OriginChecker
	upgrader websocket.Upgrader

	wsLimiter *WebSocketRateLimiter
	count     atomic.Int64
}

// NewHub creates a hub. Nothing runs until a connection arrives.
func NewHub(matches Matches, tokens *TokenIssuer, origins *OriginChecker) *Hub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &Hub{
		matches:   matches,
		tokens:    tokens,
		origins:   origins,
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			log.Warn().Str("origin", origin).Msg("⚠️ WebSocket connection rejected by origin")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ConnectionCount returns open observer connections
func (h *Hub) ConnectionCount() int {
	return int(h.count.Load())
}

// HandleWebSocket serves GET /ws/{matchID}. A valid ?token= makes the
// connection a controller that may send countdown and force-start commands.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if _, ok := h.matches.Get(matchID); !ok {
		writeError(w, "Match not found", http.StatusNotFound)
		return
	}

	ip := GetClientIP(r)
	if h.count.Load() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	controller := false
	if token := r.URL.Query().Get("token"); token != "" {
		if err := h.tokens.Verify(token, matchID); err != nil {
			h.wsLimiter.Release(ip)
			RecordConnectionRejected("auth")
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		controller = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("WebSocket upgrade failed")
		h.wsLimiter.Release(ip)
		return
	}

	obs := newWSObserver(conn)
	h.count.Add(1)
	wsConnectionsActive.Inc()

	go obs.writePump()

	if err := h.matches.Attach(matchID, obs); err != nil {
		// match ended between lookup and attach
		obs.Close()
		h.release(ip)
		return
	}
	log.Debug().Str("match", matchID).Str("ip", ip).Bool("controller", controller).Msg("📱 observer connected")

	go func() {
		defer h.release(ip)
		defer obs.Close()
		defer h.matches.Detach(matchID, obs)
		h.readPump(matchID, obs, controller)
	}()
}

func (h *Hub) release(ip string) {
	h.wsLimiter.Release(ip)
	h.count.Add(-1)
	wsConnectionsActive.Dec()
}

// inboundMessage is a player action or, from controllers, a start command
type inboundMessage struct {
	PlayerID string  `json:"playerId"`
	Action   string  `json:"action"`
	Command  string  `json:"command,omitempty"`
	Seconds  float64 `json:"seconds,omitempty"`
}

func (h *Hub) readPump(matchID string, obs *wsObserver, controller bool) {
	conn := obs.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := newMessageLimiter()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		wsMessagesTotal.WithLabelValues("in").Inc()

		if !limiter.Allow() {
			wsMessagesTotal.WithLabelValues("dropped").Inc()
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		if msg.Command != "" {
			if !controller {
				RecordConnectionRejected("auth")
				obs.sendError(matchID, "control commands need a controller token")
				continue
			}
			if err := h.matches.Control(matchID, msg.Command, msg.Seconds); err != nil {
				obs.sendError(matchID, err.Error())
			}
			continue
		}

		if err := h.matches.HandleInput(matchID, msg.PlayerID, msg.Action); err != nil {
			return
		}
	}
}

// wsObserver adapts a WebSocket connection to match.Observer.
// Send never blocks; the write pump owns all writes.
type wsObserver struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSObserver(conn *websocket.Conn) *wsObserver {
	return &wsObserver{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Send queues msg. A full buffer drops the frame; the next snapshot supersedes it.
func (o *wsObserver) Send(msg []byte) error {
	select {
	case <-o.done:
		return match.ErrObserverClosed
	default:
	}
	select {
	case o.send <- msg:
		return nil
	default:
		wsMessagesTotal.WithLabelValues("dropped").Inc()
		return match.ErrObserverSlow
	}
}

// Close stops the write pump, which flushes queued frames and closes the socket
func (o *wsObserver) Close() error {
	o.closeOnce.Do(func() { close(o.done) })
	return nil
}

func (o *wsObserver) sendError(matchID, message string) {
	b, err := json.Marshal(match.Envelope{
		Event:   EventError,
		MatchID: matchID,
		Data:    map[string]string{"error": message},
		Sent:    time.Now().UnixMilli(),
	})
	if err == nil {
		o.Send(b)
	}
}

func (o *wsObserver) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case msg := <-o.send:
			if !o.write(websocket.TextMessage, msg) {
				o.Close()
				return
			}
		case <-ticker.C:
			if !o.write(websocket.PingMessage, nil) {
				o.Close()
				return
			}
		case <-o.done:
			for {
				select {
				case msg := <-o.send:
					if !o.write(websocket.TextMessage, msg) {
						return
					}
				default:
					o.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (o *wsObserver) write(messageType int, data []byte) bool {
	o.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := o.conn.WriteMessage(messageType, data); err != nil {
		return false
	}
	if messageType == websocket.TextMessage {
		wsMessagesTotal.WithLabelValues("out").Inc()
	}
	return true
}
