package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/infrastructure/config"
	"github.com/mostwo/mostwo-core/internal/infrastructure/logging"
)

// Change feed message types. Requests carry a client-chosen id that is
// echoed on the reply.
const (
	FeedSubscribe   = "subscribe"
	FeedUnsubscribe = "unsubscribe"
	FeedPing        = "ping"

	FeedSubscribed   = "subscribed"
	FeedUnsubscribed = "unsubscribed"
	FeedPong         = "pong"
	FeedChange       = "change"
	FeedError        = "error"
)

const (
	// feedSendBuffer is the per-client outbound queue length. A client
	// whose queue is full when a change is published is disconnected.
	feedSendBuffer = 256

	// wildcardAction subscribes to every action of one entity, e.g. "event.*".
	wildcardAction = "*"
)

// entityActions lists the change actions each entity reports.
var entityActions = map[string][]string{
	audit.EntityMachine: {actionCreated, actionUpdated, actionDeleted, actionStatusChanged},
	audit.EntityEvent:   {actionCreated, actionUpdated, actionDeleted, actionToggled},
}

// ChangeEvent describes one committed record mutation.
type ChangeEvent struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Action string `json:"action"`
	Record any    `json:"record"`
}

// Channel returns the feed channel the change is published on.
func (c ChangeEvent) Channel() string {
	return c.Entity + "." + c.Action
}

// FeedMessage is the single frame shape used in both directions.
type FeedMessage struct {
	Type      string       `json:"type"`
	ID        string       `json:"id,omitempty"`
	Channels  []string     `json:"channels,omitempty"`
	Channel   string       `json:"channel,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
	Change    *ChangeEvent `json:"change,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// validChannel reports whether ch is "{entity}.{action}" for an action the
// entity reports, or "{entity}.*".
func validChannel(ch string) bool {
	entity, action, ok := strings.Cut(ch, ".")
	if !ok {
		return false
	}
	actions, known := entityActions[entity]
	if !known {
		return false
	}
	return action == wildcardAction || slices.Contains(actions, action)
}

func unknownChannels(channels []string) []string {
	var bad []string
	for _, ch := range channels {
		if !validChannel(ch) {
			bad = append(bad, ch)
		}
	}
	return bad
}

// Hub fans record changes out to WebSocket clients. Subscriptions are
// indexed by channel so a publish only visits interested clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu          sync.RWMutex
	clients     map[*feedClient]struct{}
	subscribers map[string]map[*feedClient]struct{}
}

type feedClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		clients:     make(map[*feedClient]struct{}),
		subscribers: make(map[string]map[*feedClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
	}
	clear(h.clients)
	clear(h.subscribers)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues change for every client subscribed to its channel or to
// the entity wildcard. Clients that cannot keep up are dropped.
func (h *Hub) Publish(change ChangeEvent) {
	channel := change.Channel()
	data, err := json.Marshal(FeedMessage{
		Type:      FeedChange,
		Channel:   channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Change:    &change,
	})
	if err != nil {
		h.logger.Error("encoding change for websocket clients", "channel", channel, "error", err)
		return
	}

	var delivered int
	var slow []*feedClient

	h.mu.RLock()
	seen := make(map[*feedClient]struct{})
	for _, key := range []string{channel, change.Entity + "." + wildcardAction} {
		for c := range h.subscribers[key] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.send <- data:
				delivered++
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", "user_id", c.userID, "channel", channel)
		h.detach(c)
	}
	if delivered > 0 {
		h.logger.Debug("change published to websocket clients", "channel", channel, "recipients", delivered)
	}
}

func (h *Hub) attach(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "user_id", c.userID, "clients", n)
}

// detach removes c and closes its queue. It is safe to call more than once.
func (h *Hub) detach(c *feedClient) {
	h.mu.Lock()
	_, attached := h.clients[c]
	if attached {
		delete(h.clients, c)
		for ch, set := range h.subscribers {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subscribers, ch)
			}
		}
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if attached {
		h.logger.Debug("websocket client disconnected", "user_id", c.userID, "clients", n)
	}
}

func (h *Hub) subscribe(c *feedClient, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, ch := range channels {
		set, ok := h.subscribers[ch]
		if !ok {
			set = make(map[*feedClient]struct{})
			h.subscribers[ch] = set
		}
		set[c] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *feedClient, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		delete(h.subscribers[ch], c)
		if len(h.subscribers[ch]) == 0 {
			delete(h.subscribers, ch)
		}
	}
}

// reply queues msg for c alone. Replies to a detached client are discarded.
func (h *Hub) reply(c *feedClient, msg FeedMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) pingInterval() time.Duration {
	return time.Duration(h.cfg.PingInterval) * time.Second
}

func (h *Hub) pongWait() time.Duration {
	return time.Duration(h.cfg.PongTimeout) * time.Second
}

// handleWebSocket upgrades to the change feed. The caller authenticates
// with a single-use ticket from POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.redeem(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, feedSendBuffer),
		userID: entry.userID,
	}
	s.hub.attach(c)

	go c.writePump()
	go c.readPump()
}

func (c *feedClient) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	deadline := c.hub.pingInterval() + c.hub.pongWait()
	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		// Application pings count as liveness too.
		//nolint:errcheck // a failed deadline surfaces on the next read
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handle(data)
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck // a failed deadline surfaces on the write
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait()))
			if !ok {
				//nolint:errcheck // connection is closing regardless
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // a failed deadline surfaces on the write
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle answers one client request. Subscribe and unsubscribe are
// all-or-nothing: one unknown channel rejects the whole request.
func (c *feedClient) handle(data []byte) {
	var req FeedMessage
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.reply(c, FeedMessage{Type: FeedError, Error: "invalid JSON message"})
		return
	}

	switch req.Type {
	case FeedSubscribe, FeedUnsubscribe:
		if len(req.Channels) == 0 {
			c.hub.reply(c, FeedMessage{Type: FeedError, ID: req.ID, Error: "channels is required"})
			return
		}
		if bad := unknownChannels(req.Channels); len(bad) > 0 {
			c.hub.reply(c, FeedMessage{
				Type:     FeedError,
				ID:       req.ID,
				Channels: bad,
				Error:    "unknown channels: " + strings.Join(bad, ", "),
			})
			return
		}
		if req.Type == FeedSubscribe {
			c.hub.subscribe(c, req.Channels)
			c.hub.logger.Debug("websocket client subscribed", "user_id", c.userID, "channels", req.Channels)
			c.hub.reply(c, FeedMessage{Type: FeedSubscribed, ID: req.ID, Channels: req.Channels})
			return
		}
		c.hub.unsubscribe(c, req.Channels)
		c.hub.reply(c, FeedMessage{Type: FeedUnsubscribed, ID: req.ID, Channels: req.Channels})
	case FeedPing:
		c.hub.reply(c, FeedMessage{Type: FeedPong, ID: req.ID})
	default:
		c.hub.reply(c, FeedMessage{Type: FeedError, ID: req.ID, Error: "unknown message type: " + req.Type})
	}
}
