// Package gateway pushes event notifications to websocket clients watching an event.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/rs/zerolog/log"
)

// Hub manages websocket connections grouped by event
type Hub struct {
	eventConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader    websocket.Upgrader
	config      Config
	broadcastCh chan notify.Notification
}

// Connection is one websocket client watching an event
type Connection struct {
	ID      string
	ActorID uuid.UUID
	EventID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	hub     *Hub

	ConnectedAt time.Time
}

// Config holds websocket connection settings
type Config struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	SendBuffer      int           `yaml:"send_buffer"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DefaultConfig returns default websocket settings
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
	}
}

// NewHub creates a new hub
func NewHub(cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	h := &Hub{
		eventConnections: make(map[uuid.UUID]map[*Connection]bool),
		config:           cfg,
		broadcastCh:      make(chan notify.Notification, 1000),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Run delivers queued notifications until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	log.Info().Msg("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Info().Msg("websocket hub shutting down")
			return nil
		case n := <-h.broadcastCh:
			h.handleBroadcast(n)
		}
	}
}

// Publish queues n for every client watching its event. It never blocks.
func (h *Hub) Publish(_ context.Context, n notify.Notification) error {
	select {
	case h.broadcastCh <- n:
		return nil
	default:
		log.Warn().Str("event_id", n.EventID.String()).Msg("broadcast channel full, dropping message")
		return fmt.Errorf("gateway broadcast channel full")
	}
}

// Upgrade upgrades the request and registers the connection for eventID.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, actorID, eventID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		ActorID:     actorID,
		EventID:     eventID,
		Conn:        conn,
		Send:        make(chan []byte, h.config.SendBuffer),
		hub:         h,
		ConnectedAt: time.Now(),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("actor_id", actorID.String()).
		Str("event_id", eventID.String()).
		Msg("websocket connection established")
	return nil
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eventConnections[c.EventID] == nil {
		h.eventConnections[c.EventID] = make(map[*Connection]bool)
	}
	h.eventConnections[c.EventID][c] = true
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.eventConnections[c.EventID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.eventConnections, c.EventID)
	}
	log.Debug().
		Str("connection_id", c.ID).
		Str("event_id", c.EventID.String()).
		Msg("connection unregistered")
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	var all []*Connection
	for _, conns := range h.eventConnections {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) handleBroadcast(n notify.Notification) {
	h.mu.RLock()
	var targets []*Connection
	for c := range h.eventConnections[n.EventID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal notification for broadcast")
		return
	}
	for _, c := range targets {
		select {
		case c.Send <- data:
		default:
			log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, closing connection")
			h.unregister(c)
		}
	}

	log.Debug().
		Str("kind", string(n.Kind)).
		Str("event_id", n.EventID.String()).
		Int("connections", len(targets)).
		Msg("notification broadcast")
}

// Connections returns the number of clients watching eventID.
func (h *Hub) Connections(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.eventConnections[eventID])
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}

// readPump only keeps the read deadline alive; clients do not send commands.
func (c *Connection) readPump() {
	defer c.hub.unregister(c)

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
