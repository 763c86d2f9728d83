package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/rooms"
)

// Role is a connection's relationship to its room.
type Role string

const (
	RoleNone       Role = ""
	RoleController Role = "controller"
	RoleViewer     Role = "viewer"
)

// Client is one websocket connection. Role and room membership are assigned
// when a join command is accepted.
type Client struct {
	ID          string
	role        Role
	roomCode    string
	pinnedTimer string
	userID      *uuid.UUID

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Role returns the client's current role.
func (c *Client) Role() Role { return c.role }

// RoomCode returns the room the client has joined, or "".
func (c *Client) RoomCode() string { return c.roomCode }

// enqueue hands bytes to the write pump. Slow clients drop messages rather
// than stall the room.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full, dropping message")
		return false
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal outbound message")
		return
	}
	c.enqueue(data)
}

// ConnectionConfig holds websocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// broadcastMessage targets one room. ExcludeID skips the sender for
// fire-and-forget relays; OnlyID restricts delivery to one connection.
type broadcastMessage struct {
	RoomCode  string
	Event     *Event
	ExcludeID string
	OnlyID    string
}

// Hub owns connection registration and room fan-out. Command semantics live
// in Handler; the hub is transport only.
type Hub struct {
	config   ConnectionConfig
	upgrader websocket.Upgrader
	handler  *Handler

	mu        sync.RWMutex
	roomConns map[string]map[*Client]bool
	byID      map[string]*Client

	broadcastCh chan broadcastMessage
}

func NewHub(config ConnectionConfig) *Hub {
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		roomConns:   make(map[string]map[*Client]bool),
		byID:        make(map[string]*Client),
		broadcastCh: make(chan broadcastMessage, 1024),
	}
}

// SetHandler wires the command handler. Must be called before Serve.
func (h *Hub) SetHandler(handler *Handler) {
	h.handler = handler
}

// Start drains the broadcast channel until the context ends.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("session hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session hub shutting down")
			h.closeAll()
			return
		case msg := <-h.broadcastCh:
			h.deliver(msg)
		}
	}
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	client := &Client{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	log.Info().Str("connection_id", client.ID).Msg("websocket connection established")
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[c.ID] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.byID[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.byID, c.ID)
	if set, ok := h.roomConns[c.roomCode]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.roomConns, c.roomCode)
		}
	}
	close(c.send)
	h.mu.Unlock()

	log.Info().Str("connection_id", c.ID).Str("room", c.roomCode).Msg("connection unregistered")
}

// joinRoom adds a connection to a room's broadcast group, leaving any
// previous group first. pinnedTimer restricts delivery to one timer's
// events; it is written here, under h.mu, because deliver reads it on the
// hub goroutine.
func (h *Hub) joinRoom(c *Client, code, pinnedTimer string) {
	code = rooms.Normalize(code)
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.roomCode != "" && c.roomCode != code {
		if set, ok := h.roomConns[c.roomCode]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.roomConns, c.roomCode)
			}
		}
	}
	c.roomCode = code
	c.pinnedTimer = pinnedTimer
	if h.roomConns[code] == nil {
		h.roomConns[code] = make(map[*Client]bool)
	}
	h.roomConns[code][c] = true
}

// Broadcast fans an event out to every connection in the room.
func (h *Hub) Broadcast(code string, ev *Event) {
	h.enqueueBroadcast(broadcastMessage{RoomCode: rooms.Normalize(code), Event: ev})
}

// BroadcastExcept fans out to the room, skipping the named connection.
func (h *Hub) BroadcastExcept(code, excludeID string, ev *Event) {
	h.enqueueBroadcast(broadcastMessage{RoomCode: rooms.Normalize(code), Event: ev, ExcludeID: excludeID})
}

// SendTo delivers an event to a single connection in the room.
func (h *Hub) SendTo(code, connID string, ev *Event) {
	h.enqueueBroadcast(broadcastMessage{RoomCode: rooms.Normalize(code), Event: ev, OnlyID: connID})
}

func (h *Hub) enqueueBroadcast(msg broadcastMessage) {
	select {
	case h.broadcastCh <- msg:
	default:
		log.Warn().Str("room", msg.RoomCode).Msg("broadcast channel full, dropping event")
	}
}

func (h *Hub) deliver(msg broadcastMessage) {
	h.mu.RLock()
	set, ok := h.roomConns[msg.RoomCode]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(set))
	for c := range set {
		if msg.ExcludeID != "" && c.ID == msg.ExcludeID {
			continue
		}
		if msg.OnlyID != "" && c.ID != msg.OnlyID {
			continue
		}
		// Pinned viewers only see their timer's events plus room-level ones.
		if c.pinnedTimer != "" && msg.Event.TimerID != "" && msg.Event.TimerID != c.pinnedTimer {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}
	for _, c := range targets {
		c.enqueue(data)
	}

	log.Debug().
		Str("event_type", string(msg.Event.Type)).
		Str("room", msg.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcast")
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.byID {
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.handler.Disconnected(c)
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		c.hub.handler.Dispatch(context.Background(), c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
