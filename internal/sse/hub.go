package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

// EventType defines the real-time event name.
type EventType string

const (
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"
	EventAudit  EventType = "audit"
)

// Logout reasons carried on EventLogout.
const (
	ReasonTimeout = "timeout"
	ReasonRevoked = "revoked"
	ReasonManual  = "manual"
)

// Event is the payload pushed to every connected admin subscriber.
type Event struct {
	Type      EventType        `json:"type"`
	Reason    string           `json:"reason,omitempty"`
	SessionID string           `json:"sessionId,omitempty"`
	AdminID   int              `json:"adminId,omitempty"`
	Email     string           `json:"email,omitempty"`
	Audit     *models.AuditLog `json:"audit,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Client represents a connected SSE or WebSocket admin client.
type Client struct {
	ID        string
	SessionID string
	Events    chan []byte
}

// Hub manages client connections and broadcasts. There is no per-client
// filtering: every subscriber receives every event until its own session
// logs out.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID, sessionID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:        clientID,
		SessionID: sessionID,
		Events:    make(chan []byte, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("Event client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("Event client disconnected")
	}
}

// Broadcast sends an event to all connected clients.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	h.broadcast(data, endedSessionOf(event))
}

// BroadcastRaw fans out an already encoded event.
func (h *Hub) BroadcastRaw(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		log.Warn().Err(err).Msg("Undecodable event, delivering without session handling")
	}
	h.broadcast(data, endedSessionOf(&event))
}

// broadcast delivers data to every client. When ended is set, the streams of
// that session receive the logout and are then closed, so nothing published
// afterwards reaches them.
func (h *Hub) broadcast(data []byte, ended string) {
	if ended == "" {
		h.mu.RLock()
		defer h.mu.RUnlock()
		h.fanout(data)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanout(data)
	h.disconnectLocked(ended)
}

func (h *Hub) fanout(data []byte) {
	for _, c := range h.clients {
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("Event client buffer full, dropping event")
		}
	}
}

// DisconnectSession closes every stream opened by sessionID and returns how
// many were closed.
func (h *Hub) DisconnectSession(sessionID string) int {
	if sessionID == "" {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnectLocked(sessionID)
}

func (h *Hub) disconnectLocked(sessionID string) int {
	closed := 0
	for id, c := range h.clients {
		if c.SessionID != sessionID {
			continue
		}
		close(c.Events)
		delete(h.clients, id)
		closed++
	}
	if closed > 0 {
		log.Info().Str("session_id", sessionID).Int("closed", closed).Int("total_clients", len(h.clients)).Msg("Closed event streams of ended session")
	}
	return closed
}

func endedSessionOf(event *Event) string {
	if event.Type != EventLogout {
		return ""
	}
	return event.SessionID
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements Publisher for in-process delivery.
func (h *Hub) Publish(_ context.Context, event *Event) error {
	if h.ClientCount() == 0 {
		return nil
	}
	h.Broadcast(event)
	return nil
}
