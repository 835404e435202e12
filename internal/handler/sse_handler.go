package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/service"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

const pingInterval = 30 * time.Second

// Gate authenticates stream connections.
type Gate interface {
	Authenticate(ctx context.Context, req service.AuthRequest) (*utils.Identity, error)
}

// SSEHandler handles Server-Sent Events for admin real-time updates.
type SSEHandler struct {
	gate         Gate
	hub          *sse.Hub
	pingInterval time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(gate Gate, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{gate: gate, hub: hub, pingInterval: pingInterval}
}

// streamRequest builds the gate request for a streaming connection.
// EventSource and browser WebSockets cannot set custom headers, so the token
// is passed via query param. Streams are not user activity and never refresh
// liveness.
func streamRequest(c *gin.Context) service.AuthRequest {
	return service.AuthRequest{
		Token:         c.Query("token"),
		Authorization: c.GetHeader("Authorization"),
		IP:            utils.ClientIP(c.Request),
		Background:    true,
	}
}

// authenticateStream gates a streaming connection before it is opened.
func authenticateStream(c *gin.Context, gate Gate) (*utils.Identity, bool) {
	identity, err := gate.Authenticate(c.Request.Context(), streamRequest(c))
	if err != nil {
		middleware.AbortUnauthorized(c, err)
		return nil, false
	}
	return identity, true
}

func streamClientID(prefix string, identity *utils.Identity) string {
	return fmt.Sprintf("%s-%d-%d", prefix, identity.AdminID, time.Now().UnixNano())
}

// eventName reads the event type out of an encoded sse.Event.
func eventName(data []byte) string {
	var head struct {
		Type sse.EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return "message"
	}
	return string(head.Type)
}

// Stream handles GET /v1/admin/events?token=<jwt>
func (h *SSEHandler) Stream(c *gin.Context) {
	identity, ok := authenticateStream(c, h.gate)
	if !ok {
		return
	}
	clientID := streamClientID("sse", identity)

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, identity.SessionID)
	defer h.hub.Unregister(clientID)
	metrics.ConnectedClients.WithLabelValues("sse").Inc()
	defer metrics.ConnectedClients.WithLabelValues("sse").Dec()

	// Send initial connected event
	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"sessionId": identity.SessionID,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("admin_id", identity.AdminID).Msg("Admin SSE stream started")

	req := streamRequest(c)
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(eventName(data), string(data))
			return true
		case <-ticker.C:
			// The session may have been revoked or timed out on another node.
			if _, err := h.gate.Authenticate(c.Request.Context(), req); err != nil {
				log.Info().Str("client_id", clientID).Err(err).Msg("Admin SSE stream ended with its session")
				c.SSEvent("error", gin.H{"code": err.Error()})
				return false
			}
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
