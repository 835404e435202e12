package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/sse"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4 * 1024
)

// WSHandler streams the same events as SSEHandler over a WebSocket.
type WSHandler struct {
	gate       Gate
	hub        *sse.Hub
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
}

// NewWSHandler creates a WSHandler accepting browser origins whose host is in
// allowedHosts.
func NewWSHandler(gate Gate, hub *sse.Hub, allowedHosts []string) *WSHandler {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		hosts[strings.ToLower(h)] = true
	}

	return &WSHandler{
		gate:       gate,
		hub:        hub,
		pingPeriod: wsPingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && hosts[strings.ToLower(u.Host)]
			},
		},
	}
}

// Stream handles GET /v1/admin/ws?token=<jwt>
func (h *WSHandler) Stream(c *gin.Context) {
	identity, ok := authenticateStream(c, h.gate)
	if !ok {
		return
	}
	req := streamRequest(c)
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID := streamClientID("ws", identity)
	client := h.hub.Register(clientID, identity.SessionID)
	metrics.ConnectedClients.WithLabelValues("ws").Inc()
	log.Info().Str("client_id", clientID).Int("admin_id", identity.AdminID).Msg("Admin WebSocket stream started")

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, client, done, func() error {
		_, err := h.gate.Authenticate(ctx, req)
		return err
	})

	h.hub.Unregister(clientID)
	metrics.ConnectedClients.WithLabelValues("ws").Dec()
}

// readPump consumes control frames until the peer goes away.
func (h *WSHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected WebSocket close")
			}
			return
		}
	}
}

// writePump forwards hub events and pings the peer. Every ping re-checks the
// session through recheck and closes the socket once it has ended.
func (h *WSHandler) writePump(conn *websocket.Conn, client *sse.Client, done <-chan struct{}, recheck func() error) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := recheck(); err != nil {
				log.Info().Str("client_id", client.ID).Err(err).Msg("Admin WebSocket stream ended with its session")
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
