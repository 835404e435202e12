package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

var startTime = time.Now()

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	checks map[string]HealthCheck
	hub    *sse.Hub
}

// NewHealthHandler creates a new HealthHandler. checks are keyed by
// dependency name, e.g. "database" and "redis".
func NewHealthHandler(checks map[string]HealthCheck, hub *sse.Hub) *HealthHandler {
	return &HealthHandler{checks: checks, hub: hub}
}

// GetHealth responds 200 when every dependency answers, 503 otherwise.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	healthy := true
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			healthy = false
			deps[name] = "disconnected"
			continue
		}
		deps[name] = "connected"
	}

	data := gin.H{
		"status":       "healthy",
		"version":      "1.0.0",
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
		"eventClients": h.hub.ClientCount(),
	}
	if !healthy {
		data["status"] = "degraded"
		utils.ErrorWithData(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "One or more dependencies are unavailable", data)
		return
	}
	utils.Success(c, http.StatusOK, "Service is healthy", data)
}
