package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// SessionLister lists tracked device sessions.
type SessionLister interface {
	ListActive(ctx context.Context) ([]models.AdminSession, error)
}

// SessionRevoker ends a session after password re-entry.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, callerAdminID int, targetSessionID, password string) (*models.AdminSession, bool, error)
}

// AuditRecorder writes audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, action models.AuditAction, adminID int, email, detail, ip string) (*models.AuditLog, error)
}

type SessionHandler struct {
	sessions   SessionLister
	revocation SessionRevoker
	audit      AuditRecorder
}

func NewSessionHandler(sessions SessionLister, revocation SessionRevoker, audit AuditRecorder) *SessionHandler {
	return &SessionHandler{sessions: sessions, revocation: revocation, audit: audit}
}

type sessionView struct {
	models.AdminSession
	Current bool `json:"current"`
}

// List handles GET /v1/admin/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	identity := middleware.GetIdentity(c)
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{AdminSession: s, Current: identity != nil && s.ID == identity.SessionID})
	}
	utils.SuccessList(c, http.StatusOK, "Active sessions", views, len(views))
}

// Revoke handles POST /v1/admin/sessions/:id/revoke.
func (h *SessionHandler) Revoke(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		respondError(c, utils.ErrPasswordRequired)
		return
	}

	identity := middleware.GetIdentity(c)
	ip := utils.ClientIP(c.Request)
	session, changed, err := h.revocation.RevokeSession(c.Request.Context(), identity.AdminID, c.Param("id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	// A repeat revoke of an inactive session is a no-op and leaves no entry.
	if changed {
		detail := fmt.Sprintf("Revoked session on %s", session.DeviceName)
		if _, err := h.audit.Record(c.Request.Context(), models.AuditSessionRevoked, identity.AdminID, identity.Email, detail, ip); err != nil {
			log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to record session revocation")
		}
	}

	utils.Success(c, http.StatusOK, "Session revoked", gin.H{
		"sessionId": session.ID,
		"current":   session.ID == identity.SessionID,
	})
}
