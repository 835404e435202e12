package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// AuditReader reads recent audit entries.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

type AuditHandler struct {
	audit AuditReader
}

func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /v1/admin/audit-logs?limit=N. The service caps limit.
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessList(c, http.StatusOK, "Audit logs", entries, len(entries))
}
