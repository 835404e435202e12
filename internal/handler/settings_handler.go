package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// SettingsManager reads and changes the inactivity policy.
type SettingsManager interface {
	Get(ctx context.Context) (*models.Settings, error)
	SetShortTimeout(ctx context.Context, caller *utils.Identity, short bool, ip string) (*models.Settings, error)
}

type SettingsHandler struct {
	settings SettingsManager
}

func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type settingsView struct {
	*models.Settings
	InactivityTimeout string `json:"inactivityTimeout"`
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Settings", settingsView{settings, settings.TimeoutLabel()})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req struct {
		ShortTimeout *bool `json:"shortTimeout" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	settings, err := h.settings.SetShortTimeout(c.Request.Context(), middleware.GetIdentity(c), *req.ShortTimeout, utils.ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Settings updated", settingsView{settings, settings.TimeoutLabel()})
}
