package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/service"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// AdminAuth is the login flow behind AuthHandler.
type AdminAuth interface {
	CheckIdentity(ctx context.Context, email, password, ip string) (models.IdentityStatus, error)
	BeginEnrollment(ctx context.Context, email string) (*service.Enrollment, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
	Logout(ctx context.Context, caller *utils.Identity, ip string) error
}

type AuthHandler struct {
	auth AdminAuth
}

func NewAuthHandler(auth AdminAuth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Identity handles POST /v1/admin/auth/identity. The password is only read
// when no administrator exists yet.
func (h *AuthHandler) Identity(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	status, err := h.auth.CheckIdentity(c.Request.Context(), req.Email, req.Password, utils.ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Identity checked", gin.H{"status": status})
}

// SetupTOTP handles POST /v1/admin/auth/totp/setup.
func (h *AuthHandler) SetupTOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	enrollment, err := h.auth.BeginEnrollment(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Scan the QR code with your authenticator app", enrollment)
}

// VerifyTOTP handles POST /v1/admin/auth/totp/verify and signs the device in.
func (h *AuthHandler) VerifyTOTP(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Code        string `json:"code" binding:"required"`
		Fingerprint string `json:"fingerprint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), service.LoginRequest{
		Email:       req.Email,
		Code:        req.Code,
		Fingerprint: req.Fingerprint,
		UserAgent:   c.Request.UserAgent(),
		IP:          utils.ClientIP(c.Request),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":     res.Token,
		"sessionId": res.Session.ID,
		"expiresAt": res.ExpiresAt,
		"session":   res.Session,
	})
}

// Me handles GET /v1/admin/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Authenticated", middleware.GetIdentity(c))
}

// Logout handles POST /v1/admin/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.GetIdentity(c), utils.ClientIP(c.Request)); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Logged out", nil)
}
