package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/middleware"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrUnauthenticated),
		errors.Is(err, utils.ErrLegacySession),
		errors.Is(err, utils.ErrSessionRevoked),
		errors.Is(err, utils.ErrSessionExpired):
		middleware.AbortUnauthorized(c, err)
	case errors.Is(err, utils.ErrInvalidPassword):
		utils.Error(c, http.StatusUnauthorized, utils.ErrInvalidPassword.Error(), "Incorrect password")
	case errors.Is(err, utils.ErrPasswordRequired):
		utils.Error(c, http.StatusBadRequest, utils.ErrPasswordRequired.Error(), "Password is required")
	case errors.Is(err, utils.ErrInvalidCode):
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidCode.Error(), "Invalid verification code")
	case errors.Is(err, utils.ErrTOTPNotEnrolled):
		utils.Error(c, http.StatusBadRequest, utils.ErrTOTPNotEnrolled.Error(), "Authenticator app is not set up")
	case errors.Is(err, utils.ErrTOTPAlreadyEnabled):
		utils.Error(c, http.StatusConflict, utils.ErrTOTPAlreadyEnabled.Error(), "Authenticator app is already set up")
	case errors.Is(err, utils.ErrAdminNotFound):
		utils.Error(c, http.StatusNotFound, utils.ErrAdminNotFound.Error(), "Administrator not found")
	case errors.Is(err, utils.ErrSessionNotFound):
		utils.Error(c, http.StatusNotFound, utils.ErrSessionNotFound.Error(), "Session not found")
	case errors.Is(err, utils.ErrForbidden):
		utils.Error(c, http.StatusForbidden, utils.ErrForbidden.Error(), "Forbidden")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func invalidRequest(c *gin.Context) {
	utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
}
