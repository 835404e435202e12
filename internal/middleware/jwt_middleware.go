package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/service"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// BackgroundPollHeader marks requests issued by timers rather than a person.
// They are gated but do not refresh the session's last-seen time.
const BackgroundPollHeader = "X-Background-Poll"

const sessionEndedMessage = "Session ended, please re-authenticate"

// Authenticator is the request gate behind JWTMiddleware.
type Authenticator interface {
	Authenticate(ctx context.Context, req service.AuthRequest) (*utils.Identity, error)
}

// JWTMiddleware guards admin routes with the session gate.
type JWTMiddleware struct {
	gate Authenticator
}

func NewJWTMiddleware(gate Authenticator) *JWTMiddleware {
	return &JWTMiddleware{gate: gate}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := service.AuthRequest{
			Authorization: c.GetHeader("Authorization"),
			IP:            utils.ClientIP(c.Request),
			Background:    IsBackgroundPoll(c.Request),
		}

		identity, err := m.gate.Authenticate(c.Request.Context(), req)
		if err != nil {
			AbortUnauthorized(c, err)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// IsBackgroundPoll reports whether r carries the background-poll marker.
func IsBackgroundPoll(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(BackgroundPollHeader)), "true")
}

// SetIdentity stores the authenticated identity on the gin context.
func SetIdentity(c *gin.Context, identity *utils.Identity) {
	c.Set("identity", identity)
	c.Set("admin_id", identity.AdminID)
	c.Set("email", identity.Email)
	c.Set("session_id", identity.SessionID)
}

// GetIdentity returns the identity set by JWTMiddleware, or nil.
func GetIdentity(c *gin.Context) *utils.Identity {
	v, ok := c.Get("identity")
	if !ok {
		return nil
	}
	identity, _ := v.(*utils.Identity)
	return identity
}

// AbortUnauthorized writes the gate failure and stops the chain.
func AbortUnauthorized(c *gin.Context, err error) {
	status, code, message := gateFailure(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Session gate failed")
	} else {
		log.Warn().Str("reason", code).Str("path", c.Request.URL.Path).Msg("Admin request rejected")
	}
	utils.Error(c, status, code, message)
	c.Abort()
}

func gateFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, utils.ErrSessionExpired):
		return http.StatusUnauthorized, utils.ErrSessionExpired.Error(), sessionEndedMessage
	case errors.Is(err, utils.ErrSessionRevoked):
		return http.StatusUnauthorized, utils.ErrSessionRevoked.Error(), sessionEndedMessage
	case errors.Is(err, utils.ErrLegacySession):
		return http.StatusUnauthorized, utils.ErrLegacySession.Error(), "Please sign in again"
	case errors.Is(err, utils.ErrUnauthenticated):
		return http.StatusUnauthorized, utils.ErrUnauthenticated.Error(), "Missing or invalid token"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
