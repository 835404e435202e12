package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// SettingsProvider supplies the inactivity policy. It is consulted on every
// request so policy changes apply to tokens that are already out.
type SettingsProvider interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// AuthRequest carries what the gate needs from an incoming request.
// Token, when set, takes precedence over Authorization (used by streaming
// endpoints that cannot send headers).
type AuthRequest struct {
	Authorization string
	Token         string
	IP            string
	Background    bool
}

// SessionGate validates bearer tokens against the session registry and
// enforces the inactivity policy.
type SessionGate struct {
	jwt      *utils.JWTManager
	sessions *SessionRegistry
	settings SettingsProvider
	audit    *AuditService
	bus      sse.Publisher
	now      func() time.Time
}

// NewSessionGate creates a SessionGate.
func NewSessionGate(jwt *utils.JWTManager, sessions *SessionRegistry, settings SettingsProvider, audit *AuditService, bus sse.Publisher) *SessionGate {
	return &SessionGate{
		jwt:      jwt,
		sessions: sessions,
		settings: settings,
		audit:    audit,
		bus:      bus,
		now:      time.Now,
	}
}

// Authenticate runs the gate. Order matters: the inactivity check must run
// before the liveness touch, otherwise a timed-out session would be
// refreshed by the very request that should expire it.
func (g *SessionGate) Authenticate(ctx context.Context, req AuthRequest) (*utils.Identity, error) {
	identity, err := g.authenticate(ctx, req)
	metrics.GateDecisions.WithLabelValues(gateOutcome(err)).Inc()
	return identity, err
}

func (g *SessionGate) authenticate(ctx context.Context, req AuthRequest) (*utils.Identity, error) {
	token := req.Token
	if token == "" {
		var ok bool
		if token, ok = bearerToken(req.Authorization); !ok {
			return nil, utils.ErrUnauthenticated
		}
	}

	claims, err := g.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, utils.ErrLegacySession
	}

	session, err := g.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, utils.ErrSessionNotFound) {
		return nil, utils.ErrSessionRevoked
	}
	if err != nil {
		return nil, err
	}
	if !session.IsActive || session.AdminID != claims.AdminID {
		return nil, utils.ErrSessionRevoked
	}

	settings, err := g.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	now := g.now()
	if now.Sub(session.LastSeenAt) > settings.InactivityThreshold() {
		g.expire(ctx, session, settings, req.IP)
		return nil, utils.ErrSessionExpired
	}

	if !req.Background {
		if err := g.sessions.Touch(ctx, session.ID, now.UTC()); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to refresh session last seen")
		}
	}

	return &utils.Identity{
		AdminID:   claims.AdminID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

// expire ends a session that exceeded the inactivity threshold. Side-effect
// failures are logged; the request fails as expired regardless.
func (g *SessionGate) expire(ctx context.Context, session *models.AdminSession, settings *models.Settings, ip string) {
	if err := g.sessions.Deactivate(ctx, session.ID); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to deactivate expired session")
	}

	detail := fmt.Sprintf("Session timed out after %s of inactivity", settings.TimeoutLabel())
	if _, err := g.audit.Record(ctx, models.AuditLogout, session.AdminID, session.Email, detail, ip); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to record session timeout")
	}
	publish(ctx, g.bus, sse.NewLogoutEvent(session, sse.ReasonTimeout))

	log.Info().
		Str("session_id", session.ID).
		Int("admin_id", session.AdminID).
		Str("policy", settings.TimeoutLabel()).
		Msg("Admin session expired due to inactivity")
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func gateOutcome(err error) string {
	switch {
	case err == nil:
		return "granted"
	case errors.Is(err, utils.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, utils.ErrLegacySession):
		return "legacy_session"
	case errors.Is(err, utils.ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, utils.ErrSessionExpired):
		return "session_expired"
	default:
		return "error"
	}
}
