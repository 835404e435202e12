package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// AdminLookup loads administrators by id.
type AdminLookup interface {
	GetByID(ctx context.Context, id int) (*models.AdminUser, error)
}

// RevocationService terminates sessions after the caller re-enters their
// password. Any tracked session may be revoked, not only the caller's own.
// There is no server-side attempt counter.
type RevocationService struct {
	admins   AdminLookup
	sessions *SessionRegistry
	bus      sse.Publisher
}

// NewRevocationService creates a RevocationService.
func NewRevocationService(admins AdminLookup, sessions *SessionRegistry, bus sse.Publisher) *RevocationService {
	return &RevocationService{admins: admins, sessions: sessions, bus: bus}
}

// RevokeSession deactivates targetSessionID when password matches the
// caller's. Revoking an already inactive session succeeds without changes;
// changed reports whether this call ended the session. It records no audit
// entry; that is left to the caller.
func (s *RevocationService) RevokeSession(ctx context.Context, callerAdminID int, targetSessionID, password string) (session *models.AdminSession, changed bool, err error) {
	if password == "" {
		return nil, false, utils.ErrPasswordRequired
	}

	admin, err := s.admins.GetByID(ctx, callerAdminID)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.SessionRevocations.WithLabelValues("unauthenticated").Inc()
		return nil, false, utils.ErrUnauthenticated
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		metrics.SessionRevocations.WithLabelValues("invalid_password").Inc()
		log.Warn().Int("admin_id", callerAdminID).Str("target_session_id", targetSessionID).Msg("Session revocation rejected: invalid password")
		return nil, false, utils.ErrInvalidPassword
	}

	session, err = s.sessions.Get(ctx, targetSessionID)
	if err != nil {
		return nil, false, err
	}
	wasActive := session.IsActive

	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return nil, false, err
	}
	session.IsActive = false

	if !wasActive {
		metrics.SessionRevocations.WithLabelValues("already_inactive").Inc()
		return session, false, nil
	}
	metrics.SessionRevocations.WithLabelValues("revoked").Inc()
	publish(ctx, s.bus, sse.NewLogoutEvent(session, sse.ReasonRevoked))
	log.Info().Int("admin_id", callerAdminID).Str("target_session_id", session.ID).Msg("Admin session revoked")
	return session, true, nil
}
