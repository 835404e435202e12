package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/repository"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// minPasswordLength applies only to the bootstrap call. Identity checks are
// otherwise email-only, but the first administrator needs a password hash
// for session revocation, so an email-only bootstrap is refused with
// ErrPasswordRequired.
const minPasswordLength = 8

// AdminStore is the credential store for the single administrator.
type AdminStore interface {
	AdminLookup
	Count(ctx context.Context) (int, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	EnableTOTP(ctx context.Context, id int) error
}

// LoginRequest is a TOTP login attempt from one device.
type LoginRequest struct {
	Email       string
	Code        string
	Fingerprint string
	UserAgent   string
	IP          string
}

// LoginResult is returned on a successful TOTP login.
type LoginResult struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	Session   *models.AdminSession `json:"session"`
}

// AdminAuthService drives the identity check, TOTP enrollment and login.
type AdminAuthService struct {
	admins   AdminStore
	sessions *SessionRegistry
	totp     *TOTPEngine
	jwt      *utils.JWTManager
	audit    *AuditService
	bus      sse.Publisher
	now      func() time.Time
}

// NewAdminAuthService creates an AdminAuthService.
func NewAdminAuthService(admins AdminStore, sessions *SessionRegistry, engine *TOTPEngine, jwt *utils.JWTManager, audit *AuditService, bus sse.Publisher) *AdminAuthService {
	return &AdminAuthService{
		admins:   admins,
		sessions: sessions,
		totp:     engine,
		jwt:      jwt,
		audit:    audit,
		bus:      bus,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckIdentity tells the login screen what to do next for email. While no
// administrator exists, the first caller becomes the administrator and must
// supply a password; afterwards password is ignored.
func (s *AdminAuthService) CheckIdentity(ctx context.Context, email, password, ip string) (models.IdentityStatus, error) {
	email = normalizeEmail(email)

	count, err := s.admins.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count admins: %w", err)
	}
	if count == 0 {
		status, err := s.register(ctx, email, password, ip)
		if !errors.Is(err, repository.ErrAdminExists) {
			return status, err
		}
		// Lost the bootstrap race; answer as if the admin already existed.
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Str("email", email).Msg("Identity check for unknown email while an admin exists")
		return models.IdentityForbidden, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load admin: %w", err)
	}
	if admin.TOTPEnabled {
		return models.IdentityVerifyNeeded, nil
	}
	return models.IdentitySetupNeeded, nil
}

func (s *AdminAuthService) register(ctx context.Context, email, password, ip string) (models.IdentityStatus, error) {
	if len(password) < minPasswordLength {
		return "", utils.ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{Email: email, PasswordHash: string(hash)}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdminExists) {
			return "", err
		}
		return "", fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info().Int("admin_id", admin.ID).Str("email", email).Msg("Administrator registered")
	if _, err := s.audit.Record(ctx, models.AuditUserRegistered, admin.ID, email, "Administrator account created", ip); err != nil {
		log.Error().Err(err).Msg("Failed to record admin registration")
	}
	return models.IdentitySetupNeeded, nil
}

// BeginEnrollment writes a fresh TOTP secret for the administrator,
// replacing any unconfirmed one. Once a secret is confirmed it can no longer
// be replaced through this unauthenticated path. Any other email is refused
// with ErrForbidden once the administrator exists.
func (s *AdminAuthService) BeginEnrollment(ctx context.Context, email string) (*Enrollment, error) {
	admin, err := s.getByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, utils.ErrAdminNotFound) {
		if count, cerr := s.admins.Count(ctx); cerr == nil && count > 0 {
			return nil, utils.ErrForbidden
		}
	}
	if err != nil {
		return nil, err
	}
	if admin.TOTPEnabled {
		return nil, utils.ErrTOTPAlreadyEnabled
	}

	enrollment, err := s.totp.Generate(admin.Email)
	if err != nil {
		return nil, err
	}
	if err := s.admins.SetTOTPSecret(ctx, admin.ID, enrollment.Secret); err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	log.Info().Int("admin_id", admin.ID).Msg("TOTP enrollment started")
	return enrollment, nil
}

// VerifyCode checks code against the enrolled secret. A wrong code is not an
// error. The first valid code confirms enrollment.
func (s *AdminAuthService) VerifyCode(ctx context.Context, email, code string) (bool, *models.AdminUser, error) {
	admin, err := s.getByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, nil, err
	}
	if !admin.HasSecret() {
		return false, admin, utils.ErrTOTPNotEnrolled
	}

	if !s.totp.Validate(*admin.TOTPSecret, strings.TrimSpace(code), s.now()) {
		return false, admin, nil
	}

	if !admin.TOTPEnabled {
		if err := s.admins.EnableTOTP(ctx, admin.ID); err != nil {
			return false, admin, fmt.Errorf("failed to enable totp: %w", err)
		}
		admin.TOTPEnabled = true
		log.Info().Int("admin_id", admin.ID).Msg("TOTP enrollment confirmed")
	}
	return true, admin, nil
}

// Login verifies the code, upserts the device session and issues a token
// bound to it.
func (s *AdminAuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ok, admin, err := s.VerifyCode(ctx, req.Email, req.Code)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(loginOutcome(err)).Inc()
		return nil, err
	}
	if !ok {
		metrics.LoginAttempts.WithLabelValues("invalid_code").Inc()
		log.Warn().Str("email", admin.Email).Str("ip", req.IP).Msg("Invalid TOTP code")
		return nil, utils.ErrInvalidCode
	}

	key := models.NewDeviceKey(req.Fingerprint, req.IP)
	meta := models.DeviceMeta{
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
		DeviceName: utils.DeviceName(req.UserAgent),
	}
	session, err := s.sessions.Upsert(ctx, admin, key, meta, s.now().UTC())
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	token, expiresAt, err := s.jwt.Generate(admin.ID, admin.Email, session.ID)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	detail := fmt.Sprintf("Signed in from %s", session.DeviceName)
	if _, err := s.audit.Record(ctx, models.AuditLogin, admin.ID, admin.Email, detail, req.IP); err != nil {
		log.Error().Err(err).Msg("Failed to record admin login")
	}
	publish(ctx, s.bus, sse.NewLoginEvent(session))

	log.Info().
		Int("admin_id", admin.ID).
		Str("session_id", session.ID).
		Bool("ip_fallback", key.IsFallback()).
		Msg("Admin login successful")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

// Logout ends the caller's own session.
func (s *AdminAuthService) Logout(ctx context.Context, caller *utils.Identity, ip string) error {
	session, err := s.sessions.Get(ctx, caller.SessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return err
	}

	if _, err := s.audit.Record(ctx, models.AuditLogout, caller.AdminID, caller.Email, "Signed out", ip); err != nil {
		log.Error().Err(err).Msg("Failed to record admin logout")
	}
	publish(ctx, s.bus, sse.NewLogoutEvent(session, sse.ReasonManual))
	return nil
}

func (s *AdminAuthService) getByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	return admin, nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, utils.ErrAdminNotFound):
		return "not_found"
	case errors.Is(err, utils.ErrTOTPNotEnrolled):
		return "not_enrolled"
	default:
		return "error"
	}
}
