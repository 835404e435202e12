package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

const (
	testEmail    = "admin@example.com"
	testPassword = "correct horse battery"
)

type harness struct {
	clock      *clock
	admins     *fakeAdminStore
	sessStore  *fakeSessionStore
	settings   *fakeSettings
	auditStore *fakeAuditStore
	bus        *recordingBus

	jwt        *utils.JWTManager
	registry   *SessionRegistry
	audit      *AuditService
	auth       *AdminAuthService
	gate       *SessionGate
	revocation *RevocationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      newClock(),
		admins:     newFakeAdminStore(),
		settings:   &fakeSettings{},
		auditStore: &fakeAuditStore{},
		bus:        &recordingBus{},
	}
	h.sessStore = newFakeSessionStore()

	jwtManager, err := utils.NewJWTManager("this_is_a_very_long_secret_key_with_32_plus_characters", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	h.jwt = jwtManager.WithClock(h.clock.Now)

	h.registry = NewSessionRegistry(h.sessStore)
	h.audit = NewAuditService(h.auditStore, h.bus)
	h.audit.now = h.clock.Now
	h.auth = NewAdminAuthService(h.admins, h.registry, NewTOTPEngine("Test"), h.jwt, h.audit, h.bus)
	h.auth.now = h.clock.Now
	h.gate = NewSessionGate(h.jwt, h.registry, h.settings, h.audit, h.bus)
	h.gate.now = h.clock.Now
	h.revocation = NewRevocationService(h.admins, h.registry, h.bus)
	return h
}

// enrolledAdmin registers the admin and starts enrollment, returning the secret.
func (h *harness) enrolledAdmin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	status, err := h.auth.CheckIdentity(ctx, testEmail, testPassword, "10.0.0.1")
	if err != nil || status != models.IdentitySetupNeeded {
		t.Fatalf("CheckIdentity() = %v, %v", status, err)
	}
	enrollment, err := h.auth.BeginEnrollment(ctx, testEmail)
	if err != nil {
		t.Fatalf("BeginEnrollment() error = %v", err)
	}
	return enrollment.Secret
}

func (h *harness) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, h.clock.Now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return code
}

func (h *harness) login(t *testing.T, secret, fingerprint, ip string) *LoginResult {
	t.Helper()
	res, err := h.auth.Login(context.Background(), LoginRequest{
		Email:       testEmail,
		Code:        h.code(t, secret),
		Fingerprint: fingerprint,
		UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		IP:          ip,
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return res
}
