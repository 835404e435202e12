package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

func TestRevokeSession_WrongPassword(t *testing.T) {
	h := newHarness(t)
	secret := h.enrolledAdmin(t)
	res := h.login(t, secret, "fp", "10.0.0.1")
	auditBefore := len(h.auditStore.actions())

	_, _, err := h.revocation.RevokeSession(context.Background(), res.Session.AdminID, res.Session.ID, "wrong password")
	if !errors.Is(err, utils.ErrInvalidPassword) {
		t.Fatalf("error = %v, want ErrInvalidPassword", err)
	}
	if !h.sessStore.get(res.Session.ID).IsActive {
		t.Error("session deactivated despite wrong password")
	}
	if got := len(h.auditStore.actions()); got != auditBefore {
		t.Errorf("audit entries grew from %d to %d", auditBefore, got)
	}
	if got := h.bus.ofType(sse.EventLogout); len(got) != 0 {
		t.Errorf("logout events = %+v", got)
	}
}

func TestRevokeSession_OtherDevice(t *testing.T) {
	h := newHarness(t)
	secret := h.enrolledAdmin(t)
	laptop := h.login(t, secret, "laptop", "10.0.0.1")
	h.clock.Advance(31 * time.Second)
	phone := h.login(t, secret, "phone", "10.0.0.2")

	revoked, changed, err := h.revocation.RevokeSession(context.Background(), laptop.Session.AdminID, phone.Session.ID, testPassword)
	if err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}
	if !changed {
		t.Error("changed = false for an active session")
	}
	if revoked.IsActive || h.sessStore.get(phone.Session.ID).IsActive {
		t.Error("target session still active")
	}
	if !h.sessStore.get(laptop.Session.ID).IsActive {
		t.Error("caller session affected")
	}
	logouts := h.bus.ofType(sse.EventLogout)
	if len(logouts) != 1 || logouts[0].Reason != sse.ReasonRevoked || logouts[0].SessionID != phone.Session.ID {
		t.Errorf("logout events = %+v", logouts)
	}

	if _, err := h.gate.Authenticate(context.Background(), bearer(phone.Token)); !errors.Is(err, utils.ErrSessionRevoked) {
		t.Errorf("revoked token error = %v, want ErrSessionRevoked", err)
	}
}

func TestRevokeSession_Idempotent(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, changed, err := h.revocation.RevokeSession(ctx, res.Session.AdminID, res.Session.ID, testPassword)
		if err != nil {
			t.Fatalf("attempt %d error = %v", i+1, err)
		}
		if want := i == 0; changed != want {
			t.Errorf("attempt %d changed = %v, want %v", i+1, changed, want)
		}
	}
	if h.sessStore.get(res.Session.ID).IsActive {
		t.Error("session active after revocation")
	}
	if got := h.bus.ofType(sse.EventLogout); len(got) != 1 {
		t.Errorf("logout events = %d, want 1", len(got))
	}
}

func TestRevokeSession_Errors(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	ctx := context.Background()

	if _, _, err := h.revocation.RevokeSession(ctx, res.Session.AdminID, res.Session.ID, ""); !errors.Is(err, utils.ErrPasswordRequired) {
		t.Errorf("empty password error = %v", err)
	}
	if _, _, err := h.revocation.RevokeSession(ctx, 999, res.Session.ID, testPassword); !errors.Is(err, utils.ErrUnauthenticated) {
		t.Errorf("unknown caller error = %v", err)
	}
	if _, _, err := h.revocation.RevokeSession(ctx, res.Session.AdminID, "missing", testPassword); !errors.Is(err, utils.ErrSessionNotFound) {
		t.Errorf("unknown target error = %v", err)
	}
}
