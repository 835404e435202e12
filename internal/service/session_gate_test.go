package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/sse"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

func bearer(token string) AuthRequest {
	return AuthRequest{Authorization: "Bearer " + token, IP: "10.0.0.1"}
}

func TestGate_RoundTripImmediatelyAfterIssuance(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")

	id, err := h.gate.Authenticate(context.Background(), bearer(res.Token))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	want := utils.Identity{AdminID: res.Session.AdminID, Email: testEmail, SessionID: res.Session.ID}
	if *id != want {
		t.Errorf("identity = %+v, want %+v", *id, want)
	}
}

func TestGate_RejectsBadHeadersAndTokens(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")

	other, _ := utils.NewJWTManager("a_completely_different_secret_of_enough_length", time.Hour)
	foreign, _, _ := other.Generate(res.Session.AdminID, testEmail, res.Session.ID)

	tests := []struct {
		name string
		req  AuthRequest
	}{
		{"missing header", AuthRequest{}},
		{"wrong scheme", AuthRequest{Authorization: "Basic " + res.Token}},
		{"bearer without token", AuthRequest{Authorization: "Bearer "}},
		{"garbage token", bearer("abc.def.ghi")},
		{"foreign signature", bearer(foreign)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.gate.Authenticate(context.Background(), tt.req)
			if !errors.Is(err, utils.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestGate_ExpiredTokenIsUnauthenticated(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")

	h.clock.Advance(time.Hour + time.Second)
	if _, err := h.gate.Authenticate(context.Background(), bearer(res.Token)); !errors.Is(err, utils.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestGate_LegacyTokenWithoutSession(t *testing.T) {
	h := newHarness(t)
	token, _, err := h.jwt.Generate(1, testEmail, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.gate.Authenticate(context.Background(), bearer(token)); !errors.Is(err, utils.ErrLegacySession) {
		t.Errorf("error = %v, want ErrLegacySession", err)
	}
}

func TestGate_RevokedOrUnknownSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")

	unknown, _, _ := h.jwt.Generate(res.Session.AdminID, testEmail, "no-such-session")
	if _, err := h.gate.Authenticate(ctx, bearer(unknown)); !errors.Is(err, utils.ErrSessionRevoked) {
		t.Errorf("unknown session error = %v, want ErrSessionRevoked", err)
	}

	mismatched, _, _ := h.jwt.Generate(res.Session.AdminID+1, testEmail, res.Session.ID)
	if _, err := h.gate.Authenticate(ctx, bearer(mismatched)); !errors.Is(err, utils.ErrSessionRevoked) {
		t.Errorf("admin mismatch error = %v, want ErrSessionRevoked", err)
	}

	if err := h.registry.Deactivate(ctx, res.Session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.gate.Authenticate(ctx, bearer(res.Token)); !errors.Is(err, utils.ErrSessionRevoked) {
		t.Errorf("inactive session error = %v, want ErrSessionRevoked", err)
	}
}

func TestGate_InactivityBoundary(t *testing.T) {
	tests := []struct {
		name        string
		short       bool
		idle        time.Duration
		wantExpired bool
	}{
		{"short policy one second before", true, 24*time.Hour - time.Second, false},
		{"short policy exactly at threshold", true, 24 * time.Hour, false},
		{"short policy one second after", true, 24*time.Hour + time.Second, true},
		{"default policy one second before", false, 30*24*time.Hour - time.Second, false},
		{"default policy exactly at threshold", false, 30 * 24 * time.Hour, false},
		{"default policy one second after", false, 30*24*time.Hour + time.Second, true},
		{"default policy tolerates a 2 day idle", false, 48 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.settings.settings.ShortTimeout = tt.short
			res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
			h.sessStore.setLastSeen(res.Session.ID, h.clock.Now().Add(-tt.idle))

			_, err := h.gate.Authenticate(context.Background(), bearer(res.Token))
			if tt.wantExpired {
				if !errors.Is(err, utils.ErrSessionExpired) {
					t.Errorf("error = %v, want ErrSessionExpired", err)
				}
				return
			}
			if err != nil {
				t.Errorf("error = %v, want access", err)
			}
		})
	}
}

func TestGate_TimeoutSideEffects(t *testing.T) {
	h := newHarness(t)
	h.settings.settings.ShortTimeout = true
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	h.sessStore.setLastSeen(res.Session.ID, h.clock.Now().Add(-(24*time.Hour + time.Second)))
	auditBefore := len(h.auditStore.actions())

	_, err := h.gate.Authenticate(context.Background(), bearer(res.Token))
	if !errors.Is(err, utils.ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}

	if h.sessStore.get(res.Session.ID).IsActive {
		t.Error("expired session still active")
	}
	actions := h.auditStore.actions()
	if len(actions) != auditBefore+1 || actions[len(actions)-1] != models.AuditLogout {
		t.Errorf("audit actions = %v, want trailing LOGOUT", actions)
	}
	entries, _ := h.audit.Recent(context.Background(), 1)
	if entries[0].Detail != "Session timed out after 24 hours of inactivity" {
		t.Errorf("detail = %q", entries[0].Detail)
	}
	logouts := h.bus.ofType(sse.EventLogout)
	if len(logouts) != 1 || logouts[0].Reason != sse.ReasonTimeout || logouts[0].SessionID != res.Session.ID {
		t.Errorf("logout events = %+v", logouts)
	}

	// The session stays dead even though the token is still valid.
	if _, err := h.gate.Authenticate(context.Background(), bearer(res.Token)); !errors.Is(err, utils.ErrSessionRevoked) {
		t.Errorf("second attempt error = %v, want ErrSessionRevoked", err)
	}
}

func TestGate_PolicyChangeAppliesToIssuedTokens(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	h.sessStore.setLastSeen(res.Session.ID, h.clock.Now().Add(-48*time.Hour))

	h.settings.settings.ShortTimeout = true
	if _, err := h.gate.Authenticate(context.Background(), bearer(res.Token)); !errors.Is(err, utils.ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired after tightening policy", err)
	}
}

func TestGate_TouchAndBackgroundPoll(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	past := h.clock.Now().Add(-time.Hour)
	h.sessStore.setLastSeen(res.Session.ID, past)

	poll := bearer(res.Token)
	poll.Background = true
	if _, err := h.gate.Authenticate(context.Background(), poll); err != nil {
		t.Fatal(err)
	}
	if got := h.sessStore.get(res.Session.ID).LastSeenAt; !got.Equal(past) {
		t.Errorf("background poll moved last seen to %v", got)
	}

	if _, err := h.gate.Authenticate(context.Background(), bearer(res.Token)); err != nil {
		t.Fatal(err)
	}
	if got := h.sessStore.get(res.Session.ID).LastSeenAt; !got.Equal(h.clock.Now()) {
		t.Errorf("foreground request left last seen at %v", got)
	}
}

func TestGate_BackgroundPollStillEnforcesInactivity(t *testing.T) {
	h := newHarness(t)
	h.settings.settings.ShortTimeout = true
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	h.sessStore.setLastSeen(res.Session.ID, h.clock.Now().Add(-25*time.Hour))

	poll := bearer(res.Token)
	poll.Background = true
	if _, err := h.gate.Authenticate(context.Background(), poll); !errors.Is(err, utils.ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
}

func TestGate_QueryTokenTakesPrecedence(t *testing.T) {
	h := newHarness(t)
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")

	id, err := h.gate.Authenticate(context.Background(), AuthRequest{Token: res.Token, Authorization: "Bearer junk"})
	if err != nil {
		t.Fatal(err)
	}
	if id.SessionID != res.Session.ID {
		t.Errorf("SessionID = %s", id.SessionID)
	}
}

func TestGate_AuditFailureStillExpires(t *testing.T) {
	h := newHarness(t)
	h.settings.settings.ShortTimeout = true
	res := h.login(t, h.enrolledAdmin(t), "fp", "10.0.0.1")
	h.sessStore.setLastSeen(res.Session.ID, h.clock.Now().Add(-25*time.Hour))
	h.auditStore.err = errors.New("redis down")

	if _, err := h.gate.Authenticate(context.Background(), bearer(res.Token)); !errors.Is(err, utils.ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
	if h.sessStore.get(res.Session.ID).IsActive {
		t.Error("session not deactivated")
	}
}
