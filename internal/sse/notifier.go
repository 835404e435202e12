package sse

import (
	"context"
	"time"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

// Publisher is the event bus services publish session and audit events on.
// Delivery is best effort; callers log errors and never roll back on them.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NewLoginEvent describes a successful TOTP login.
func NewLoginEvent(session *models.AdminSession) *Event {
	return &Event{
		Type:      EventLogin,
		SessionID: session.ID,
		AdminID:   session.AdminID,
		Email:     session.Email,
		Timestamp: time.Now().UTC(),
	}
}

// NewLogoutEvent describes a session ending for the given reason.
func NewLogoutEvent(session *models.AdminSession, reason string) *Event {
	return &Event{
		Type:      EventLogout,
		Reason:    reason,
		SessionID: session.ID,
		AdminID:   session.AdminID,
		Email:     session.Email,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditEvent wraps a freshly written audit entry.
func NewAuditEvent(entry *models.AuditLog) *Event {
	return &Event{
		Type:      EventAudit,
		AdminID:   entry.AdminID,
		Email:     entry.Email,
		Audit:     entry,
		Timestamp: entry.CreatedAt,
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
