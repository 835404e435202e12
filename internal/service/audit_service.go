package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/sse"
)

// MaxAuditEntries caps how many entries a read returns.
const MaxAuditEntries = 100

// AuditStore persists audit entries with the 24h retention.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AuditService writes audit entries and fans them out to subscribers.
type AuditService struct {
	store AuditStore
	bus   sse.Publisher
	now   func() time.Time
}

// NewAuditService creates an AuditService.
func NewAuditService(store AuditStore, bus sse.Publisher) *AuditService {
	return &AuditService{store: store, bus: bus, now: time.Now}
}

// Record writes one entry, then publishes it. A failed publish is logged
// and never undoes the write.
func (s *AuditService) Record(ctx context.Context, action models.AuditAction, adminID int, email, detail, ip string) (*models.AuditLog, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown audit action %q", action)
	}

	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		AdminID:   adminID,
		Email:     email,
		Action:    action,
		Detail:    detail,
		IPAddress: ip,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write audit entry: %w", err)
	}
	metrics.AuditEntries.WithLabelValues(string(action)).Inc()

	publish(ctx, s.bus, sse.NewAuditEvent(entry))
	return entry, nil
}

// Recent returns up to limit entries (capped at MaxAuditEntries), newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > MaxAuditEntries {
		limit = MaxAuditEntries
	}
	return s.store.ListRecent(ctx, limit)
}

// publish sends ev on bus, logging instead of failing.
func publish(ctx context.Context, bus sse.Publisher, ev *sse.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, ev); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(ev.Type)).Inc()
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish admin event")
	}
}
