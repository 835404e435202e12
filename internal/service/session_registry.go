package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// SessionStore is the persistence behind the session registry.
type SessionStore interface {
	Upsert(ctx context.Context, admin *models.AdminUser, key models.DeviceKey, meta models.DeviceMeta, at time.Time) (*models.AdminSession, error)
	GetByID(ctx context.Context, id string) (*models.AdminSession, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) (bool, error)
	ListActive(ctx context.Context) ([]models.AdminSession, error)
}

// SessionRegistry tracks one session per (administrator, device key).
type SessionRegistry struct {
	store SessionStore
}

// NewSessionRegistry creates a SessionRegistry.
func NewSessionRegistry(store SessionStore) *SessionRegistry {
	return &SessionRegistry{store: store}
}

// Upsert finds or creates the session for this device and marks it active.
// This is the only path that sets a session active. at becomes last-seen.
func (r *SessionRegistry) Upsert(ctx context.Context, admin *models.AdminUser, key models.DeviceKey, meta models.DeviceMeta, at time.Time) (*models.AdminSession, error) {
	s, err := r.store.Upsert(ctx, admin, key, meta, at)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert session: %w", err)
	}
	return s, nil
}

// Get returns utils.ErrSessionNotFound for unknown or malformed ids.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*models.AdminSession, error) {
	if !validSessionID(id) {
		return nil, utils.ErrSessionNotFound
	}
	s, err := r.store.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// Touch sets last-seen to at. Inactive sessions are left as they are.
func (r *SessionRegistry) Touch(ctx context.Context, id string, at time.Time) error {
	return r.store.Touch(ctx, id, at)
}

// Deactivate marks the session inactive. Repeating it is a no-op.
func (r *SessionRegistry) Deactivate(ctx context.Context, id string) error {
	if !validSessionID(id) {
		return utils.ErrSessionNotFound
	}
	found, err := r.store.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if !found {
		return utils.ErrSessionNotFound
	}
	return nil
}

// ListActive returns active sessions, most recently seen first.
func (r *SessionRegistry) ListActive(ctx context.Context) ([]models.AdminSession, error) {
	return r.store.ListActive(ctx)
}

// validSessionID rejects ids the UUID primary key could never hold, so they
// read as unknown instead of failing in the database.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
