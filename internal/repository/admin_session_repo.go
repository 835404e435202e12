package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

const sessionColumns = `id, admin_id, email, device_key_kind, device_key, ip_address,
	user_agent, device_name, last_seen_at, is_active, created_at`

// AdminSessionRepository persists device sessions. Each statement touches a
// single row, so every mutation is atomic at the store level.
type AdminSessionRepository struct {
	db *sqlx.DB
}

func NewAdminSessionRepository(db *sqlx.DB) *AdminSessionRepository {
	return &AdminSessionRepository{db: db}
}

// Upsert finds or creates the session for (admin, device key). A login from
// a known device refreshes its metadata and reactivates it. last_seen_at is
// written from the caller's clock, the same one the gate measures with.
func (r *AdminSessionRepository) Upsert(ctx context.Context, admin *models.AdminUser, key models.DeviceKey, meta models.DeviceMeta, at time.Time) (*models.AdminSession, error) {
	const q = `
		INSERT INTO admin_sessions (
			admin_id, email, device_key_kind, device_key, ip_address, user_agent, device_name, last_seen_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (admin_id, device_key_kind, device_key) DO UPDATE SET
			email        = EXCLUDED.email,
			ip_address   = EXCLUDED.ip_address,
			user_agent   = EXCLUDED.user_agent,
			device_name  = EXCLUDED.device_name,
			last_seen_at = EXCLUDED.last_seen_at,
			is_active    = TRUE
		RETURNING ` + sessionColumns

	var s models.AdminSession
	err := r.db.QueryRowxContext(ctx, q,
		admin.ID, admin.Email, key.Kind, key.Value,
		meta.IPAddress, meta.UserAgent, meta.DeviceName, at,
	).StructScan(&s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns sql.ErrNoRows for unknown ids.
func (r *AdminSessionRepository) GetByID(ctx context.Context, id string) (*models.AdminSession, error) {
	var s models.AdminSession
	if err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM admin_sessions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch refreshes last_seen_at on active sessions only; an inactive row is
// left untouched so a late request cannot revive it.
func (r *AdminSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_sessions SET last_seen_at = $2
		WHERE id = $1 AND is_active
	`, id, at)
	return err
}

// Deactivate clears the active flag. It reports whether the row exists.
func (r *AdminSessionRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE admin_sessions SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActive returns active sessions, most recently seen first.
func (r *AdminSessionRepository) ListActive(ctx context.Context) ([]models.AdminSession, error) {
	sessions := []models.AdminSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+` FROM admin_sessions
		WHERE is_active
		ORDER BY last_seen_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
