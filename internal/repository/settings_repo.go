package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

// SettingsRepository reads and writes the singleton policy row.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSettings always hits the database; callers rely on policy changes
// applying to the very next request.
func (r *SettingsRepository) GetSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := r.db.GetContext(ctx, &s, `SELECT short_timeout, updated_at FROM admin_settings WHERE id = 1`); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateShortTimeout writes the policy flag and returns the stored row.
func (r *SettingsRepository) UpdateShortTimeout(ctx context.Context, short bool) (*models.Settings, error) {
	var s models.Settings
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO admin_settings (id, short_timeout, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET short_timeout = EXCLUDED.short_timeout, updated_at = NOW()
		RETURNING short_timeout, updated_at
	`, short).StructScan(&s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
