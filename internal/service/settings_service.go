package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// SettingsStore reads and writes the inactivity policy.
type SettingsStore interface {
	SettingsProvider
	UpdateShortTimeout(ctx context.Context, short bool) (*models.Settings, error)
}

// SettingsService exposes the inactivity policy to administrators.
type SettingsService struct {
	store SettingsStore
	audit *AuditService
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(store SettingsStore, audit *AuditService) *SettingsService {
	return &SettingsService{store: store, audit: audit}
}

// Get returns the current policy.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	return s.store.GetSettings(ctx)
}

// SetShortTimeout changes the policy and records SETTINGS_CHANGED. The new
// threshold applies to every session on its next request.
func (s *SettingsService) SetShortTimeout(ctx context.Context, caller *utils.Identity, short bool, ip string) (*models.Settings, error) {
	settings, err := s.store.UpdateShortTimeout(ctx, short)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	detail := fmt.Sprintf("Inactivity timeout set to %s", settings.TimeoutLabel())
	if _, err := s.audit.Record(ctx, models.AuditSettingsChanged, caller.AdminID, caller.Email, detail, ip); err != nil {
		log.Error().Err(err).Msg("Failed to record settings change")
	}
	return settings, nil
}
