package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GTDGit/gtd_inbox/internal/models"
	"github.com/GTDGit/gtd_inbox/internal/repository"
	"github.com/GTDGit/gtd_inbox/internal/sse"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeAdminStore struct {
	mu     sync.Mutex
	admins map[int]*models.AdminUser
	nextID int
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: map[int]*models.AdminUser{}, nextID: 1}
}

func (f *fakeAdminStore) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.admins), nil
}

func (f *fakeAdminStore) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAdminStore) GetByID(_ context.Context, id int) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAdminStore) Create(_ context.Context, user *models.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.admins) > 0 {
		return repository.ErrAdminExists
	}
	user.ID = f.nextID
	f.nextID++
	cp := *user
	f.admins[user.ID] = &cp
	return nil
}

func (f *fakeAdminStore) SetTOTPSecret(_ context.Context, id int, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.TOTPSecret = &secret
	return nil
}

func (f *fakeAdminStore) EnableTOTP(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.admins[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.TOTPEnabled = true
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.AdminSession
	touches  int
	lookups  int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*models.AdminSession{}}
}

func (f *fakeSessionStore) Upsert(_ context.Context, admin *models.AdminUser, key models.DeviceKey, meta models.DeviceMeta, now time.Time) (*models.AdminSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.AdminID == admin.ID && s.DeviceKeyKind == key.Kind && s.DeviceKey == key.Value {
			s.Email = admin.Email
			s.IPAddress = meta.IPAddress
			s.UserAgent = meta.UserAgent
			s.DeviceName = meta.DeviceName
			s.LastSeenAt = now
			s.IsActive = true
			cp := *s
			return &cp, nil
		}
	}
	s := &models.AdminSession{
		ID:            uuid.NewString(),
		AdminID:       admin.ID,
		Email:         admin.Email,
		DeviceKeyKind: key.Kind,
		DeviceKey:     key.Value,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		DeviceName:    meta.DeviceName,
		LastSeenAt:    now,
		IsActive:      true,
		CreatedAt:     now,
	}
	f.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (*models.AdminSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	s, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	if s, ok := f.sessions[id]; ok && s.IsActive {
		s.LastSeenAt = at
	}
	return nil
}

func (f *fakeSessionStore) Deactivate(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	s, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (f *fakeSessionStore) ListActive(context.Context) ([]models.AdminSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AdminSession
	for _, s := range f.sessions {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].LastSeenAt.After(out[j-1].LastSeenAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (f *fakeSessionStore) get(id string) models.AdminSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sessions[id]
}

func (f *fakeSessionStore) setLastSeen(id string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].LastSeenAt = t
}

type fakeSettings struct {
	mu       sync.Mutex
	settings models.Settings
}

func (f *fakeSettings) GetSettings(context.Context) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettings) UpdateShortTimeout(_ context.Context, short bool) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.ShortTimeout = short
	cp := f.settings
	return &cp, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (f *fakeAuditStore) Create(_ context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) ListRecent(_ context.Context, limit int) ([]models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.AuditLog{}
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeAuditStore) actions() []models.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditAction
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingBus struct {
	mu     sync.Mutex
	events []*sse.Event
	err    error
}

func (b *recordingBus) Publish(_ context.Context, ev *sse.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return b.err
}

func (b *recordingBus) ofType(t sse.EventType) []*sse.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*sse.Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
