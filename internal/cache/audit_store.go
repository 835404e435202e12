package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

const (
	auditIndexKey   = "audit:index"
	auditEntryKeyFn = "audit:entry:%s"
)

// AuditStore keeps audit entries in Redis. Each entry is its own key with a
// 24h expiry, and a sorted set scored by creation time orders them.
// Index members whose entry key already expired are skipped on read and
// removed by Prune.
type AuditStore struct {
	redis     *RedisClient
	retention time.Duration
	now       func() time.Time
}

// NewAuditStore creates an AuditStore with the fixed 24h retention.
func NewAuditStore(redis *RedisClient) *AuditStore {
	return &AuditStore{
		redis:     redis,
		retention: models.AuditRetention,
		now:       time.Now,
	}
}

func (s *AuditStore) entryKey(id string) string {
	return fmt.Sprintf(auditEntryKeyFn, id)
}

// Create writes the entry and its index member in one transaction.
func (s *AuditStore) Create(ctx context.Context, entry *models.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = s.redis.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(entry.ID), data, s.retention)
		pipe.ZAdd(ctx, auditIndexKey, redis.Z{
			Score:  float64(entry.CreatedAt.UnixMilli()),
			Member: entry.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store audit entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries from the last 24h, newest first.
// Index members whose entry key is gone do not count toward limit; the
// index is paged until limit is filled or exhausted.
func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	entries := []models.AuditLog{}
	if limit <= 0 {
		return entries, nil
	}
	cutoff := s.now().Add(-s.retention)
	floor := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)

	for offset := int64(0); len(entries) < limit; {
		ids, err := s.redis.client.ZRevRangeByScore(ctx, auditIndexKey, &redis.ZRangeBy{
			Min:    floor,
			Max:    "+inf",
			Offset: offset,
			Count:  int64(limit - len(entries)),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read audit index: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		offset += int64(len(ids))

		page, err := s.load(ctx, ids, cutoff)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)
	}
	return entries, nil
}

// load fetches the entries for ids, skipping expired keys and anything at or
// before cutoff.
func (s *AuditStore) load(ctx context.Context, ids []string, cutoff time.Time) ([]models.AuditLog, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(id)
	}
	values, err := s.redis.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	entries := make([]models.AuditLog, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.AuditLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry: %w", err)
		}
		if !entry.CreatedAt.After(cutoff) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Prune drops index members older than the retention window and returns
// how many were removed.
func (s *AuditStore) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.redis.client.ZRemRangeByScore(ctx, auditIndexKey, "-inf", strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to prune audit index: %w", err)
	}
	return n, nil
}
