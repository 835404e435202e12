package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// AuditPruner drops audit index entries that are past retention.
type AuditPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// AuditPruneWorker keeps the Redis audit index from growing past the
// retention horizon. Entry keys expire on their own; only the index needs
// trimming.
type AuditPruneWorker struct {
	store    AuditPruner
	interval time.Duration
}

// DefaultPruneInterval is used when a non-positive interval is supplied.
const DefaultPruneInterval = 10 * time.Minute

// NewAuditPruneWorker constructs an AuditPruneWorker.
func NewAuditPruneWorker(store AuditPruner, interval time.Duration) *AuditPruneWorker {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &AuditPruneWorker{store: store, interval: interval}
}

// Start begins the periodic prune loop until context is canceled.
func (w *AuditPruneWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting audit prune worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Audit prune worker stopped")
			return
		}
	}
}

func (w *AuditPruneWorker) run(ctx context.Context) {
	removed, err := w.store.Prune(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune audit index")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Pruned expired audit entries")
	}
}
