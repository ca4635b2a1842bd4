package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// AuditPruner deletes audit entries older than a cutoff.
type AuditPruner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type AuditCleanupWorker struct {
	pruner        AuditPruner
	retentionDays int
	interval      time.Duration
	now           func() time.Time
}

func NewAuditCleanupWorker(pruner AuditPruner, retentionDays int, interval time.Duration) *AuditCleanupWorker {
	return &AuditCleanupWorker{
		pruner:        pruner,
		retentionDays: retentionDays,
		interval:      interval,
		now:           time.Now,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				log.Error().Err(err).Msg("Error cleaning up audit logs")
			}
		}
	}
}

func (w *AuditCleanupWorker) cleanup(ctx context.Context) error {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.pruner.Cleanup(ctx, cutoff)
	if err != nil {
		return err
	}

	log.Info().Int64("rows", rows).Time("cutoff", cutoff).Msg("Cleaned up audit logs")
	return nil
}
