package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper removes stale entries and reports how many went.
type Sweeper interface {
	Sweep() int
	Count() int
}

// SessionSweeper periodically purges stale sessions so that memory does not
// grow with sessions nobody comes back for.
type SessionSweeper struct {
	store    Sweeper
	interval time.Duration
}

func NewSessionSweeper(store Sweeper, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("Session sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single sweep.
func (w *SessionSweeper) RunOnce() int {
	removed := w.store.Sweep()
	if removed > 0 {
		log.Debug().
			Int("removed", removed).
			Int("remaining", w.store.Count()).
			Msg("Swept stale sessions")
	}
	return removed
}
