package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	sweeps atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.sweeps.Add(1)
	return 1
}

func (s *countingSweeper) Count() int { return 0 }

func TestSessionSweeper_RunOnce(t *testing.T) {
	store := &countingSweeper{}
	w := NewSessionSweeper(store, time.Hour)

	assert.Equal(t, 1, w.RunOnce())
	assert.Equal(t, int32(1), store.sweeps.Load())
}

func TestSessionSweeper_StartStopsOnCancel(t *testing.T) {
	store := &countingSweeper{}
	w := NewSessionSweeper(store, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
