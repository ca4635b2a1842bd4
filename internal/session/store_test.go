package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/pkg/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testData() Data {
	labID := int64(7)
	return Data{
		UserID:            42,
		Email:             "owner@lab.test",
		Name:              "Owner",
		Role:              model.RoleAdmin,
		IsAdmin:           true,
		Permissions:       model.FullPermissions(),
		LabID:             &labID,
		HasCompletedSetup: true,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	id := store.Create(testData())
	require.NotEmpty(t, id)

	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], 32)

	sess := store.Get(id)
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, int64(42), sess.UserID)
	require.NotNil(t, sess.LabID)
	assert.Equal(t, int64(7), *sess.LabID)
	assert.Equal(t, 1, store.Count())
}

func TestStore_GetUnknown(t *testing.T) {
	store := NewStore()

	assert.Nil(t, store.Get(""))
	assert.Nil(t, store.Get("does-not-exist"))
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()
	id := store.Create(testData())

	first := store.Get(id)
	require.NotNil(t, first)
	*first.LabID = 99
	first.Permissions[model.ResourceBills][model.ActionDelete] = false

	second := store.Get(id)
	require.NotNil(t, second)
	assert.Equal(t, int64(7), *second.LabID)
	assert.True(t, second.Permissions.Allows(model.ResourceBills, model.ActionDelete))
}

func TestStore_Expiry(t *testing.T) {
	tests := []struct {
		name  string
		steps []time.Duration
		alive bool
	}{
		{
			name:  "fresh",
			steps: []time.Duration{time.Minute},
			alive: true,
		},
		{
			name:  "exactly at inactivity limit",
			steps: []time.Duration{InactivityTimeout},
			alive: true,
		},
		{
			name:  "idle past inactivity limit",
			steps: []time.Duration{InactivityTimeout + time.Second},
			alive: false,
		},
		{
			name: "kept alive by activity",
			steps: []time.Duration{
				20 * time.Minute, 20 * time.Minute, 20 * time.Minute, 20 * time.Minute,
			},
			alive: true,
		},
		{
			name:  "active but past max age",
			steps: repeat(25*time.Minute, 58),
			alive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			store := NewStore(WithClock(clock.Now))
			id := store.Create(testData())

			var sess *Session
			for _, step := range tt.steps {
				clock.Advance(step)
				sess = store.Get(id)
				if sess == nil {
					break
				}
			}

			if tt.alive {
				assert.NotNil(t, sess)
				assert.Equal(t, 1, store.Count())
			} else {
				assert.Nil(t, sess)
				assert.Equal(t, 0, store.Count(), "stale session should be removed on access")
			}
		})
	}
}

func TestStore_StaleRemovedOnAccessAfterWallClockPasses(t *testing.T) {
	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "test")
	store := NewStore(WithClock(clock.Now), WithMetrics(m))
	id := store.Create(testData())

	// Keep the session active right up to 50ms before its hard deadline.
	for _, step := range repeat(20*time.Minute, 71) {
		clock.Advance(step)
		require.NotNil(t, store.Get(id))
	}
	clock.Advance(20*time.Minute - 50*time.Millisecond)
	require.NotNil(t, store.Get(id))

	time.Sleep(120 * time.Millisecond)
	clock.Advance(time.Second)

	assert.Nil(t, store.Get(id))
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsRemoved.WithLabelValues(metrics.ReasonMaxAge)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SessionsActive))
}

func TestStore_GetSlidesLastActivity(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))
	id := store.Create(testData())

	clock.Advance(10 * time.Minute)
	first := store.Get(id)
	require.NotNil(t, first)

	clock.Advance(10 * time.Minute)
	second := store.Get(id)
	require.NotNil(t, second)

	assert.True(t, second.LastActivity.After(first.LastActivity))
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestStore_Update(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	data := testData()
	data.LabID = nil
	data.HasCompletedSetup = false
	id := store.Create(data)

	labID := int64(11)
	done := true
	clock.Advance(time.Minute)
	ok := store.Update(id, Patch{
		LabID:             &labID,
		HasCompletedSetup: &done,
		Permissions:       model.DefaultPermissions(model.RoleTechnician),
	})
	require.True(t, ok)

	sess := store.Get(id)
	require.NotNil(t, sess)
	require.NotNil(t, sess.LabID)
	assert.Equal(t, int64(11), *sess.LabID)
	assert.True(t, sess.HasCompletedSetup)
	assert.Equal(t, "Owner", sess.Name, "unpatched fields are kept")
	assert.False(t, sess.Permissions.Allows(model.ResourceBills, model.ActionView))
}

func TestStore_UpdateMissingOrStale(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	name := "x"
	assert.False(t, store.Update("", Patch{Name: &name}))
	assert.False(t, store.Update("unknown", Patch{Name: &name}))

	id := store.Create(testData())
	clock.Advance(InactivityTimeout + time.Minute)
	assert.False(t, store.Update(id, Patch{Name: &name}))
	assert.Equal(t, 0, store.Count())
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	first := store.Create(testData())
	second := store.Create(testData())
	require.NotEqual(t, first, second)

	store.Delete(first)
	store.Delete("unknown")

	assert.Nil(t, store.Get(first))
	assert.NotNil(t, store.Get(second), "other sessions of the same user survive")
}

func TestStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "test")
	store := NewStore(WithClock(clock.Now), WithMetrics(m))

	idle := store.Create(testData())
	clock.Advance(20 * time.Minute)
	active := store.Create(testData())

	clock.Advance(15 * time.Minute)
	removed := store.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Count())
	assert.Nil(t, store.Get(idle))
	assert.NotNil(t, store.Get(active))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsRemoved.WithLabelValues(metrics.ReasonSweep)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))
}

func TestStore_SweepNothingStale(t *testing.T) {
	store := NewStore()
	store.Create(testData())

	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Count())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := store.Create(testData())
			name := "renamed"
			for j := 0; j < 50; j++ {
				store.Get(id)
				store.Update(id, Patch{Name: &name})
			}
			store.Sweep()
			store.Delete(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, store.Count())
}

func TestSession_ExpiresAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sess := &Session{CreatedAt: created, LastActivity: created.Add(time.Hour)}
	assert.Equal(t, created.Add(time.Hour+InactivityTimeout), sess.ExpiresAt(InactivityTimeout, MaxAge))

	sess.LastActivity = created.Add(MaxAge - time.Minute)
	assert.Equal(t, created.Add(MaxAge), sess.ExpiresAt(InactivityTimeout, MaxAge))
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}
