// Package session keeps authenticated sessions in process memory.
//
// A session is live while both hold:
//
//	now - LastActivity <= InactivityTimeout
//	now - CreatedAt    <= MaxAge
//
// Every successful Get or Update slides LastActivity forward. Stale sessions
// are removed lazily on access and eagerly by Sweep.
package session

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/pkg/metrics"
)

const (
	InactivityTimeout = 30 * time.Minute
	MaxAge            = 24 * time.Hour
	SweepInterval     = 5 * time.Minute
)

// Data is the user state captured at login.
type Data struct {
	UserID            int64             `json:"userId"`
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	Role              string            `json:"role"`
	IsAdmin           bool              `json:"isAdmin"`
	Permissions       model.Permissions `json:"permissions"`
	LabID             *int64            `json:"labId"`
	HasCompletedSetup bool              `json:"hasCompletedSetup"`
}

// Session is a stored session record.
type Session struct {
	ID string `json:"id"`
	Data
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// ExpiresAt is the instant the session goes stale if left untouched.
func (s *Session) ExpiresAt(idle, maxAge time.Duration) time.Time {
	idleAt := s.LastActivity.Add(idle)
	hardAt := s.CreatedAt.Add(maxAge)
	if hardAt.Before(idleAt) {
		return hardAt
	}
	return idleAt
}

func (s *Session) clone() *Session {
	c := *s
	c.Permissions = s.Permissions.Clone()
	if s.LabID != nil {
		labID := *s.LabID
		c.LabID = &labID
	}
	return &c
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	Name              *string
	Role              *string
	IsAdmin           *bool
	Permissions       model.Permissions
	LabID             *int64
	HasCompletedSetup *bool
}

func (p Patch) apply(s *Session) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Role != nil {
		s.Role = *p.Role
	}
	if p.IsAdmin != nil {
		s.IsAdmin = *p.IsAdmin
	}
	if p.Permissions != nil {
		s.Permissions = p.Permissions.Clone()
	}
	if p.LabID != nil {
		labID := *p.LabID
		s.LabID = &labID
	}
	if p.HasCompletedSetup != nil {
		s.HasCompletedSetup = *p.HasCompletedSetup
	}
}

// Store is a mutex-guarded session map. Entries never expire inside go-cache;
// staleness is judged only against the store's clock.
type Store struct {
	mu      sync.Mutex
	items   *cache.Cache
	now     func() time.Time
	idle    time.Duration
	maxAge  time.Duration
	metrics *metrics.Metrics
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics reports session counts to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		idle:   InactivityTimeout,
		maxAge: MaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	// No janitor: SessionSweeper drives cleanup through Sweep.
	s.items = cache.New(cache.NoExpiration, 0)
	return s
}

// Create stores a new session for data and returns its id.
func (s *Store) Create(data Data) string {
	now := s.now()
	sess := &Session{
		ID:           newID(now),
		Data:         data,
		CreatedAt:    now,
		LastActivity: now,
	}
	sess.Permissions = data.Permissions.Clone()
	if data.LabID != nil {
		labID := *data.LabID
		sess.LabID = &labID
	}

	s.mu.Lock()
	s.put(sess)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.reportActive()
	return sess.ID
}

// Get returns a copy of the live session with id, or nil. A stale session
// is deleted. A live one has its LastActivity refreshed.
func (s *Store) Get(id string) *Session {
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return nil
	}

	now := s.now()
	if reason := s.staleReason(sess, now); reason != "" {
		s.remove(id, reason)
		return nil
	}

	sess.LastActivity = now
	s.put(sess)
	return sess.clone()
}

// Update merges patch into the session and refreshes LastActivity. It
// reports false when the session does not exist or has gone stale.
func (s *Store) Update(id string, patch Patch) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return false
	}

	now := s.now()
	if reason := s.staleReason(sess, now); reason != "" {
		s.remove(id, reason)
		return false
	}

	patch.apply(sess)
	sess.LastActivity = now
	s.put(sess)
	return true
}

// Delete removes the session. Missing ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items.Get(id); ok {
		s.remove(id, metrics.ReasonLogout)
		return
	}
	s.items.Delete(id)
}

// Sweep deletes every stale session and returns how many were removed.
func (s *Store) Sweep() int {
	start := time.Now()

	s.mu.Lock()
	before := s.items.ItemCount()

	now := s.now()
	for id, item := range s.items.Items() {
		sess, ok := item.Object.(*Session)
		if !ok {
			s.items.Delete(id)
			continue
		}
		if s.staleReason(sess, now) != "" {
			s.items.Delete(id)
		}
	}
	removed := before - s.items.ItemCount()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		if removed > 0 {
			s.metrics.SessionsRemoved.WithLabelValues(metrics.ReasonSweep).Add(float64(removed))
		}
	}
	s.reportActive()
	return removed
}

// Count returns the number of stored sessions, stale or not.
func (s *Store) Count() int {
	return s.items.ItemCount()
}

func (s *Store) lookup(id string) (*Session, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}

// put must be called with mu held.
func (s *Store) put(sess *Session) {
	s.items.Set(sess.ID, sess, cache.NoExpiration)
}

// remove must be called with mu held.
func (s *Store) remove(id, reason string) {
	s.items.Delete(id)
	if s.metrics != nil {
		s.metrics.SessionsRemoved.WithLabelValues(reason).Inc()
		s.metrics.SessionsActive.Set(float64(s.items.ItemCount()))
	}
}

func (s *Store) staleReason(sess *Session, now time.Time) string {
	if now.Sub(sess.CreatedAt) > s.maxAge {
		return metrics.ReasonMaxAge
	}
	if now.Sub(sess.LastActivity) > s.idle {
		return metrics.ReasonIdle
	}
	return ""
}

func (s *Store) reportActive() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(s.items.ItemCount()))
	}
}

// newID builds "<base36 millis>-<32 hex chars>".
func newID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
