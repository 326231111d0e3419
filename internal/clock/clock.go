package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time for transaction and wallet timestamps.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC. UTC strips the monotonic reading, so
// Now never returns a time before one it already returned: a backward wall
// clock step repeats the last reading until the wall clock catches up.
// Ledger ordering relies on this.
type System struct {
	mu   sync.Mutex
	last time.Time
	wall func() time.Time
}

// NewSystem returns a System clock.
func NewSystem() *System {
	return &System{}
}

// Now returns the wall time in UTC, never earlier than the previous call.
func (s *System) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	wall := time.Now
	if s.wall != nil {
		wall = s.wall
	}
	now := wall().UTC()
	if now.Before(s.last) {
		return s.last
	}
	s.last = now
	return now
}

// Manual is a settable clock for tests. The zero value reports the zero time.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock positioned at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
