package clock

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so time-based policy (token expiry, booking
// and cancellation cutoffs) stays deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func New() Clock { return realClock{} }

// Mock is a settable clock for tests.
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
