package catalogmetrics

import (
	"sync"
	"time"
)

// NoopSink discards every metric. Used where no Prometheus registry is
// available (e.g. short-lived tooling).
type NoopSink struct{}

func (NoopSink) CacheHit(Tier)                           {}
func (NoopSink) CacheMiss()                              {}
func (NoopSink) CacheEviction(Tier)                      {}
func (NoopSink) LoadDuration(time.Duration)              {}
func (NoopSink) LoadOrigin()                             {}
func (NoopSink) StoreQuery(string, time.Duration, error) {}
func (NoopSink) LockAttempt(LockOutcome)                 {}
func (NoopSink) LockHoldDuration(time.Duration)          {}

var _ Sink = NoopSink{}

// TestSink is an in-memory Sink that records call counts, for assertions in
// cache and catalog tests without standing up a Prometheus registry.
type TestSink struct {
	mu sync.Mutex

	Hits       map[Tier]int
	Misses     int
	Evictions  map[Tier]int
	LockOut    map[LockOutcome]int
	LoadCalls  int
	Origins    int
	QueryCalls map[string]int
}

// NewTestSink builds an empty TestSink.
func NewTestSink() *TestSink {
	return &TestSink{
		Hits:       make(map[Tier]int),
		Evictions:  make(map[Tier]int),
		LockOut:    make(map[LockOutcome]int),
		QueryCalls: make(map[string]int),
	}
}

func (s *TestSink) CacheHit(tier Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Hits[tier]++
}

func (s *TestSink) CacheMiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Misses++
}

func (s *TestSink) CacheEviction(tier Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Evictions[tier]++
}

func (s *TestSink) LoadDuration(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadCalls++
}

func (s *TestSink) LoadOrigin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Origins++
}

func (s *TestSink) StoreQuery(op string, _ time.Duration, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCalls[op]++
}

func (s *TestSink) LockAttempt(outcome LockOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LockOut[outcome]++
}

func (s *TestSink) LockHoldDuration(time.Duration) {}

var _ Sink = (*TestSink)(nil)
