package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks store operation counters. Statistics are always collected;
// Prometheus export is optional and enabled with WithMetrics.
type Stats struct {
	// Atomic counters for thread-safe updates
	gets            int64
	adds            int64
	puts            int64
	deletes         int64
	fetches         int64
	cacheHits       int64
	cacheMisses     int64
	eventsPublished int64
	transactions    int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStats creates a new statistics tracker
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// Get records a get operation
func (s *Stats) Get() {
	atomic.AddInt64(&s.gets, 1)
}

// Add records an add operation
func (s *Stats) Add() {
	atomic.AddInt64(&s.adds, 1)
}

// Put records a put operation
func (s *Stats) Put() {
	atomic.AddInt64(&s.puts, 1)
}

// Delete records a delete operation
func (s *Stats) Delete() {
	atomic.AddInt64(&s.deletes, 1)
}

// Fetch records a fetch call
func (s *Stats) Fetch() {
	atomic.AddInt64(&s.fetches, 1)
}

// CacheHit records a fetch served from cached data
func (s *Stats) CacheHit() {
	atomic.AddInt64(&s.cacheHits, 1)
}

// CacheMiss records a fetch that required recomputation
func (s *Stats) CacheMiss() {
	atomic.AddInt64(&s.cacheMisses, 1)
}

// EventsPublished records published mutation events
func (s *Stats) EventsPublished(n int) {
	atomic.AddInt64(&s.eventsPublished, int64(n))
}

// Transaction records a committed transaction
func (s *Stats) Transaction() {
	atomic.AddInt64(&s.transactions, 1)
}

// UpdateSize updates the current item count
func (s *Stats) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Gets returns the total number of get operations
func (s *Stats) Gets() int64 {
	return atomic.LoadInt64(&s.gets)
}

// Adds returns the total number of add operations
func (s *Stats) Adds() int64 {
	return atomic.LoadInt64(&s.adds)
}

// Puts returns the total number of put operations
func (s *Stats) Puts() int64 {
	return atomic.LoadInt64(&s.puts)
}

// Deletes returns the total number of delete operations
func (s *Stats) Deletes() int64 {
	return atomic.LoadInt64(&s.deletes)
}

// Fetches returns the total number of fetch calls
func (s *Stats) Fetches() int64 {
	return atomic.LoadInt64(&s.fetches)
}

// CacheHits returns the number of fetches served from cache
func (s *Stats) CacheHits() int64 {
	return atomic.LoadInt64(&s.cacheHits)
}

// CacheMisses returns the number of fetches that recomputed
func (s *Stats) CacheMisses() int64 {
	return atomic.LoadInt64(&s.cacheMisses)
}

// Events returns the total number of published events
func (s *Stats) Events() int64 {
	return atomic.LoadInt64(&s.eventsPublished)
}

// Transactions returns the number of committed transactions
func (s *Stats) Transactions() int64 {
	return atomic.LoadInt64(&s.transactions)
}

// Size returns the current item count
func (s *Stats) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water item count
func (s *Stats) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns the time since the store was created
func (s *Stats) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
