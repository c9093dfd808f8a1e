package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	data []byte
	exp  time.Time
}

// MemoryStore is an in-process TTL key/value store with the same
// Get/Set/Delete shape as the Redis cache. Values are JSON-encoded so a
// reader never shares memory with the writer.
type MemoryStore struct {
	mu    sync.RWMutex
	m     map[string]entry
	clock func() time.Time
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithClock overrides time.Now, mainly for expiry tests
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStore) {
		s.clock = clock
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		m:     make(map[string]entry),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get decodes the value under key into dest. Expired keys are evicted and
// reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if !e.exp.IsZero() && !s.clock().Before(e.exp) {
		s.mu.Lock()
		if cur, still := s.m[key]; still && cur.exp.Equal(e.exp) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores value under key; ttl <= 0 means no expiry
func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	var exp time.Time
	if ttl > 0 {
		exp = s.clock().Add(ttl)
	}

	s.mu.Lock()
	s.m[key] = entry{data: data, exp: exp}
	s.mu.Unlock()
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// CleanExpired evicts every expired key and returns how many were removed
func (s *MemoryStore) CleanExpired() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.m {
		if !e.exp.IsZero() && !now.Before(e.exp) {
			delete(s.m, key)
			removed++
		}
	}
	return removed
}
