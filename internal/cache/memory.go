package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/voicedeck/voicedeck/pkg/metrics"
)

const defaultSweepInterval = time.Minute

type entry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a process-local Store guarded by a single RWMutex. With an
// infinite default TTL no sweeper goroutine is started at all; a finite
// default TTL enables a fixed-interval background sweep that evicts expired
// entries without waiting for a Get.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry

	defaultTTL time.Duration
	clock      func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore constructs a MemoryStore. A defaultTTL of NoExpiration
// disables the periodic sweep entirely; a positive defaultTTL starts a
// sweeper at the given interval (defaulting to one minute).
func NewMemoryStore(defaultTTL, sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	if defaultTTL > 0 {
		if sweepInterval <= 0 {
			sweepInterval = defaultSweepInterval
		}
		store.sweepStop = make(chan struct{})
		go store.sweepLoop(sweepInterval)
	}

	return store
}

// Get returns the live value for key, lazily evicting expired entries.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	ent, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		metrics.CacheOperations.WithLabelValues("miss").Inc()
		return nil, false
	}

	if ent.expired(s.clock()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it.
		if current, stillThere := s.entries[key]; stillThere && current.expired(s.clock()) {
			delete(s.entries, key)
			metrics.CacheOperations.WithLabelValues("evict").Inc()
		}
		s.mu.Unlock()
		metrics.CacheOperations.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheOperations.WithLabelValues("hit").Inc()
	return ent.value, true
}

// Set stores value under key. DefaultExpiration applies the configured
// default TTL; NoExpiration pins the entry until an explicit delete.
func (s *MemoryStore) Set(key string, value any, ttl time.Duration) {
	if ttl == DefaultExpiration {
		ttl = s.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.clock().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: expiresAt}
	s.mu.Unlock()
}

// Delete removes a single key, reporting whether it was present.
func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// DeletePattern removes every key matching the glob, returning the count.
func (s *MemoryStore) DeletePattern(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if matchPattern(pattern, key) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Stats reports the current size and key set.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return Stats{Size: len(keys), Keys: keys}
}

// Close stops the background sweeper, if one is running.
func (s *MemoryStore) Close() {
	if s.sweepStop == nil {
		return
	}
	s.sweepOnce.Do(func() {
		close(s.sweepStop)
	})
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.clock()

	s.mu.Lock()
	for key, ent := range s.entries {
		if ent.expired(now) {
			delete(s.entries, key)
			metrics.CacheOperations.WithLabelValues("evict").Inc()
		}
	}
	s.mu.Unlock()

	metrics.CacheOperations.WithLabelValues("sweep").Inc()
}

// matchPattern implements the single-wildcard glob: `*` matches zero or more
// characters and the pattern is anchored at both ends. Without a wildcard the
// match is exact.
func matchPattern(pattern, key string) bool {
	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		return pattern == key
	}

	prefix, suffix := pattern[:idx], pattern[idx+1:]
	if len(key) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}
