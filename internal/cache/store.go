package cache

import "time"

// Expiration sentinels accepted by Store.Set.
const (
	// DefaultExpiration applies the store's configured default TTL.
	DefaultExpiration time.Duration = 0
	// NoExpiration pins the entry until an explicit delete.
	NoExpiration time.Duration = -1
)

// Stats describes the current contents of a store.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Store is the shared in-process cache interface. It is deliberately ignorant
// of domain types: payloads are opaque and callers own their typing. No
// ordering or atomicity is promised across keys; callers needing cross-key
// consistency serialize themselves (see KeyedMutex).
type Store interface {
	// Get returns the live value for key. Expired entries are evicted on
	// access and reported as absent.
	Get(key string) (any, bool)
	// Set stores value under key with the supplied TTL sentinel or duration.
	Set(key string, value any, ttl time.Duration)
	// Delete removes a single key, reporting whether it was present.
	Delete(key string) bool
	// DeletePattern removes every key matching a glob with a single `*`
	// wildcard meaning "zero or more characters", anchored at both ends.
	// It returns the number of evicted entries.
	DeletePattern(pattern string) int
	// Clear drops all entries.
	Clear()
	// Stats reports the current size and key set.
	Stats() Stats
}
