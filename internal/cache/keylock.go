package cache

import (
	"hash/fnv"
	"sync"
)

const keyedMutexShards = 64

// KeyedMutex provides sharded per-key locking. The generic Store promises no
// cross-key atomicity, so read-modify-write sequences against a cache entry
// (list-then-patch, list-then-prepend) take the entry's lock for the full
// store-then-cache sequence to avoid lost updates between concurrent requests.
type KeyedMutex struct {
	shards [keyedMutexShards]sync.Mutex
}

// NewKeyedMutex constructs an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard lock for key and returns its release function.
func (m *KeyedMutex) Lock(key string) func() {
	shard := &m.shards[shardIndex(key)]
	shard.Lock()
	return shard.Unlock
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % keyedMutexShards
}
