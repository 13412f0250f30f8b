package cache

import (
	"bytes"
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache keeps provider responses for the lifetime of one client.
// Values are copied on the way in and out so a caller that decodes into the
// returned slice cannot corrupt the stored response.
type memoryCache struct {
	entries *lru.LRU[string, []byte]
	closed  atomic.Bool
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	var onEvict lru.EvictCallback[string, []byte]
	if cfg.OnEvict != nil {
		onEvict = lru.EvictCallback[string, []byte](cfg.OnEvict)
	}
	return &memoryCache{
		entries: lru.NewLRU[string, []byte](cfg.Size, onEvict, cfg.TTL),
	}, nil
}

// Get misses once the cache is closed, matching a redis client whose
// connection pool is gone.
func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	if m.closed.Load() {
		return nil, false
	}
	value, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(value), true
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) {
	if m.closed.Load() {
		return
	}
	m.entries.Add(key, bytes.Clone(value))
}

func (m *memoryCache) Len(_ context.Context) int {
	if m.closed.Load() {
		return 0
	}
	return m.entries.Len()
}

// Close drops the cache without purging, so no eviction callbacks fire for
// entries that were simply abandoned.
func (m *memoryCache) Close() error {
	m.closed.Store(true)
	return nil
}
