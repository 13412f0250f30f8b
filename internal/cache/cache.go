package cache

import "context"

// EvictCallback is called when an entry is evicted from the cache.
// Only the memory provider reports evictions; Redis expires keys server-side.
type EvictCallback func(key string, value []byte)

// Logger receives errors that cache operations swallow.
// zerolog users can pass a ZerologAdapter.
type Logger interface {
	Error(msg string, err error)
}

// Cache stores raw provider responses keyed by request identity.
// A failing backend degrades to a miss; callers never see cache errors.
type Cache interface {
	// Get returns the cached value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte)

	// Len returns the number of live entries owned by this cache.
	Len(ctx context.Context) int

	// Close releases connections held by the backend.
	Close() error
}
