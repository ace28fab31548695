// cache/cache.go
package cache

import (
	"context"
	"time"
)

// Cache is a TTL-bounded key/value layer sitting in front of the participant
// store. Every implementation is fail-open: a broken backend degrades reads
// to a miss and swallows mutation errors after logging them, so cache
// unavailability can never fail a request.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports a hit.
	// Expired or unreadable entries are a miss.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration)

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string)

	// DeleteByPattern removes every key matching the literal prefix before
	// the trailing "*" of pattern.
	DeleteByPattern(ctx context.Context, pattern string)

	// Exists reports whether key holds a live entry.
	Exists(ctx context.Context, key string) bool
}
