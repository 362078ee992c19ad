package ports

import (
	"context"
	"time"
)

// ResponseCache defines the interface for caching idempotent API
// responses. Implementations are best-effort: a backend failure is
// reported as a miss, never as an error.
type ResponseCache interface {
	// Get retrieves a cached response body. The second return value
	// reports whether the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a response body under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Invalidate removes the key and every key it prefixes.
	Invalidate(ctx context.Context, prefix string)
}
