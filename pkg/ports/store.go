package ports

import "context"

// KeyValueStore backs the explicit store area of an execution context.
// Store nodes write and read through it; it is independent of per-node memoization.
// Implementations must be safe for concurrent use, since concurrent forks share it.
type KeyValueStore interface {
	// Put writes value under key, replacing any previous value.
	Put(ctx context.Context, key string, value any) error

	// Get reads the value under key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) (any, bool, error)

	// Keys lists the stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}
