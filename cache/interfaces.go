package cache

import (
	"context"

	"github.com/huykn/livecache/types"
)

// Logger defines the interface for logging in the live cache.
// *slog.Logger satisfies it, as do the adapters under log/.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the interface for message and record serialization.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// LocalCache defines the interface for the in-process cache that retains the
// last snapshot of a released live query.
type LocalCache interface {
	// Get retrieves a value from the local cache.
	Get(key string) (any, bool)

	// Set stores a value in the local cache.
	Set(key string, value any, cost int64) bool

	// Delete removes a value from the local cache.
	Delete(key string)

	// Clear removes all values from the local cache.
	Clear()

	// Close closes the local cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() LocalCacheMetrics
}

// LocalCacheMetrics represents local cache metrics.
type LocalCacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// LocalCacheFactory defines the interface for creating local cache implementations.
type LocalCacheFactory interface {
	// Create creates a new local cache instance.
	Create() (LocalCache, error)
}

// Store is the canonical record store used for hydration and initial population.
type Store interface {
	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Record is the dynamic record shape produced by decoding JSON objects.
type Record = map[string]any

// Action is an alias for types.Action.
type Action = types.Action

// Action constants for data messages.
const (
	ActionUpsert      = types.Upsert
	ActionRemove      = types.Remove
	ActionBatchUpsert = types.BatchUpsert
	ActionBatchRemove = types.BatchRemove
)

// Message is an alias for types.Message.
type Message = types.Message

// Stats represents live cache statistics.
type Stats struct {
	EventsReceived     int64
	EventsDiscarded    int64
	EventsFailed       int64
	Upserts            int64
	Removes            int64
	ItemFailures       int64
	HydrationFailures  int64
	Commits            int64
	CanceledCommits    int64
	MembershipFailures int64
	ActiveQueries      int64
	SnapshotHits       int64
}
