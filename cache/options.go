package cache

import (
	"context"
	"time"

	"github.com/huykn/livecache/codec"
	"github.com/huykn/livecache/identity"
	"go.opentelemetry.io/otel/metric"
)

// LocalCacheConfig configures the snapshot retention cache.
type LocalCacheConfig struct {
	// NumCounters is the number of counters for the cache (Ristretto only).
	// Recommended: 10 * MaxItems
	NumCounters int64

	// MaxCost is the maximum cost of items in the cache (Ristretto only).
	// Each retained snapshot costs its record count.
	MaxCost int64

	// BufferItems is the number of items to buffer before eviction (Ristretto only).
	// Recommended: 64
	BufferItems int64

	// IgnoreInternalCost ignores the internal cost of items (Ristretto only).
	IgnoreInternalCost bool

	// MaxSize is the maximum number of snapshots in the cache (LRU only).
	MaxSize int
}

// Options configures a Client.
type Options struct {
	// PodID is the unique identifier for this process.
	PodID string

	// SerializationFormat specifies how messages are decoded ("json", "msgpack" or "cbor").
	SerializationFormat string

	// Marshaller overrides SerializationFormat when set.
	Marshaller Marshaller

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout bounds hydration fetches and group join/leave calls.
	ContextTimeout time.Duration

	// Meter receives OpenTelemetry metrics. Nil records nothing.
	Meter metric.Meter

	// OnError is called when an error occurs in background operations.
	OnError func(error)

	// RetainSnapshots keeps the last list of a released live query so the next
	// watcher of the same key starts from it while its fetch runs.
	RetainSnapshots bool

	// LocalCacheConfig configures the retention cache.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for the retention cache.
	// If nil, defaults to the Ristretto (LFU) factory.
	LocalCacheFactory LocalCacheFactory
}

// DefaultOptions returns default client options.
func DefaultOptions() Options {
	return Options{
		PodID:               "default-pod",
		SerializationFormat: codec.FormatJSON,
		ContextTimeout:      5 * time.Second,
		RetainSnapshots:     true,
		LocalCacheConfig:    DefaultLocalCacheConfig(),
		LocalCacheFactory:   nil, // Will default to Ristretto in NewClient()
		Marshaller:          nil, // Will default to SerializationFormat in NewClient()
		Logger:              nil, // Will default to no-op in NewClient()
		DebugMode:           false,
	}
}

// DefaultLocalCacheConfig returns default retention cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return LocalCacheConfig{
		NumCounters:        1e5,
		MaxCost:            1 << 20, // records
		BufferItems:        64,
		IgnoreInternalCost: true,
		MaxSize:            1000,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.PodID == "" {
		return ErrInvalidConfig
	}
	if o.Marshaller == nil {
		switch o.SerializationFormat {
		case codec.FormatJSON, codec.FormatMsgpack, codec.FormatCBOR:
		default:
			return ErrInvalidConfig
		}
	}
	if o.ContextTimeout < 0 {
		return ErrInvalidConfig
	}
	if o.RetainSnapshots && o.LocalCacheFactory == nil {
		if o.LocalCacheConfig.NumCounters <= 0 {
			return ErrInvalidConfig
		}
		if o.LocalCacheConfig.MaxCost <= 0 {
			return ErrInvalidConfig
		}
	}
	return nil
}

// QueryOptions describes one live query: how to populate it, which events
// reconcile it and how records are identified and merged.
type QueryOptions[T any] struct {
	// Key names the cached collection. Watchers of equal keys share one entry.
	Key Key

	// Fetch populates the entry initially and on Refetch.
	Fetch func(ctx context.Context) ([]T, error)

	// Event is the transport event name carrying this collection's messages.
	Event string

	// Group is an optional broadcast group joined for the query's lifetime.
	Group string

	// SelectID derives a record's identity. Defaults to the "id" field.
	SelectID identity.Selector[T]

	// Merge applies an update to a cached record. Defaults to patch.Merge.
	Merge func(existing, update T) T

	// ShouldUpdate decides whether an upsert for a cached record is applied.
	// Defaults to always.
	ShouldUpdate func(existing, next T) bool

	// Hydrate replaces a pushed payload with the canonical record.
	Hydrate func(ctx context.Context, id identity.Identity) (T, error)

	// UpdateDelay defers each commit. Pending commits are canceled when the
	// query is released.
	UpdateDelay time.Duration
}

func (o *QueryOptions[T]) validate() error {
	if len(o.Key) == 0 || o.Fetch == nil || o.Event == "" || o.UpdateDelay < 0 {
		return ErrInvalidQuery
	}
	return nil
}

// ErrInvalidConfig is returned when options are invalid.
var ErrInvalidConfig = NewError("invalid cache configuration")

// ErrInvalidQuery is returned when query options are incomplete.
var ErrInvalidQuery = NewError("invalid query options")

// NewError creates a new error with the given message.
func NewError(msg string) error {
	return &cacheError{msg: msg}
}

type cacheError struct {
	msg string
}

func (e *cacheError) Error() string {
	return e.msg
}
