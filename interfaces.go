package livecache

import (
	"github.com/huykn/livecache/cache"
	"github.com/huykn/livecache/identity"
)

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Marshaller is an alias for cache.Marshaller.
type Marshaller = cache.Marshaller

// LocalCache is an alias for cache.LocalCache.
type LocalCache = cache.LocalCache

// LocalCacheMetrics is an alias for cache.LocalCacheMetrics.
type LocalCacheMetrics = cache.LocalCacheMetrics

// LocalCacheFactory is an alias for cache.LocalCacheFactory.
type LocalCacheFactory = cache.LocalCacheFactory

// LocalCacheConfig is an alias for cache.LocalCacheConfig.
type LocalCacheConfig = cache.LocalCacheConfig

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// Key is an alias for cache.Key.
type Key = cache.Key

// Record is an alias for cache.Record.
type Record = cache.Record

// Action is an alias for cache.Action.
type Action = cache.Action

// Identity is an alias for identity.Identity.
type Identity = identity.Identity

// QueryOptions is an alias for cache.QueryOptions.
type QueryOptions[T any] = cache.QueryOptions[T]

// LiveQuery is an alias for cache.LiveQuery.
type LiveQuery[T any] = cache.LiveQuery[T]

// Status is an alias for cache.Status.
type Status = cache.Status

// Fetch states of a live query.
const (
	StatusLoading = cache.StatusLoading
	StatusSuccess = cache.StatusSuccess
	StatusError   = cache.StatusError
)

// Action constants for data messages.
const (
	ActionUpsert      = cache.ActionUpsert
	ActionRemove      = cache.ActionRemove
	ActionBatchUpsert = cache.ActionBatchUpsert
	ActionBatchRemove = cache.ActionBatchRemove
)

// DefaultLocalCacheConfig returns default retention cache configuration for Ristretto.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return cache.DefaultLocalCacheConfig()
}
