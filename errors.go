package livecache

import (
	"github.com/huykn/livecache/cache"
	"github.com/huykn/livecache/storage"
)

// ErrNotFound is returned when a key is not found in the store.
var ErrNotFound = storage.ErrNotFound

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig

// ErrInvalidQuery is returned when query options are incomplete.
var ErrInvalidQuery = cache.ErrInvalidQuery

// ErrTypeMismatch is returned when a key is watched with two different record types.
var ErrTypeMismatch = cache.ErrTypeMismatch
