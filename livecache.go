package livecache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huykn/livecache/cache"
	"github.com/huykn/livecache/codec"
	"github.com/huykn/livecache/storage"
	cachesync "github.com/huykn/livecache/sync"
	"go.opentelemetry.io/otel/metric"
)

// Config configures a live cache instance backed by Redis.
type Config struct {
	// PodID is the unique identifier for this pod/instance.
	// It is stamped on published messages so IgnoreOwn can drop them.
	PodID string

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// Channel is the default Pub/Sub channel. Groups use "<Channel>:group:<name>".
	Channel string

	// IgnoreOwn drops messages published by this pod.
	IgnoreOwn bool

	// StorePrefix is prepended to every key of the canonical record store.
	StorePrefix string

	// SerializationFormat specifies how messages are encoded ("json", "msgpack" or "cbor").
	SerializationFormat string

	// Marshaller overrides SerializationFormat when set.
	Marshaller Marshaller

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout bounds connection setup, hydration and group calls.
	ContextTimeout time.Duration

	// Meter receives OpenTelemetry metrics. Nil records nothing.
	Meter metric.Meter

	// OnError is called when an error occurs in background operations.
	OnError func(error)

	// RetainSnapshots keeps the last list of released live queries.
	RetainSnapshots bool

	// LocalCacheConfig configures the retention cache.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for the retention cache.
	// If nil, defaults to Ristretto factory.
	LocalCacheFactory LocalCacheFactory
}

// DefaultConfig returns default configuration with a random PodID.
func DefaultConfig() Config {
	return Config{
		PodID:               uuid.NewString(),
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		Channel:             "livecache:events",
		StorePrefix:         "livecache:",
		SerializationFormat: codec.FormatJSON,
		ContextTimeout:      5 * time.Second,
		RetainSnapshots:     true,
		LocalCacheConfig:    DefaultLocalCacheConfig(),
		LocalCacheFactory:   nil, // Will default to Ristretto in New()
		Marshaller:          nil, // Will default to SerializationFormat in New()
		Logger:              nil, // Will default to no-op in New()
		DebugMode:           false,
	}
}

func (cfg Config) options() cache.Options {
	return cache.Options{
		PodID:               cfg.PodID,
		SerializationFormat: cfg.SerializationFormat,
		Marshaller:          cfg.Marshaller,
		Logger:              cfg.Logger,
		DebugMode:           cfg.DebugMode,
		ContextTimeout:      cfg.ContextTimeout,
		Meter:               cfg.Meter,
		OnError:             cfg.OnError,
		RetainSnapshots:     cfg.RetainSnapshots,
		LocalCacheConfig:    cfg.LocalCacheConfig,
		LocalCacheFactory:   cfg.LocalCacheFactory,
	}
}

// Cache is a live cache client together with the transport and store it owns.
type Cache struct {
	*cache.Client

	// Transport is the Pub/Sub transport. Nil for caches built with NewWithTransport.
	Transport *cachesync.RedisTransport

	// Store is the canonical record store. Nil for caches built with NewWithTransport.
	Store *storage.RedisStore
}

// New connects to Redis and creates a live cache instance.
func New(cfg Config) (*Cache, error) {
	opts := cfg.options()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if cfg.Channel == "" {
		return nil, ErrInvalidConfig
	}

	store, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	store = store.WithPrefix(cfg.StorePrefix)

	transport := cachesync.NewRedisTransport(store.GetClient(), cachesync.RedisOptions{
		Channel:   cfg.Channel,
		PodID:     cfg.PodID,
		IgnoreOwn: cfg.IgnoreOwn,
		Logger:    cfg.Logger,
	})

	timeout := cfg.ContextTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := transport.Start(ctx); err != nil {
		store.Close()
		return nil, err
	}

	client, err := cache.NewClient(transport, opts)
	if err != nil {
		transport.Close()
		store.Close()
		return nil, err
	}
	client.AttachCloser(store)
	client.AttachCloser(transport)

	return &Cache{Client: client, Transport: transport, Store: store}, nil
}

// NewWithTransport creates a live cache over an existing transport, such as a
// sync.MemoryTransport.
func NewWithTransport(transport cachesync.Transport, cfg Config) (*Cache, error) {
	client, err := cache.NewClient(transport, cfg.options())
	if err != nil {
		return nil, err
	}
	return &Cache{Client: client}, nil
}

// Watch returns a live query on c. See cache.Watch.
func Watch[T any](ctx context.Context, c *Cache, opts QueryOptions[T]) (*LiveQuery[T], error) {
	return cache.Watch(ctx, c.Client, opts)
}

// Hydrator returns a Hydrate function reading canonical records from the
// cache's store under prefix+identity.
func Hydrator[T any](c *Cache, prefix string) func(context.Context, Identity) (T, error) {
	return cache.StoreHydrator[T](c.Store, c.Marshaller(), cache.PrefixKey(prefix))
}

// Fetcher returns a Fetch function reading a stored list from the cache's store.
func Fetcher[T any](c *Cache, key string) func(context.Context) ([]T, error) {
	return cache.StoreFetcher[T](c.Store, c.Marshaller(), key)
}
