package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/huykn/livecache/observe"
	cachesync "github.com/huykn/livecache/sync"
	"golang.org/x/sync/singleflight"
)

// ErrPublishUnsupported is returned by Client.Publish when the transport cannot publish.
var ErrPublishUnsupported = errors.New("transport does not support publishing")

// Client hosts live queries over one transport.
type Client struct {
	transport  cachesync.Transport
	marshaller Marshaller
	logger     Logger
	options    Options
	retained   LocalCache
	stats      *statsRecorder
	flight     singleflight.Group

	mu      sync.Mutex
	queries map[string]query
	closers []io.Closer
	pending sync.WaitGroup
	closed  int32
}

// query is the type-erased view of a sharedQuery the client needs for shutdown.
type query interface {
	shutdown()
}

// NewClient creates a Client over transport.
func NewClient(transport cachesync.Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, ErrInvalidConfig
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.Marshaller == nil {
		m, err := NewMarshaller(opts.SerializationFormat)
		if err != nil {
			return nil, err
		}
		opts.Marshaller = m
	}

	metrics, err := observe.New(opts.Meter)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport:  transport,
		marshaller: opts.Marshaller,
		logger:     opts.Logger,
		options:    opts,
		stats:      &statsRecorder{metrics: metrics},
		queries:    make(map[string]query),
	}

	if opts.RetainSnapshots {
		if opts.LocalCacheFactory == nil {
			opts.LocalCacheFactory = NewLFUCacheFactory(opts.LocalCacheConfig)
		}
		local, err := opts.LocalCacheFactory.Create()
		if err != nil {
			return nil, err
		}
		c.retained = local
	}

	return c, nil
}

// Marshaller returns the marshaller used to decode messages.
func (c *Client) Marshaller() Marshaller {
	return c.marshaller
}

// Stats returns live cache statistics.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// RetentionMetrics returns the metrics of the snapshot retention cache.
func (c *Client) RetentionMetrics() LocalCacheMetrics {
	if c.retained == nil {
		return LocalCacheMetrics{}
	}
	return c.retained.Metrics()
}

// AttachCloser registers a resource closed after every live query on Close.
func (c *Client) AttachCloser(closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, closer)
}

// Publish sends a data message through the client's transport.
func (c *Client) Publish(ctx context.Context, group, event string, action Action, data any) error {
	pub, ok := c.transport.(cachesync.Publisher)
	if !ok {
		return ErrPublishUnsupported
	}
	return Publish(ctx, pub, c.marshaller, group, event, action, data)
}

// Close releases every live query, waits for their group leaves and closes
// the retention cache and attached resources.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	c.mu.Lock()
	queries := make([]query, 0, len(c.queries))
	for key, q := range c.queries {
		queries = append(queries, q)
		delete(c.queries, key)
	}
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	for _, q := range queries {
		q.shutdown()
	}
	c.pending.Wait()

	if c.retained != nil {
		c.retained.Close()
	}

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

func (c *Client) reportError(err error) {
	if c.options.OnError != nil {
		c.options.OnError(err)
	}
}

// Watch returns a live query for opts.Key, creating it on first use. Watchers
// of the same key share one entry, one transport handler and one group
// membership until the last of them is closed.
func Watch[T any](ctx context.Context, c *Client, opts QueryOptions[T]) (*LiveQuery[T], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	key := opts.Key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return nil, ErrCacheClosed
	}

	if existing, ok := c.queries[key]; ok {
		q, ok := existing.(*sharedQuery[T])
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, key)
		}
		q.refs++
		if c.options.DebugMode {
			c.logger.Debug("Watch: joined live query", "key", key, "watchers", q.refs)
		}
		return &LiveQuery[T]{q: q}, nil
	}

	q := newSharedQuery(ctx, c, key, opts)
	c.queries[key] = q
	if c.options.DebugMode {
		c.logger.Debug("Watch: created live query", "key", key, "event", opts.Event, "group", opts.Group)
	}
	return &LiveQuery[T]{q: q}, nil
}

// sharedQuery is the state behind every LiveQuery handle of one key.
type sharedQuery[T any] struct {
	client     *Client
	key        string
	flightKey  string
	opts       QueryOptions[T]
	entry      *Entry[T]
	dispatcher *Dispatcher[T]
	membership *cachesync.Membership
	handlerID  cachesync.HandlerID

	ctx    context.Context
	cancel context.CancelFunc

	// guarded by client.mu
	refs     int
	released bool
}

func newSharedQuery[T any](ctx context.Context, c *Client, key string, opts QueryOptions[T]) *sharedQuery[T] {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	q := &sharedQuery[T]{
		client: c,
		key:    key,
		opts:   opts,
		entry:  NewEntry[T](opts.Key),
		ctx:    fetchCtx,
		cancel: cancel,
		refs:   1,
	}
	// A fetch still running for a released query of the same key must not be shared.
	q.flightKey = fmt.Sprintf("%s#%p", key, q)

	if c.retained != nil {
		if v, ok := c.retained.Get(key); ok {
			if snapshot, ok := v.([]T); ok {
				q.entry.seed(append([]T(nil), snapshot...))
				c.stats.snapshotHit()
			}
		}
	}

	q.dispatcher = NewDispatcher(q.entry, NewEngine(opts), DispatcherOptions{
		Event:          opts.Event,
		Marshaller:     c.marshaller,
		Logger:         c.logger,
		DebugMode:      c.options.DebugMode,
		UpdateDelay:    opts.UpdateDelay,
		HydrateTimeout: c.options.ContextTimeout,
		OnError:        c.options.OnError,
		stats:          c.stats,
	})
	q.handlerID = c.transport.On(opts.Event, q.dispatcher.Handle)

	q.membership = cachesync.NewMembership(c.transport, cachesync.MembershipOptions{
		Timeout: c.options.ContextTimeout,
		Logger:  c.logger,
		OnError: func(err error) {
			c.stats.add(observe.MembershipFailures, 1, opts.Event)
			c.reportError(err)
		},
	})
	q.membership.Activate(opts.Group)

	c.stats.active(1, opts.Event)
	go q.load()
	return q
}

func (q *sharedQuery[T]) fetch(ctx context.Context) ([]T, error) {
	v, err, _ := q.client.flight.Do(q.flightKey, func() (any, error) {
		return q.opts.Fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: %s fetched %T", ErrTypeMismatch, q.key, v)
	}
	return data, nil
}

func (q *sharedQuery[T]) load() {
	data, err := q.fetch(q.ctx)
	if q.ctx.Err() != nil {
		return
	}
	if err != nil {
		q.entry.Fail(err)
		q.client.logger.Error("Watch: initial fetch failed", "key", q.key, "error", err)
		q.client.reportError(err)
		return
	}
	q.entry.Resolve(data)
	if q.client.options.DebugMode {
		q.client.logger.Debug("Watch: initial fetch resolved", "key", q.key, "records", len(data))
	}
}

// release drops one watcher and shuts the query down when it was the last.
func (q *sharedQuery[T]) release() {
	c := q.client

	c.mu.Lock()
	if q.released {
		c.mu.Unlock()
		return
	}
	q.refs--
	if q.refs > 0 {
		c.mu.Unlock()
		return
	}
	if cur, ok := c.queries[q.key]; ok && cur == query(q) {
		delete(c.queries, q.key)
	}
	c.mu.Unlock()

	q.shutdown()
}

func (q *sharedQuery[T]) shutdown() {
	c := q.client

	c.mu.Lock()
	if q.released {
		c.mu.Unlock()
		return
	}
	q.released = true
	c.mu.Unlock()

	c.transport.Off(q.opts.Event, q.handlerID)
	canceled := q.dispatcher.Close()

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		q.membership.Close()
	}()

	if c.retained != nil {
		if status, _ := q.entry.State(); status == StatusSuccess {
			snapshot := q.entry.Snapshot()
			c.retained.Set(q.key, snapshot, int64(len(snapshot)))
		}
	}

	q.cancel()
	c.stats.active(-1, q.opts.Event)

	if c.options.DebugMode {
		c.logger.Debug("Watch: released live query", "key", q.key, "canceled_commits", canceled)
	}
}

// LiveQuery is one watcher's handle on a shared live query.
type LiveQuery[T any] struct {
	q    *sharedQuery[T]
	once sync.Once
}

// Key returns the query's cache key.
func (l *LiveQuery[T]) Key() Key {
	return l.q.entry.Key()
}

// Entry returns the underlying cache entry.
func (l *LiveQuery[T]) Entry() *Entry[T] {
	return l.q.entry
}

// Snapshot returns a copy of the current list.
func (l *LiveQuery[T]) Snapshot() []T {
	return l.q.entry.Snapshot()
}

// State returns the fetch status and error.
func (l *LiveQuery[T]) State() (Status, error) {
	return l.q.entry.State()
}

// Wait blocks until the initial fetch settles.
func (l *LiveQuery[T]) Wait(ctx context.Context) error {
	return l.q.entry.Wait(ctx)
}

// Observe registers fn to be called with the list after every commit.
func (l *LiveQuery[T]) Observe(fn func([]T)) func() {
	return l.q.entry.Observe(fn)
}

// Flush blocks until every message delivered so far has been handled.
// Delayed commits may still be pending.
func (l *LiveQuery[T]) Flush(ctx context.Context) error {
	return l.q.dispatcher.Flush(ctx)
}

// Refetch reruns the query function and replaces the list with its result.
// Concurrent refetches of the same key share one call.
func (l *LiveQuery[T]) Refetch(ctx context.Context) error {
	data, err := l.q.fetch(ctx)
	if err != nil {
		l.q.client.logger.Warn("Refetch: fetch failed", "key", l.q.key, "error", err)
		return err
	}
	l.q.entry.Resolve(data)
	return nil
}

// SetGroup switches the query's broadcast group, leaving the previous one.
// An empty name leaves the group and keeps only the default channel.
func (l *LiveQuery[T]) SetGroup(name string) {
	l.q.membership.SetGroup(name)
}

// Group returns the active group name.
func (l *LiveQuery[T]) Group() string {
	group, _ := l.q.membership.Group()
	return group
}

// Close releases this handle. Closing twice is a no-op.
func (l *LiveQuery[T]) Close() {
	l.once.Do(l.q.release)
}
