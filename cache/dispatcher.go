package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huykn/livecache/identity"
	"github.com/huykn/livecache/observe"
	"github.com/huykn/livecache/types"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Event is the event name, used in logs and metrics.
	Event string

	// Marshaller decodes messages. Required.
	Marshaller Marshaller

	// Logger is the logger. Nil disables logging.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// UpdateDelay defers each commit by this duration.
	UpdateDelay time.Duration

	// HydrateTimeout bounds each hydration fetch. Zero means no timeout.
	HydrateTimeout time.Duration

	// OnError receives every handling failure.
	OnError func(error)

	stats *statsRecorder
}

type queued struct {
	payload []byte
	flushed chan struct{}
}

// Dispatcher validates, classifies and applies pushed messages to one entry.
//
// Handle never blocks: messages are queued and handled one at a time, in
// delivery order, once the entry's initial fetch has succeeded. Every failure
// is logged and counted; none reaches the transport.
type Dispatcher[T any] struct {
	entry  *Entry[T]
	engine *Engine[T]
	opts   DispatcherOptions
	logger Logger
	stats  *statsRecorder
	sched  *scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queue  []queued
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// NewDispatcher creates a dispatcher for entry and starts its worker.
func NewDispatcher[T any](entry *Entry[T], engine *Engine[T], opts DispatcherOptions) *Dispatcher[T] {
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.stats == nil {
		opts.stats = &statsRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher[T]{
		entry:  entry,
		engine: engine,
		opts:   opts,
		logger: opts.Logger,
		stats:  opts.stats,
		sched:  newScheduler(),
		ctx:    ctx,
		cancel: cancel,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Handle queues a raw message for handling.
func (d *Dispatcher[T]) Handle(payload []byte) {
	d.stats.add(observe.EventsReceived, 1, d.opts.Event)

	buf := make([]byte, len(payload))
	copy(buf, payload)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, queued{payload: buf})
	d.mu.Unlock()
	d.wake()
}

// Flush blocks until every message queued before the call has been handled.
func (d *Dispatcher[T]) Flush(ctx context.Context) error {
	marker := make(chan struct{})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrCacheClosed
	}
	d.queue = append(d.queue, queued{flushed: marker})
	d.mu.Unlock()
	d.wake()

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker, drops queued messages, cancels in-flight hydration
// and every pending delayed commit, and waits for a delayed commit already
// being applied. It returns the number of canceled commits.
func (d *Dispatcher[T]) Close() int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	d.closed = true
	for _, q := range d.queue {
		if q.flushed != nil {
			close(q.flushed)
		}
	}
	d.queue = nil
	d.mu.Unlock()

	d.cancel()
	<-d.done

	n := d.sched.cancelAll()
	d.stats.add(observe.CanceledCommits, int64(n), d.opts.Event)
	return n
}

// Classify decodes a raw message into an Event. Anything that is not a data
// message with a known action and a truthy payload becomes a Discard.
func (d *Dispatcher[T]) Classify(payload []byte) Event[T] {
	var msg types.Message
	if err := d.opts.Marshaller.Unmarshal(payload, &msg); err != nil {
		return Discard[T]{Reason: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
	}
	if msg.Type != types.MessageTypeData || falsy(msg.Data) {
		return Discard[T]{Reason: ErrMalformedMessage}
	}
	if !msg.Action.Known() {
		return Discard[T]{Reason: fmt.Errorf("%w: %q", ErrUnrecognizedAction, msg.Action)}
	}

	if !msg.Action.IsBatch() {
		record, err := d.decode(msg.Data)
		if err != nil {
			return Discard[T]{Reason: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
		}
		if msg.Action == types.Upsert {
			return Upsert[T]{Record: record, Fields: fieldsOf(msg.Data)}
		}
		id, err := d.engine.Identify(record)
		if err != nil {
			return Discard[T]{Reason: err}
		}
		return Remove[T]{ID: id}
	}

	items, ok := msg.Data.([]any)
	if !ok {
		return Discard[T]{Reason: fmt.Errorf("%w: %s expects an array", ErrMalformedMessage, msg.Action)}
	}

	if msg.Action == types.BatchUpsert {
		ev := BatchUpsert[T]{Items: make([]Upsert[T], 0, len(items))}
		for i, item := range items {
			record, err := d.decode(item)
			if err != nil {
				ev.Rejected = append(ev.Rejected, fmt.Errorf("item %d: %w", i, err))
				continue
			}
			ev.Items = append(ev.Items, Upsert[T]{Record: record, Fields: fieldsOf(item)})
		}
		return ev
	}

	ev := BatchRemove[T]{IDs: make([]identity.Identity, 0, len(items))}
	for i, item := range items {
		record, err := d.decode(item)
		if err == nil {
			var id identity.Identity
			if id, err = d.engine.Identify(record); err == nil {
				ev.IDs = append(ev.IDs, id)
				continue
			}
		}
		ev.Rejected = append(ev.Rejected, fmt.Errorf("item %d: %w", i, err))
	}
	return ev
}

func (d *Dispatcher[T]) decode(v any) (T, error) {
	if record, ok := v.(T); ok {
		return record, nil
	}

	var record T
	raw, err := d.opts.Marshaller.Marshal(v)
	if err != nil {
		return record, err
	}
	err = d.opts.Marshaller.Unmarshal(raw, &record)
	return record, err
}

func (d *Dispatcher[T]) wake() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

func (d *Dispatcher[T]) pop() (queued, bool) {
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return queued{}, false
		}
		if len(d.queue) > 0 {
			q := d.queue[0]
			d.queue[0] = queued{}
			d.queue = d.queue[1:]
			d.mu.Unlock()
			return q, true
		}
		d.mu.Unlock()

		select {
		case <-d.signal:
		case <-d.ctx.Done():
		}
	}
}

func (d *Dispatcher[T]) run() {
	defer close(d.done)

	for {
		q, ok := d.pop()
		if !ok {
			return
		}
		if q.flushed != nil {
			close(q.flushed)
			continue
		}

		if err := d.entry.Wait(d.ctx); err != nil {
			if d.ctx.Err() != nil {
				return
			}
			d.stats.add(observe.EventsDiscarded, 1, d.opts.Event)
			if d.opts.DebugMode {
				d.logger.Debug("Dispatch: entry failed to load, discarding message", "event", d.opts.Event, "error", err)
			}
			continue
		}

		d.process(q.payload)
	}
}

func (d *Dispatcher[T]) process(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()

	switch ev := d.Classify(payload).(type) {
	case Discard[T]:
		d.stats.add(observe.EventsDiscarded, 1, d.opts.Event)
		if d.opts.DebugMode {
			d.logger.Debug("Dispatch: discarded message", "event", d.opts.Event, "reason", ev.Reason)
		}

	case Upsert[T]:
		if err := d.upsert(ev); err != nil {
			d.fail(err)
		}

	case Remove[T]:
		d.remove(ev.ID)

	case BatchUpsert[T]:
		d.reject(ev.Rejected)
		for i, item := range ev.Items {
			d.isolate(i, func() error { return d.upsert(item) })
		}

	case BatchRemove[T]:
		d.reject(ev.Rejected)
		for i, id := range ev.IDs {
			d.isolate(i, func() error {
				d.remove(id)
				return nil
			})
		}
	}
}

func (d *Dispatcher[T]) upsert(ev Upsert[T]) error {
	ctx := d.ctx
	if d.opts.HydrateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.HydrateTimeout)
		defer cancel()
	}

	m, err := d.engine.UpsertFields(ctx, ev.Record, ev.Fields)
	if err != nil {
		var he *HydrationError
		if errors.As(err, &he) {
			d.stats.add(observe.HydrationFailures, 1, d.opts.Event)
		}
		return err
	}

	d.commit(m, observe.Upserts)
	return nil
}

func (d *Dispatcher[T]) remove(id identity.Identity) {
	d.commit(d.engine.Remove(id), observe.Removes)
}

// commit applies m now or after UpdateDelay. applied is counted only when the
// list actually changes.
func (d *Dispatcher[T]) commit(m Mutation[T], applied observe.Counter) {
	if d.opts.UpdateDelay <= 0 {
		d.apply(m, applied)
		return
	}
	if !d.sched.after(d.opts.UpdateDelay, func() { d.applyDelayed(m, applied) }) && d.opts.DebugMode {
		d.logger.Debug("Dispatch: dropped delayed commit after close", "event", d.opts.Event)
	}
}

func (d *Dispatcher[T]) apply(m Mutation[T], applied observe.Counter) {
	if d.entry.Update(m) {
		d.stats.add(observe.Commits, 1, d.opts.Event)
		d.stats.add(applied, 1, d.opts.Event)
	}
}

// applyDelayed runs on a timer goroutine, outside the worker's recover.
func (d *Dispatcher[T]) applyDelayed(m Mutation[T], applied observe.Counter) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()
	d.apply(m, applied)
}

// isolate runs one batch item so that its failure cannot affect its siblings.
func (d *Dispatcher[T]) isolate(index int, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.itemFailed(index, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()
	if err := fn(); err != nil {
		d.itemFailed(index, err)
	}
}

func (d *Dispatcher[T]) reject(errs []error) {
	for _, err := range errs {
		d.itemFailed(-1, err)
	}
}

func (d *Dispatcher[T]) itemFailed(index int, err error) {
	d.stats.add(observe.ItemFailures, 1, d.opts.Event)
	d.logger.Warn("Dispatch: batch item failed", "event", d.opts.Event, "index", index, "error", err)
	if d.opts.OnError != nil {
		d.opts.OnError(err)
	}
}

func (d *Dispatcher[T]) fail(err error) {
	d.stats.add(observe.EventsFailed, 1, d.opts.Event)
	d.logger.Error("Dispatch: failed to handle message", "event", d.opts.Event, "error", err)
	if d.opts.OnError != nil {
		d.opts.OnError(err)
	}
}
