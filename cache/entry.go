package cache

import (
	"context"
	"sync"
	"time"
)

// Status is the state of an entry's initial fetch.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Mutation computes the next list from the current one. It must not modify its input.
type Mutation[T any] func([]T) []T

// Entry is the observed list behind one cache key.
//
// Observers are called in commit order with the committed list, which they
// must treat as read-only, and must not call Update from the callback.
type Entry[T any] struct {
	key Key

	mu        sync.RWMutex
	data      []T
	status    Status
	err       error
	updatedAt time.Time
	ready     chan struct{}
	readyOnce sync.Once

	notifyMu     sync.Mutex
	observers    map[uint64]func([]T)
	nextObserver uint64
}

// NewEntry creates an entry in the loading state.
func NewEntry[T any](key Key) *Entry[T] {
	return &Entry[T]{
		key:       key,
		ready:     make(chan struct{}),
		observers: make(map[uint64]func([]T)),
	}
}

// Key returns the entry's key.
func (e *Entry[T]) Key() Key {
	return e.key
}

// Snapshot returns a copy of the current list.
func (e *Entry[T]) Snapshot() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]T, len(e.data))
	copy(out, e.data)
	return out
}

// State returns the fetch status and, for StatusError, the fetch error.
func (e *Entry[T]) State() (Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status, e.err
}

// UpdatedAt returns the time of the last commit.
func (e *Entry[T]) UpdatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}

// Wait blocks until the initial fetch settles and returns its error, if any.
func (e *Entry[T]) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ready:
	}
	_, err := e.State()
	return err
}

// Observe registers fn to be called after every commit. The returned func removes it.
func (e *Entry[T]) Observe(fn func([]T)) func() {
	e.notifyMu.Lock()
	e.nextObserver++
	id := e.nextObserver
	e.observers[id] = fn
	e.notifyMu.Unlock()

	return func() {
		e.notifyMu.Lock()
		delete(e.observers, id)
		e.notifyMu.Unlock()
	}
}

// Update applies m to the list. It reports false, and notifies nobody, when the
// entry has not loaded yet or m returned its input unchanged.
func (e *Entry[T]) Update(m Mutation[T]) bool {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	next, changed := e.commit(m)
	if !changed {
		return false
	}
	e.notify(next)
	return true
}

func (e *Entry[T]) commit(m Mutation[T]) ([]T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusSuccess {
		return nil, false
	}
	next := m(e.data)
	if sameSlice(next, e.data) {
		return nil, false
	}
	e.data = next
	e.updatedAt = time.Now()
	return next, true
}

// Resolve replaces the list with fetched data and marks the entry loaded.
func (e *Entry[T]) Resolve(data []T) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	if data == nil {
		data = []T{}
	}
	e.mu.Lock()
	e.data = data
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = time.Now()
	e.mu.Unlock()

	e.readyOnce.Do(func() { close(e.ready) })
	e.notify(data)
}

// Fail records the initial fetch error. It has no effect once the entry loaded.
func (e *Entry[T]) Fail(err error) {
	e.mu.Lock()
	if e.status == StatusSuccess {
		e.mu.Unlock()
		return
	}
	e.status = StatusError
	e.err = err
	e.mu.Unlock()

	e.readyOnce.Do(func() { close(e.ready) })
}

// seed shows a retained snapshot while the entry is still loading.
func (e *Entry[T]) seed(data []T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusLoading {
		e.data = data
	}
}

func (e *Entry[T]) notify(data []T) {
	for _, fn := range e.observers {
		fn(data)
	}
}

func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
