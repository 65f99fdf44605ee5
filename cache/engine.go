package cache

import (
	"context"
	"fmt"

	"github.com/huykn/livecache/identity"
	"github.com/huykn/livecache/patch"
)

// Engine turns classified events into list mutations.
type Engine[T any] struct {
	selectID     identity.Selector[T]
	merge        func(existing, update T) T
	customMerge  bool
	shouldUpdate func(existing, next T) bool
	hydrate      func(ctx context.Context, id identity.Identity) (T, error)
}

// NewEngine creates an engine from the identity, merge and hydration settings of opts.
func NewEngine[T any](opts QueryOptions[T]) *Engine[T] {
	e := &Engine[T]{
		selectID:     opts.SelectID,
		merge:        opts.Merge,
		shouldUpdate: opts.ShouldUpdate,
		hydrate:      opts.Hydrate,
		customMerge:  opts.Merge != nil,
	}
	if e.selectID == nil {
		e.selectID = identity.Field[T]("id")
	}
	if e.merge == nil {
		e.merge = patch.Merge[T]
	}
	if e.shouldUpdate == nil {
		e.shouldUpdate = func(T, T) bool { return true }
	}
	return e
}

// Identify returns the identity of record.
func (e *Engine[T]) Identify(record T) (identity.Identity, error) {
	id, err := e.selectID(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	if id == nil {
		return nil, ErrNoIdentity
	}
	return id, nil
}

// Upsert resolves the record to store, hydrating it when configured, and
// returns the mutation that inserts or merges it. A hydration failure returns
// a *HydrationError and no mutation.
func (e *Engine[T]) Upsert(ctx context.Context, incoming T) (Mutation[T], error) {
	return e.UpsertFields(ctx, incoming, nil)
}

// UpsertFields is Upsert for a record decoded from a payload that carried only
// the keys in fields. With the default merge, struct fields the payload did not
// name keep their cached value. A hydrated record is complete and fields is
// ignored, as it is by a custom Merge. A nil fields means the record is complete.
func (e *Engine[T]) UpsertFields(ctx context.Context, incoming T, fields []string) (Mutation[T], error) {
	id, err := e.Identify(incoming)
	if err != nil {
		return nil, err
	}

	next := incoming
	if e.hydrate != nil {
		next, err = e.hydrate(ctx, id)
		if err != nil {
			return nil, &HydrationError{ID: id, Err: err}
		}
		fields = nil
	}

	merge := e.merge
	if fields != nil && !e.customMerge {
		merge = func(existing, update T) T {
			return patch.MergeFields(existing, update, fields)
		}
	}

	return func(list []T) []T {
		return e.applyUpsert(list, id, next, merge)
	}, nil
}

// Remove returns the mutation that drops every record with identity id.
func (e *Engine[T]) Remove(id identity.Identity) Mutation[T] {
	return func(list []T) []T {
		return e.ApplyRemove(list, id)
	}
}

// ApplyUpsert appends next when no record has identity id, otherwise merges it
// into the matching record in place. list is returned as is when ShouldUpdate
// rejects the update.
func (e *Engine[T]) ApplyUpsert(list []T, id identity.Identity, next T) []T {
	return e.applyUpsert(list, id, next, e.merge)
}

func (e *Engine[T]) applyUpsert(list []T, id identity.Identity, next T, merge func(existing, update T) T) []T {
	i := e.indexOf(list, id)
	if i < 0 {
		out := make([]T, len(list), len(list)+1)
		copy(out, list)
		return append(out, next)
	}

	if !e.shouldUpdate(list[i], next) {
		return list
	}

	out := make([]T, len(list))
	copy(out, list)
	out[i] = merge(list[i], next)
	return out
}

// ApplyRemove drops every record with identity id, keeping the others in order.
// list is returned as is when nothing matches.
func (e *Engine[T]) ApplyRemove(list []T, id identity.Identity) []T {
	if e.indexOf(list, id) < 0 {
		return list
	}

	out := make([]T, 0, len(list)-1)
	for _, item := range list {
		if e.matches(item, id) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (e *Engine[T]) indexOf(list []T, id identity.Identity) int {
	for i, item := range list {
		if e.matches(item, id) {
			return i
		}
	}
	return -1
}

// Records without a usable identity never match.
func (e *Engine[T]) matches(item T, id identity.Identity) bool {
	itemID, err := e.selectID(item)
	return err == nil && identity.Equal(itemID, id)
}
