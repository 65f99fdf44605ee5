package cache

import (
	"context"
	"errors"

	"github.com/huykn/livecache/identity"
	"github.com/huykn/livecache/storage"
)

// StoreHydrator returns a Hydrate function that loads the canonical record for
// an identity from store, under the key computed by keyFn.
func StoreHydrator[T any](store Store, m Marshaller, keyFn func(identity.Identity) string) func(context.Context, identity.Identity) (T, error) {
	return func(ctx context.Context, id identity.Identity) (T, error) {
		var record T
		data, err := store.Get(ctx, keyFn(id))
		if err != nil {
			return record, err
		}
		err = m.Unmarshal(data, &record)
		return record, err
	}
}

// StoreFetcher returns a Fetch function that reads a stored list. A missing
// key yields an empty list.
func StoreFetcher[T any](store Store, m Marshaller, key string) func(context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		data, err := store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return []T{}, nil
		}
		if err != nil {
			return nil, err
		}
		var list []T
		if err := m.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
}

// PrefixKey returns a keyFn mapping an identity to prefix+identity. String
// identities are used unquoted.
func PrefixKey(prefix string) func(identity.Identity) string {
	return func(id identity.Identity) string {
		if s, ok := id.(identity.String); ok {
			return prefix + string(s)
		}
		return prefix + id.String()
	}
}
