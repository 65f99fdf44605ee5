package cache

import (
	"reflect"

	"github.com/huykn/livecache/identity"
)

// Event is a classified message: Upsert, Remove, BatchUpsert, BatchRemove or Discard.
type Event[T any] interface {
	Action() Action
}

// Upsert inserts or merges one record. Fields lists the keys the payload
// carried; nil means the record is complete.
type Upsert[T any] struct {
	Record T
	Fields []string
}

// Remove drops the record with the given identity.
type Remove[T any] struct {
	ID identity.Identity
}

// BatchUpsert upserts each item in order. Rejected holds the decode errors
// of array elements that could not become records.
type BatchUpsert[T any] struct {
	Items    []Upsert[T]
	Rejected []error
}

// BatchRemove removes each identity in order. Rejected holds the errors of
// array elements without a usable identity.
type BatchRemove[T any] struct {
	IDs      []identity.Identity
	Rejected []error
}

// Discard is any message that is not a usable data message.
type Discard[T any] struct {
	Reason error
}

func (Upsert[T]) Action() Action      { return ActionUpsert }
func (Remove[T]) Action() Action      { return ActionRemove }
func (BatchUpsert[T]) Action() Action { return ActionBatchUpsert }
func (BatchRemove[T]) Action() Action { return ActionBatchRemove }
func (Discard[T]) Action() Action     { return "" }

// falsy reports whether v is nil, false, a numeric zero or an empty string.
func falsy(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}

// fieldsOf returns the keys of a decoded object payload, or nil for anything else.
func fieldsOf(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(m))
	for k := range m {
		fields = append(fields, k)
	}
	return fields
}
