// Package identity compares the keys that identify records inside a cached list.
//
// An Identity is either a scalar (String or Number) or an ordered sequence of
// identities (Seq), which covers composite keys such as
// [id, [partition segments...], container].
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by Of when a value cannot be expressed as an Identity.
var ErrUnsupported = errors.New("identity: unsupported value")

// Identity is the closed set of record identities: String, Number or Seq.
type Identity interface {
	isIdentity()
	String() string
}

// String is a string scalar identity.
type String string

// Number is a numeric scalar identity.
type Number float64

// Seq is a composite identity.
type Seq []Identity

func (String) isIdentity() {}
func (Number) isIdentity() {}
func (Seq) isIdentity()    {}

func (s String) String() string { return strconv.Quote(string(s)) }

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

func (s Seq) String() string {
	parts := make([]string, len(s))
	for i, id := range s {
		if id == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Equal reports whether a and b denote the same record.
// Scalars are equal when they have the same kind and value; sequences are equal
// when they have the same length and are pairwise Equal. A nil identity equals nothing.
func Equal(a, b Identity) bool {
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case Seq:
		y, ok := b.(Seq)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Of converts a decoded value into an Identity.
func Of(v any) (Identity, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupported)
	case Identity:
		return x, nil
	case string:
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return Number(f), nil
	case []any:
		seq := make(Seq, len(x))
		for i, el := range x {
			id, err := Of(el)
			if err != nil {
				return nil, err
			}
			seq[i] = id
		}
		return seq, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		seq := make(Seq, rv.Len())
		for i := range seq {
			id, err := Of(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			seq[i] = id
		}
		return seq, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrUnsupported)
		}
		return Of(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// Selector derives the identity of a record.
type Selector[T any] func(T) (Identity, error)

// Field returns a Selector reading the named map key or struct field.
// Struct fields match by Go name or by the name in their json tag.
func Field[T any](name string) Selector[T] {
	return func(record T) (Identity, error) {
		v, ok := lookup(reflect.ValueOf(record), name)
		if !ok {
			return nil, fmt.Errorf("%w: field %q not found", ErrUnsupported, name)
		}
		return Of(v)
	}
}

func lookup(rv reflect.Value, name string) (any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if f.Name == name || tag == name {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}
