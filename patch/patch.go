// Package patch merges a partial record into an existing one without erasing
// fields the partial record did not mention.
package patch

import (
	"reflect"
	"strings"
)

type undefined struct{}

// Undefined marks a map key as "not mentioned". Merge never copies it.
var Undefined any = undefined{}

// Merge returns existing with every defined field of update applied.
//
// Maps with string keys merge key by key; keys absent from update or set to
// Undefined keep the existing value. Structs (and pointers to structs) merge
// field by field; a nil pointer, interface, map or slice field in update is
// treated as undefined. Nested values are replaced wholesale. Any other kind of
// value is replaced by update. existing is never mutated.
func Merge[T any](existing, update T) T {
	if m, ok := any(existing).(map[string]any); ok {
		if u, ok := any(update).(map[string]any); ok {
			return any(Map(m, u)).(T)
		}
	}

	ev := reflect.ValueOf(&existing).Elem()
	uv := reflect.ValueOf(&update).Elem()
	var out T
	reflect.ValueOf(&out).Elem().Set(mergeValue(ev, uv))
	return out
}

// MergeFields is Merge for an update decoded from a payload that carried only
// the keys in present. Struct fields whose json, msgpack or cbor name or Go name
// is not in present keep the existing value, even when update holds their zero
// value; the named ones overwrite, nil included. Names match case-insensitively,
// as encoding/json does. A nil present falls back to Merge.
func MergeFields[T any](existing, update T, present []string) T {
	if present == nil {
		return Merge(existing, update)
	}

	ev := reflect.ValueOf(&existing).Elem()
	uv := reflect.ValueOf(&update).Elem()
	switch {
	case ev.Kind() == reflect.Struct:
	case ev.Kind() == reflect.Pointer && ev.Type().Elem().Kind() == reflect.Struct:
		if ev.IsNil() || uv.IsNil() {
			return Merge(existing, update)
		}
	default:
		return Merge(existing, update)
	}

	set := make(map[string]struct{}, len(present))
	for _, k := range present {
		set[strings.ToLower(k)] = struct{}{}
	}

	var out T
	ov := reflect.ValueOf(&out).Elem()
	if ev.Kind() == reflect.Pointer {
		merged := reflect.New(ev.Type().Elem())
		merged.Elem().Set(mergeNamed(ev.Elem(), uv.Elem(), set))
		ov.Set(merged)
	} else {
		ov.Set(mergeNamed(ev, uv, set))
	}
	return out
}

func mergeNamed(ev, uv reflect.Value, present map[string]struct{}) reflect.Value {
	out := reflect.New(ev.Type()).Elem()
	out.Set(ev)
	for i := 0; i < ev.NumField(); i++ {
		f := ev.Type().Field(i)
		if f.Anonymous && f.IsExported() && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			out.Field(i).Set(mergeNamed(ev.Field(i), uv.Field(i), present))
			continue
		}
		if !f.IsExported() || !mentioned(f, present) {
			continue
		}
		out.Field(i).Set(uv.Field(i))
	}
	return out
}

func mentioned(f reflect.StructField, present map[string]struct{}) bool {
	if _, ok := present[strings.ToLower(f.Name)]; ok {
		return true
	}
	for _, tag := range []string{"json", "msgpack", "cbor"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "" || name == "-" {
			continue
		}
		if _, ok := present[strings.ToLower(name)]; ok {
			return true
		}
	}
	return false
}

// Map merges update into a copy of existing.
func Map(existing, update map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(update))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range update {
		if v == Undefined {
			continue
		}
		out[k] = v
	}
	return out
}

func mergeValue(ev, uv reflect.Value) reflect.Value {
	switch ev.Kind() {
	case reflect.Interface:
		if uv.IsNil() {
			return ev
		}
		if ev.IsNil() || ev.Elem().Type() != uv.Elem().Type() {
			return uv
		}
		merged := mergeValue(ev.Elem(), uv.Elem())
		out := reflect.New(ev.Type()).Elem()
		out.Set(merged)
		return out
	case reflect.Pointer:
		if uv.IsNil() {
			return ev
		}
		if ev.IsNil() || ev.Elem().Kind() != reflect.Struct {
			return uv
		}
		out := reflect.New(ev.Elem().Type())
		out.Elem().Set(mergeStruct(ev.Elem(), uv.Elem()))
		return out
	case reflect.Struct:
		return mergeStruct(ev, uv)
	case reflect.Map:
		if ev.Type().Key().Kind() != reflect.String || uv.IsNil() {
			if uv.IsNil() {
				return ev
			}
			return uv
		}
		return mergeMap(ev, uv)
	default:
		return uv
	}
}

func mergeStruct(ev, uv reflect.Value) reflect.Value {
	out := reflect.New(ev.Type()).Elem()
	out.Set(ev)
	for i := 0; i < ev.NumField(); i++ {
		if !ev.Type().Field(i).IsExported() {
			continue
		}
		f := uv.Field(i)
		if isUndefined(f) {
			continue
		}
		out.Field(i).Set(f)
	}
	return out
}

func mergeMap(ev, uv reflect.Value) reflect.Value {
	out := reflect.MakeMapWithSize(ev.Type(), ev.Len()+uv.Len())
	iter := ev.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	iter = uv.MapRange()
	for iter.Next() {
		v := iter.Value()
		if v.Kind() == reflect.Interface && !v.IsNil() && v.Interface() == Undefined {
			continue
		}
		out.SetMapIndex(iter.Key(), v)
	}
	return out
}

func isUndefined(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
