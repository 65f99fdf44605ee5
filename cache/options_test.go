package cache

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.PodID == "" {
		t.Fatal("PodID should not be empty")
	}
	if opts.SerializationFormat != "json" {
		t.Fatalf("Expected json, got %q", opts.SerializationFormat)
	}
	if opts.ContextTimeout == 0 {
		t.Fatal("ContextTimeout should not be zero")
	}
	if !opts.RetainSnapshots {
		t.Fatal("RetainSnapshots should default to true")
	}
}

func TestDefaultLocalCacheConfig(t *testing.T) {
	config := DefaultLocalCacheConfig()

	if config.NumCounters != 1e5 {
		t.Fatalf("Expected NumCounters to be 1e5, got %d", config.NumCounters)
	}
	if config.MaxCost != 1<<20 {
		t.Fatalf("Expected MaxCost to be 1<<20, got %d", config.MaxCost)
	}
	if config.BufferItems != 64 {
		t.Fatalf("Expected BufferItems to be 64, got %d", config.BufferItems)
	}
}

func TestOptionsValidate(t *testing.T) {
	withFormat := func(format string) Options {
		o := DefaultOptions()
		o.SerializationFormat = format
		return o
	}

	tests := []struct {
		name  string
		opts  func() Options
		valid bool
	}{
		{"Valid options", DefaultOptions, true},
		{"Msgpack", func() Options { return withFormat("msgpack") }, true},
		{"CBOR", func() Options { return withFormat("cbor") }, true},
		{"Invalid SerializationFormat", func() Options { return withFormat("invalid") }, false},
		{"Custom marshaller overrides format", func() Options {
			o := withFormat("invalid")
			o.Marshaller = &stubMarshaller{}
			return o
		}, true},
		{"Empty PodID", func() Options {
			o := DefaultOptions()
			o.PodID = ""
			return o
		}, false},
		{"Negative timeout", func() Options {
			o := DefaultOptions()
			o.ContextTimeout = -1
			return o
		}, false},
		{"Retention without counters", func() Options {
			o := DefaultOptions()
			o.LocalCacheConfig.NumCounters = 0
			return o
		}, false},
		{"Retention disabled ignores cache config", func() Options {
			o := DefaultOptions()
			o.RetainSnapshots = false
			o.LocalCacheConfig = LocalCacheConfig{}
			return o
		}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts := test.opts()
			err := opts.Validate()
			if test.valid && err != nil {
				t.Fatalf("Expected valid options, got error: %v", err)
			}
			if !test.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestQueryOptionsValidate(t *testing.T) {
	fetch := func(context.Context) ([]Record, error) { return nil, nil }

	valid := QueryOptions[Record]{Key: Key{"orders"}, Fetch: fetch, Event: "orders"}
	if err := valid.validate(); err != nil {
		t.Fatalf("Expected valid query, got %v", err)
	}

	for name, q := range map[string]QueryOptions[Record]{
		"no key":         {Fetch: fetch, Event: "orders"},
		"no fetch":       {Key: Key{"orders"}, Event: "orders"},
		"no event":       {Key: Key{"orders"}, Fetch: fetch},
		"negative delay": {Key: Key{"orders"}, Fetch: fetch, Event: "orders", UpdateDelay: -1},
	} {
		if err := q.validate(); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("%s: expected ErrInvalidQuery, got %v", name, err)
		}
	}
}

type stubMarshaller struct{}

func (*stubMarshaller) Marshal(v any) ([]byte, error)      { return nil, nil }
func (*stubMarshaller) Unmarshal(data []byte, v any) error { return nil }
