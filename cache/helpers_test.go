package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	cachesync "github.com/huykn/livecache/sync"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func loadedEntry(records ...Record) *Entry[Record] {
	e := NewEntry[Record](Key{"test"})
	e.Resolve(records)
	return e
}

func encode(t *testing.T, msg any) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to encode message: %v", err)
	}
	return data
}

func dataMessage(action Action, data any) Message {
	return Message{Type: "data", Action: action, Data: data}
}

func flush(t *testing.T, d interface{ Flush(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func ids(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["id"]
	}
	return out
}

func hubTransport() *cachesync.MemoryTransport {
	return cachesync.NewMemoryHub().Connect()
}
