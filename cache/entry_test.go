package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendRecord(r Record) Mutation[Record] {
	return func(list []Record) []Record {
		out := append([]Record(nil), list...)
		return append(out, r)
	}
}

func TestEntryUpdateBeforeLoad(t *testing.T) {
	e := NewEntry[Record](Key{"orders"})

	assert.False(t, e.Update(appendRecord(Record{"id": "1"})))
	status, err := e.State()
	assert.Equal(t, StatusLoading, status)
	assert.NoError(t, err)
}

func TestEntryResolveNotifiesObservers(t *testing.T) {
	e := NewEntry[Record](Key{"orders"})

	var seen [][]Record
	e.Observe(func(list []Record) { seen = append(seen, list) })

	e.Resolve([]Record{{"id": "1"}})
	require.True(t, e.Update(appendRecord(Record{"id": "2"})))

	require.Len(t, seen, 2)
	assert.Equal(t, []any{"1"}, ids(seen[0]))
	assert.Equal(t, []any{"1", "2"}, ids(seen[1]))
	assert.False(t, e.UpdatedAt().IsZero())
}

func TestEntryUnchangedMutationIsSilent(t *testing.T) {
	e := loadedEntry(Record{"id": "1"})

	calls := 0
	e.Observe(func([]Record) { calls++ })

	assert.False(t, e.Update(func(list []Record) []Record { return list }))
	assert.Equal(t, 0, calls)
}

func TestEntryObserveUnsubscribe(t *testing.T) {
	e := loadedEntry()

	calls := 0
	stop := e.Observe(func([]Record) { calls++ })
	e.Update(appendRecord(Record{"id": "1"}))
	stop()
	e.Update(appendRecord(Record{"id": "2"}))

	assert.Equal(t, 1, calls)
}

func TestEntrySnapshotIsCopy(t *testing.T) {
	e := loadedEntry(Record{"id": "1"}, Record{"id": "2"})

	snap := e.Snapshot()
	snap[0] = Record{"id": "changed"}

	assert.Equal(t, []any{"1", "2"}, ids(e.Snapshot()))
}

func TestEntryFailThenResolve(t *testing.T) {
	e := NewEntry[Record](Key{"orders"})
	boom := errors.New("fetch failed")

	e.Fail(boom)
	assert.ErrorIs(t, e.Wait(context.Background()), boom)

	e.Resolve(nil)
	status, err := e.State()
	assert.Equal(t, StatusSuccess, status)
	assert.NoError(t, err)
	assert.NotNil(t, e.Snapshot())

	e.Fail(boom)
	status, _ = e.State()
	assert.Equal(t, StatusSuccess, status, "Fail must not override a loaded entry")
}

func TestEntryWaitHonorsContext(t *testing.T) {
	e := NewEntry[Record](Key{"orders"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
}

func TestEntrySeedOnlyWhileLoading(t *testing.T) {
	e := NewEntry[Record](Key{"orders"})
	e.seed([]Record{{"id": "old"}})
	assert.Equal(t, []any{"old"}, ids(e.Snapshot()))

	e.Resolve([]Record{{"id": "new"}})
	e.seed([]Record{{"id": "stale"}})
	assert.Equal(t, []any{"new"}, ids(e.Snapshot()))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, `["orders",7,"open"]`, Key{"orders", 7, "open"}.String())
	assert.Equal(t, Key{"a", 1}.String(), Key{"a", 1}.String())
	assert.NotEqual(t, Key{"a", 1}.String(), Key{"a", "1"}.String())
}
