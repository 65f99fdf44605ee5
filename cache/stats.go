package cache

import (
	"context"
	"sync/atomic"

	"github.com/huykn/livecache/observe"
)

// statsRecorder keeps the Stats counters and mirrors them to OpenTelemetry.
type statsRecorder struct {
	stats   Stats
	metrics *observe.Metrics
}

func (r *statsRecorder) field(c observe.Counter) *int64 {
	switch c {
	case observe.EventsReceived:
		return &r.stats.EventsReceived
	case observe.EventsDiscarded:
		return &r.stats.EventsDiscarded
	case observe.EventsFailed:
		return &r.stats.EventsFailed
	case observe.Upserts:
		return &r.stats.Upserts
	case observe.Removes:
		return &r.stats.Removes
	case observe.ItemFailures:
		return &r.stats.ItemFailures
	case observe.HydrationFailures:
		return &r.stats.HydrationFailures
	case observe.Commits:
		return &r.stats.Commits
	case observe.CanceledCommits:
		return &r.stats.CanceledCommits
	case observe.MembershipFailures:
		return &r.stats.MembershipFailures
	}
	return nil
}

func (r *statsRecorder) add(c observe.Counter, n int64, event string) {
	if n == 0 {
		return
	}
	if f := r.field(c); f != nil {
		atomic.AddInt64(f, n)
	}
	r.metrics.Add(context.Background(), c, n, event)
}

func (r *statsRecorder) active(delta int64, event string) {
	atomic.AddInt64(&r.stats.ActiveQueries, delta)
	r.metrics.Active(context.Background(), delta, event)
}

func (r *statsRecorder) snapshotHit() {
	atomic.AddInt64(&r.stats.SnapshotHits, 1)
}

func (r *statsRecorder) snapshot() Stats {
	return Stats{
		EventsReceived:     atomic.LoadInt64(&r.stats.EventsReceived),
		EventsDiscarded:    atomic.LoadInt64(&r.stats.EventsDiscarded),
		EventsFailed:       atomic.LoadInt64(&r.stats.EventsFailed),
		Upserts:            atomic.LoadInt64(&r.stats.Upserts),
		Removes:            atomic.LoadInt64(&r.stats.Removes),
		ItemFailures:       atomic.LoadInt64(&r.stats.ItemFailures),
		HydrationFailures:  atomic.LoadInt64(&r.stats.HydrationFailures),
		Commits:            atomic.LoadInt64(&r.stats.Commits),
		CanceledCommits:    atomic.LoadInt64(&r.stats.CanceledCommits),
		MembershipFailures: atomic.LoadInt64(&r.stats.MembershipFailures),
		ActiveQueries:      atomic.LoadInt64(&r.stats.ActiveQueries),
		SnapshotHits:       atomic.LoadInt64(&r.stats.SnapshotHits),
	}
}
