// Package observe records live cache activity as OpenTelemetry metrics.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Counter names one of the monotonic counters.
type Counter int

const (
	EventsReceived Counter = iota
	EventsDiscarded
	EventsFailed
	Upserts
	Removes
	ItemFailures
	HydrationFailures
	Commits
	CanceledCommits
	MembershipFailures
	numCounters
)

var counterSpecs = [numCounters]struct {
	name string
	desc string
	unit string
}{
	EventsReceived:     {"livecache.events.received", "Messages delivered by the transport", "{message}"},
	EventsDiscarded:    {"livecache.events.discarded", "Messages discarded as malformed or unrecognized", "{message}"},
	EventsFailed:       {"livecache.events.failed", "Messages whose handling failed", "{message}"},
	Upserts:            {"livecache.upserts", "Upserts applied", "{record}"},
	Removes:            {"livecache.removes", "Removes applied", "{record}"},
	ItemFailures:       {"livecache.items.failed", "Batch items whose handling failed", "{record}"},
	HydrationFailures:  {"livecache.hydration.failures", "Hydration fetches that failed", "{call}"},
	Commits:            {"livecache.commits", "List commits to cache entries", "{commit}"},
	CanceledCommits:    {"livecache.commits.canceled", "Delayed commits canceled on release", "{commit}"},
	MembershipFailures: {"livecache.membership.failures", "Failed group join/leave calls", "{call}"},
}

// Metrics holds the instruments. The zero value is not usable; call New.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording never fails or panics.
type Metrics struct {
	counters [numCounters]metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// New creates the instruments on meter. A nil meter records nothing.
func New(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("livecache")
	}

	m := &Metrics{}
	for i, spec := range counterSpecs {
		c, err := meter.Int64Counter(
			spec.name,
			metric.WithDescription(spec.desc),
			metric.WithUnit(spec.unit),
		)
		if err != nil {
			return nil, err
		}
		m.counters[i] = c
	}

	active, err := meter.Int64UpDownCounter(
		"livecache.queries.active",
		metric.WithDescription("Live queries currently attached to the transport"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}
	m.active = active

	return m, nil
}

// Add increments counter c by n for the given event name.
func (m *Metrics) Add(ctx context.Context, c Counter, n int64, event string) {
	if m == nil || c < 0 || c >= numCounters {
		return
	}
	m.counters[c].Add(ctx, n, metric.WithAttributes(attribute.String("event", event)))
}

// Active moves the active live query gauge by delta.
func (m *Metrics) Active(ctx context.Context, delta int64, event string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, delta, metric.WithAttributes(attribute.String("event", event)))
}
