package sync

import (
	"context"
	"sync"
	"time"
)

// GroupJoiner is the part of a Transport the membership manager drives.
type GroupJoiner interface {
	JoinGroup(ctx context.Context, name string) error
	LeaveGroup(ctx context.Context, name string) error
}

// MembershipOptions configures a Membership.
type MembershipOptions struct {
	// Timeout bounds each join/leave call. Zero means 5s.
	Timeout time.Duration

	// Logger receives join/leave failures. Nil disables logging.
	Logger Logger

	// OnError is called with every join/leave failure.
	OnError func(error)
}

type membershipOp struct {
	join  bool
	group string
}

// Membership binds one named group to the lifetime of a live query.
//
// Join and leave calls are fire-and-forget for the caller but are issued to
// the transport in the order they were requested, on a single goroutine.
// Activating an already active group and deactivating twice are no-ops.
type Membership struct {
	joiner  GroupJoiner
	timeout time.Duration
	logger  Logger
	onError func(error)

	mu      sync.Mutex
	current string
	active  bool
	closed  bool
	queue   []membershipOp
	signal  chan struct{}
	done    chan struct{}
}

// NewMembership creates a Membership and starts its worker.
func NewMembership(joiner GroupJoiner, opts MembershipOptions) *Membership {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	m := &Membership{
		joiner:  joiner,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		onError: opts.OnError,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Activate joins group. When another group is active it is left first.
// An empty group means the default channel only.
func (m *Membership) Activate(group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || (m.active && m.current == group) {
		return
	}
	if m.active && m.current != "" {
		m.enqueue(membershipOp{join: false, group: m.current})
	}
	m.current = group
	m.active = true
	if group != "" {
		m.enqueue(membershipOp{join: true, group: group})
	}
}

// SetGroup switches the active group, leaving the previous one.
func (m *Membership) SetGroup(group string) {
	m.Activate(group)
}

// Group returns the active group, if any.
func (m *Membership) Group() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.active
}

// Deactivate leaves the active group.
func (m *Membership) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivateLocked()
}

func (m *Membership) deactivateLocked() {
	if !m.active {
		return
	}
	if m.current != "" {
		m.enqueue(membershipOp{join: false, group: m.current})
	}
	m.current = ""
	m.active = false
}

// Close deactivates, then waits until every queued join/leave has been issued.
func (m *Membership) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.deactivateLocked()
	m.closed = true
	m.mu.Unlock()

	m.wake()
	<-m.done
}

func (m *Membership) enqueue(op membershipOp) {
	m.queue = append(m.queue, op)
	m.wake()
}

func (m *Membership) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Membership) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				return
			}
			<-m.signal
			continue
		}
		op := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.apply(op)
	}
}

func (m *Membership) apply(op membershipOp) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	if op.join {
		err = m.joiner.JoinGroup(ctx, op.group)
	} else {
		err = m.joiner.LeaveGroup(ctx, op.group)
	}

	if err != nil {
		m.logger.Warn("membership: group operation failed", "group", op.group, "join", op.join, "error", err)
		if m.onError != nil {
			m.onError(err)
		}
		return
	}
	m.logger.Debug("membership: group operation done", "group", op.group, "join", op.join)
}
