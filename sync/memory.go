package sync

import (
	"context"
	"sync"
)

// MemoryHub is an in-process broker connecting MemoryTransports.
type MemoryHub struct {
	mu    sync.RWMutex
	conns map[*MemoryTransport]struct{}
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{conns: make(map[*MemoryTransport]struct{})}
}

// Connect returns a new transport attached to the hub.
func (h *MemoryHub) Connect() *MemoryTransport {
	t := &MemoryTransport{
		hub:      h,
		handlers: newHandlerRegistry(),
		groups:   make(map[string]int),
	}
	h.mu.Lock()
	h.conns[t] = struct{}{}
	h.mu.Unlock()
	return t
}

// Publish delivers payload synchronously to every connection listening on the
// default channel (empty group) or joined to group.
func (h *MemoryHub) Publish(ctx context.Context, group, event string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*MemoryTransport, 0, len(h.conns))
	for t := range h.conns {
		if group == "" || t.member(group) {
			targets = append(targets, t)
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.handlers.dispatch(event, payload)
	}
	return nil
}

// MemoryTransport implements Transport and Publisher against a MemoryHub.
type MemoryTransport struct {
	hub      *MemoryHub
	handlers *handlerRegistry

	mu     sync.Mutex
	groups map[string]int
	closed bool
}

// On registers a handler for an event name.
func (t *MemoryTransport) On(event string, handler Handler) HandlerID {
	return t.handlers.add(event, handler)
}

// Off removes a handler.
func (t *MemoryTransport) Off(event string, id HandlerID) {
	t.handlers.remove(event, id)
}

// JoinGroup adds a reference to the group.
func (t *MemoryTransport) JoinGroup(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	t.groups[name]++
	return nil
}

// LeaveGroup drops a reference to the group.
func (t *MemoryTransport) LeaveGroup(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if t.groups[name] <= 1 {
		delete(t.groups, name)
		return nil
	}
	t.groups[name]--
	return nil
}

// Publish publishes through the hub.
func (t *MemoryTransport) Publish(ctx context.Context, group, event string, payload []byte) error {
	return t.hub.Publish(ctx, group, event, payload)
}

// Groups returns the groups the transport is currently joined to.
func (t *MemoryTransport) Groups() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.groups))
	for g := range t.groups {
		out = append(out, g)
	}
	return out
}

// Close detaches the transport from its hub.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.hub.mu.Lock()
	delete(t.hub.conns, t)
	t.hub.mu.Unlock()
	return nil
}

func (t *MemoryTransport) member(group string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.groups[group]
	return ok
}
