package sync

import (
	"context"
	"errors"
	"sync"
)

// ErrNotStarted is returned when a group operation is issued before the transport is started.
var ErrNotStarted = errors.New("transport not started")

// ErrTransportClosed is returned when operations are performed on a closed transport.
var ErrTransportClosed = errors.New("transport is closed")

// Handler receives the raw payload of one pushed message.
// Handlers run on the transport's delivery goroutine and must return quickly.
type Handler func(payload []byte)

// HandlerID identifies a registered handler so it can be removed with Off.
type HandlerID uint64

// Transport is the pub/sub connection a live query consumes.
type Transport interface {
	// On registers a handler for an event name.
	On(event string, handler Handler) HandlerID

	// Off removes a handler previously registered with On.
	Off(event string, id HandlerID)

	// JoinGroup starts delivery of messages published to the named group.
	JoinGroup(ctx context.Context, name string) error

	// LeaveGroup stops delivery of messages published to the named group.
	LeaveGroup(ctx context.Context, name string) error
}

// Publisher sends a payload under an event name, either on the default
// channel (empty group) or to one group.
type Publisher interface {
	Publish(ctx context.Context, group, event string, payload []byte) error
}

// Logger is the subset of logging used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

type registration struct {
	id      HandlerID
	handler Handler
}

// handlerRegistry keeps handlers per event name in registration order.
type handlerRegistry struct {
	mu      sync.RWMutex
	next    HandlerID
	byEvent map[string][]registration
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{byEvent: make(map[string][]registration)}
}

func (r *handlerRegistry) add(event string, h Handler) HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.byEvent[event] = append(r.byEvent[event], registration{id: r.next, handler: h})
	return r.next
}

func (r *handlerRegistry) remove(event string, id HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.byEvent[event]
	for i, reg := range regs {
		if reg.id == id {
			r.byEvent[event] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(r.byEvent[event]) == 0 {
		delete(r.byEvent, event)
	}
}

func (r *handlerRegistry) dispatch(event string, payload []byte) int {
	r.mu.RLock()
	regs := r.byEvent[event]
	r.mu.RUnlock()

	for _, reg := range regs {
		reg.handler(payload)
	}
	return len(regs)
}
