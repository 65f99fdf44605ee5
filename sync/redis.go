package sync

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/huykn/livecache/types"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisTransport.
type RedisOptions struct {
	// Channel is the default channel every transport listens on.
	// Group channels are derived from it as "<Channel>:group:<name>".
	Channel string

	// PodID is stamped on published envelopes as the sender.
	PodID string

	// IgnoreOwn drops envelopes whose sender equals PodID.
	IgnoreOwn bool

	// Logger is used for undecodable envelopes and group changes.
	Logger Logger
}

// RedisTransport implements Transport and Publisher using Redis Pub/Sub.
type RedisTransport struct {
	client   *redis.Client
	opts     RedisOptions
	pubsub   *redis.PubSub
	handlers *handlerRegistry

	groupsMutex sync.Mutex
	groups      map[string]int

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewRedisTransport creates a new Redis Pub/Sub transport. Call Start before use.
func NewRedisTransport(client *redis.Client, opts RedisOptions) *RedisTransport {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &RedisTransport{
		client:   client,
		opts:     opts,
		handlers: newHandlerRegistry(),
		groups:   make(map[string]int),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the default channel and starts delivering messages.
func (rt *RedisTransport) Start(ctx context.Context) error {
	rt.pubsub = rt.client.Subscribe(ctx, rt.opts.Channel)

	// Wait for the subscription confirmation so no message published after Start is missed.
	if _, err := rt.pubsub.Receive(ctx); err != nil {
		_ = rt.pubsub.Close()
		rt.pubsub = nil
		return err
	}

	rt.wg.Add(1)
	go rt.listen()

	return nil
}

// On registers a handler for an event name.
func (rt *RedisTransport) On(event string, handler Handler) HandlerID {
	return rt.handlers.add(event, handler)
}

// Off removes a handler.
func (rt *RedisTransport) Off(event string, id HandlerID) {
	rt.handlers.remove(event, id)
}

// JoinGroup subscribes to the group channel. Joins are reference counted so
// several live queries can share one group on one connection.
func (rt *RedisTransport) JoinGroup(ctx context.Context, name string) error {
	if rt.pubsub == nil {
		return ErrNotStarted
	}

	rt.groupsMutex.Lock()
	defer rt.groupsMutex.Unlock()

	rt.groups[name]++
	if rt.groups[name] > 1 {
		return nil
	}
	if err := rt.pubsub.Subscribe(ctx, rt.groupChannel(name)); err != nil {
		delete(rt.groups, name)
		return err
	}
	rt.opts.Logger.Debug("redis transport: joined group", "group", name)
	return nil
}

// LeaveGroup drops one reference to the group and unsubscribes on the last one.
func (rt *RedisTransport) LeaveGroup(ctx context.Context, name string) error {
	if rt.pubsub == nil {
		return ErrNotStarted
	}

	rt.groupsMutex.Lock()
	defer rt.groupsMutex.Unlock()

	n, ok := rt.groups[name]
	if !ok {
		return nil
	}
	if n > 1 {
		rt.groups[name] = n - 1
		return nil
	}
	delete(rt.groups, name)
	if err := rt.pubsub.Unsubscribe(ctx, rt.groupChannel(name)); err != nil {
		return err
	}
	rt.opts.Logger.Debug("redis transport: left group", "group", name)
	return nil
}

// Publish publishes a payload under an event name to the default channel or a group.
func (rt *RedisTransport) Publish(ctx context.Context, group, event string, payload []byte) error {
	data, err := json.Marshal(types.Envelope{
		Event:   event,
		Sender:  rt.opts.PodID,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	channel := rt.opts.Channel
	if group != "" {
		channel = rt.groupChannel(group)
	}
	return rt.client.Publish(ctx, channel, data).Err()
}

// Close stops delivery and closes the subscription. The Redis client is left open.
func (rt *RedisTransport) Close() error {
	var err error
	rt.closeOnce.Do(func() {
		close(rt.done)
		if rt.pubsub != nil {
			err = rt.pubsub.Close()
		}
		rt.wg.Wait()
	})
	return err
}

func (rt *RedisTransport) groupChannel(name string) string {
	return rt.opts.Channel + ":group:" + name
}

// listen delivers messages from Redis Pub/Sub to the registered handlers.
func (rt *RedisTransport) listen() {
	defer rt.wg.Done()

	ch := rt.pubsub.Channel()

	for {
		select {
		case <-rt.done:
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}

			var env types.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				rt.opts.Logger.Warn("redis transport: dropping undecodable envelope", "channel", msg.Channel, "error", err)
				continue
			}

			if rt.opts.IgnoreOwn && env.Sender == rt.opts.PodID {
				continue
			}

			rt.handlers.dispatch(env.Event, env.Payload)
		}
	}
}
