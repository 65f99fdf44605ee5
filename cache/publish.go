package cache

import (
	"context"
	"fmt"

	cachesync "github.com/huykn/livecache/sync"
	"github.com/huykn/livecache/types"
)

// Publish encodes a data message with m and sends it under event, to group or,
// when group is empty, on the default channel.
func Publish(ctx context.Context, pub cachesync.Publisher, m Marshaller, group, event string, action Action, data any) error {
	if !action.Known() {
		return fmt.Errorf("%w: %q", ErrUnrecognizedAction, action)
	}
	payload, err := m.Marshal(types.Message{
		Type:   types.MessageTypeData,
		Action: action,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", action, err)
	}
	return pub.Publish(ctx, group, event, payload)
}
