package cache

import (
	"errors"
	"fmt"

	"github.com/huykn/livecache/identity"
)

// ErrCacheClosed is returned when operations are performed on a closed client.
var ErrCacheClosed = NewError("cache is closed")

// ErrTypeMismatch is returned when a key is watched with two different record types.
var ErrTypeMismatch = errors.New("live query already exists with another record type")

// ErrNoIdentity is returned when a record's identity cannot be derived.
var ErrNoIdentity = errors.New("record has no usable identity")

// ErrMalformedMessage marks a message that is not a data message.
var ErrMalformedMessage = errors.New("malformed message")

// ErrUnrecognizedAction marks a data message with an unknown action.
var ErrUnrecognizedAction = errors.New("unrecognized action")

// ErrHandlerPanic wraps a panic recovered while handling a message.
var ErrHandlerPanic = errors.New("panic while handling message")

// HydrationError reports a failed hydration fetch for one record.
type HydrationError struct {
	ID  identity.Identity
	Err error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate %s: %v", e.ID, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}
