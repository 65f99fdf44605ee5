package types

// Action is the reconciliation action carried by a data message.
type Action string

// Actions understood by the dispatcher.
const (
	Upsert      Action = "upsert"
	Remove      Action = "remove"
	BatchUpsert Action = "batch-upsert"
	BatchRemove Action = "batch-remove"
)

// MessageTypeData is the only message type that carries records.
const MessageTypeData = "data"

// Message is the wire shape of a push notification.
// Data holds a single record for upsert/remove and an array of records for the batch actions.
type Message struct {
	Type   string `json:"type" msgpack:"type" cbor:"type"`
	Action Action `json:"action" msgpack:"action" cbor:"action"`
	Data   any    `json:"data,omitempty" msgpack:"data,omitempty" cbor:"data,omitempty"`
}

// IsBatch reports whether the action expects an array payload.
func (a Action) IsBatch() bool {
	return a == BatchUpsert || a == BatchRemove
}

// Known reports whether the action is one of the four supported actions.
func (a Action) Known() bool {
	switch a {
	case Upsert, Remove, BatchUpsert, BatchRemove:
		return true
	}
	return false
}

// Envelope wraps a payload on a pub/sub channel so one channel can carry several event names.
type Envelope struct {
	Event   string `json:"event"`
	Sender  string `json:"sender,omitempty"`
	Payload []byte `json:"payload"`
}
