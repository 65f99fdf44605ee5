// Package codec provides the marshallers used for wire messages and stored records.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Supported serialization formats.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
	FormatCBOR    = "cbor"
)

// ErrUnsupportedFormat is returned for an unknown serialization format.
var ErrUnsupportedFormat = errors.New("unsupported serialization format")

// Marshaller serializes values to bytes and back.
type Marshaller interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON implements Marshaller using encoding/json.
type JSON struct{}

// Marshal serializes a value to JSON.
func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Msgpack implements Marshaller using vmihailenco/msgpack/v5.
// Struct fields fall back to their json tag names when no msgpack tag is set.
type Msgpack struct{}

// Marshal serializes a value to MessagePack.
func (Msgpack) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes a value from MessagePack.
func (Msgpack) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// CBOR implements Marshaller using fxamacker/cbor. Construct with NewCBOR.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR constructs a CBOR marshaller. Maps decoded into interface values
// use string keys so records look the same as with JSON.
func NewCBOR() (*CBOR, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBOR{enc: em, dec: dm}, nil
}

// Marshal serializes a value to CBOR.
func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal deserializes a value from CBOR.
func (c *CBOR) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

// ForFormat returns the marshaller for a serialization format.
func ForFormat(format string) (Marshaller, error) {
	switch format {
	case FormatJSON, "":
		return JSON{}, nil
	case FormatMsgpack:
		return Msgpack{}, nil
	case FormatCBOR:
		return NewCBOR()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
