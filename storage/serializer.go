package storage

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts values to and from bytes for persistent engines.
//
// Contract:
//   - Unmarshal into *any must yield plain values (maps, slices, strings,
//     numbers, bools, nil and, for formats that carry it, time.Time).
//   - Marshal(Unmarshal(Marshal(v))) must decode into the type of v.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer encodes values as JSON text.
type JSONSerializer struct{}

// Name returns "json".
func (JSONSerializer) Name() string { return "json" }

// Marshal encodes v as JSON.
func (JSONSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON data into v.
func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackSerializer encodes values as MessagePack.
type MsgpackSerializer struct{}

// Name returns "msgpack".
func (MsgpackSerializer) Name() string { return "msgpack" }

// Marshal encodes v as MessagePack.
func (MsgpackSerializer) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal decodes MessagePack data into v.
func (MsgpackSerializer) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// SerializerByName returns the serializer registered under name.
// An empty name selects JSON.
func SerializerByName(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSONSerializer{}, nil
	case "msgpack":
		return MsgpackSerializer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
}

// Convert re-encodes a generically decoded value into dst, a pointer to the
// caller's type, using the serializer of engine. Engines that do not encode
// values fall back to JSON.
func Convert(engine Engine, src any, dst any) error {
	ser := Serializer(JSONSerializer{})
	if enc, ok := engine.(interface{ Serializer() Serializer }); ok {
		ser = enc.Serializer()
	}
	data, err := ser.Marshal(src)
	if err != nil {
		return fmt.Errorf("storage: convert %T: %w", src, err)
	}
	if err := ser.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("storage: convert %T into %T: %w", src, dst, err)
	}
	return nil
}

var (
	_ Serializer = JSONSerializer{}
	_ Serializer = MsgpackSerializer{}
)
