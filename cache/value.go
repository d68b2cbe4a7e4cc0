package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
)

// Serialized value layout inside a slot: big-endian 2 byte flags, big-endian
// 4 byte data length, then the data itself. Slot bytes past the data are
// garbage and never read.
const ValueHeaderSize = 2 + 4

var (
	ErrValueTooLarge = errors.New("serialized value does not fit the window")
	ErrSlotCorrupt   = errors.New("slot header describes more data than the slot holds")
)

// Value is a cached item: opaque client flags plus a data block.
// Bytes always equals len(Data); NewValue keeps them consistent.
type Value struct {
	Flags uint16
	Bytes uint32
	Data  []byte
}

func NewValue(flags uint16, data []byte) Value {
	return Value{
		Flags: flags,
		Bytes: uint32(len(data)),
		Data:  data,
	}
}

func (v Value) SerializedSize() int { return ValueHeaderSize + len(v.Data) }

func (v Value) Equal(o Value) bool {
	return v.Flags == o.Flags && v.Bytes == o.Bytes && string(v.Data) == string(o.Data)
}

func (v Value) GoString() string {
	return fmt.Sprintf("Value{Flags: %v, Bytes: %v, Data: %q}", v.Flags, v.Bytes, v.Data)
}

// writeValue serializes v into window. The window is a slot's bytes, so the
// caller must hold the slot mutex.
func writeValue(window []byte, v Value) error {
	if v.SerializedSize() > len(window) {
		return stackerr.Wrap(ErrValueTooLarge)
	}
	binary.BigEndian.PutUint16(window, v.Flags)
	binary.BigEndian.PutUint32(window[2:], uint32(len(v.Data)))
	copy(window[ValueHeaderSize:], v.Data)
	return nil
}

// readValue deserializes the value from window. Data is copied out, so the
// returned Value stays valid after the slot mutex is released.
func readValue(window []byte) (Value, error) {
	length := binary.BigEndian.Uint32(window[2:])
	if ValueHeaderSize+int(length) > len(window) {
		return Value{}, stackerr.Wrap(ErrSlotCorrupt)
	}
	data := make([]byte, length)
	copy(data, window[ValueHeaderSize:])
	return Value{
		Flags: binary.BigEndian.Uint16(window),
		Bytes: length,
		Data:  data,
	}, nil
}
