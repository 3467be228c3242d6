package netutil

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// Codec encodes the structured parts of packets
type Codec interface {
	Encode(msg interface{}) ([]byte, error)
	Decode(data []byte, msg interface{}) error
}

// MsgpackCodec encodes values in MessagePack format
type MsgpackCodec struct{}

// Encode returns msg in MessagePack format
func (MsgpackCodec) Encode(msg interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(msg)
	return data, errors.Wrapf(err, "msgpack encode %T", msg)
}

// Decode fills msg from data in MessagePack format
func (MsgpackCodec) Decode(data []byte, msg interface{}) error {
	return errors.Wrapf(msgpack.Unmarshal(data, msg), "msgpack decode %T", msg)
}

// PacketCodec is the codec of WriteData and ReadData
var PacketCodec Codec = MsgpackCodec{}
