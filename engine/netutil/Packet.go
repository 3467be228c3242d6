package netutil

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/pktconn"
)

// Packet is a pooled packet of a PacketConnection.
// Received packets must be released once read.
type Packet = pktconn.Packet

// NewPacket allocates a new packet with refcount 1
func NewPacket() *Packet {
	return pktconn.NewPacket()
}

// NewPacketWithPayload allocates a packet holding a copy of payload
func NewPacketWithPayload(payload []byte) *Packet {
	p := pktconn.NewPacket()
	p.WriteBytes(payload)
	return p
}

// WriteData appends one value encoded by PacketCodec to the end of payload
func WriteData(p *Packet, msg interface{}) error {
	data, err := PacketCodec.Encode(msg)
	if err != nil {
		return err
	}
	p.WriteVarBytesI(data)
	return nil
}

// ReadData decodes one value written by WriteData from the unread payload
func ReadData(p *Packet, msg interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r, "read data")
		}
	}()

	return PacketCodec.Decode(p.ReadVarBytesI(), msg)
}

// ReadVarStr reads one string written by WriteVarStrI from the unread payload
func ReadVarStr(p *Packet) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r, "read varstr")
		}
	}()

	return p.ReadVarStrI(), nil
}

func recoveredError(r interface{}, what string) error {
	if e, ok := r.(error); ok {
		return errors.Wrap(e, what)
	}
	return errors.Errorf("%s: %v", what, r)
}
