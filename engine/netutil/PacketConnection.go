package netutil

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/pktconn"
)

// ErrConnectionClosed is returned when sending on a closed packet connection
var ErrConnectionClosed = errors.New("packet connection closed")

// PacketConnection is a connection that send and receive data packets upon a network stream connection
type PacketConnection pktconn.PacketConn

// NewPacketConnection creates a packet connection based on network connection
func NewPacketConnection(conn net.Conn, tag interface{}) *PacketConnection {
	config := pktconn.DefaultConfig()
	config.Tag = tag
	return (*PacketConnection)(pktconn.NewPacketConnWithConfig(context.TODO(), conn, config))
}

func (pc *PacketConnection) packetConn() *pktconn.PacketConn {
	return (*pktconn.PacketConn)(pc)
}

// NewPacket allocates a new packet (usually for sending)
func (pc *PacketConnection) NewPacket() *Packet {
	return NewPacket()
}

// SendPacket queues the packet to be flushed by the connection; the caller keeps its reference
func (pc *PacketConnection) SendPacket(packet *Packet) error {
	if pc.IsClosed() {
		return ErrConnectionClosed
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s: send packet of %d bytes", pc, packet.GetPayloadLen())
	}
	pc.packetConn().Send(packet)
	return nil
}

// Recv starts receiving; the returned channel is closed once the connection is closed
func (pc *PacketConnection) Recv() <-chan *Packet {
	return pc.packetConn().Recv()
}

// Err returns why the connection was closed, io.EOF if it was closed locally
func (pc *PacketConnection) Err() error {
	if err := pc.packetConn().Err(); err != nil {
		return err
	}
	return io.EOF
}

// IsClosed returns if the connection is closed
func (pc *PacketConnection) IsClosed() bool {
	select {
	case <-pc.packetConn().Done():
		return true
	default:
		return false
	}
}

// Close the connection; packets not flushed yet are dropped
func (pc *PacketConnection) Close() error {
	return pc.packetConn().Close()
}

// RemoteAddr return the remote address
func (pc *PacketConnection) RemoteAddr() net.Addr {
	return pc.packetConn().RemoteAddr()
}

// LocalAddr returns the local address
func (pc *PacketConnection) LocalAddr() net.Addr {
	return pc.packetConn().LocalAddr()
}

func (pc *PacketConnection) String() string {
	return fmt.Sprintf("[%s >>> %s]", pc.LocalAddr(), pc.RemoteAddr())
}
