package proto

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/netutil"
)

// ErrRecvTimeout is returned by RecvTimeout when no packet arrives in time
var ErrRecvTimeout = errors.New("receive timeout")

// GridConnection is the network protocol between grid clients and cell servers
type GridConnection struct {
	packetConn *netutil.PacketConnection
	recvChan   <-chan *netutil.Packet
	closed     xnsyncutil.AtomicBool
}

// NewGridConnection creates a GridConnection using network connection
func NewGridConnection(conn netutil.Connection) *GridConnection {
	pc := netutil.NewPacketConnection(conn, nil)
	return &GridConnection{
		packetConn: pc,
		recvChan:   pc.Recv(),
	}
}

func (gc *GridConnection) newMessage(msgtype MsgType) *netutil.Packet {
	packet := gc.packetConn.NewPacket()
	packet.WriteUint16(uint16(msgtype))
	return packet
}

// SendConnectRequest sends MT_CONNECT_REQUEST message
func (gc *GridConnection) SendConnectRequest(req ConnectRequest) error {
	return gc.sendData(MT_CONNECT_REQUEST, req)
}

// SendConnectAccepted sends MT_CONNECT_ACCEPTED message
func (gc *GridConnection) SendConnectAccepted(serverName string) error {
	return gc.sendData(MT_CONNECT_ACCEPTED, ConnectAccepted{ServerName: serverName})
}

// SendConnectRejected sends MT_CONNECT_REJECTED message
func (gc *GridConnection) SendConnectRejected(reason RejectReason, message string) error {
	return gc.sendData(MT_CONNECT_REJECTED, ConnectRejected{Reason: reason, Message: message})
}

func (gc *GridConnection) sendData(msgtype MsgType, msg interface{}) error {
	packet := gc.newMessage(msgtype)
	defer packet.Release()
	if err := netutil.WriteData(packet, msg); err != nil {
		return err
	}
	return gc.SendPacket(packet)
}

// SendDisconnectNotify sends MT_DISCONNECT_NOTIFY message
func (gc *GridConnection) SendDisconnectNotify(reason string) error {
	packet := gc.newMessage(MT_DISCONNECT_NOTIFY)
	defer packet.Release()
	packet.WriteVarStrI(reason)
	return gc.SendPacket(packet)
}

// SendPayload sends one application message
func (gc *GridConnection) SendPayload(msgtype MsgType, payload []byte) error {
	if !msgtype.IsPayload() {
		return errors.Errorf("%s is not a payload message type", msgtype)
	}
	if len(payload) > consts.MAX_PACKET_PAYLOAD_LENGTH {
		return errors.Errorf("%s: payload too large: %d bytes", gc, len(payload))
	}

	packet := gc.newMessage(msgtype)
	defer packet.Release()
	packet.WriteBytes(payload)
	return gc.SendPacket(packet)
}

// SendPacket queues the packet; the connection flushes it shortly after
func (gc *GridConnection) SendPacket(packet *netutil.Packet) error {
	if gc.IsClosed() {
		return netutil.ErrConnectionClosed
	}
	return gc.packetConn.SendPacket(packet)
}

// Recv receives the next packet and retrieve the message type.
// The caller releases the packet once done with it.
func (gc *GridConnection) Recv() (MsgType, *netutil.Packet, error) {
	pkt, ok := <-gc.recvChan
	if !ok {
		return MT_INVALID, nil, gc.recvError()
	}
	return gc.parse(pkt)
}

// RecvTimeout is Recv giving up after timeout
func (gc *GridConnection) RecvTimeout(timeout time.Duration) (MsgType, *netutil.Packet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pkt, ok := <-gc.recvChan:
		if !ok {
			return MT_INVALID, nil, gc.recvError()
		}
		return gc.parse(pkt)
	case <-timer.C:
		return MT_INVALID, nil, ErrRecvTimeout
	}
}

func (gc *GridConnection) recvError() error {
	if gc.IsClosed() {
		return io.EOF
	}
	return gc.packetConn.Err()
}

func (gc *GridConnection) parse(pkt *netutil.Packet) (MsgType, *netutil.Packet, error) {
	if pkt.GetPayloadLen() < 2 {
		n := pkt.GetPayloadLen()
		pkt.Release()
		return MT_INVALID, nil, errors.Errorf("%s: packet too short: %d bytes", gc, n)
	}

	msgtype := MsgType(pkt.ReadUint16())
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s: Recv msgtype=%v, payload size=%d", gc, msgtype, pkt.GetPayloadLen())
	}
	return msgtype, pkt, nil
}

// Close this connection; queued packets are dropped
func (gc *GridConnection) Close() error {
	gc.closed.Store(true)
	return gc.packetConn.Close()
}

// CloseAfterFlush gives queued packets time to be flushed, then closes the connection
func (gc *GridConnection) CloseAfterFlush() {
	time.AfterFunc(consts.PACKET_FLUSH_LINGER, func() {
		gc.Close()
	})
}

// IsClosed returns if the connection is closed
func (gc *GridConnection) IsClosed() bool {
	return gc.closed.Load() || gc.packetConn.IsClosed()
}

// RemoteAddr returns the remote address
func (gc *GridConnection) RemoteAddr() net.Addr {
	return gc.packetConn.RemoteAddr()
}

// LocalAddr returns the local address
func (gc *GridConnection) LocalAddr() net.Addr {
	return gc.packetConn.LocalAddr()
}

func (gc *GridConnection) String() string {
	return gc.packetConn.String()
}
