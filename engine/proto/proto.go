package proto

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/netutil"
)

// MsgType is the type of message types
type MsgType uint16

const (
	// MT_INVALID is the invalid message type
	MT_INVALID MsgType = iota
	// MT_CONNECT_REQUEST is sent by client right after the connection is established
	MT_CONNECT_REQUEST
	// MT_CONNECT_ACCEPTED is sent by server when the connect request is accepted
	MT_CONNECT_ACCEPTED
	// MT_CONNECT_REJECTED is sent by server before closing a rejected connection
	MT_CONNECT_REJECTED
	// MT_DISCONNECT_NOTIFY is sent by either side before closing the connection gracefully
	MT_DISCONNECT_NOTIFY
)

const (
	// MT_PAYLOAD_MIN is the first message type that is passed to packet subscribers
	MT_PAYLOAD_MIN MsgType = 1000 + iota
	// MT_PAYLOAD_ECHO is echoed back by development cell servers
	MT_PAYLOAD_ECHO
)

// IsPayload returns if the message type carries application payload
func (mt MsgType) IsPayload() bool {
	return mt >= MT_PAYLOAD_MIN
}

func (mt MsgType) String() string {
	switch mt {
	case MT_INVALID:
		return "MT_INVALID"
	case MT_CONNECT_REQUEST:
		return "MT_CONNECT_REQUEST"
	case MT_CONNECT_ACCEPTED:
		return "MT_CONNECT_ACCEPTED"
	case MT_CONNECT_REJECTED:
		return "MT_CONNECT_REJECTED"
	case MT_DISCONNECT_NOTIFY:
		return "MT_DISCONNECT_NOTIFY"
	}
	return fmt.Sprintf("MT_PAYLOAD(%d)", uint16(mt))
}

// RejectReason tells the client why the connect request is rejected
type RejectReason uint8

const (
	// REJECT_DENIED is used when the server refuses for any other reason (e.g. protocol version mismatch)
	REJECT_DENIED RejectReason = iota
	// REJECT_BANNED is used when the user is banned on the server
	REJECT_BANNED
	// REJECT_FULL is used when the server reached its client limit
	REJECT_FULL
	// REJECT_AUTH_FAILED is used when the password does not match
	REJECT_AUTH_FAILED
)

func (r RejectReason) String() string {
	switch r {
	case REJECT_BANNED:
		return "banned"
	case REJECT_FULL:
		return "full"
	case REJECT_AUTH_FAILED:
		return "auth failed"
	}
	return "denied"
}

// ConnectRequest is the first message sent by clients
type ConnectRequest struct {
	Version  uint16 `msgpack:"v"`
	Nickname string `msgpack:"n"`
	Username string `msgpack:"u"`
	Password string `msgpack:"p"`
}

func (req ConnectRequest) String() string {
	return fmt.Sprintf("ConnectRequest<v%d %s/%s>", req.Version, req.Nickname, req.Username)
}

// ConnectAccepted is sent by servers when the client is accepted
type ConnectAccepted struct {
	ServerName string `msgpack:"s"`
}

// ConnectRejected is sent by servers when the client is rejected
type ConnectRejected struct {
	Reason  RejectReason `msgpack:"r"`
	Message string       `msgpack:"m"`
}

// ReadData decodes one msgpack data from the packet
func ReadData(pkt *netutil.Packet, msg interface{}) error {
	return netutil.ReadData(pkt, msg)
}

// ReadVarStr decodes one varsize string from the packet
func ReadVarStr(pkt *netutil.Packet) (string, error) {
	return netutil.ReadVarStr(pkt)
}
