package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/netutil"
	"github.com/xiaonanln/gwgrid/engine/proto"
)

var (
	// ErrNotConnected is returned by Send when there is no accepted connection
	ErrNotConnected = errors.New("transport not connected")
	// ErrNotStarted is returned by Connect before Startup
	ErrNotStarted = errors.New("transport not started")
)

// Config configures a NetTransport
type Config struct {
	Network        string
	ConnectTimeout time.Duration
	WSPath         string
}

// NetTransport is a Transport over tcp, kcp or websocket
type NetTransport struct {
	config Config
	cred   Credentials

	lock     sync.Mutex
	started  bool
	gen      uint64
	conn     *proto.GridConnection
	accepted bool
	events   []Event
}

// NewNetTransport creates a NetTransport which sends cred in its connect requests
func NewNetTransport(config Config, cred Credentials) *NetTransport {
	return &NetTransport{
		config: config,
		cred:   cred,
	}
}

// NewNetFactory returns a Factory creating NetTransports of the config
func NewNetFactory(config Config) Factory {
	return func(cred Credentials) Transport {
		return NewNetTransport(config, cred)
	}
}

func (t *NetTransport) String() string {
	return fmt.Sprintf("NetTransport<%s %s>", t.config.Network, t.cred)
}

// Startup checks the network and marks the transport usable
func (t *NetTransport) Startup() error {
	if !netutil.ValidNetwork(t.config.Network) {
		return errors.Errorf("%s: unsupported network %q", t, t.config.Network)
	}

	t.lock.Lock()
	t.started = true
	t.lock.Unlock()
	return nil
}

// Connect starts a dial routine for the address
func (t *NetTransport) Connect(address string, port int) error {
	if address == "" {
		return errors.Errorf("%s: empty address", t)
	}
	if port <= 0 || port > 65535 {
		return errors.Errorf("%s: invalid port %d", t, port)
	}

	t.lock.Lock()
	if !t.started {
		t.lock.Unlock()
		return ErrNotStarted
	}
	t.gen += 1
	gen := t.gen
	t.accepted = false
	t.lock.Unlock()

	go t.serveConnection(gen, address, port)
	return nil
}

// Shutdown closes the connection; events of the closed connection are dropped
func (t *NetTransport) Shutdown() {
	t.lock.Lock()
	t.gen += 1
	conn := t.conn
	t.conn = nil
	t.accepted = false
	t.started = false
	t.events = nil
	t.lock.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Poll returns queued events
func (t *NetTransport) Poll() []Event {
	t.lock.Lock()
	events := t.events
	t.events = nil
	t.lock.Unlock()
	return events
}

// Send sends a payload message on the accepted connection
func (t *NetTransport) Send(msgtype proto.MsgType, payload []byte) error {
	t.lock.Lock()
	conn := t.conn
	accepted := t.accepted
	t.lock.Unlock()

	if conn == nil || !accepted {
		return ErrNotConnected
	}
	return conn.SendPayload(msgtype, payload)
}

func (t *NetTransport) pushEvent(gen uint64, ev Event) {
	t.lock.Lock()
	if gen == t.gen {
		t.events = append(t.events, ev)
		if ev.Kind == EventAccepted {
			t.accepted = true
		}
	}
	t.lock.Unlock()
}

func (t *NetTransport) serveConnection(gen uint64, address string, port int) {
	conn, err := netutil.Dial(t.config.Network, address, port, t.config.ConnectTimeout, t.config.WSPath)
	if err != nil {
		gwlog.Warnf("%s: connect to %s:%d failed: %v", t, address, port, err)
		t.pushEvent(gen, Event{Kind: EventAttemptFailed, Err: err})
		return
	}

	gc := proto.NewGridConnection(conn)
	t.lock.Lock()
	if gen != t.gen {
		// shutdown or reconnected while dialing
		t.lock.Unlock()
		gc.Close()
		return
	}
	t.conn = gc
	t.lock.Unlock()

	defer func() {
		t.lock.Lock()
		if gen == t.gen && t.conn == gc {
			t.conn = nil
			t.accepted = false
		}
		t.lock.Unlock()
		gc.Close()
	}()

	err = gc.SendConnectRequest(proto.ConnectRequest{
		Version:  consts.PROTOCOL_VERSION,
		Nickname: t.cred.Nickname,
		Username: t.cred.Username,
		Password: t.cred.Password,
	})
	if err != nil {
		t.pushEvent(gen, Event{Kind: EventAttemptFailed, Err: err})
		return
	}

	t.recvLoop(gen, gc)
}

func (t *NetTransport) recvLoop(gen uint64, gc *proto.GridConnection) {
	handshakeDeadline := time.Now().Add(consts.HANDSHAKE_TIMEOUT)
	accepted := false
	for {
		var (
			msgtype proto.MsgType
			pkt     *netutil.Packet
			err     error
		)
		if accepted {
			msgtype, pkt, err = gc.Recv()
		} else {
			msgtype, pkt, err = gc.RecvTimeout(time.Until(handshakeDeadline))
		}

		if err != nil {
			if gc.IsClosed() && err != proto.ErrRecvTimeout {
				return
			}

			if accepted {
				gwlog.Warnf("%s: connection %s lost: %v", t, gc, err)
				t.pushEvent(gen, Event{Kind: EventLost, Err: err})
			} else {
				t.pushEvent(gen, Event{Kind: EventAttemptFailed, Err: err})
			}
			return
		}

		var ok bool
		accepted, ok = t.handlePacket(gen, accepted, msgtype, pkt)
		if !ok {
			return
		}
	}
}

// handlePacket returns the new accepted state, and false once the connection is finished
func (t *NetTransport) handlePacket(gen uint64, accepted bool, msgtype proto.MsgType, pkt *netutil.Packet) (bool, bool) {
	defer pkt.Release()

	switch msgtype {
	case proto.MT_CONNECT_ACCEPTED:
		var msg proto.ConnectAccepted
		if err := proto.ReadData(pkt, &msg); err != nil {
			t.pushEvent(gen, Event{Kind: EventAttemptFailed, Err: err})
			return accepted, false
		}
		t.pushEvent(gen, Event{Kind: EventAccepted, ServerName: msg.ServerName})
		return true, true
	case proto.MT_CONNECT_REJECTED:
		var msg proto.ConnectRejected
		if err := proto.ReadData(pkt, &msg); err != nil {
			t.pushEvent(gen, Event{Kind: EventAttemptFailed, Err: err})
			return accepted, false
		}
		t.pushEvent(gen, Event{Kind: rejectEventKind(msg.Reason), Message: msg.Message})
		return accepted, false
	case proto.MT_DISCONNECT_NOTIFY:
		reason, _ := proto.ReadVarStr(pkt)
		t.pushEvent(gen, Event{Kind: EventClosed, Message: reason})
		return accepted, false
	}

	if !msgtype.IsPayload() || !accepted {
		gwlog.Warnf("%s: unexpected message %s", t, msgtype)
		return accepted, true
	}
	payload := append([]byte(nil), pkt.UnreadPayload()...)
	t.pushEvent(gen, Event{Kind: EventPacket, MsgType: msgtype, Payload: payload})
	return accepted, true
}

func rejectEventKind(reason proto.RejectReason) EventKind {
	switch reason {
	case proto.REJECT_BANNED:
		return EventBanned
	case proto.REJECT_FULL:
		return EventFull
	case proto.REJECT_AUTH_FAILED:
		return EventAuthFailed
	}
	return EventDenied
}
