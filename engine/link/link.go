// Package link manages the connection state of one server on top of a raw transport.
package link

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
	"github.com/xiaonanln/gwgrid/engine/opmon"
	"github.com/xiaonanln/gwgrid/engine/proto"
	"github.com/xiaonanln/gwgrid/engine/transport"
)

// StateChangedFunc observes link state transitions
type StateChangedFunc func(old ConnectionState, new ConnectionState)

// PacketFunc observes payload messages received on a connected link
type PacketFunc func(msgtype proto.MsgType, payload []byte)

// Link drives one transport through the connection states.
// It is not safe for concurrent use, all methods are called on the tick routine.
type Link struct {
	transport transport.Transport
	address   string
	port      int

	state ConnectionState
	up    bool

	stateObservers  common.ObserverList
	packetObservers common.ObserverList
}

// New creates a disconnected link to address:port
func New(t transport.Transport, address string, port int) *Link {
	return &Link{
		transport: t,
		address:   address,
		port:      port,
		state:     Disconnected,
	}
}

func (l *Link) String() string {
	return fmt.Sprintf("Link<%s:%d %s>", l.address, l.port, l.state)
}

// State returns the current connection state
func (l *Link) State() ConnectionState {
	return l.state
}

// StateClass returns the class of the current connection state
func (l *Link) StateClass() StateClass {
	return ClassOf(l.state)
}

// SubscribeStateChanged registers fn to be called on every transition
func (l *Link) SubscribeStateChanged(fn StateChangedFunc) common.Subscription {
	return l.stateObservers.Add(fn)
}

// SubscribePacket registers fn to be called for every payload message
func (l *Link) SubscribePacket(fn PacketFunc) common.Subscription {
	return l.packetObservers.Add(fn)
}

// Connect starts connecting, the result is reported by later Poll calls
func (l *Link) Connect() error {
	switch l.StateClass() {
	case ClassConnecting, ClassConnected:
		return nil
	}

	if err := l.transport.Startup(); err != nil {
		l.setState(SocketFail)
		return &ConnectError{State: SocketFail, Err: err}
	}

	if err := l.transport.Connect(l.address, l.port); err != nil {
		l.transport.Shutdown()
		l.setState(ConnFail)
		return &ConnectError{State: ConnFail, Err: err}
	}

	l.up = true
	l.setState(Connecting)
	return nil
}

// Disconnect shuts the transport down, it is idempotent
func (l *Link) Disconnect() {
	wasUp := l.up
	if wasUp {
		l.up = false
		l.transport.Shutdown()
	}

	if wasUp || l.StateClass() == ClassConnecting || l.StateClass() == ClassConnected {
		l.setState(Disconnected)
	}
}

// Send sends a payload message, only allowed when connected
func (l *Link) Send(msgtype proto.MsgType, payload []byte) error {
	if l.state != Connected {
		return errors.Errorf("%s: can not send %s", l, msgtype)
	}
	return l.transport.Send(msgtype, payload)
}

// Poll processes the transport events queued since the last poll
func (l *Link) Poll() {
	if !l.up {
		return
	}

	op := opmon.StartOperation("link.Poll")
	defer op.Finish(consts.LINK_POLL_WARN_THRESHOLD)

	for _, ev := range l.transport.Poll() {
		if consts.DEBUG_LINKS {
			gwlog.Debugf("%s: %s", l, ev)
		}

		switch ev.Kind {
		case transport.EventAccepted:
			l.setState(Authenticating)
			if l.up {
				l.setState(Connected)
			}
		case transport.EventPacket:
			if l.state == Connected {
				l.dispatchPacket(ev.MsgType, ev.Payload)
			}
		case transport.EventClosed:
			l.fail(Disconnected, ev)
		case transport.EventBanned:
			l.fail(Banned, ev)
		case transport.EventAttemptFailed:
			l.fail(ConnFail, ev)
		case transport.EventFull:
			l.fail(Full, ev)
		case transport.EventAuthFailed:
			l.fail(AuthFail, ev)
		case transport.EventDenied:
			l.fail(Denied, ev)
		case transport.EventLost:
			l.fail(ConnLost, ev)
		default:
			gwlog.Errorf("%s: unknown transport event %s", l, ev)
		}

		if !l.up {
			// events after the link went down belong to a dead connection
			return
		}
	}
}

func (l *Link) fail(state ConnectionState, ev transport.Event) {
	if state != Disconnected {
		gwlog.Warnf("%s: connection failed: %s", l, ev)
	}
	l.up = false
	l.transport.Shutdown()
	l.setState(state)
}

func (l *Link) setState(state ConnectionState) {
	old := l.state
	if old == state {
		return
	}

	l.state = state
	if consts.DEBUG_LINKS {
		gwlog.Debugf("%s:%d: %s -> %s", l.address, l.port, old, state)
	}

	l.stateObservers.Each(func(fn interface{}) {
		gwutils.RunPanicless(func() {
			fn.(StateChangedFunc)(old, state)
		})
	})
}

func (l *Link) dispatchPacket(msgtype proto.MsgType, payload []byte) {
	l.packetObservers.Each(func(fn interface{}) {
		gwutils.RunPanicless(func() {
			fn.(PacketFunc)(msgtype, payload)
		})
	})
}
