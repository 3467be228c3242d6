package link

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaonanln/gwgrid/engine/proto"
	"github.com/xiaonanln/gwgrid/engine/transport"
	"pgregory.net/rapid"
)

type fakeTransport struct {
	startupErr error
	connectErr error

	started   bool
	connected bool
	shutdowns int
	polls     int
	events    []transport.Event
	sent      [][]byte
}

func (ft *fakeTransport) Startup() error {
	if ft.startupErr != nil {
		return ft.startupErr
	}
	ft.started = true
	return nil
}

func (ft *fakeTransport) Connect(address string, port int) error {
	if ft.connectErr != nil {
		return ft.connectErr
	}
	ft.connected = true
	return nil
}

func (ft *fakeTransport) Shutdown() {
	ft.shutdowns++
	ft.started = false
	ft.connected = false
	ft.events = nil
}

func (ft *fakeTransport) Poll() []transport.Event {
	ft.polls++
	events := ft.events
	ft.events = nil
	return events
}

func (ft *fakeTransport) Send(msgtype proto.MsgType, payload []byte) error {
	ft.sent = append(ft.sent, payload)
	return nil
}

func (ft *fakeTransport) push(kinds ...transport.EventKind) {
	for _, k := range kinds {
		ft.events = append(ft.events, transport.Event{Kind: k})
	}
}

type transition struct {
	old, new ConnectionState
}

func newRecordedLink(ft *fakeTransport) (*Link, *[]transition) {
	l := New(ft, "127.0.0.1", 7000)
	var transitions []transition
	l.SubscribeStateChanged(func(old, new ConnectionState) {
		transitions = append(transitions, transition{old, new})
	})
	return l, &transitions
}

func TestConnectAccepted(t *testing.T) {
	ft := &fakeTransport{}
	l, transitions := newRecordedLink(ft)
	assert.Equal(t, Disconnected, l.State())

	require.NoError(t, l.Connect())
	assert.Equal(t, Connecting, l.State())
	assert.Equal(t, ClassConnecting, l.StateClass())

	ft.push(transport.EventAccepted)
	l.Poll()
	assert.Equal(t, Connected, l.State())
	assert.Equal(t, []transition{
		{Disconnected, Connecting},
		{Connecting, Authenticating},
		{Authenticating, Connected},
	}, *transitions)

	require.NoError(t, l.Connect(), "connect while connected is a no-op")
	assert.Len(t, *transitions, 3)
}

func TestConnectErrors(t *testing.T) {
	ft := &fakeTransport{startupErr: errors.New("no sockets")}
	l, _ := newRecordedLink(ft)
	err := l.Connect()
	var connectErr *ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, SocketFail, connectErr.State)
	assert.Equal(t, SocketFail, l.State())
	assert.Equal(t, ClassFailed, l.StateClass())

	ft = &fakeTransport{connectErr: errors.New("bad port")}
	l, _ = newRecordedLink(ft)
	err = l.Connect()
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, ConnFail, connectErr.State)
	assert.Equal(t, ConnFail, l.State())
	assert.Equal(t, 1, ft.shutdowns)
}

func TestBanThenPollIsNoop(t *testing.T) {
	ft := &fakeTransport{}
	l, transitions := newRecordedLink(ft)
	require.NoError(t, l.Connect())

	ft.push(transport.EventBanned, transport.EventAccepted)
	l.Poll()
	assert.Equal(t, Banned, l.State())
	assert.Equal(t, ClassFailed, l.StateClass())
	assert.Equal(t, 1, ft.shutdowns)

	polls := ft.polls
	n := len(*transitions)
	l.Poll()
	assert.Equal(t, polls, ft.polls, "poll on a down link should not touch the transport")
	assert.Len(t, *transitions, n)

	l.Disconnect()
	assert.Equal(t, Banned, l.State(), "disconnect on a failed link keeps the failure")
	assert.Len(t, *transitions, n)
}

func TestFailureEvents(t *testing.T) {
	cases := map[transport.EventKind]ConnectionState{
		transport.EventClosed:        Disconnected,
		transport.EventAttemptFailed: ConnFail,
		transport.EventFull:          Full,
		transport.EventAuthFailed:    AuthFail,
		transport.EventDenied:        Denied,
		transport.EventLost:          ConnLost,
	}
	for kind, state := range cases {
		ft := &fakeTransport{}
		l, _ := newRecordedLink(ft)
		require.NoError(t, l.Connect())
		ft.push(transport.EventAccepted, kind)
		l.Poll()
		assert.Equal(t, state, l.State(), "event %s", kind)
		assert.Equal(t, 1, ft.shutdowns, "event %s", kind)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	l, transitions := newRecordedLink(ft)
	l.Disconnect()
	assert.Empty(t, *transitions)
	assert.Equal(t, 0, ft.shutdowns)

	require.NoError(t, l.Connect())
	l.Disconnect()
	l.Disconnect()
	assert.Equal(t, Disconnected, l.State())
	assert.Equal(t, 1, ft.shutdowns)
	assert.Equal(t, []transition{{Disconnected, Connecting}, {Connecting, Disconnected}}, *transitions)
}

func TestPackets(t *testing.T) {
	ft := &fakeTransport{}
	l, _ := newRecordedLink(ft)
	var received [][]byte
	sub := l.SubscribePacket(func(msgtype proto.MsgType, payload []byte) {
		received = append(received, payload)
	})

	assert.Error(t, l.Send(proto.MT_PAYLOAD_ECHO, []byte("early")))
	require.NoError(t, l.Connect())
	ft.events = append(ft.events,
		transport.Event{Kind: transport.EventAccepted},
		transport.Event{Kind: transport.EventPacket, MsgType: proto.MT_PAYLOAD_ECHO, Payload: []byte("a")},
	)
	l.Poll()
	require.NoError(t, l.Send(proto.MT_PAYLOAD_ECHO, []byte("b")))
	assert.Equal(t, [][]byte{[]byte("a")}, received)
	assert.Equal(t, [][]byte{[]byte("b")}, ft.sent)

	sub.Cancel()
	ft.events = append(ft.events, transport.Event{Kind: transport.EventPacket, MsgType: proto.MT_PAYLOAD_ECHO, Payload: []byte("c")})
	l.Poll()
	assert.Len(t, received, 1)
}

func TestPanickingObserverDoesNotBreakPoll(t *testing.T) {
	ft := &fakeTransport{}
	l, transitions := newRecordedLink(ft)
	l.SubscribeStateChanged(func(old, new ConnectionState) {
		panic("observer failure")
	})
	require.NoError(t, l.Connect())
	ft.push(transport.EventAccepted)
	l.Poll()
	assert.Equal(t, Connected, l.State())
	assert.Len(t, *transitions, 3)
}

func TestPropertyEveryStateHasOneClass(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := ConnectionState(rapid.IntRange(int(SocketFail), int(Connected)).Draw(t, "state"))
		class := ClassOf(state)
		switch {
		case state < Disconnected:
			assert.Equal(t, ClassFailed, class)
			assert.True(t, state.IsFailed())
		case state == Disconnected:
			assert.Equal(t, ClassDisconnected, class)
		case state == Connected:
			assert.Equal(t, ClassConnected, class)
		default:
			assert.Equal(t, ClassConnecting, class)
		}
	})
}
