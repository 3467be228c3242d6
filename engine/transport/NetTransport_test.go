package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaonanln/gwgrid/engine/cellserver"
	"github.com/xiaonanln/gwgrid/engine/netutil"
	"github.com/xiaonanln/gwgrid/engine/proto"
)

func startCellServer(t *testing.T, config cellserver.Config) (*cellserver.Server, int) {
	s := cellserver.New(config)
	addr, err := s.ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return s, addr.(*net.TCPAddr).Port
}

func waitEvent(t *testing.T, tr Transport) Event {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events := tr.Poll(); len(events) > 0 {
			require.Len(t, events, 1, "unexpected events: %v", events)
			return events[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no event from %v", tr)
	return Event{}
}

func newTCPTransport(username string, password string) *NetTransport {
	return NewNetTransport(Config{Network: netutil.NetworkTCP, ConnectTimeout: time.Second}, Credentials{
		Nickname: "nick-" + username,
		Username: username,
		Password: password,
	})
}

func TestAcceptAndEcho(t *testing.T) {
	_, port := startCellServer(t, cellserver.Config{Name: "cell-0-0"})
	tr := newTCPTransport("alice", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	defer tr.Shutdown()

	ev := waitEvent(t, tr)
	assert.Equal(t, EventAccepted, ev.Kind)
	assert.Equal(t, "cell-0-0", ev.ServerName)

	require.NoError(t, tr.Send(proto.MT_PAYLOAD_ECHO, []byte("hello")))
	ev = waitEvent(t, tr)
	assert.Equal(t, EventPacket, ev.Kind)
	assert.Equal(t, proto.MT_PAYLOAD_ECHO, ev.MsgType)
	assert.Equal(t, []byte("hello"), ev.Payload)
}

func TestRejections(t *testing.T) {
	_, port := startCellServer(t, cellserver.Config{
		Name:       "strict",
		MaxClients: 1,
		Banned:     []string{"mallory"},
		Password:   "pw",
	})

	cases := []struct {
		username string
		password string
		kind     EventKind
	}{
		{"mallory", "pw", EventBanned},
		{"bob", "wrong", EventAuthFailed},
		{"carol", "pw", EventAccepted},
		{"dave", "pw", EventFull},
	}
	for _, c := range cases {
		tr := newTCPTransport(c.username, c.password)
		require.NoError(t, tr.Startup())
		require.NoError(t, tr.Connect("127.0.0.1", port))
		ev := waitEvent(t, tr)
		assert.Equal(t, c.kind, ev.Kind, "user %s", c.username)
		if c.kind != EventAccepted {
			tr.Shutdown()
		} else {
			defer tr.Shutdown()
		}
	}
}

func TestServerShutdownIsGracefulClose(t *testing.T) {
	s, port := startCellServer(t, cellserver.Config{Name: "closing"})
	tr := newTCPTransport("erin", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	defer tr.Shutdown()
	require.Equal(t, EventAccepted, waitEvent(t, tr).Kind)

	s.Shutdown()
	ev := waitEvent(t, tr)
	assert.Equal(t, EventClosed, ev.Kind)
	assert.Equal(t, "server shutdown", ev.Message)
}

func TestDroppedConnectionIsLost(t *testing.T) {
	s, port := startCellServer(t, cellserver.Config{Name: "dropping"})
	tr := newTCPTransport("frank", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	defer tr.Shutdown()
	require.Equal(t, EventAccepted, waitEvent(t, tr).Kind)

	require.True(t, s.Drop("frank"))
	assert.Equal(t, EventLost, waitEvent(t, tr).Kind)
}

func TestAttemptFailed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tr := newTCPTransport("gina", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	defer tr.Shutdown()
	ev := waitEvent(t, tr)
	assert.Equal(t, EventAttemptFailed, ev.Kind)
	assert.Error(t, ev.Err)
}

func TestParameterErrors(t *testing.T) {
	tr := NewNetTransport(Config{Network: "smoke-signal"}, Credentials{Username: "x"})
	assert.Error(t, tr.Startup())

	tr = newTCPTransport("x", "")
	assert.Equal(t, ErrNotStarted, tr.Connect("127.0.0.1", 1))
	require.NoError(t, tr.Startup())
	assert.Error(t, tr.Connect("", 1))
	assert.Error(t, tr.Connect("127.0.0.1", 0))
	assert.Equal(t, ErrNotConnected, tr.Send(proto.MT_PAYLOAD_ECHO, nil))
}

func TestShutdownDropsEvents(t *testing.T) {
	_, port := startCellServer(t, cellserver.Config{Name: "quiet"})
	tr := newTCPTransport("hank", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	tr.Shutdown()

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, tr.Poll())
}

func TestCredentialsHidePassword(t *testing.T) {
	cred := Credentials{Nickname: "n", Username: "u", Password: "hunter2"}
	assert.NotContains(t, cred.String(), "hunter2")
	assert.NotContains(t, cred.GoString(), "hunter2")
}

func TestWebSocketAndKCP(t *testing.T) {
	s := cellserver.New(cellserver.Config{Name: "multi"})
	t.Cleanup(s.Shutdown)
	wsAddr, err := s.ListenWebSocket("127.0.0.1:0", "/ws")
	require.NoError(t, err)
	kcpAddr, err := s.ListenKCP("127.0.0.1:0")
	require.NoError(t, err)

	wsTr := NewNetTransport(Config{Network: netutil.NetworkWebSocket, ConnectTimeout: time.Second, WSPath: "/ws"}, Credentials{Username: "ws-user"})
	require.NoError(t, wsTr.Startup())
	require.NoError(t, wsTr.Connect("127.0.0.1", wsAddr.(*net.TCPAddr).Port))
	defer wsTr.Shutdown()
	assert.Equal(t, EventAccepted, waitEvent(t, wsTr).Kind)

	kcpTr := NewNetTransport(Config{Network: netutil.NetworkKCP, ConnectTimeout: time.Second}, Credentials{Username: "kcp-user"})
	require.NoError(t, kcpTr.Startup())
	require.NoError(t, kcpTr.Connect("127.0.0.1", kcpAddr.(*net.UDPAddr).Port))
	defer kcpTr.Shutdown()
	assert.Equal(t, EventAccepted, waitEvent(t, kcpTr).Kind)
}

func TestSendAfterConnectionLost(t *testing.T) {
	s, port := startCellServer(t, cellserver.Config{Name: "lossy"})
	tr := newTCPTransport("ivan", "")
	require.NoError(t, tr.Startup())
	require.NoError(t, tr.Connect("127.0.0.1", port))
	defer tr.Shutdown()
	require.Equal(t, EventAccepted, waitEvent(t, tr).Kind)
	require.NoError(t, tr.Send(proto.MT_PAYLOAD_ECHO, []byte("before")))
	require.Equal(t, EventPacket, waitEvent(t, tr).Kind)

	require.True(t, s.Drop("ivan"))
	require.Equal(t, EventLost, waitEvent(t, tr).Kind)
	assert.Eventually(t, func() bool {
		return tr.Send(proto.MT_PAYLOAD_ECHO, []byte("after")) == ErrNotConnected
	}, 5*time.Second, 5*time.Millisecond)
}
