package session

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaonanln/gwgrid/engine/barrier"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/link"
	"github.com/xiaonanln/gwgrid/engine/plugin"
	"github.com/xiaonanln/gwgrid/engine/proto"
	"github.com/xiaonanln/gwgrid/engine/transport"
)

// fakeTransport accepts on the first Poll after Connect unless told otherwise
type fakeTransport struct {
	startupErr error
	reply      transport.EventKind
	connects   int
	shutdowns  int
	pending    bool
	events     []transport.Event
}

func (ft *fakeTransport) Startup() error { return ft.startupErr }

func (ft *fakeTransport) Connect(address string, port int) error {
	ft.connects++
	ft.pending = true
	return nil
}

func (ft *fakeTransport) Shutdown() {
	ft.shutdowns++
	ft.pending = false
	ft.events = nil
}

func (ft *fakeTransport) Poll() []transport.Event {
	if ft.pending {
		ft.pending = false
		ft.events = append(ft.events, transport.Event{Kind: ft.reply})
	}
	events := ft.events
	ft.events = nil
	return events
}

func (ft *fakeTransport) Send(msgtype proto.MsgType, payload []byte) error { return nil }

// manualPlugins loads plugins that complete only when done is called
type manualPlugins struct {
	names     []barrier.UnitID
	managers  int
	destroyed int
	onLoaded  func(barrier.UnitID)
}

func (mp *manualPlugins) NewManager(host plugin.Host) plugin.Manager {
	mp.managers++
	return mp
}

func (mp *manualPlugins) Plugins() []barrier.UnitID { return mp.names }

func (mp *manualPlugins) Load(onLoaded func(barrier.UnitID)) { mp.onLoaded = onLoaded }

func (mp *manualPlugins) Destroy() { mp.destroyed++ }

func (mp *manualPlugins) done(id barrier.UnitID) { mp.onLoaded(id) }

var testUser = UserIdentity{Nickname: "Nick", Username: "nick", Password: "s3cret"}

func newTestSession(ft *fakeTransport, plugins plugin.Factory) (*RemoteServerSession, *[]StateChange) {
	env := Environment{
		Transports: func(cred transport.Credentials) transport.Transport { return ft },
		Plugins:    plugins,
	}
	s := NewRemoteServerSession(common.GridCell{X: 1, Z: 0}, ServerIdentity{"127.0.0.1", 7000, "cell-1-0"}, testUser, env)
	var changes []StateChange
	s.SubscribeStateChanged(func(change StateChange) {
		changes = append(changes, change)
	})
	return s, &changes
}

func states(changes []StateChange) []string {
	var out []string
	for _, c := range changes {
		out = append(out, fmt.Sprintf("%s>%s", c.Old, c.New))
	}
	return out
}

func TestRemoteLifecycle(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	mp := &manualPlugins{names: []barrier.UnitID{"terrain", "npcs"}}
	s, changes := newTestSession(ft, mp)
	assert.Equal(t, Discovered, s.ServerState())

	s.RequestConnected()
	assert.Equal(t, Connecting, s.ServerState())
	assert.Equal(t, Connected, s.TargetState())

	s.Update()
	assert.Equal(t, Loading, s.ServerState())
	assert.Equal(t, link.Connected, s.ConnectionState())
	assert.Equal(t, []barrier.UnitID{"npcs", "terrain"}, s.PendingPlugins())

	mp.done("terrain")
	mp.done("terrain")
	assert.Equal(t, Loading, s.ServerState())
	mp.done("npcs")
	assert.Equal(t, Connected, s.ServerState())
	assert.Equal(t, []string{"Discovered>Connecting", "Connecting>Loading", "Loading>Connected"}, states(*changes))

	s.RequestConnectedActive()
	assert.Equal(t, ConnectedActive, s.ServerState())
	assert.Equal(t, 1, mp.managers, "no barrier re-run when going active")

	s.RequestHalfConnected()
	assert.Equal(t, ConnectedActive, s.ServerState(), "requests never regress")
}

func TestEmptyPluginSetLoadsOnConnect(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	s, _ := newTestSession(ft, nil)
	s.RequestHalfConnected()
	s.Update()
	assert.Equal(t, HalfConnected, s.ServerState())

	ready := 0
	s.SubscribeReady(func() { ready++ })
	assert.Equal(t, 1, ready, "late ready subscribers are replayed")
}

func TestDemote(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	s, _ := newTestSession(ft, nil)
	s.RequestConnectedActive()
	s.Update()
	require.Equal(t, ConnectedActive, s.ServerState())

	s.Demote(Connected)
	assert.Equal(t, Connected, s.ServerState())
	assert.Equal(t, Connected, s.TargetState())

	s.Demote(Discovered)
	assert.Equal(t, HalfConnected, s.ServerState())
	assert.Equal(t, 1, ft.connects, "demotion never reconnects")
	assert.Equal(t, 0, ft.shutdowns)
}

func TestDemoteWhileLoadingLowersTarget(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	mp := &manualPlugins{names: []barrier.UnitID{"a"}}
	s, _ := newTestSession(ft, mp)
	s.RequestConnectedActive()
	s.Update()
	s.Demote(HalfConnected)
	assert.Equal(t, Loading, s.ServerState())
	mp.done("a")
	assert.Equal(t, HalfConnected, s.ServerState())
}

func TestRequestWhileConnectingKeepsHigherTarget(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	s, _ := newTestSession(ft, nil)
	s.RequestConnectedActive()
	require.Equal(t, Connecting, s.ServerState())

	s.RequestHalfConnected()
	assert.Equal(t, ConnectedActive, s.TargetState())
	s.RequestConnected()
	assert.Equal(t, ConnectedActive, s.TargetState())

	s.Update()
	assert.Equal(t, ConnectedActive, s.ServerState())
	assert.Equal(t, 1, ft.connects)
}

func TestBanLandsInDiscoveredWithoutRetry(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventBanned}
	s, changes := newTestSession(ft, nil)
	s.RequestConnected()
	s.Update()

	assert.Equal(t, Discovered, s.ServerState())
	assert.Equal(t, Discovered, s.TargetState())
	assert.Equal(t, link.Banned, s.ConnectionState())
	last := (*changes)[len(*changes)-1]
	assert.Equal(t, Discovered, last.New)
	assert.Equal(t, link.Banned, last.Connection)

	s.Update()
	s.Update()
	assert.Equal(t, 1, ft.connects)
}

func TestConnectionLostAfterLoaded(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	mp := &manualPlugins{}
	s, _ := newTestSession(ft, mp)
	s.RequestConnected()
	s.Update()
	require.Equal(t, Connected, s.ServerState())

	ft.events = append(ft.events, transport.Event{Kind: transport.EventLost})
	s.Update()
	assert.Equal(t, Discovered, s.ServerState())
	assert.Equal(t, link.ConnLost, s.ConnectionState())
	assert.Equal(t, 1, mp.destroyed)
}

func TestDisconnectWhileLoading(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	mp := &manualPlugins{names: []barrier.UnitID{"a"}}
	s, _ := newTestSession(ft, mp)
	s.RequestConnected()
	s.Update()
	require.Equal(t, Loading, s.ServerState())

	s.Disconnect()
	assert.Equal(t, Discovered, s.ServerState())
	assert.Equal(t, Discovered, s.TargetState())
	assert.Equal(t, link.Disconnected, s.ConnectionState())
	assert.Equal(t, 1, mp.destroyed)

	mp.done("a")
	s.Update()
	assert.Equal(t, Discovered, s.ServerState(), "stale targets are not resumed")
}

func TestDisconnectWhileConnectingAbortsAttempt(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	s, _ := newTestSession(ft, nil)
	s.RequestConnected()
	s.Disconnect()
	assert.Equal(t, 1, ft.shutdowns)
	s.Update()
	assert.Equal(t, Discovered, s.ServerState())
}

func TestConnectStartupFailure(t *testing.T) {
	ft := &fakeTransport{startupErr: errors.New("no network")}
	s, changes := newTestSession(ft, nil)
	assert.False(t, s.Connect())
	assert.Equal(t, Discovered, s.ServerState())
	assert.Equal(t, link.SocketFail, s.ConnectionState())
	assert.Empty(t, *changes)

	s.RequestConnected()
	assert.Equal(t, Discovered, s.TargetState())
}

func TestReconnectAfterFailure(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventFull}
	s, _ := newTestSession(ft, nil)
	s.RequestConnected()
	s.Update()
	require.Equal(t, Discovered, s.ServerState())

	ft.reply = transport.EventAccepted
	s.RequestConnected()
	s.Update()
	assert.Equal(t, Connected, s.ServerState())
	assert.Equal(t, 2, ft.connects)
}

func TestCloseIsSilent(t *testing.T) {
	ft := &fakeTransport{reply: transport.EventAccepted}
	mp := &manualPlugins{}
	s, changes := newTestSession(ft, mp)
	s.RequestConnected()
	s.Update()
	n := len(*changes)

	s.Close()
	s.Close()
	assert.Len(t, *changes, n)
	assert.Equal(t, 1, ft.shutdowns)
	assert.Equal(t, 1, mp.destroyed)
	assert.False(t, s.Connect())
}

func TestOfflineSession(t *testing.T) {
	s := NewOfflineServerSession(testUser, Environment{})
	assert.Equal(t, common.Origin, s.GridCell())
	assert.True(t, s.ServerIdentity().IsLoopback())
	assert.Equal(t, HalfConnected, s.ServerState())

	s.RequestConnectedActive()
	assert.Equal(t, ConnectedActive, s.ServerState())
	assert.Equal(t, link.Connected, s.ConnectionState())

	s.Disconnect()
	assert.Equal(t, Discovered, s.ServerState())
	assert.Equal(t, link.Disconnected, s.ConnectionState())

	assert.True(t, s.Connect())
	assert.Equal(t, HalfConnected, s.ServerState())
}

func TestOfflineSessionWithPlugins(t *testing.T) {
	mp := &manualPlugins{names: []barrier.UnitID{"world"}}
	s := NewOfflineServerSession(testUser, Environment{Plugins: mp})
	assert.Equal(t, Loading, s.ServerState())
	s.RequestConnectedActive()
	mp.done("world")
	assert.Equal(t, ConnectedActive, s.ServerState())
}

func TestUserIdentityHidesPassword(t *testing.T) {
	assert.NotContains(t, testUser.String(), "s3cret")
	assert.NotContains(t, fmt.Sprintf("%#v", testUser), "s3cret")
	assert.NotContains(t, fmt.Sprintf("%v", testUser), "s3cret")
	assert.Equal(t, "s3cret", testUser.Credentials().Password)
}

func TestServerStateLadder(t *testing.T) {
	assert.True(t, ConnectedActive.AtLeast(Connected))
	assert.True(t, Loading.AtLeast(Loading))
	assert.False(t, Connecting.AtLeast(Loading))
	assert.True(t, HalfConnected.IsLoaded())
	assert.False(t, Loading.IsLoaded())
	assert.Equal(t, "ConnectedActive", ConnectedActive.String())
}
