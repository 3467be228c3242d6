// Package session implements the server sessions of grid cells: the
// per-server ladder from Discovered to ConnectedActive, driven by the
// connection link and the plugin loading barrier.
package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/xiaonanln/gwgrid/engine/barrier"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
	"github.com/xiaonanln/gwgrid/engine/link"
	"github.com/xiaonanln/gwgrid/engine/plugin"
	"github.com/xiaonanln/gwgrid/engine/transport"
)

// ServerSession is either a *RemoteServerSession or an *OfflineServerSession
type ServerSession interface {
	fmt.Stringer

	// ID is unique for each session instance
	ID() uuid.UUID
	// Connect starts connecting, returns false if the connection could not be started
	Connect() bool
	// Disconnect drops the connection and the target, the session lands in Discovered
	Disconnect()
	RequestHalfConnected()
	RequestConnected()
	RequestConnectedActive()
	// Demote lowers a loaded session to target without reconnecting, never below HalfConnected
	Demote(target ServerState)

	GridCell() common.GridCell
	ServerIdentity() ServerIdentity
	ServerName() string
	UserIdentity() UserIdentity
	ServerState() ServerState
	TargetState() ServerState
	ConnectionState() link.ConnectionState
	// PendingPlugins returns the plugins the session is still loading
	PendingPlugins() []barrier.UnitID

	SubscribeStateChanged(fn StateChangedFunc) common.Subscription
	// SubscribeReady calls fn when plugins finished loading, at once if they already did
	SubscribeReady(fn func()) common.Subscription

	// Update is called once per tick by the owner
	Update()
	// Close releases the connection and plugins; only the owning registry calls it
	Close()

	isServerSession()
}

// Environment holds the collaborators of server sessions
type Environment struct {
	Transports transport.Factory
	Plugins    plugin.Factory
}

type sessionBase struct {
	self     ServerSession
	id       uuid.UUID
	cell     common.GridCell
	identity ServerIdentity
	user     UserIdentity
	env      Environment

	state   ServerState
	target  ServerState
	barrier *barrier.LoadingBarrier
	plugins plugin.Manager
	closed  bool

	observers common.ObserverList
}

func (s *sessionBase) init(self ServerSession, cell common.GridCell, identity ServerIdentity, user UserIdentity, env Environment, initial ServerState) {
	s.self = self
	s.id = uuid.New()
	s.cell = cell
	s.identity = identity
	s.user = user
	s.env = env
	s.state = initial
	s.target = initial
	s.barrier = barrier.New()
	s.barrier.OnComplete(s.onPluginsLoaded)
}

func (s *sessionBase) isServerSession() {}

func (s *sessionBase) ID() uuid.UUID {
	return s.id
}

func (s *sessionBase) GridCell() common.GridCell {
	return s.cell
}

func (s *sessionBase) ServerIdentity() ServerIdentity {
	return s.identity
}

func (s *sessionBase) ServerName() string {
	return s.identity.Name
}

func (s *sessionBase) UserIdentity() UserIdentity {
	return s.user
}

func (s *sessionBase) ServerState() ServerState {
	return s.state
}

func (s *sessionBase) TargetState() ServerState {
	return s.target
}

func (s *sessionBase) PendingPlugins() []barrier.UnitID {
	return s.barrier.Pending()
}

func (s *sessionBase) SubscribeStateChanged(fn StateChangedFunc) common.Subscription {
	return s.observers.Add(fn)
}

func (s *sessionBase) SubscribeReady(fn func()) common.Subscription {
	return s.barrier.OnComplete(fn)
}

func (s *sessionBase) RequestHalfConnected() {
	s.request(HalfConnected)
}

func (s *sessionBase) RequestConnected() {
	s.request(Connected)
}

func (s *sessionBase) RequestConnectedActive() {
	s.request(ConnectedActive)
}

func (s *sessionBase) request(target ServerState) {
	if s.closed || s.state.AtLeast(target) {
		return
	}

	// requests only raise the target, Demote and Disconnect lower it
	if target > s.target {
		s.target = target
	}
	switch {
	case s.state <= Discovered:
		s.self.Connect()
	case s.state.IsLoaded():
		s.setState(s.target)
	}
	// Connecting and Loading converge to the target when they finish
}

func (s *sessionBase) Demote(target ServerState) {
	if s.closed {
		return
	}
	if target < HalfConnected {
		target = HalfConnected
	}

	if s.target > target {
		s.target = target
	}
	if s.state.IsLoaded() && s.state > target {
		s.setState(target)
	}
}

// enterLoading seeds the barrier from the plugin set and starts loading
func (s *sessionBase) enterLoading() {
	s.setState(Loading)
	if s.state != Loading {
		// an observer disconnected the session
		return
	}

	var units []barrier.UnitID
	var mgr plugin.Manager
	if s.env.Plugins != nil {
		mgr = s.env.Plugins.NewManager(s.self)
		units = mgr.Plugins()
	}
	s.plugins = mgr
	s.barrier.Begin(units)

	if mgr != nil && s.plugins == mgr {
		mgr.Load(s.barrier.UnitCompleted)
	}
}

func (s *sessionBase) onPluginsLoaded() {
	if s.state != Loading {
		return
	}

	target := s.target
	if target < HalfConnected {
		target = HalfConnected
	}
	s.target = target
	s.setState(target)
}

// resetLocal drops plugins and target and lands in Discovered
func (s *sessionBase) resetLocal() {
	s.target = Discovered
	s.barrier.Reset()
	if s.plugins != nil {
		mgr := s.plugins
		s.plugins = nil
		mgr.Destroy()
	}
	if s.state != Discovered {
		s.setState(Discovered)
	}
}

func (s *sessionBase) close() {
	s.closed = true
	s.barrier.Reset()
	if s.plugins != nil {
		mgr := s.plugins
		s.plugins = nil
		mgr.Destroy()
	}
}

func (s *sessionBase) setState(state ServerState) {
	old := s.state
	if old == state {
		return
	}

	s.state = state
	change := StateChange{
		Session:    s.self,
		Old:        old,
		New:        state,
		Connection: s.self.ConnectionState(),
	}
	if consts.DEBUG_SESSIONS {
		gwlog.Debugf("%s", change)
	}

	s.observers.Each(func(fn interface{}) {
		gwutils.RunPanicless(func() {
			fn.(StateChangedFunc)(change)
		})
	})
}
