package session

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/link"
)

// OfflineServerSession is the session of the origin cell when playing without servers
type OfflineServerSession struct {
	sessionBase
}

// NewOfflineServerSession creates an offline session at the origin cell; it is Loading or loaded when returned
func NewOfflineServerSession(user UserIdentity, env Environment) *OfflineServerSession {
	s := &OfflineServerSession{}
	s.init(s, common.Origin, LoopbackIdentity, user, env, Offline)
	s.Connect()
	return s
}

func (s *OfflineServerSession) String() string {
	return fmt.Sprintf("OfflineServerSession<%s %s>", s.cell, s.state)
}

// ConnectionState reports Connected once the session started
func (s *OfflineServerSession) ConnectionState() link.ConnectionState {
	if s.state.AtLeast(Connecting) {
		return link.Connected
	}
	return link.Disconnected
}

// Connect enters Loading at once since there is no transport
func (s *OfflineServerSession) Connect() bool {
	if s.closed {
		return false
	}
	if s.state.AtLeast(Connecting) {
		return true
	}

	s.setState(Connecting)
	if s.state == Connecting {
		s.enterLoading()
	}
	return true
}

// Disconnect clears the local session state
func (s *OfflineServerSession) Disconnect() {
	if s.closed {
		return
	}
	s.resetLocal()
}

// Update does nothing, offline sessions have no link to poll
func (s *OfflineServerSession) Update() {
}

// Close releases plugins
func (s *OfflineServerSession) Close() {
	if s.closed {
		return
	}
	s.close()
}
