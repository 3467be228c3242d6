package session

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/link"
	"github.com/xiaonanln/gwgrid/engine/proto"
)

// RemoteServerSession is the session of a cell backed by a real server
type RemoteServerSession struct {
	sessionBase
	link    *link.Link
	linkSub common.Subscription
}

// NewRemoteServerSession creates a Discovered session of the server at cell
func NewRemoteServerSession(cell common.GridCell, identity ServerIdentity, user UserIdentity, env Environment) *RemoteServerSession {
	s := &RemoteServerSession{}
	s.init(s, cell, identity, user, env, Discovered)
	s.link = link.New(env.Transports(user.Credentials()), identity.Address, identity.Port)
	s.linkSub = s.link.SubscribeStateChanged(s.onLinkStateChanged)
	return s
}

func (s *RemoteServerSession) String() string {
	return fmt.Sprintf("RemoteServerSession<%s %s %s>", s.cell, s.identity, s.state)
}

// Link returns the connection link of the session
func (s *RemoteServerSession) Link() *link.Link {
	return s.link
}

// ConnectionState returns the fine-grained state of the link
func (s *RemoteServerSession) ConnectionState() link.ConnectionState {
	return s.link.State()
}

// Connect starts connecting the link
func (s *RemoteServerSession) Connect() bool {
	if s.closed {
		return false
	}
	if s.state.AtLeast(Connecting) {
		return true
	}

	if err := s.link.Connect(); err != nil {
		gwlog.Errorf("%s: connect failed: %v", s, err)
		s.target = Discovered
		return false
	}

	s.setState(Connecting)
	return true
}

// Disconnect drops the link and lands in Discovered
func (s *RemoteServerSession) Disconnect() {
	if s.closed {
		return
	}
	s.target = Discovered
	s.link.Disconnect()
	// the link observer resets the session, unless the link was already down
	s.resetLocal()
}

// Send sends a payload message to the server
func (s *RemoteServerSession) Send(msgtype proto.MsgType, payload []byte) error {
	return s.link.Send(msgtype, payload)
}

// SubscribePacket registers fn for payload messages from the server
func (s *RemoteServerSession) SubscribePacket(fn link.PacketFunc) common.Subscription {
	return s.link.SubscribePacket(fn)
}

// Update polls the link
func (s *RemoteServerSession) Update() {
	if s.closed {
		return
	}
	s.link.Poll()
}

// Close releases the link and plugins without notifying observers
func (s *RemoteServerSession) Close() {
	if s.closed {
		return
	}
	s.close()
	s.linkSub.Cancel()
	s.link.Disconnect()
}

func (s *RemoteServerSession) onLinkStateChanged(old link.ConnectionState, new link.ConnectionState) {
	switch link.ClassOf(new) {
	case link.ClassConnected:
		if s.state == Connecting {
			s.enterLoading()
		}
	case link.ClassFailed, link.ClassDisconnected:
		if s.state > Discovered {
			if new.IsFailed() {
				gwlog.Warnf("%s: connection failed with %s", s, new)
			}
			s.resetLocal()
		}
	}
}
