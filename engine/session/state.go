package session

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/link"
)

// ServerState is the ordered ladder of server session states
type ServerState int

const (
	// Offline is the state of an offline session before it starts
	Offline ServerState = iota
	// Discovered means the server is known but not connected
	Discovered
	// Connecting means the connection is being established
	Connecting
	// Loading means the plugins of the server are being loaded
	Loading
	// HalfConnected means the server is loaded at low fidelity
	HalfConnected
	// Connected means the server is fully connected
	Connected
	// ConnectedActive means the server is the active one
	ConnectedActive
)

var serverStateNames = [...]string{
	Offline:         "Offline",
	Discovered:      "Discovered",
	Connecting:      "Connecting",
	Loading:         "Loading",
	HalfConnected:   "HalfConnected",
	Connected:       "Connected",
	ConnectedActive: "ConnectedActive",
}

func (s ServerState) String() string {
	if s < 0 || int(s) >= len(serverStateNames) {
		return fmt.Sprintf("ServerState(%d)", int(s))
	}
	return serverStateNames[s]
}

// AtLeast returns if s implies every capability of other
func (s ServerState) AtLeast(other ServerState) bool {
	return s >= other
}

// IsLoaded returns if the plugins of the session finished loading
func (s ServerState) IsLoaded() bool {
	return s >= HalfConnected
}

// StateChange describes one transition of a server session
type StateChange struct {
	Session    ServerSession
	Old        ServerState
	New        ServerState
	Connection link.ConnectionState
}

func (c StateChange) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", c.Session, c.Old, c.New, c.Connection)
}

// StateChangedFunc observes server state transitions
type StateChangedFunc func(change StateChange)
