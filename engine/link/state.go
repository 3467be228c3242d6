package link

import "fmt"

// ConnectionState is the fine-grained state of a link
type ConnectionState int

const (
	// SocketFail means the transport could not be started
	SocketFail ConnectionState = iota
	// ConnFail means the connection attempt failed
	ConnFail
	// Banned means the server banned the user
	Banned
	// Full means the server is full
	Full
	// AuthFail means the server rejected the credentials
	AuthFail
	// Denied means the server rejected the connection for another reason
	Denied
	// ConnLost means an established connection broke
	ConnLost
	// Disconnected means the link is down without failure
	Disconnected
	// Connecting means a connection attempt is in flight
	Connecting
	// Authenticating means the server accepted the connection and the link is being set up
	Authenticating
	// Connected means the link is up
	Connected
)

// StateClass groups connection states
type StateClass int

const (
	// ClassFailed is the class of failure states
	ClassFailed StateClass = iota
	// ClassDisconnected is the class of Disconnected
	ClassDisconnected
	// ClassConnecting is the class of Connecting and Authenticating
	ClassConnecting
	// ClassConnected is the class of Connected
	ClassConnected
)

var stateInfos = [...]struct {
	name  string
	class StateClass
}{
	SocketFail:     {"SocketFail", ClassFailed},
	ConnFail:       {"ConnFail", ClassFailed},
	Banned:         {"Banned", ClassFailed},
	Full:           {"Full", ClassFailed},
	AuthFail:       {"AuthFail", ClassFailed},
	Denied:         {"Denied", ClassFailed},
	ConnLost:       {"ConnLost", ClassFailed},
	Disconnected:   {"Disconnected", ClassDisconnected},
	Connecting:     {"Connecting", ClassConnecting},
	Authenticating: {"Authenticating", ClassConnecting},
	Connected:      {"Connected", ClassConnected},
}

// ClassOf returns the class of the state
func ClassOf(state ConnectionState) StateClass {
	if state < 0 || int(state) >= len(stateInfos) {
		return ClassFailed
	}
	return stateInfos[state].class
}

// IsFailed returns if the state is one of the failure states
func (state ConnectionState) IsFailed() bool {
	return ClassOf(state) == ClassFailed
}

func (state ConnectionState) String() string {
	if state < 0 || int(state) >= len(stateInfos) {
		return fmt.Sprintf("ConnectionState(%d)", int(state))
	}
	return stateInfos[state].name
}

func (class StateClass) String() string {
	switch class {
	case ClassFailed:
		return "Failed"
	case ClassDisconnected:
		return "Disconnected"
	case ClassConnecting:
		return "Connecting"
	case ClassConnected:
		return "Connected"
	}
	return fmt.Sprintf("StateClass(%d)", int(class))
}

// ConnectError is returned by Connect when the link could not start connecting
type ConnectError struct {
	State ConnectionState
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed with %s: %v", e.State, e.Err)
}

// Unwrap returns the transport error
func (e *ConnectError) Unwrap() error {
	return e.Err
}
