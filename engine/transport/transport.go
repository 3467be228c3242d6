// Package transport provides the raw client transports used by connection links.
//
// A Transport never calls back into its owner. Network goroutines only queue
// events, and the owner drains them with Poll on its own tick.
package transport

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/proto"
)

// EventKind is the kind of transport events
type EventKind int

const (
	// EventAccepted is queued when the server accepted the connect request
	EventAccepted EventKind = iota
	// EventAttemptFailed is queued when the connection attempt failed before being accepted
	EventAttemptFailed
	// EventBanned is queued when the server rejected the user as banned
	EventBanned
	// EventFull is queued when the server rejected the user for being full
	EventFull
	// EventAuthFailed is queued when the server rejected the credentials
	EventAuthFailed
	// EventDenied is queued when the server rejected the request for any other reason
	EventDenied
	// EventClosed is queued when the server closed the connection gracefully
	EventClosed
	// EventLost is queued when an accepted connection broke
	EventLost
	// EventPacket is queued for each payload message from the server
	EventPacket
)

var eventKindNames = [...]string{
	EventAccepted:      "accepted",
	EventAttemptFailed: "attempt-failed",
	EventBanned:        "banned",
	EventFull:          "full",
	EventAuthFailed:    "auth-failed",
	EventDenied:        "denied",
	EventClosed:        "closed",
	EventLost:          "lost",
	EventPacket:        "packet",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

// Event is what a transport reports to its owner
type Event struct {
	Kind       EventKind
	ServerName string
	Message    string
	MsgType    proto.MsgType
	Payload    []byte
	Err        error
}

func (ev Event) String() string {
	switch ev.Kind {
	case EventPacket:
		return fmt.Sprintf("Event<%s %s %d bytes>", ev.Kind, ev.MsgType, len(ev.Payload))
	case EventAccepted:
		return fmt.Sprintf("Event<%s by %s>", ev.Kind, ev.ServerName)
	}
	if ev.Err != nil {
		return fmt.Sprintf("Event<%s: %v>", ev.Kind, ev.Err)
	}
	return fmt.Sprintf("Event<%s %s>", ev.Kind, ev.Message)
}

// Transport is a raw client connection to one server
type Transport interface {
	// Startup prepares the transport, it fails when the transport can not be used at all
	Startup() error
	// Connect starts connecting to the server, it only fails on bad parameters
	Connect(address string, port int) error
	// Shutdown closes the connection and discards pending events, it is idempotent
	Shutdown()
	// Poll returns the events queued since the last Poll
	Poll() []Event
	// Send sends one payload message to the server
	Send(msgtype proto.MsgType, payload []byte) error
}

// Credentials are sent to the server in the connect request
type Credentials struct {
	Nickname string
	Username string
	Password string
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s/%s", c.Nickname, c.Username)
}

// GoString hides the password from %#v
func (c Credentials) GoString() string {
	return fmt.Sprintf("transport.Credentials{Nickname:%q, Username:%q}", c.Nickname, c.Username)
}

// Factory creates a new transport for each server session
type Factory func(cred Credentials) Transport
