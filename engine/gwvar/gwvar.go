// Package gwvar publishes process state through expvar, served at /debug/vars by the pprof server.
package gwvar

import "expvar"

// Bool is a published boolean
type Bool struct {
	val *expvar.Int
}

// NewBool publishes a boolean named name
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the boolean value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the boolean value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	// IsServing is true while gridserver accepts clients
	IsServing = NewBool("IsServing")
	// NumClients is the number of clients of gridserver
	NumClients = expvar.NewInt("NumClients")
	// NumSessions is the number of sessions in the gridclient registry
	NumSessions = expvar.NewInt("NumSessions")
	// ActiveCell is the cell of the gridclient active session
	ActiveCell = expvar.NewString("ActiveCell")
)
