// Package barrier implements the loading barrier that gates a server session
// until all of its plugins report loaded.
package barrier

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
)

// UnitID identifies one unit of work the barrier waits for
type UnitID string

// LoadingBarrier fires once per cycle when every unit of the cycle completed.
// A cycle starts with Begin. Observers subscribing after the cycle fired are
// called at once.
type LoadingBarrier struct {
	pending   common.StringSet
	completed common.StringSet
	begun     bool
	fired     bool
	cycle     int
	observers common.ObserverList
}

// New creates a barrier that has not begun any cycle
func New() *LoadingBarrier {
	return &LoadingBarrier{
		pending:   common.StringSet{},
		completed: common.StringSet{},
	}
}

func (b *LoadingBarrier) String() string {
	return fmt.Sprintf("LoadingBarrier<cycle=%d pending=%d fired=%v>", b.cycle, len(b.pending), b.fired)
}

// Begin starts a new cycle waiting for units; an empty cycle fires at once
func (b *LoadingBarrier) Begin(units []UnitID) {
	b.pending = common.StringSet{}
	for _, u := range units {
		b.pending.Add(string(u))
	}
	b.completed = common.StringSet{}
	b.begun = true
	b.fired = false
	b.cycle += 1

	b.checkFire()
}

// UnitCompleted marks the unit done; unknown and already completed units are ignored
func (b *LoadingBarrier) UnitCompleted(id UnitID) {
	if !b.begun || b.fired {
		return
	}
	if !b.pending.Remove(string(id)) {
		return
	}

	b.completed.Add(string(id))
	b.checkFire()
}

// IsComplete returns if the current cycle fired
func (b *LoadingBarrier) IsComplete() bool {
	return b.fired
}

// Pending returns the units still waited for, sorted
func (b *LoadingBarrier) Pending() []UnitID {
	names := b.pending.ToList()
	units := make([]UnitID, len(names))
	for i, name := range names {
		units[i] = UnitID(name)
	}
	return units
}

// Reset abandons the current cycle without firing
func (b *LoadingBarrier) Reset() {
	b.pending = common.StringSet{}
	b.completed = common.StringSet{}
	b.begun = false
	b.fired = false
}

// OnComplete registers fn to be called when a cycle fires.
// If the current cycle already fired, fn is called before OnComplete returns.
func (b *LoadingBarrier) OnComplete(fn func()) common.Subscription {
	sub := b.observers.Add(fn)
	if b.fired {
		gwutils.RunPanicless(fn)
	}
	return sub
}

func (b *LoadingBarrier) checkFire() {
	if b.fired || len(b.pending) > 0 {
		return
	}

	b.fired = true
	cycle := b.cycle
	b.observers.Each(func(fn interface{}) {
		if b.cycle != cycle {
			// an observer started a new cycle
			return
		}
		gwutils.RunPanicless(fn.(func()))
	})
}
