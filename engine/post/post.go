package post

import (
	"sync"

	"github.com/xiaonanln/gwgrid/engine/gwutils"
)

// PostCallback is the type of functions to be posted
type PostCallback func()

// Queue holds callbacks to be executed later on the tick routine
type Queue struct {
	lock      sync.Mutex
	callbacks []PostCallback
}

// NewQueue creates an empty post queue
func NewQueue() *Queue {
	return &Queue{}
}

// Post a callback which will be executed when the owner of the queue ticks
//
// Post might be called from other goroutine, so we use a lock to protect the data
func (q *Queue) Post(f PostCallback) {
	q.lock.Lock()
	q.callbacks = append(q.callbacks, f)
	q.lock.Unlock()
}

// Len returns the number of callbacks waiting
func (q *Queue) Len() int {
	q.lock.Lock()
	n := len(q.callbacks)
	q.lock.Unlock()
	return n
}

// Tick runs all posted functions, including the ones posted while ticking
func (q *Queue) Tick() {
	for { // loop until there is no callbacks posted anymore
		q.lock.Lock() // lock to check number of callbacks
		if len(q.callbacks) == 0 {
			q.lock.Unlock()
			break // all callbacked executed, quit
		}
		// switch callbacks in locked section
		callbacksCopy := q.callbacks
		q.callbacks = make([]PostCallback, 0, len(callbacksCopy))
		q.lock.Unlock()

		for _, f := range callbacksCopy {
			gwutils.RunPanicless(f)
		}
	}
}

// TickOnce runs only the callbacks posted before this call; callbacks posted meanwhile wait for the next tick
func (q *Queue) TickOnce() {
	q.lock.Lock()
	callbacksCopy := q.callbacks
	q.callbacks = nil
	q.lock.Unlock()

	for _, f := range callbacksCopy {
		gwutils.RunPanicless(f)
	}
}
