package async

import (
	"sync"

	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
)

// AsyncCallback receives the result of an AsyncRoutine on the poster's routine
type AsyncCallback func(res interface{}, err error)

// AsyncRoutine runs on a job worker goroutine
type AsyncRoutine func() (res interface{}, err error)

// Poster moves a callback onto the logic routine, e.g. Registry.Post
type Poster func(f func())

type asyncJobItem struct {
	routine  AsyncRoutine
	callback AsyncCallback
}

type asyncJobWorker struct {
	jobQueue chan asyncJobItem
}

// Pool runs blocking routines on one worker goroutine per group and posts their results back
type Pool struct {
	post Poster

	workersLock sync.Mutex
	workers     map[string]*asyncJobWorker
	closed      bool
	running     sync.WaitGroup
}

// NewPool creates a Pool delivering callbacks through post
func NewPool(post Poster) *Pool {
	return &Pool{
		post:    post,
		workers: map[string]*asyncJobWorker{},
	}
}

// AppendAsyncJob queues routine in group; jobs of one group run in order.
// It returns false if the pool is shut down or the group queue is full.
func (p *Pool) AppendAsyncJob(group string, routine AsyncRoutine, callback AsyncCallback) bool {
	p.workersLock.Lock()
	defer p.workersLock.Unlock()

	if p.closed {
		return false
	}
	w := p.workers[group]
	if w == nil {
		w = &asyncJobWorker{jobQueue: make(chan asyncJobItem, consts.ASYNC_JOB_QUEUE_MAXLEN)}
		p.workers[group] = w
		p.running.Add(1)
		go p.loop(w)
	}

	select {
	case w.jobQueue <- asyncJobItem{routine, callback}:
		return true
	default:
		gwlog.Warnf("async: job queue of group %s is full", group)
		return false
	}
}

func (p *Pool) loop(w *asyncJobWorker) {
	defer p.running.Done()
	for item := range w.jobQueue {
		var res interface{}
		var err error
		gwutils.RunPanicless(func() {
			res, err = item.routine()
		})
		if item.callback != nil {
			callback := item.callback
			p.post(func() {
				callback(res, err)
			})
		}
	}
}

// Shutdown stops accepting jobs and waits for queued jobs to finish
func (p *Pool) Shutdown() {
	p.workersLock.Lock()
	if p.closed {
		p.workersLock.Unlock()
		return
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.jobQueue)
	}
	p.workers = map[string]*asyncJobWorker{}
	p.workersLock.Unlock()

	p.running.Wait()
}
