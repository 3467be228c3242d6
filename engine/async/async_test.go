package async

import (
	"sync"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/post"
)

func TestAppendAsyncJob(t *testing.T) {
	q := post.NewQueue()
	p := NewPool(func(f func()) { q.Post(f) })
	defer p.Shutdown()

	var wait sync.WaitGroup
	wait.Add(1)
	var got interface{}
	ok := p.AppendAsyncJob("1", func() (interface{}, error) {
		return 1, nil
	}, func(res interface{}, err error) {
		got = res
		wait.Done()
	})
	assert.T(t, ok)

	done := make(chan struct{})
	go func() {
		wait.Wait()
		close(done)
	}()
	deadline := time.After(time.Second * 5)
	for {
		q.Tick()
		select {
		case <-done:
			assert.Equal(t, 1, got)
			return
		case <-deadline:
			t.Fatalf("callback not called")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestGroupOrderAndPanic(t *testing.T) {
	var lock sync.Mutex
	var results []interface{}
	var errs []error
	p := NewPool(func(f func()) {
		lock.Lock()
		f()
		lock.Unlock()
	})

	for i := 0; i < 5; i++ {
		i := i
		p.AppendAsyncJob("g", func() (interface{}, error) {
			if i == 2 {
				panic("boom")
			}
			if i == 3 {
				return nil, errors.New("failed")
			}
			return i, nil
		}, func(res interface{}, err error) {
			results = append(results, res)
			errs = append(errs, err)
		})
	}
	p.Shutdown()

	assert.Equal(t, []interface{}{0, 1, nil, nil, 4}, results)
	assert.T(t, errs[2] == nil)
	assert.T(t, errs[3] != nil)
	assert.T(t, !p.AppendAsyncJob("g", func() (interface{}, error) { return nil, nil }, nil))
}
