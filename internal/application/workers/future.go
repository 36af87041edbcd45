package workers

import (
	"context"
	"sync"
)

// Future is the handle returned by Submit. It is completed exactly once,
// when the task returns, panics, or is discarded by a shutdown.
type Future struct {
	result interface{}
	err    error
	done   chan struct{}
	once   sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Wait blocks until the task completes or ctx is done. Giving up on the
// wait does not stop the task; it keeps its worker until it returns.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDone checks if the task has completed
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future) complete(result interface{}, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}
