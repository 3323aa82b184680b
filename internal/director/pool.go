package director

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/alitto/pond/v2"
)

// pool is a fixed-size worker pool with an unbounded queue, backed by pond.
//
// Submit never blocks. Close stops intake; queued tasks still run.
// AwaitTermination waits with a bound but never cancels running tasks:
// anything still going when the bound elapses keeps running unobserved.
type pool struct {
	workers pond.Pool
	size    int

	closed  atomic.Bool
	pending atomic.Int64 // queued plus running

	stopOnce sync.Once
	stopped  pond.Task // set by Close
}

// newPool starts a pool of size workers. Sizes below one are raised to one.
func newPool(size int) *pool {
	size = max(1, size)
	return &pool{
		workers: pond.NewPool(size),
		size:    size,
	}
}

// Submit queues task. It returns ErrPoolClosed after Close.
func (p *pool) Submit(task func()) error {
	if p.closed.Load() {
		return errors.ErrPoolClosed
	}
	p.pending.Add(1)
	err := p.workers.Go(func() {
		defer p.pending.Add(-1)
		task()
	})
	if err != nil {
		p.pending.Add(-1)
		if errors.Is(err, pond.ErrPoolStopped) {
			return errors.ErrPoolClosed
		}
		return errors.Wrap(err, "submit install task")
	}
	return nil
}

// Close stops the pool from accepting work. Idempotent.
func (p *pool) Close() {
	p.stopOnce.Do(func() {
		p.stopped = p.workers.Stop()
		p.closed.Store(true)
	})
}

// AwaitTermination blocks until every submitted task has finished after
// Close, the timeout elapses, or ctx is done. It reports whether the pool
// drained. A non-positive timeout only checks the current state.
func (p *pool) AwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	if p.closed.Load() && p.pending.Load() == 0 {
		return true, nil
	}
	if timeout <= 0 {
		return false, ctx.Err()
	}

	// Without Close the pool never drains; only the bound or ctx ends the wait.
	var done <-chan struct{}
	if p.closed.Load() {
		done = p.stopped.Done()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending returns the number of tasks queued or running.
func (p *pool) Pending() int {
	return int(p.pending.Load())
}

// Size returns the number of workers.
func (p *pool) Size() int {
	return p.size
}
