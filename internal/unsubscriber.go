package internal

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Unsubscriber runs deferred teardown work on a bounded pool of background workers.
// Workers are started on the first Enqueue.
type Unsubscriber struct {
	workers int
	work    chan func()

	pending atomic.Int64
	onDepth func(int64)

	g     errgroup.Group
	start sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewUnsubscriber(workers, backlog int, onDepth func(int64)) *Unsubscriber {
	if workers < 1 {
		workers = 1
	}
	if backlog < 0 {
		backlog = 0
	}

	return &Unsubscriber{
		workers: workers,
		work:    make(chan func(), backlog),
		onDepth: onDepth,
	}
}

// Enqueue hands fn to a worker. It blocks only while the backlog is full
// and returns false once the unsubscriber is closed.
func (u *Unsubscriber) Enqueue(fn func()) bool {
	return u.enqueue(fn, true)
}

// TryEnqueue is Enqueue without blocking: it also returns false when the backlog is full
// and no worker is ready to take fn.
func (u *Unsubscriber) TryEnqueue(fn func()) bool {
	return u.enqueue(fn, false)
}

func (u *Unsubscriber) enqueue(fn func(), wait bool) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if u.closed {
		return false
	}

	u.start.Do(func() {
		for i := 0; i < u.workers; i++ {
			u.g.Go(u.loop)
		}
	})

	u.depth(u.pending.Add(1))
	if wait {
		u.work <- fn
		return true
	}

	select {
	case u.work <- fn:
		return true
	default:
		u.depth(u.pending.Add(-1))
		return false
	}
}

func (u *Unsubscriber) Pending() int64 {
	return u.pending.Load()
}

// Close stops accepting work, waits for the queued work to finish and
// returns the first panic raised by a work item, if any.
func (u *Unsubscriber) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	close(u.work)
	u.mu.Unlock()

	return u.g.Wait()
}

func (u *Unsubscriber) loop() (err error) {
	for fn := range u.work {
		if runErr := u.run(fn); runErr != nil && err == nil {
			err = runErr
		}
	}

	return err
}

func (u *Unsubscriber) run(fn func()) (err error) {
	defer func() {
		u.depth(u.pending.Add(-1))

		if r := recover(); r != nil {
			err = fmt.Errorf("deferred unsubscription panicked: %v", r)
		}
	}()

	fn()
	return nil
}

func (u *Unsubscriber) depth(n int64) {
	if u.onDepth != nil {
		u.onDepth(n)
	}
}
