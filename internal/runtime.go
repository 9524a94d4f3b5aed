package internal

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Runtime serializes work onto one logical execution context.
// The goroutine holding the context may re-enter it, others block until it is released.
type Runtime struct {
	mu sync.Mutex

	// goroutine holding mu, 0 when free
	holder atomic.Int64

	scope   *Scope
	queue   *Queue
	current *Invocation

	captureExecution bool
}

func NewRuntime(captureExecution bool) *Runtime {
	return &Runtime{
		scope:            NewScope(),
		queue:            NewQueue(),
		captureExecution: captureExecution,
	}
}

// Held reports whether the calling goroutine is inside the context.
func (r *Runtime) Held() bool {
	return r.holder.Load() == GoroutineID()
}

func (r *Runtime) Enter(fn func()) {
	if r.Held() {
		r.scope.Run(fn, nil)
		return
	}

	r.mu.Lock()
	r.holder.Store(GoroutineID())
	defer func() {
		r.holder.Store(0)
		r.mu.Unlock()
	}()

	r.scope.Run(fn, r.drain)
}

// Post runs inv once the outermost scope of the holding goroutine completes,
// or right away if the caller is outside the context.
func (r *Runtime) Post(inv *Invocation) {
	if r.Held() {
		r.queue.Enqueue(inv)
		return
	}

	r.Enter(func() { r.run(inv) })
}

// Current returns the posted invocation being executed, nil if none.
// Only meaningful from inside the context.
func (r *Runtime) Current() *Invocation {
	return r.current
}

func (r *Runtime) Pending() int {
	return r.queue.Len()
}

func (r *Runtime) drain() {
	r.queue.Drain(r.run)
}

func (r *Runtime) run(inv *Invocation) {
	prev := r.current
	r.current = inv
	defer func() { r.current = prev }()

	if r.captureExecution {
		inv.ExecutionStack = debug.Stack()
	}

	inv.Fn()
}
