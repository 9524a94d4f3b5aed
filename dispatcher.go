package incr

import (
	"runtime/debug"
	"sync/atomic"

	"github.com/AnatoleLucet/incr/internal"
)

// Dispatcher serializes change application and user callbacks of a computation graph
// onto one logical execution context. Every mutation of a source feeding the graph
// must happen inside Enter.
type Dispatcher struct {
	rt *internal.Runtime

	captureInvocation bool

	closed atomic.Bool
}

// Invocation describes the posted work a dispatcher is running.
type Invocation struct {
	InstantiationStack string
	ExecutionStack     string
}

func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		rt:                internal.NewRuntime(cfg.CaptureExecutionStack),
		captureInvocation: cfg.CaptureInvocationStack,
	}
}

// Enter runs fn inside the dispatcher context. A goroutine already inside runs fn inline,
// other goroutines wait for the context to be released.
func (d *Dispatcher) Enter(fn func()) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}

	d.rt.Enter(fn)
	return nil
}

// Post schedules fn to run after the current outermost Enter completes.
// Outside the context fn runs right away.
func (d *Dispatcher) Post(fn func()) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}

	inv := &internal.Invocation{Fn: fn}
	if d.captureInvocation {
		inv.InstantiationStack = debug.Stack()
	}

	d.rt.Post(inv)
	return nil
}

// InScope reports whether the calling goroutine is inside the dispatcher context.
func (d *Dispatcher) InScope() bool {
	return d.rt.Held()
}

// CurrentInvocation returns the posted work being run by the calling goroutine.
func (d *Dispatcher) CurrentInvocation() (Invocation, bool) {
	if !d.InScope() {
		return Invocation{}, false
	}

	inv := d.rt.Current()
	if inv == nil {
		return Invocation{}, false
	}

	return Invocation{
		InstantiationStack: string(inv.InstantiationStack),
		ExecutionStack:     string(inv.ExecutionStack),
	}, true
}

// Close makes later Enter and Post calls fail with ErrDispatcherClosed.
func (d *Dispatcher) Close() {
	d.closed.Store(true)
}
