package internal

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

var (
	ErrDisposed = errors.New("owner is disposed")
	ErrBusy     = errors.New("graph is being updated by the calling goroutine")
)

// Graph guards the reference counts shared by every owner of one computation graph.
// Activation and deactivation callbacks run with the graph held by the calling goroutine.
type Graph struct {
	mu sync.Mutex

	// goroutine holding mu, 0 when free
	holder atomic.Int64

	// disposals requested by the holder from inside a callback, run on release
	deferred []func()
}

func NewGraph() *Graph {
	return &Graph{}
}

// Held reports whether the calling goroutine is activating or deactivating nodes.
func (g *Graph) Held() bool {
	return g.holder.Load() == GoroutineID()
}

func (g *Graph) lock() {
	g.mu.Lock()
	g.holder.Store(GoroutineID())
}

func (g *Graph) unlock() {
	deferred := g.deferred
	g.deferred = nil

	g.holder.Store(0)
	g.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}
}

// view runs fn under the graph lock, or right away when the caller already holds it.
func (g *Graph) view(fn func()) {
	if g.Held() {
		fn()
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	fn()
}

// Refs returns how many live owners currently retain n.
func (g *Graph) Refs(n *Node) (refs int) {
	g.view(func() { refs = n.refs })
	return refs
}

// Owner keeps a set of nodes alive until it is disposed.
type Owner struct {
	graph *Graph

	// retained nodes in activation order, dependencies first
	retained []*Node
	seen     map[*Node]struct{}

	// cleanup functions to be called when the owner is disposed
	cleanups []func()

	disposed bool
}

func (g *Graph) NewOwner() *Owner {
	return &Owner{
		graph: g,
		seen:  make(map[*Node]struct{}),
	}
}

// Retain activates n and its upstream nodes that no owner retains yet.
// It fails with ErrDisposed on a disposed owner and with ErrBusy when called
// from an activation or deactivation callback.
func (o *Owner) Retain(n *Node) error {
	if o.graph.Held() {
		return ErrBusy
	}

	o.graph.lock()
	defer o.graph.unlock()

	if o.disposed {
		return ErrDisposed
	}

	order := n.upstream(func(node *Node) bool {
		_, ok := o.seen[node]
		return ok
	})

	for _, node := range order {
		if node.refs == 0 && node.activate != nil {
			node.activate()
		}
		node.refs++

		o.seen[node] = struct{}{}
		o.retained = append(o.retained, node)
	}

	return nil
}

// Retains reports whether n is kept alive by this owner.
func (o *Owner) Retains(n *Node) (ok bool) {
	o.graph.view(func() { _, ok = o.seen[n] })
	return ok
}

// Dispose releases every retained node, downstream nodes first, and deactivates
// the ones no other owner retains. Calling it more than once is a no-op.
// Called from an activation or deactivation callback, it runs once the graph is released.
func (o *Owner) Dispose() {
	if o.graph.Held() {
		o.graph.deferred = append(o.graph.deferred, o.Dispose)
		return
	}

	o.graph.lock()
	if o.disposed {
		o.graph.unlock()
		return
	}
	o.disposed = true

	retained := o.retained
	o.retained = nil
	o.seen = nil

	for _, node := range slices.Backward(retained) {
		node.refs--
		if node.refs == 0 && node.deactivate != nil {
			node.deactivate()
		}
	}

	cleanups := o.cleanups
	o.cleanups = nil
	o.graph.unlock()

	for i := 0; i < len(cleanups); i++ {
		cleanups[i]()
	}
}

func (o *Owner) Disposed() (disposed bool) {
	o.graph.view(func() { disposed = o.disposed })
	return disposed
}

// OnCleanup registers fn to run once the owner is disposed.
// On an already disposed owner fn runs right away.
func (o *Owner) OnCleanup(fn func()) {
	disposed := false
	o.graph.view(func() {
		disposed = o.disposed
		if !disposed {
			o.cleanups = append(o.cleanups, fn)
		}
	})

	if disposed {
		fn()
	}
}
