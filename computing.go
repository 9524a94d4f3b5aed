package incr

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/AnatoleLucet/incr/internal"
)

// computing is the skeleton shared by every operator: it owns the source subscriptions,
// routes change records to the operator handlers and guards them.
type computing struct {
	engine *Engine
	node   *internal.Node

	operator string
	id       uuid.UUID
	log      logr.Logger

	// stack that created the computation, if captured
	stack string

	active   atomic.Bool
	handling bool

	subs []Subscription
}

type upstream interface {
	computationNode() *internal.Node
}

// wire adds the computation to the engine graph. attach materializes the output
// from the current sources and subscribes, detach releases everything attach acquired.
func (c *computing) wire(e *Engine, operator string, attach, detach func(), sources ...any) {
	c.engine = e
	c.operator = operator
	c.id = uuid.New()
	c.log = e.log.WithName(operator).WithValues("id", c.id.String())

	if e.cfg.CaptureInstantiationStack {
		c.stack = string(debug.Stack())
	}

	var deps []*internal.Node
	for _, src := range sources {
		if up, ok := src.(upstream); ok {
			deps = append(deps, up.computationNode())
		}
	}

	c.node = internal.NewNode(c.String(), func() { c.activate(attach, detach) }, func() { c.deactivate(detach) }, deps...)
}

func (c *computing) computationNode() *internal.Node {
	return c.node
}

func (c *computing) String() string {
	return fmt.Sprintf("%s(%s)", c.operator, c.id.String()[:8])
}

func (c *computing) Active() bool {
	return c.active.Load()
}

// InstantiationStack returns the stack that created the computation.
// It is empty unless Config.CaptureInstantiationStack is set.
func (c *computing) InstantiationStack() string {
	return c.stack
}

func (c *computing) activate(attach, detach func()) {
	ok := false
	defer func() {
		if !ok {
			detach()
			c.detachAll()
		}
	}()

	attach()
	ok = true

	c.active.Store(true)
	c.engine.metrics.activated(c.operator, 1)
	c.log.V(1).Info("activated")
}

func (c *computing) deactivate(detach func()) {
	if !c.active.CompareAndSwap(true, false) {
		return
	}

	detach()
	c.detachAll()

	c.engine.metrics.activated(c.operator, -1)
	c.log.V(1).Info("deactivated")
}

func (c *computing) attachTo(sub Subscription) {
	c.subs = append(c.subs, sub)
}

func (c *computing) detachAll() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}

// handle runs one change handler. Records arriving after teardown are dropped.
func (c *computing) handle(kind string, fn func()) {
	if !c.active.Load() {
		return
	}

	if d := c.engine.dispatcher; d != nil && !d.InScope() {
		panic(fmt.Errorf("%w: %s received %s", ErrOutsideDispatcher, c, kind))
	}

	if c.handling {
		panic(fmt.Errorf("%w: %s received %s while applying another change", ErrReentrant, c, kind))
	}
	c.handling = true
	defer func() { c.handling = false }()

	c.engine.metrics.change(c.operator, kind)
	c.log.V(2).Info("change", "kind", kind)

	fn()
}

// violation fails fast on a change record that contradicts the tracked state.
func (c *computing) violation(op, format string, args ...any) {
	err := c.inconsistency(op, format, args...)

	c.engine.metrics.violation(c.operator)
	c.log.Error(err, "internal consistency violation")

	panic(err)
}

func (c *computing) inconsistency(op, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{
		Computation: c.String(),
		Op:          op,
		Reason:      fmt.Sprintf(format, args...),
	}
}

// validatable reports the usage errors that forbid a consistency check.
func (c *computing) validatable() error {
	if !c.active.Load() {
		return fmt.Errorf("%w: %s", ErrInactive, c)
	}

	if c.handling {
		return fmt.Errorf("%w: %s is applying a change", ErrReentrant, c)
	}

	return nil
}

func (c *computing) userCode(fn func()) {
	c.engine.userCode(c.String(), fn)
}
