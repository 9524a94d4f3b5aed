package incr

import (
	"errors"
	"fmt"

	"github.com/AnatoleLucet/incr/internal"
)

// Consumer keeps the computations it consumes, and everything they read from, subscribed.
// A computation shared by several consumers stays active until the last of them is disposed.
type Consumer struct {
	engine *Engine
	owner  *internal.Owner
}

func (e *Engine) NewConsumer() *Consumer {
	return &Consumer{
		engine: e,
		owner:  e.graph.NewOwner(),
	}
}

// For consumes c and returns it. It panics if consumer is disposed.
func For[C Computation](c C, consumer *Consumer) C {
	if err := consumer.Consume(c); err != nil {
		panic(err)
	}

	return c
}

// Consume activates the computations and their upstream computations, upstream first.
// Consuming a computation twice is a no-op. Consuming from a change subscriber while
// computations are being activated or torn down fails with ErrReentrant.
func (c *Consumer) Consume(computations ...Computation) error {
	var err error

	enterErr := c.engine.enter(func() {
		for _, comp := range computations {
			switch retainErr := c.owner.Retain(comp.computationNode()); {
			case errors.Is(retainErr, internal.ErrDisposed):
				err = fmt.Errorf("%w: cannot consume %v", ErrConsumerDisposed, comp)
				return
			case errors.Is(retainErr, internal.ErrBusy):
				err = fmt.Errorf("%w: cannot consume %v while computations are being activated or torn down", ErrReentrant, comp)
				return
			}
		}
	})
	if enterErr != nil {
		return enterErr
	}

	return err
}

// Consumes reports whether the consumer keeps comp alive.
func (c *Consumer) Consumes(comp Computation) bool {
	return c.owner.Retains(comp.computationNode())
}

// Dispose tears down every consumed computation no other consumer retains,
// downstream computations first. It is synchronous and idempotent, except when called
// from a change subscriber while computations are being activated or torn down: the
// teardown then runs as soon as that work completes.
func (c *Consumer) Dispose() {
	if err := c.engine.enter(c.owner.Dispose); err != nil {
		// the dispatcher is closed, nothing else can be running on it
		c.owner.Dispose()
	}
}

// DisposeAsync hands the teardown to the engine's background workers and returns.
// It falls back to Dispose once the engine is closed, and inside the dispatcher or a
// change subscriber when every worker is busy, since those workers wait for the caller.
func (c *Consumer) DisposeAsync() {
	u := c.engine.unsubscriber

	var queued bool
	if c.engine.busy() {
		queued = u.TryEnqueue(c.Dispose)
	} else {
		queued = u.Enqueue(c.Dispose)
	}

	if !queued {
		c.Dispose()
	}
}

func (c *Consumer) Disposed() bool {
	return c.owner.Disposed()
}

// OnDispose registers fn to run once the consumer is disposed.
func (c *Consumer) OnDispose(fn func()) {
	c.owner.OnCleanup(fn)
}
