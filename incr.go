// Package incr maintains derived collections and values that stay consistent with
// mutable source collections. Every structural change on a source is applied to the
// derived result as an equivalent patch, and the result emits the same change records
// so computations can be chained.
package incr

import (
	"iter"

	"github.com/AnatoleLucet/incr/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// Subscription is a registration that can be released.
// Unsubscribe is idempotent and safe to call from any goroutine.
type Subscription interface {
	Unsubscribe()
}

// Source is an ordered collection that reports its structural changes.
// Computations are sources too, so they compose.
type Source[T any] interface {
	// Len returns the current number of items.
	Len() int
	// At returns the item at index.
	At(index int) T
	// All enumerates a snapshot of the current items in order.
	All() iter.Seq2[int, T]
	// Subscribe registers fn for every change record, in emission order.
	Subscribe(fn func(Change[T])) Subscription
}

// Computation is a derived value kept up to date by the engine.
type Computation interface {
	// Active reports whether the computation is subscribed to its sources.
	Active() bool
	// ValidateInternalConsistency recomputes the maintained state by brute force
	// and compares it with the incremental one.
	ValidateInternalConsistency() error

	computationNode() *internal.Node
}

func snapshot[T any](s Source[T]) []T {
	items := make([]T, 0, s.Len())
	for _, item := range s.All() {
		items = append(items, item)
	}

	return items
}

func subscribe[T any](emitter *internal.Emitter, fn func(Change[T])) Subscription {
	return emitter.Subscribe(func(v any) { fn(as[Change[T]](v)) })
}
