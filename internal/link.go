package internal

import (
	"sync"
	"sync/atomic"
)

// Emitter is an ordered list of listeners receiving untyped values.
// Subscribe/Unsubscribe may be called from any goroutine, Emit delivers in subscription order.
type Emitter struct {
	mu sync.Mutex

	head *Listener
	size int
}

// Listener is a single registration on an Emitter.
type Listener struct {
	fn      func(any)
	emitter *Emitter

	removed atomic.Bool

	prev *Listener
	next *Listener
}

func (e *Emitter) Subscribe(fn func(any)) *Listener {
	l := &Listener{fn: fn, emitter: e}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.head == nil {
		e.head = l
		l.prev = l // loop to self
		l.next = nil
	} else {
		tail := e.head.prev
		tail.next = l
		l.prev = tail
		l.next = nil
		e.head.prev = l
	}
	e.size++

	return l
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (l *Listener) Unsubscribe() {
	if l == nil || !l.removed.CompareAndSwap(false, true) {
		return
	}

	e := l.emitter
	e.mu.Lock()
	defer e.mu.Unlock()

	// single listener
	if e.head == l && l.next == nil {
		e.head = nil
		e.size--
		return
	}

	if l == e.head {
		e.head = l.next
		e.head.prev = l.prev
	} else {
		l.prev.next = l.next
		if l.next != nil {
			l.next.prev = l.prev
		} else {
			e.head.prev = l.prev
		}
	}
	e.size--
}

func (l *Listener) Active() bool {
	return l != nil && !l.removed.Load()
}

// Emit calls every listener registered at the time of the call.
// A listener removed while the emission is in progress is skipped.
func (e *Emitter) Emit(v any) {
	e.mu.Lock()
	listeners := make([]*Listener, 0, e.size)
	for l := e.head; l != nil; l = l.next {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		if l.removed.Load() {
			continue
		}

		l.fn(v)
	}
}

func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.size
}
