package incr

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Item struct {
	Notifier

	num    int
	active bool
	label  string
}

var lastNum int

func newItem(active bool) *Item {
	lastNum++
	return &Item{num: lastNum, active: active}
}

func (i *Item) Active() bool { return i.active }

func (i *Item) SetActive(active bool) {
	if i.active == active {
		return
	}
	i.active = active
	i.NotifyPropertyChanged(i, "Active")
}

func (i *Item) SetLabel(label string) {
	i.label = label
	i.NotifyPropertyChanged(i, "Label")
}

func (i *Item) Equal(other *Item) bool {
	return i.active == other.active
}

func (i *Item) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Item(%d, %t)", i.num, i.active)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	e, err := NewEngine(append([]Option{WithLogger(testr.New(t))}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, e.Close()) })

	return e
}

// mirror replays the change records of a source on a plain slice.
type mirror[T any] struct {
	items []T
}

func follow[T any](src Source[T]) *mirror[T] {
	m := &mirror[T]{items: snapshot(src)}
	src.Subscribe(m.apply)

	return m
}

func (m *mirror[T]) apply(ch Change[T]) {
	switch ch.Kind {
	case ChangeAdd:
		m.items = slices.Insert(m.items, ch.NewIndex, ch.NewItem)
	case ChangeRemove:
		m.items = slices.Delete(m.items, ch.OldIndex, ch.OldIndex+1)
	case ChangeReplace:
		m.items[ch.OldIndex] = ch.NewItem
	case ChangeMove:
		item := m.items[ch.OldIndex]
		m.items = slices.Delete(m.items, ch.OldIndex, ch.OldIndex+1)
		m.items = slices.Insert(m.items, ch.NewIndex, item)
	case ChangeReset:
		m.items = append([]T{}, ch.Items...)
	}
}

// rawSource lets tests emit arbitrary change records.
type rawSource[T any] struct {
	list[T]
}

func (s *rawSource[T]) emit(ch Change[T]) {
	s.changes.Emit(ch)
}

func recoverError(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = fmt.Errorf("%v", r)
	}()

	fn()
	return errors.New("no panic")
}

// within fails the test when fn has not returned after d.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("still running after %s", d)
	}
}
