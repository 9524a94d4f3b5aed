package incr

import (
	"fmt"
	"iter"
	"slices"

	"github.com/AnatoleLucet/incr/internal"
)

// list is an ordered container that emits one change record per mutation.
// It backs both user collections and computation outputs.
type list[T any] struct {
	items   []T
	changes internal.Emitter
}

func (l *list[T]) Len() int {
	return len(l.items)
}

func (l *list[T]) At(index int) T {
	return l.items[index]
}

// All enumerates a snapshot, mutations during the enumeration are not observed.
func (l *list[T]) All() iter.Seq2[int, T] {
	return slices.All(slices.Clone(l.items))
}

func (l *list[T]) Subscribe(fn func(Change[T])) Subscription {
	return subscribe(&l.changes, fn)
}

func (l *list[T]) insert(index int, item T) {
	l.items = slices.Insert(l.items, index, item)
	l.changes.Emit(AddChange(index, item))
}

func (l *list[T]) removeAt(index int) T {
	item := l.items[index]
	l.items = slices.Delete(l.items, index, index+1)
	l.changes.Emit(RemoveChange(index, item))

	return item
}

func (l *list[T]) set(index int, item T) {
	old := l.items[index]
	l.items[index] = item
	l.changes.Emit(ReplaceChange(index, old, item))
}

func (l *list[T]) move(oldIndex, newIndex int) {
	if oldIndex < 0 || oldIndex >= len(l.items) || newIndex < 0 || newIndex >= len(l.items) {
		panic(fmt.Sprintf("incr: move %d -> %d out of range [0:%d]", oldIndex, newIndex, len(l.items)))
	}

	item := l.items[oldIndex]
	l.items = slices.Delete(l.items, oldIndex, oldIndex+1)
	l.items = slices.Insert(l.items, newIndex, item)
	l.changes.Emit(MoveChange(oldIndex, newIndex, item))
}

func (l *list[T]) reset(items []T) {
	l.items = slices.Clone(items)
	l.changes.Emit(ResetChange(slices.Clone(items)))
}

// Collection is a mutable Source. Every mutation emits exactly one change record.
// Invalid indices panic like slice indexing does.
type Collection[T any] struct {
	list[T]
}

func NewCollection[T any](items ...T) *Collection[T] {
	c := &Collection[T]{}
	c.items = slices.Clone(items)

	return c
}

// Add appends item.
func (c *Collection[T]) Add(item T) {
	c.insert(len(c.items), item)
}

func (c *Collection[T]) Insert(index int, item T) {
	c.insert(index, item)
}

func (c *Collection[T]) RemoveAt(index int) T {
	return c.removeAt(index)
}

// Set replaces the item at index.
func (c *Collection[T]) Set(index int, item T) {
	c.set(index, item)
}

func (c *Collection[T]) Move(oldIndex, newIndex int) {
	c.move(oldIndex, newIndex)
}

// Reset replaces the whole content with items.
func (c *Collection[T]) Reset(items ...T) {
	c.reset(items)
}

func (c *Collection[T]) Clear() {
	c.reset(nil)
}
