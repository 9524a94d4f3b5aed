package incr

import (
	"iter"
	"slices"

	"github.com/AnatoleLucet/incr/internal"
)

// Uniting flattens an outer collection of inner collections into one collection,
// in outer then inner order. A nil outer item counts as an empty inner collection.
//
// Each outer slot owns a contiguous block of the output. Block starts are prefix sums
// over the slot lengths, kept in a Fenwick tree: an inner point edit costs O(log n)
// in the number of outer slots, an outer edit O(n) to renumber the slots.
//
// Block edits are emitted one item at a time, and the slot bookkeeping follows each
// record, so InnerLengths and FlatIndex agree with the output whenever a subscriber
// runs. The one exception is an outer Move: its records shift a block item by item,
// and InnerLengths and FlatIndex already describe the final layout while they go out.
type Uniting[T any, S Source[T]] struct {
	computing

	outer Source[S]

	// one slot per outer item, in outer order
	slots []*unitingSlot[T]

	// block starts, indexed like slots
	offsets internal.Offsets

	output list[T]
}

type unitingSlot[T any] struct {
	// nil for a nil outer item
	inner Source[T]

	index  int
	length int

	sub Subscription
}

// NewUniting creates the computation. It stays inactive until consumed.
func NewUniting[T any, S Source[T]](e *Engine, outer Source[S]) *Uniting[T, S] {
	c := &Uniting[T, S]{
		outer: outer,
	}

	c.wire(e, "uniting", c.attach, c.detach, outer)

	return c
}

func (c *Uniting[T, S]) Outer() Source[S] {
	return c.outer
}

func (c *Uniting[T, S]) Len() int {
	return c.output.Len()
}

func (c *Uniting[T, S]) At(index int) T {
	return c.output.At(index)
}

func (c *Uniting[T, S]) All() iter.Seq2[int, T] {
	return c.output.All()
}

func (c *Uniting[T, S]) Subscribe(fn func(Change[T])) Subscription {
	return c.output.Subscribe(fn)
}

// InnerLengths returns the tracked length of every outer slot, 0 for nil slots.
func (c *Uniting[T, S]) InnerLengths() []int {
	lengths := make([]int, len(c.slots))
	for i, slot := range c.slots {
		lengths[i] = slot.length
	}

	return lengths
}

// FlatIndex maps position innerIndex of the inner collection in outer slot outerIndex
// to a position in the output. innerIndex may equal the inner length, to address an
// insertion at the end of the block. It returns -1 for a slot or position that does
// not exist, which covers every call on an inactive computation.
func (c *Uniting[T, S]) FlatIndex(outerIndex, innerIndex int) int {
	if outerIndex < 0 || outerIndex >= len(c.slots) {
		return -1
	}

	slot := c.slots[outerIndex]
	if innerIndex < 0 || innerIndex > slot.length {
		return -1
	}

	return c.start(slot) + innerIndex
}

func (c *Uniting[T, S]) attach() {
	outer := snapshot(c.outer)

	var flat []T
	c.slots = make([]*unitingSlot[T], 0, len(outer))
	for _, item := range outer {
		slot, items := c.newSlot(item)
		slot.length = len(items)

		c.slots = append(c.slots, slot)
		flat = append(flat, items...)
	}
	c.renumber()

	for _, slot := range c.slots {
		c.subscribeSlot(slot)
	}
	c.attachTo(c.outer.Subscribe(c.onOuterChange))

	c.output.reset(flat)
}

func (c *Uniting[T, S]) detach() {
	for _, slot := range c.slots {
		unsubscribe(slot.sub)
		slot.sub = nil
	}
	c.slots = nil
	c.offsets.Reset(nil)

	// no emission: subscribers of a torn down computation hear nothing more
	c.output.items = nil
}

// newSlot returns an empty slot for item along with the items it will hold.
func (c *Uniting[T, S]) newSlot(item S) (*unitingSlot[T], []T) {
	slot := &unitingSlot[T]{}
	if isNil(any(item)) {
		return slot, nil
	}

	slot.inner = item
	return slot, snapshot(slot.inner)
}

func (c *Uniting[T, S]) subscribeSlot(slot *unitingSlot[T]) {
	if slot.inner == nil {
		return
	}

	slot.sub = slot.inner.Subscribe(func(ch Change[T]) {
		c.onInnerChange(slot, ch)
	})
}

// renumber recomputes slot indices and block starts after the slot list changed.
func (c *Uniting[T, S]) renumber() {
	for i, slot := range c.slots {
		slot.index = i
	}
	c.offsets.Reset(c.InnerLengths())
}

func (c *Uniting[T, S]) start(slot *unitingSlot[T]) int {
	return c.offsets.Prefix(slot.index)
}

func (c *Uniting[T, S]) grow(slot *unitingSlot[T], delta int) {
	slot.length += delta
	c.offsets.Add(slot.index, delta)
}

func (c *Uniting[T, S]) onOuterChange(ch Change[S]) {
	c.handle("outer "+ch.Kind.String(), func() {
		switch ch.Kind {
		case ChangeAdd:
			if ch.NewIndex < 0 || ch.NewIndex > len(c.slots) {
				c.violation("outer add", "index %d out of range [0:%d]", ch.NewIndex, len(c.slots))
			}

			slot, items := c.newSlot(ch.NewItem)
			c.slots = slices.Insert(c.slots, ch.NewIndex, slot)
			c.renumber()
			c.subscribeSlot(slot)

			c.fillBlock(slot, items)

		case ChangeRemove:
			slot := c.slotAt("outer remove", ch.OldIndex, ch.OldItem)

			unsubscribe(slot.sub)
			c.clearBlock(slot)

			c.slots = slices.Delete(c.slots, ch.OldIndex, ch.OldIndex+1)
			c.renumber()

		case ChangeReplace:
			old := c.slotAt("outer replace", ch.OldIndex, ch.OldItem)
			slot, items := c.newSlot(ch.NewItem)
			slot.index = old.index

			unsubscribe(old.sub)

			// equal lengths become in-place replacements, anything else a remove block then an add block
			if len(items) == old.length {
				slot.length = old.length
				c.slots[ch.OldIndex] = slot
				c.subscribeSlot(slot)

				start := c.start(slot)
				for i, item := range items {
					c.output.set(start+i, item)
				}
			} else {
				c.clearBlock(old)

				c.slots[ch.OldIndex] = slot
				c.subscribeSlot(slot)

				c.fillBlock(slot, items)
			}

		case ChangeMove:
			slot := c.slotAt("outer move", ch.OldIndex, ch.NewItem)
			if ch.NewIndex < 0 || ch.NewIndex >= len(c.slots) {
				c.violation("outer move", "target index %d out of range [0:%d)", ch.NewIndex, len(c.slots))
			}

			from := c.start(slot)
			c.slots = slices.Delete(c.slots, ch.OldIndex, ch.OldIndex+1)
			c.slots = slices.Insert(c.slots, ch.NewIndex, slot)
			c.renumber()

			c.moveBlock(from, c.start(slot), slot.length)

		case ChangeReset:
			for _, slot := range c.slots {
				unsubscribe(slot.sub)
			}

			var flat []T
			c.slots = make([]*unitingSlot[T], 0, len(ch.Items))
			for _, item := range ch.Items {
				slot, items := c.newSlot(item)
				slot.length = len(items)

				c.slots = append(c.slots, slot)
				flat = append(flat, items...)
			}
			c.renumber()

			for _, slot := range c.slots {
				c.subscribeSlot(slot)
			}

			c.output.reset(flat)

		default:
			c.violation(ch.Kind.String(), "unknown change kind")
		}
	})
}

func (c *Uniting[T, S]) onInnerChange(slot *unitingSlot[T], ch Change[T]) {
	c.handle("inner "+ch.Kind.String(), func() {
		switch ch.Kind {
		case ChangeAdd:
			if ch.NewIndex < 0 || ch.NewIndex > slot.length {
				c.violation("inner add", "slot %d: index %d out of range [0:%d]", slot.index, ch.NewIndex, slot.length)
			}

			flat := c.start(slot) + ch.NewIndex
			c.grow(slot, 1)

			c.output.insert(flat, ch.NewItem)

		case ChangeRemove:
			flat := c.innerAt("inner remove", slot, ch.OldIndex, ch.OldItem)
			c.grow(slot, -1)

			c.output.removeAt(flat)

		case ChangeReplace:
			flat := c.innerAt("inner replace", slot, ch.OldIndex, ch.OldItem)

			c.output.set(flat, ch.NewItem)

		case ChangeMove:
			from := c.innerAt("inner move", slot, ch.OldIndex, ch.NewItem)
			if ch.NewIndex < 0 || ch.NewIndex >= slot.length {
				c.violation("inner move", "slot %d: target index %d out of range [0:%d)", slot.index, ch.NewIndex, slot.length)
			}

			c.output.move(from, c.start(slot)+ch.NewIndex)

		case ChangeReset:
			c.clearBlock(slot)
			c.fillBlock(slot, ch.Items)

		default:
			c.violation(ch.Kind.String(), "unknown change kind")
		}
	})
}

// slotAt returns the slot an outer change record refers to, failing if the record disagrees with it.
func (c *Uniting[T, S]) slotAt(op string, index int, item S) *unitingSlot[T] {
	if index < 0 || index >= len(c.slots) {
		c.violation(op, "index %d out of range [0:%d)", index, len(c.slots))
	}

	slot := c.slots[index]
	if !sameInner(slot.inner, item) {
		c.violation(op, "slot %d holds %v, change refers to %v", index, slot.inner, item)
	}

	return slot
}

// innerAt returns the flat position of an inner change record, failing if the record disagrees with the output.
func (c *Uniting[T, S]) innerAt(op string, slot *unitingSlot[T], index int, item T) int {
	if index < 0 || index >= slot.length {
		c.violation(op, "slot %d: index %d out of range [0:%d)", slot.index, index, slot.length)
	}

	flat := c.start(slot) + index
	if !sameItem(any(c.output.At(flat)), any(item)) {
		c.violation(op, "slot %d: item at %d is %v, change refers to %v", slot.index, index, c.output.At(flat), item)
	}

	return flat
}

// fillBlock appends items to the block of an empty slot, growing the slot with each record.
func (c *Uniting[T, S]) fillBlock(slot *unitingSlot[T], items []T) {
	start := c.start(slot)
	for i, item := range items {
		c.grow(slot, 1)
		c.output.insert(start+i, item)
	}
}

// clearBlock empties the block of slot, last item first, shrinking the slot with each record.
func (c *Uniting[T, S]) clearBlock(slot *unitingSlot[T]) {
	start := c.start(slot)
	if start+slot.length > c.output.Len() {
		c.violation("remove block", "block [%d:%d) exceeds output length %d", start, start+slot.length, c.output.Len())
	}

	for slot.length > 0 {
		c.grow(slot, -1)
		c.output.removeAt(start + slot.length)
	}
}

// moveBlock moves the length items at from so that they start at to in the resulting output.
func (c *Uniting[T, S]) moveBlock(from, to, length int) {
	switch {
	case from < to:
		for range length {
			c.output.move(from, to+length-1)
		}
	case from > to:
		for i := range length {
			c.output.move(from+i, to+i)
		}
	}
}

// ValidateInternalConsistency rebuilds the flattening from the outer and inner collections
// and checks the slots and the output against it.
func (c *Uniting[T, S]) ValidateInternalConsistency() error {
	if err := c.validatable(); err != nil {
		return err
	}

	outer := snapshot(c.outer)
	if len(outer) != len(c.slots) {
		return c.inconsistency("validate", "tracking %d slots, outer has %d", len(c.slots), len(outer))
	}

	var flat []T
	start := 0
	for k, item := range outer {
		slot := c.slots[k]
		if slot.index != k {
			return c.inconsistency("validate", "slot %d is numbered %d", k, slot.index)
		}
		if !sameInner(slot.inner, item) {
			return c.inconsistency("validate", "slot %d holds %v, outer has %v", k, slot.inner, item)
		}

		var items []T
		if slot.inner != nil {
			if slot.sub == nil {
				return c.inconsistency("validate", "slot %d is not subscribed", k)
			}
			items = snapshot(slot.inner)
		}

		if slot.length != len(items) {
			return c.inconsistency("validate", "slot %d has length %d, inner has %d", k, slot.length, len(items))
		}
		if got := c.start(slot); got != start {
			return c.inconsistency("validate", "slot %d starts at %d, expected %d", k, got, start)
		}

		start += len(items)
		flat = append(flat, items...)
	}

	if c.output.Len() != len(flat) {
		return c.inconsistency("validate", "output has %d items, expected %d", c.output.Len(), len(flat))
	}
	for i, item := range flat {
		if !sameItem(any(c.output.At(i)), any(item)) {
			return c.inconsistency("validate", "output item %d is %v, expected %v", i, c.output.At(i), item)
		}
	}

	return nil
}

func sameInner[T any, S Source[T]](inner Source[T], item S) bool {
	if isNil(any(item)) {
		return inner == nil
	}

	return inner != nil && sameItem(any(inner), any(item))
}
