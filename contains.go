package incr

import (
	"iter"
	"slices"

	"github.com/AnatoleLucet/incr/internal"
)

// ContainsComputing tracks whether a source holds an item equal to a target.
// It keeps the number of matching items instead of rescanning the source.
//
// The result is exposed as Value and as a one-element Source[bool]: a change of the
// result emits Replace(0, old, new) followed by a "Value" property change.
type ContainsComputing[T any] struct {
	computing

	source Source[T]
	target T

	equal func(a, b T) bool

	// property names taking part in equality, nil means every property
	properties map[string]struct{}

	// one entry per source item, in source order
	entries    []*containsEntry[T]
	matchCount int
	value      bool

	targetSub Subscription

	changes  internal.Emitter
	notifier Notifier
}

type containsEntry[T any] struct {
	item  T
	match bool
	sub   Subscription
}

type ContainsOption[T any] func(*ContainsComputing[T])

// WithEqual sets the equality used to match items against the target.
// It defaults to an Equal(T) bool method on the item, or == otherwise.
func WithEqual[T any](equal func(a, b T) bool) ContainsOption[T] {
	return func(c *ContainsComputing[T]) { c.equal = equal }
}

// WithEqualityProperties restricts re-evaluation to property changes named in names.
func WithEqualityProperties[T any](names ...string) ContainsOption[T] {
	return func(c *ContainsComputing[T]) {
		c.properties = make(map[string]struct{}, len(names))
		for _, name := range names {
			c.properties[name] = struct{}{}
		}
	}
}

// NewContainsComputing creates the computation. It stays inactive until consumed.
func NewContainsComputing[T any](e *Engine, source Source[T], target T, opts ...ContainsOption[T]) *ContainsComputing[T] {
	c := &ContainsComputing[T]{
		source: source,
		target: target,
		equal:  defaultEqual[T],
	}

	for _, opt := range opts {
		opt(c)
	}

	c.wire(e, "contains", c.attach, c.detach, source)

	return c
}

func (c *ContainsComputing[T]) Source() Source[T] {
	return c.source
}

func (c *ContainsComputing[T]) Target() T {
	return c.target
}

// Value reports whether the source contains an item equal to the target.
func (c *ContainsComputing[T]) Value() bool {
	return c.value
}

// MatchCount returns how many source items are equal to the target.
func (c *ContainsComputing[T]) MatchCount() int {
	return c.matchCount
}

func (c *ContainsComputing[T]) Len() int {
	return 1
}

func (c *ContainsComputing[T]) At(index int) bool {
	if index != 0 {
		panic("incr: ContainsComputing has a single value at index 0")
	}

	return c.value
}

func (c *ContainsComputing[T]) All() iter.Seq2[int, bool] {
	value := c.value
	return func(yield func(int, bool) bool) {
		yield(0, value)
	}
}

func (c *ContainsComputing[T]) Subscribe(fn func(Change[bool])) Subscription {
	return subscribe(&c.changes, fn)
}

func (c *ContainsComputing[T]) OnPropertyChanged(fn func(PropertyChange)) Subscription {
	return c.notifier.OnPropertyChanged(fn)
}

// SetTarget replaces the target and recomputes the result against every source item.
func (c *ContainsComputing[T]) SetTarget(target T) error {
	return c.engine.enter(func() {
		if !c.active.Load() {
			c.target = target
			return
		}

		c.handle("target", func() {
			matches := c.evaluate(c.items(), target)

			unsubscribe(c.targetSub)
			c.target = target
			c.commit(matches)
			c.targetSub = watchProperties(any(target), c.onTargetPropertyChanged)

			c.publish()
		})
	})
}

func (c *ContainsComputing[T]) attach() {
	items := snapshot(c.source)
	matches := c.evaluate(items, c.target)

	c.entries = make([]*containsEntry[T], 0, len(items))
	for i, item := range items {
		c.entries = append(c.entries, c.track(item, matches[i]))
	}
	c.matchCount = count(matches)

	c.attachTo(c.source.Subscribe(c.onSourceChange))
	c.targetSub = watchProperties(any(c.target), c.onTargetPropertyChanged)

	c.publish()
}

func (c *ContainsComputing[T]) detach() {
	for _, entry := range c.entries {
		unsubscribe(entry.sub)
	}
	c.entries = nil

	unsubscribe(c.targetSub)
	c.targetSub = nil

	c.matchCount = 0
	c.value = false
}

func (c *ContainsComputing[T]) onSourceChange(ch Change[T]) {
	c.handle(ch.Kind.String(), func() {
		switch ch.Kind {
		case ChangeAdd:
			if ch.NewIndex < 0 || ch.NewIndex > len(c.entries) {
				c.violation("add", "index %d out of range [0:%d]", ch.NewIndex, len(c.entries))
			}

			match := c.matches(ch.NewItem, c.target)

			c.entries = slices.Insert(c.entries, ch.NewIndex, c.track(ch.NewItem, match))
			if match {
				c.matchCount++
			}

		case ChangeRemove:
			entry := c.tracked("remove", ch.OldIndex, ch.OldItem)

			unsubscribe(entry.sub)
			c.entries = slices.Delete(c.entries, ch.OldIndex, ch.OldIndex+1)
			if entry.match {
				c.decrement("remove")
			}

		case ChangeReplace:
			entry := c.tracked("replace", ch.OldIndex, ch.OldItem)

			match := c.matches(ch.NewItem, c.target)

			unsubscribe(entry.sub)
			c.entries[ch.OldIndex] = c.track(ch.NewItem, match)
			if entry.match {
				c.decrement("replace")
			}
			if match {
				c.matchCount++
			}

		case ChangeMove:
			entry := c.tracked("move", ch.OldIndex, ch.NewItem)
			if ch.NewIndex < 0 || ch.NewIndex >= len(c.entries) {
				c.violation("move", "target index %d out of range [0:%d)", ch.NewIndex, len(c.entries))
			}

			c.entries = slices.Delete(c.entries, ch.OldIndex, ch.OldIndex+1)
			c.entries = slices.Insert(c.entries, ch.NewIndex, entry)

		case ChangeReset:
			matches := c.evaluate(ch.Items, c.target)

			for _, entry := range c.entries {
				unsubscribe(entry.sub)
			}

			c.entries = make([]*containsEntry[T], 0, len(ch.Items))
			for i, item := range ch.Items {
				c.entries = append(c.entries, c.track(item, matches[i]))
			}
			c.matchCount = count(matches)

		default:
			c.violation(ch.Kind.String(), "unknown change kind")
		}

		c.publish()
	})
}

func (c *ContainsComputing[T]) onItemPropertyChanged(entry *containsEntry[T], pc PropertyChange) {
	if !c.participates(pc.Property) {
		return
	}

	c.handle("property", func() {
		match := c.matches(entry.item, c.target)
		if match == entry.match {
			return
		}

		entry.match = match
		if match {
			c.matchCount++
		} else {
			c.decrement("property")
		}

		c.publish()
	})
}

func (c *ContainsComputing[T]) onTargetPropertyChanged(pc PropertyChange) {
	if !c.participates(pc.Property) {
		return
	}

	c.handle("target", func() {
		c.commit(c.evaluate(c.items(), c.target))
		c.publish()
	})
}

func (c *ContainsComputing[T]) participates(property string) bool {
	if c.properties == nil {
		return true
	}

	_, ok := c.properties[property]
	return ok
}

func (c *ContainsComputing[T]) track(item T, match bool) *containsEntry[T] {
	entry := &containsEntry[T]{item: item, match: match}
	entry.sub = watchProperties(any(item), func(pc PropertyChange) {
		c.onItemPropertyChanged(entry, pc)
	})

	return entry
}

// tracked returns the entry a change record refers to, failing if the record disagrees with it.
func (c *ContainsComputing[T]) tracked(op string, index int, item T) *containsEntry[T] {
	if index < 0 || index >= len(c.entries) {
		c.violation(op, "index %d out of range [0:%d)", index, len(c.entries))
	}

	entry := c.entries[index]
	if !sameItem(any(entry.item), any(item)) {
		c.violation(op, "item at index %d is %v, change refers to %v", index, entry.item, item)
	}

	return entry
}

func (c *ContainsComputing[T]) decrement(op string) {
	if c.matchCount == 0 {
		c.violation(op, "match count would drop below zero")
	}
	c.matchCount--
}

// commit applies matches computed for the current entries, in order.
func (c *ContainsComputing[T]) commit(matches []bool) {
	for i, entry := range c.entries {
		entry.match = matches[i]
	}
	c.matchCount = count(matches)
}

func (c *ContainsComputing[T]) items() []T {
	items := make([]T, len(c.entries))
	for i, entry := range c.entries {
		items[i] = entry.item
	}

	return items
}

// evaluate matches every item before any state is touched, so a panicking
// equality leaves the computation as it was.
func (c *ContainsComputing[T]) evaluate(items []T, target T) []bool {
	matches := make([]bool, len(items))
	for i, item := range items {
		matches[i] = c.matches(item, target)
	}

	return matches
}

func (c *ContainsComputing[T]) matches(item, target T) (match bool) {
	c.userCode(func() { match = c.equal(item, target) })
	return match
}

// publish emits the result if the match count moved it.
func (c *ContainsComputing[T]) publish() {
	value := c.matchCount > 0
	if value == c.value {
		return
	}

	old := c.value
	c.value = value

	c.changes.Emit(ReplaceChange(0, old, value))
	c.notifier.NotifyPropertyChanged(c, "Value")
}

// ValidateInternalConsistency rescans the source and checks the tracked entries,
// the match count and the result against it.
func (c *ContainsComputing[T]) ValidateInternalConsistency() error {
	if err := c.validatable(); err != nil {
		return err
	}

	items := snapshot(c.source)
	if len(items) != len(c.entries) {
		return c.inconsistency("validate", "tracking %d items, source has %d", len(c.entries), len(items))
	}

	expected := 0
	for i, item := range items {
		entry := c.entries[i]
		if !sameItem(any(entry.item), any(item)) {
			return c.inconsistency("validate", "item %d is %v, source has %v", i, entry.item, item)
		}

		match := c.matches(item, c.target)
		if match != entry.match {
			return c.inconsistency("validate", "item %d tracked as match=%t, equality says %t", i, entry.match, match)
		}
		if match {
			expected++
		}
	}

	if expected != c.matchCount {
		return c.inconsistency("validate", "match count is %d, expected %d", c.matchCount, expected)
	}

	if c.value != (expected > 0) {
		return c.inconsistency("validate", "value is %t with %d matches", c.value, expected)
	}

	return nil
}

func count(matches []bool) int {
	n := 0
	for _, match := range matches {
		if match {
			n++
		}
	}

	return n
}
