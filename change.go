package incr

import "fmt"

type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeRemove
	ChangeReplace
	ChangeMove
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeReplace:
		return "replace"
	case ChangeMove:
		return "move"
	case ChangeReset:
		return "reset"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes a single structural edit of a source.
//
//	Add:     NewIndex, NewItem
//	Remove:  OldIndex, OldItem
//	Replace: OldIndex == NewIndex, OldItem, NewItem
//	Move:    OldIndex, NewIndex, NewItem
//	Reset:   Items
//
// Indices are valid against the collection before removals and after insertions.
type Change[T any] struct {
	Kind ChangeKind

	OldIndex int
	NewIndex int

	OldItem T
	NewItem T

	Items []T
}

func AddChange[T any](index int, item T) Change[T] {
	return Change[T]{Kind: ChangeAdd, OldIndex: -1, NewIndex: index, NewItem: item}
}

func RemoveChange[T any](index int, item T) Change[T] {
	return Change[T]{Kind: ChangeRemove, OldIndex: index, NewIndex: -1, OldItem: item}
}

func ReplaceChange[T any](index int, oldItem, newItem T) Change[T] {
	return Change[T]{Kind: ChangeReplace, OldIndex: index, NewIndex: index, OldItem: oldItem, NewItem: newItem}
}

func MoveChange[T any](oldIndex, newIndex int, item T) Change[T] {
	return Change[T]{Kind: ChangeMove, OldIndex: oldIndex, NewIndex: newIndex, NewItem: item}
}

func ResetChange[T any](items []T) Change[T] {
	return Change[T]{Kind: ChangeReset, OldIndex: -1, NewIndex: -1, Items: items}
}

func (c Change[T]) String() string {
	switch c.Kind {
	case ChangeAdd:
		return fmt.Sprintf("add(%d, %v)", c.NewIndex, c.NewItem)
	case ChangeRemove:
		return fmt.Sprintf("remove(%d, %v)", c.OldIndex, c.OldItem)
	case ChangeReplace:
		return fmt.Sprintf("replace(%d, %v, %v)", c.OldIndex, c.OldItem, c.NewItem)
	case ChangeMove:
		return fmt.Sprintf("move(%d, %d, %v)", c.OldIndex, c.NewIndex, c.NewItem)
	case ChangeReset:
		return fmt.Sprintf("reset(%v)", c.Items)
	default:
		return c.Kind.String()
	}
}
