package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type lifecycle struct {
	events []string
}

func (l *lifecycle) node(name string, deps ...*Node) *Node {
	return NewNode(name,
		func() { l.events = append(l.events, "+"+name) },
		func() { l.events = append(l.events, "-"+name) },
		deps...,
	)
}

func TestOwner(t *testing.T) {
	t.Run("activates upstream first and deactivates downstream first", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()

		source := l.node("source")
		mid := l.node("mid", source)
		sink := l.node("sink", mid, source)

		o := g.NewOwner()
		assert.NoError(t, o.Retain(sink))
		assert.Equal(t, []string{"+source", "+mid", "+sink"}, l.events)

		l.events = nil
		o.Dispose()
		assert.Equal(t, []string{"-sink", "-mid", "-source"}, l.events)
		assert.Equal(t, 0, g.Refs(source))
	})

	t.Run("shared nodes stay active until the last owner is disposed", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()

		shared := l.node("shared")
		a := l.node("a", shared)
		b := l.node("b", shared)

		first, second := g.NewOwner(), g.NewOwner()
		first.Retain(a)
		second.Retain(b)
		assert.Equal(t, []string{"+shared", "+a", "+b"}, l.events)
		assert.Equal(t, 2, g.Refs(shared))

		l.events = nil
		first.Dispose()
		assert.Equal(t, []string{"-a"}, l.events)
		assert.Equal(t, 1, g.Refs(shared))

		second.Dispose()
		assert.Equal(t, []string{"-a", "-b", "-shared"}, l.events)
	})

	t.Run("retaining twice counts once", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()
		n := l.node("n")

		o := g.NewOwner()
		assert.NoError(t, o.Retain(n))
		assert.NoError(t, o.Retain(n))
		assert.Equal(t, 1, g.Refs(n))
		assert.True(t, o.Retains(n))
		assert.Equal(t, []string{"+n"}, l.events)
	})

	t.Run("disposed owners refuse to retain", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()

		o := g.NewOwner()
		o.Dispose()
		o.Dispose()

		assert.True(t, o.Disposed())
		assert.ErrorIs(t, o.Retain(l.node("n")), ErrDisposed)
		assert.Empty(t, l.events)
	})

	t.Run("cleanups run after deactivation", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()

		o := g.NewOwner()
		o.Retain(l.node("n"))
		o.OnCleanup(func() { l.events = append(l.events, "cleanup") })
		o.Dispose()
		assert.Equal(t, []string{"+n", "-n", "cleanup"}, l.events)

		o.OnCleanup(func() { l.events = append(l.events, "late") })
		assert.Equal(t, "late", l.events[len(l.events)-1])
	})

	t.Run("disposing from an activation callback waits for the activation", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()
		o := g.NewOwner()

		source := l.node("source")
		sink := NewNode("sink", func() {
			l.events = append(l.events, "+sink")
			o.Dispose()
			assert.False(t, o.Disposed())
		}, func() {
			l.events = append(l.events, "-sink")
		}, source)

		assert.NoError(t, o.Retain(sink))
		assert.Equal(t, []string{"+source", "+sink", "-sink", "-source"}, l.events)
		assert.True(t, o.Disposed())
		assert.Equal(t, 0, g.Refs(source))
		assert.False(t, g.Held())
	})

	t.Run("retaining from a callback fails", func(t *testing.T) {
		l := &lifecycle{}
		g := NewGraph()
		other := g.NewOwner()

		var err error
		n := NewNode("n", func() {
			err = other.Retain(l.node("late"))
			assert.True(t, g.Held())
			assert.Equal(t, 0, g.Refs(l.node("unrelated")))
		}, nil)

		assert.NoError(t, g.NewOwner().Retain(n))
		assert.ErrorIs(t, err, ErrBusy)
		assert.Empty(t, l.events)
	})
}
