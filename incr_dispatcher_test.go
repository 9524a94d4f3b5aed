package incr

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	t.Run("nested enter runs inline", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		log := []string{}

		assert.False(t, d.InScope())

		require.NoError(t, d.Enter(func() {
			log = append(log, "outer")
			assert.True(t, d.InScope())

			require.NoError(t, d.Enter(func() {
				log = append(log, "inner")
			}))

			log = append(log, "outer done")
		}))

		assert.False(t, d.InScope())
		assert.Equal(t, []string{"outer", "inner", "outer done"}, log)
	})

	t.Run("posted work runs after the outermost scope", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		log := []string{}

		require.NoError(t, d.Enter(func() {
			require.NoError(t, d.Post(func() {
				log = append(log, "posted")

				require.NoError(t, d.Post(func() { log = append(log, "posted from posted") }))
			}))

			require.NoError(t, d.Enter(func() { log = append(log, "nested") }))
			log = append(log, "scope done")
		}))

		assert.Equal(t, []string{"nested", "scope done", "posted", "posted from posted"}, log)
	})

	t.Run("post outside the scope runs right away", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())

		ran := false
		require.NoError(t, d.Post(func() {
			ran = true
			assert.True(t, d.InScope())
		}))

		assert.True(t, ran)
	})

	t.Run("serializes goroutines", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		counter := 0

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 500 {
					_ = d.Enter(func() { counter++ })
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 2000, counter)
	})

	t.Run("closed", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		d.Close()

		assert.ErrorIs(t, d.Enter(func() {}), ErrDispatcherClosed)
		assert.ErrorIs(t, d.Post(func() {}), ErrDispatcherClosed)
	})

	t.Run("captures invocation stacks", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CaptureInvocationStack = true
		cfg.CaptureExecutionStack = true
		d := NewDispatcher(cfg)

		var inv Invocation
		var ok bool
		require.NoError(t, d.Enter(func() {
			require.NoError(t, d.Post(func() { inv, ok = d.CurrentInvocation() }))
		}))

		require.True(t, ok)
		assert.NotEmpty(t, inv.InstantiationStack)
		assert.NotEmpty(t, inv.ExecutionStack)

		_, ok = d.CurrentInvocation()
		assert.False(t, ok)
	})

	t.Run("engine computations require the dispatcher", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		e := newEngine(t, WithDispatcher(d))
		consumer := e.NewConsumer()

		items := NewCollection[*Item]()
		contains := For(NewContainsComputing(e, items, newItem(true)), consumer)

		err := recoverError(func() { items.Add(newItem(true)) })
		assert.ErrorIs(t, err, ErrOutsideDispatcher)

		require.NoError(t, d.Enter(func() {
			items.Reset(newItem(true))
		}))
		assert.True(t, contains.Value())

		require.NoError(t, d.Enter(func() {
			require.NoError(t, contains.ValidateInternalConsistency())
		}))

		require.NoError(t, contains.SetTarget(newItem(false)))
		assert.False(t, contains.Value())

		consumer.Dispose()
		assert.False(t, contains.Active())
	})

	t.Run("asynchronous teardown from inside the scope", func(t *testing.T) {
		d := NewDispatcher(DefaultConfig())
		e, err := NewEngine(WithDispatcher(d))
		require.NoError(t, err)

		consumer := e.NewConsumer()
		uniting := For(newIntUniting(e, NewCollection(ints(1))), consumer)

		require.NoError(t, d.Enter(func() {
			consumer.DisposeAsync()
		}))

		require.NoError(t, e.Close())
		assert.False(t, uniting.Active())
	})

	t.Run("asynchronous teardown inside the scope with no backlog", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UnsubscribeBacklog = 0

		d := NewDispatcher(cfg)
		e, err := NewEngine(WithConfig(cfg), WithDispatcher(d))
		require.NoError(t, err)

		first, second := e.NewConsumer(), e.NewConsumer()
		a := For(newIntUniting(e, NewCollection(ints(1))), first)
		b := For(newIntUniting(e, NewCollection(ints(2))), second)

		within(t, 2*time.Second, func() {
			assert.NoError(t, d.Enter(func() {
				first.DisposeAsync()
				second.DisposeAsync()
			}))
		})

		require.NoError(t, e.Close())
		assert.False(t, a.Active())
		assert.False(t, b.Active())
	})
}
