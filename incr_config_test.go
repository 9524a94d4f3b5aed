package incr

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("loads yaml on top of the defaults", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(`
captureInstantiationStack: true
trackUserCode: true
unsubscriberWorkers: 4
`))
		require.NoError(t, err)

		assert.True(t, cfg.CaptureInstantiationStack)
		assert.True(t, cfg.TrackUserCode)
		assert.False(t, cfg.CaptureExecutionStack)
		assert.Equal(t, 4, cfg.UnsubscriberWorkers)
		assert.Equal(t, DefaultConfig().UnsubscribeBacklog, cfg.UnsubscribeBacklog)
	})

	t.Run("empty document", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader("saveStackTraces: true\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader("unsubscriberWorkers: 0\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)

		cfg := DefaultConfig()
		cfg.UnsubscribeBacklog = -1
		_, err = NewEngine(WithConfig(cfg))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestDiagnostics(t *testing.T) {
	t.Run("instantiation stacks", func(t *testing.T) {
		items := NewCollection[*Item]()

		cfg := DefaultConfig()
		cfg.CaptureInstantiationStack = true
		contains := NewContainsComputing(newEngine(t, WithConfig(cfg)), items, newItem(true))
		assert.Contains(t, contains.InstantiationStack(), "TestDiagnostics")

		plain := NewContainsComputing(newEngine(t), items, newItem(true))
		assert.Empty(t, plain.InstantiationStack())
	})

	t.Run("tracks computations running user code", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TrackUserCode = true
		e := newEngine(t, WithConfig(cfg))
		consumer := e.NewConsumer()

		seen := []string{}
		equal := func(a, b *Item) bool {
			if name, ok := e.ExecutingUserCode(); ok {
				seen = append(seen, name)
			}
			return a.Equal(b)
		}

		contains := For(NewContainsComputing(e, NewCollection(newItem(true)), newItem(true), WithEqual(equal)), consumer)

		require.Len(t, seen, 1)
		assert.Equal(t, contains.String(), seen[0])

		_, ok := e.ExecutingUserCode()
		assert.False(t, ok)

		consumer.Dispose()
	})

	t.Run("zap logger", func(t *testing.T) {
		log, err := NewZapLogger(false)
		require.NoError(t, err)

		e := newEngine(t, WithLogger(log))
		assert.True(t, e.Logger().Enabled())
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, WithMetrics(reg))
	consumer := e.NewConsumer()

	items := NewCollection[*Item]()
	For(NewContainsComputing(e, items, newItem(true)), consumer)
	For(newIntUniting(e, NewCollection(ints(1))), consumer)

	items.Add(newItem(true))
	items.Add(newItem(false))
	items.RemoveAt(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.changes.WithLabelValues("contains", "add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.changes.WithLabelValues("contains", "remove")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.active.WithLabelValues("contains")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.active.WithLabelValues("uniting")))

	src := &rawSource[*Item]{}
	For(NewContainsComputing[*Item](e, src, newItem(true)), consumer)
	assert.Error(t, recoverError(func() { src.emit(RemoveChange(0, newItem(true))) }))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.violations.WithLabelValues("contains")))

	consumer.Dispose()
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.active.WithLabelValues("contains")))

	count, err := testutil.GatherAndCount(reg, "incr_changes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
