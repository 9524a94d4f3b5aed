package incr

import (
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AnatoleLucet/incr/internal"
)

// Engine carries the configuration shared by one computation graph.
type Engine struct {
	cfg Config

	log     logr.Logger
	metrics *Metrics

	dispatcher *Dispatcher

	graph        *internal.Graph
	tracker      *internal.Tracker
	unsubscriber *internal.Unsubscriber
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics registers the engine metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = NewMetrics(reg) }
}

// WithDispatcher makes every computation of the engine require changes to be
// delivered inside d.
func WithDispatcher(d *Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     DefaultConfig(),
		log:     logr.Discard(),
		graph:   internal.NewGraph(),
		tracker: internal.NewTracker(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	e.unsubscriber = internal.NewUnsubscriber(e.cfg.UnsubscriberWorkers, e.cfg.UnsubscribeBacklog, e.metrics.queueDepth)

	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Logger() logr.Logger {
	return e.log
}

// Dispatcher returns the engine dispatcher, nil if none was configured.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// ExecutingUserCode returns the computation running user code on the calling goroutine.
// It always reports false unless Config.TrackUserCode is set.
func (e *Engine) ExecutingUserCode() (string, bool) {
	return e.tracker.Current()
}

// Close waits for pending asynchronous teardowns and stops the background workers.
func (e *Engine) Close() error {
	return e.unsubscriber.Close()
}

// enter runs fn inside the dispatcher when there is one.
func (e *Engine) enter(fn func()) error {
	if e.dispatcher == nil {
		fn()
		return nil
	}

	return e.dispatcher.Enter(fn)
}

// busy reports whether the calling goroutine holds something the background workers need.
func (e *Engine) busy() bool {
	if d := e.dispatcher; d != nil && d.InScope() {
		return true
	}

	return e.graph.Held()
}

func (e *Engine) userCode(name string, fn func()) {
	if !e.cfg.TrackUserCode {
		fn()
		return
	}

	e.tracker.Run(name, fn)
}
