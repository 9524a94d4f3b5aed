package incr

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config holds the diagnostic switches and the teardown pool size of an engine.
// None of them change what the computations compute.
type Config struct {
	// CaptureInstantiationStack records the stack that created each computation.
	CaptureInstantiationStack bool `yaml:"captureInstantiationStack"`
	// CaptureInvocationStack records the stack that posted each dispatcher invocation.
	CaptureInvocationStack bool `yaml:"captureInvocationStack"`
	// CaptureExecutionStack records the stack each dispatcher invocation runs on.
	CaptureExecutionStack bool `yaml:"captureExecutionStack"`
	// TrackUserCode records which computation runs user equality code on each goroutine.
	TrackUserCode bool `yaml:"trackUserCode"`

	// UnsubscriberWorkers is the number of background workers running asynchronous teardown.
	UnsubscriberWorkers int `yaml:"unsubscriberWorkers"`
	// UnsubscribeBacklog is how many asynchronous teardowns may wait for a worker.
	UnsubscribeBacklog int `yaml:"unsubscribeBacklog"`
}

func DefaultConfig() Config {
	return Config{
		UnsubscriberWorkers: 1,
		UnsubscribeBacklog:  64,
	}
}

func (c Config) Validate() error {
	if c.UnsubscriberWorkers < 1 {
		return fmt.Errorf("%w: unsubscriberWorkers must be at least 1, got %d", ErrInvalidConfig, c.UnsubscriberWorkers)
	}
	if c.UnsubscribeBacklog < 0 {
		return fmt.Errorf("%w: unsubscribeBacklog must not be negative, got %d", ErrInvalidConfig, c.UnsubscribeBacklog)
	}

	return nil
}

// LoadConfig reads a YAML document on top of DefaultConfig.
// Unknown keys are rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
