// Package graph provides the core stateful graph execution engine.
package graph

import (
	"time"

	"github.com/dshills/langgraph-go/graph/emit"
)

// Options configures an engine-wide default for every invocation of a
// CompiledStateGraph. It is distinct from RunConfig (config.go), which
// varies per Invoke* call. Options is typically built once via functional
// Option values and passed to StateGraph.Compile, matching the teacher's
// functional-options pattern (graph/options.go).
type Options struct {
	// MaxConcurrentNodes bounds how many frontier nodes are evaluated in
	// parallel within one super-step (spec.md §5). Zero means sequential
	// (frontier-insertion order, one at a time).
	MaxConcurrentNodes int

	// StreamBufferSize is a stored setting that the scheduler does not read:
	// InvokeWithStreaming/StreamWithModes always send to the sink the caller
	// passes in and never create a ChannelSink themselves.
	StreamBufferSize int

	// BackpressureTimeout bounds how long the scheduler waits for a
	// StreamSink's Send to return before it carries on without waiting (the
	// Send keeps running in its own goroutine). Zero means the scheduler
	// calls Send directly and waits for it (spec.md §4.12, §5).
	BackpressureTimeout time.Duration

	// DefaultNodeTimeout bounds every node's execution. Zero means unlimited.
	DefaultNodeTimeout time.Duration

	// RunWallClockBudget bounds the entire invocation's execution time.
	// Zero means unlimited.
	RunWallClockBudget time.Duration

	// Emitter receives observability events for node start/end/error and
	// super-step boundaries (graph/emit). Defaults to emit.NewNullEmitter()
	// when unset, so the scheduler always has a non-nil Emitter to call.
	Emitter emit.Emitter
}

// Option is a functional option for configuring Options, mirroring the
// teacher's chainable With* constructor pattern.
type Option func(*Options) error

// applyOptions folds a list of Options onto a zero-value Options struct.
func applyOptions(opts []Option) (Options, error) {
	var o Options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

// WithMaxConcurrent sets the maximum number of nodes executed concurrently
// within a single super-step. Default: 0 (sequential, frontier order).
func WithMaxConcurrent(n int) Option {
	return func(o *Options) error {
		o.MaxConcurrentNodes = n
		return nil
	}
}

// WithStreamBufferSize sets Options.StreamBufferSize, which the scheduler
// does not read.
func WithStreamBufferSize(n int) Option {
	return func(o *Options) error {
		o.StreamBufferSize = n
		return nil
	}
}

// WithBackpressureTimeout sets how long the scheduler waits for a stream
// sink's Send to return before carrying on without waiting.
func WithBackpressureTimeout(d time.Duration) Option {
	return func(o *Options) error {
		o.BackpressureTimeout = d
		return nil
	}
}

// WithDefaultNodeTimeout sets the engine-wide timeout applied to every
// node's execution.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(o *Options) error {
		o.DefaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget bounds total invocation wall-clock time.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(o *Options) error {
		o.RunWallClockBudget = d
		return nil
	}
}

// WithEmitter attaches an observability Emitter the scheduler notifies at
// node start/end/error and super-step boundaries.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) error {
		o.Emitter = e
		return nil
	}
}
