// Package runnable provides a small composable-computation trait, grounded
// on ayas-core's Runnable trait (original_source/crates/ayas-core/src/runnable.rs).
// It lets a CompiledStateGraph be wired alongside plain function-backed
// steps — prompt formatting, parsing, a bare API call — without pulling a
// full graph/channel/checkpoint setup into scope for every leaf computation.
//
// Unlike graph.Node, a Runnable's Input and Output are untyped (any),
// matching this module's dynamic-state approach throughout rather than
// introducing a second, generic-typed composition mechanism alongside it.
package runnable

import "context"

// Config carries per-invocation configuration through a Runnable chain,
// mirroring graph.RunConfig.Configurable without depending on package graph
// (runnable must stay usable as a standalone composition layer).
type Config struct {
	RunID        string
	Configurable map[string]interface{}
}

// Runnable is the core abstraction for composable computation units.
// Implementations need only provide Invoke; Batch and Stream have default,
// Invoke-driven behavior available via the package-level SequentialBatch and
// SingleItemStream functions (Go has no default trait methods, so BaseRunnable — below —
// is the embeddable equivalent).
type Runnable interface {
	// Invoke processes a single input and returns a result.
	Invoke(ctx context.Context, input interface{}, cfg Config) (interface{}, error)

	// Batch processes multiple inputs. A sequential default is available via
	// SequentialBatch; BaseRunnable uses it unless overridden.
	Batch(ctx context.Context, inputs []interface{}, cfg Config) ([]interface{}, error)

	// Stream yields output chunks for a single input. A single-item default
	// is available via SingleItemStream; BaseRunnable uses it unless
	// overridden.
	Stream(ctx context.Context, input interface{}, cfg Config) (<-chan StreamItem, error)
}

// StreamItem is one element of a Runnable.Stream channel: either a value or
// a terminal error, never both. The channel is closed after the first error
// or after the underlying computation completes.
type StreamItem struct {
	Value interface{}
	Err   error
}

// InvokeFunc adapts a plain function to Runnable, mirroring graph.NodeFunc,
// using the package-level defaults for Batch and Stream.
type InvokeFunc func(ctx context.Context, input interface{}, cfg Config) (interface{}, error)

// Invoke implements Runnable.
func (f InvokeFunc) Invoke(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
	return f(ctx, input, cfg)
}

// Batch implements Runnable using the sequential default.
func (f InvokeFunc) Batch(ctx context.Context, inputs []interface{}, cfg Config) ([]interface{}, error) {
	return SequentialBatch(ctx, f, inputs, cfg)
}

// Stream implements Runnable using the single-item default.
func (f InvokeFunc) Stream(ctx context.Context, input interface{}, cfg Config) (<-chan StreamItem, error) {
	return SingleItemStream(ctx, f, input, cfg)
}

// SequentialBatch is the default Batch behavior: invoke r once per input, in
// order, stopping at the first error. ayas-core's default batch is
// sequential too (a tokio JoinSet variant is left to callers that need
// concurrency, same as here via ConcurrentBatch).
func SequentialBatch(ctx context.Context, r Runnable, inputs []interface{}, cfg Config) ([]interface{}, error) {
	out := make([]interface{}, 0, len(inputs))
	for _, in := range inputs {
		v, err := r.Invoke(ctx, in, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SingleItemStream is the default Stream behavior: invoke r once and yield
// its single result (or error) on the returned channel, then close it.
func SingleItemStream(ctx context.Context, r Runnable, input interface{}, cfg Config) (<-chan StreamItem, error) {
	ch := make(chan StreamItem, 1)
	v, err := r.Invoke(ctx, input, cfg)
	if err != nil {
		ch <- StreamItem{Err: err}
		close(ch)
		return ch, nil
	}
	ch <- StreamItem{Value: v}
	close(ch)
	return ch, nil
}

// BaseRunnable embeds a bare Invoke function and satisfies Runnable by
// falling back to SequentialBatch/SingleItemStream, so a composer (Pipe,
// Branch, WithFallback, below) only has to supply Invoke logic.
type BaseRunnable struct {
	InvokeFn func(ctx context.Context, input interface{}, cfg Config) (interface{}, error)
}

// Invoke implements Runnable.
func (b BaseRunnable) Invoke(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
	return b.InvokeFn(ctx, input, cfg)
}

// Batch implements Runnable.
func (b BaseRunnable) Batch(ctx context.Context, inputs []interface{}, cfg Config) ([]interface{}, error) {
	return SequentialBatch(ctx, b, inputs, cfg)
}

// Stream implements Runnable.
func (b BaseRunnable) Stream(ctx context.Context, input interface{}, cfg Config) (<-chan StreamItem, error) {
	return SingleItemStream(ctx, b, input, cfg)
}
