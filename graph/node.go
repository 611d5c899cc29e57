package graph

import "context"

// Reserved sentinel node names (spec.md §3, §6). Both are invalid as
// user-defined node names; StateGraph.Compile rejects them.
const (
	Start = "__start__"
	End   = "__end__"
)

// Node is a named asynchronous computation over the shared state (spec.md
// §4.2). It receives the current state snapshot and a read-only run
// config, and returns an Update — possibly carrying a directive envelope
// (§4.7) — or an error.
//
// Any error returned is wrapped with the node's name by the scheduler and
// propagates as the invocation's terminal failure (spec.md §7,
// NodeExecution).
type Node interface {
	Run(ctx context.Context, state State, cfg RunConfig) (Update, error)
}

// NodeFunc adapts a plain function to the Node interface, mirroring the
// teacher's NodeFunc[S] adapter so node authors rarely need a named type.
type NodeFunc func(ctx context.Context, state State, cfg RunConfig) (Update, error)

// Run implements Node for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, state State, cfg RunConfig) (Update, error) {
	return f(ctx, state, cfg)
}
