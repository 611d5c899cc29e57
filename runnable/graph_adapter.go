package runnable

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/langgraph-go/graph"
)

// GraphRunnable adapts a graph.CompiledStateGraph to Runnable, so a compiled
// graph can sit alongside plain function-backed steps in a Pipe/Branch
// chain without every caller needing to know it's a graph underneath.
// Invoke's input may be a json.RawMessage, a []byte, or any value
// json.Marshal accepts; its output is the graph.GraphOutput (callers that
// need only the final state can read .State off it, or check
// .IsInterrupted()).
type GraphRunnable struct {
	Graph *graph.CompiledStateGraph
	Cfg   graph.RunConfig
}

// Invoke implements Runnable.
func (g GraphRunnable) Invoke(ctx context.Context, input interface{}, _ Config) (interface{}, error) {
	raw, err := toRawMessage(input)
	if err != nil {
		return nil, err
	}
	return g.Graph.Invoke(ctx, raw, g.Cfg)
}

// Batch implements Runnable using the sequential default.
func (g GraphRunnable) Batch(ctx context.Context, inputs []interface{}, cfg Config) ([]interface{}, error) {
	return SequentialBatch(ctx, g, inputs, cfg)
}

// Stream implements Runnable using the single-item default. A graph's own
// richer streaming (graph.CompiledStateGraph.StreamWithModes) is a separate,
// lower-level API; this just satisfies the Runnable contract.
func (g GraphRunnable) Stream(ctx context.Context, input interface{}, cfg Config) (<-chan StreamItem, error) {
	return SingleItemStream(ctx, g, input, cfg)
}

func toRawMessage(input interface{}) (json.RawMessage, error) {
	switch v := input.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	case nil:
		return nil, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("runnable: marshaling GraphRunnable input: %w", err)
		}
		return b, nil
	}
}
