package runnable

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dshills/langgraph-go/graph"
)

func buildIncrementGraph(t *testing.T) *graph.CompiledStateGraph {
	t.Helper()
	sg := graph.NewStateGraph().
		AddChannel("count", graph.LastValue(json.RawMessage("0"))).
		AddNode("increment", graph.NodeFunc(func(_ context.Context, state graph.State, _ graph.RunConfig) (graph.Update, error) {
			var n int
			_ = state.Unmarshal("count", &n)
			u := graph.NewUpdate()
			u.Set("count", n+1)
			return u, nil
		})).
		AddEdge("increment", graph.End).
		SetEntryPoint("increment")

	compiled, err := sg.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return compiled
}

func TestGraphRunnable_Invoke(t *testing.T) {
	g := GraphRunnable{Graph: buildIncrementGraph(t), Cfg: graph.RunConfig{ThreadID: "t1"}}
	out, err := g.Invoke(context.Background(), json.RawMessage(`{"count":5}`), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(graph.GraphOutput)
	if result.IsInterrupted() {
		t.Fatal("expected non-interrupted result")
	}
	var n int
	if err := result.State.Unmarshal("count", &n); err != nil {
		t.Fatalf("unmarshal count: %v", err)
	}
	if n != 6 {
		t.Errorf("expected count=6, got %d", n)
	}
}

func TestGraphRunnable_InPipeChain(t *testing.T) {
	g := GraphRunnable{Graph: buildIncrementGraph(t), Cfg: graph.RunConfig{ThreadID: "t2"}}
	extractCount := InvokeFunc(func(_ context.Context, input interface{}, _ Config) (interface{}, error) {
		out := input.(graph.GraphOutput)
		var n int
		if err := out.State.Unmarshal("count", &n); err != nil {
			return nil, err
		}
		return n, nil
	})
	chain := Pipe(g, extractCount)
	out, err := chain.Invoke(context.Background(), json.RawMessage(`{"count":0}`), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 1 {
		t.Errorf("expected count=1, got %v", out)
	}
}
