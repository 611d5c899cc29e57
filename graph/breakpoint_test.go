package graph

import (
	"context"
	"encoding/json"
	"testing"
)

// Testable property (spec.md §8): breakpoint-on-unknown-node runs to
// completion unchanged.
func TestBreakpoint_UnknownNodeIgnoredSilently(t *testing.T) {
	g := NewStateGraph().
		AddChannel("count", LastValue(json.RawMessage(`0`))).
		AddNode("a", intNode(1)).
		AddNode("b", intNode(1)).
		SetEntryPoint("a").
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End)
	compiled := mustCompile(t, g)
	store := NewMemoryCheckpointStore()

	out, err := compiled.InvokeWithBreakpoints(context.Background(), json.RawMessage(`{}`), RunConfig{ThreadID: "tb"}, store,
		BreakpointConfig{BreakBefore: []string{"does_not_exist"}, BreakAfter: []string{"also_missing"}})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.IsInterrupted() {
		t.Fatal("expected run to complete unchanged with breakpoints on unknown nodes")
	}
	var count int
	_ = out.State.Unmarshal("count", &count)
	if count != 2 {
		t.Errorf("expected count=2, got %d", count)
	}
}

func TestBreakpoint_ConditionGatesBreak(t *testing.T) {
	g := NewStateGraph().
		AddChannel("count", LastValue(json.RawMessage(`0`))).
		AddNode("a", intNode(1)).
		AddNode("b", intNode(1)).
		SetEntryPoint("a").
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End)
	compiled := mustCompile(t, g)
	store := NewMemoryCheckpointStore()

	neverBreak := BreakpointConfig{
		BreakBefore: []string{"b"},
		Condition:   func(State) bool { return false },
	}
	out, err := compiled.InvokeWithBreakpoints(context.Background(), json.RawMessage(`{}`), RunConfig{ThreadID: "tc"}, store, neverBreak)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.IsInterrupted() {
		t.Fatal("expected condition=false to suppress the breakpoint")
	}
}

// A break_before firing mid-frontier must record only the breaking node as
// pending, not the whole (possibly wider) frontier it was evaluated from.
func TestBreakpoint_BreakBeforeRecordsOnlyTheBreakingNode(t *testing.T) {
	g := NewStateGraph().
		AddNode("a", NodeFunc(emptyNode)).
		AddNode("b1", NodeFunc(emptyNode)).
		AddNode("b2", NodeFunc(emptyNode)).
		SetEntryPoint("a").
		AddEdge(Start, "a").
		AddEdge("a", "b1").
		AddEdge("a", "b2").
		AddEdge("b1", End).
		AddEdge("b2", End)
	compiled := mustCompile(t, g)
	store := NewMemoryCheckpointStore()

	out, err := compiled.InvokeWithBreakpoints(context.Background(), json.RawMessage(`{}`), RunConfig{ThreadID: "te"}, store,
		BreakpointConfig{BreakBefore: []string{"b1"}})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !out.IsInterrupted() {
		t.Fatal("expected break_before(b1) to interrupt")
	}
	cp, err := store.Get(context.Background(), "te", out.Interrupted.CheckpointID)
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if len(cp.PendingNodes) != 1 || cp.PendingNodes[0] != "b1" {
		t.Errorf("expected pending_nodes=[b1], got %v", cp.PendingNodes)
	}
}

func TestBreakpoint_BreakAfterFiresOnPostMergeState(t *testing.T) {
	g := NewStateGraph().
		AddChannel("count", LastValue(json.RawMessage(`0`))).
		AddNode("a", intNode(1)).
		AddNode("b", intNode(1)).
		SetEntryPoint("a").
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End)
	compiled := mustCompile(t, g)
	store := NewMemoryCheckpointStore()

	out, err := compiled.InvokeWithBreakpoints(context.Background(), json.RawMessage(`{}`), RunConfig{ThreadID: "td"}, store,
		BreakpointConfig{BreakAfter: []string{"a"}})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !out.IsInterrupted() {
		t.Fatal("expected break_after(a) to interrupt")
	}
	var count int
	_ = out.Interrupted.State.Unmarshal("count", &count)
	if count != 1 {
		t.Errorf("expected post-merge count=1 at break_after, got %d", count)
	}
}
