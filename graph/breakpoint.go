// Package graph provides the core stateful graph execution engine.
package graph

// BreakpointConfig configures CompiledStateGraph.InvokeWithBreakpoints
// (spec.md §4.11): a static node-name allowlist for pausing before and/or
// after evaluation, optionally gated by a condition over the state the
// breakpoint would observe. Breakpoints on node names absent from the
// compiled graph are ignored silently.
type BreakpointConfig struct {
	BreakBefore []string
	BreakAfter  []string
	Condition   func(State) bool
}

func (b BreakpointConfig) shouldBreak(names []string, nodeName string, state State) bool {
	hit := false
	for _, n := range names {
		if n == nodeName {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	if b.Condition == nil {
		return true
	}
	return b.Condition(state)
}

func (b BreakpointConfig) breakBefore(nodeName string, state State) bool {
	return b.shouldBreak(b.BreakBefore, nodeName, state)
}

func (b BreakpointConfig) breakAfter(nodeName string, state State) bool {
	return b.shouldBreak(b.BreakAfter, nodeName, state)
}

// breakpointPayload builds the {"breakpoint": phase, "node": name} payload
// spec.md §4.11 prescribes for the Interrupted result.
func breakpointPayload(phase, nodeName string) Update {
	u := NewUpdate()
	u.Set("breakpoint", phase)
	u.Set("node", nodeName)
	return u
}
