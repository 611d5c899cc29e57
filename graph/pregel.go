// Package graph provides the core stateful graph execution engine.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/langgraph-go/graph/emit"
	"golang.org/x/sync/errgroup"
)

// CompiledStateGraph is the immutable, executable form of a StateGraph
// (spec.md §4.4), produced by StateGraph.Compile. It owns no mutable state
// of its own: every Invoke* call constructs its own fresh channel set (or
// restores one from a checkpoint) and runs the super-step loop in
// isolation, so a single CompiledStateGraph is safe for concurrent use by
// multiple callers.
type CompiledStateGraph struct {
	nodes            map[string]Node
	channels         map[string]ChannelSpec
	adjacency        map[string][]string
	conditionalEdges []ConditionalEdge
	entryPoint       string
	finishPoints     map[string]bool
	options          Options
}

// GraphOutput is the result of an invocation: State holds the final state of
// a completed run, and Interrupted is non-nil instead when the run paused.
type GraphOutput struct {
	State       State
	Interrupted *InterruptedResult
}

// IsInterrupted reports whether the run paused instead of completing.
func (o GraphOutput) IsInterrupted() bool { return o.Interrupted != nil }

// InterruptedResult carries everything needed to resume a paused run
// (spec.md §4.9, §4.11): the checkpoint to resume from, the value the
// interrupting node or breakpoint surfaced, and the state as of the pause.
type InterruptedResult struct {
	CheckpointID   string
	InterruptValue json.RawMessage
	State          State
}

// hooks bundles the optional cross-cutting concerns a particular Invoke*
// variant wires in. The zero value runs a plain, unobserved, non-resumable,
// non-streaming invocation.
type hooks struct {
	store       CheckpointStore
	breakpoints *BreakpointConfig
	observer    Observer
	sink        StreamSink
	modes       []StreamMode
}

// Invoke runs the graph to completion or interruption with no checkpoint
// store, no observer, and no streaming (spec.md §4.6 "Invoke").
func (g *CompiledStateGraph) Invoke(ctx context.Context, input json.RawMessage, cfg RunConfig) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{})
}

// InvokeResumable runs with checkpoint persistence enabled, so a later call
// supplying cfg.CheckpointID resumes from it (spec.md §4.9).
func (g *CompiledStateGraph) InvokeResumable(ctx context.Context, input json.RawMessage, cfg RunConfig, store CheckpointStore) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{store: store})
}

// InvokeWithObserver runs with checkpointing plus a per-node-step callback
// (spec.md §4.6).
func (g *CompiledStateGraph) InvokeWithObserver(ctx context.Context, input json.RawMessage, cfg RunConfig, store CheckpointStore, observer Observer) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{store: store, observer: observer})
}

// InvokeWithBreakpoints runs with checkpointing and the static break_before
// / break_after node allowlists (spec.md §4.11).
func (g *CompiledStateGraph) InvokeWithBreakpoints(ctx context.Context, input json.RawMessage, cfg RunConfig, store CheckpointStore, bp BreakpointConfig) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{store: store, breakpoints: &bp})
}

// InvokeWithStreaming runs with checkpointing and every StreamMode enabled,
// emitting to sink (spec.md §4.12).
func (g *CompiledStateGraph) InvokeWithStreaming(ctx context.Context, input json.RawMessage, cfg RunConfig, store CheckpointStore, sink StreamSink) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{
		store: store,
		sink:  sink,
		modes: []StreamMode{StreamValues, StreamUpdates, StreamMessages, StreamDebug},
	})
}

// StreamWithModes runs with checkpointing and only the requested StreamModes
// enabled.
func (g *CompiledStateGraph) StreamWithModes(ctx context.Context, input json.RawMessage, cfg RunConfig, store CheckpointStore, sink StreamSink, modes ...StreamMode) (GraphOutput, error) {
	return g.run(ctx, input, cfg, hooks{store: store, sink: sink, modes: modes})
}

// freshChannels builds a new live Channel for every declared spec.
func (g *CompiledStateGraph) freshChannels() map[string]Channel {
	out := make(map[string]Channel, len(g.channels))
	for name, spec := range g.channels {
		out[name] = NewChannel(spec)
	}
	return out
}

// snapshot builds the State a node or router observes: one Get() per
// channel (spec.md §4.5 step 2).
func (g *CompiledStateGraph) snapshot(channels map[string]Channel) State {
	s := make(State, len(channels))
	for name, ch := range channels {
		s[name] = ch.Get()
	}
	return s
}

// seedInput decodes a fresh run's input object and feeds each top-level key
// that names a declared channel into that channel's Update, in the
// iteration order Go gives map keys (the seed step runs once, so the
// per-LastValue ambiguous-write counter can never see more than one write
// here regardless of order).
func (g *CompiledStateGraph) seedInput(input json.RawMessage, channels map[string]Channel) error {
	if len(input) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil {
		return &EngineError{Message: "invalid input: " + err.Error(), Code: "INVALID_GRAPH", Cause: ErrInvalidGraph}
	}
	for name, raw := range fields {
		ch, ok := channels[name]
		if !ok {
			continue
		}
		if _, err := ch.Update([]json.RawMessage{raw}); err != nil {
			return err
		}
	}
	return nil
}

// ensureResumeChannel lazily declares the synthetic resume_value channel
// (spec.md §6) the first time a run actually injects a resume value, since
// it need not appear in the graph's declared channel set.
func ensureResumeChannel(channels map[string]Channel) {
	if _, ok := channels[resumeValueChannel]; !ok {
		channels[resumeValueChannel] = NewChannel(LastValue(nil))
	}
}

// commitPayload applies every key of an already-decoded directive payload
// to its matching channel, one Update call per key (spec.md §4.8).
func (g *CompiledStateGraph) commitPayload(payload Update, channels map[string]Channel) error {
	for name, raw := range payload {
		ch, ok := channels[name]
		if !ok {
			continue
		}
		if _, err := ch.Update([]json.RawMessage{raw}); err != nil {
			return err
		}
	}
	return nil
}

// staticSuccessors returns the static (non-conditional) successors of name
// in declaration order.
func (g *CompiledStateGraph) staticSuccessors(name string) []string {
	return g.adjacency[name]
}

// conditionalSuccessor evaluates the (at most one, per spec.md §3) router
// registered for name against state, returning the resolved target and
// whether a conditional edge applies at all.
func (g *CompiledStateGraph) conditionalSuccessor(name string, state State) (string, bool) {
	for _, ce := range g.conditionalEdges {
		if ce.From != name {
			continue
		}
		label := ce.Router(state)
		return ce.resolve(label), true
	}
	return "", false
}

// successorsOf computes the next frontier contribution for a node that just
// committed. A Command.goto override replaces static/conditional routing
// entirely; otherwise static edges and the (at most one) conditional edge
// union, matching the reference scheduler's "static and conditional edges
// compose" behavior.
func (g *CompiledStateGraph) successorsOf(name string, state State, gotoOverride string) []string {
	if gotoOverride != "" {
		return []string{gotoOverride}
	}
	successors := append([]string(nil), g.staticSuccessors(name)...)
	if target, ok := g.conditionalSuccessor(name, state); ok {
		successors = append(successors, target)
	}
	return successors
}

// dedupPreserveOrder drops End entries (the loop simply stops on them) and
// collapses duplicate node names so the scheduler never evaluates the same
// node twice within one super-step, while keeping first-seen order so
// frontier evaluation stays deterministic.
func dedupPreserveOrder(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == End || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func strPtr(s string) *string { return &s }

// emitterOf returns the configured Options.Emitter, or a NullEmitter when
// none was set via WithEmitter, so run() never needs a nil check.
func emitterOf(opts Options) emit.Emitter {
	if opts.Emitter == nil {
		return emit.NewNullEmitter()
	}
	return opts.Emitter
}

// marshalUpdate renders an Update (already composed of valid JSON values)
// as a single JSON object, for use as an InterruptedResult.InterruptValue.
func marshalUpdate(u Update) json.RawMessage {
	b, err := json.Marshal(u)
	if err != nil {
		return jsonNull
	}
	return b
}

// emit delivers evt to hooks.sink if the event's mode is enabled, applying
// BackpressureTimeout as a soft deadline: streaming is best-effort and must
// never block the scheduler beyond that bound (spec.md §4.12, §5). When the
// bound passes, the scheduler stops waiting and carries on; the Send call
// keeps running in its own goroutine, so the event may still be delivered
// later. No error is returned to the caller.
func (h hooks) emit(opts Options, evt StreamEvent) {
	if h.sink == nil || !modeEnabled(h.modes, evt.Mode) {
		return
	}
	if opts.BackpressureTimeout <= 0 {
		h.sink.Send(evt)
		return
	}
	done := make(chan struct{})
	go func() {
		h.sink.Send(evt)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(opts.BackpressureTimeout):
	}
}

// persistCheckpoint snapshots the live channels and writes a Checkpoint
// record when a store is configured; it is a no-op (returning a nil
// pointer) otherwise. nodeName is recorded in metadata.node_name; the
// idempotency key is derived from runID, step, pending and the channel
// values. A store failure is returned as an EngineError with code
// CHECKPOINT_ERROR wrapping the store's error.
func (g *CompiledStateGraph) persistCheckpoint(ctx context.Context, h hooks, runID string, parentID *string, step int, pending []string, channels map[string]Channel, source CheckpointSource, nodeName string) (*Checkpoint, error) {
	if h.store == nil {
		return nil, nil
	}
	values := snapshotChannelValues(channels)
	cp := Checkpoint{
		ID:            newCheckpointID(),
		ThreadID:      runID,
		ParentID:      parentID,
		Step:          step,
		ChannelValues: values,
		PendingNodes:  pending,
		Metadata:      CheckpointMetadata{Source: source, Step: step, NodeName: strPtr(nodeName)},
		CreatedAt:     time.Now(),
	}
	cp.IdempotencyKey = computeIdempotencyKey(runID, step, pending, values)
	if err := h.store.Put(ctx, cp); err != nil {
		return nil, &EngineError{Message: "checkpoint put: " + err.Error(), Code: "CHECKPOINT_ERROR", Cause: err}
	}
	return &cp, nil
}

// pauseAt persists a breakpoint checkpoint and returns the Interrupted
// result spec.md §4.11 prescribes.
func (g *CompiledStateGraph) pauseAt(ctx context.Context, channels map[string]Channel, h hooks, runID string, parentID *string, step int, nodeName string, source CheckpointSource, interruptValue json.RawMessage, pending []string) (GraphOutput, error) {
	cp, err := g.persistCheckpoint(ctx, h, runID, parentID, step, pending, channels, source, nodeName)
	if err != nil {
		return GraphOutput{}, err
	}
	result := &InterruptedResult{InterruptValue: interruptValue, State: g.snapshot(channels)}
	if cp != nil {
		result.CheckpointID = cp.ID
	}
	return GraphOutput{Interrupted: result}, nil
}

// nodeOutcome is the result of running one frontier node's Run method,
// gathered up-front (possibly concurrently) before any decoding, channel
// commit, or routing happens.
type nodeOutcome struct {
	name   string
	output Update
	err    error
}

// runFrontierNodes executes every node in frontier against the same
// pre-step snapshot. When Options.MaxConcurrentNodes > 1 and the frontier
// holds more than one node, it overlaps node
// execution via errgroup while still processing results sequentially in
// frontier order afterward, so routing, checkpointing, and ambiguous-write
// detection remain deterministic (spec.md §5: commits happen in a fixed
// order regardless of evaluation concurrency).
func (g *CompiledStateGraph) runFrontierNodes(ctx context.Context, frontier []string, snap State, cfg RunConfig) []nodeOutcome {
	outcomes := make([]nodeOutcome, len(frontier))

	if g.options.MaxConcurrentNodes > 1 && len(frontier) > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.options.MaxConcurrentNodes)
		for i, name := range frontier {
			i, name := i, name
			eg.Go(func() error {
				out, err := g.runOneNode(egCtx, name, snap, cfg)
				outcomes[i] = nodeOutcome{name: name, output: out, err: err}
				return nil
			})
		}
		_ = eg.Wait()
		return outcomes
	}

	for i, name := range frontier {
		out, err := g.runOneNode(ctx, name, snap, cfg)
		outcomes[i] = nodeOutcome{name: name, output: out, err: err}
	}
	return outcomes
}

func (g *CompiledStateGraph) runOneNode(ctx context.Context, name string, snap State, cfg RunConfig) (Update, error) {
	node, ok := g.nodes[name]
	if !ok {
		return nil, &EngineError{
			Message: fmt.Sprintf("frontier references unknown node %q", name),
			Code:    "INVALID_GRAPH",
			Cause:   ErrInvalidGraph,
		}
	}
	runCtx := ctx
	if g.options.DefaultNodeTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.options.DefaultNodeTimeout)
		defer cancel()
	}
	out, err := node.Run(runCtx, snap, cfg)
	if err != nil {
		return nil, &NodeError{Message: err.Error(), Code: "NODE_EXECUTION", NodeID: name, Cause: err}
	}
	if out == nil {
		out = Update{}
	}
	return out, nil
}

// run is the shared super-step loop behind every Invoke*/StreamWithModes
// entry point (spec.md §4.5-§4.11). Channel commits happen one node at a
// time, in frontier order, immediately after that node's directive is
// decoded: this gives conditional-edge routers a well-defined "my own
// write merged onto the pre-step state" view, and lets a step-scoped write
// counter on LastValue channels (channel.go) catch a second writer in the
// same super-step even though no cross-node buffering ever happens.
// Checkpoints are written per node, not per super-step, matching the
// granularity implied by spec.md §4.5's per-node event list.
func (g *CompiledStateGraph) run(ctx context.Context, input json.RawMessage, cfg RunConfig, h hooks) (GraphOutput, error) {
	if g.options.RunWallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.options.RunWallClockBudget)
		defer cancel()
	}

	emitter := emitterOf(g.options)
	channels := g.freshChannels()
	frontier := []string{g.entryPoint}
	var parentID *string
	step := 0
	runID := cfg.ThreadID

	if cfg.CheckpointID != "" {
		if h.store == nil {
			return GraphOutput{}, &EngineError{Message: "resume requires a CheckpointStore", Code: "INVALID_GRAPH", Cause: ErrInvalidGraph}
		}
		cp, err := h.store.Get(ctx, cfg.ThreadID, cfg.CheckpointID)
		if err != nil {
			return GraphOutput{}, err
		}
		for name, ch := range channels {
			if raw, ok := cp.ChannelValues[name]; ok {
				if err := ch.Restore(raw); err != nil {
					return GraphOutput{}, &EngineError{Message: "restoring channel " + name + ": " + err.Error(), Code: "INVALID_GRAPH", Cause: err}
				}
			}
		}
		frontier = append([]string(nil), cp.PendingNodes...)
		parentID = strPtr(cp.ID)
		step = cp.Step + 1
		if cfg.ResumeValue != nil {
			ensureResumeChannel(channels)
			if _, err := channels[resumeValueChannel].Update([]json.RawMessage{cfg.ResumeValue}); err != nil {
				return GraphOutput{}, err
			}
		}
	} else if err := g.seedInput(input, channels); err != nil {
		return GraphOutput{}, err
	}

	limit := cfg.recursionLimit()
	superStep := 0

	for len(frontier) > 0 {
		if superStep >= limit {
			return GraphOutput{}, &EngineError{
				Message: fmt.Sprintf("exceeded recursion_limit of %d", limit),
				Code:    "RECURSION_LIMIT",
				Cause:   ErrRecursionLimit,
			}
		}
		superStep++

		select {
		case <-ctx.Done():
			return GraphOutput{}, &EngineError{Message: ctx.Err().Error(), Code: "CANCELLED", Cause: ErrCancelled}
		default:
		}

		preStepSnap := g.snapshot(channels)
		stepStart := time.Now()

		if h.breakpoints != nil {
			for _, name := range frontier {
				if h.breakpoints.breakBefore(name, preStepSnap) {
					return g.pauseAt(ctx, channels, h, runID, parentID, step, name, SourceBreakpointBefore, marshalUpdate(breakpointPayload("before", name)), []string{name})
				}
			}
		}

		emitter.Emit(emit.Event{RunID: runID, Step: step, Msg: "super_step_start", Meta: map[string]interface{}{"frontier_size": len(frontier)}})
		outcomes := g.runFrontierNodes(ctx, frontier, preStepSnap, cfg)

		var nextFrontier []string
		for _, oc := range outcomes {
			if oc.err != nil {
				emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: oc.name, Msg: "error", Meta: map[string]interface{}{"error": oc.err.Error()}})
				return GraphOutput{}, oc.err
			}

			h.emit(g.options, StreamEvent{Mode: StreamDebug, Step: step, NodeID: oc.name, Phase: "node_start", Input: preStepSnap})
			emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: oc.name, Msg: "node_start"})

			directive, derr := decodeDirective(oc.name, oc.output)
			if derr != nil {
				return GraphOutput{}, derr
			}

			if err := g.commitPayload(directive.Payload, channels); err != nil {
				emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: oc.name, Msg: "error", Meta: map[string]interface{}{"error": err.Error()}})
				return GraphOutput{}, err
			}

			gotoOverride := ""
			if directive.Kind == DirectiveCommand {
				gotoOverride = directive.Command.Goto
			}

			h.emit(g.options, StreamEvent{Mode: StreamUpdates, Step: step, NodeID: oc.name, Delta: directive.Payload})
			h.emit(g.options, StreamEvent{Mode: StreamDebug, Step: step, NodeID: oc.name, Phase: "node_end", Output: directive.Payload})
			if raw, ok := oc.output["messages"]; ok {
				h.emit(g.options, StreamEvent{Mode: StreamMessages, Step: step, NodeID: oc.name, Message: raw})
			}

			if directive.Kind == DirectiveInterrupt {
				postNodeSnap := g.snapshot(channels)
				pending := dedupPreserveOrder(g.successorsOf(oc.name, postNodeSnap, ""))
				return g.pauseAt(ctx, channels, h, runID, parentID, step, oc.name, SourceInterrupt, directive.InterruptValue, pending)
			}

			if directive.Kind == DirectiveSend {
				dispatchSnap := g.snapshot(channels)
				for _, target := range directive.Sends {
					sendState := dispatchSnap.Clone()
					for k, v := range target.Input {
						sendState[k] = v
					}
					out, err := g.runOneNode(ctx, target.Node, sendState, cfg)
					if err != nil {
						return GraphOutput{}, err
					}
					sendDirective, derr := decodeDirective(target.Node, out)
					if derr != nil {
						return GraphOutput{}, derr
					}
					if sendDirective.Kind != DirectiveNormal {
						return GraphOutput{}, &NodeError{
							Message: "Send target must not itself emit a directive envelope",
							Code:    "INVALID_DIRECTIVE",
							NodeID:  target.Node,
							Cause:   ErrInvalidDirective,
						}
					}
					if err := g.commitPayload(sendDirective.Payload, channels); err != nil {
						return GraphOutput{}, err
					}
					h.emit(g.options, StreamEvent{Mode: StreamUpdates, Step: step, NodeID: target.Node, Delta: sendDirective.Payload})
				}
			}

			postCommitSnap := g.snapshot(channels)
			pendingForThisNode := dedupPreserveOrder(g.successorsOf(oc.name, postCommitSnap, gotoOverride))
			nextFrontier = append(nextFrontier, pendingForThisNode...)

			cp, err := g.persistCheckpoint(ctx, h, runID, parentID, step, pendingForThisNode, channels, SourceLoop, oc.name)
			if err != nil {
				return GraphOutput{}, err
			}
			if cp != nil {
				parentID = strPtr(cp.ID)
			}

			if h.observer != nil {
				h.observer(StepInfo{NodeName: oc.name, StepNumber: step, StateAfter: postCommitSnap})
			}
			emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: oc.name, Msg: "node_end", Meta: map[string]interface{}{"duration_ms": time.Since(stepStart).Milliseconds()}})

			if h.breakpoints != nil && h.breakpoints.breakAfter(oc.name, postCommitSnap) {
				return g.pauseAt(ctx, channels, h, runID, parentID, step, oc.name, SourceBreakpointAfter, marshalUpdate(breakpointPayload("after", oc.name)), pendingForThisNode)
			}

			step++
		}

		for _, ch := range channels {
			ch.OnStepEnd()
		}

		h.emit(g.options, StreamEvent{Mode: StreamValues, Step: step, Values: g.snapshot(channels)})
		frontier = dedupPreserveOrder(nextFrontier)
	}

	return GraphOutput{State: g.snapshot(channels)}, nil
}
