package graph

import "encoding/json"

// StreamMode selects one of the four independently-selectable streaming
// views (spec.md §4.12).
type StreamMode int

const (
	// StreamValues emits the full state snapshot after each super-step.
	StreamValues StreamMode = iota
	// StreamUpdates emits the per-node output delta (post-directive-decoding)
	// at each node boundary.
	StreamUpdates
	// StreamMessages forwards token/tool events from LLM-typed nodes,
	// opaque to the engine and passed through verbatim from node-level
	// sinks via the "messages" key convention.
	StreamMessages
	// StreamDebug emits node-start/node-end with node name, step number,
	// and inputs/outputs.
	StreamDebug
)

// StreamEvent is one emission from the streaming layer. Only the fields
// relevant to Mode are populated.
type StreamEvent struct {
	Mode   StreamMode
	Step   int
	NodeID string

	// Values holds the full state snapshot (StreamValues).
	Values State
	// Delta holds the node's decoded output payload (StreamUpdates).
	Delta Update
	// Message holds an opaque passthrough value (StreamMessages).
	Message json.RawMessage
	// Phase is "node_start" or "node_end" (StreamDebug).
	Phase string
	// Input/Output mirror the node's invocation for StreamDebug.
	Input  State
	Output Update
}

// StreamSink receives StreamEvents. Implementations must not block node
// execution for long: the scheduler treats streaming as best-effort
// observability, never a correctness dependency (spec.md §4.12, §5).
type StreamSink interface {
	Send(StreamEvent)
}

// ChannelSink is a StreamSink backed by a bounded Go channel. When the
// channel is full, Send drops the oldest buffered event to make room
// (drop-oldest policy), resolving spec.md §9's flagged backpressure
// ambiguity in favor of "streaming never blocks the scheduler".
type ChannelSink struct {
	C chan StreamEvent
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(capacity int) *ChannelSink {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChannelSink{C: make(chan StreamEvent, capacity)}
}

// Send implements StreamSink with drop-oldest backpressure.
func (s *ChannelSink) Send(evt StreamEvent) {
	select {
	case s.C <- evt:
		return
	default:
	}
	// Full: drop the oldest buffered event, then try once more.
	select {
	case <-s.C:
	default:
	}
	select {
	case s.C <- evt:
	default:
		// Even the retry raced with another producer; drop evt itself
		// rather than block the scheduler.
	}
}

// modeEnabled reports whether mode is present in modes.
func modeEnabled(modes []StreamMode, mode StreamMode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

// StepInfo is the per-step callback payload for InvokeWithObserver
// (spec.md §4.6).
type StepInfo struct {
	NodeName   string
	StepNumber int
	StateAfter State
}

// Observer receives a StepInfo after every node evaluated.
type Observer func(StepInfo)
