// Package graph provides the core stateful graph execution engine.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CheckpointSource enumerates the allowed values of Checkpoint.Metadata.Source
// (spec.md §6).
type CheckpointSource string

const (
	SourceLoop             CheckpointSource = "loop"
	SourceInterrupt        CheckpointSource = "interrupt"
	SourceSend             CheckpointSource = "send"
	SourceCommand          CheckpointSource = "command"
	SourceBreakpointBefore CheckpointSource = "breakpoint_before"
	SourceBreakpointAfter  CheckpointSource = "breakpoint_after"
	SourceUnknown          CheckpointSource = "unknown"
)

// CheckpointMetadata is the `metadata` field of a Checkpoint record
// (spec.md §6, field-exact).
type CheckpointMetadata struct {
	Source   CheckpointSource `json:"source"`
	Step     int              `json:"step"`
	NodeName *string          `json:"node_name"`
}

// Checkpoint is the immutable, serializable snapshot record spec.md §6
// defines field-exact. ChannelValues and PendingNodes are plain
// JSON-marshalable types so a CheckpointStore can round-trip them through a
// text column without depending on package-internal types.
//
// IdempotencyKey extends the spec-mandated fields with the teacher's
// duplicate-commit guard, computed from (thread, step, pending nodes,
// channel values) so a retried Put is detectable; it rides alongside the
// record but is not part of spec.md §6's field-exact wire format.
type Checkpoint struct {
	ID            string                     `json:"id"`
	ThreadID      string                     `json:"thread_id"`
	ParentID      *string                    `json:"parent_id"`
	Step          int                        `json:"step"`
	ChannelValues map[string]json.RawMessage `json:"channel_values"`
	PendingNodes  []string                   `json:"pending_nodes"`
	Metadata      CheckpointMetadata         `json:"metadata"`
	CreatedAt     time.Time                  `json:"created_at"`

	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// newCheckpointID generates a fresh UUID v4 (spec.md §6: "id: string (UUID v4)").
func newCheckpointID() string {
	return uuid.NewString()
}

// snapshotChannelValues builds the channel_values object for a checkpoint
// by asking every channel for its Checkpoint() snapshot. Ephemeral channels
// always snapshot null (spec.md §4.1).
func snapshotChannelValues(channels map[string]Channel) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(channels))
	for name, ch := range channels {
		out[name] = ch.Checkpoint()
	}
	return out
}

// computeIdempotencyKey hashes (runID, step, sorted pending nodes, channel
// values) into a "sha256:<hex>" string, preventing duplicate checkpoint
// commits on retry. Adapted from the teacher's CheckpointV2 idempotency
// scheme, generalized from a typed work-item list to the dynamic channel
// map this engine uses.
func computeIdempotencyKey(runID string, step int, pendingNodes []string, channelValues map[string]json.RawMessage) string {
	sorted := append([]string(nil), pendingNodes...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(runID))
	stepBytes, _ := json.Marshal(step)
	h.Write(stepBytes)
	nodesBytes, _ := json.Marshal(sorted)
	h.Write(nodesBytes)

	keys := make([]string, 0, len(channelValues))
	for k := range channelValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(channelValues[k])
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
