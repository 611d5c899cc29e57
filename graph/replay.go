// Package graph provides the core stateful graph execution engine.
package graph

import (
	"context"
	"encoding/json"
	"sort"
)

// copyChannelValues returns a shallow copy of a checkpoint's channel value
// map so a fork never aliases the source checkpoint's backing map.
func copyChannelValues(src map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// GetStateHistory returns every checkpoint recorded for thread, ordered
// oldest-first by Step, giving callers a full time-travel view of a run
// (spec.md §4.10). A thread with no checkpoints yields an empty slice, not
// an error.
func GetStateHistory(ctx context.Context, store CheckpointStore, threadID string) ([]Checkpoint, error) {
	cps, err := store.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	out := append([]Checkpoint(nil), cps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// ReplayToStep returns the checkpoint at the given step for thread, or
// ErrNotFound if no checkpoint was recorded at that exact step. Combined
// with CompiledStateGraph's resume path (cfg.CheckpointID set to the
// result's ID), this lets a caller rewind a run to any previously-committed
// node boundary and continue from there (spec.md §4.10 "time travel").
func ReplayToStep(ctx context.Context, store CheckpointStore, threadID string, step int) (Checkpoint, error) {
	cps, err := store.List(ctx, threadID)
	if err != nil {
		return Checkpoint{}, err
	}
	for _, cp := range cps {
		if cp.Step == step {
			return cp, nil
		}
	}
	return Checkpoint{}, ErrNotFound
}

// ForkFromCheckpoint copies a checkpoint into a brand-new thread: the copy
// gets a fresh ID and ThreadID, but ParentID is rewritten to point at the
// source checkpoint's ID so the fork's lineage crosses the thread boundary
// (spec.md §4.10). The original thread and checkpoint are left untouched;
// checkpoint IDs are never shared across threads.
func ForkFromCheckpoint(ctx context.Context, store CheckpointStore, sourceThreadID, checkpointID, newThreadID string) (Checkpoint, error) {
	source, err := store.Get(ctx, sourceThreadID, checkpointID)
	if err != nil {
		return Checkpoint{}, err
	}

	forked := source
	forked.ID = newCheckpointID()
	forked.ThreadID = newThreadID
	forked.ParentID = strPtr(source.ID)
	forked.ChannelValues = copyChannelValues(source.ChannelValues)
	forked.PendingNodes = append([]string(nil), source.PendingNodes...)
	forked.IdempotencyKey = computeIdempotencyKey(newThreadID, forked.Step, forked.PendingNodes, forked.ChannelValues)

	if err := store.Put(ctx, forked); err != nil {
		return Checkpoint{}, err
	}
	return forked, nil
}
