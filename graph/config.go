package graph

import "encoding/json"

// RunConfig carries scoped execution parameters for a single invocation
// (spec.md §3 "Run config", §6). It is distinct from the engine-wide
// Options (options.go): RunConfig varies per Invoke* call, Options is fixed
// when the CompiledStateGraph's engine is constructed.
type RunConfig struct {
	// RecursionLimit bounds the number of super-steps (default 25).
	RecursionLimit int

	// ThreadID partitions checkpoint history. Required for any resumable
	// invocation; optional for the plain Invoke path.
	ThreadID string

	// CheckpointID, if set, is the resume target: execution restores
	// channels from this checkpoint instead of starting fresh.
	CheckpointID string

	// ResumeValue, if set, is injected into a synthetic "resume_value"
	// channel on resume (spec.md §6).
	ResumeValue json.RawMessage

	// Configurable is opaque passthrough data available to nodes via the
	// config argument; the engine never interprets it.
	Configurable map[string]interface{}
}

// DefaultRecursionLimit is used when RunConfig.RecursionLimit is zero.
const DefaultRecursionLimit = 25

func (c RunConfig) recursionLimit() int {
	if c.RecursionLimit > 0 {
		return c.RecursionLimit
	}
	return DefaultRecursionLimit
}

// resumeValueChannel is the synthetic channel name resume_value is injected
// into on resume (spec.md §6).
const resumeValueChannel = "resume_value"
