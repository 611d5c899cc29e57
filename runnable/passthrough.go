package runnable

import "context"

// Passthrough passes a map[string]interface{} input through unchanged,
// optionally computing additional fields via Assign (ayas-core's
// RunnablePassthrough). Unlike the rest of this package, Passthrough's
// Input/Output are fixed to map[string]interface{}, since "assign a
// computed field onto an object" only makes sense for object-shaped data.
type Passthrough struct {
	assignments []passthroughAssignment
}

type passthroughAssignment struct {
	key string
	r   Runnable
}

// NewPassthrough returns a Passthrough with no assignments; Invoke on it
// alone just echoes its input.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Assign registers a computed field: r receives the original input object
// and its output is inserted under key in the result. Assignments run in
// registration order and each sees the same original input, not the
// partially-built output (matching ayas-core's assign semantics).
func (p *Passthrough) Assign(key string, r Runnable) *Passthrough {
	p.assignments = append(p.assignments, passthroughAssignment{key: key, r: r})
	return p
}

// Invoke implements Runnable. input must be a map[string]interface{}.
func (p *Passthrough) Invoke(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
	obj, _ := input.(map[string]interface{})
	if len(p.assignments) == 0 {
		return input, nil
	}
	out := make(map[string]interface{}, len(obj)+len(p.assignments))
	for k, v := range obj {
		out[k] = v
	}
	for _, a := range p.assignments {
		v, err := a.r.Invoke(ctx, input, cfg)
		if err != nil {
			return nil, err
		}
		out[a.key] = v
	}
	return out, nil
}

// Batch implements Runnable using the sequential default.
func (p *Passthrough) Batch(ctx context.Context, inputs []interface{}, cfg Config) ([]interface{}, error) {
	return SequentialBatch(ctx, p, inputs, cfg)
}

// Stream implements Runnable using the single-item default.
func (p *Passthrough) Stream(ctx context.Context, input interface{}, cfg Config) (<-chan StreamItem, error) {
	return SingleItemStream(ctx, p, input, cfg)
}
