package graph

// Edge is a static successor declaration (spec.md §3): `from` may be
// Start or a node name; `to` may be End or a node name.
type Edge struct {
	From string
	To   string
}

// Router evaluates the post-merge state and returns a label. If the owning
// ConditionalEdge has a PathMap, the label is looked up there; otherwise
// the label is itself the target node name (or End).
type Router func(state State) string

// ConditionalEdge is a dynamic successor declaration (spec.md §3): `from`,
// a router function, and an optional path_map constraining (and
// translating) the router's output labels.
//
// When PathMap is non-nil, only its values are reachable targets for static
// reachability analysis (spec.md §4.4 step 4); when nil, the conditional
// edge is treated as reaching every declared node plus End.
type ConditionalEdge struct {
	From    string
	Router  Router
	PathMap map[string]string
}

// resolve translates a router label through PathMap when present.
func (c ConditionalEdge) resolve(label string) string {
	if c.PathMap == nil {
		return label
	}
	if target, ok := c.PathMap[label]; ok {
		return target
	}
	return label
}
