package graph

import "fmt"

// StateGraph accumulates channels, nodes, and edges, and validates them
// into an immutable CompiledStateGraph (spec.md §4.4). Grounded on the
// reference builder's add_node/add_edge/set_entry_point/compile shape
// (ayas-graph/src/state_graph.rs), adapted to the teacher's Go builder
// idiom (chainable `Add*` methods returning the receiver, explicit `error`
// returns rather than panics).
type StateGraph struct {
	nodes            map[string]Node
	channels         map[string]ChannelSpec
	edges            []Edge
	conditionalEdges []ConditionalEdge
	entryPoint       string
	finishPoints     map[string]bool

	// buildErr latches the first builder-time error (e.g. a duplicate node
	// name) so Add* methods can keep their chainable, error-less signature;
	// Compile surfaces it before running any other validation.
	buildErr error
}

// NewStateGraph creates an empty builder.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:        make(map[string]Node),
		channels:     make(map[string]ChannelSpec),
		finishPoints: make(map[string]bool),
	}
}

// AddChannel declares a channel by name. Re-declaring an existing name
// overwrites its spec; channels have no ordering dependency on nodes.
func (g *StateGraph) AddChannel(name string, spec ChannelSpec) *StateGraph {
	g.channels[name] = spec
	return g
}

// AddNode registers a named node. Re-adding a name already registered is
// rejected (the first registration wins and the collision is latched as a
// builder error), matching the reference builder's "Duplicate node" message.
// The reserved sentinels __start__/__end__ are rejected at Compile time.
func (g *StateGraph) AddNode(name string, node Node) *StateGraph {
	if _, exists := g.nodes[name]; exists {
		if g.buildErr == nil {
			g.buildErr = invalidGraph("duplicate node %q", name)
		}
		return g
	}
	g.nodes[name] = node
	return g
}

// AddEdge declares a static edge. from/to may be a node name or a
// sentinel.
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges = append(g.edges, Edge{From: from, To: to})
	return g
}

// AddConditionalEdge declares a dynamic router from a node.
func (g *StateGraph) AddConditionalEdge(from string, router Router, pathMap map[string]string) *StateGraph {
	g.conditionalEdges = append(g.conditionalEdges, ConditionalEdge{From: from, Router: router, PathMap: pathMap})
	return g
}

// SetEntryPoint marks the node the scheduler starts on. Implicitly adds the
// synthetic Start -> entry edge at Compile time.
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	g.entryPoint = name
	return g
}

// SetFinishPoint marks a node whose completion implicitly reaches End,
// matching the reference builder's finish-point concept.
func (g *StateGraph) SetFinishPoint(name string) *StateGraph {
	g.finishPoints[name] = true
	return g
}

func invalidGraph(format string, args ...interface{}) error {
	return &EngineError{Message: fmt.Sprintf(format, args...), Code: "INVALID_GRAPH", Cause: ErrInvalidGraph}
}

// Compile validates the accumulated graph and returns an immutable
// CompiledStateGraph. Validation order and messages follow spec.md §4.4.
// Engine-wide Options (concurrency, timeouts, streaming, emitter) are supplied via
// functional Option values, matching the teacher's configuration idiom.
func (g *StateGraph) Compile(opts ...Option) (*CompiledStateGraph, error) {
	if g.buildErr != nil {
		return nil, g.buildErr
	}

	options, err := applyOptions(opts)
	if err != nil {
		return nil, invalidGraph("invalid option: %s", err.Error())
	}

	if err := g.validateNames(); err != nil {
		return nil, err
	}
	if g.entryPoint == "" {
		return nil, invalidGraph("entry point not set")
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, invalidGraph("entry point %q does not exist", g.entryPoint)
	}
	if err := g.validateEndpoints(); err != nil {
		return nil, err
	}
	if err := g.validateFinishPoints(); err != nil {
		return nil, err
	}
	if err := g.validateReachability(); err != nil {
		return nil, err
	}

	adjacency := make(map[string][]string)
	adjacency[Start] = []string{g.entryPoint}
	for _, e := range g.edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}
	for name := range g.finishPoints {
		adjacency[name] = append(adjacency[name], End)
	}

	channels := make(map[string]ChannelSpec, len(g.channels))
	for k, v := range g.channels {
		channels[k] = v
	}
	nodes := make(map[string]Node, len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}

	return &CompiledStateGraph{
		nodes:            nodes,
		channels:         channels,
		adjacency:        adjacency,
		conditionalEdges: append([]ConditionalEdge(nil), g.conditionalEdges...),
		entryPoint:       g.entryPoint,
		finishPoints:     g.finishPoints,
		options:          options,
	}, nil
}

func (g *StateGraph) validateNames() error {
	for name := range g.nodes {
		if name == Start || name == End {
			return invalidGraph("node name %q is reserved", name)
		}
		if name == "" {
			return invalidGraph("node name must not be empty")
		}
	}
	return nil
}

func (g *StateGraph) isKnownTarget(name string) bool {
	if name == Start || name == End {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

func (g *StateGraph) validateEndpoints() error {
	for _, e := range g.edges {
		if !g.isKnownTarget(e.From) {
			return invalidGraph("edge references unknown node %q", e.From)
		}
		if !g.isKnownTarget(e.To) {
			return invalidGraph("edge references unknown node %q", e.To)
		}
	}
	for _, ce := range g.conditionalEdges {
		if !g.isKnownTarget(ce.From) {
			return invalidGraph("conditional edge references unknown node %q", ce.From)
		}
		if ce.Router == nil {
			return invalidGraph("conditional edge from %q has no router", ce.From)
		}
		for _, target := range ce.PathMap {
			if !g.isKnownTarget(target) {
				return invalidGraph("conditional edge path_map references unknown node %q", target)
			}
		}
	}
	return nil
}

func (g *StateGraph) validateFinishPoints() error {
	for name := range g.finishPoints {
		if _, ok := g.nodes[name]; !ok {
			return invalidGraph("finish point %q does not exist", name)
		}
	}
	return nil
}

// validateReachability performs a BFS from the entry point over static
// edges, conditional edges (using path_map targets when available, else
// conservatively assuming every node and End is reachable), and
// finish->End edges. Every declared node must be visited. Cycles are
// permitted (spec.md §4.4 step 4).
func (g *StateGraph) validateReachability() error {
	visited := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}

	staticSucc := make(map[string][]string)
	for _, e := range g.edges {
		staticSucc[e.From] = append(staticSucc[e.From], e.To)
	}
	condSucc := make(map[string][]string)
	for _, ce := range g.conditionalEdges {
		if ce.PathMap != nil {
			for _, target := range ce.PathMap {
				condSucc[ce.From] = append(condSucc[ce.From], target)
			}
		} else {
			// No path_map: the router's label set is unknown statically, so
			// conservatively treat every other node (plus End) as reachable
			// from this node rather than under-reporting reachability.
			for name := range g.nodes {
				condSucc[ce.From] = append(condSucc[ce.From], name)
			}
			condSucc[ce.From] = append(condSucc[ce.From], End)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		successors := append(append([]string{}, staticSucc[cur]...), condSucc[cur]...)
		if g.finishPoints[cur] {
			successors = append(successors, End)
		}
		for _, next := range successors {
			if next == End || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	for name := range g.nodes {
		if !visited[name] {
			return invalidGraph("node %q is not reachable from the entry point", name)
		}
	}
	return nil
}
