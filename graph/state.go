package graph

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// State is a dense snapshot of channel values, keyed by channel name. It is
// built fresh at the start of every super-step by asking each channel for
// Get() (spec.md §4.5 step 2), and is the value nodes and conditional-edge
// routers observe.
//
// State is deliberately a plain map rather than a typed struct: node
// functions come from disparate sources (LLM adapters, user code, tool
// outputs) and spec.md's Non-goals explicitly exclude typed compile-time
// state schemas. Channels interpret their own values; nothing here assumes
// a shape beyond "JSON value per declared key".
type State map[string]json.RawMessage

// Clone returns a shallow copy of the state map. json.RawMessage values are
// treated as immutable once produced, so a shallow copy is sufficient to
// hand a node its own snapshot without it mutating the scheduler's map.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the raw value for key, or nil if absent.
func (s State) Get(key string) json.RawMessage {
	return s[key]
}

// Unmarshal decodes the value at key into v. Returns nil without touching v
// if the key is absent.
func (s State) Unmarshal(key string, v interface{}) error {
	raw, ok := s[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Path evaluates a gjson path expression against the channel named by the
// first path segment (e.g. "messages.0.role" reads field "role" of the
// first element of the "messages" channel). Nodes that need to peek into a
// nested field without fully unmarshaling a channel's value use this
// instead of hand-rolled map/slice assertions, matching the teacher's
// gjson-for-dynamic-JSON idiom.
func (s State) Path(path string) gjson.Result {
	dot := len(path)
	for i, r := range path {
		if r == '.' {
			dot = i
			break
		}
	}
	key := path[:dot]
	raw, ok := s[key]
	if !ok {
		return gjson.Result{}
	}
	if dot == len(path) {
		return gjson.ParseBytes(raw)
	}
	return gjson.GetBytes(raw, path[dot+1:])
}

// Update is a node's output object: a plain map from channel name to a raw
// JSON value to feed that channel's Update for the current super-step, plus
// (optionally) a directive envelope key recognised by the decoder (§4.7).
type Update map[string]json.RawMessage

// Set stores v, marshaled to JSON, under key and returns the Update for
// chaining.
func (u Update) Set(key string, v interface{}) Update {
	b, err := json.Marshal(v)
	if err != nil {
		// Node authors are expected to pass JSON-marshalable values; a
		// failure here indicates a programming error in the node, not a
		// runtime condition the engine can recover from.
		panic("graph: Update.Set: " + err.Error())
	}
	u[key] = b
	return u
}

// NewUpdate builds an empty Update.
func NewUpdate() Update { return Update{} }

// SetPath sets a nested field within key's value using an sjson path
// expression, marshaling key's current value to "{}" first if it is absent
// from the Update. Mirrors Set's panic-on-marshal-failure contract.
func (u Update) SetPath(key, path string, v interface{}) Update {
	base := u[key]
	if base == nil {
		base = json.RawMessage("{}")
	}
	out, err := sjson.SetBytes(base, path, v)
	if err != nil {
		panic("graph: Update.SetPath: " + err.Error())
	}
	u[key] = out
	return u
}
