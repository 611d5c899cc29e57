package graph

import "encoding/json"

// Reserved envelope keys a node's Update may carry to change control flow
// instead of (or in addition to) writing channels directly (spec.md §4.7,
// §6). Priority order, highest first: Command, Interrupt, Send, Normal —
// resolving spec.md §9's open question, and matching the decode order
// observed in the Rust reference scheduler (is_command, then is_interrupt,
// then is_send).
const (
	commandKey   = "__command__"
	interruptKey = "__interrupt__"
	sendKey      = "__send__"
)

// DirectiveKind classifies a decoded node output.
type DirectiveKind int

const (
	// DirectiveNormal: no envelope key present; the whole output applies
	// to channels.
	DirectiveNormal DirectiveKind = iota
	// DirectiveCommand: __command__ present.
	DirectiveCommand
	// DirectiveInterrupt: __interrupt__ present.
	DirectiveInterrupt
	// DirectiveSend: __send__ present.
	DirectiveSend
)

// commandEnvelope is the JSON shape of a __command__ value.
type commandEnvelope struct {
	Update Update `json:"update"`
	Goto   string `json:"goto"`
}

// SendTarget is one entry of a __send__ array: a target node and the input
// object to merge with current state for that node's fresh invocation.
type SendTarget struct {
	Node  string `json:"node"`
	Input Update `json:"input"`
}

// Directive is the decoded form of a node's output, following spec.md §9's
// suggested sum-type shape (Update | Command | Interrupt | Send).
type Directive struct {
	Kind DirectiveKind

	// Payload is the part of the output that applies to channels as a
	// normal write: for DirectiveNormal it is the whole output; for
	// DirectiveCommand it is Command.Update; for DirectiveInterrupt/Send it
	// is the output minus the envelope key.
	Payload Update

	// Command is populated when Kind == DirectiveCommand.
	Command commandEnvelope

	// InterruptValue is populated when Kind == DirectiveInterrupt.
	InterruptValue json.RawMessage

	// Sends is populated when Kind == DirectiveSend.
	Sends []SendTarget
}

// decodeDirective inspects a node's output for the reserved envelope keys,
// in priority order Command > Interrupt > Send > Normal.
func decodeDirective(nodeID string, output Update) (Directive, error) {
	if raw, ok := output[commandKey]; ok {
		var env commandEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Directive{}, &NodeError{
				Message: "malformed __command__ envelope: " + err.Error(),
				Code:    "INVALID_DIRECTIVE",
				NodeID:  nodeID,
				Cause:   ErrInvalidDirective,
			}
		}
		if env.Goto == "" {
			return Directive{}, &NodeError{
				Message: "__command__ envelope missing goto",
				Code:    "INVALID_DIRECTIVE",
				NodeID:  nodeID,
				Cause:   ErrInvalidDirective,
			}
		}
		if env.Update == nil {
			env.Update = Update{}
		}
		return Directive{Kind: DirectiveCommand, Payload: env.Update, Command: env}, nil
	}

	if raw, ok := output[interruptKey]; ok {
		payload := withoutKey(output, interruptKey)
		return Directive{Kind: DirectiveInterrupt, Payload: payload, InterruptValue: raw}, nil
	}

	if raw, ok := output[sendKey]; ok {
		var sends []SendTarget
		if err := json.Unmarshal(raw, &sends); err != nil {
			return Directive{}, &NodeError{
				Message: "malformed __send__ envelope: " + err.Error(),
				Code:    "INVALID_DIRECTIVE",
				NodeID:  nodeID,
				Cause:   ErrInvalidDirective,
			}
		}
		payload := withoutKey(output, sendKey)
		return Directive{Kind: DirectiveSend, Payload: payload, Sends: sends}, nil
	}

	return Directive{Kind: DirectiveNormal, Payload: output}, nil
}

func withoutKey(output Update, key string) Update {
	payload := make(Update, len(output))
	for k, v := range output {
		if k == key {
			continue
		}
		payload[k] = v
	}
	return payload
}
