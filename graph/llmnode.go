// Package graph provides the core stateful graph execution engine.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/langgraph-go/graph/model"
	"github.com/dshills/langgraph-go/graph/tool"
)

// LLMNode adapts a model.ChatModel (and an optional tool.Tool registry) to
// the Node interface, so a compiled graph can include an LLM call as an
// ordinary frontier node. It reads a conversation history from an Append
// channel, calls the model, executes any requested tool calls synchronously,
// and appends the resulting messages back onto the same channel.
type LLMNode struct {
	// Model performs the actual chat completion.
	Model model.ChatModel

	// MessagesKey names the Append channel holding []model.Message history.
	MessagesKey string

	// Tools holds the executable implementations, matched to a tool call by
	// Tool.Name(). A tool call whose name matches no entry is skipped rather
	// than erroring, since an LLM can request a tool the node wasn't wired
	// with. Entries must be non-nil.
	Tools []tool.Tool

	// ToolSpecs is offered to the model so it knows which tools it may call.
	ToolSpecs []model.ToolSpec
}

func (n *LLMNode) toolByName(name string) tool.Tool {
	for _, t := range n.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Run implements Node.
func (n *LLMNode) Run(ctx context.Context, state State, cfg RunConfig) (Update, error) {
	var history []model.Message
	if err := state.Unmarshal(n.MessagesKey, &history); err != nil {
		return nil, err
	}

	out, err := n.Model.Chat(ctx, history, n.ToolSpecs)
	if err != nil {
		return nil, err
	}

	// An empty (not nil) slice marshals to [], which the Append channel
	// flattens to no elements; nil would marshal to null and be appended.
	appended := []model.Message{}
	if out.Text != "" {
		appended = append(appended, model.Message{Role: model.RoleAssistant, Content: out.Text})
	}
	for _, call := range out.ToolCalls {
		t := n.toolByName(call.Name)
		if t == nil {
			continue
		}
		result, err := t.Call(ctx, call.Input)
		if err != nil {
			return nil, err
		}
		appended = append(appended, model.Message{Role: "tool", Content: summarizeToolResult(result)})
	}

	update := NewUpdate()
	update.Set(n.MessagesKey, appended)
	return update, nil
}

func summarizeToolResult(result map[string]interface{}) string {
	var b strings.Builder
	first := true
	for k, v := range result {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(toDisplayString(v))
	}
	return b.String()
}

func toDisplayString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
