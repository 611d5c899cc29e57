package graph

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeDirective_NormalOutputHasNoEnvelope(t *testing.T) {
	out := Update{"count": json.RawMessage("1")}
	d, err := decodeDirective("node-a", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveNormal {
		t.Errorf("expected DirectiveNormal, got %v", d.Kind)
	}
	if string(d.Payload["count"]) != "1" {
		t.Errorf("expected payload to carry the whole output, got %v", d.Payload)
	}
}

func TestDecodeDirective_Command(t *testing.T) {
	out := Update{}
	out.Set(commandKey, map[string]interface{}{
		"update": map[string]interface{}{"count": 2},
		"goto":   "node-b",
	})
	d, err := decodeDirective("node-a", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveCommand {
		t.Errorf("expected DirectiveCommand, got %v", d.Kind)
	}
	if d.Command.Goto != "node-b" {
		t.Errorf("expected goto=node-b, got %q", d.Command.Goto)
	}
}

func TestDecodeDirective_CommandMissingGotoIsInvalid(t *testing.T) {
	out := Update{}
	out.Set(commandKey, map[string]interface{}{"update": map[string]interface{}{}})
	_, err := decodeDirective("node-a", out)
	if !errors.Is(err, ErrInvalidDirective) {
		t.Errorf("expected ErrInvalidDirective, got %v", err)
	}
}

func TestDecodeDirective_Interrupt(t *testing.T) {
	out := Update{"count": json.RawMessage("1")}
	out.Set(interruptKey, "waiting for human input")
	d, err := decodeDirective("node-a", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveInterrupt {
		t.Errorf("expected DirectiveInterrupt, got %v", d.Kind)
	}
	if _, ok := d.Payload[interruptKey]; ok {
		t.Error("expected payload to exclude the envelope key")
	}
	var value string
	if err := json.Unmarshal(d.InterruptValue, &value); err != nil {
		t.Fatalf("unmarshal interrupt value: %v", err)
	}
	if value != "waiting for human input" {
		t.Errorf("expected interrupt value to round-trip, got %q", value)
	}
}

func TestDecodeDirective_Send(t *testing.T) {
	out := Update{}
	out.Set(sendKey, []SendTarget{
		{Node: "worker-1", Input: Update{"task": json.RawMessage(`"a"`)}},
		{Node: "worker-2", Input: Update{"task": json.RawMessage(`"b"`)}},
	})
	d, err := decodeDirective("dispatcher", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveSend {
		t.Errorf("expected DirectiveSend, got %v", d.Kind)
	}
	if len(d.Sends) != 2 {
		t.Fatalf("expected 2 send targets, got %d", len(d.Sends))
	}
	if d.Sends[0].Node != "worker-1" || d.Sends[1].Node != "worker-2" {
		t.Errorf("expected send targets in order, got %+v", d.Sends)
	}
}

func TestDecodeDirective_PriorityCommandBeatsInterruptAndSend(t *testing.T) {
	out := Update{}
	out.Set(commandKey, map[string]interface{}{"update": map[string]interface{}{}, "goto": "node-b"})
	out.Set(interruptKey, "should be ignored")
	out.Set(sendKey, []SendTarget{{Node: "worker", Input: Update{}}})
	d, err := decodeDirective("node-a", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveCommand {
		t.Errorf("expected Command to win over Interrupt and Send, got %v", d.Kind)
	}
}

func TestDecodeDirective_PriorityInterruptBeatsSend(t *testing.T) {
	out := Update{}
	out.Set(interruptKey, "pause")
	out.Set(sendKey, []SendTarget{{Node: "worker", Input: Update{}}})
	d, err := decodeDirective("node-a", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != DirectiveInterrupt {
		t.Errorf("expected Interrupt to win over Send, got %v", d.Kind)
	}
}
