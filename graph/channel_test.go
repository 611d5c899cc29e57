package graph

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLastValueChannel_SingleWriteUpdatesValue(t *testing.T) {
	ch := NewChannel(LastValue(json.RawMessage(`0`)))
	changed, err := ch.Update([]json.RawMessage{json.RawMessage(`5`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected changed=true")
	}
	if string(ch.Get()) != "5" {
		t.Errorf("expected value 5, got %s", ch.Get())
	}
}

func TestLastValueChannel_EqualWriteIsNotAChange(t *testing.T) {
	ch := NewChannel(LastValue(json.RawMessage(`5`)))
	changed, err := ch.Update([]json.RawMessage{json.RawMessage(`5`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected changed=false for an equal write")
	}
}

func TestLastValueChannel_TwoWritesSameStepIsAmbiguous(t *testing.T) {
	ch := NewChannel(LastValue(nil))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`1`)}); err != nil {
		t.Fatalf("first write: unexpected error: %v", err)
	}
	_, err := ch.Update([]json.RawMessage{json.RawMessage(`2`)})
	if err == nil {
		t.Fatal("expected ambiguous-write error on second write in the same step")
	}
	if !errors.Is(err, ErrChannelViolation) {
		t.Errorf("expected ErrChannelViolation, got %v", err)
	}
}

func TestLastValueChannel_OnStepEndResetsWriteCounter(t *testing.T) {
	ch := NewChannel(LastValue(nil))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`1`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch.OnStepEnd()
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`2`)}); err != nil {
		t.Fatalf("expected a write in the next step to succeed, got %v", err)
	}
}

func TestLastValueChannel_SingleCallWithTwoValuesIsAmbiguous(t *testing.T) {
	ch := NewChannel(LastValue(nil))
	_, err := ch.Update([]json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)})
	if !errors.Is(err, ErrChannelViolation) {
		t.Errorf("expected ErrChannelViolation for a single call carrying two values, got %v", err)
	}
}

func TestLastValueChannel_RestoreThenResetGoesToDefault(t *testing.T) {
	ch := NewChannel(LastValue(json.RawMessage(`"default"`)))
	if err := ch.Restore(json.RawMessage(`"restored"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ch.Get()) != `"restored"` {
		t.Errorf("expected restored value, got %s", ch.Get())
	}
	ch.Reset()
	if string(ch.Get()) != `"default"` {
		t.Errorf("expected default value after Reset, got %s", ch.Get())
	}
}

func TestAppendChannel_FlattensOneLevelOfArrays(t *testing.T) {
	ch := NewChannel(AppendChannel())
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`["a","b"]`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`"c"`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	if err := json.Unmarshal(ch.Get(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestAppendChannel_NestedArrayIsNotDoubleFlattened(t *testing.T) {
	ch := NewChannel(AppendChannel())
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`[["x","y"]]`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []json.RawMessage
	if err := json.Unmarshal(ch.Get(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one flattened element (the inner array), got %d", len(got))
	}
	if string(got[0]) != `["x","y"]` {
		t.Errorf("expected inner array preserved verbatim, got %s", got[0])
	}
}

func TestBinaryOperatorChannel_Sum(t *testing.T) {
	ch := NewChannel(BinaryOperatorChannel(json.RawMessage(`0`), OpSum))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`3`), json.RawMessage(`4`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ch.Get()) != "7" {
		t.Errorf("expected 7, got %s", ch.Get())
	}
}

func TestBinaryOperatorChannel_Max(t *testing.T) {
	ch := NewChannel(BinaryOperatorChannel(json.RawMessage(`0`), OpMax))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`3`), json.RawMessage(`9`), json.RawMessage(`5`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ch.Get()) != "9" {
		t.Errorf("expected 9, got %s", ch.Get())
	}
}

func TestBinaryOperatorChannel_Custom(t *testing.T) {
	concat := func(current, incoming json.RawMessage) (json.RawMessage, error) {
		var a, b string
		_ = json.Unmarshal(current, &a)
		_ = json.Unmarshal(incoming, &b)
		return json.Marshal(a + b)
	}
	ch := NewChannel(CustomOperatorChannel(json.RawMessage(`""`), concat))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`"foo"`), json.RawMessage(`"bar"`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ch.Get()) != `"foobar"` {
		t.Errorf("expected \"foobar\", got %s", ch.Get())
	}
}

func TestEphemeralChannel_ClearsAtStepEnd(t *testing.T) {
	ch := NewChannel(EphemeralChannel())
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`"scratch"`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ch.Get()) != `"scratch"` {
		t.Errorf("expected scratch value, got %s", ch.Get())
	}
	ch.OnStepEnd()
	if string(ch.Get()) != "null" {
		t.Errorf("expected null after OnStepEnd, got %s", ch.Get())
	}
}

func TestEphemeralChannel_AlwaysCheckpointsNull(t *testing.T) {
	ch := NewChannel(EphemeralChannel())
	_, _ = ch.Update([]json.RawMessage{json.RawMessage(`"scratch"`)})
	if string(ch.Checkpoint()) != "null" {
		t.Errorf("expected checkpoint of Ephemeral to always be null, got %s", ch.Checkpoint())
	}
}

func TestTopicChannel_NonAccumulatingClearsAtStepEnd(t *testing.T) {
	ch := NewChannel(TopicChannel(false))
	if _, err := ch.Update([]json.RawMessage{json.RawMessage(`"m1"`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch.OnStepEnd()
	var got []string
	_ = json.Unmarshal(ch.Get(), &got)
	if len(got) != 0 {
		t.Errorf("expected empty topic after OnStepEnd, got %v", got)
	}
}

func TestTopicChannel_AccumulatingPersistsAcrossSteps(t *testing.T) {
	ch := NewChannel(TopicChannel(true))
	_, _ = ch.Update([]json.RawMessage{json.RawMessage(`"m1"`)})
	ch.OnStepEnd()
	_, _ = ch.Update([]json.RawMessage{json.RawMessage(`"m2"`)})
	var got []string
	_ = json.Unmarshal(ch.Get(), &got)
	if len(got) != 2 {
		t.Errorf("expected both messages retained, got %v", got)
	}
}
