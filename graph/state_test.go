package graph

import (
	"encoding/json"
	"testing"
)

func TestState_Path(t *testing.T) {
	s := State{
		"user": json.RawMessage(`{"name":"ada","tags":["admin","beta"]}`),
	}

	if got := s.Path("user.name").String(); got != "ada" {
		t.Errorf("expected name=ada, got %q", got)
	}
	if got := s.Path("user.tags.0").String(); got != "admin" {
		t.Errorf("expected tags.0=admin, got %q", got)
	}
	if got := s.Path("user"); got.Raw == "" {
		t.Errorf("expected whole-channel path to resolve, got empty result")
	}
	if got := s.Path("missing.field"); got.Exists() {
		t.Errorf("expected missing channel to resolve to a non-existent result, got %v", got)
	}
}

func TestUpdate_SetPath(t *testing.T) {
	u := NewUpdate().SetPath("user", "name", "grace")
	var decoded map[string]interface{}
	if err := json.Unmarshal(u["user"], &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["name"] != "grace" {
		t.Errorf("expected name=grace, got %v", decoded["name"])
	}

	u = u.SetPath("user", "role", "admin")
	decoded = nil
	if err := json.Unmarshal(u["user"], &decoded); err != nil {
		t.Fatalf("unmarshal after second SetPath: %v", err)
	}
	if decoded["name"] != "grace" || decoded["role"] != "admin" {
		t.Errorf("expected both fields to survive successive SetPath calls, got %v", decoded)
	}
}
