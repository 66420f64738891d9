package scheduler

import (
	"context"
	"testing"
)

type stubHandler struct{ typ string }

func (s *stubHandler) Type() string { return s.typ }
func (s *stubHandler) Run(ctx context.Context, job *Job) (Outcome, error) {
	return Outcome{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{typ: "fetch"}
	if err := r.Register(h, HandlerConfig{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Get("fetch")
	if !ok || got != h {
		t.Fatal("expected to retrieve the registered handler")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("expected unknown type to be absent")
	}
}

func TestRegistryRejectsDuplicateType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubHandler{typ: "fetch"}, HandlerConfig{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&stubHandler{typ: "fetch"}, HandlerConfig{}); err == nil {
		t.Fatal("expected duplicate type registration to be rejected")
	}
}

func TestRegistryRejectsNilOrEmptyType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil, HandlerConfig{}); err == nil {
		t.Fatal("expected nil handler to be rejected")
	}
	if err := r.Register(&stubHandler{typ: ""}, HandlerConfig{}); err == nil {
		t.Fatal("expected empty type to be rejected")
	}
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubHandler{typ: "a"}, HandlerConfig{})
	r.Register(&stubHandler{typ: "b"}, HandlerConfig{})
	types := r.Types()
	if _, ok := types["a"]; !ok {
		t.Fatal("expected type a present")
	}
	if _, ok := types["b"]; !ok {
		t.Fatal("expected type b present")
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
}
