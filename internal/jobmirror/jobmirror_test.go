package jobmirror

import (
	"context"
	"testing"
)

func TestNilMirrorIsNoOp(t *testing.T) {
	var m *Mirror

	m.Put(context.Background(), "job-1", Entry{Completed: true})

	entry, ok, err := m.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no entry from a nil mirror")
	}
	if entry != (Entry{}) {
		t.Fatalf("expected zero entry, got %+v", entry)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_NoAddrDisabled(t *testing.T) {
	m, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatal("expected a nil mirror when no addr is configured")
	}
}
