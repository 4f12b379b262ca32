package auditlog

import (
	"context"
	"testing"
	"time"
)

func TestNilBatcherIsNoOp(t *testing.T) {
	var b *Batcher

	b.Enqueue(Record{JobID: "job-1"})
	b.Shutdown(time.Second)
}

func TestNew_NoDSNDisabled(t *testing.T) {
	b, err := New(context.Background(), "", Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Fatal("expected a nil batcher when no dsn is configured")
	}
}
