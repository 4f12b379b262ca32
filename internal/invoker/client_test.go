package invoker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/domain"
)

func TestCall_AssignsFreshID(t *testing.T) {
	var seen domain.InvokeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exec" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := domain.InvokeResponse{ID: *seen.ID}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(NewPool(srv.URL))
	resp, err := c.Call(context.Background(), domain.InvokeRequest{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if seen.ID == nil || *seen.ID == uuid.Nil {
		t.Fatalf("expected a fresh non-nil id to be sent, got %v", seen.ID)
	}
	if resp.ID != *seen.ID {
		t.Fatalf("response id mismatch")
	}
}

func TestCall_RejectsNonNilID(t *testing.T) {
	c := New(NewPool("http://unused"))
	id := uuid.New()
	_, err := c.Call(context.Background(), domain.InvokeRequest{ID: &id})
	if err != ErrInvocationIDNotNil {
		t.Fatalf("expected ErrInvocationIDNotNil, got %v", err)
	}
}

func TestCall_NoPoolConfigured(t *testing.T) {
	c := New(NewPool())
	_, err := c.Call(context.Background(), domain.InvokeRequest{})
	if err != ErrNoPoolConfigured {
		t.Fatalf("expected ErrNoPoolConfigured, got %v", err)
	}
}

func TestCall_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(NewPool(srv.URL))
	_, err := c.Call(context.Background(), domain.InvokeRequest{})
	if err == nil {
		t.Fatalf("expected error for 500 status")
	}
}
