package reqbuilder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

func TestInternRoundTrip(t *testing.T) {
	data := []byte("hello world")
	src := Intern(data)
	if src.Kind != "inline_base64" {
		t.Fatalf("unexpected kind %q", src.Kind)
	}
	decoded, err := base64.StdEncoding.DecodeString(src.InlineBase64)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("round trip mismatch: got %q", decoded)
	}
}

func TestReadOutput_NotFound(t *testing.T) {
	resp := &domain.InvokeResponse{OutputData: map[string]string{}}
	_, err := ReadOutput(resp, "missing")
	if !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("expected ErrOutputNotFound, got %v", err)
	}
}

func TestReadOutput_Found(t *testing.T) {
	resp := &domain.InvokeResponse{OutputData: map[string]string{
		"artifact": base64.StdEncoding.EncodeToString([]byte("binary-bytes")),
	}}
	got, err := ReadOutput(resp, "artifact")
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if string(got) != "binary-bytes" {
		t.Fatalf("got %q", got)
	}
}
