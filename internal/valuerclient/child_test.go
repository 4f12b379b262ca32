package valuerclient

import (
	"strings"
	"testing"
)

func TestPoll_ParsesMessage(t *testing.T) {
	c, err := New(Config{Exe: "sh", Args: []string{"-c", `printf '{"kind":"finish"}\n'`}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	msg, err := c.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if msg.Kind != MessageFinish {
		t.Fatalf("kind = %q, want finish", msg.Kind)
	}
}

func TestPoll_EarlyEOF(t *testing.T) {
	c, err := New(Config{Exe: "sh", Args: []string{"-c", `true`}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Poll()
	if err == nil || !strings.Contains(err.Error(), "early eof") {
		t.Fatalf("expected early eof error, got %v", err)
	}
}

func TestWriteProblemData(t *testing.T) {
	c, err := New(Config{Exe: "sh", Args: []string{"-c", `cat >/dev/null`}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.WriteProblemData(ProblemInfo{Tests: []string{"main"}}); err != nil {
		t.Fatalf("WriteProblemData: %v", err)
	}
}
