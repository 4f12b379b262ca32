package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/compiler"
	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/invoker"
	"github.com/jjs-dev/judge/internal/problemloader"
	"github.com/jjs-dev/judge/internal/testexec"
	"github.com/jjs-dev/judge/internal/toolchainloader"
	"github.com/jjs-dev/judge/internal/valuerclient"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// fakeValuer scripts a fixed sequence of messages and records outgoing
// notifications, standing in for a real child process in tests.
type fakeValuer struct {
	script []valuerclient.Message
	pos    int

	problemInfo  valuerclient.ProblemInfo
	testsDone    []valuerclient.TestDoneNotification
	closed       bool
}

func (f *fakeValuer) WriteProblemData(info valuerclient.ProblemInfo) error {
	f.problemInfo = info
	return nil
}

func (f *fakeValuer) NotifyTestDone(n valuerclient.TestDoneNotification) error {
	f.testsDone = append(f.testsDone, n)
	return nil
}

func (f *fakeValuer) Poll() (*valuerclient.Message, error) {
	if f.pos >= len(f.script) {
		return nil, os.ErrClosed
	}
	msg := f.script[f.pos]
	f.pos++
	return &msg, nil
}

func (f *fakeValuer) Close() error {
	f.closed = true
	return nil
}

func writeToolchain(t *testing.T, dir, name string) {
	t.Helper()
	base := filepath.Join(dir, name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := `
filename: main.cpp
build:
  - argv: ["g++", "main.cpp", "-o", "bin"]
run:
  argv: ["./bin"]
limits:
  time_ms: 2000
  memory_kib: 262144
`
	if err := os.WriteFile(filepath.Join(base, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "image.txt"), []byte("cpp17:latest\n"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
}

func writeProblem(t *testing.T, dir, name string) {
	t.Helper()
	base := filepath.Join(dir, name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := `
tests:
  - path: "problem:tests/001.txt"
    group: "main"
checker_exe: "problem:checker"
checker_cmd: []
valuer:
  exe: "valuer"
`
	if err := os.WriteFile(filepath.Join(base, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "tests"), 0o755); err != nil {
		t.Fatalf("mkdir tests: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "tests", "001.txt"), []byte("2 2\n"), 0o644); err != nil {
		t.Fatalf("write test: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "checker"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write checker: %v", err)
	}
}

// newStubInvoker answers every /exec call with one CommandResult per
// execute_command step, exit 0, plus solution/checker outputs good enough
// to carry a test through to Accepted.
func newStubInvoker(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var results []domain.ActionResult
		exitZero := int32(0)
		for _, step := range req.Steps {
			if step.Action.Kind != domain.ActionExecuteCommand {
				continue
			}
			results = append(results, domain.ActionResult{Command: &domain.CommandResult{ExitCode: &exitZero}})
		}
		outputs := map[string]string{
			"step-0-stdout":    b64(""),
			"step-0-stderr":    b64(""),
			"artifact":         b64("compiled-binary"),
			"solution-output":  b64("4\n"),
			"solution-error":   b64(""),
			"checker-decision": b64("outcome=Ok\n"),
			"checker-logs":     b64(""),
		}
		resp := domain.InvokeResponse{ID: *req.ID, ActionResults: results, OutputData: outputs}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newProcessor(t *testing.T) (*Processor, string) {
	t.Helper()
	root := t.TempDir()

	toolchainsDir := filepath.Join(root, "toolchains")
	writeToolchain(t, toolchainsDir, "cpp17")

	problemsDir := filepath.Join(root, "problems")
	writeProblem(t, problemsDir, "aplusb")

	cacheDir := filepath.Join(root, "cache")

	srv := newStubInvoker(t)
	t.Cleanup(srv.Close)
	client := invoker.New(invoker.NewPool(srv.URL))

	loader := problemloader.New(cacheDir, problemloader.NewFsRegistry(problemsDir))
	tcLoader := toolchainloader.New(toolchainsDir)
	drv := compiler.New(client)
	exec := testexec.New(client, testexec.Settings{})

	return New(loader, tcLoader, drv, exec, Settings{}), root
}

func drainEvents(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestProcessor_SingleTestAccepted(t *testing.T) {
	p, _ := newProcessor(t)
	p.spawnValuer = func(valuerclient.Config) (valuerHandle, error) {
		return &fakeValuer{script: []valuerclient.Message{
			{Kind: valuerclient.MessageTest, Test: &valuerclient.TestInstruction{TestID: 1, Live: true}},
			{Kind: valuerclient.MessageJudgeLog, JudgeLog: &domain.ValuerJudgeLog{
				Kind:   domain.JudgeLogKindContestant,
				IsFull: true,
				Score:  100,
				Tests: []domain.ValuerTestRow{
					{TestID: 1, Components: domain.ComponentStatus, Status: &domain.Status{Category: domain.CategoryAccepted, Kind: domain.StatusTestPassed}},
				},
			}},
			{Kind: valuerclient.MessageFinish},
		}}, nil
	}

	progress := p.Run(context.Background(), uuid.New(), domain.Request{ToolchainName: "cpp17", ProblemID: "aplusb", RunSource: []byte("int main(){}")})

	events := drainEvents(progress.Events)

	select {
	case outcome := <-progress.Done:
		if outcome.Err != nil {
			t.Fatalf("unexpected failure: %v", outcome.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}

	var sawLiveTest, sawLog bool
	for _, ev := range events {
		switch ev.Kind {
		case EventLiveTest:
			if ev.TestID != 1 {
				t.Fatalf("live test id = %d", ev.TestID)
			}
			sawLiveTest = true
		case EventLogCreated:
			if ev.Log.Status.Category != domain.CategoryAccepted {
				t.Fatalf("log status = %+v", ev.Log.Status)
			}
			sawLog = true
		}
	}
	if !sawLiveTest || !sawLog {
		t.Fatalf("expected both a live-test and a log-created event, got %+v", events)
	}
}

func TestProcessor_UnknownProblemFails(t *testing.T) {
	p, _ := newProcessor(t)
	progress := p.Run(context.Background(), uuid.New(), domain.Request{ToolchainName: "cpp17", ProblemID: "does-not-exist", RunSource: []byte("x")})

	events := drainEvents(progress.Events)
	outcome := <-progress.Done

	if outcome.Err == nil {
		t.Fatal("expected failure for unknown problem")
	}
	kinds := make(map[domain.JudgeLogKind]bool)
	for _, ev := range events {
		if ev.Kind == EventLogCreated {
			kinds[ev.LogKind] = true
			if ev.Log.Status.Kind != domain.StatusJudgeFault {
				t.Fatalf("expected JudgeFault fake log, got %+v", ev.Log.Status)
			}
		}
	}
	if len(kinds) != len(domain.JudgeLogKinds()) {
		t.Fatalf("expected one fake log per kind, got %d", len(kinds))
	}
}
