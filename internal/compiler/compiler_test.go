package compiler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/invoker"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func newStubInvoker(t *testing.T, buildExitCode int32) *invoker.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var results []domain.ActionResult
		outputs := map[string]string{}
		for _, step := range req.Steps {
			if step.Action.Kind != domain.ActionExecuteCommand {
				continue
			}
			code := buildExitCode
			results = append(results, domain.ActionResult{Command: &domain.CommandResult{ExitCode: &code}})
			outputs[step.Action.ExecuteCommand.Stdout] = b64("compiling...")
			outputs[step.Action.ExecuteCommand.Stderr] = b64("")
		}
		outputs["artifact"] = b64("binary-bytes")
		resp := domain.InvokeResponse{ID: *req.ID, ActionResults: results, OutputData: outputs}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return invoker.New(invoker.NewPool(srv.URL))
}

func testToolchain() domain.Toolchain {
	return domain.Toolchain{
		Image: "cpp17:latest",
		Spec: domain.ToolchainSpec{
			Filename: "main.cpp",
			BuildCommands: []domain.Command{
				{Argv: []string{"g++", "-o", "bin", "main.cpp"}},
			},
			Limits: domain.Limits{TimeMs: 5000, MemoryKiB: 262144},
		},
	}
}

func TestCompile_Success(t *testing.T) {
	client := newStubInvoker(t, 0)
	d := New(client)
	outcome, err := d.Compile(context.Background(), testToolchain(), []byte("int main(){}"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if outcome.Err != nil {
		t.Fatalf("expected success, got %+v", outcome.Err)
	}
	if string(outcome.Run.Binary) != "binary-bytes" {
		t.Fatalf("binary = %q", outcome.Run.Binary)
	}
	if !strings.Contains(outcome.Log, "------ step 0 ------") {
		t.Fatalf("log missing step frame: %q", outcome.Log)
	}
}

func TestCompile_NonZeroExit(t *testing.T) {
	client := newStubInvoker(t, 1)
	d := New(client)
	outcome, err := d.Compile(context.Background(), testToolchain(), []byte("broken"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if outcome.Err == nil {
		t.Fatalf("expected a failure status")
	}
	if outcome.Err.Kind != domain.StatusCompilerFailed {
		t.Fatalf("kind = %v, want CompilerFailed", outcome.Err.Kind)
	}
	if outcome.Err.Category != domain.CategoryCompilationError {
		t.Fatalf("category = %v, want CompilationError", outcome.Err.Category)
	}
}
