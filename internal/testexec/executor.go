// Package testexec builds and runs the per-test invocation (solution
// sandbox + checker sandbox) and classifies the outcome via the checker's
// decision.
package testexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/invoker"
	"github.com/jjs-dev/judge/internal/logging"
	"github.com/jjs-dev/judge/internal/reqbuilder"
)

// Settings configures optional side effects of running a test.
type Settings struct {
	// CheckerLogsDir, if set, receives one file per test at
	// ${dir}/${jobID}/${testID} containing the checker's raw log output.
	CheckerLogsDir string
}

// Assets bundles the byte payloads a test invocation needs: the compiled
// binary, the checker binary, the test data, and an optional reference
// answer.
type Assets struct {
	Binary        []byte
	CheckerBinary []byte
	TestData      []byte
	Correct       []byte // nil if the test has no reference answer
}

type Executor struct {
	client   *invoker.Client
	settings Settings
}

func New(client *invoker.Client, settings Settings) *Executor {
	return &Executor{client: client, settings: settings}
}

// RunTest executes one test and returns its outcome.
func (e *Executor) RunTest(ctx context.Context, jobID uuid.UUID, testID uint32, tc domain.Toolchain, checkerCmd []string, limits domain.Limits, assets Assets) (domain.ExecOutcome, error) {
	const (
		testDataFile  = "test-data"
		correctFile   = "correct"
		emptyFile     = "empty"
		solOutFile    = "solution-output"
		solErrFile    = "solution-error"
		decisionFile  = "checker-decision"
		checkerLog    = "checker-logs"
		solSandbox    = "exec-sandbox"
		checkerSandbox = "checker-sandbox"
	)

	req := domain.InvokeRequest{
		Extensions: domain.Extensions{
			ExtraFiles: map[string]domain.ExtraFile{
				"test-payload":    {Data: assets.TestData},
				"solution-binary": {Data: assets.Binary, Executable: true},
				"checker-binary":  {Data: assets.CheckerBinary, Executable: true},
			},
		},
	}

	// Stage 0: prepare.
	req.Inputs = append(req.Inputs, domain.Input{FileID: testDataFile, Source: reqbuilder.Intern(assets.TestData)})
	if assets.Correct != nil {
		req.Inputs = append(req.Inputs, domain.Input{FileID: correctFile, Source: reqbuilder.Intern(assets.Correct)})
	}
	req.Steps = append(req.Steps, domain.Step{Stage: 0, Action: domain.Action{
		Kind:         domain.ActionOpenNullFile,
		OpenNullFile: &domain.OpenNullFileAction{FileID: emptyFile},
	}})

	// Stage 1: solution.
	req.Steps = append(req.Steps,
		domain.Step{Stage: 1, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: solOutFile}}},
		domain.Step{Stage: 1, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: solErrFile}}},
		domain.Step{Stage: 1, Action: domain.Action{
			Kind: domain.ActionCreateSandbox,
			CreateSandbox: &domain.CreateSandboxAction{
				SandboxID: solSandbox,
				Image:     tc.Image,
				Limits:    limits,
				SharedDirs: []domain.SharedDir{
					{Source: domain.SharedDirSource{Kind: "extra_files", ExtraFilesSubpath: "compile-out"}, MountPath: "/compile-out", ReadOnly: true},
				},
			},
		}},
		domain.Step{Stage: 1, Action: domain.Action{
			Kind: domain.ActionExecuteCommand,
			ExecuteCommand: &domain.ExecuteCommandAction{
				SandboxID: solSandbox,
				Argv:      tc.Spec.RunCommand.Argv,
				Env:       tc.Spec.RunCommand.Env,
				Cwd:       tc.Spec.RunCommand.Cwd,
				Stdin:     testDataFile,
				Stdout:    solOutFile,
				Stderr:    solErrFile,
			},
		}},
	)

	// Stage 2: checker.
	checkerEnv := map[string]string{
		"JJS_SOL":             solOutFile,
		"JJS_TEST":            testDataFile,
		"JJS_CHECKER_OUT":     decisionFile,
		"JJS_CHECKER_COMMENT": checkerLog,
	}
	if assets.Correct != nil {
		checkerEnv["JJS_CORR"] = correctFile
	}
	req.Steps = append(req.Steps,
		domain.Step{Stage: 2, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: decisionFile}}},
		domain.Step{Stage: 2, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: checkerLog}}},
		domain.Step{Stage: 2, Action: domain.Action{
			Kind: domain.ActionCreateSandbox,
			CreateSandbox: &domain.CreateSandboxAction{
				SandboxID: checkerSandbox,
				Image:     "distroless-cxx:latest",
				SharedDirs: []domain.SharedDir{
					{Source: domain.SharedDirSource{Kind: "extra_files", ExtraFilesSubpath: "check"}, MountPath: "/check", ReadOnly: true},
				},
			},
		}},
		domain.Step{Stage: 2, Action: domain.Action{
			Kind: domain.ActionExecuteCommand,
			ExecuteCommand: &domain.ExecuteCommandAction{
				SandboxID: checkerSandbox,
				Argv:      append([]string{"/check/checker"}, checkerCmd...),
				Env:       checkerEnv,
				Stdin:     emptyFile,
				Stdout:    checkerLog,
				Stderr:    checkerLog,
			},
		}},
	)
	req.Outputs = append(req.Outputs,
		domain.OutputRequest{Name: solOutFile, FileID: solOutFile},
		domain.OutputRequest{Name: solErrFile, FileID: solErrFile},
		domain.OutputRequest{Name: decisionFile, FileID: decisionFile},
		domain.OutputRequest{Name: checkerLog, FileID: checkerLog},
	)

	resp, err := e.client.Call(ctx, req)
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("testexec: invoke: %w", err)
	}

	if code := checkerExitCode(resp); code != 0 {
		return faultOutcome(), nil
	}

	var decisionRaw []byte
	var checkerLogText string
	var group errgroup.Group
	group.Go(func() error {
		var err error
		decisionRaw, err = reqbuilder.ReadOutput(resp, decisionFile)
		return err
	})
	group.Go(func() error {
		var err error
		checkerLogText, err = reqbuilder.ReadOutputString(resp, checkerLog)
		return err
	})
	if err := group.Wait(); err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("testexec: read checker outputs: %w", err)
	}

	if e.settings.CheckerLogsDir != "" {
		if err := e.writeCheckerLog(jobID, testID, checkerLogText); err != nil {
			logging.Op().Warn("failed to write checker log", "job", jobID, "test", testID, "error", err)
		}
	}

	if !utf8.Valid(decisionRaw) {
		return faultOutcome(), nil
	}

	outcome, ok := parseCheckerDecision(string(decisionRaw))
	if !ok {
		return faultOutcome(), nil
	}

	solStdout, err := reqbuilder.ReadOutput(resp, solOutFile)
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("testexec: read solution stdout: %w", err)
	}
	solStderr, err := reqbuilder.ReadOutput(resp, solErrFile)
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("testexec: read solution stderr: %w", err)
	}

	usage := resourceUsageFor(resp, solSandbox)
	return domain.ExecOutcome{
		Status: outcomeToStatus(outcome),
		Usage:  usage,
		Stdout: solStdout,
		Stderr: solStderr,
	}, nil
}

func faultOutcome() domain.ExecOutcome {
	return domain.ExecOutcome{Status: domain.Status{Category: domain.CategoryInternalError, Kind: domain.StatusJudgeFault}}
}

// checkerExitCode finds the exit code of the checker's execute_command
// step: the last CommandResult in the response (solution and checker each
// contribute exactly one execute_command step, in order).
func checkerExitCode(resp *domain.InvokeResponse) int32 {
	for i := len(resp.ActionResults) - 1; i >= 0; i-- {
		if cr := resp.ActionResults[i].Command; cr != nil {
			if cr.ExitCode != nil {
				return *cr.ExitCode
			}
			return -1
		}
	}
	return -1
}

// resourceUsageFor returns the solution step's resource usage: the
// second-to-last CommandResult (solution runs before the checker).
func resourceUsageFor(resp *domain.InvokeResponse, _ string) domain.ResourceUsage {
	var results []*domain.CommandResult
	for i := range resp.ActionResults {
		if cr := resp.ActionResults[i].Command; cr != nil {
			results = append(results, cr)
		}
	}
	if len(results) < 2 {
		return domain.ResourceUsage{}
	}
	sol := results[len(results)-2]
	return domain.ResourceUsage{MemoryKiB: sol.MemoryKiB, TimeMs: nsToMs(sol.CPUTimeNs)}
}

func nsToMs(ns *uint64) *uint64 {
	if ns == nil {
		return nil
	}
	ms := *ns / 1_000_000
	return &ms
}

func (e *Executor) writeCheckerLog(jobID uuid.UUID, testID uint32, content string) error {
	dir := filepath.Join(e.settings.CheckerLogsDir, jobID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d", testID)), []byte(content), 0o644)
}
