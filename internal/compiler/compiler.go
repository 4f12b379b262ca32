// Package compiler builds and runs the single invocation that compiles a
// submission inside the remote sandbox, classifies the result, and
// assembles the compile log.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jjs-dev/judge/internal/classify"
	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/invoker"
	"github.com/jjs-dev/judge/internal/reqbuilder"
)

const workDirLimitKiB = 512 * 1024

// Driver compiles a submission via the invoker.
type Driver struct {
	client *invoker.Client
}

func New(client *invoker.Client) *Driver {
	return &Driver{client: client}
}

// Compile runs the toolchain's build commands against source inside a
// fresh compile sandbox and returns the build outcome.
func (d *Driver) Compile(ctx context.Context, tc domain.Toolchain, source []byte) (domain.BuildOutcome, error) {
	const (
		emptyFile  = "empty"
		volumeID   = "work"
		sandboxID  = "compile-sandbox"
	)

	req := domain.InvokeRequest{
		Inputs: []domain.Input{},
		Extensions: domain.Extensions{
			ExtraFiles: map[string]domain.ExtraFile{
				tc.Spec.Filename: {Data: source, Executable: false},
			},
			Substitutions: map[string]string{
				"Run.SourceFilePath": "/compile-input/" + tc.Spec.Filename,
				"Run.BinaryFilePath": "/compile-output/bin",
			},
		},
	}

	req.Steps = append(req.Steps, domain.Step{Stage: 0, Action: domain.Action{
		Kind:         domain.ActionOpenNullFile,
		OpenNullFile: &domain.OpenNullFileAction{FileID: emptyFile},
	}})
	req.Steps = append(req.Steps, domain.Step{Stage: 0, Action: domain.Action{
		Kind:         domain.ActionCreateVolume,
		CreateVolume: &domain.CreateVolumeAction{VolumeID: volumeID, SizeLimitKiB: workDirLimitKiB},
	}})
	req.Steps = append(req.Steps, domain.Step{Stage: 0, Action: domain.Action{
		Kind: domain.ActionCreateSandbox,
		CreateSandbox: &domain.CreateSandboxAction{
			SandboxID: sandboxID,
			Image:     tc.Image,
			Limits:    tc.Spec.Limits,
			SharedDirs: []domain.SharedDir{
				{Source: domain.SharedDirSource{Kind: "extra_files"}, MountPath: "/compile-input", ReadOnly: true},
				{Source: domain.SharedDirSource{Kind: "volume", VolumeID: volumeID}, MountPath: "/compile-output", ReadOnly: false},
			},
		},
	}})

	type stepFiles struct{ stdout, stderr string }
	files := make([]stepFiles, len(tc.Spec.BuildCommands))

	for i, cmd := range tc.Spec.BuildCommands {
		sf := stepFiles{
			stdout: fmt.Sprintf("step-%d-stdout", i),
			stderr: fmt.Sprintf("step-%d-stderr", i),
		}
		files[i] = sf
		req.Steps = append(req.Steps,
			domain.Step{Stage: 1, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: sf.stdout}}},
			domain.Step{Stage: 1, Action: domain.Action{Kind: domain.ActionCreateFile, CreateFile: &domain.CreateFileAction{FileID: sf.stderr}}},
			domain.Step{Stage: 1, Action: domain.Action{
				Kind: domain.ActionExecuteCommand,
				ExecuteCommand: &domain.ExecuteCommandAction{
					SandboxID: sandboxID,
					Argv:      cmd.Argv,
					Env:       cmd.Env,
					Cwd:       cmd.Cwd,
					Stdin:     emptyFile,
					Stdout:    sf.stdout,
					Stderr:    sf.stderr,
				},
			}},
		)
		req.Outputs = append(req.Outputs,
			domain.OutputRequest{Name: sf.stdout, FileID: sf.stdout},
			domain.OutputRequest{Name: sf.stderr, FileID: sf.stderr},
		)
	}
	req.Outputs = append(req.Outputs, domain.OutputRequest{Name: "artifact", FileID: "bin"})

	resp, err := d.client.Call(ctx, req)
	if err != nil {
		return domain.BuildOutcome{}, fmt.Errorf("compiler: invoke: %w", err)
	}

	var log strings.Builder
	for i, cmd := range tc.Spec.BuildCommands {
		sf := files[i]
		var stdout, stderr string
		var group errgroup.Group
		group.Go(func() error {
			var err error
			stdout, err = reqbuilder.ReadOutputString(resp, sf.stdout)
			return err
		})
		group.Go(func() error {
			var err error
			stderr, err = reqbuilder.ReadOutputString(resp, sf.stderr)
			return err
		})
		if err := group.Wait(); err != nil {
			return domain.BuildOutcome{}, fmt.Errorf("compiler: read step %d outputs: %w", i, err)
		}

		fmt.Fprintf(&log, "------ step %d ------\n--- stdout ---\n%s\n--- stderr ---\n%s\n", i, stdout, stderr)

		result := commandResultFor(resp, i)
		switch classify.Command(tc.Spec.Limits, result) {
		case domain.CommandTimeLimit:
			return domain.BuildOutcome{
				Err: &domain.Status{Category: domain.CategoryCompilationError, Kind: domain.StatusCompilationTimedOut},
				Log: log.String(),
			}, nil
		case domain.CommandOk:
			// continue to next step
		default:
			return domain.BuildOutcome{
				Err: &domain.Status{Category: domain.CategoryCompilationError, Kind: domain.StatusCompilerFailed},
				Log: log.String(),
			}, nil
		}
	}

	binary, err := reqbuilder.ReadOutput(resp, "artifact")
	if err != nil {
		return domain.BuildOutcome{}, fmt.Errorf("compiler: read artifact: %w", err)
	}
	return domain.BuildOutcome{Run: &domain.BuiltRun{Binary: binary}, Log: log.String()}, nil
}

// commandResultFor returns the i-th execute_command step's result. Steps
// other than execute_command (open-null-file, create-volume,
// create-sandbox, create-file) do not carry a CommandResult, so build step
// i is the i-th ActionResult that has one, counting in response order.
func commandResultFor(resp *domain.InvokeResponse, i int) domain.CommandResult {
	n := -1
	for _, ar := range resp.ActionResults {
		if ar.Command == nil {
			continue
		}
		n++
		if n == i {
			return *ar.Command
		}
	}
	return domain.CommandResult{}
}
