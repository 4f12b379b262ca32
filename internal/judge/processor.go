package judge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/compiler"
	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/judgelog"
	"github.com/jjs-dev/judge/internal/logging"
	"github.com/jjs-dev/judge/internal/metrics"
	"github.com/jjs-dev/judge/internal/observability"
	"github.com/jjs-dev/judge/internal/problemloader"
	"github.com/jjs-dev/judge/internal/testexec"
	"github.com/jjs-dev/judge/internal/toolchainloader"
	"github.com/jjs-dev/judge/internal/valuerclient"
)

// Settings configures optional processor behavior.
type Settings struct {
	CheckerLogsDir string
}

// Clients bundles the collaborators a job needs, so front-ends like
// internal/restapi can hold one handle instead of four.
type Clients struct {
	Problems   *problemloader.Loader
	Toolchains *toolchainloader.Loader
	Compiler   *compiler.Driver
	Executor   *testexec.Executor
}

// NewProcessor builds a Processor from a Clients bundle.
func NewProcessor(c *Clients, settings Settings) *Processor {
	return New(c.Problems, c.Toolchains, c.Compiler, c.Executor, settings)
}

// Processor wires together the problem/toolchain resolvers, the compiler
// driver and test executor, and the valuer child-process protocol into
// the end-to-end judge loop.
type Processor struct {
	problems   *problemloader.Loader
	toolchains *toolchainloader.Loader
	compiler   *compiler.Driver
	executor   *testexec.Executor
	settings   Settings

	// spawnValuer is overridable in tests to avoid spawning a real child
	// process.
	spawnValuer func(valuerclient.Config) (valuerHandle, error)
}

// valuerHandle is the subset of *valuerclient.Client the processor drives;
// extracted as an interface so tests can substitute a hand-written fake
// instead of spawning a real child process.
type valuerHandle interface {
	WriteProblemData(valuerclient.ProblemInfo) error
	NotifyTestDone(valuerclient.TestDoneNotification) error
	Poll() (*valuerclient.Message, error)
	Close() error
}

func spawnRealValuer(cfg valuerclient.Config) (valuerHandle, error) {
	c, err := valuerclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func New(problems *problemloader.Loader, toolchains *toolchainloader.Loader, drv *compiler.Driver, exec *testexec.Executor, settings Settings) *Processor {
	return &Processor{
		problems:    problems,
		toolchains:  toolchains,
		compiler:    drv,
		executor:    exec,
		settings:    settings,
		spawnValuer: spawnRealValuer,
	}
}

// Run starts a job in its own goroutine and returns immediately with a
// Progress handle.
func (p *Processor) Run(ctx context.Context, jobID uuid.UUID, req domain.Request) *Progress {
	pw := newProgressWriter()
	go p.run(ctx, jobID, req, pw)
	return pw.handle()
}

func (p *Processor) run(ctx context.Context, jobID uuid.UUID, req domain.Request, pw *progressWriter) {
	ctx, span := observability.StartSpan(ctx, "judge.job",
		observability.AttrJobID.String(jobID.String()),
		observability.AttrToolchain.String(req.ToolchainName),
		observability.AttrProblemID.String(req.ProblemID),
	)
	jobStart := time.Now()
	defer span.End()

	logJob := func(phase string, start time.Time, err error) {
		entry := &logging.JobLog{
			JobID:      jobID.String(),
			Toolchain:  req.ToolchainName,
			ProblemID:  req.ProblemID,
			Phase:      phase,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    err == nil,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		logging.Default().Log(entry)
	}

	findStart := time.Now()
	manifest, assetsDir, err := p.problems.Find(ctx, req.ProblemID)
	logJob("resolve-problem", findStart, err)
	if err != nil {
		logging.Op().Error("resolve problem failed", "job", jobID, "problem", req.ProblemID, "error", err)
		observability.SetSpanError(span, err)
		metrics.Global().RecordJob("fault")
		p.finishWithFakeLogs(pw, nil, fmt.Errorf("judge: resolve problem %s: %w", req.ProblemID, err))
		return
	}
	if manifest == nil {
		err := fmt.Errorf("judge: unknown problem %s", req.ProblemID)
		observability.SetSpanError(span, err)
		metrics.Global().RecordJob("fault")
		p.finishWithFakeLogs(pw, nil, err)
		return
	}

	tc, err := p.toolchains.Resolve(req.ToolchainName)
	if err != nil {
		logging.Op().Error("resolve toolchain failed", "job", jobID, "toolchain", req.ToolchainName, "error", err)
		observability.SetSpanError(span, err)
		metrics.Global().RecordJob("fault")
		p.finishWithFakeLogs(pw, nil, fmt.Errorf("judge: resolve toolchain %s: %w", req.ToolchainName, err))
		return
	}

	compileStart := time.Now()
	build, err := p.compiler.Compile(ctx, *tc, req.RunSource)
	logJob("compile", compileStart, err)
	metrics.Global().ObserveCompileDuration(time.Since(compileStart).Seconds())
	if err != nil {
		logging.Op().Error("compile failed", "job", jobID, "error", err)
		observability.SetSpanError(span, err)
		metrics.Global().RecordJob("fault")
		p.finishWithFakeLogs(pw, nil, fmt.Errorf("judge: compile: %w", err))
		return
	}
	if build.Err != nil {
		p.emitFakeLogsForStatus(pw, *build.Err, build.Log)
		metrics.Global().RecordJob("compile_error")
		observability.SetSpanOK(span)
		pw.finish(Outcome{Err: nil})
		return
	}

	valuerCfg := valuerclient.Config{
		Exe:        manifest.Valuer.Exe,
		Args:       manifest.Valuer.Args,
		CurrentDir: manifest.Valuer.CurrentDir,
	}
	if valuerCfg.CurrentDir == "" {
		valuerCfg.CurrentDir = assetsDir
	} else if !filepath.IsAbs(valuerCfg.CurrentDir) {
		valuerCfg.CurrentDir = filepath.Join(assetsDir, valuerCfg.CurrentDir)
	}

	vc, err := p.spawnValuer(valuerCfg)
	if err != nil {
		logging.Op().Error("spawn valuer failed", "job", jobID, "error", err)
		observability.SetSpanError(span, err)
		metrics.Global().RecordJob("fault")
		p.finishWithFakeLogs(pw, nil, fmt.Errorf("judge: spawn valuer: %w", err))
		return
	}
	defer vc.Close()

	groups := make([]string, len(manifest.Tests))
	for i, t := range manifest.Tests {
		groups[i] = t.Group
	}
	if err := vc.WriteProblemData(valuerclient.ProblemInfo{Tests: groups}); err != nil {
		p.finishWithFakeLogs(pw, nil, fmt.Errorf("judge: send problem info: %w", err))
		return
	}

	emitted := make(map[domain.JudgeLogKind]bool, len(domain.JudgeLogKinds()))
	var outcomes []judgelog.TestOutcome

	for {
		msg, err := vc.Poll()
		if err != nil {
			logging.Op().Error("valuer poll failed", "job", jobID, "error", err)
			if err == valuerclient.ErrPollTimeout {
				metrics.Global().RecordValuerTimeout()
			}
			observability.SetSpanError(span, err)
			metrics.Global().RecordJob("fault")
			p.finishWithFakeLogs(pw, emitted, fmt.Errorf("judge: valuer: %w", err))
			return
		}

		switch msg.Kind {
		case valuerclient.MessageTest:
			ti := msg.Test
			if ti == nil {
				p.finishWithFakeLogs(pw, emitted, fmt.Errorf("judge: malformed test instruction"))
				return
			}
			if ti.Live {
				pw.emit(Event{Kind: EventLiveTest, TestID: ti.TestID})
			}

			var spec domain.TestSpec
			if int(ti.TestID) >= 1 && int(ti.TestID) <= len(manifest.Tests) {
				spec = manifest.Tests[ti.TestID-1]
			}
			testStart := time.Now()
			outcome, err := p.runTest(ctx, jobID, ti.TestID, *tc, manifest, spec, assetsDir, build)
			metrics.Global().ObserveTestDuration(time.Since(testStart).Seconds())
			if err != nil {
				logging.Op().Error("test execution failed", "job", jobID, "test", ti.TestID, "error", err)
				observability.SetSpanError(span, err)
				metrics.Global().RecordJob("fault")
				p.finishWithFakeLogs(pw, emitted, fmt.Errorf("judge: run test %d: %w", ti.TestID, err))
				return
			}
			metrics.Global().RecordTest(string(outcome.Status.Kind))
			outcomes = append(outcomes, judgelog.TestOutcome{TestID: ti.TestID, Outcome: outcome})

			if err := vc.NotifyTestDone(valuerclient.TestDoneNotification{TestID: ti.TestID, TestStatus: outcome.Status}); err != nil {
				p.finishWithFakeLogs(pw, emitted, fmt.Errorf("judge: notify test done: %w", err))
				return
			}

		case valuerclient.MessageLiveScore:
			if msg.LiveScore != nil {
				pw.emit(Event{Kind: EventLiveScore, Score: msg.LiveScore.Score})
			}

		case valuerclient.MessageJudgeLog:
			if msg.JudgeLog == nil {
				continue
			}
			log := judgelog.Transform(*msg.JudgeLog, build, outcomes, manifest.Tests, assetsDir)
			emitted[log.Kind] = true
			pw.emit(Event{Kind: EventLogCreated, LogKind: log.Kind, Log: log})

		case valuerclient.MessageFinish:
			logJob("test-loop", jobStart, nil)
			observability.SetSpanOK(span)
			metrics.Global().RecordJob("success")
			pw.finish(Outcome{Err: nil})
			return

		default:
			p.finishWithFakeLogs(pw, emitted, fmt.Errorf("judge: unknown valuer message kind %q", msg.Kind))
			return
		}
	}
}

func (p *Processor) runTest(ctx context.Context, jobID uuid.UUID, testID uint32, tc domain.Toolchain, manifest *domain.Manifest, spec domain.TestSpec, assetsDir string, build domain.BuildOutcome) (domain.ExecOutcome, error) {
	testData, err := os.ReadFile(resolvePath(spec.Path, assetsDir))
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("read test data: %w", err)
	}
	var correct []byte
	if spec.Correct != nil {
		correct, err = os.ReadFile(resolvePath(*spec.Correct, assetsDir))
		if err != nil {
			return domain.ExecOutcome{}, fmt.Errorf("read reference answer: %w", err)
		}
	}
	checkerBinary, err := os.ReadFile(resolvePath(manifest.CheckerExe, assetsDir))
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("read checker binary: %w", err)
	}

	limits := spec.Limits
	if limits.TimeMs == 0 && limits.MemoryKiB == 0 {
		limits = tc.Spec.Limits
	}

	return p.executor.RunTest(ctx, jobID, testID, tc, manifest.CheckerCmd, limits, testexec.Assets{
		Binary:        build.Run.Binary,
		CheckerBinary: checkerBinary,
		TestData:      testData,
		Correct:       correct,
	})
}

func resolvePath(ref domain.FileRef, assetsDir string) string {
	if ref.Root == domain.FileRootAbsolute {
		return ref.Path
	}
	return filepath.Join(assetsDir, ref.Path)
}

// emitFakeLogsForStatus emits one fake log per kind with the given
// status and compile log, used for the recovered compile-error path.
func (p *Processor) emitFakeLogsForStatus(pw *progressWriter, status domain.Status, compileLog string) {
	for _, kind := range domain.JudgeLogKinds() {
		log := domain.JudgeLog{Kind: kind, CompileLog: compileLog, Status: status, IsFull: false}
		pw.emit(Event{Kind: EventLogCreated, LogKind: kind, Log: log})
	}
}

// finishWithFakeLogs fills every not-yet-emitted log kind with a
// JudgeFault entry and reports the job as failed.
func (p *Processor) finishWithFakeLogs(pw *progressWriter, emitted map[domain.JudgeLogKind]bool, err error) {
	faultStatus := domain.Status{Category: domain.CategoryInternalError, Kind: domain.StatusJudgeFault}
	for _, kind := range domain.JudgeLogKinds() {
		if emitted[kind] {
			continue
		}
		log := domain.JudgeLog{Kind: kind, Status: faultStatus, IsFull: false}
		pw.emit(Event{Kind: EventLogCreated, LogKind: kind, Log: log})
	}
	pw.finish(Outcome{Err: err})
}
