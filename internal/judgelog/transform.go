// Package judgelog converts a valuer's judge log into the persistent
// JudgeLog served over the REST API, honoring per-field visibility flags.
package judgelog

import (
	"encoding/base64"
	"sort"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/fileref"
)

// TestOutcome pairs a test id with its executor outcome, as collected by
// the processor over the course of the test loop.
type TestOutcome struct {
	TestID  uint32
	Outcome domain.ExecOutcome
}

// Transform builds a persistent JudgeLog from the valuer's log, the build
// outcome, the collected exec outcomes, and the problem's test specs
// (needed for on-demand TEST_DATA/ANSWER reads).
func Transform(valuerLog domain.ValuerJudgeLog, build domain.BuildOutcome, outcomes []TestOutcome, tests []domain.TestSpec, assetsDir string) domain.JudgeLog {
	status := domain.Status{Category: domain.CategoryRejected, Kind: domain.StatusKind("PartialSolution")}
	if valuerLog.IsFull {
		status = domain.Status{Category: domain.CategoryAccepted, Kind: domain.StatusKind("Accepted")}
	}

	outcomeByTest := make(map[uint32]domain.ExecOutcome, len(outcomes))
	for _, o := range outcomes {
		outcomeByTest[o.TestID] = o.Outcome
	}
	testByID := make(map[uint32]domain.TestSpec, len(tests))
	for i, t := range tests {
		testByID[uint32(i+1)] = t
	}

	rows := make([]domain.TestRow, 0, len(valuerLog.Tests))
	for _, vt := range valuerLog.Tests {
		rows = append(rows, exportTest(vt, outcomeByTest, testByID, assetsDir))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TestID < rows[j].TestID })

	subtasks := make([]domain.SubtaskRow, len(valuerLog.Subtasks))
	for i, s := range valuerLog.Subtasks {
		subtasks[i] = domain.SubtaskRow{SubtaskID: s.SubtaskID, Score: s.Score}
	}
	sort.Slice(subtasks, func(i, j int) bool { return subtasks[i].SubtaskID < subtasks[j].SubtaskID })

	compileLog := build.Log

	return domain.JudgeLog{
		Kind:       valuerLog.Kind,
		Tests:      rows,
		Subtasks:   subtasks,
		CompileLog: compileLog,
		Score:      valuerLog.Score,
		IsFull:     false,
		Status:     status,
	}
}

func exportTest(vt domain.ValuerTestRow, outcomes map[uint32]domain.ExecOutcome, tests map[uint32]domain.TestSpec, assetsDir string) domain.TestRow {
	row := domain.TestRow{TestID: vt.TestID}

	outcome, hasOutcome := outcomes[vt.TestID]
	if !hasOutcome {
		if vt.Components.Has(domain.ComponentStatus) {
			row.Status = vt.Status
		}
		return row
	}

	if vt.Components.Has(domain.ComponentStatus) {
		row.Status = vt.Status
	}
	if vt.Components.Has(domain.ComponentTestData) {
		if spec, ok := tests[vt.TestID]; ok {
			if data, err := fileref.ReadBytes(spec.Path, assetsDir); err == nil {
				row.TestStdin = b64ptr(data)
			}
		}
	}
	if vt.Components.Has(domain.ComponentOutput) {
		row.TestStdout = b64ptr(outcome.Stdout)
		row.TestStderr = b64ptr(outcome.Stderr)
	}
	if vt.Components.Has(domain.ComponentAnswer) {
		if spec, ok := tests[vt.TestID]; ok && spec.Correct != nil {
			if data, err := fileref.ReadBytes(*spec.Correct, assetsDir); err == nil {
				row.TestAnswer = b64ptr(data)
			}
		}
	}
	if vt.Components.Has(domain.ComponentResourceUsage) {
		row.MemoryUsageKiB = outcome.Usage.MemoryKiB
		row.TimeUsageMs = outcome.Usage.TimeMs
	}
	return row
}

func b64ptr(data []byte) *string {
	s := base64.StdEncoding.EncodeToString(data)
	return &s
}
