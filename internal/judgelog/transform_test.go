package judgelog

import (
	"encoding/base64"
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

func u64(v uint64) *uint64 { return &v }
func u32(v uint32) *uint32 { return &v }

func TestTransform_FullAccepted(t *testing.T) {
	valuerLog := domain.ValuerJudgeLog{
		Kind: domain.JudgeLogKindFull,
		Tests: []domain.ValuerTestRow{
			{TestID: 1, Components: domain.ComponentStatus | domain.ComponentOutput | domain.ComponentResourceUsage,
				Status: &domain.Status{Category: domain.CategoryAccepted, Kind: domain.StatusTestPassed}},
		},
		Subtasks: []domain.ValuerSubtaskRow{{SubtaskID: 1, Score: u32(100)}},
		Score:    100,
		IsFull:   true,
	}
	build := domain.BuildOutcome{Log: "compiled ok"}
	outcomes := []TestOutcome{
		{TestID: 1, Outcome: domain.ExecOutcome{
			Stdout: []byte("42\n"),
			Stderr: []byte(""),
			Usage:  domain.ResourceUsage{MemoryKiB: u64(1024), TimeMs: u64(50)},
		}},
	}

	log := Transform(valuerLog, build, outcomes, nil, "")

	if log.Status.Category != domain.CategoryAccepted || log.Status.Kind != "Accepted" {
		t.Fatalf("status = %+v", log.Status)
	}
	if log.IsFull {
		t.Fatalf("IsFull must always be false on the persistent log")
	}
	if len(log.Tests) != 1 {
		t.Fatalf("expected 1 test row, got %d", len(log.Tests))
	}
	row := log.Tests[0]
	if row.Status == nil || row.Status.Kind != domain.StatusTestPassed {
		t.Fatalf("row status = %+v", row.Status)
	}
	if row.TestStdout == nil || *row.TestStdout != base64.StdEncoding.EncodeToString([]byte("42\n")) {
		t.Fatalf("stdout = %v", row.TestStdout)
	}
	if row.MemoryUsageKiB == nil || *row.MemoryUsageKiB != 1024 {
		t.Fatalf("memory = %v", row.MemoryUsageKiB)
	}
	if row.TestStdin != nil {
		t.Fatalf("TEST_DATA component not requested, expected nil stdin")
	}
	if len(log.Subtasks) != 1 || log.Subtasks[0].SubtaskID != 1 {
		t.Fatalf("subtasks = %+v", log.Subtasks)
	}
}

func TestTransform_MissingOutcomeStopsEarly(t *testing.T) {
	valuerLog := domain.ValuerJudgeLog{
		Kind: domain.JudgeLogKindContestant,
		Tests: []domain.ValuerTestRow{
			{TestID: 5, Components: domain.ComponentStatus | domain.ComponentOutput,
				Status: &domain.Status{Category: domain.CategoryRejected, Kind: domain.StatusWrongAnswer}},
		},
	}
	log := Transform(valuerLog, domain.BuildOutcome{}, nil, nil, "")

	if len(log.Tests) != 1 {
		t.Fatalf("expected 1 test row, got %d", len(log.Tests))
	}
	row := log.Tests[0]
	if row.TestID != 5 {
		t.Fatalf("test id = %d", row.TestID)
	}
	if row.Status == nil || row.Status.Kind != domain.StatusWrongAnswer {
		t.Fatalf("status should still be projected from the valuer row: %+v", row.Status)
	}
	if row.TestStdout != nil || row.TestStderr != nil {
		t.Fatalf("no outcome on record, output fields must stay nil: %+v", row)
	}
}

func TestTransform_SortsTestsAndSubtasks(t *testing.T) {
	valuerLog := domain.ValuerJudgeLog{
		Kind: domain.JudgeLogKindJudge,
		Tests: []domain.ValuerTestRow{
			{TestID: 3, Components: domain.ComponentStatus},
			{TestID: 1, Components: domain.ComponentStatus},
			{TestID: 2, Components: domain.ComponentStatus},
		},
		Subtasks: []domain.ValuerSubtaskRow{
			{SubtaskID: 2}, {SubtaskID: 1},
		},
	}
	log := Transform(valuerLog, domain.BuildOutcome{}, nil, nil, "")

	for i, want := range []uint32{1, 2, 3} {
		if log.Tests[i].TestID != want {
			t.Fatalf("tests[%d].TestID = %d, want %d", i, log.Tests[i].TestID, want)
		}
	}
	if log.Subtasks[0].SubtaskID != 1 || log.Subtasks[1].SubtaskID != 2 {
		t.Fatalf("subtasks not sorted: %+v", log.Subtasks)
	}
}
