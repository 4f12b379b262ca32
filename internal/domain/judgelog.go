package domain

// TestVisibleComponents is a bitmask telling the log transformer which
// fields of a test row the valuer has authorized for disclosure at this
// log's kind.
type TestVisibleComponents uint8

const (
	ComponentStatus        TestVisibleComponents = 1 << iota
	ComponentTestData
	ComponentOutput
	ComponentAnswer
	ComponentResourceUsage
)

func (c TestVisibleComponents) Has(bit TestVisibleComponents) bool {
	return c&bit != 0
}

// ValuerTestRow is one test row as reported by the valuer, before the log
// transformer projects it through TestVisibleComponents.
type ValuerTestRow struct {
	TestID     uint32
	Components TestVisibleComponents
	Status     *Status
}

// ValuerSubtaskRow is copied through to the persistent log unchanged; the
// valuer is authoritative on which subtasks to report.
type ValuerSubtaskRow struct {
	SubtaskID uint32
	Score     *uint32
}

// JudgeLogKind is the disclosure tier of a judge log.
type JudgeLogKind string

const (
	JudgeLogKindContestant JudgeLogKind = "Contestant"
	JudgeLogKindJudge      JudgeLogKind = "Judge"
	JudgeLogKindFull       JudgeLogKind = "Full"
)

// JudgeLogKinds lists every kind that must be emitted for a job, in the
// fixed order used when filling in fake/fault logs.
func JudgeLogKinds() []JudgeLogKind {
	return []JudgeLogKind{JudgeLogKindContestant, JudgeLogKindJudge, JudgeLogKindFull}
}

// ValuerJudgeLog is the structured log the valuer emits over the child
// protocol; it is never persisted directly, only through the transformer.
type ValuerJudgeLog struct {
	Kind       JudgeLogKind
	Tests      []ValuerTestRow
	Subtasks   []ValuerSubtaskRow
	Score      uint32
	IsFull     bool
}

// TestRow is one row of a persistent JudgeLog; payload fields are base64
// when present, and unset (nil) when the corresponding visibility bit was
// not set by the valuer or the underlying value was unavailable.
type TestRow struct {
	TestID       uint32  `json:"test_id"`
	Status       *Status `json:"status,omitempty"`
	TestStdin    *string `json:"test_stdin,omitempty"`
	TestStdout   *string `json:"test_stdout,omitempty"`
	TestStderr   *string `json:"test_stderr,omitempty"`
	TestAnswer   *string `json:"test_answer,omitempty"`
	TimeUsageMs  *uint64 `json:"time_usage,omitempty"`
	MemoryUsageKiB *uint64 `json:"memory_usage,omitempty"`
}

type SubtaskRow struct {
	SubtaskID uint32  `json:"subtask_id"`
	Score     *uint32 `json:"score,omitempty"`
}

// JudgeLog is the authoritative, immutable per-kind record of a job's
// outcome, as served over the REST log endpoint.
type JudgeLog struct {
	Kind       JudgeLogKind `json:"kind"`
	Tests      []TestRow    `json:"tests"`
	Subtasks   []SubtaskRow `json:"subtasks"`
	CompileLog string       `json:"compile_log"`
	Score      uint32       `json:"score"`
	IsFull     bool         `json:"is_full"`
	Status     Status       `json:"status"`
}
