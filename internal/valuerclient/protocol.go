package valuerclient

import "github.com/jjs-dev/judge/internal/domain"

// ProblemInfo is sent once at startup, listing every test's group string
// in order.
type ProblemInfo struct {
	Tests []string `json:"tests"`
}

// TestDoneNotification is sent after every test finishes.
type TestDoneNotification struct {
	TestID     uint32        `json:"test_id"`
	TestStatus domain.Status `json:"test_status"`
}

// MessageKind discriminates the valuer-to-judge message union.
type MessageKind string

const (
	MessageTest      MessageKind = "test"
	MessageLiveScore MessageKind = "live_score"
	MessageJudgeLog  MessageKind = "judge_log"
	MessageFinish    MessageKind = "finish"
)

// Message is one line of the valuer's newline-delimited JSON output.
type Message struct {
	Kind MessageKind `json:"kind"`

	Test      *TestInstruction      `json:"test,omitempty"`
	LiveScore *LiveScoreInstruction `json:"live_score,omitempty"`
	JudgeLog  *domain.ValuerJudgeLog `json:"judge_log,omitempty"`
}

type TestInstruction struct {
	TestID uint32 `json:"test_id"`
	Live   bool   `json:"live"`
}

type LiveScoreInstruction struct {
	Score uint32 `json:"score"`
}
