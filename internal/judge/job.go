// Package judge drives a single judging job from a raw Request through
// compilation, the valuer-directed test loop, and final log assembly.
package judge

import (
	"github.com/jjs-dev/judge/internal/domain"
)

// EventKind discriminates the progress events a job emits.
type EventKind string

const (
	EventLiveTest   EventKind = "live_test"
	EventLiveScore  EventKind = "live_score"
	EventLogCreated EventKind = "log_created"
)

// Event is one item on a job's progress stream. Exactly the fields
// matching Kind are meaningful.
type Event struct {
	Kind EventKind

	TestID uint32
	Score  uint32

	LogKind domain.JudgeLogKind
	Log     domain.JudgeLog
}

// Outcome is the job's terminal result.
type Outcome struct {
	// Err is nil on success. A non-nil Err still leaves every log kind
	// populated: kinds not emitted before the failure get a fake JudgeFault
	// entry (see processor.go).
	Err error
}

// Progress is the handle returned by Run: a bounded event stream plus a
// one-shot completion channel, mirroring an async task plus a queue.
type Progress struct {
	Events <-chan Event
	Done   <-chan Outcome
}

type progressWriter struct {
	events chan Event
	done   chan Outcome
}

func newProgressWriter() *progressWriter {
	return &progressWriter{
		events: make(chan Event, 1),
		done:   make(chan Outcome, 1),
	}
}

func (p *progressWriter) handle() *Progress {
	return &Progress{Events: p.events, Done: p.done}
}

func (p *progressWriter) emit(ev Event) {
	p.events <- ev
}

func (p *progressWriter) finish(outcome Outcome) {
	p.done <- outcome
	close(p.events)
}
