package restapi

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/judge"
	"github.com/jjs-dev/judge/internal/logging"
)

func (s *State) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var body JudgeRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.ToolchainName == "" || body.ProblemID == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "toolchain_name and problem_id are required")
		return
	}

	runSource, err := base64.StdEncoding.DecodeString(body.RunSourceB64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_run_source", "run_source must be base64-encoded")
		return
	}

	id := uuid.New()
	job := &Job{
		ID:          id,
		logs:        make(map[string]domain.JudgeLog),
		Annotations: body.Annotations,
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	req := domain.Request{ToolchainName: body.ToolchainName, ProblemID: body.ProblemID, RunSource: runSource}
	progress := s.proc.Run(context.Background(), id, req)
	go s.drain(id, progress)

	writeJSON(w, http.StatusAccepted, job)
}

// drain consumes a job's progress stream, applying each event to the
// shared Job record under the write lock.
func (s *State) drain(id uuid.UUID, progress *judge.Progress) {
	for ev := range progress.Events {
		s.mu.Lock()
		job, ok := s.jobs[id]
		if !ok {
			s.mu.Unlock()
			continue
		}
		switch ev.Kind {
		case judge.EventLiveTest:
			tid := ev.TestID
			job.Live.Test = &tid
		case judge.EventLiveScore:
			score := ev.Score
			job.Live.Score = &score
		case judge.EventLogCreated:
			job.logs[string(ev.LogKind)] = ev.Log
		}
		s.mu.Unlock()
	}

	outcome := <-progress.Done

	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		job.Completed = true
		if outcome.Err != nil {
			msg := outcome.Err.Error()
			job.Err = &msg
		}
	}
	s.mu.Unlock()

	if ok {
		logging.Op().Info("job completed", "job", id, "success", outcome.Err == nil)
		if s.onComplete != nil {
			s.mu.RLock()
			snapshot := *job
			s.mu.RUnlock()
			s.onComplete(&snapshot)
		}
	}
}
