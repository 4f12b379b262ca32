// Package restapi exposes the judge daemon's job lifecycle over plain
// net/http: a ServeMux with Go 1.22 path patterns, r.PathValue for path
// params, and errors.Is-dispatched 404s.
package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/judge"
	"github.com/jjs-dev/judge/internal/metrics"
	"github.com/jjs-dev/judge/internal/observability"
)

// ErrJobNotFound is returned when a job id has no matching Job.
var ErrJobNotFound = errors.New("restapi: job not found")

// ErrLogNotFound is returned when a job exists but has not yet produced a
// log of the requested kind.
var ErrLogNotFound = errors.New("restapi: log not found")

// LiveStatus is the most recently observed live progress of a job.
type LiveStatus struct {
	Test  *uint32 `json:"test,omitempty"`
	Score *uint32 `json:"score,omitempty"`
}

// Job is one judging job's externally visible state, updated in place as
// its Progress stream drains. The wire representation lists only the kinds
// of logs produced so far; full log bodies are fetched one at a time via
// GET /jobs/{id}/logs/{kind}.
type Job struct {
	ID          uuid.UUID
	Live        LiveStatus
	Annotations map[string]string
	Completed   bool
	Err         *string

	logs map[string]domain.JudgeLog
}

// jobView is the JSON wire shape for Job.
type jobView struct {
	ID          uuid.UUID         `json:"id"`
	Live        LiveStatus        `json:"live"`
	Logs        []string          `json:"logs"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Completed   bool              `json:"completed"`
	Err         *string           `json:"error,omitempty"`
}

// MarshalJSON renders Job as its wire shape, reducing logs to kind names.
func (j *Job) MarshalJSON() ([]byte, error) {
	kinds := make([]string, 0, len(j.logs))
	for kind := range j.logs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return json.Marshal(jobView{
		ID:          j.ID,
		Live:        j.Live,
		Logs:        kinds,
		Annotations: j.Annotations,
		Completed:   j.Completed,
		Err:         j.Err,
	})
}

// State holds every in-flight and completed job known to this daemon
// instance. Jobs are kept in memory for the lifetime of the process; there
// is no persistent job store (see internal/auditlog and internal/jobmirror
// for the optional side channels).
type State struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*Job
	clients *judge.Clients
	proc    *judge.Processor
	settings judge.Settings

	onComplete func(job *Job) // optional hook, wired to auditlog/jobmirror
}

// NewState builds a State driving jobs through clients with settings.
func NewState(clients *judge.Clients, settings judge.Settings) *State {
	return &State{
		jobs:     make(map[uuid.UUID]*Job),
		clients:  clients,
		proc:     judge.NewProcessor(clients, settings),
		settings: settings,
	}
}

// OnComplete installs a hook invoked once per job, after Completed is set,
// with the read lock released. Used to feed the audit log and job mirror.
func (s *State) OnComplete(fn func(job *Job)) {
	s.onComplete = fn
}

// JudgeRequest is the POST /jobs request body.
type JudgeRequest struct {
	ToolchainName string            `json:"toolchain_name"`
	ProblemID     string            `json:"problem_id"`
	RunSourceB64  string            `json:"run_source"` // base64-encoded submission source
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// Mux builds the HTTP handler serving every route this package exposes.
func (s *State) Mux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /jobs/{id}/logs/{kind}", s.handleGetLog)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var handler http.Handler = mux
	handler = observability.HTTPMiddleware(handler)
	return handler
}

func (s *State) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *State) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}

	job, err := s.lookup(id)
	if err != nil {
		dispatchLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *State) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	kind := r.PathValue("kind")

	s.mu.RLock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.RUnlock()
		dispatchLookupError(w, ErrJobNotFound)
		return
	}
	log, ok := job.logs[kind]
	s.mu.RUnlock()
	if !ok {
		dispatchLookupError(w, ErrLogNotFound)
		return
	}

	writeJSON(w, http.StatusOK, log)
}

func (s *State) lookup(id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	// return a shallow snapshot; callers must not mutate it
	snapshot := *job
	return &snapshot, nil
}

func dispatchLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job_not_found", err.Error())
	case errors.Is(err, ErrLogNotFound):
		writeError(w, http.StatusNotFound, "log_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"kind": kind, "message": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
