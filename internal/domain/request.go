// Package domain holds the data model shared by the judge pipeline:
// requests, problem and toolchain descriptions, invocation envelopes,
// and the outcomes produced by compiling and running a submission.
package domain

// Request is the immutable input to a single judging job.
type Request struct {
	ToolchainName string
	ProblemID     string
	RunSource     []byte
}

// FileRoot selects which base directory a FileRef is resolved against.
type FileRoot int

const (
	// FileRootProblem resolves Path against the problem's asset directory.
	FileRootProblem FileRoot = iota
	// FileRootAbsolute resolves Path against the filesystem root.
	FileRootAbsolute
)

// FileRef names a file relative to one of the two known roots.
type FileRef struct {
	Root FileRoot
	Path string
}

// Limits bounds a single command execution.
type Limits struct {
	TimeMs    uint64 `yaml:"time_ms" json:"time_ms"`       // wall/CPU time limit, milliseconds
	MemoryKiB uint64 `yaml:"memory_kib" json:"memory_kib"` // memory limit, kibibytes
	Processes uint32 `yaml:"processes" json:"processes"`   // max concurrent process count, 0 = toolchain default
}

// TestSpec describes one test case of a problem.
type TestSpec struct {
	Path    FileRef
	Correct *FileRef // reference answer, optional
	Limits  Limits
	Group   string
}

// ValuerConfig describes how to launch the valuer child process for a problem.
type ValuerConfig struct {
	Exe        string
	Args       []string
	CurrentDir string // resolved relative to the problem asset dir if relative
}

// Manifest is a fully resolved problem description.
type Manifest struct {
	Tests      []TestSpec
	CheckerExe FileRef
	CheckerCmd []string
	Valuer     ValuerConfig
}
