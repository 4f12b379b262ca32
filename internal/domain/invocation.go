package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ActionKind discriminates the closed set of steps an invocation can contain.
type ActionKind string

const (
	ActionOpenNullFile   ActionKind = "open_null_file"
	ActionCreateVolume   ActionKind = "create_volume"
	ActionCreateFile     ActionKind = "create_file"
	ActionCreateSandbox  ActionKind = "create_sandbox"
	ActionExecuteCommand ActionKind = "execute_command"
)

// Action is a tagged union over the invoker's step kinds. Go has no native
// sum type, so exactly one of the pointer fields matching Kind is set; the
// rest stay nil and are omitted from the wire form.
type Action struct {
	Kind ActionKind `json:"kind"`

	OpenNullFile   *OpenNullFileAction   `json:"open_null_file,omitempty"`
	CreateVolume   *CreateVolumeAction   `json:"create_volume,omitempty"`
	CreateFile     *CreateFileAction     `json:"create_file,omitempty"`
	CreateSandbox  *CreateSandboxAction  `json:"create_sandbox,omitempty"`
	ExecuteCommand *ExecuteCommandAction `json:"execute_command,omitempty"`
}

type OpenNullFileAction struct {
	FileID string `json:"file_id"`
}

type CreateVolumeAction struct {
	VolumeID     string `json:"volume_id"`
	SizeLimitKiB uint64 `json:"size_limit_kib"`
}

// CreateFileAction allocates a readable+writable file, used for per-step
// stdout/stderr capture and for the checker's decision/log files.
type CreateFileAction struct {
	FileID string `json:"file_id"`
}

// SharedDirSource names where a sandbox-visible directory's contents come
// from: either the invocation's extra-files bundle (optionally scoped to a
// subdirectory within it) or a previously created volume.
type SharedDirSource struct {
	Kind              string `json:"kind"` // "extra_files" | "volume"
	ExtraFilesSubpath string `json:"extra_files_subpath,omitempty"`
	VolumeID          string `json:"volume_id,omitempty"`
}

type SharedDir struct {
	Source    SharedDirSource `json:"source"`
	MountPath string          `json:"mount_path"`
	ReadOnly  bool            `json:"read_only"`
}

type CreateSandboxAction struct {
	SandboxID  string      `json:"sandbox_id"`
	Image      string      `json:"image"`
	Limits     Limits      `json:"limits"`
	SharedDirs []SharedDir `json:"shared_dirs"`
}

type ExecuteCommandAction struct {
	SandboxID string            `json:"sandbox_id"`
	Argv      []string          `json:"argv"`
	Env       map[string]string `json:"env"`
	Cwd       string            `json:"cwd"`
	Stdin     string            `json:"stdin_file_id"`
	Stdout    string            `json:"stdout_file_id"`
	Stderr    string            `json:"stderr_file_id"`
}

// Step pairs an action with the pipeline stage it belongs to; stages are
// ordered but independent actions within a stage carry no ordering promise
// beyond the order they appear in Steps.
type Step struct {
	Stage  int    `json:"stage"`
	Action Action `json:"action"`
}

// InputSource is the payload backing one named input file. Currently only
// inline base64 is produced (see internal/reqbuilder); a local-file
// transport would add a sibling variant here without touching callers.
type InputSource struct {
	Kind         string `json:"kind"` // "inline_base64"
	InlineBase64 string `json:"inline_base64,omitempty"`
}

type Input struct {
	FileID string      `json:"file_id"`
	Source InputSource `json:"source"`
}

type OutputRequest struct {
	Name   string `json:"name"`
	FileID string `json:"file_id"`
}

// ExtraFile is one entry of the invocation's extra-files bundle: a file
// made visible to sandboxes via a SharedDir with Source.Kind=="extra_files".
type ExtraFile struct {
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
}

// Extensions is the typed bag of forward-compatible invocation metadata
// described in the design notes: well-known fields plus Raw, an in-memory
// map of raw-JSON entries. Raw is excluded from the wire form: unknown keys
// are not decoded into it and its entries are not sent.
type Extensions struct {
	ExtraFiles    map[string]ExtraFile `json:"extra_files,omitempty"`
	Substitutions map[string]string    `json:"substitutions,omitempty"`

	Raw map[string]json.RawMessage `json:"-"`
}

// InvokeRequest is the opaque invocation envelope sent to the invoker.
// ID must be nil on submission; the invoker client assigns a fresh one.
type InvokeRequest struct {
	ID         *uuid.UUID      `json:"id"`
	Steps      []Step          `json:"steps"`
	Inputs     []Input         `json:"inputs"`
	Outputs    []OutputRequest `json:"outputs"`
	Extensions Extensions      `json:"extensions"`
}

// CommandResult is the invoker's report for one execute_command step.
type CommandResult struct {
	SpawnError *string `json:"spawn_error,omitempty"`
	CPUTimeNs  *uint64 `json:"cpu_time_ns,omitempty"`
	MemoryKiB  *uint64 `json:"memory_kib,omitempty"`
	ExitCode   *int32  `json:"exit_code,omitempty"`
}

// ActionResult is the per-step outcome; only execute_command steps produce
// a meaningful CommandResult, other kinds report bare success.
type ActionResult struct {
	Command *CommandResult `json:"command,omitempty"`
}

// InvokeResponse is the invoker's reply to an InvokeRequest.
type InvokeResponse struct {
	ID            uuid.UUID         `json:"id"`
	ActionResults []ActionResult    `json:"action_results"`
	OutputData    map[string]string `json:"output_data"` // name -> base64
}
