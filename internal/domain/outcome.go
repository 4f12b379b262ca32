package domain

// StatusKind is the disposition of a test or a compile attempt.
type StatusKind string

const (
	StatusTestPassed         StatusKind = "TestPassed"
	StatusWrongAnswer        StatusKind = "WrongAnswer"
	StatusPresentationError  StatusKind = "PresentationError"
	StatusCompilerFailed     StatusKind = "CompilerFailed"
	StatusCompilationTimedOut StatusKind = "CompilationTimedOut"
	StatusJudgeFault         StatusKind = "JudgeFault"
)

// StatusCategory is the coarse-grained classification alongside StatusKind,
// mirroring the original's paired (category, kind) status representation.
type StatusCategory string

const (
	CategoryAccepted    StatusCategory = "Accepted"
	CategoryRejected    StatusCategory = "Rejected"
	CategoryInternalError StatusCategory = "InternalError"
	CategoryCompilationError StatusCategory = "CompilationError"
)

// Status is the paired category+kind outcome attached to a test row or a
// compile result, e.g. (Accepted, TestPassed) or (CompilationError, CompilerFailed).
type Status struct {
	Category StatusCategory `json:"category"`
	Kind     StatusKind     `json:"kind"`
}

// CommandOutcome is the classifier's verdict for one executed command,
// independent of whether it was a build step or a test run.
type CommandOutcome string

const (
	CommandStartup CommandOutcome = "Startup"
	CommandTimeLimit CommandOutcome = "TimeLimit"
	CommandMemLimit CommandOutcome = "MemLimit"
	CommandRuntime CommandOutcome = "Runtime"
	CommandOk CommandOutcome = "Ok"
)

// BuiltRun is the successful product of the compiler driver.
type BuiltRun struct {
	Binary []byte
}

// BuildOutcome is the compiler driver's result: either a BuiltRun or a
// failure Status, always paired with the accumulated compile log.
type BuildOutcome struct {
	Run    *BuiltRun
	Err    *Status
	Log    string
}

// ResourceUsage is what the sandbox reported for one executed command.
type ResourceUsage struct {
	MemoryKiB *uint64
	TimeMs    *uint64
}

// ExecOutcome is the test executor's verdict for a single test.
type ExecOutcome struct {
	Status   Status
	Usage    ResourceUsage
	Stdout   []byte
	Stderr   []byte
}

// CheckerOutcome is the parsed decision from the checker child-process
// contract's key/value wire format (see internal/testexec/checkerproto.go).
type CheckerOutcome string

const (
	CheckerOk                CheckerOutcome = "Ok"
	CheckerWrongAnswer       CheckerOutcome = "WrongAnswer"
	CheckerPresentationError CheckerOutcome = "PresentationError"
	CheckerBadChecker        CheckerOutcome = "BadChecker"
)
