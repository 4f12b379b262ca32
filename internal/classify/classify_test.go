package classify

import (
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

func u64(v uint64) *uint64 { return &v }
func i32(v int32) *int32   { return &v }
func s(v string) *string   { return &v }

func TestCommand_Startup(t *testing.T) {
	limits := domain.Limits{TimeMs: 1000, MemoryKiB: 1000}
	got := Command(limits, domain.CommandResult{SpawnError: s("exec format error")})
	if got != domain.CommandStartup {
		t.Fatalf("got %v", got)
	}
}

func TestCommand_TimeLimit_StrictInequality(t *testing.T) {
	limits := domain.Limits{TimeMs: 1000, MemoryKiB: 1_000_000}
	// exactly at the limit is NOT TLE
	exact := Command(limits, domain.CommandResult{CPUTimeNs: u64(1000 * 1_000_000), ExitCode: i32(0)})
	if exact != domain.CommandOk {
		t.Fatalf("exact-limit case: got %v, want Ok", exact)
	}
	over := Command(limits, domain.CommandResult{CPUTimeNs: u64(1000*1_000_000 + 1)})
	if over != domain.CommandTimeLimit {
		t.Fatalf("over-limit case: got %v, want TimeLimit", over)
	}
}

func TestCommand_MemLimit(t *testing.T) {
	limits := domain.Limits{TimeMs: 1000, MemoryKiB: 1000}
	got := Command(limits, domain.CommandResult{MemoryKiB: u64(1001)})
	if got != domain.CommandMemLimit {
		t.Fatalf("got %v", got)
	}
}

func TestCommand_Runtime(t *testing.T) {
	limits := domain.Limits{TimeMs: 1000, MemoryKiB: 1000}
	got := Command(limits, domain.CommandResult{ExitCode: i32(1)})
	if got != domain.CommandRuntime {
		t.Fatalf("got %v", got)
	}
}

func TestCommand_Ok(t *testing.T) {
	limits := domain.Limits{TimeMs: 1000, MemoryKiB: 1000}
	got := Command(limits, domain.CommandResult{ExitCode: i32(0)})
	if got != domain.CommandOk {
		t.Fatalf("got %v", got)
	}
}
