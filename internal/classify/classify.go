// Package classify implements the command-result classifier shared by the
// compiler driver and the test executor.
package classify

import "github.com/jjs-dev/judge/internal/domain"

// Command classifies a single executed command's result against its limits.
// Checks run in order; the first that applies wins.
func Command(limits domain.Limits, result domain.CommandResult) domain.CommandOutcome {
	if result.SpawnError != nil {
		return domain.CommandStartup
	}
	if result.CPUTimeNs != nil && *result.CPUTimeNs > limits.TimeMs*1_000_000 {
		return domain.CommandTimeLimit
	}
	if result.MemoryKiB != nil && *result.MemoryKiB > limits.MemoryKiB {
		return domain.CommandMemLimit
	}
	if result.ExitCode != nil && *result.ExitCode != 0 {
		return domain.CommandRuntime
	}
	return domain.CommandOk
}
