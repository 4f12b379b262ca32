package judge

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/jjs-dev/judge/internal/domain"
	"github.com/jjs-dev/judge/internal/pkg/crypto"
)

// stableHash derives a deterministic digest of the (toolchain, source,
// kind) triple.
func stableHash(toolchain string, source []byte, kind domain.JudgeLogKind) string {
	return crypto.HashString(toolchain + "\x00" + string(source) + "\x00" + string(kind))
}

// seedFrom turns a hash digest into a deterministic PRNG seed.
func seedFrom(hash string) int64 {
	if len(hash) < 16 {
		hash = hash + "0000000000000000"[:16-len(hash)]
	}
	seed, _ := strconv.ParseUint(hash[:16], 16, 64)
	return int64(seed)
}

var fakeStatuses = []domain.Status{
	{Category: domain.CategoryAccepted, Kind: domain.StatusTestPassed},
	{Category: domain.CategoryRejected, Kind: domain.StatusWrongAnswer},
	{Category: domain.CategoryRejected, Kind: domain.StatusPresentationError},
}

// GenerateFakeLog produces one deterministic pseudo-random judge log for
// the given toolchain/source/kind triple, without invoking any invoker,
// valuer or checker.
func GenerateFakeLog(toolchain string, source []byte, kind domain.JudgeLogKind) domain.JudgeLog {
	rng := rand.New(rand.NewSource(seedFrom(stableHash(toolchain, source, kind))))

	testCount := 1 + rng.Intn(10)
	tests := make([]domain.TestRow, testCount)
	passed := 0
	for i := range tests {
		status := fakeStatuses[rng.Intn(len(fakeStatuses))]
		if status.Category == domain.CategoryAccepted {
			passed++
		}
		tests[i] = domain.TestRow{
			TestID: uint32(i + 1),
			Status: &status,
		}
	}

	score := uint32(passed * 100 / testCount)
	isFull := passed == testCount
	overall := domain.Status{Category: domain.CategoryRejected, Kind: domain.StatusKind("PartialSolution")}
	if isFull {
		overall = domain.Status{Category: domain.CategoryAccepted, Kind: domain.StatusKind("Accepted")}
	}

	return domain.JudgeLog{
		Kind:       kind,
		Tests:      tests,
		Subtasks:   nil,
		CompileLog: fmt.Sprintf("fake compile log for %s", toolchain),
		Score:      score,
		IsFull:     false,
		Status:     overall,
	}
}

// GenerateFakeLogs produces one fake log per configured kind.
func GenerateFakeLogs(toolchain string, source []byte) []domain.JudgeLog {
	kinds := domain.JudgeLogKinds()
	logs := make([]domain.JudgeLog, len(kinds))
	for i, kind := range kinds {
		logs[i] = GenerateFakeLog(toolchain, source, kind)
	}
	return logs
}
