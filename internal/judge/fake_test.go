package judge

import (
	"reflect"
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

func TestGenerateFakeLog_Deterministic(t *testing.T) {
	a := GenerateFakeLog("cpp17", []byte("int main(){}"), domain.JudgeLogKindContestant)
	b := GenerateFakeLog("cpp17", []byte("int main(){}"), domain.JudgeLogKindContestant)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("fake log generation is not deterministic:\na=%+v\nb=%+v", a, b)
	}
}

func TestGenerateFakeLog_DiffersByInputs(t *testing.T) {
	a := GenerateFakeLog("cpp17", []byte("int main(){}"), domain.JudgeLogKindContestant)
	b := GenerateFakeLog("cpp17", []byte("int main(){}"), domain.JudgeLogKindFull)
	if reflect.DeepEqual(a, b) {
		t.Fatalf("expected different kinds to (almost surely) produce different logs")
	}
}

func TestGenerateFakeLogs_OneParKind(t *testing.T) {
	logs := GenerateFakeLogs("cpp17", []byte("src"))
	if len(logs) != len(domain.JudgeLogKinds()) {
		t.Fatalf("expected %d logs, got %d", len(domain.JudgeLogKinds()), len(logs))
	}
	seen := make(map[domain.JudgeLogKind]bool)
	for _, l := range logs {
		if seen[l.Kind] {
			t.Fatalf("duplicate kind %s", l.Kind)
		}
		seen[l.Kind] = true
		if l.IsFull {
			t.Fatalf("persistent fake logs must never set IsFull")
		}
	}
}
