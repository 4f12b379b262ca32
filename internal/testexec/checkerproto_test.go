package testexec

import (
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

func TestParseCheckerDecision(t *testing.T) {
	cases := []struct {
		text string
		want domain.CheckerOutcome
		ok   bool
	}{
		{"outcome=Ok\n", domain.CheckerOk, true},
		{"outcome=WrongAnswer\ncomment=nope\n", domain.CheckerWrongAnswer, true},
		{"outcome=PresentationError\n", domain.CheckerPresentationError, true},
		{"outcome=BadChecker\n", domain.CheckerBadChecker, true},
		{"garbage\n", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := parseCheckerDecision(c.text)
		if ok != c.ok || got != c.want {
			t.Errorf("parseCheckerDecision(%q) = (%q, %v), want (%q, %v)", c.text, got, ok, c.want, c.ok)
		}
	}
}
