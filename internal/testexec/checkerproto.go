package testexec

import (
	"bufio"
	"strings"

	"github.com/jjs-dev/judge/internal/domain"
)

// parseCheckerDecision parses the checker's line-oriented key/value
// decision file. Only the "outcome" key is interpreted here; any other
// keys (e.g. a human-readable comment) are carried separately via the
// checker's stderr/log file rather than through this function's result.
func parseCheckerDecision(text string) (domain.CheckerOutcome, bool) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) != "outcome" {
			continue
		}
		switch strings.TrimSpace(value) {
		case "Ok":
			return domain.CheckerOk, true
		case "WrongAnswer":
			return domain.CheckerWrongAnswer, true
		case "PresentationError":
			return domain.CheckerPresentationError, true
		case "BadChecker":
			return domain.CheckerBadChecker, true
		}
	}
	return "", false
}

// outcomeToStatus maps a parsed checker outcome to the paired
// (category, kind) status.
func outcomeToStatus(o domain.CheckerOutcome) domain.Status {
	switch o {
	case domain.CheckerOk:
		return domain.Status{Category: domain.CategoryAccepted, Kind: domain.StatusTestPassed}
	case domain.CheckerWrongAnswer:
		return domain.Status{Category: domain.CategoryRejected, Kind: domain.StatusWrongAnswer}
	case domain.CheckerPresentationError:
		return domain.Status{Category: domain.CategoryRejected, Kind: domain.StatusPresentationError}
	default:
		return domain.Status{Category: domain.CategoryInternalError, Kind: domain.StatusJudgeFault}
	}
}
