package classifier

import (
	"context"
	"fmt"
	"strings"
)

// RuleClassifier judges reports by their structured status field. It
// needs no external service and is the default backend.
//
// A report with status "pass" advances; "fail" and "partial" both fail
// (a partially green phase has failing tests, which is a failure for
// pipeline purposes); anything else is informational.
type RuleClassifier struct{}

// NewRuleClassifier creates a RuleClassifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify implements Classifier.
func (RuleClassifier) Classify(_ context.Context, req Request) (Classification, error) {
	status, ok := req.Content["status"].(string)
	if !ok {
		return Classification{
			Verdict:   VerdictInformational,
			Rationale: "report carries no status field",
		}, nil
	}

	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pass", "passed", "success", "done", "complete", "completed":
		return Classification{
			Verdict:   VerdictAdvance,
			Rationale: fmt.Sprintf("%s reported status %q", req.Role, status),
		}, nil
	case "fail", "failed", "error", "partial":
		return Classification{
			Verdict:   VerdictFail,
			Rationale: fmt.Sprintf("%s reported status %q", req.Role, status),
		}, nil
	default:
		return Classification{
			Verdict:   VerdictInformational,
			Rationale: fmt.Sprintf("unrecognized status %q", status),
		}, nil
	}
}
