package core

import (
	"casefile/pkg/domain"
	"context"
	"fmt"
)

// NewStatusTransitionRule returns the rule enforcing the ordered case status
// progression. Statuses advance along open, under_investigation, resolved,
// closed; the only sanctioned rank-lowering is the explicit reopen of a
// closed case, which moves it back to under_investigation and increments
// the reopen counter.
func NewStatusTransitionRule() domain.Rule {
	return statusTransitionRule{}
}

type statusTransitionRule struct{}

func (statusTransitionRule) Name() string { return "case_status_transition" }

func (statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityCase {
			continue
		}
		after, ok := domain.PayloadAs[domain.Case](change.After)
		if !ok {
			continue
		}
		if domain.StatusRank(after.Status) < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "case_status_transition",
				Severity: domain.RuleSeverityBlock,
				Message:  fmt.Sprintf("unknown case status %q", after.Status),
				Entity:   domain.EntityCase,
				EntityID: after.ID,
			})
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := domain.PayloadAs[domain.Case](change.Before)
		if !ok {
			continue
		}
		if domain.StatusRank(after.Status) >= domain.StatusRank(before.Status) {
			continue
		}
		if isReopen(before, after) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "case_status_transition",
			Severity: domain.RuleSeverityBlock,
			Message:  fmt.Sprintf("case %s cannot move from %s back to %s", after.CaseNumber, before.Status, after.Status),
			Entity:   domain.EntityCase,
			EntityID: after.ID,
		})
	}
	return res, nil
}

// isReopen reports whether a case change is the sanctioned closed to
// under_investigation transition with the reopen counter incremented.
func isReopen(before, after domain.Case) bool {
	return before.Status == domain.StatusClosed &&
		after.Status == domain.StatusUnderInvestigation &&
		after.ReopenCount == before.ReopenCount+1
}
