package core

import (
	"casefile/pkg/domain"
	"context"
	"fmt"
	"reflect"
	"time"
)

// NewClosedCaseAppendOnlyRule returns the rule making closed cases
// append-only. A case that entered the transaction closed rejects field
// mutations and sub-entity writes, with the sanctioned exceptions: explicit
// reopen, archival, appended case notes, and appended custody events on
// existing evidence.
func NewClosedCaseAppendOnlyRule() domain.Rule {
	return closedCaseAppendOnlyRule{}
}

type closedCaseAppendOnlyRule struct{}

func (closedCaseAppendOnlyRule) Name() string { return "closed_case_append_only" }

func (closedCaseAppendOnlyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	closed := closedCasesAtStart(view, changes)

	for _, change := range changes {
		switch change.Entity {
		case domain.EntityCase:
			if change.Action != domain.ActionUpdate {
				continue
			}
			before, okBefore := domain.PayloadAs[domain.Case](change.Before)
			after, okAfter := domain.PayloadAs[domain.Case](change.After)
			if !okBefore || !okAfter || before.Status != domain.StatusClosed {
				continue
			}
			if isReopen(before, after) || isArchival(before, after) {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "closed_case_append_only",
				Severity: domain.RuleSeverityBlock,
				Message:  fmt.Sprintf("case %s is closed and append-only", before.CaseNumber),
				Entity:   domain.EntityCase,
				EntityID: before.ID,
			})
		case domain.EntityFIR:
			if fir, ok := domain.PayloadAs[domain.FIR](change.After); ok {
				if _, isClosed := closed[fir.CaseID]; isClosed {
					res.Violations = append(res.Violations, blockedSubEntity(change.Entity, fir.ID, fir.CaseID))
				}
			}
		case domain.EntityParty:
			if party, ok := domain.PayloadAs[domain.Party](change.After); ok {
				if _, isClosed := closed[party.CaseID]; isClosed {
					res.Violations = append(res.Violations, blockedSubEntity(change.Entity, party.ID, party.CaseID))
				}
			}
		case domain.EntityEvidence:
			after, ok := domain.PayloadAs[domain.Evidence](change.After)
			if !ok {
				continue
			}
			if _, isClosed := closed[after.CaseID]; !isClosed {
				continue
			}
			if change.Action == domain.ActionUpdate {
				if before, ok := domain.PayloadAs[domain.Evidence](change.Before); ok && isCustodyAppend(before, after) {
					continue
				}
			}
			res.Violations = append(res.Violations, blockedSubEntity(change.Entity, after.ID, after.CaseID))
		case domain.EntityCitation:
			if citation, ok := domain.PayloadAs[domain.Citation](change.After); ok {
				if _, isClosed := closed[citation.CaseID]; isClosed {
					res.Violations = append(res.Violations, blockedSubEntity(change.Entity, citation.ID, citation.CaseID))
				}
			}
		case domain.EntityCaseNote:
			// Notes stay writable on closed cases.
		}
	}
	return res, nil
}

// closedCasesAtStart returns the IDs of cases that were closed when the
// transaction began. Cases touched by the change list contribute their
// Before status; untouched cases contribute their snapshot status.
func closedCasesAtStart(view domain.RuleView, changes []domain.Change) map[string]struct{} {
	touched := make(map[string]domain.CaseStatus)
	created := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != domain.EntityCase {
			continue
		}
		if change.Action == domain.ActionCreate {
			if after, ok := domain.PayloadAs[domain.Case](change.After); ok {
				created[after.ID] = struct{}{}
			}
			continue
		}
		if before, ok := domain.PayloadAs[domain.Case](change.Before); ok {
			touched[before.ID] = before.Status
		}
	}

	closed := make(map[string]struct{})
	for _, c := range view.ListCases() {
		if _, isNew := created[c.ID]; isNew {
			continue
		}
		status := c.Status
		if start, ok := touched[c.ID]; ok {
			status = start
		}
		if status == domain.StatusClosed {
			closed[c.ID] = struct{}{}
		}
	}
	return closed
}

// isArchival reports whether the only change to a closed case is setting
// ArchivedAt.
func isArchival(before, after domain.Case) bool {
	if after.ArchivedAt == nil || before.ArchivedAt != nil {
		return false
	}
	normBefore, normAfter := before, after
	normBefore.ArchivedAt = nil
	normAfter.ArchivedAt = nil
	normBefore.UpdatedAt = time.Time{}
	normAfter.UpdatedAt = time.Time{}
	return reflect.DeepEqual(normBefore, normAfter)
}

// isCustodyAppend reports whether an evidence update only extends the chain
// of custody.
func isCustodyAppend(before, after domain.Evidence) bool {
	if len(after.Custody) <= len(before.Custody) {
		return false
	}
	normBefore, normAfter := before, after
	normBefore.Custody = nil
	normAfter.Custody = nil
	normBefore.UpdatedAt = time.Time{}
	normAfter.UpdatedAt = time.Time{}
	if !reflect.DeepEqual(normBefore, normAfter) {
		return false
	}
	for i := range before.Custody {
		if !reflect.DeepEqual(before.Custody[i], after.Custody[i]) {
			return false
		}
	}
	return true
}

func blockedSubEntity(entity domain.EntityType, id, caseID string) domain.Violation {
	return domain.Violation{
		Rule:     "closed_case_append_only",
		Severity: domain.RuleSeverityBlock,
		Message:  fmt.Sprintf("case %s is closed; %s records are append-only", caseID, entity),
		Entity:   entity,
		EntityID: id,
	}
}
