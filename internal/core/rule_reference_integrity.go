package core

import (
	"casefile/pkg/domain"
	"context"
	"fmt"
)

// NewReferenceIntegrityRule returns the rule enforcing foreign keys at
// commit: every FIR, party, evidence item, note, and citation must point at
// an existing case, users must carry an existing role, and optional actor
// references must resolve when set.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	missing := func(entity domain.EntityType, id, field, target string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "reference_integrity",
			Severity: domain.RuleSeverityBlock,
			Message:  fmt.Sprintf("%s %s references unknown %s %q", entity, id, field, target),
			Entity:   entity,
			EntityID: id,
		})
	}
	requireCase := func(entity domain.EntityType, id, caseID string) {
		if _, ok := view.FindCase(caseID); !ok {
			missing(entity, id, "case_id", caseID)
		}
	}
	requireUser := func(entity domain.EntityType, id, field, userID string) {
		if userID == "" {
			return
		}
		if _, ok := view.FindUser(userID); !ok {
			missing(entity, id, field, userID)
		}
	}

	for _, change := range changes {
		switch change.Entity {
		case domain.EntityUser:
			if user, ok := domain.PayloadAs[domain.User](change.After); ok {
				if _, found := view.FindRole(user.RoleID); !found {
					missing(domain.EntityUser, user.ID, "role_id", user.RoleID)
				}
			}
		case domain.EntityCase:
			if c, ok := domain.PayloadAs[domain.Case](change.After); ok {
				if c.AssignedOfficerID != nil {
					requireUser(domain.EntityCase, c.ID, "assigned_officer_id", *c.AssignedOfficerID)
				}
				if c.InformantUserID != nil {
					requireUser(domain.EntityCase, c.ID, "informant_user_id", *c.InformantUserID)
				}
			}
		case domain.EntityFIR:
			if fir, ok := domain.PayloadAs[domain.FIR](change.After); ok {
				requireCase(domain.EntityFIR, fir.ID, fir.CaseID)
				requireUser(domain.EntityFIR, fir.ID, "filed_by_id", fir.FiledByID)
			}
		case domain.EntityParty:
			if party, ok := domain.PayloadAs[domain.Party](change.After); ok {
				requireCase(domain.EntityParty, party.ID, party.CaseID)
			}
		case domain.EntityEvidence:
			if item, ok := domain.PayloadAs[domain.Evidence](change.After); ok {
				requireCase(domain.EntityEvidence, item.ID, item.CaseID)
				requireUser(domain.EntityEvidence, item.ID, "collected_by_id", item.CollectedByID)
			}
		case domain.EntityCaseNote:
			if note, ok := domain.PayloadAs[domain.CaseNote](change.After); ok {
				requireCase(domain.EntityCaseNote, note.ID, note.CaseID)
				requireUser(domain.EntityCaseNote, note.ID, "author_id", note.AuthorID)
			}
		case domain.EntityCitation:
			if citation, ok := domain.PayloadAs[domain.Citation](change.After); ok {
				requireCase(domain.EntityCitation, citation.ID, citation.CaseID)
				if _, found := view.FindLegalSection(citation.SectionID); !found {
					missing(domain.EntityCitation, citation.ID, "section_id", citation.SectionID)
				}
				requireUser(domain.EntityCitation, citation.ID, "added_by_id", citation.AddedByID)
			}
		}
	}
	return res, nil
}
