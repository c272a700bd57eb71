package core

import (
	"casefile/pkg/domain"
	"context"
	"fmt"
	"sort"
	"strings"
)

// NewUniqueIdentityRule returns the rule enforcing identity uniqueness
// across the snapshot: case numbers, FIR numbers, user emails and badge
// numbers, role names, and statute section codes. Case numbers, emails, and
// section codes compare case-insensitively to match their finders.
func NewUniqueIdentityRule() domain.Rule {
	return uniqueIdentityRule{}
}

type uniqueIdentityRule struct{}

func (uniqueIdentityRule) Name() string { return "unique_identity" }

func (uniqueIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	caseNumbers := make(map[string][]string)
	for _, c := range view.ListCases() {
		key := strings.ToLower(c.CaseNumber)
		caseNumbers[key] = append(caseNumbers[key], c.ID)
	}
	appendDuplicates(&res, domain.EntityCase, "case number", caseNumbers)

	firNumbers := make(map[string][]string)
	for _, fir := range view.ListFIRs() {
		key := strings.ToLower(fir.FIRNumber)
		firNumbers[key] = append(firNumbers[key], fir.ID)
	}
	appendDuplicates(&res, domain.EntityFIR, "fir number", firNumbers)

	emails := make(map[string][]string)
	badges := make(map[string][]string)
	for _, user := range view.ListUsers() {
		emails[strings.ToLower(user.Email)] = append(emails[strings.ToLower(user.Email)], user.ID)
		if user.BadgeNumber != nil && *user.BadgeNumber != "" {
			badges[*user.BadgeNumber] = append(badges[*user.BadgeNumber], user.ID)
		}
	}
	appendDuplicates(&res, domain.EntityUser, "email", emails)
	appendDuplicates(&res, domain.EntityUser, "badge number", badges)

	roleNames := make(map[string][]string)
	for _, role := range view.ListRoles() {
		roleNames[role.Name] = append(roleNames[role.Name], role.ID)
	}
	appendDuplicates(&res, domain.EntityRole, "role name", roleNames)

	sectionCodes := make(map[string][]string)
	for _, section := range view.ListLegalSections() {
		key := strings.ToLower(section.Statute) + "/" + strings.ToLower(section.Code)
		sectionCodes[key] = append(sectionCodes[key], section.ID)
	}
	appendDuplicates(&res, domain.EntityLegalSection, "section code", sectionCodes)

	return res, nil
}

func appendDuplicates(res *domain.Result, entity domain.EntityType, label string, index map[string][]string) {
	for value, ids := range index {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "unique_identity",
			Severity: domain.RuleSeverityBlock,
			Message:  fmt.Sprintf("duplicate %s %q shared by %s", label, value, strings.Join(ids, ", ")),
			Entity:   entity,
			EntityID: ids[0],
		})
	}
}
