package domain

import "context"

// RuleView is the read surface rules evaluate against. It reflects the
// transaction's pending state, not the last committed one, so a rule sees
// the records as they would exist after the commit.
type RuleView interface {
	ListRoles() []Role
	ListUsers() []User
	ListCases() []Case
	ListFIRs() []FIR
	ListParties() []Party
	ListEvidence() []Evidence
	ListCaseNotes() []CaseNote
	ListLegalSections() []LegalSection
	ListCitations() []Citation
	FindRole(id string) (Role, bool)
	FindUser(id string) (User, bool)
	FindCase(id string) (Case, bool)
	FindFIR(id string) (FIR, bool)
	FindEvidence(id string) (Evidence, bool)
	FindLegalSection(id string) (LegalSection, bool)
}

// Rule inspects a pending change set. Violations decide whether the commit
// proceeds; a non-nil error aborts evaluation outright.
type Rule interface {
	Name() string
	// Evaluate sees the post-commit view alongside the raw change list.
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs every registered rule and merges what they find.
type RulesEngine struct{ rules []Rule }

// NewRulesEngine returns an engine with no rules registered.
func NewRulesEngine() *RulesEngine { return &RulesEngine{} }

// Register appends rule to the evaluation order. Rules run in the order they
// were registered.
func (e *RulesEngine) Register(r Rule) {
	e.rules = append(e.rules, r)
}

// Evaluate runs the registered rules in order against the pending changes.
// The first rule error stops evaluation; otherwise every rule contributes its
// violations to the merged result.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var merged Result
	for _, r := range e.rules {
		found, err := r.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		merged.Merge(found)
	}
	return merged, nil
}
