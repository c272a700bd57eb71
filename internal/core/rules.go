package core

// defaultRules returns the built-in policy set in registration order. The
// four rules enforce the core record-keeping invariants: legal status
// progression, closed-case immutability, referential integrity, and identity
// uniqueness. The entity-model schema lists the same names per entity.
func defaultRules() []Rule {
	return []Rule{
		NewStatusTransitionRule(),
		NewClosedCaseAppendOnlyRule(),
		NewReferenceIntegrityRule(),
		NewUniqueIdentityRule(),
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	for _, rule := range defaultRules() {
		engine.Register(rule)
	}
	return engine
}
