package domain

import "context"

// Transaction is the mutating surface a storage backend provides inside one
// atomic scope. There are deliberately no delete methods anywhere on this
// interface: records leave circulation through soft state (archival, release,
// withdrawal, deactivation), never through removal.
type Transaction interface {
	Snapshot() TransactionView
	CreateRole(Role) (Role, error)
	UpdateRole(id string, mutator func(*Role) error) (Role, error)
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	CreateCase(Case) (Case, error)
	UpdateCase(id string, mutator func(*Case) error) (Case, error)
	CreateFIR(FIR) (FIR, error)
	UpdateFIR(id string, mutator func(*FIR) error) (FIR, error)
	CreateParty(Party) (Party, error)
	UpdateParty(id string, mutator func(*Party) error) (Party, error)
	CreateEvidence(Evidence) (Evidence, error)
	UpdateEvidence(id string, mutator func(*Evidence) error) (Evidence, error)
	CreateCaseNote(CaseNote) (CaseNote, error)
	CreateLegalSection(LegalSection) (LegalSection, error)
	UpdateLegalSection(id string, mutator func(*LegalSection) error) (LegalSection, error)
	CreateCitation(Citation) (Citation, error)
	FindCase(id string) (Case, bool)
	FindUser(id string) (User, bool)
	FindRole(id string) (Role, bool)
	FindEvidence(id string) (Evidence, bool)
	FindLegalSection(id string) (LegalSection, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// queries. It extends RuleView with per-case listing helpers.
type TransactionView interface {
	RuleView
	FIRsByCase(caseID string) []FIR
	PartiesByCase(caseID string) []Party
	EvidenceByCase(caseID string) []Evidence
	NotesByCase(caseID string) []CaseNote
	CitationsByCase(caseID string) []Citation
}

// PersistentStore is the backend contract consumed above the persistence
// layer. Implementations pair transactional writes with consistent read
// snapshots plus a handful of direct lookups.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCase(id string) (Case, bool)
	FindCaseByNumber(number string) (Case, bool)
	ListCases() []Case
	GetUser(id string) (User, bool)
	FindUserByEmail(email string) (User, bool)
	ListUsers() []User
	GetRole(id string) (Role, bool)
	FindRoleByName(name string) (Role, bool)
	ListRoles() []Role
	GetEvidence(id string) (Evidence, bool)
	GetFIR(id string) (FIR, bool)
	FindFIRByNumber(number string) (FIR, bool)
	ListLegalSections() []LegalSection
	FindSectionByCode(code string) (LegalSection, bool)
	Close() error
}
