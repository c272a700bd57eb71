// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments, and as the working state of
// the durable snapshot backends.
package memory

import (
	"casefile/pkg/domain"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Store, transaction, and transactionView must satisfy the domain persistence
// contracts; a drift here fails compilation rather than a test.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = transactionView{}
)

type (
	// Role aliases domain.Role for in-memory persistence operations.
	Role = domain.Role
	// User aliases domain.User.
	User = domain.User
	// Case aliases domain.Case.
	Case = domain.Case
	// FIR aliases domain.FIR.
	FIR = domain.FIR
	// Party aliases domain.Party.
	Party = domain.Party
	// Evidence aliases domain.Evidence.
	Evidence = domain.Evidence
	// CaseNote aliases domain.CaseNote.
	CaseNote = domain.CaseNote
	// LegalSection aliases domain.LegalSection.
	LegalSection = domain.LegalSection
	// Citation aliases domain.Citation.
	Citation = domain.Citation
	// Change aliases domain.Change.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

type storeState struct {
	roles     map[string]Role
	users     map[string]User
	cases     map[string]Case
	firs      map[string]FIR
	parties   map[string]Party
	evidence  map[string]Evidence
	notes     map[string]CaseNote
	sections  map[string]LegalSection
	citations map[string]Citation
}

// Snapshot captures a point-in-time clone of the store state. Durable
// backends marshal it as JSON; its shape is the persistence contract.
type Snapshot struct {
	Roles     map[string]Role         `json:"roles"`
	Users     map[string]User         `json:"users"`
	Cases     map[string]Case         `json:"cases"`
	FIRs      map[string]FIR          `json:"firs"`
	Parties   map[string]Party        `json:"parties"`
	Evidence  map[string]Evidence     `json:"evidence"`
	Notes     map[string]CaseNote     `json:"notes"`
	Sections  map[string]LegalSection `json:"sections"`
	Citations map[string]Citation     `json:"citations"`
}

// SnapshotBuckets enumerates the bucket names durable backends persist.
var SnapshotBuckets = []string{
	"roles",
	"users",
	"cases",
	"firs",
	"parties",
	"evidence",
	"notes",
	"sections",
	"citations",
}

// MarshalBucket encodes one named snapshot bucket as JSON.
func (s Snapshot) MarshalBucket(name string) ([]byte, error) {
	switch name {
	case "roles":
		return json.Marshal(s.Roles)
	case "users":
		return json.Marshal(s.Users)
	case "cases":
		return json.Marshal(s.Cases)
	case "firs":
		return json.Marshal(s.FIRs)
	case "parties":
		return json.Marshal(s.Parties)
	case "evidence":
		return json.Marshal(s.Evidence)
	case "notes":
		return json.Marshal(s.Notes)
	case "sections":
		return json.Marshal(s.Sections)
	case "citations":
		return json.Marshal(s.Citations)
	}
	return nil, fmt.Errorf("unknown snapshot bucket %q", name)
}

// UnmarshalBucket decodes one named snapshot bucket from JSON.
func (s *Snapshot) UnmarshalBucket(name string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	switch name {
	case "roles":
		return json.Unmarshal(payload, &s.Roles)
	case "users":
		return json.Unmarshal(payload, &s.Users)
	case "cases":
		return json.Unmarshal(payload, &s.Cases)
	case "firs":
		return json.Unmarshal(payload, &s.FIRs)
	case "parties":
		return json.Unmarshal(payload, &s.Parties)
	case "evidence":
		return json.Unmarshal(payload, &s.Evidence)
	case "notes":
		return json.Unmarshal(payload, &s.Notes)
	case "sections":
		return json.Unmarshal(payload, &s.Sections)
	case "citations":
		return json.Unmarshal(payload, &s.Citations)
	}
	return fmt.Errorf("unknown snapshot bucket %q", name)
}

func emptyState() storeState {
	return storeState{
		roles:     make(map[string]Role),
		users:     make(map[string]User),
		cases:     make(map[string]Case),
		firs:      make(map[string]FIR),
		parties:   make(map[string]Party),
		evidence:  make(map[string]Evidence),
		notes:     make(map[string]CaseNote),
		sections:  make(map[string]LegalSection),
		citations: make(map[string]Citation),
	}
}

func makeSnapshot(state storeState) Snapshot {
	snap := Snapshot{
		Roles:     make(map[string]Role, len(state.roles)),
		Users:     make(map[string]User, len(state.users)),
		Cases:     make(map[string]Case, len(state.cases)),
		FIRs:      make(map[string]FIR, len(state.firs)),
		Parties:   make(map[string]Party, len(state.parties)),
		Evidence:  make(map[string]Evidence, len(state.evidence)),
		Notes:     make(map[string]CaseNote, len(state.notes)),
		Sections:  make(map[string]LegalSection, len(state.sections)),
		Citations: make(map[string]Citation, len(state.citations)),
	}
	for k, v := range state.roles {
		snap.Roles[k] = cloneRole(v)
	}
	for k, v := range state.users {
		snap.Users[k] = cloneUser(v)
	}
	for k, v := range state.cases {
		snap.Cases[k] = cloneCase(v)
	}
	for k, v := range state.firs {
		snap.FIRs[k] = cloneFIR(v)
	}
	for k, v := range state.parties {
		snap.Parties[k] = cloneParty(v)
	}
	for k, v := range state.evidence {
		snap.Evidence[k] = cloneEvidence(v)
	}
	for k, v := range state.notes {
		snap.Notes[k] = cloneNote(v)
	}
	for k, v := range state.sections {
		snap.Sections[k] = cloneSection(v)
	}
	for k, v := range state.citations {
		snap.Citations[k] = cloneCitation(v)
	}
	return snap
}

func hydrateState(s Snapshot) storeState {
	st := emptyState()
	for k, v := range s.Roles {
		st.roles[k] = cloneRole(v)
	}
	for k, v := range s.Users {
		st.users[k] = cloneUser(v)
	}
	for k, v := range s.Cases {
		st.cases[k] = cloneCase(v)
	}
	for k, v := range s.FIRs {
		st.firs[k] = cloneFIR(v)
	}
	for k, v := range s.Parties {
		st.parties[k] = cloneParty(v)
	}
	for k, v := range s.Evidence {
		st.evidence[k] = cloneEvidence(v)
	}
	for k, v := range s.Notes {
		st.notes[k] = cloneNote(v)
	}
	for k, v := range s.Sections {
		st.sections[k] = cloneSection(v)
	}
	for k, v := range s.Citations {
		st.citations[k] = cloneCitation(v)
	}
	return st
}

// migrateSnapshot normalizes snapshots loaded from durable storage: missing
// buckets become empty maps, unknown enum values are coerced to safe
// defaults, and child records whose parent row vanished are dropped so a
// hydrated store never serves dangling references.
func migrateSnapshot(snap Snapshot) Snapshot {
	if snap.Roles == nil {
		snap.Roles = map[string]Role{}
	}
	if snap.Users == nil {
		snap.Users = map[string]User{}
	}
	if snap.Cases == nil {
		snap.Cases = map[string]Case{}
	}
	if snap.FIRs == nil {
		snap.FIRs = map[string]FIR{}
	}
	if snap.Parties == nil {
		snap.Parties = map[string]Party{}
	}
	if snap.Evidence == nil {
		snap.Evidence = map[string]Evidence{}
	}
	if snap.Notes == nil {
		snap.Notes = map[string]CaseNote{}
	}
	if snap.Sections == nil {
		snap.Sections = map[string]LegalSection{}
	}
	if snap.Citations == nil {
		snap.Citations = map[string]Citation{}
	}

	roleExists := func(id string) bool {
		_, ok := snap.Roles[id]
		return ok
	}
	userExists := func(id string) bool {
		_, ok := snap.Users[id]
		return ok
	}
	caseExists := func(id string) bool {
		_, ok := snap.Cases[id]
		return ok
	}
	sectionExists := func(id string) bool {
		_, ok := snap.Sections[id]
		return ok
	}

	for id, user := range snap.Users {
		if user.RoleID == "" || !roleExists(user.RoleID) {
			delete(snap.Users, id)
		}
	}

	for id, record := range snap.Cases {
		if domain.StatusRank(record.Status) < 0 {
			record.Status = domain.StatusOpen
		}
		switch record.Severity {
		case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
		default:
			record.Severity = domain.SeverityMedium
		}
		if record.AssignedOfficerID != nil && !userExists(*record.AssignedOfficerID) {
			record.AssignedOfficerID = nil
		}
		if record.InformantUserID != nil && !userExists(*record.InformantUserID) {
			record.InformantUserID = nil
		}
		snap.Cases[id] = record
	}

	for id, fir := range snap.FIRs {
		if fir.CaseID == "" || !caseExists(fir.CaseID) {
			delete(snap.FIRs, id)
		}
	}

	for id, party := range snap.Parties {
		if party.CaseID == "" || !caseExists(party.CaseID) {
			delete(snap.Parties, id)
		}
	}

	for id, item := range snap.Evidence {
		if item.CaseID == "" || !caseExists(item.CaseID) {
			delete(snap.Evidence, id)
			continue
		}
		if item.Status != domain.EvidenceStored && item.Status != domain.EvidenceReleased {
			item.Status = domain.EvidenceStored
		}
		snap.Evidence[id] = item
	}

	for id, note := range snap.Notes {
		if note.CaseID == "" || !caseExists(note.CaseID) {
			delete(snap.Notes, id)
		}
	}

	for id, citation := range snap.Citations {
		if citation.CaseID == "" || !caseExists(citation.CaseID) {
			delete(snap.Citations, id)
			continue
		}
		if citation.SectionID == "" || !sectionExists(citation.SectionID) {
			delete(snap.Citations, id)
		}
	}

	return snap
}

func (s storeState) clone() storeState {
	dup := emptyState()
	for k, v := range s.roles {
		dup.roles[k] = cloneRole(v)
	}
	for k, v := range s.users {
		dup.users[k] = cloneUser(v)
	}
	for k, v := range s.cases {
		dup.cases[k] = cloneCase(v)
	}
	for k, v := range s.firs {
		dup.firs[k] = cloneFIR(v)
	}
	for k, v := range s.parties {
		dup.parties[k] = cloneParty(v)
	}
	for k, v := range s.evidence {
		dup.evidence[k] = cloneEvidence(v)
	}
	for k, v := range s.notes {
		dup.notes[k] = cloneNote(v)
	}
	for k, v := range s.sections {
		dup.sections[k] = cloneSection(v)
	}
	for k, v := range s.citations {
		dup.citations[k] = cloneCitation(v)
	}
	return dup
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneRole(r Role) Role {
	cp := r
	cp.Permissions = append([]domain.Permission(nil), r.Permissions...)
	return cp
}

func cloneUser(u User) User {
	cp := u
	cp.BadgeNumber = clonePtr(u.BadgeNumber)
	cp.Department = clonePtr(u.Department)
	return cp
}

func cloneCase(c Case) Case {
	cp := c
	cp.Latitude = clonePtr(c.Latitude)
	cp.Longitude = clonePtr(c.Longitude)
	cp.IncidentAt = clonePtr(c.IncidentAt)
	cp.AssignedOfficerID = clonePtr(c.AssignedOfficerID)
	cp.InformantUserID = clonePtr(c.InformantUserID)
	cp.ClosedAt = clonePtr(c.ClosedAt)
	cp.ArchivedAt = clonePtr(c.ArchivedAt)
	return cp
}

func cloneFIR(f FIR) FIR { return f }

func cloneParty(p Party) Party {
	cp := p
	cp.Age = clonePtr(p.Age)
	cp.Gender = clonePtr(p.Gender)
	cp.Contact = clonePtr(p.Contact)
	cp.Address = clonePtr(p.Address)
	cp.Statement = clonePtr(p.Statement)
	cp.WithdrawnAt = clonePtr(p.WithdrawnAt)
	return cp
}

func cloneEvidence(e Evidence) Evidence {
	cp := e
	cp.ReleasedAt = clonePtr(e.ReleasedAt)
	if len(e.Custody) != 0 {
		cp.Custody = slices.Clone(e.Custody)
		for i := range cp.Custody {
			cp.Custody[i].Notes = clonePtr(cp.Custody[i].Notes)
		}
	}
	return cp
}

func cloneNote(n CaseNote) CaseNote {
	cp := n
	cp.AuthorBadge = clonePtr(n.AuthorBadge)
	return cp
}

func cloneSection(s LegalSection) LegalSection { return s }

func cloneCitation(c Citation) Citation {
	cp := c
	cp.Notes = clonePtr(c.Notes)
	return cp
}

// Store keeps every record in process memory and applies mutations through
// rule-checked transactions. It is the reference PersistentStore; the durable
// backends wrap it and add snapshot persistence.
type Store struct {
	engine *RulesEngine

	mu    sync.RWMutex
	state storeState
	clock func() time.Time
}

// NewStore builds a store that evaluates mutations against engine. A nil
// engine is replaced with an empty one, which blocks nothing.
func NewStore(engine *RulesEngine) *Store {
	s := &Store{state: emptyState(), engine: engine}
	if s.engine == nil {
		s.engine = domain.NewRulesEngine()
	}
	s.clock = func() time.Time { return time.Now().UTC() }
	return s
}

func (s *Store) newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// ExportState deep-copies the current state for durable backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return makeSnapshot(s.state)
}

// ImportState replaces the store state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = hydrateState(migrateSnapshot(snapshot))
}

// RulesEngine exposes the engine the store evaluates transactions with. The
// engine is fixed at construction, so no lock is needed.
func (s *Store) RulesEngine() *RulesEngine { return s.engine }

// NowFunc reports the time provider behind new record timestamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// SetNowFunc overrides the time provider. Tests use it to pin timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = fn
}

// Close releases resources held by the store. The in-memory store holds none.
func (s *Store) Close() error { return nil }

// transaction accumulates mutations against a cloned state until commit.
type transaction struct {
	store *Store
	now   time.Time

	state   storeState
	changes []Change
}

// transactionView adapts a storeState to the read-only rule surface.
type transactionView struct {
	src *storeState
}

func makeView(src *storeState) TransactionView {
	return transactionView{src: src}
}

// collect clones every value of m into a fresh slice. Map iteration order is
// random; callers that need a stable order sort the result.
func collect[T any](m map[string]T, clone func(T) T) []T {
	vals := make([]T, 0, len(m))
	for _, v := range m {
		vals = append(vals, clone(v))
	}
	return vals
}

// lookup clones the value stored under id, reporting whether it exists.
func lookup[T any](m map[string]T, id string, clone func(T) T) (T, bool) {
	v, ok := m[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

// forCase clones the values of m that key reports as belonging to caseID,
// ordered by the timestamp key returns, ties broken by ID.
func forCase[T any](m map[string]T, caseID string, clone func(T) T, key func(T) (string, time.Time, string)) []T {
	var vals []T
	for _, v := range m {
		if owner, _, _ := key(v); owner == caseID {
			vals = append(vals, clone(v))
		}
	}
	sortByCreation(vals, func(v T) (time.Time, string) {
		_, at, id := key(v)
		return at, id
	})
	return vals
}

func sortByCreation[T any](items []T, key func(T) (time.Time, string)) {
	slices.SortFunc(items, func(a, b T) int {
		ta, ida := key(a)
		tb, idb := key(b)
		if ta.Equal(tb) {
			return strings.Compare(ida, idb)
		}
		return ta.Compare(tb)
	})
}

// ListRoles returns all roles within the transaction snapshot.
func (v transactionView) ListRoles() []Role { return collect(v.src.roles, cloneRole) }

// ListUsers returns all users.
func (v transactionView) ListUsers() []User { return collect(v.src.users, cloneUser) }

// ListCases returns all cases in the snapshot.
func (v transactionView) ListCases() []Case { return collect(v.src.cases, cloneCase) }

// ListFIRs returns all first information reports.
func (v transactionView) ListFIRs() []FIR { return collect(v.src.firs, cloneFIR) }

// ListParties returns all case parties.
func (v transactionView) ListParties() []Party { return collect(v.src.parties, cloneParty) }

// ListEvidence returns all evidence items.
func (v transactionView) ListEvidence() []Evidence { return collect(v.src.evidence, cloneEvidence) }

// ListCaseNotes returns all case notes.
func (v transactionView) ListCaseNotes() []CaseNote { return collect(v.src.notes, cloneNote) }

// ListLegalSections returns all statute sections.
func (v transactionView) ListLegalSections() []LegalSection {
	return collect(v.src.sections, cloneSection)
}

// ListCitations returns all citations.
func (v transactionView) ListCitations() []Citation { return collect(v.src.citations, cloneCitation) }

// FindRole retrieves a role by ID from the snapshot.
func (v transactionView) FindRole(id string) (Role, bool) { return lookup(v.src.roles, id, cloneRole) }

// FindUser retrieves a user by ID from the snapshot.
func (v transactionView) FindUser(id string) (User, bool) { return lookup(v.src.users, id, cloneUser) }

// FindCase retrieves a case by ID from the snapshot.
func (v transactionView) FindCase(id string) (Case, bool) { return lookup(v.src.cases, id, cloneCase) }

// FindFIR retrieves a first information report by ID from the snapshot.
func (v transactionView) FindFIR(id string) (FIR, bool) { return lookup(v.src.firs, id, cloneFIR) }

// FindEvidence retrieves an evidence item by ID from the snapshot.
func (v transactionView) FindEvidence(id string) (Evidence, bool) {
	return lookup(v.src.evidence, id, cloneEvidence)
}

// FindLegalSection retrieves a statute section by ID from the snapshot.
func (v transactionView) FindLegalSection(id string) (LegalSection, bool) {
	return lookup(v.src.sections, id, cloneSection)
}

// FIRsByCase returns the reports filed against a case ordered by filing time.
func (v transactionView) FIRsByCase(caseID string) []FIR {
	return forCase(v.src.firs, caseID, cloneFIR, func(f FIR) (string, time.Time, string) {
		return f.CaseID, f.FiledAt, f.ID
	})
}

// PartiesByCase returns the parties attached to a case ordered by creation time.
func (v transactionView) PartiesByCase(caseID string) []Party {
	return forCase(v.src.parties, caseID, cloneParty, func(p Party) (string, time.Time, string) {
		return p.CaseID, p.CreatedAt, p.ID
	})
}

// EvidenceByCase returns the evidence collected for a case ordered by creation time.
func (v transactionView) EvidenceByCase(caseID string) []Evidence {
	return forCase(v.src.evidence, caseID, cloneEvidence, func(e Evidence) (string, time.Time, string) {
		return e.CaseID, e.CreatedAt, e.ID
	})
}

// NotesByCase returns the notes appended to a case ordered by creation time.
func (v transactionView) NotesByCase(caseID string) []CaseNote {
	return forCase(v.src.notes, caseID, cloneNote, func(n CaseNote) (string, time.Time, string) {
		return n.CaseID, n.CreatedAt, n.ID
	})
}

// CitationsByCase returns the statute citations recorded for a case.
func (v transactionView) CitationsByCase(caseID string) []Citation {
	return forCase(v.src.citations, caseID, cloneCitation, func(c Citation) (string, time.Time, string) {
		return c.CaseID, c.CreatedAt, c.ID
	})
}

// RunInTransaction runs fn against a cloned state and commits the clone when
// the rules engine raises no blocking violations.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.clock(),
	}
	if err := fn(work); err != nil {
		return Result{}, err
	}

	result, err := s.evaluate(ctx, work)
	if err != nil {
		return result, err
	}
	s.state = work.state
	return result, nil
}

func (s *Store) evaluate(ctx context.Context, work *transaction) (Result, error) {
	if s.engine == nil {
		return Result{}, nil
	}
	res, err := s.engine.Evaluate(ctx, makeView(&work.state), work.changes)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	return res, nil
}

// View runs fn against a read-only clone of the store state. The clone is
// detached, so the lock is released before fn runs.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(makeView(&snapshot))
}

func (tx *transaction) record(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to rule evaluation.
func (tx *transaction) Snapshot() TransactionView {
	return makeView(&tx.state)
}

// FindCase exposes case lookup within the transaction scope.
func (tx *transaction) FindCase(id string) (Case, bool) {
	c, ok := tx.state.cases[id]
	if !ok {
		return Case{}, false
	}
	return cloneCase(c), true
}

// FindUser exposes user lookup within the transaction scope.
func (tx *transaction) FindUser(id string) (User, bool) {
	u, ok := tx.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// FindRole exposes role lookup within the transaction scope.
func (tx *transaction) FindRole(id string) (Role, bool) {
	r, ok := tx.state.roles[id]
	if !ok {
		return Role{}, false
	}
	return cloneRole(r), true
}

// FindEvidence exposes evidence lookup within the transaction scope.
func (tx *transaction) FindEvidence(id string) (Evidence, bool) {
	e, ok := tx.state.evidence[id]
	if !ok {
		return Evidence{}, false
	}
	return cloneEvidence(e), true
}

// FindLegalSection exposes statute section lookup within the transaction scope.
func (tx *transaction) FindLegalSection(id string) (LegalSection, bool) {
	s, ok := tx.state.sections[id]
	if !ok {
		return LegalSection{}, false
	}
	return cloneSection(s), true
}

// CreateRole stores a new role definition within the transaction.
func (tx *transaction) CreateRole(r Role) (Role, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.roles[r.ID]; exists {
		return Role{}, fmt.Errorf("role %q already exists", r.ID)
	}
	if r.Name == "" {
		return Role{}, errors.New("role requires a name")
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.roles[r.ID] = cloneRole(r)
	tx.record(Change{Entity: domain.EntityRole, Action: domain.ActionCreate, After: cloneRole(r)})
	return cloneRole(r), nil
}

// UpdateRole mutates a role using the provided mutator function.
func (tx *transaction) UpdateRole(id string, mutator func(*Role) error) (Role, error) {
	current, ok := tx.state.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %q not found", id)
	}
	before := cloneRole(current)
	if err := mutator(&current); err != nil {
		return Role{}, err
	}
	if current.Name == "" {
		return Role{}, errors.New("role requires a name")
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.roles[id] = cloneRole(current)
	tx.record(Change{Entity: domain.EntityRole, Action: domain.ActionUpdate, Before: before, After: cloneRole(current)})
	return cloneRole(current), nil
}

// CreateUser stores a new user account.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	if u.Email == "" {
		return User{}, errors.New("user requires an email")
	}
	if u.RoleID == "" {
		return User{}, errors.New("user requires a role id")
	}
	if _, ok := tx.state.roles[u.RoleID]; !ok {
		return User{}, fmt.Errorf("role %q not found", u.RoleID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.record(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates an existing user account.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %q not found", id)
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	if current.Email == "" {
		return User{}, errors.New("user requires an email")
	}
	if current.RoleID == "" {
		return User{}, errors.New("user requires a role id")
	}
	if _, ok := tx.state.roles[current.RoleID]; !ok {
		return User{}, fmt.Errorf("role %q not found", current.RoleID)
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.users[id] = cloneUser(current)
	tx.record(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// CreateCase stores a new case record.
func (tx *transaction) CreateCase(c Case) (Case, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.cases[c.ID]; exists {
		return Case{}, fmt.Errorf("case %q already exists", c.ID)
	}
	if c.CaseNumber == "" {
		return Case{}, errors.New("case requires a case number")
	}
	if c.Status == "" {
		c.Status = domain.StatusOpen
	}
	if domain.StatusRank(c.Status) < 0 {
		return Case{}, fmt.Errorf("unknown case status %q", c.Status)
	}
	if c.AssignedOfficerID != nil {
		if _, ok := tx.state.users[*c.AssignedOfficerID]; !ok {
			return Case{}, fmt.Errorf("user %q not found for case assignment", *c.AssignedOfficerID)
		}
	}
	if c.InformantUserID != nil {
		if _, ok := tx.state.users[*c.InformantUserID]; !ok {
			return Case{}, fmt.Errorf("user %q not found as case informant", *c.InformantUserID)
		}
	}
	if c.FiledAt.IsZero() {
		c.FiledAt = tx.now
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.cases[c.ID] = cloneCase(c)
	tx.record(Change{Entity: domain.EntityCase, Action: domain.ActionCreate, After: cloneCase(c)})
	return cloneCase(c), nil
}

// UpdateCase mutates an existing case.
func (tx *transaction) UpdateCase(id string, mutator func(*Case) error) (Case, error) {
	current, ok := tx.state.cases[id]
	if !ok {
		return Case{}, fmt.Errorf("case %q not found", id)
	}
	before := cloneCase(current)
	if err := mutator(&current); err != nil {
		return Case{}, err
	}
	if current.CaseNumber == "" {
		return Case{}, errors.New("case requires a case number")
	}
	if domain.StatusRank(current.Status) < 0 {
		return Case{}, fmt.Errorf("unknown case status %q", current.Status)
	}
	if current.AssignedOfficerID != nil {
		if _, ok := tx.state.users[*current.AssignedOfficerID]; !ok {
			return Case{}, fmt.Errorf("user %q not found for case assignment", *current.AssignedOfficerID)
		}
	}
	if current.InformantUserID != nil {
		if _, ok := tx.state.users[*current.InformantUserID]; !ok {
			return Case{}, fmt.Errorf("user %q not found as case informant", *current.InformantUserID)
		}
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.cases[id] = cloneCase(current)
	tx.record(Change{Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: before, After: cloneCase(current)})
	return cloneCase(current), nil
}

// CreateFIR stores a first information report against an existing case.
func (tx *transaction) CreateFIR(f FIR) (FIR, error) {
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	if _, exists := tx.state.firs[f.ID]; exists {
		return FIR{}, fmt.Errorf("fir %q already exists", f.ID)
	}
	if f.FIRNumber == "" {
		return FIR{}, errors.New("fir requires a number")
	}
	if f.CaseID == "" {
		return FIR{}, errors.New("fir requires a case id")
	}
	if _, ok := tx.state.cases[f.CaseID]; !ok {
		return FIR{}, fmt.Errorf("case %q not found", f.CaseID)
	}
	if f.FiledByID != "" {
		if _, ok := tx.state.users[f.FiledByID]; !ok {
			return FIR{}, fmt.Errorf("user %q not found as fir filer", f.FiledByID)
		}
	}
	if f.FiledAt.IsZero() {
		f.FiledAt = tx.now
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.firs[f.ID] = cloneFIR(f)
	tx.record(Change{Entity: domain.EntityFIR, Action: domain.ActionCreate, After: cloneFIR(f)})
	return cloneFIR(f), nil
}

// UpdateFIR mutates an existing report.
func (tx *transaction) UpdateFIR(id string, mutator func(*FIR) error) (FIR, error) {
	current, ok := tx.state.firs[id]
	if !ok {
		return FIR{}, fmt.Errorf("fir %q not found", id)
	}
	before := cloneFIR(current)
	if err := mutator(&current); err != nil {
		return FIR{}, err
	}
	if current.FIRNumber == "" {
		return FIR{}, errors.New("fir requires a number")
	}
	if current.CaseID == "" {
		return FIR{}, errors.New("fir requires a case id")
	}
	if _, ok := tx.state.cases[current.CaseID]; !ok {
		return FIR{}, fmt.Errorf("case %q not found", current.CaseID)
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.firs[id] = cloneFIR(current)
	tx.record(Change{Entity: domain.EntityFIR, Action: domain.ActionUpdate, Before: before, After: cloneFIR(current)})
	return cloneFIR(current), nil
}

// CreateParty stores a victim, suspect, or witness record.
func (tx *transaction) CreateParty(p Party) (Party, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.parties[p.ID]; exists {
		return Party{}, fmt.Errorf("party %q already exists", p.ID)
	}
	if p.CaseID == "" {
		return Party{}, errors.New("party requires a case id")
	}
	if _, ok := tx.state.cases[p.CaseID]; !ok {
		return Party{}, fmt.Errorf("case %q not found", p.CaseID)
	}
	switch p.Kind {
	case domain.PartyVictim, domain.PartySuspect, domain.PartyWitness:
	default:
		return Party{}, fmt.Errorf("unknown party kind %q", p.Kind)
	}
	if p.Name == "" {
		return Party{}, errors.New("party requires a name")
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.parties[p.ID] = cloneParty(p)
	tx.record(Change{Entity: domain.EntityParty, Action: domain.ActionCreate, After: cloneParty(p)})
	return cloneParty(p), nil
}

// UpdateParty mutates an existing party record.
func (tx *transaction) UpdateParty(id string, mutator func(*Party) error) (Party, error) {
	current, ok := tx.state.parties[id]
	if !ok {
		return Party{}, fmt.Errorf("party %q not found", id)
	}
	before := cloneParty(current)
	if err := mutator(&current); err != nil {
		return Party{}, err
	}
	switch current.Kind {
	case domain.PartyVictim, domain.PartySuspect, domain.PartyWitness:
	default:
		return Party{}, fmt.Errorf("unknown party kind %q", current.Kind)
	}
	if current.CaseID == "" {
		return Party{}, errors.New("party requires a case id")
	}
	if _, ok := tx.state.cases[current.CaseID]; !ok {
		return Party{}, fmt.Errorf("case %q not found", current.CaseID)
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.parties[id] = cloneParty(current)
	tx.record(Change{Entity: domain.EntityParty, Action: domain.ActionUpdate, Before: before, After: cloneParty(current)})
	return cloneParty(current), nil
}

// CreateEvidence stores an evidence item against an existing case.
func (tx *transaction) CreateEvidence(e Evidence) (Evidence, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.evidence[e.ID]; exists {
		return Evidence{}, fmt.Errorf("evidence %q already exists", e.ID)
	}
	if e.CaseID == "" {
		return Evidence{}, errors.New("evidence requires a case id")
	}
	if _, ok := tx.state.cases[e.CaseID]; !ok {
		return Evidence{}, fmt.Errorf("case %q not found", e.CaseID)
	}
	if e.CollectedByID != "" {
		if _, ok := tx.state.users[e.CollectedByID]; !ok {
			return Evidence{}, fmt.Errorf("user %q not found as evidence collector", e.CollectedByID)
		}
	}
	if e.Status == "" {
		e.Status = domain.EvidenceStored
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.evidence[e.ID] = cloneEvidence(e)
	tx.record(Change{Entity: domain.EntityEvidence, Action: domain.ActionCreate, After: cloneEvidence(e)})
	return cloneEvidence(e), nil
}

// UpdateEvidence mutates an existing evidence item.
func (tx *transaction) UpdateEvidence(id string, mutator func(*Evidence) error) (Evidence, error) {
	current, ok := tx.state.evidence[id]
	if !ok {
		return Evidence{}, fmt.Errorf("evidence %q not found", id)
	}
	before := cloneEvidence(current)
	if err := mutator(&current); err != nil {
		return Evidence{}, err
	}
	if current.CaseID == "" {
		return Evidence{}, errors.New("evidence requires a case id")
	}
	if _, ok := tx.state.cases[current.CaseID]; !ok {
		return Evidence{}, fmt.Errorf("case %q not found", current.CaseID)
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.evidence[id] = cloneEvidence(current)
	tx.record(Change{Entity: domain.EntityEvidence, Action: domain.ActionUpdate, Before: before, After: cloneEvidence(current)})
	return cloneEvidence(current), nil
}

// CreateCaseNote appends an investigation note. Notes are immutable once
// written, so there is no corresponding update method.
func (tx *transaction) CreateCaseNote(n CaseNote) (CaseNote, error) {
	if n.ID == "" {
		n.ID = tx.store.newID()
	}
	if _, exists := tx.state.notes[n.ID]; exists {
		return CaseNote{}, fmt.Errorf("case note %q already exists", n.ID)
	}
	if n.CaseID == "" {
		return CaseNote{}, errors.New("case note requires a case id")
	}
	if _, ok := tx.state.cases[n.CaseID]; !ok {
		return CaseNote{}, fmt.Errorf("case %q not found", n.CaseID)
	}
	if n.AuthorID != "" {
		if _, ok := tx.state.users[n.AuthorID]; !ok {
			return CaseNote{}, fmt.Errorf("user %q not found as note author", n.AuthorID)
		}
	}
	if n.Body == "" {
		return CaseNote{}, errors.New("case note requires a body")
	}
	n.CreatedAt = tx.now
	n.UpdatedAt = tx.now
	tx.state.notes[n.ID] = cloneNote(n)
	tx.record(Change{Entity: domain.EntityCaseNote, Action: domain.ActionCreate, After: cloneNote(n)})
	return cloneNote(n), nil
}

// CreateLegalSection stores a statute catalog entry.
func (tx *transaction) CreateLegalSection(s LegalSection) (LegalSection, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.sections[s.ID]; exists {
		return LegalSection{}, fmt.Errorf("legal section %q already exists", s.ID)
	}
	if s.Code == "" {
		return LegalSection{}, errors.New("legal section requires a code")
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.sections[s.ID] = cloneSection(s)
	tx.record(Change{Entity: domain.EntityLegalSection, Action: domain.ActionCreate, After: cloneSection(s)})
	return cloneSection(s), nil
}

// UpdateLegalSection mutates a statute catalog entry.
func (tx *transaction) UpdateLegalSection(id string, mutator func(*LegalSection) error) (LegalSection, error) {
	current, ok := tx.state.sections[id]
	if !ok {
		return LegalSection{}, fmt.Errorf("legal section %q not found", id)
	}
	before := cloneSection(current)
	if err := mutator(&current); err != nil {
		return LegalSection{}, err
	}
	if current.Code == "" {
		return LegalSection{}, errors.New("legal section requires a code")
	}
	current.UpdatedAt = tx.now
	current.ID = id
	tx.state.sections[id] = cloneSection(current)
	tx.record(Change{Entity: domain.EntityLegalSection, Action: domain.ActionUpdate, Before: before, After: cloneSection(current)})
	return cloneSection(current), nil
}

// CreateCitation links a case to a statute section. Citations are immutable
// once written.
func (tx *transaction) CreateCitation(c Citation) (Citation, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.citations[c.ID]; exists {
		return Citation{}, fmt.Errorf("citation %q already exists", c.ID)
	}
	if c.CaseID == "" {
		return Citation{}, errors.New("citation requires a case id")
	}
	if _, ok := tx.state.cases[c.CaseID]; !ok {
		return Citation{}, fmt.Errorf("case %q not found", c.CaseID)
	}
	if c.SectionID == "" {
		return Citation{}, errors.New("citation requires a section id")
	}
	if _, ok := tx.state.sections[c.SectionID]; !ok {
		return Citation{}, fmt.Errorf("legal section %q not found", c.SectionID)
	}
	if c.AddedByID != "" {
		if _, ok := tx.state.users[c.AddedByID]; !ok {
			return Citation{}, fmt.Errorf("user %q not found as citation author", c.AddedByID)
		}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.citations[c.ID] = cloneCitation(c)
	tx.record(Change{Entity: domain.EntityCitation, Action: domain.ActionCreate, After: cloneCitation(c)})
	return cloneCitation(c), nil
}

// Committed-state reads. Each method takes the read lock and clones before
// returning, so callers can hold results across later commits.

// GetCase retrieves a case by ID from committed state.
func (s *Store) GetCase(id string) (Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state.cases, id, cloneCase)
}

// FindCaseByNumber retrieves a case by its registry number.
func (s *Store) FindCaseByNumber(number string) (Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(s.state.cases, cloneCase, func(c Case) bool {
		return strings.EqualFold(c.CaseNumber, number)
	})
}

// ListCases returns all cases from committed state.
func (s *Store) ListCases() []Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.state.cases, cloneCase)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state.users, id, cloneUser)
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) FindUserByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(s.state.users, cloneUser, func(u User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

// ListUsers returns all users.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.state.users, cloneUser)
}

// GetRole retrieves a role by ID.
func (s *Store) GetRole(id string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state.roles, id, cloneRole)
}

// FindRoleByName retrieves a role by its unique name. Role names are exact,
// not folded.
func (s *Store) FindRoleByName(name string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(s.state.roles, cloneRole, func(r Role) bool { return r.Name == name })
}

// ListRoles returns all roles.
func (s *Store) ListRoles() []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.state.roles, cloneRole)
}

// GetEvidence retrieves an evidence item by ID.
func (s *Store) GetEvidence(id string) (Evidence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state.evidence, id, cloneEvidence)
}

// GetFIR retrieves a first information report by ID.
func (s *Store) GetFIR(id string) (FIR, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state.firs, id, cloneFIR)
}

// FindFIRByNumber retrieves a report by its registry number.
func (s *Store) FindFIRByNumber(number string) (FIR, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(s.state.firs, cloneFIR, func(f FIR) bool {
		return strings.EqualFold(f.FIRNumber, number)
	})
}

// ListLegalSections returns all statute catalog entries.
func (s *Store) ListLegalSections() []LegalSection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.state.sections, cloneSection)
}

// FindSectionByCode retrieves a statute section by its code.
func (s *Store) FindSectionByCode(code string) (LegalSection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan(s.state.sections, cloneSection, func(sec LegalSection) bool {
		return strings.EqualFold(sec.Code, code)
	})
}

// scan returns the first value matching the predicate. Uniqueness of the
// matched attribute is enforced at write time, so first match is the match.
func scan[T any](m map[string]T, clone func(T) T, match func(T) bool) (T, bool) {
	for _, v := range m {
		if match(v) {
			return clone(v), true
		}
	}
	var zero T
	return zero, false
}
