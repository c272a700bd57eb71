// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by casefile.
package domain

import (
	"slices"
	"time"
)

// EntityType names a persisted record category. Change records and the
// storage buckets key on it.
type EntityType string

// One identifier per record category the store persists.
const (
	// EntityRole identifies a role definition record.
	EntityRole EntityType = "role"
	// EntityUser identifies a user account record.
	EntityUser EntityType = "user"
	// EntityCase identifies a case record, the aggregate root of the domain.
	EntityCase EntityType = "case"
	// EntityFIR identifies a first information report record.
	EntityFIR EntityType = "fir"
	// EntityParty identifies a victim, suspect, or witness record.
	EntityParty EntityType = "party"
	// EntityEvidence identifies an evidence item record.
	EntityEvidence EntityType = "evidence"
	// EntityCaseNote identifies an investigation note appended to a case.
	EntityCaseNote EntityType = "case_note"
	// EntityLegalSection identifies a statute section catalog record.
	EntityLegalSection EntityType = "legal_section"
	// EntityCitation identifies a case-to-section citation record.
	EntityCitation EntityType = "citation"
)

// CaseStatus represents the canonical case workflow states.
type CaseStatus string

// Canonical case statuses. Progression is ordered open through closed;
// StatusRank exposes the ordering used by the transition rule.
const (
	// StatusOpen indicates a freshly registered case awaiting assignment.
	StatusOpen CaseStatus = "open"
	// StatusUnderInvestigation indicates active investigation.
	StatusUnderInvestigation CaseStatus = "under_investigation"
	// StatusResolved indicates the investigation concluded with findings.
	StatusResolved CaseStatus = "resolved"
	// StatusClosed indicates the terminal, append-only audit state.
	StatusClosed CaseStatus = "closed"
)

// StatusRank returns the position of a status in the canonical progression,
// or -1 for an unknown status.
func StatusRank(s CaseStatus) int {
	switch s {
	case StatusOpen:
		return 0
	case StatusUnderInvestigation:
		return 1
	case StatusResolved:
		return 2
	case StatusClosed:
		return 3
	default:
		return -1
	}
}

// CaseSeverity grades the assessed seriousness of a case.
type CaseSeverity string

// Canonical case severities used for triage ordering and statistics.
const (
	SeverityLow    CaseSeverity = "low"
	SeverityMedium CaseSeverity = "medium"
	SeverityHigh   CaseSeverity = "high"
)

// PartyKind distinguishes the roles people hold in relation to a case.
type PartyKind string

// Canonical party kinds.
const (
	PartyVictim  PartyKind = "victim"
	PartySuspect PartyKind = "suspect"
	PartyWitness PartyKind = "witness"
)

// EvidenceKind classifies an evidence item by its file payload.
type EvidenceKind string

// Canonical evidence kinds derived from the uploaded file extension.
const (
	EvidenceImage    EvidenceKind = "image"
	EvidenceDocument EvidenceKind = "document"
	EvidenceAudio    EvidenceKind = "audio"
	EvidenceVideo    EvidenceKind = "video"
	EvidenceOther    EvidenceKind = "other"
)

// EvidenceStatus enumerates evidence custody states. Release is the soft
// removal path; evidence rows are never physically deleted.
type EvidenceStatus string

// Canonical evidence statuses.
const (
	EvidenceStored   EvidenceStatus = "stored"
	EvidenceReleased EvidenceStatus = "released"
)

// Permission names a discrete capability checked by the service layer.
type Permission string

// Permissions recognised by the role model. Role definitions are data;
// these constants are the vocabulary they draw from.
const (
	PermCaseRead      Permission = "case:read"
	PermCaseWrite     Permission = "case:write"
	PermCaseClose     Permission = "case:close"
	PermCaseReopen    Permission = "case:reopen"
	PermFIRWrite      Permission = "fir:write"
	PermPartyWrite    Permission = "party:write"
	PermEvidenceRead  Permission = "evidence:read"
	PermEvidenceWrite Permission = "evidence:write"
	PermNoteWrite     Permission = "note:write"
	PermCitationWrite Permission = "citation:write"
	PermSectionWrite  Permission = "section:write"
	PermReportRun     Permission = "report:run"
	PermUserManage    Permission = "user:manage"
)

// RuleSeverity grades rule findings.
type RuleSeverity string

// Severity decides whether a finding stops the commit or is only recorded.
const (
	// RuleSeverityBlock stops the transaction from committing.
	RuleSeverityBlock RuleSeverity = "block"
	// RuleSeverityWarn surfaces the finding but lets the commit proceed.
	RuleSeverityWarn RuleSeverity = "warn"
	RuleSeverityLog  RuleSeverity = "log"
)

// Base carries the audit columns every stored record shares.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // bumped on every successful write
}

// Role is a named permission set. Roles are configuration data seeded at
// bootstrap and editable by administrators.
type Role struct {
	Base
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// Allows reports whether the role grants the given permission.
func (r Role) Allows(p Permission) bool {
	return slices.Contains(r.Permissions, p)
}

// User represents an account able to authenticate against the service.
// Officers carry a badge number and department; citizens do not.
type User struct {
	Base
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	District     string  `json:"district"`
	RoleID       string  `json:"role_id"`
	BadgeNumber  *string `json:"badge_number,omitempty"`
	Department   *string `json:"department,omitempty"`
	PasswordHash string  `json:"password_hash"`
	Active       bool    `json:"active"`
}

// Case is the aggregate root tying together FIRs, parties, evidence,
// notes, and citations. Cases are never physically deleted; ArchivedAt
// marks soft archival of a closed case.
type Case struct {
	Base
	CaseNumber        string       `json:"case_number"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	CrimeType         string       `json:"crime_type"`
	District          string       `json:"district"`
	Location          string       `json:"location"`
	Latitude          *float64     `json:"latitude,omitempty"`
	Longitude         *float64     `json:"longitude,omitempty"`
	IncidentAt        *time.Time   `json:"incident_at,omitempty"`
	Status            CaseStatus   `json:"status"`
	Severity          CaseSeverity `json:"severity"`
	SeverityScore     float64      `json:"severity_score"`
	AssignedOfficerID *string      `json:"assigned_officer_id,omitempty"`
	InformantUserID   *string      `json:"informant_user_id,omitempty"`
	FiledAt           time.Time    `json:"filed_at"`
	ClosedAt          *time.Time   `json:"closed_at,omitempty"`
	ReopenCount       int          `json:"reopen_count"`
	ArchivedAt        *time.Time   `json:"archived_at,omitempty"`
}

// FIR is a first information report. Every FIR references exactly one
// case; a case may accumulate supplemental FIRs over its lifetime.
type FIR struct {
	Base
	FIRNumber        string    `json:"fir_number"`
	CaseID           string    `json:"case_id"`
	InformantName    string    `json:"informant_name"`
	InformantContact string    `json:"informant_contact"`
	Narrative        string    `json:"narrative"`
	FiledByID        string    `json:"filed_by_id"`
	FiledAt          time.Time `json:"filed_at"`
	Supplemental     bool      `json:"supplemental"`
}

// Party records a victim, suspect, or witness attached to a case.
// Withdrawal is soft; the row remains for the audit trail.
type Party struct {
	Base
	CaseID      string     `json:"case_id"`
	Kind        PartyKind  `json:"kind"`
	Name        string     `json:"name"`
	Age         *int       `json:"age,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Contact     *string    `json:"contact,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Statement   *string    `json:"statement,omitempty"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`
}

// Evidence tracks a collected item and its stored file payload. The
// object key addresses the blob store; Custody is the chain of custody.
type Evidence struct {
	Base
	CaseID        string         `json:"case_id"`
	Label         string         `json:"label"`
	Kind          EvidenceKind   `json:"kind"`
	FileName      string         `json:"file_name"`
	ObjectKey     string         `json:"object_key"`
	SizeBytes     int64          `json:"size_bytes"`
	ContentType   string         `json:"content_type"`
	SHA256        string         `json:"sha256,omitempty"`
	CollectedByID string         `json:"collected_by_id"`
	Status        EvidenceStatus `json:"status"`
	ReleasedAt    *time.Time     `json:"released_at,omitempty"`
	Custody       []CustodyEvent `json:"custody"`
}

// CustodyEvent logs a change in possession or storage for an evidence item.
type CustodyEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Location  string    `json:"location"`
	Notes     *string   `json:"notes,omitempty"`
}

// CaseNote is an append-only investigation update. Notes capture the case
// status at the time of writing and are permitted even on closed cases.
type CaseNote struct {
	Base
	CaseID      string     `json:"case_id"`
	AuthorID    string     `json:"author_id"`
	AuthorBadge *string    `json:"author_badge,omitempty"`
	Status      CaseStatus `json:"status"`
	Body        string     `json:"body"`
}

// LegalSection is a statute catalog entry (e.g. a BNS or BNSS section).
type LegalSection struct {
	Base
	Code        string `json:"code"`
	Statute     string `json:"statute"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Citation links a case to a statute section it is charged under.
type Citation struct {
	Base
	CaseID    string  `json:"case_id"`
	SectionID string  `json:"section_id"`
	AddedByID string  `json:"added_by_id"`
	Notes     *string `json:"notes,omitempty"`
}

// Change describes one mutation captured inside a transaction. Rules receive
// the full change set when deciding whether a commit may proceed.
type Change struct {
	Entity EntityType
	Action Action
	Before any // nil when the change is a create
	After  any
}

// Action labels the kind of modification a Change carries.
type Action string

// Records are never hard-deleted, so there is no delete action; removal is
// soft state applied through updates.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Violation is one rule finding against a pending transaction.
type Violation struct {
	Rule     string
	Severity RuleSeverity
	Message  string

	Entity   EntityType
	EntityID string // ID of the record the finding names
}

// Result collects the violations a rule evaluation produced.
type Result struct{ Violations []Violation }

// Merge folds another result's violations into r.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation carries block severity.
func (r Result) HasBlocking() bool {
	return slices.ContainsFunc(r.Violations, func(v Violation) bool {
		return v.Severity == RuleSeverityBlock
	})
}

// RuleViolationError signals that blocking violations stopped a commit.
type RuleViolationError struct{ Result Result }

func (e RuleViolationError) Error() string {
	return "transaction blocked by rule violations"
}
