package core

import "casefile/pkg/domain"

type (
	EntityType         = domain.EntityType
	CaseStatus         = domain.CaseStatus
	CaseSeverity       = domain.CaseSeverity
	PartyKind          = domain.PartyKind
	EvidenceKind       = domain.EvidenceKind
	EvidenceStatus     = domain.EvidenceStatus
	Permission         = domain.Permission
	Base               = domain.Base
	Role               = domain.Role
	User               = domain.User
	Case               = domain.Case
	FIR                = domain.FIR
	Party              = domain.Party
	Evidence           = domain.Evidence
	CustodyEvent       = domain.CustodyEvent
	CaseNote           = domain.CaseNote
	LegalSection       = domain.LegalSection
	Citation           = domain.Citation
	Action             = domain.Action
	Change             = domain.Change
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Violation          = domain.Violation
)

const (
	EntityRole         = domain.EntityRole
	EntityUser         = domain.EntityUser
	EntityCase         = domain.EntityCase
	EntityFIR          = domain.EntityFIR
	EntityParty        = domain.EntityParty
	EntityEvidence     = domain.EntityEvidence
	EntityCaseNote     = domain.EntityCaseNote
	EntityLegalSection = domain.EntityLegalSection
	EntityCitation     = domain.EntityCitation
)

const (
	StatusOpen               = domain.StatusOpen
	StatusUnderInvestigation = domain.StatusUnderInvestigation
	StatusResolved           = domain.StatusResolved
	StatusClosed             = domain.StatusClosed
)

const (
	SeverityLow    = domain.SeverityLow
	SeverityMedium = domain.SeverityMedium
	SeverityHigh   = domain.SeverityHigh
)

const (
	PartyVictim  = domain.PartyVictim
	PartySuspect = domain.PartySuspect
	PartyWitness = domain.PartyWitness
)

const (
	EvidenceImage    = domain.EvidenceImage
	EvidenceDocument = domain.EvidenceDocument
	EvidenceAudio    = domain.EvidenceAudio
	EvidenceVideo    = domain.EvidenceVideo
	EvidenceOther    = domain.EvidenceOther
)

const (
	EvidenceStored   = domain.EvidenceStored
	EvidenceReleased = domain.EvidenceReleased

	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
