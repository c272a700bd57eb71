package core

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"casefile/pkg/domain"
)

// CaseDraft carries the fields for registering a case together with its
// first information report. Severity may be left empty to let the
// classifier grade the complaint from its text.
type CaseDraft struct {
	Title            string
	Description      string
	CrimeType        string
	District         string
	Location         string
	Latitude         *float64
	Longitude        *float64
	IncidentAt       *time.Time
	Severity         CaseSeverity
	InformantName    string
	InformantContact string
	Narrative        string
}

// CaseDetailsPatch updates descriptive case fields. Nil members leave the
// current value untouched. Status, assignment, and lifecycle timestamps
// have dedicated operations.
type CaseDetailsPatch struct {
	Title       *string
	Description *string
	CrimeType   *string
	District    *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	IncidentAt  *time.Time
	Severity    *CaseSeverity
}

// CitationView pairs a citation with the statute section it references.
type CitationView struct {
	Citation
	Section LegalSection `json:"section"`
}

// CaseFileView is the full aggregate for a case: the record itself plus its
// reports, parties, evidence, notes, and statute citations. Reports render
// from this view.
type CaseFileView struct {
	Case      Case           `json:"case"`
	FIRs      []FIR          `json:"firs"`
	Parties   []Party        `json:"parties"`
	Evidence  []Evidence     `json:"evidence"`
	Notes     []CaseNote     `json:"notes"`
	Citations []CitationView `json:"citations"`
}

// RegisterCase atomically creates a case and its first information report.
// Filing is gated on fir:write so citizens can lodge complaints; a citizen
// actor is always recorded as the informant and scoped to the new case.
func (s *Service) RegisterCase(ctx context.Context, draft CaseDraft) (Case, FIR, Result, error) {
	var (
		createdCase Case
		createdFIR  FIR
		res         Result
	)
	err := s.run(ctx, "register_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermFIRWrite)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(draft.Title) == "" {
			return "", ValidationError{Field: "title", Reason: "required"}
		}
		if strings.TrimSpace(draft.Description) == "" {
			return "", ValidationError{Field: "description", Reason: "required"}
		}

		severity := draft.Severity
		var score float64
		if severity == "" {
			severity, score = ClassifySeverity(draft.CrimeType, draft.Title, draft.Description)
		} else {
			if SeverityRank(severity) < 0 {
				return "", ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", severity)}
			}
			score = severityScore(severity, 0)
		}

		informantName := strings.TrimSpace(draft.InformantName)
		informantContact := strings.TrimSpace(draft.InformantContact)
		var informantID *string
		if role.Name == RoleCitizen {
			id := actor.ID
			informantID = &id
			if informantName == "" {
				informantName = actor.Name
			}
			if informantContact == "" {
				informantContact = cmp.Or(actor.Phone, actor.Email)
			}
		}
		if informantName == "" {
			return "", ValidationError{Field: "informant_name", Reason: "required"}
		}

		narrative := strings.TrimSpace(draft.Narrative)
		if narrative == "" {
			narrative = strings.TrimSpace(draft.Description)
		}

		now := s.nowFn()
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			createdCase, err = tx.CreateCase(Case{
				CaseNumber:      GenerateCaseNumber(now),
				Title:           strings.TrimSpace(draft.Title),
				Description:     strings.TrimSpace(draft.Description),
				CrimeType:       strings.TrimSpace(draft.CrimeType),
				District:        strings.TrimSpace(draft.District),
				Location:        strings.TrimSpace(draft.Location),
				Latitude:        draft.Latitude,
				Longitude:       draft.Longitude,
				IncidentAt:      draft.IncidentAt,
				Status:          StatusOpen,
				Severity:        severity,
				SeverityScore:   score,
				InformantUserID: informantID,
				FiledAt:         now,
			})
			if err != nil {
				return err
			}
			createdFIR, err = tx.CreateFIR(FIR{
				FIRNumber:        GenerateFIRNumber(now),
				CaseID:           createdCase.ID,
				InformantName:    informantName,
				InformantContact: informantContact,
				Narrative:        narrative,
				FiledByID:        actor.ID,
				FiledAt:          now,
			})
			return err
		})
		return createdCase.ID, txErr
	})
	return createdCase, createdFIR, res, err
}

// GetCase returns a case by ID, subject to citizen scoping.
func (s *Service) GetCase(ctx context.Context, id string) (Case, error) {
	var c Case
	err := s.run(ctx, "get_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return id, err
		}
		c, err = s.requireCase(actor, role, id)
		return id, err
	})
	return c, err
}

// FindCaseByNumber returns a case by its public number, subject to citizen
// scoping. Numbers compare case-insensitively.
func (s *Service) FindCaseByNumber(ctx context.Context, number string) (Case, error) {
	var c Case
	err := s.run(ctx, "find_case_by_number", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return "", err
		}
		found, ok := s.store.FindCaseByNumber(number)
		if !ok {
			return "", ErrNotFound{Entity: "case", ID: number}
		}
		if err := scopeCase(actor, role, found); err != nil {
			return found.ID, err
		}
		c = found
		return found.ID, nil
	})
	return c, err
}

// UpdateCaseDetails patches descriptive fields on an open case. Setting the
// severity explicitly overrides the classifier.
func (s *Service) UpdateCaseDetails(ctx context.Context, id string, patch CaseDetailsPatch) (Case, Result, error) {
	var (
		patched Case
		res     Result
	)
	err := s.run(ctx, "update_case_details", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseWrite)
		if err != nil {
			return id, err
		}
		if _, err := s.requireCase(actor, role, id); err != nil {
			return id, err
		}
		if patch.Severity != nil && SeverityRank(*patch.Severity) < 0 {
			return id, ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", *patch.Severity)}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			patched, err = tx.UpdateCase(id, func(c *Case) error {
				if patch.Title != nil {
					c.Title = strings.TrimSpace(*patch.Title)
				}
				if patch.Description != nil {
					c.Description = strings.TrimSpace(*patch.Description)
				}
				if patch.CrimeType != nil {
					c.CrimeType = strings.TrimSpace(*patch.CrimeType)
				}
				if patch.District != nil {
					c.District = strings.TrimSpace(*patch.District)
				}
				if patch.Location != nil {
					c.Location = strings.TrimSpace(*patch.Location)
				}
				if patch.Latitude != nil {
					c.Latitude = patch.Latitude
				}
				if patch.Longitude != nil {
					c.Longitude = patch.Longitude
				}
				if patch.IncidentAt != nil {
					c.IncidentAt = patch.IncidentAt
				}
				if patch.Severity != nil {
					c.Severity = *patch.Severity
					c.SeverityScore = severityScore(*patch.Severity, 0)
				}
				if c.Title == "" {
					return ValidationError{Field: "title", Reason: "required"}
				}
				return nil
			})
			return err
		})
		return id, txErr
	})
	return patched, res, err
}

// AssignOfficer assigns an investigating officer to a case. The assignee
// must be an active account whose role can work cases.
func (s *Service) AssignOfficer(ctx context.Context, caseID, officerID string) (Case, Result, error) {
	var (
		assigned Case
		res      Result
	)
	err := s.run(ctx, "assign_officer", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseWrite)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		officer, ok := s.store.GetUser(officerID)
		if !ok {
			return caseID, ErrNotFound{Entity: "user", ID: officerID}
		}
		if !officer.Active {
			return caseID, ValidationError{Field: "officer_id", Reason: "account is deactivated"}
		}
		officerRole, ok := s.store.GetRole(officer.RoleID)
		if !ok || !officerRole.Allows(domain.PermCaseWrite) {
			return caseID, ValidationError{Field: "officer_id", Reason: "account cannot work cases"}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			assigned, err = tx.UpdateCase(caseID, func(c *Case) error {
				c.AssignedOfficerID = &officer.ID
				return nil
			})
			return err
		})
		return caseID, txErr
	})
	return assigned, res, err
}

// TransitionCaseStatus advances a case along the status progression and
// appends a status note. Closing requires case:close; other targets require
// case:write. The first move into under_investigation assigns the acting
// officer when the case is unassigned.
func (s *Service) TransitionCaseStatus(ctx context.Context, id string, target CaseStatus, note string) (Case, Result, error) {
	var (
		transitioned Case
		res          Result
	)
	err := s.run(ctx, "transition_case_status", func(ctx context.Context) (string, error) {
		if domain.StatusRank(target) < 0 {
			return id, ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", target)}
		}
		perm := domain.PermCaseWrite
		if target == StatusClosed {
			perm = domain.PermCaseClose
		}
		actor, role, err := s.requireActor(ctx, perm)
		if err != nil {
			return id, err
		}
		current, err := s.requireCase(actor, role, id)
		if err != nil {
			return id, err
		}
		if current.Status == target {
			return id, ValidationError{Field: "status", Reason: fmt.Sprintf("case already %s", target)}
		}
		now := s.nowFn()
		body := fmt.Sprintf("status changed from %s to %s", current.Status, target)
		if strings.TrimSpace(note) != "" {
			body += ": " + strings.TrimSpace(note)
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			transitioned, err = tx.UpdateCase(id, func(c *Case) error {
				c.Status = target
				if target == StatusUnderInvestigation && c.AssignedOfficerID == nil {
					officerID := actor.ID
					c.AssignedOfficerID = &officerID
				}
				if target == StatusClosed {
					c.ClosedAt = &now
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = tx.CreateCaseNote(CaseNote{
				CaseID:      id,
				AuthorID:    actor.ID,
				AuthorBadge: actor.BadgeNumber,
				Status:      target,
				Body:        body,
			})
			return err
		})
		return id, txErr
	})
	return transitioned, res, err
}

// ReopenCase is the sanctioned path out of the closed state: the case moves
// back to under_investigation, the reopen counter increments, and the
// reason is appended as a note.
func (s *Service) ReopenCase(ctx context.Context, id string, reason string) (Case, Result, error) {
	var (
		reopened Case
		res      Result
	)
	err := s.run(ctx, "reopen_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseReopen)
		if err != nil {
			return id, err
		}
		current, err := s.requireCase(actor, role, id)
		if err != nil {
			return id, err
		}
		if current.Status != StatusClosed {
			return id, ValidationError{Field: "status", Reason: fmt.Sprintf("case is %s, only closed cases reopen", current.Status)}
		}
		if strings.TrimSpace(reason) == "" {
			return id, ValidationError{Field: "reason", Reason: "required"}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			reopened, err = tx.UpdateCase(id, func(c *Case) error {
				c.Status = StatusUnderInvestigation
				c.ReopenCount++
				c.ClosedAt = nil
				c.ArchivedAt = nil
				return nil
			})
			if err != nil {
				return err
			}
			_, err = tx.CreateCaseNote(CaseNote{
				CaseID:      id,
				AuthorID:    actor.ID,
				AuthorBadge: actor.BadgeNumber,
				Status:      StatusUnderInvestigation,
				Body:        "case reopened: " + strings.TrimSpace(reason),
			})
			return err
		})
		return id, txErr
	})
	return reopened, res, err
}

// ArchiveCase stamps a closed case as archived. Archival is the only
// mutation the closed-case rule admits besides reopening, and it leaves
// every other field untouched.
func (s *Service) ArchiveCase(ctx context.Context, id string) (Case, Result, error) {
	var (
		archived Case
		res      Result
	)
	err := s.run(ctx, "archive_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseClose)
		if err != nil {
			return id, err
		}
		current, err := s.requireCase(actor, role, id)
		if err != nil {
			return id, err
		}
		if current.Status != StatusClosed {
			return id, ValidationError{Field: "status", Reason: fmt.Sprintf("case is %s, only closed cases archive", current.Status)}
		}
		if current.ArchivedAt != nil {
			return id, ValidationError{Field: "archived_at", Reason: "case already archived"}
		}
		now := s.nowFn()
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			archived, err = tx.UpdateCase(id, func(c *Case) error {
				c.ArchivedAt = &now
				return nil
			})
			return err
		})
		return id, txErr
	})
	return archived, res, err
}

// CaseFile assembles the full aggregate for a case from one consistent
// snapshot.
func (s *Service) CaseFile(ctx context.Context, id string) (CaseFileView, error) {
	var view CaseFileView
	err := s.run(ctx, "case_file", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return id, err
		}
		if err := s.store.View(ctx, func(v TransactionView) error {
			c, ok := v.FindCase(id)
			if !ok {
				return ErrNotFound{Entity: "case", ID: id}
			}
			if err := scopeCase(actor, role, c); err != nil {
				return err
			}
			view = CaseFileView{
				Case:     c,
				FIRs:     v.FIRsByCase(id),
				Parties:  v.PartiesByCase(id),
				Evidence: v.EvidenceByCase(id),
				Notes:    v.NotesByCase(id),
			}
			for _, cit := range v.CitationsByCase(id) {
				cv := CitationView{Citation: cit}
				if section, ok := v.FindLegalSection(cit.SectionID); ok {
					cv.Section = section
				}
				view.Citations = append(view.Citations, cv)
			}
			return nil
		}); err != nil {
			return id, err
		}
		return id, nil
	})
	return view, err
}
