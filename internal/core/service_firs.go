package core

import (
	"context"
	"strings"

	"casefile/pkg/domain"
)

// FIRDraft carries the fields of a supplementary first information report.
type FIRDraft struct {
	InformantName    string
	InformantContact string
	Narrative        string
}

// FileSupplementaryFIR appends a supplemental report to an existing case.
// Citizens may only supplement cases they filed.
func (s *Service) FileSupplementaryFIR(ctx context.Context, caseID string, draft FIRDraft) (FIR, Result, error) {
	var (
		filed FIR
		res   Result
	)
	err := s.run(ctx, "file_supplementary_fir", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermFIRWrite)
		if err != nil {
			return "", err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return "", err
		}
		if strings.TrimSpace(draft.Narrative) == "" {
			return "", ValidationError{Field: "narrative", Reason: "required"}
		}
		informantName := strings.TrimSpace(draft.InformantName)
		if informantName == "" {
			informantName = actor.Name
		}
		now := s.nowFn()
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			filed, err = tx.CreateFIR(FIR{
				FIRNumber:        GenerateFIRNumber(now),
				CaseID:           caseID,
				InformantName:    informantName,
				InformantContact: strings.TrimSpace(draft.InformantContact),
				Narrative:        strings.TrimSpace(draft.Narrative),
				FiledByID:        actor.ID,
				FiledAt:          now,
				Supplemental:     true,
			})
			return err
		})
		return filed.ID, txErr
	})
	return filed, res, err
}

// GetFIR returns a report by ID, subject to citizen scoping through its case.
func (s *Service) GetFIR(ctx context.Context, id string) (FIR, error) {
	var fir FIR
	err := s.run(ctx, "get_fir", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return id, err
		}
		found, ok := s.store.GetFIR(id)
		if !ok {
			return id, ErrNotFound{Entity: "fir", ID: id}
		}
		if _, err := s.requireCase(actor, role, found.CaseID); err != nil {
			return id, err
		}
		fir = found
		return id, nil
	})
	return fir, err
}

// FindFIRByNumber returns a report by its public number.
func (s *Service) FindFIRByNumber(ctx context.Context, number string) (FIR, error) {
	var fir FIR
	err := s.run(ctx, "find_fir_by_number", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return "", err
		}
		found, ok := s.store.FindFIRByNumber(number)
		if !ok {
			return "", ErrNotFound{Entity: "fir", ID: number}
		}
		if _, err := s.requireCase(actor, role, found.CaseID); err != nil {
			return found.ID, err
		}
		fir = found
		return found.ID, nil
	})
	return fir, err
}

// ListFIRsByCase returns a case's reports ordered by filing time.
func (s *Service) ListFIRsByCase(ctx context.Context, caseID string) ([]FIR, error) {
	var firs []FIR
	err := s.run(ctx, "list_firs_by_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		err = s.store.View(ctx, func(v TransactionView) error {
			firs = v.FIRsByCase(caseID)
			return nil
		})
		return caseID, err
	})
	return firs, err
}
