package core

import (
	"context"
	"strings"

	"casefile/pkg/domain"
)

// PartyInput carries the fields for attaching a victim, suspect, or witness
// to a case.
type PartyInput struct {
	Kind      PartyKind
	Name      string
	Age       *int
	Gender    *string
	Contact   *string
	Address   *string
	Statement *string
}

// AddParty attaches a person record to a case.
func (s *Service) AddParty(ctx context.Context, caseID string, input PartyInput) (Party, Result, error) {
	var (
		attached Party
		res      Result
	)
	err := s.run(ctx, "add_party", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermPartyWrite)
		if err != nil {
			return "", err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return "", err
		}
		if strings.TrimSpace(input.Name) == "" {
			return "", ValidationError{Field: "name", Reason: "required"}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			attached, err = tx.CreateParty(Party{
				CaseID:    caseID,
				Kind:      input.Kind,
				Name:      strings.TrimSpace(input.Name),
				Age:       input.Age,
				Gender:    input.Gender,
				Contact:   input.Contact,
				Address:   input.Address,
				Statement: input.Statement,
			})
			return err
		})
		return attached.ID, txErr
	})
	return attached, res, err
}

// UpdateParty mutates a party record using the provided mutator. The case
// binding and withdrawal stamp are not mutable through this path.
func (s *Service) UpdateParty(ctx context.Context, id string, mutator func(*Party) error) (Party, Result, error) {
	var (
		patched Party
		res     Result
	)
	err := s.run(ctx, "update_party", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermPartyWrite)
		if err != nil {
			return id, err
		}
		if err := s.requirePartyCase(ctx, actor, role, id); err != nil {
			return id, err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			patched, err = tx.UpdateParty(id, func(p *Party) error {
				caseID, withdrawnAt := p.CaseID, p.WithdrawnAt
				if err := mutator(p); err != nil {
					return err
				}
				p.CaseID = caseID
				p.WithdrawnAt = withdrawnAt
				return nil
			})
			return err
		})
		return id, txErr
	})
	return patched, res, err
}

// WithdrawParty marks a party record withdrawn. The row remains for the
// audit trail.
func (s *Service) WithdrawParty(ctx context.Context, id string) (Party, Result, error) {
	var (
		withdrawn Party
		res       Result
	)
	err := s.run(ctx, "withdraw_party", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermPartyWrite)
		if err != nil {
			return id, err
		}
		if err := s.requirePartyCase(ctx, actor, role, id); err != nil {
			return id, err
		}
		now := s.nowFn()
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			withdrawn, err = tx.UpdateParty(id, func(p *Party) error {
				if p.WithdrawnAt != nil {
					return ValidationError{Field: "withdrawn_at", Reason: "party already withdrawn"}
				}
				p.WithdrawnAt = &now
				return nil
			})
			return err
		})
		return id, txErr
	})
	return withdrawn, res, err
}

// ListPartiesByCase returns a case's parties ordered by creation time.
func (s *Service) ListPartiesByCase(ctx context.Context, caseID string) ([]Party, error) {
	var parties []Party
	err := s.run(ctx, "list_parties_by_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		err = s.store.View(ctx, func(v TransactionView) error {
			parties = v.PartiesByCase(caseID)
			return nil
		})
		return caseID, err
	})
	return parties, err
}

// requirePartyCase resolves a party's case and applies scoping to it.
func (s *Service) requirePartyCase(ctx context.Context, actor User, role Role, partyID string) error {
	var caseID string
	err := s.store.View(ctx, func(v TransactionView) error {
		for _, p := range v.ListParties() {
			if p.ID == partyID {
				caseID = p.CaseID
				return nil
			}
		}
		return ErrNotFound{Entity: "party", ID: partyID}
	})
	if err != nil {
		return err
	}
	_, err = s.requireCase(actor, role, caseID)
	return err
}
