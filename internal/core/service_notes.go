package core

import (
	"context"
	"strings"

	"casefile/pkg/domain"
)

// AppendCaseNote records an investigation update against a case. Notes are
// append-only and remain writable after the case closes; each note captures
// the case status at the time of writing.
func (s *Service) AppendCaseNote(ctx context.Context, caseID, body string) (CaseNote, Result, error) {
	var (
		note CaseNote
		res  Result
	)
	err := s.run(ctx, "append_case_note", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermNoteWrite)
		if err != nil {
			return "", err
		}
		current, err := s.requireCase(actor, role, caseID)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(body) == "" {
			return "", ValidationError{Field: "body", Reason: "required"}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			note, err = tx.CreateCaseNote(CaseNote{
				CaseID:      caseID,
				AuthorID:    actor.ID,
				AuthorBadge: actor.BadgeNumber,
				Status:      current.Status,
				Body:        strings.TrimSpace(body),
			})
			return err
		})
		return note.ID, txErr
	})
	return note, res, err
}

// ListCaseNotes returns a case's notes ordered by creation time.
func (s *Service) ListCaseNotes(ctx context.Context, caseID string) ([]CaseNote, error) {
	var notes []CaseNote
	err := s.run(ctx, "list_case_notes", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		err = s.store.View(ctx, func(v TransactionView) error {
			notes = v.NotesByCase(caseID)
			return nil
		})
		return caseID, err
	})
	return notes, err
}
