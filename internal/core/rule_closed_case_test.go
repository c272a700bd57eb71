package core

import (
	"context"
	"testing"
	"time"

	"casefile/pkg/domain"
)

// seedClosedCaseFixture stores one closed and one open case without rules so
// the append-only rule can be evaluated against a realistic snapshot.
func seedClosedCaseFixture(t *testing.T, store *MemoryStore) (closed domain.Case, open domain.Case) {
	t.Helper()
	ctx := context.Background()
	closedAt := time.Now().UTC()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		closed, err = tx.CreateCase(domain.Case{
			Base:       domain.Base{ID: "case-closed"},
			CaseNumber: "CR20260101AAAA",
			Title:      "Closed burglary",
			Status:     domain.StatusClosed,
			Severity:   domain.SeverityMedium,
			ClosedAt:   &closedAt,
		})
		if err != nil {
			return err
		}
		open, err = tx.CreateCase(domain.Case{
			Base:       domain.Base{ID: "case-open"},
			CaseNumber: "CR20260101BBBB",
			Title:      "Open burglary",
			Status:     domain.StatusOpen,
			Severity:   domain.SeverityMedium,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed cases: %v", err)
	}
	return closed, open
}

func TestClosedCaseBlocksFieldMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewClosedCaseAppendOnlyRule()
	closed, open := seedClosedCaseFixture(t, store)

	evalView(t, store, func(v domain.TransactionView) {
		mutated := closed
		mutated.Title = "Renamed after closure"
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: closed, After: mutated,
		}})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("closed case field mutation must block")
		}

		renamedOpen := open
		renamedOpen.Title = "Renamed while open"
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: open, After: renamedOpen,
		}})
		if err != nil {
			t.Fatalf("evaluate open: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("open case mutation should pass: %+v", res.Violations)
		}
	})
}

func TestClosedCasePermitsReopenAndArchival(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewClosedCaseAppendOnlyRule()
	closed, _ := seedClosedCaseFixture(t, store)

	evalView(t, store, func(v domain.TransactionView) {
		reopened := closed
		reopened.Status = domain.StatusUnderInvestigation
		reopened.ReopenCount = closed.ReopenCount + 1
		reopened.ClosedAt = nil
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: closed, After: reopened,
		}})
		if err != nil {
			t.Fatalf("evaluate reopen: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("reopen should pass append-only rule: %+v", res.Violations)
		}

		archivedAt := time.Now().UTC()
		archived := closed
		archived.ArchivedAt = &archivedAt
		archived.UpdatedAt = archivedAt
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: closed, After: archived,
		}})
		if err != nil {
			t.Fatalf("evaluate archive: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("archival should pass append-only rule: %+v", res.Violations)
		}

		// Archival combined with another field edit is no longer archival.
		tampered := archived
		tampered.Title = "Changed during archive"
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: closed, After: tampered,
		}})
		if err != nil {
			t.Fatalf("evaluate tampered archive: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("archive plus field edit must block")
		}
	})
}

func TestClosedCaseBlocksSubEntityWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewClosedCaseAppendOnlyRule()
	closed, open := seedClosedCaseFixture(t, store)

	evalView(t, store, func(v domain.TransactionView) {
		cases := []struct {
			name   string
			change domain.Change
			block  bool
		}{
			{
				name: "fir on closed case",
				change: domain.Change{Entity: domain.EntityFIR, Action: domain.ActionCreate, After: domain.FIR{
					Base: domain.Base{ID: "f1"}, FIRNumber: "FIR20260101AAAAAA", CaseID: closed.ID,
				}},
				block: true,
			},
			{
				name: "fir on open case",
				change: domain.Change{Entity: domain.EntityFIR, Action: domain.ActionCreate, After: domain.FIR{
					Base: domain.Base{ID: "f2"}, FIRNumber: "FIR20260101BBBBBB", CaseID: open.ID,
				}},
				block: false,
			},
			{
				name: "party on closed case",
				change: domain.Change{Entity: domain.EntityParty, Action: domain.ActionCreate, After: domain.Party{
					Base: domain.Base{ID: "p1"}, CaseID: closed.ID, Kind: domain.PartyWitness, Name: "Late witness",
				}},
				block: true,
			},
			{
				name: "citation on closed case",
				change: domain.Change{Entity: domain.EntityCitation, Action: domain.ActionCreate, After: domain.Citation{
					Base: domain.Base{ID: "ct1"}, CaseID: closed.ID, SectionID: "s1", AddedByID: "u1",
				}},
				block: true,
			},
			{
				name: "note on closed case",
				change: domain.Change{Entity: domain.EntityCaseNote, Action: domain.ActionCreate, After: domain.CaseNote{
					Base: domain.Base{ID: "n1"}, CaseID: closed.ID, AuthorID: "u1", Body: "post-closure remark",
				}},
				block: false,
			},
		}
		for _, tc := range cases {
			res, err := rule.Evaluate(ctx, v, []domain.Change{tc.change})
			if err != nil {
				t.Fatalf("%s: evaluate: %v", tc.name, err)
			}
			if tc.block != res.HasBlocking() {
				t.Fatalf("%s: blocking=%v, want %v (%+v)", tc.name, res.HasBlocking(), tc.block, res.Violations)
			}
		}
	})
}

func TestClosedCaseEvidenceCustodyException(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewClosedCaseAppendOnlyRule()
	closed, _ := seedClosedCaseFixture(t, store)

	stored := domain.Evidence{
		Base:     domain.Base{ID: "e1"},
		CaseID:   closed.ID,
		Label:    "CCTV drive",
		Kind:     domain.EvidenceVideo,
		FileName: "cam.mp4",
		Status:   domain.EvidenceStored,
		Custody: []domain.CustodyEvent{
			{Actor: "SI Sharma", Location: "evidence locker", Timestamp: time.Now().UTC()},
		},
	}

	evalView(t, store, func(v domain.TransactionView) {
		appended := stored
		appended.Custody = append(append([]domain.CustodyEvent{}, stored.Custody...), domain.CustodyEvent{
			Actor: "Inspector Verma", Location: "forensics lab", Timestamp: time.Now().UTC(),
		})
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityEvidence, Action: domain.ActionUpdate, Before: stored, After: appended,
		}})
		if err != nil {
			t.Fatalf("evaluate append: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("custody append on closed case should pass: %+v", res.Violations)
		}

		relabeled := stored
		relabeled.Label = "CCTV drive (primary)"
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityEvidence, Action: domain.ActionUpdate, Before: stored, After: relabeled,
		}})
		if err != nil {
			t.Fatalf("evaluate relabel: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("evidence relabel on closed case must block")
		}

		rewritten := appended
		rewritten.Custody[0].Location = "rewritten history"
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityEvidence, Action: domain.ActionUpdate, Before: stored, After: rewritten,
		}})
		if err != nil {
			t.Fatalf("evaluate rewrite: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("custody history rewrite must block")
		}

		created := stored
		created.Base.ID = "e2"
		res, err = rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityEvidence, Action: domain.ActionCreate, After: created,
		}})
		if err != nil {
			t.Fatalf("evaluate create: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("new evidence on closed case must block")
		}
	})
}

func TestClosedCaseIgnoresCaseClosedWithinTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewClosedCaseAppendOnlyRule()
	_, open := seedClosedCaseFixture(t, store)

	// A case closing in this very transaction may still receive its closure
	// note: only the status at transaction start counts.
	evalView(t, store, func(v domain.TransactionView) {
		closedNow := open
		closedNow.Status = domain.StatusClosed
		res, err := rule.Evaluate(ctx, v, []domain.Change{
			{Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: open, After: closedNow},
			{Entity: domain.EntityCaseNote, Action: domain.ActionCreate, After: domain.CaseNote{
				Base: domain.Base{ID: "n1"}, CaseID: open.ID, AuthorID: "u1", Body: "closed after recovery",
			}},
		})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("closing transition itself should pass: %+v", res.Violations)
		}
	})
}
