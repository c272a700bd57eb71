package memory

import (
	"casefile/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mustRun commits fn against store or fails the test.
func mustRun(t *testing.T, store *Store, fn func(tx domain.Transaction) error) {
	t.Helper()
	if _, err := store.RunInTransaction(context.Background(), fn); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

// create fails the test when a Create call inside a transaction errors.
func create[T any](t *testing.T, v T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return v
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	mustRun(t, store, func(tx domain.Transaction) error {
		if _, ok := tx.FindCase("missing"); ok {
			t.Fatalf("found a case before any were created")
		}
		role, err := tx.CreateRole(domain.Role{Name: "officer", Permissions: []domain.Permission{domain.PermCaseRead}})
		create(t, role, err)
		user, err := tx.CreateUser(domain.User{Name: "Asha", Email: "asha@example.org", RoleID: role.ID})
		create(t, user, err)
		record, err := tx.CreateCase(domain.Case{CaseNumber: "CR20240101ABCD", Title: "Test", AssignedOfficerID: &user.ID})
		create(t, record, err)
		if record.ID == "" {
			t.Fatalf("CreateCase left the ID empty")
		}
		if record.Status != domain.StatusOpen {
			t.Fatalf("new case status = %s, want %s", record.Status, domain.StatusOpen)
		}
		fir, err := tx.CreateFIR(domain.FIR{FIRNumber: "FIR-20240101-ABCDEF", CaseID: record.ID, FiledByID: user.ID})
		create(t, fir, err)

		view := tx.Snapshot()
		if len(view.ListCases()) != 1 || len(view.ListFIRs()) != 1 {
			t.Fatalf("pending view holds %d cases and %d firs, want 1 and 1", len(view.ListCases()), len(view.ListFIRs()))
		}
		if got := view.FIRsByCase(record.ID); len(got) != 1 {
			t.Fatalf("FIRsByCase returned %d reports, want 1", len(got))
		}
		return nil
	})

	if len(store.ListCases()) != 1 {
		t.Fatalf("committed case count = %d, want 1", len(store.ListCases()))
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListCases()) != 0 {
		t.Fatalf("importing an empty snapshot left %d cases behind", len(store.ListCases()))
	}
	store.ImportState(snapshot)
	if len(store.ListCases()) != 1 {
		t.Fatalf("restoring the snapshot did not bring the case back")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("RulesEngine returned nil")
	}
	if store.NowFunc() == nil {
		t.Fatalf("NowFunc returned nil")
	}
}

func TestStoreRuleViolationRollsBack(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateLegalSection(domain.LegalSection{Code: "BNS-103"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("want RuleViolationError, got %v", err)
	}
	if len(store.ListLegalSections()) != 0 {
		t.Fatalf("blocked transaction still wrote %d sections", len(store.ListLegalSections()))
	}
}

// blockingRule vetoes every change set.
type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.RuleSeverityBlock}}}, nil
}

func TestTransactionReferenceChecks(t *testing.T) {
	store := NewStore(nil)
	mustRun(t, store, func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Email: "no-role@example.org", RoleID: "missing"}); err == nil {
			t.Fatalf("CreateUser accepted a missing role")
		}
		if _, err := tx.CreateFIR(domain.FIR{FIRNumber: "FIR-1", CaseID: "missing"}); err == nil {
			t.Fatalf("CreateFIR accepted a missing case")
		}
		if _, err := tx.CreateParty(domain.Party{CaseID: "missing", Kind: domain.PartyWitness, Name: "W"}); err == nil {
			t.Fatalf("CreateParty accepted a missing case")
		}
		if _, err := tx.CreateEvidence(domain.Evidence{CaseID: "missing"}); err == nil {
			t.Fatalf("CreateEvidence accepted a missing case")
		}
		if _, err := tx.CreateCitation(domain.Citation{CaseID: "missing", SectionID: "missing"}); err == nil {
			t.Fatalf("CreateCitation accepted missing references")
		}
		record, err := tx.CreateCase(domain.Case{CaseNumber: "CR20240101AAAA"})
		create(t, record, err)
		if _, err := tx.CreateParty(domain.Party{CaseID: record.ID, Kind: "bystander", Name: "B"}); err == nil {
			t.Fatalf("CreateParty accepted an unknown kind")
		}
		if _, err := tx.CreateCase(domain.Case{CaseNumber: "CRX", Status: "lost"}); err == nil {
			t.Fatalf("CreateCase accepted an unknown status")
		}
		return nil
	})
}

func TestUpdateCaseErrors(t *testing.T) {
	store := NewStore(nil)
	mustRun(t, store, func(tx domain.Transaction) error {
		if _, err := tx.UpdateCase("missing", func(*domain.Case) error { return nil }); err == nil {
			t.Fatalf("UpdateCase accepted a missing ID")
		}
		record, err := tx.CreateCase(domain.Case{CaseNumber: "CR20240101BBBB"})
		create(t, record, err)
		if _, err := tx.UpdateCase(record.ID, func(*domain.Case) error { return fmt.Errorf("boom") }); err == nil {
			t.Fatalf("mutator error was swallowed")
		}
		if _, err := tx.UpdateCase(record.ID, func(c *domain.Case) error {
			c.Status = "lost"
			return nil
		}); err == nil {
			t.Fatalf("UpdateCase accepted an unknown status")
		}
		updated, err := tx.UpdateCase(record.ID, func(c *domain.Case) error {
			c.ID = "hijack"
			c.Title = "Renamed"
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != record.ID {
			t.Fatalf("mutator rewrote the ID to %s", updated.ID)
		}
		if updated.Title != "Renamed" {
			t.Fatalf("title update lost, got %q", updated.Title)
		}
		return nil
	})
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	store := NewStore(nil)
	var caseID string
	mustRun(t, store, func(tx domain.Transaction) error {
		record, err := tx.CreateCase(domain.Case{CaseNumber: "CR20240101CCCC"})
		caseID = create(t, record, err).ID
		return nil
	})

	const workers = 16
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
				_, err := tx.UpdateCase(caseID, func(c *domain.Case) error {
					c.SeverityScore++
					return nil
				})
				return err
			})
			if err != nil {
				t.Errorf("concurrent update: %v", err)
			}
		}()
	}
	wg.Wait()

	record, ok := store.GetCase(caseID)
	if !ok {
		t.Fatalf("case disappeared")
	}
	if record.SeverityScore != workers {
		t.Fatalf("lost update: severity score %v after %v increments", record.SeverityScore, workers)
	}
}

func TestCloneIsolation(t *testing.T) {
	store := NewStore(nil)
	var evidenceID string
	mustRun(t, store, func(tx domain.Transaction) error {
		record, err := tx.CreateCase(domain.Case{CaseNumber: "CR20240101DDDD"})
		create(t, record, err)
		item, err := tx.CreateEvidence(domain.Evidence{CaseID: record.ID, Label: "Knife", Custody: []domain.CustodyEvent{{Actor: "station"}}})
		create(t, item, err)
		evidenceID = item.ID
		return nil
	})

	item, ok := store.GetEvidence(evidenceID)
	if !ok {
		t.Fatalf("evidence missing after commit")
	}
	item.Custody[0].Actor = "tampered"

	fresh, _ := store.GetEvidence(evidenceID)
	if fresh.Custody[0].Actor != "station" {
		t.Fatalf("store state mutated through a returned clone")
	}
}
