package core

import (
	"context"
	"testing"
	"time"

	"casefile/pkg/domain"
)

func transitionChange(before, after domain.Case) domain.Change {
	return domain.Change{
		Entity: domain.EntityCase,
		Action: domain.ActionUpdate,
		Before: before,
		After:  after,
	}
}

func TestStatusTransitionAllowsForwardProgression(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	base := domain.Case{Base: domain.Base{ID: "c1"}, CaseNumber: "CR20260101AAAA", Status: domain.StatusOpen}
	steps := []domain.CaseStatus{domain.StatusUnderInvestigation, domain.StatusResolved, domain.StatusClosed}

	evalView(t, store, func(v domain.TransactionView) {
		current := base
		for _, next := range steps {
			after := current
			after.Status = next
			res, err := rule.Evaluate(ctx, v, []domain.Change{transitionChange(current, after)})
			if err != nil {
				t.Fatalf("evaluate %s -> %s: %v", current.Status, next, err)
			}
			if len(res.Violations) != 0 {
				t.Fatalf("forward transition %s -> %s should pass: %+v", current.Status, next, res.Violations)
			}
			current = after
		}
	})
}

func TestStatusTransitionBlocksLowering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	before := domain.Case{Base: domain.Base{ID: "c1"}, CaseNumber: "CR20260101AAAA", Status: domain.StatusResolved}
	after := before
	after.Status = domain.StatusOpen

	evalView(t, store, func(v domain.TransactionView) {
		res, err := rule.Evaluate(ctx, v, []domain.Change{transitionChange(before, after)})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("expected blocking violation for resolved -> open")
		}
	})
}

func TestStatusTransitionAllowsSanctionedReopen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	closedAt := time.Now().UTC()
	before := domain.Case{Base: domain.Base{ID: "c1"}, CaseNumber: "CR20260101AAAA", Status: domain.StatusClosed, ClosedAt: &closedAt, ReopenCount: 1}
	after := before
	after.Status = domain.StatusUnderInvestigation
	after.ReopenCount = 2
	after.ClosedAt = nil

	evalView(t, store, func(v domain.TransactionView) {
		res, err := rule.Evaluate(ctx, v, []domain.Change{transitionChange(before, after)})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("sanctioned reopen should pass: %+v", res.Violations)
		}
	})
}

func TestStatusTransitionRequiresReopenCounter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	before := domain.Case{Base: domain.Base{ID: "c1"}, CaseNumber: "CR20260101AAAA", Status: domain.StatusClosed}
	after := before
	after.Status = domain.StatusUnderInvestigation
	// ReopenCount left unchanged: not a sanctioned reopen.

	evalView(t, store, func(v domain.TransactionView) {
		res, err := rule.Evaluate(ctx, v, []domain.Change{transitionChange(before, after)})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("closed -> under_investigation without counter increment must block")
		}
	})
}

func TestStatusTransitionRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	created := domain.Case{Base: domain.Base{ID: "c1"}, CaseNumber: "CR20260101AAAA", Status: domain.CaseStatus("pending")}

	evalView(t, store, func(v domain.TransactionView) {
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityCase,
			Action: domain.ActionCreate,
			After:  created,
		}})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("unknown status must block")
		}
	})
}
