package core

import (
	"context"
	"testing"

	"casefile/pkg/domain"
)

// evalView hands fn a read-only view of store's committed state.
func evalView(t *testing.T, store *MemoryStore, fn func(domain.TransactionView)) {
	t.Helper()
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		fn(v)
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

// seededActors bundles the accounts provisioned for core package tests.
type seededActors struct {
	admin        User
	investigator User
	officer      User
	citizen      User
}

// newSeededService builds an in-memory service with the default rules,
// bootstrap seeds, and one account per role.
func newSeededService(t *testing.T, opts ...ServiceOption) (*Service, seededActors) {
	t.Helper()
	svc := NewInMemoryService(NewDefaultRulesEngine(), opts...)
	ctx := context.Background()
	if err := SeedDefaults(ctx, svc.Store()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	admin, ok := svc.Store().FindUserByEmail("admin@casefile.local")
	if !ok {
		t.Fatalf("seeded admin account missing")
	}
	officer, ok := svc.Store().FindUserByEmail("officer@casefile.local")
	if !ok {
		t.Fatalf("seeded officer account missing")
	}

	adminCtx := WithActor(ctx, admin.ID)
	investigator, _, err := svc.RegisterUser(adminCtx, UserInput{
		Name:        "Inspector Verma",
		Email:       "verma@casefile.local",
		District:    "North",
		RoleName:    RoleInvestigator,
		BadgeNumber: strPtr("INV-2001"),
		Department:  strPtr("Crime Branch"),
		Password:    "verma-secret",
	})
	if err != nil {
		t.Fatalf("register investigator: %v", err)
	}
	citizen, _, err := svc.RegisterCitizen(ctx, CitizenInput{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "+91-99000-11111",
		District: "North",
		Password: "asha-secret",
	})
	if err != nil {
		t.Fatalf("register citizen: %v", err)
	}

	return svc, seededActors{admin: admin, investigator: investigator, officer: officer, citizen: citizen}
}

// asActor returns a context carrying the user as acting identity.
func asActor(u User) context.Context {
	return WithActor(context.Background(), u.ID)
}

// registerTestCase files a case as the officer and returns it with its FIR.
func registerTestCase(t *testing.T, svc *Service, officer User, draft CaseDraft) (Case, FIR) {
	t.Helper()
	if draft.Title == "" {
		draft.Title = "Shop burglary on MG Road"
	}
	if draft.Description == "" {
		draft.Description = "Stolen electronics reported from a locked shop."
	}
	if draft.CrimeType == "" {
		draft.CrimeType = "Theft"
	}
	if draft.InformantName == "" {
		draft.InformantName = "Walk-in complainant"
	}
	c, fir, _, err := svc.RegisterCase(asActor(officer), draft)
	if err != nil {
		t.Fatalf("register case: %v", err)
	}
	return c, fir
}
