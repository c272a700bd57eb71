package core_test

import (
	"errors"
	"strings"
	"testing"

	"casefile/internal/core"
	"casefile/pkg/domain"
)

func TestStatuteCatalogSeededAndSorted(t *testing.T) {
	svc, actors := seedService(t)

	// The catalog is readable by any authenticated account.
	sections, err := svc.ListLegalSections(actorCtx(actors.citizen))
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 12 {
		t.Fatalf("seeded catalog size = %d", len(sections))
	}
	if sections[0].Statute != "BNS" || sections[0].Code != "103" {
		t.Fatalf("first entry = %s/%s", sections[0].Statute, sections[0].Code)
	}
	for i := 1; i < len(sections); i++ {
		prev, cur := sections[i-1], sections[i]
		if prev.Statute > cur.Statute || (prev.Statute == cur.Statute && prev.Code > cur.Code) {
			t.Fatalf("catalog unsorted at %d: %s/%s before %s/%s", i, prev.Statute, prev.Code, cur.Statute, cur.Code)
		}
	}
}

func TestSearchLegalSections(t *testing.T) {
	svc, actors := seedService(t)
	citizen := actorCtx(actors.citizen)

	theft, err := svc.SearchLegalSections(citizen, "Theft")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(theft) != 1 || theft[0].Code != "304" {
		t.Fatalf("theft search = %+v", theft)
	}

	procedures, err := svc.SearchLegalSections(citizen, "procedure")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(procedures) != 4 {
		t.Fatalf("procedure search = %d entries", len(procedures))
	}
	for _, s := range procedures {
		if s.Statute != "BNSS" {
			t.Fatalf("procedure search returned %s/%s", s.Statute, s.Code)
		}
	}

	// Codes match case-insensitively.
	conspiracy, err := svc.SearchLegalSections(citizen, "120b")
	if err != nil || len(conspiracy) != 1 || conspiracy[0].Title != "Criminal Conspiracy" {
		t.Fatalf("code search = %+v err=%v", conspiracy, err)
	}

	all, err := svc.SearchLegalSections(citizen, "  ")
	if err != nil || len(all) != 12 {
		t.Fatalf("blank query = %d entries err=%v", len(all), err)
	}
}

func TestFindSectionByCode(t *testing.T) {
	svc, actors := seedService(t)
	officer := actorCtx(actors.officer)

	fir, err := svc.FindSectionByCode(officer, "154")
	if err != nil || fir.Statute != "BNSS" || fir.Title != "FIR Registration" {
		t.Fatalf("find 154: %+v err=%v", fir, err)
	}
	if _, err := svc.FindSectionByCode(officer, "120b"); err != nil {
		t.Fatalf("case-folded code: %v", err)
	}
	var notFound core.ErrNotFound
	if _, err := svc.FindSectionByCode(officer, "999"); !errors.As(err, &notFound) {
		t.Fatalf("unknown code: %v", err)
	}
}

func TestAddLegalSection(t *testing.T) {
	svc, actors := seedService(t)
	admin := actorCtx(actors.admin)

	created, _, err := svc.AddLegalSection(admin, core.LegalSection{
		Code:        "8",
		Statute:     "NDPS",
		Title:       "Prohibited Substances",
		Category:    "narcotics",
		Description: "No person shall produce, manufacture, possess, sell, purchase, transport, or consume any narcotic drug or psychotropic substance.",
	})
	if err != nil {
		t.Fatalf("add section: %v", err)
	}

	var invalid core.ValidationError
	if _, _, err := svc.AddLegalSection(admin, core.LegalSection{Code: "9", Statute: "  "}); !errors.As(err, &invalid) || invalid.Field != "statute" {
		t.Fatalf("blank statute: %v", err)
	}

	// Statute and code identify a section case-insensitively.
	var violation domain.RuleViolationError
	if _, _, err := svc.AddLegalSection(admin, core.LegalSection{Code: "103", Statute: "bns", Title: "Duplicate"}); !errors.As(err, &violation) {
		t.Fatalf("duplicate section: %v", err)
	}

	var denied core.PermissionError
	if _, _, err := svc.AddLegalSection(actorCtx(actors.officer), core.LegalSection{Code: "10", Statute: "NDPS"}); !errors.As(err, &denied) {
		t.Fatalf("section write without permission: %v", err)
	}

	updated, _, err := svc.UpdateLegalSection(admin, created.ID, func(s *core.LegalSection) error {
		s.Description = s.Description + " Contravention is punishable under chapter IV."
		return nil
	})
	if err != nil || !strings.Contains(updated.Description, "chapter IV") {
		t.Fatalf("update section: %v", err)
	}
}

func TestCiteSectionJoinsCatalog(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	section, err := svc.FindSectionByCode(inv, "304")
	if err != nil {
		t.Fatalf("find section: %v", err)
	}
	notes := "property moved without consent"
	citation, _, err := svc.CiteSection(inv, c.ID, section.ID, &notes)
	if err != nil {
		t.Fatalf("cite: %v", err)
	}
	if citation.AddedByID != actors.investigator.ID {
		t.Fatalf("citation author = %q", citation.AddedByID)
	}

	views, err := svc.ListCitationsByCase(actorCtx(actors.officer), c.ID)
	if err != nil {
		t.Fatalf("list citations: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("citations = %d", len(views))
	}
	if views[0].Section.Code != "304" || views[0].Section.Title != "Theft" {
		t.Fatalf("joined section = %+v", views[0].Section)
	}
	if views[0].Notes == nil || *views[0].Notes != notes {
		t.Fatalf("citation notes = %v", views[0].Notes)
	}

	if _, _, err := svc.CiteSection(inv, c.ID, "sec-ghost", nil); err == nil {
		t.Fatalf("ghost section accepted")
	}

	if _, _, err := svc.TransitionCaseStatus(inv, c.ID, core.StatusClosed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	var violation domain.RuleViolationError
	if _, _, err := svc.CiteSection(inv, c.ID, section.ID, nil); !errors.As(err, &violation) {
		t.Fatalf("citation on closed case: %v", err)
	}
}

func TestCaseNotes(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	officer := actorCtx(actors.officer)

	var invalid core.ValidationError
	if _, _, err := svc.AppendCaseNote(officer, c.ID, "  "); !errors.As(err, &invalid) || invalid.Field != "body" {
		t.Fatalf("blank note: %v", err)
	}

	note, _, err := svc.AppendCaseNote(officer, c.ID, "house-to-house inquiry scheduled")
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	if note.AuthorID != actors.officer.ID || note.Status != core.StatusOpen {
		t.Fatalf("note = %+v", note)
	}
	if note.AuthorBadge == nil || *note.AuthorBadge == "" {
		t.Fatalf("officer note should carry the badge")
	}

	var denied core.PermissionError
	if _, _, err := svc.AppendCaseNote(actorCtx(actors.citizen), c.ID, "please hurry"); !errors.As(err, &denied) {
		t.Fatalf("citizen note: %v", err)
	}

	notes, err := svc.ListCaseNotes(officer, c.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "house-to-house inquiry scheduled" {
		t.Fatalf("notes = %+v", notes)
	}
}
