package core

import (
	"context"
	"sort"
	"strings"

	"casefile/pkg/domain"
)

// AddLegalSection adds a statute section to the catalog.
func (s *Service) AddLegalSection(ctx context.Context, section LegalSection) (LegalSection, Result, error) {
	var (
		entry LegalSection
		res   Result
	)
	err := s.run(ctx, "add_legal_section", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermSectionWrite); err != nil {
			return "", err
		}
		if strings.TrimSpace(section.Statute) == "" {
			return "", ValidationError{Field: "statute", Reason: "required"}
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			entry, err = tx.CreateLegalSection(section)
			return err
		})
		return entry.ID, txErr
	})
	return entry, res, err
}

// UpdateLegalSection mutates a statute catalog entry.
func (s *Service) UpdateLegalSection(ctx context.Context, id string, mutator func(*LegalSection) error) (LegalSection, Result, error) {
	var (
		revised LegalSection
		res     Result
	)
	err := s.run(ctx, "update_legal_section", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermSectionWrite); err != nil {
			return id, err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			revised, err = tx.UpdateLegalSection(id, mutator)
			return err
		})
		return id, txErr
	})
	return revised, res, err
}

// ListLegalSections returns the statute catalog ordered by statute then
// code. Any authenticated account may read the catalog.
func (s *Service) ListLegalSections(ctx context.Context) ([]LegalSection, error) {
	var sections []LegalSection
	err := s.run(ctx, "list_legal_sections", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, ""); err != nil {
			return "", err
		}
		sections = s.store.ListLegalSections()
		sortSections(sections)
		return "", nil
	})
	return sections, err
}

// SearchLegalSections returns catalog entries whose code, title,
// description, statute, or category contains the query, case-insensitively.
func (s *Service) SearchLegalSections(ctx context.Context, query string) ([]LegalSection, error) {
	var sections []LegalSection
	err := s.run(ctx, "search_legal_sections", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, ""); err != nil {
			return "", err
		}
		needle := strings.ToLower(strings.TrimSpace(query))
		for _, section := range s.store.ListLegalSections() {
			if needle == "" || sectionMatches(section, needle) {
				sections = append(sections, section)
			}
		}
		sortSections(sections)
		return "", nil
	})
	return sections, err
}

// FindSectionByCode returns a catalog entry by statute and code.
func (s *Service) FindSectionByCode(ctx context.Context, code string) (LegalSection, error) {
	var section LegalSection
	err := s.run(ctx, "find_section_by_code", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, ""); err != nil {
			return "", err
		}
		found, ok := s.store.FindSectionByCode(code)
		if !ok {
			return "", ErrNotFound{Entity: "legal section", ID: code}
		}
		section = found
		return found.ID, nil
	})
	return section, err
}

// CiteSection charges a case under a statute section.
func (s *Service) CiteSection(ctx context.Context, caseID, sectionID string, notes *string) (Citation, Result, error) {
	var (
		cited Citation
		res   Result
	)
	err := s.run(ctx, "cite_section", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCitationWrite)
		if err != nil {
			return "", err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return "", err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			cited, err = tx.CreateCitation(Citation{
				CaseID:    caseID,
				SectionID: sectionID,
				AddedByID: actor.ID,
				Notes:     notes,
			})
			return err
		})
		return cited.ID, txErr
	})
	return cited, res, err
}

// ListCitationsByCase returns a case's citations joined with their statute
// sections.
func (s *Service) ListCitationsByCase(ctx context.Context, caseID string) ([]CitationView, error) {
	var citations []CitationView
	err := s.run(ctx, "list_citations_by_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		err = s.store.View(ctx, func(v TransactionView) error {
			for _, cit := range v.CitationsByCase(caseID) {
				cv := CitationView{Citation: cit}
				if section, ok := v.FindLegalSection(cit.SectionID); ok {
					cv.Section = section
				}
				citations = append(citations, cv)
			}
			return nil
		})
		return caseID, err
	})
	return citations, err
}

func sortSections(sections []LegalSection) {
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Statute == sections[j].Statute {
			return sections[i].Code < sections[j].Code
		}
		return sections[i].Statute < sections[j].Statute
	})
}

func sectionMatches(section LegalSection, needle string) bool {
	for _, field := range []string{section.Code, section.Statute, section.Title, section.Description, section.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
