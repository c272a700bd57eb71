package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"casefile/pkg/domain"
)

// CaseQuery filters and pages case searches. Zero-valued fields match
// everything; Text matches against case number, title, description, crime
// type, and location, case-insensitively.
type CaseQuery struct {
	Text      string
	Status    CaseStatus
	Severity  CaseSeverity
	District  string
	CrimeType string
	OfficerID string
	FiledFrom time.Time
	FiledTo   time.Time
	Limit     int
	Offset    int
}

// CasePage is one page of search results with the unpaged match count.
type CasePage struct {
	Cases  []Case `json:"cases"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// MonthCount is one month of filing activity, keyed as 2006-01.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// CaseStatistics aggregates the visible caseload for dashboards.
type CaseStatistics struct {
	Total        int                  `json:"total"`
	ByStatus     map[CaseStatus]int   `json:"by_status"`
	BySeverity   map[CaseSeverity]int `json:"by_severity"`
	ByCrimeType  map[string]int       `json:"by_crime_type"`
	ByDistrict   map[string]int       `json:"by_district"`
	MonthlyTrend []MonthCount         `json:"monthly_trend"`
}

const defaultSearchLimit = 50

// SearchCases returns the cases matching the query ordered by severity
// first and filing recency second. Citizens only ever see cases they filed.
func (s *Service) SearchCases(ctx context.Context, q CaseQuery) (CasePage, error) {
	var page CasePage
	err := s.run(ctx, "search_cases", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return "", err
		}
		matched := filterCases(s.visibleCases(actor, role), q)
		sortForTriage(matched)

		limit := q.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		page = CasePage{Total: len(matched), Limit: limit, Offset: offset}
		if offset < len(matched) {
			end := offset + limit
			if end > len(matched) {
				end = len(matched)
			}
			page.Cases = matched[offset:end]
		}
		if page.Cases == nil {
			page.Cases = []Case{}
		}
		return "", nil
	})
	return page, err
}

// CaseStatistics aggregates the actor's visible caseload.
func (s *Service) CaseStatistics(ctx context.Context) (CaseStatistics, error) {
	stats := CaseStatistics{
		ByStatus:    make(map[CaseStatus]int),
		BySeverity:  make(map[CaseSeverity]int),
		ByCrimeType: make(map[string]int),
		ByDistrict:  make(map[string]int),
	}
	err := s.run(ctx, "case_statistics", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermCaseRead)
		if err != nil {
			return "", err
		}
		months := make(map[string]int)
		for _, c := range s.visibleCases(actor, role) {
			stats.Total++
			stats.ByStatus[c.Status]++
			stats.BySeverity[c.Severity]++
			if c.CrimeType != "" {
				stats.ByCrimeType[strings.ToLower(c.CrimeType)]++
			}
			if c.District != "" {
				stats.ByDistrict[c.District]++
			}
			months[c.FiledAt.UTC().Format("2006-01")]++
		}
		for _, month := range slices.Sorted(maps.Keys(months)) {
			stats.MonthlyTrend = append(stats.MonthlyTrend, MonthCount{Month: month, Count: months[month]})
		}
		return "", nil
	})
	return stats, err
}

// visibleCases returns the full caseload for officer-grade roles and the
// filed-by-me subset for citizens.
func (s *Service) visibleCases(actor User, role Role) []Case {
	cases := s.store.ListCases()
	if role.Name != RoleCitizen {
		return cases
	}
	var own []Case
	for _, c := range cases {
		if c.InformantUserID != nil && *c.InformantUserID == actor.ID {
			own = append(own, c)
		}
	}
	return own
}

func filterCases(cases []Case, q CaseQuery) []Case {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []Case
	for _, c := range cases {
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.Severity != "" && c.Severity != q.Severity {
			continue
		}
		if q.District != "" && !strings.EqualFold(c.District, q.District) {
			continue
		}
		if q.CrimeType != "" && !strings.EqualFold(c.CrimeType, q.CrimeType) {
			continue
		}
		if q.OfficerID != "" && (c.AssignedOfficerID == nil || *c.AssignedOfficerID != q.OfficerID) {
			continue
		}
		if !q.FiledFrom.IsZero() && c.FiledAt.Before(q.FiledFrom) {
			continue
		}
		if !q.FiledTo.IsZero() && c.FiledAt.After(q.FiledTo) {
			continue
		}
		if text != "" && !caseMatchesText(c, text) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func caseMatchesText(c Case, text string) bool {
	fields := []string{c.CaseNumber, c.Title, c.Description, c.CrimeType, c.Location, c.District}
	return slices.ContainsFunc(fields, func(field string) bool {
		return strings.Contains(strings.ToLower(field), text)
	})
}

// sortForTriage orders graver cases first, then more recent filings, then
// ID for determinism.
func sortForTriage(cases []Case) {
	slices.SortFunc(cases, func(a, b Case) int {
		if ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity); ra != rb {
			return rb - ra
		}
		if c := b.FiledAt.Compare(a.FiledAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
