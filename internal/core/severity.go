package core

import (
	"strings"

	"casefile/pkg/domain"
)

// Keyword vocabularies backing the heuristic severity classifier. Crime type
// categories take precedence; free-text keyword counts break the remainder.
var (
	highSeverityKeywords = []string{
		"murder", "kill", "death", "rape", "assault", "kidnap", "bomb",
		"terror", "weapon", "gun", "knife", "violence", "threat",
		"emergency", "urgent", "serious", "critical", "dangerous", "life",
		"injury", "blood", "attack",
	}
	mediumSeverityKeywords = []string{
		"theft", "robbery", "fraud", "cheat", "scam", "harassment", "abuse",
		"domestic", "cybercrime", "blackmail", "extortion", "vandalism",
		"property", "damage", "stolen", "missing", "lost",
	}
	lowSeverityKeywords = []string{
		"noise", "parking", "dispute", "argument", "complaint", "minor",
		"disturbance", "nuisance", "public", "traffic", "document",
	}

	highSeverityCategories = []string{
		"murder", "rape", "kidnapping", "terrorism", "assault",
	}
	mediumSeverityCategories = []string{
		"theft", "fraud", "cybercrime", "harassment", "robbery",
	}
	lowSeverityCategories = []string{
		"traffic", "noise", "public nuisance", "document",
	}
)

// ClassifySeverity grades a case from its crime type and free text. The
// crime type category decides outright when it matches a known bucket;
// otherwise keyword occurrences across title and description are counted
// and the densest bucket wins. Unclassifiable input lands on medium. The
// returned score orders cases within a severity band: more matched
// keywords push a case ahead of its peers.
func ClassifySeverity(crimeType, title, description string) (domain.CaseSeverity, float64) {
	category := strings.ToLower(strings.TrimSpace(crimeType))
	text := strings.ToLower(title + " " + description)

	for _, c := range highSeverityCategories {
		if strings.Contains(category, c) {
			return domain.SeverityHigh, severityScore(domain.SeverityHigh, countKeywords(text, highSeverityKeywords))
		}
	}
	for _, c := range mediumSeverityCategories {
		if strings.Contains(category, c) {
			return domain.SeverityMedium, severityScore(domain.SeverityMedium, countKeywords(text, mediumSeverityKeywords))
		}
	}
	for _, c := range lowSeverityCategories {
		if strings.Contains(category, c) {
			return domain.SeverityLow, severityScore(domain.SeverityLow, countKeywords(text, lowSeverityKeywords))
		}
	}

	high := countKeywords(text, highSeverityKeywords)
	medium := countKeywords(text, mediumSeverityKeywords)
	low := countKeywords(text, lowSeverityKeywords)
	switch {
	case high > 0 && high >= medium && high >= low:
		return domain.SeverityHigh, severityScore(domain.SeverityHigh, high)
	case medium > 0 && medium >= low:
		return domain.SeverityMedium, severityScore(domain.SeverityMedium, medium)
	case low > 0:
		return domain.SeverityLow, severityScore(domain.SeverityLow, low)
	default:
		return domain.SeverityMedium, severityScore(domain.SeverityMedium, 0)
	}
}

// SeverityRank orders severities for triage listings; higher is graver.
func SeverityRank(s domain.CaseSeverity) int {
	switch s {
	case domain.SeverityHigh:
		return 2
	case domain.SeverityMedium:
		return 1
	case domain.SeverityLow:
		return 0
	default:
		return -1
	}
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// severityScore maps a severity band to a base score and nudges it upward
// by keyword density, capped below the next band.
func severityScore(s domain.CaseSeverity, matches int) float64 {
	base := float64(SeverityRank(s) + 1)
	bump := 0.1 * float64(matches)
	if bump > 0.9 {
		bump = 0.9
	}
	return base + bump
}
