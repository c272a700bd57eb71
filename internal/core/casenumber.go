package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateCaseNumber produces a public case reference of the form
// CR20260114A3F9: the CR prefix, the filing date, and four uppercase hex
// characters from a fresh UUID. Uniqueness is ultimately enforced by the
// duplicate-identity rule at commit time.
func GenerateCaseNumber(now time.Time) string {
	return fmt.Sprintf("CR%s%s", now.UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:4]))
}

// GenerateFIRNumber produces a first information report reference of the
// form FIR20260114B41E77, mirroring the case number scheme with a longer
// random suffix because cases file FIRs repeatedly.
func GenerateFIRNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FIR%s%s", now.UTC().Format("20060102"), suffix)
}

// NewEntityID returns a fresh identifier for records whose ID must exist
// before the transaction runs, such as evidence items that key their blob
// by ID.
func NewEntityID() string {
	return uuid.NewString()
}
