// Package sqlbundle exposes the case records DDL bundles for storage adapters.
package sqlbundle

import (
	"strings"

	sqlddl "casefile/docs/schema/sql"
)

// SQLite returns the SQLite DDL for the case records entity model.
func SQLite() string {
	return sqlddl.SQLite
}

// Postgres returns the Postgres DDL for the case records entity model.
func Postgres() string {
	return sqlddl.Postgres
}

// SplitStatements breaks a semicolon-terminated DDL script into executable
// statements, dropping blank lines and "--" comment lines. An unterminated
// trailing statement is kept.
func SplitStatements(ddl string) []string {
	var stmts []string
	var pending []string

	emit := func() {
		if stmt := strings.TrimSpace(strings.Join(pending, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
		pending = pending[:0]
	}

	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}
		pending = append(pending, line)
		if strings.HasSuffix(trimmed, ";") {
			emit()
		}
	}
	emit()
	return stmts
}
