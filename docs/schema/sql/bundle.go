// Package sqlddl exposes the case records SQL bundles directly from the docs tree.
package sqlddl

import _ "embed"

// SQLite contains the case records SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the case records Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
