// Package testutil backs the postgres store tests with a stub database/sql
// driver. It understands only the statement shapes the snapshotting store
// issues: ping, DDL passthrough, bucket upserts into the state table, and
// bucket selects. Case records never leave the store by deletion, so the stub
// has no DELETE support.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync/atomic"
)

var (
	insertShape   = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	selectShape   = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+([A-Za-z_][A-Za-z0-9_]*)`)
	conflictShape = regexp.MustCompile(`(?i)\bON\s+CONFLICT\b`)
)

// Conn is the single stub connection behind every session the registered
// driver opens. Tests inspect Log and Tables after exercising the store and
// flip the Fail switches to force individual error paths.
type Conn struct {
	Log        []string                    // every exec statement, in order
	Tables     map[string][]map[string]any // rows by table, column names lowercased
	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailTable  map[string]bool // refuse inserts and selects per table
	IterErr    error           // reported after the last row of any select
}

var stubSeq atomic.Int64

// Open registers a fresh stub driver and returns a sql.DB wired to it along
// with the connection the test inspects.
func Open() (*sql.DB, *Conn) {
	stub := &Conn{Tables: map[string][]map[string]any{}}
	name := fmt.Sprintf("casefile-pgstub-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: stub})
	db, err := sql.Open(name, name)
	if err != nil {
		panic(fmt.Sprintf("open stub %s: %v", name, err))
	}
	return db, stub
}

type stubDriver struct{ conn *Conn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *Conn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("stub: prepared statements unsupported")
}

func (c *Conn) Close() error { return nil }

func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *Conn) Ping(context.Context) error {
	if !c.FailPing {
		return nil
	}
	return fmt.Errorf("stub: ping refused")
}

func (c *Conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("stub: begin refused")
	}
	return stubTx{conn: c}, nil
}

// ExecContext records every statement. Inserts mutate the in-memory tables,
// replacing on the first column when the statement carries ON CONFLICT; DDL
// and anything else is acknowledged untouched.
func (c *Conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Log = append(c.Log, query)
	if c.FailExec {
		return nil, fmt.Errorf("stub: exec refused")
	}
	m := insertShape.FindStringSubmatch(query)
	if m == nil {
		return driver.RowsAffected(0), nil
	}
	table := strings.ToLower(m[1])
	if c.FailTable[table] {
		return nil, fmt.Errorf("stub: table %s refused", table)
	}
	cols := columnList(m[2])
	if len(cols) != len(args) {
		return nil, fmt.Errorf("stub: %s insert names %d columns but has %d args", table, len(cols), len(args))
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	c.apply(table, cols[0], row, conflictShape.MatchString(query))
	return driver.RowsAffected(1), nil
}

func (c *Conn) apply(table, key string, row map[string]any, upsert bool) {
	if c.Tables == nil {
		c.Tables = map[string][]map[string]any{}
	}
	if upsert {
		for i, existing := range c.Tables[table] {
			if existing[key] == row[key] {
				c.Tables[table][i] = row
				return
			}
		}
	}
	c.Tables[table] = append(c.Tables[table], row)
}

// QueryContext implements driver.QueryerContext for the bucket selects.
func (c *Conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	m := selectShape.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	cols := columnList(m[1])
	table := strings.ToLower(m[2])
	if c.FailTable[table] {
		return nil, fmt.Errorf("stub: table %s refused", table)
	}
	rs := &resultSet{cols: cols, tailErr: c.IterErr}
	for _, row := range c.Tables[table] {
		tuple := make([]driver.Value, len(cols))
		for i, col := range cols {
			tuple[i] = row[col]
		}
		rs.data = append(rs.data, tuple)
	}
	return rs, nil
}

type stubTx struct{ conn *Conn }

func (t stubTx) Commit() error {
	if !t.conn.FailCommit {
		return nil
	}
	return fmt.Errorf("stub: commit refused")
}

func (t stubTx) Rollback() error { return nil }

// resultSet walks the captured tuples, then reports the configured iteration
// error in place of io.EOF.
type resultSet struct {
	cols    []string
	data    [][]driver.Value
	pos     int
	tailErr error
}

func (r *resultSet) Columns() []string { return r.cols }

func (r *resultSet) Close() error { return nil }

func (r *resultSet) Next(dest []driver.Value) error {
	if r.pos == len(r.data) {
		if r.tailErr != nil {
			return r.tailErr
		}
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func columnList(raw string) []string {
	parts := strings.Split(raw, ",")
	cols := make([]string, 0, len(parts))
	for _, part := range parts {
		cols = append(cols, strings.ToLower(strings.TrimSpace(part)))
	}
	return cols
}
