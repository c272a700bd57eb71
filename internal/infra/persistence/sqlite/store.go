// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics while applying the case records DDL on startup. It
// snapshots the full state after every successful transaction, so a process
// restart rehydrates exactly the committed records.
package sqlite

import (
	"casefile/internal/entitymodel/sqlbundle"
	"casefile/internal/infra/persistence/memory"
	"casefile/pkg/domain"
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // cgo-free sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	stateTableDDL = `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`
	upsertStateSQL = `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`
	selectStateSQL = `SELECT bucket, payload FROM state`
)

// Store persists the in-memory state to a SQLite file as JSON bucket snapshots.
type Store struct {
	*memory.Store

	path string
	db   *sql.DB
	mu   sync.Mutex // serializes snapshot writes
}

// NewStore constructs a snapshotting SQLite-backed persistent store at path
// ("casefile.db" when empty). It applies the case records DDL plus the
// snapshot table and hydrates the in-memory store from any stored snapshot.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	path = cmp.Or(path, "casefile.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}

	snapshot, err := prepare(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := &Store{Store: memory.NewStore(engine), db: db, path: path}
	store.ImportState(snapshot)
	return store, nil
}

// prepare applies the schema and reads back whatever snapshot a previous run
// left behind.
func prepare(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	if err := bootstrap(ctx, db); err != nil {
		return memory.Snapshot{}, err
	}
	return readSnapshot(ctx, db)
}

// bootstrap applies the generated case records DDL and makes sure the
// snapshot table exists.
func bootstrap(ctx context.Context, db *sql.DB) error {
	for i, stmt := range sqlbundle.SplitStatements(sqlbundle.SQLite()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl statement %d: %w", i, err)
		}
	}
	if _, err := db.ExecContext(ctx, stateTableDDL); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

func readSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	var snap memory.Snapshot
	rows, err := db.QueryContext(ctx, selectStateSQL)
	if err != nil {
		return snap, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if err := snap.UnmarshalBucket(bucket, payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state rows: %w", err)
	}
	return snap, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	if err := writeSnapshot(ctx, tx, s.ExportState()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, snapshot memory.Snapshot) error {
	for _, bucket := range memory.SnapshotBuckets {
		data, err := snapshot.MarshalBucket(bucket)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertStateSQL, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return nil
}

// RunInTransaction applies fn through the in-memory store, then snapshots the
// committed state to the SQLite file.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err == nil {
		err = s.persist(ctx)
	}
	return res, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path reports where the database file lives.
func (s *Store) Path() string { return s.path }

// DB exposes the live handle so tests can inspect written rows.
func (s *Store) DB() *sql.DB { return s.db }
