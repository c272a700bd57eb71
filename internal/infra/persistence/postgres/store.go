// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics while applying the case records DDL on startup.
package postgres

import (
	"casefile/internal/entitymodel/sqlbundle"
	"casefile/internal/infra/persistence/memory"
	"casefile/pkg/domain"
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/casefile?sslmode=disable"

	stateTableDDL = `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	upsertStateSQL = `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`
	selectStateSQL = `SELECT bucket, payload FROM state`
)

var (
	openMu  sync.Mutex
	sqlOpen = sql.Open
)

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions and rule evaluation.
type Store struct {
	*memory.Store

	db *sql.DB
	mu sync.Mutex // serializes snapshot writes
}

// NewStore opens a Postgres-backed store at dsn (defaultDSN when empty),
// applies the case records DDL plus the snapshot table, and hydrates the
// in-memory store from any stored snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	db, err := openDB(cmp.Or(dsn, defaultDSN))
	if err != nil {
		return nil, err
	}

	snapshot, err := prepare(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := &Store{Store: memory.NewStore(engine), db: db}
	store.ImportState(snapshot)
	return store, nil
}

// openDB holds openMu so tests swapping the sqlOpen seam never race a
// concurrent NewStore.
func openDB(dsn string) (*sql.DB, error) {
	openMu.Lock()
	defer openMu.Unlock()
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// prepare pings the database, applies the schema, and reads back whatever
// snapshot a previous run left behind.
func prepare(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	if err := db.PingContext(ctx); err != nil {
		return memory.Snapshot{}, fmt.Errorf("ping postgres: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		return memory.Snapshot{}, err
	}
	return readSnapshot(ctx, db)
}

// RunInTransaction applies fn through the in-memory store, then snapshots the
// committed state to Postgres.
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

// DB returns the live database handle; integration tests use it to inspect
// written rows.
func (s *Store) DB() *sql.DB { return s.db }

// bootstrap applies the generated case records DDL and makes sure the
// snapshot table exists.
func bootstrap(ctx context.Context, db *sql.DB) error {
	for i, stmt := range sqlbundle.SplitStatements(sqlbundle.Postgres()) {
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

// persist writes one snapshot at a time; concurrent commits queue on mu.
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

// SwapSQLOpen swaps the sql.Open seam for tests and returns the restore
// function.
func SwapSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
