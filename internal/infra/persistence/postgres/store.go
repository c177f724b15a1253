// Package postgres persists the metadata graph to Postgres. Transactions run
// against the in-memory store; after each commit the changed snapshot buckets
// are upserted into the define_graph table under a new revision.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"

	"definecore/internal/infra/persistence/memory"
	"definecore/pkg/define"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

var _ define.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/definecore?sslmode=disable"

	// Table holds one row per snapshot bucket.
	Table = "define_graph"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a memory.Store whose committed state is mirrored to Postgres.
type Store struct {
	*memory.Store
	db *sql.DB

	mu       sync.Mutex
	revision int64
	written  map[string][]byte
}

// NewStore connects to dsn, or a local default when empty, creates the graph
// table when missing and hydrates the store from the stored buckets. Options
// apply only when the table is empty.
func NewStore(ctx context.Context, dsn string, engine *define.RulesEngine, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS ` + Table + ` (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		revision BIGINT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s: %w", Table, err)
	}

	s := &Store{Store: memory.NewStore(engine, opts...), db: db, written: map[string][]byte{}}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload, revision FROM `+Table)
	if err != nil {
		return fmt.Errorf("read %s: %w", Table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			bucket   string
			payload  []byte
			revision int64
		)
		if err := rows.Scan(&bucket, &payload, &revision); err != nil {
			return fmt.Errorf("scan %s: %w", Table, err)
		}
		s.written[bucket] = payload
		s.revision = max(s.revision, revision)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", Table, err)
	}
	if len(s.written) == 0 {
		return nil
	}
	snapshot, err := memory.DecodeBuckets(s.written)
	if err != nil {
		return err
	}
	s.ImportState(snapshot)
	return nil
}

// RunInTransaction commits fn in memory and then writes the changed buckets.
func (s *Store) RunInTransaction(ctx context.Context, fn func(define.Transaction) error) (define.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	return res, s.persist(ctx)
}

// Revision reports the revision of the last snapshot written or loaded.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// DB exposes the database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := memory.EncodeBuckets(s.ExportState())
	if err != nil {
		return err
	}
	var changed []string
	for _, bucket := range memory.Buckets {
		if prev, ok := s.written[bucket]; !ok || !bytes.Equal(prev, payloads[bucket]) {
			changed = append(changed, bucket)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	revision := s.revision + 1
	upsert := `INSERT INTO ` + Table + ` (bucket, payload, revision) VALUES ($1, $2, $3)
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, revision = EXCLUDED.revision`
	for _, bucket := range changed {
		if _, err := tx.ExecContext(ctx, upsert, bucket, payloads[bucket], revision); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	for _, bucket := range changed {
		s.written[bucket] = payloads[bucket]
	}
	s.revision = revision
	return nil
}

// OverrideSQLOpen replaces sql.Open for tests and returns the restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
