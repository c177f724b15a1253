// Package badger persists the metadata graph to an embedded Badger key-value
// store, one key per snapshot bucket.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"definecore/internal/infra/persistence/memory"
	"definecore/pkg/define"
)

// Compile-time contract assertion ensuring the store satisfies the persistence interface.
var _ define.PersistentStore = (*Store)(nil)

const keyPrefix = "state/"

// Config selects the Badger directory. InMemory ignores Path.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Open opens a Badger database for cfg.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(zapLogger{s: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// Store persists state to Badger while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *badger.DB
	mu sync.Mutex
}

// NewStore opens the database and hydrates the in-memory store from any
// existing snapshot.
func NewStore(cfg Config, engine *define.RulesEngine, opts ...memory.Option) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{Store: memory.NewStore(engine, opts...), db: db}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw := map[string][]byte{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, bucket := range memory.Buckets {
			item, err := txn.Get([]byte(keyPrefix + bucket))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", bucket, err)
			}
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", bucket, err)
			}
			raw[bucket] = payload
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	snapshot, err := memory.DecodeBuckets(raw)
	if err != nil {
		return err
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := memory.EncodeBuckets(s.ExportState())
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, bucket := range memory.Buckets {
			if err := txn.Set([]byte(keyPrefix+bucket), payloads[bucket]); err != nil {
				return fmt.Errorf("set %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// RunInTransaction applies the provided function within a transaction, then snapshots to Badger if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(define.Transaction) error) (define.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(); err != nil {
		return res, err
	}
	return res, nil
}

// DB exposes the underlying Badger handle.
func (s *Store) DB() *badger.DB { return s.db }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }
