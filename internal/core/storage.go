package core

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"definecore/internal/config"
	"definecore/internal/infra/persistence/badger"
	"definecore/internal/infra/persistence/memory"
	"definecore/internal/infra/persistence/postgres"
	"definecore/internal/infra/persistence/sqlite"
	"definecore/pkg/define"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded badger directory
)

// OpenPersistentStore selects a backend from configuration. An empty driver
// selects sqlite. model seeds the graph of a store holding no snapshot yet.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, model define.Model, engine *RulesEngine, logger *zap.Logger) (PersistentStore, error) {
	opts := []memory.Option{memory.WithModel(model)}
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, opts...), nil
	case StorageSQLite:
		return opened(sqlite.NewStore(cfg.SQLitePath, engine, opts...))
	case StoragePostgres:
		return opened(postgres.NewStore(ctx, cfg.PostgresDSN, engine, opts...))
	case StorageBadger:
		return opened(badger.NewStore(badger.Config{Path: cfg.BadgerPath, SyncWrites: true, Logger: logger}, engine, opts...))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// opened keeps a failed constructor from yielding a non-nil interface.
func opened(store PersistentStore, err error) (PersistentStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}

// CloseStore releases resources held by durable stores.
func CloseStore(store PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
