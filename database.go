// Package kvsql is the top-level facade: it opens the configured byte store,
// layers MVCC transactions and the SQL engine on it, and runs statements.
package kvsql

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/tuannm99/kvsql/internal"
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/mvcc"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/engine"
	"github.com/tuannm99/kvsql/internal/sql/executor"
	"github.com/tuannm99/kvsql/internal/storage"
	"github.com/tuannm99/kvsql/internal/storage/leveldb"
	"github.com/tuannm99/kvsql/internal/storage/logstore"
	"github.com/tuannm99/kvsql/internal/storage/memory"
)

var ErrDatabaseClosed = errs.Internalf("database is closed")

// Status reports transaction and storage state.
type Status struct {
	mvcc.Status
	Tables []string `json:"tables"`
}

// DB is a database handle. It is an engine.Engine, so sessions can be opened
// on it directly; every session shares the same MVCC state.
type DB struct {
	mu     sync.RWMutex
	closed bool

	store storage.Engine
	mvcc  *mvcc.MVCC
	kv    *engine.KV

	session *engine.Session
}

var _ engine.Engine = (*DB)(nil)

func openStore(cfg *internal.StorageConfig) (storage.Engine, error) {
	switch cfg.Mode {
	case internal.StorageMemory:
		return memory.New(), nil
	case internal.StorageLog:
		return logstore.Open(afero.NewOsFs(), filepath.Join(cfg.Workdir, "kvsql.log"), logstore.Options{
			Sync:         cfg.Sync,
			CompactRatio: cfg.CompactRatio,
			CacheSize:    cfg.CacheEntries,
		})
	case internal.StorageLevelDB:
		return leveldb.Open(filepath.Join(cfg.Workdir, "leveldb"), cfg.Sync)
	default:
		return nil, errors.Errorf("unknown storage mode %q", cfg.Mode)
	}
}

// Open opens the store selected by cfg.Storage and recovers transactions
// left unfinished by a previous process.
func Open(cfg *internal.Config) (*DB, error) {
	store, err := openStore(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	db, err := OpenStore(store)
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}
	slog.Info("kvsql: opened", "app", cfg.AppName, "mode", cfg.Storage.Mode, "workdir", cfg.Storage.Workdir)
	return db, nil
}

// OpenStore builds a database over an already opened store. The DB takes
// ownership of the store.
func OpenStore(store storage.Engine) (*DB, error) {
	m := mvcc.New(store)
	if err := m.Recover(); err != nil {
		return nil, err
	}
	db := &DB{
		store: store,
		mvcc:  m,
		kv:    engine.NewKV(m),
	}
	db.session = engine.NewSession(db)
	return db, nil
}

func (db *DB) Begin() (engine.Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.kv.Begin()
}

// Session returns the shared session. Sessions hold no state between
// statements, so one is enough for any number of callers.
func (db *DB) Session() *engine.Session { return db.session }

// Execute runs one statement in its own transaction.
func (db *DB) Execute(sql string) (executor.ResultSet, error) {
	return db.session.Execute(sql)
}

// Tables returns the committed table schemas ordered by name.
func (db *DB) Tables() ([]*record.Table, error) {
	txn, err := db.Begin()
	if err != nil {
		return nil, err
	}
	tables, err := txn.(*engine.KVTransaction).ListTables()
	return tables, multierr.Append(err, txn.Rollback())
}

func (db *DB) Status() (Status, error) {
	db.mu.RLock()
	closed := db.closed
	db.mu.RUnlock()
	if closed {
		return Status{}, ErrDatabaseClosed
	}

	st, err := db.mvcc.Status()
	if err != nil {
		return Status{}, err
	}
	tables, err := db.Tables()
	if err != nil {
		return Status{}, err
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return Status{Status: st, Tables: names}, nil
}

// Close closes the store. Transactions still open fail on their next
// operation and are rolled back by Recover on the next Open.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.store.Close()
}
