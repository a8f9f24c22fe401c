// Package mvcc implements snapshot-isolated transactions over an ordered
// byte store.
//
// Every logical key is stored as a set of versions, one per writing
// transaction, keyed by (key, transaction id). A transaction sees, for each
// key, the newest version written by itself or by a transaction that had
// committed before it began. Writing a key that has a version the writer
// cannot see fails immediately with errs.ErrConflict.
//
// Raw key layout (tag byte, then keycode components):
//
//	0x01                      NextVersion -> u64 next transaction id
//	0x02 u64(v)               TxnActive   -> transaction v has begun, not finished
//	0x03 u64(v) bytes(key)    TxnWrite    -> v wrote key (undo log)
//	0x04 bytes(key) u64(v)    Version     -> kind byte | value
//
// Deleting TxnActive(v) is the commit point. A crash before it leaves v
// active, and Recover rolls it back on the next open.
package mvcc

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/storage"
)

// MVCC owns the transaction id counter and the active set. One instance per
// store; all begin, write and finish transitions run under its mutex.
type MVCC struct {
	mu    sync.Mutex
	store storage.Engine
}

// Status summarises the transaction state of a store.
type Status struct {
	// Versions is the number of transaction ids handed out so far.
	Versions   uint64         `json:"versions"`
	ActiveTxns uint64         `json:"active_txns"`
	Store      storage.Status `json:"store"`
}

func New(store storage.Engine) *MVCC {
	return &MVCC{store: store}
}

// Store returns the underlying byte store.
func (m *MVCC) Store() storage.Engine { return m.store }

// Begin starts a new transaction.
func (m *MVCC) Begin() (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.nextVersion()
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(nextVersionKey(), encodeU64(v+1)); err != nil {
		return nil, errors.Wrap(err, "mvcc: bump next version")
	}

	active, err := m.activeSet()
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(txnActiveKey(v), []byte{}); err != nil {
		return nil, errors.Wrapf(err, "mvcc: mark txn %d active", v)
	}

	txnCounter.WithLabelValues("begin").Inc()
	slog.Debug("mvcc: begin", "txn", v, "active", len(active))
	return newTransaction(m, TransactionState{Version: v, Active: active}), nil
}

// Recover rolls back every transaction left active by a previous process and
// drops the undo records of transactions that committed but crashed before
// cleaning them up. It must run before any transaction begins.
func (m *MVCC) Recover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.activeSet()
	if err != nil {
		return err
	}
	for v := range active {
		slog.Warn("mvcc: rolling back abandoned transaction", "txn", v)
		if err := m.rollbackLocked(v); err != nil {
			return err
		}
	}

	writes, err := storage.Collect(m.store.ScanPrefix(txnWriteAllPrefix()))
	if err != nil {
		return errors.Wrap(err, "mvcc: scan write records")
	}
	for _, kv := range writes {
		if err := m.store.Delete(kv.Key); err != nil {
			return errors.Wrap(err, "mvcc: drop stale write record")
		}
	}
	if len(active) > 0 || len(writes) > 0 {
		slog.Info("mvcc: recovered", "rolled_back", len(active), "stale_write_records", len(writes))
	}
	return nil
}

func (m *MVCC) Status() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.nextVersion()
	if err != nil {
		return Status{}, err
	}
	active, err := m.activeSet()
	if err != nil {
		return Status{}, err
	}
	st, err := m.store.Status()
	if err != nil {
		return Status{}, errors.Wrap(err, "mvcc: store status")
	}
	return Status{
		Versions:   next - 1,
		ActiveTxns: uint64(len(active)),
		Store:      st,
	}, nil
}

func (m *MVCC) nextVersion() (uint64, error) {
	raw, err := m.store.Get(nextVersionKey())
	if err != nil {
		return 0, errors.Wrap(err, "mvcc: read next version")
	}
	if raw == nil {
		return 1, nil
	}
	if len(raw) != 8 {
		return 0, errors.Wrapf(errBadKey, "next version value has %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (m *MVCC) activeSet() (map[uint64]struct{}, error) {
	pairs, err := storage.Collect(m.store.ScanPrefix(txnActivePrefix()))
	if err != nil {
		return nil, errors.Wrap(err, "mvcc: scan active set")
	}
	active := make(map[uint64]struct{}, len(pairs))
	for _, kv := range pairs {
		v, err := decodeTxnActiveKey(kv.Key)
		if err != nil {
			return nil, err
		}
		active[v] = struct{}{}
	}
	return active, nil
}

// rollbackLocked undoes every write of v, then removes it from the active
// set. Each step is idempotent, so an interrupted rollback can be rerun.
func (m *MVCC) rollbackLocked(v uint64) error {
	writes, err := storage.Collect(m.store.ScanPrefix(txnWritePrefix(v)))
	if err != nil {
		return errors.Wrapf(err, "mvcc: scan writes of txn %d", v)
	}
	for _, kv := range writes {
		_, key, err := decodeTxnWriteKey(kv.Key)
		if err != nil {
			return err
		}
		if err := m.store.Delete(versionKey(key, v)); err != nil {
			return errors.Wrapf(err, "mvcc: undo write of txn %d", v)
		}
	}
	for _, kv := range writes {
		if err := m.store.Delete(kv.Key); err != nil {
			return errors.Wrapf(err, "mvcc: drop write record of txn %d", v)
		}
	}
	if err := m.store.Delete(txnActiveKey(v)); err != nil {
		return errors.Wrapf(err, "mvcc: clear active txn %d", v)
	}
	return nil
}

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
