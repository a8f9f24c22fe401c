package mvcc

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/storage"
)

// ErrTxnDone is returned by operations on a committed or rolled back
// transaction.
var ErrTxnDone = errs.Internalf("transaction already finished")

// TransactionState is what a transaction needs to decide visibility: its own
// id and the ids that were active when it began.
type TransactionState struct {
	Version uint64
	Active  map[uint64]struct{}
}

// IsVisible reports whether a version written by transaction v is visible.
// Versions of transactions that rolled back are physically removed, so they
// never reach this check.
func (s TransactionState) IsVisible(v uint64) bool {
	if v > s.Version {
		return false
	}
	_, active := s.Active[v]
	return !active
}

type txnStatus uint8

const (
	statusActive txnStatus = iota
	statusCommitted
	statusRolledBack
)

func (s txnStatus) String() string {
	switch s {
	case statusActive:
		return "active"
	case statusCommitted:
		return "committed"
	case statusRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Transaction is a snapshot-isolated transaction. A handle is owned by one
// goroutine for its whole lifetime.
type Transaction struct {
	m       *MVCC
	st      TransactionState
	status  txnStatus
	started time.Time
}

func newTransaction(m *MVCC, st TransactionState) *Transaction {
	return &Transaction{m: m, st: st, started: time.Now()}
}

// Version returns the transaction id.
func (t *Transaction) Version() uint64 { return t.st.Version }

// State returns the visibility state captured at begin.
func (t *Transaction) State() TransactionState { return t.st }

func (t *Transaction) Set(key, value []byte) error {
	return t.write(key, value, false)
}

// Delete writes a tombstone for key.
func (t *Transaction) Delete(key []byte) error {
	return t.write(key, nil, true)
}

func (t *Transaction) write(key, value []byte, tombstone bool) error {
	if t.status != statusActive {
		return errors.WithStack(ErrTxnDone)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	versions, err := storage.Collect(t.m.store.ScanPrefix(versionKeyPrefix(key)))
	if err != nil {
		return errors.Wrap(err, "mvcc: scan versions for conflict check")
	}
	for _, kv := range versions {
		_, v, err := decodeVersionKey(kv.Key)
		if err != nil {
			return err
		}
		if !t.st.IsVisible(v) {
			conflictCounter.Inc()
			slog.Debug("mvcc: write conflict", "txn", t.st.Version, "other", v, "key", key)
			return errs.Conflictf("key %x was written by transaction %d", key, v)
		}
	}

	if err := t.m.store.Set(txnWriteKey(t.st.Version, key), []byte{}); err != nil {
		return errors.Wrap(err, "mvcc: record write")
	}
	if err := t.m.store.Set(versionKey(key, t.st.Version), encodeVersionValue(value, tombstone)); err != nil {
		return errors.Wrap(err, "mvcc: write version")
	}
	return nil
}

// Get returns the visible value of key, or nil when there is none.
func (t *Transaction) Get(key []byte) ([]byte, error) {
	if t.status != statusActive {
		return nil, errors.WithStack(ErrTxnDone)
	}

	it := t.m.store.ScanPrefix(versionKeyPrefix(key))
	defer func() { _ = it.Close() }()

	var (
		found []byte
		ok    bool
	)
	for it.Next() {
		_, v, err := decodeVersionKey(it.Key())
		if err != nil {
			return nil, err
		}
		if !t.st.IsVisible(v) {
			continue
		}
		val, present, err := decodeVersionValue(it.Value())
		if err != nil {
			return nil, err
		}
		found, ok = val, present
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrap(err, "mvcc: scan versions")
	}
	if !ok {
		return nil, nil
	}
	return bytes.Clone(found), nil
}

// Scan returns every visible key starting with prefix, with its value, in
// ascending key order.
func (t *Transaction) Scan(prefix []byte) ([]storage.KV, error) {
	if t.status != statusActive {
		return nil, errors.WithStack(ErrTxnDone)
	}

	it := t.m.store.ScanPrefix(versionScanPrefix(prefix))
	defer func() { _ = it.Close() }()

	var (
		out     []storage.KV
		cur     []byte
		seen    bool
		val     []byte
		present bool
	)
	flush := func() {
		if seen && present {
			out = append(out, storage.KV{Key: cur, Value: bytes.Clone(val)})
		}
	}

	// Versions of one key are adjacent and ordered by ascending id, so the
	// last visible one seen for a key is its newest.
	for it.Next() {
		key, v, err := decodeVersionKey(it.Key())
		if err != nil {
			return nil, err
		}
		if !seen || !bytes.Equal(key, cur) {
			flush()
			cur, seen, val, present = key, true, nil, false
		}
		if !t.st.IsVisible(v) {
			continue
		}
		val, present, err = decodeVersionValue(it.Value())
		if err != nil {
			return nil, err
		}
		val = bytes.Clone(val)
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrap(err, "mvcc: scan versions")
	}
	flush()
	return out, nil
}

// Commit makes the transaction's writes visible to transactions that begin
// afterwards.
func (t *Transaction) Commit() error {
	if t.status != statusActive {
		return errors.WithStack(ErrTxnDone)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	v := t.st.Version
	if err := t.m.store.Delete(txnActiveKey(v)); err != nil {
		return errors.Wrapf(err, "mvcc: commit txn %d", v)
	}
	t.status = statusCommitted

	writes, err := storage.Collect(t.m.store.ScanPrefix(txnWritePrefix(v)))
	if err != nil {
		slog.Warn("mvcc: leaving write records of committed txn", "txn", v, "err", err)
	} else {
		for _, kv := range writes {
			if err := t.m.store.Delete(kv.Key); err != nil {
				slog.Warn("mvcc: leaving write records of committed txn", "txn", v, "err", err)
				break
			}
		}
	}

	t.finish()
	return nil
}

// Rollback discards every write of the transaction. Rolling back twice is a
// no-op; rolling back a committed transaction returns ErrTxnDone.
func (t *Transaction) Rollback() error {
	switch t.status {
	case statusRolledBack:
		return nil
	case statusCommitted:
		return errors.WithStack(ErrTxnDone)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if err := t.m.rollbackLocked(t.st.Version); err != nil {
		return err
	}
	t.status = statusRolledBack
	t.finish()
	return nil
}

func (t *Transaction) finish() {
	result := t.status.String()
	txnCounter.WithLabelValues(result).Inc()
	txnDuration.WithLabelValues(result).Observe(time.Since(t.started).Seconds())
	slog.Debug("mvcc: finish", "txn", t.st.Version, "result", result)
}
