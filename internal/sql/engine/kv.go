package engine

import (
	"github.com/tuannm99/kvsql/internal/catalog"
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/keycode"
	"github.com/tuannm99/kvsql/internal/mvcc"
	"github.com/tuannm99/kvsql/internal/record"
)

// Logical key namespaces, below the MVCC versioning.
const (
	keyTable byte = 0x01 // 0x01 str(table)
	keyRow   byte = 0x02 // 0x02 str(table) u64(txn) u64(seq)
)

func tableKey(name string) []byte {
	return keycode.AppendString([]byte{keyTable}, name)
}

func tablePrefix() []byte { return []byte{keyTable} }

// rowPrefix covers every row of exactly the named table.
func rowPrefix(table string) []byte {
	return keycode.AppendString([]byte{keyRow}, table)
}

// rowKey identifies a row by the transaction that inserted it and its
// position within that transaction, so concurrent inserts never collide.
func rowKey(table string, txn, seq uint64) []byte {
	b := keycode.AppendUint64(rowPrefix(table), txn)
	return keycode.AppendUint64(b, seq)
}

// KV is an Engine over MVCC transactions.
type KV struct {
	mvcc *mvcc.MVCC
}

var _ Engine = (*KV)(nil)

func NewKV(m *mvcc.MVCC) *KV {
	return &KV{mvcc: m}
}

func (k *KV) Begin() (Transaction, error) {
	txn, err := k.mvcc.Begin()
	if err != nil {
		return nil, err
	}
	return &KVTransaction{txn: txn}, nil
}

// KVTransaction stores schemas as catalog documents and rows in the row
// codec, each under its logical key.
type KVTransaction struct {
	txn *mvcc.Transaction
	seq uint64
}

var _ Transaction = (*KVTransaction)(nil)

// Version returns the underlying MVCC transaction id.
func (t *KVTransaction) Version() uint64 { return t.txn.Version() }

func (t *KVTransaction) Commit() error   { return t.txn.Commit() }
func (t *KVTransaction) Rollback() error { return t.txn.Rollback() }

func (t *KVTransaction) CreateTable(table *record.Table) error {
	existing, err := t.GetTable(table.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return errs.Internalf("table %s already exists", table.Name)
	}
	if err := table.Validate(); err != nil {
		return err
	}

	b, err := catalog.Encode(table, t.txn.Version())
	if err != nil {
		return err
	}
	return t.txn.Set(tableKey(table.Name), b)
}

func (t *KVTransaction) GetTable(name string) (*record.Table, error) {
	b, err := t.txn.Get(tableKey(name))
	if err != nil || b == nil {
		return nil, err
	}
	meta, err := catalog.Decode(b)
	if err != nil {
		return nil, err
	}
	return meta.Table(), nil
}

func (t *KVTransaction) MustGetTable(name string) (*record.Table, error) {
	table, err := t.GetTable(name)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errs.NotFoundf("table %s does not exist", name)
	}
	return table, nil
}

// ListTables returns every visible schema ordered by name.
func (t *KVTransaction) ListTables() ([]*record.Table, error) {
	pairs, err := t.txn.Scan(tablePrefix())
	if err != nil {
		return nil, err
	}
	tables := make([]*record.Table, 0, len(pairs))
	for _, kv := range pairs {
		meta, err := catalog.Decode(kv.Value)
		if err != nil {
			return nil, err
		}
		tables = append(tables, meta.Table())
	}
	return tables, nil
}

func (t *KVTransaction) CreateRow(tableName string, row record.Row) error {
	table, err := t.MustGetTable(tableName)
	if err != nil {
		return err
	}
	if err := table.ValidateRow(row); err != nil {
		return err
	}
	b, err := record.EncodeRow(table, row)
	if err != nil {
		return errs.Internalf("encode row for table %s: %v", tableName, err)
	}

	t.seq++
	return t.txn.Set(rowKey(tableName, t.txn.Version(), t.seq), b)
}

// ScanTable returns the visible rows ordered by inserting transaction, then
// by insert order within it.
func (t *KVTransaction) ScanTable(tableName string) ([]record.Row, error) {
	table, err := t.MustGetTable(tableName)
	if err != nil {
		return nil, err
	}
	pairs, err := t.txn.Scan(rowPrefix(tableName))
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, 0, len(pairs))
	for _, kv := range pairs {
		row, err := record.DecodeRow(table, kv.Value)
		if err != nil {
			return nil, errs.Internalf("decode row of table %s: %v", tableName, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
