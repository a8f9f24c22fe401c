// Package catalog encodes table schemas for storage under their catalog keys.
package catalog

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/record"
)

// formatVersion is bumped when TableMeta changes incompatibly.
const formatVersion = 1

type TableMeta struct {
	Format     int             `json:"format"`
	Name       string          `json:"name"`
	Columns    []record.Column `json:"columns"`
	CreatedTxn uint64          `json:"created_txn"`
}

func (m *TableMeta) Table() *record.Table {
	return &record.Table{Name: m.Name, Columns: m.Columns}
}

// Encode serialises t as created by transaction txn.
func Encode(t *record.Table, txn uint64) ([]byte, error) {
	b, err := json.Marshal(TableMeta{
		Format:     formatVersion,
		Name:       t.Name,
		Columns:    t.Columns,
		CreatedTxn: txn,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: encode table %s", t.Name)
	}
	return b, nil
}

func Decode(b []byte) (*TableMeta, error) {
	var m TableMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "catalog: decode table")
	}
	if m.Format != formatVersion {
		return nil, errors.Errorf("catalog: table %s has unsupported format %d", m.Name, m.Format)
	}
	return &m, nil
}
