package record

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/errs"
)

func TestTable_Lookup(t *testing.T) {
	tbl := makeTestTable()
	assert.Equal(t, 2, tbl.ColumnIndex("score"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))
	assert.Equal(t, []string{"id", "active", "score", "name", "note"}, tbl.ColumnNames())
}

func TestTable_Validate(t *testing.T) {
	require.NoError(t, makeTestTable().Validate())

	bad := func(def Value, nullable bool) *Table {
		return &Table{Name: "t", Columns: []Column{{Name: "c", Type: TypeInteger, Nullable: nullable, Default: &def}}}
	}

	tests := []struct {
		name string
		tbl  *Table
	}{
		{"no name", &Table{Columns: []Column{{Name: "c", Type: TypeInteger}}}},
		{"no columns", &Table{Name: "t"}},
		{"duplicate column", &Table{Name: "t", Columns: []Column{{Name: "c", Type: TypeInteger}, {Name: "c", Type: TypeString}}}},
		{"unknown type", &Table{Name: "t", Columns: []Column{{Name: "c"}}}},
		{"default of wrong type", bad(String("x"), false)},
		{"NULL default on non-nullable", bad(Null(), false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tbl.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInternal))
		})
	}

	require.NoError(t, bad(Null(), true).Validate())
}

func TestTable_ValidateRow(t *testing.T) {
	tbl := makeTestTable()

	require.NoError(t, tbl.ValidateRow(Row{Int(1), Bool(true), Float(1), Null(), String("n")}))

	err := tbl.ValidateRow(Row{Int(1)})
	assert.True(t, errors.Is(err, errs.ErrInternal))
	assert.Contains(t, err.Error(), "row has 1 values")

	err = tbl.ValidateRow(Row{Null(), Bool(true), Float(1), Null(), Null()})
	assert.Contains(t, err.Error(), "NULL value not allowed for column id")

	err = tbl.ValidateRow(Row{Int(1), Int(1), Float(1), Null(), Null()})
	assert.Contains(t, err.Error(), "invalid INTEGER value 1 for BOOLEAN column active")
}
