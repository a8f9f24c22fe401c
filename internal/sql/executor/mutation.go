package executor

import (
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/parser"
)

// Insert writes one row per value tuple. A nil column list means the tuples
// follow the table's column order.
type Insert struct {
	table   string
	columns []string
	values  [][]parser.Expression
}

func (in Insert) Execute(txn Transaction) (ResultSet, error) {
	table, err := txn.MustGetTable(in.table)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, exprs := range in.values {
		values := make([]record.Value, len(exprs))
		for i, e := range exprs {
			if values[i], err = parser.Evaluate(e); err != nil {
				return nil, err
			}
		}

		var row record.Row
		if in.columns == nil {
			row, err = padRow(table, values)
		} else {
			row, err = makeRow(table, in.columns, values)
		}
		if err != nil {
			return nil, err
		}

		if err := txn.CreateRow(table.Name, row); err != nil {
			return nil, err
		}
		count++
	}
	return InsertResult{Count: count}, nil
}

// padRow treats values as a prefix of the table's columns and fills the rest
// from column defaults.
func padRow(table *record.Table, values []record.Value) (record.Row, error) {
	if len(values) > len(table.Columns) {
		return nil, errs.Internalf("table %s has %d columns but %d values were given",
			table.Name, len(table.Columns), len(values))
	}
	row := make(record.Row, 0, len(table.Columns))
	row = append(row, values...)
	for _, col := range table.Columns[len(values):] {
		if col.Default == nil {
			return nil, errs.Internalf("no default value for column %s", col.Name)
		}
		row = append(row, *col.Default)
	}
	return row, nil
}

// makeRow places values by column name and returns them in table column
// order, filling unnamed columns from their defaults.
func makeRow(table *record.Table, columns []string, values []record.Value) (record.Row, error) {
	if len(columns) != len(values) {
		return nil, errs.Internalf("%d columns but %d values given", len(columns), len(values))
	}

	byName := make(map[string]record.Value, len(columns))
	for i, name := range columns {
		if table.ColumnIndex(name) < 0 {
			return nil, errs.Internalf("unknown column %s in table %s", name, table.Name)
		}
		if _, dup := byName[name]; dup {
			return nil, errs.Internalf("column %s given more than once", name)
		}
		byName[name] = values[i]
	}

	row := make(record.Row, 0, len(table.Columns))
	for _, col := range table.Columns {
		if v, ok := byName[col.Name]; ok {
			row = append(row, v)
			continue
		}
		if col.Default == nil {
			return nil, errs.Internalf("no value given for column %s", col.Name)
		}
		row = append(row, *col.Default)
	}
	return row, nil
}
