package record

import (
	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/errs"
)

// Column describes one table column. Default is nil when the column has no
// default value.
type Column struct {
	Name     string   `json:"name"`
	Type     DataType `json:"type"`
	Nullable bool     `json:"nullable"`
	Default  *Value   `json:"default,omitempty"`
}

// Table is a table schema: a name and its columns in declared order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks the schema itself: a name, at least one column, unique
// column names, and defaults that fit their columns.
func (t *Table) Validate() error {
	if t.Name == "" {
		return errs.Internalf("table has no name")
	}
	if len(t.Columns) == 0 {
		return errs.Internalf("table %s has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return errs.Internalf("table %s has a column with no name", t.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return errs.Internalf("duplicate column %s in table %s", c.Name, t.Name)
		}
		seen[c.Name] = struct{}{}

		switch c.Type {
		case TypeBoolean, TypeInteger, TypeFloat, TypeString:
		default:
			return errs.Internalf("column %s has unknown type %s", c.Name, c.Type)
		}
		if c.Default != nil {
			if err := c.check(*c.Default); err != nil {
				return errs.Internalf("invalid default for column %s: %v", c.Name, err)
			}
		}
	}
	return nil
}

// ValidateRow checks that row has one value per column, of the column's type,
// and no NULL in a non-nullable column.
func (t *Table) ValidateRow(row Row) error {
	if len(row) != len(t.Columns) {
		return errs.Internalf("row has %d values, table %s has %d columns", len(row), t.Name, len(t.Columns))
	}
	for i, c := range t.Columns {
		if err := c.check(row[i]); err != nil {
			return errs.Internalf("table %s: %v", t.Name, err)
		}
	}
	return nil
}

func (c *Column) check(v Value) error {
	if v.Null {
		if !c.Nullable {
			return errors.Errorf("NULL value not allowed for column %s", c.Name)
		}
		return nil
	}
	if v.Type != c.Type {
		return errors.Errorf("invalid %s value %s for %s column %s", v.Type, v, c.Type, c.Name)
	}
	return nil
}
