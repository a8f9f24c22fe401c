package planner

import (
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/parser"
)

// Build translates a statement into a plan node by node. Schemas are not
// consulted here; the executor validates against the live transaction.
func Build(stmt parser.Statement) (*Plan, error) {
	var (
		root Node
		err  error
	)
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		root, err = buildCreateTable(s)
	case *parser.InsertStmt:
		root = &InsertNode{
			TableName: s.TableName,
			Columns:   s.Columns,
			Values:    s.Values,
		}
	case *parser.SelectStmt:
		root = &ScanNode{TableName: s.TableName}
	default:
		return nil, errs.Internalf("planner: unsupported statement type %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	return &Plan{Root: root}, nil
}

// buildCreateTable fixes each column's nullability (NOT NULL unless NULL was
// given) and evaluates defaults. A nullable column without DEFAULT defaults
// to NULL.
func buildCreateTable(s *parser.CreateTableStmt) (Node, error) {
	cols := make([]record.Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		col := record.Column{
			Name: c.Name,
			Type: c.Type,
		}
		if c.Nullable != nil {
			col.Nullable = *c.Nullable
		}

		switch {
		case c.Default != nil:
			v, err := parser.Evaluate(c.Default)
			if err != nil {
				return nil, err
			}
			col.Default = &v
		case col.Nullable:
			v := record.Null()
			col.Default = &v
		}
		cols = append(cols, col)
	}
	return &CreateTableNode{
		Schema: record.Table{Name: s.TableName, Columns: cols},
	}, nil
}
