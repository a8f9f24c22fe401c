// Package executor turns plan nodes into operators that run against a
// transaction.
package executor

import (
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/planner"
)

// Transaction is the table and row access an operator needs. Implementations
// own versioning and isolation; the operators only see the current snapshot.
type Transaction interface {
	// CreateTable stores a new schema. It fails if the table already exists.
	CreateTable(table *record.Table) error
	// GetTable returns the schema, or nil when there is no such table.
	GetTable(name string) (*record.Table, error)
	// MustGetTable is GetTable that fails with errs.ErrNotFound on a miss.
	MustGetTable(name string) (*record.Table, error)
	// CreateRow validates row against the table's schema and stores it.
	CreateRow(table string, row record.Row) error
	// ScanTable returns every visible row of the table.
	ScanTable(name string) ([]record.Row, error)
}

// Executor runs once against a transaction.
type Executor interface {
	Execute(txn Transaction) (ResultSet, error)
}

// Build selects the operator for a plan node.
func Build(node planner.Node) (Executor, error) {
	switch n := node.(type) {
	case *planner.CreateTableNode:
		return CreateTable{schema: n.Schema}, nil
	case *planner.InsertNode:
		return Insert{table: n.TableName, columns: n.Columns, values: n.Values}, nil
	case *planner.ScanNode:
		return Scan{table: n.TableName}, nil
	default:
		return nil, errs.Internalf("executor: unsupported plan node %T", node)
	}
}

// Run builds the plan's root operator and executes it.
func Run(p *planner.Plan, txn Transaction) (ResultSet, error) {
	ex, err := Build(p.Root)
	if err != nil {
		return nil, err
	}
	return ex.Execute(txn)
}
