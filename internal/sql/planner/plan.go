package planner

import (
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/parser"
)

// Plan is a tree of nodes rooted at Root.
type Plan struct {
	Root Node
}

// Node is one plan node. The set of nodes is closed.
type Node interface {
	planNode()
}

// ----- Plan nodes -----

type CreateTableNode struct {
	Schema record.Table
}

func (*CreateTableNode) planNode() {}

// InsertNode carries the statement's expressions unevaluated. Columns is nil
// when the statement had no column list.
type InsertNode struct {
	TableName string
	Columns   []string
	Values    [][]parser.Expression
}

func (*InsertNode) planNode() {}

type ScanNode struct {
	TableName string
}

func (*ScanNode) planNode() {}
