package parser

import "github.com/tuannm99/kvsql/internal/record"

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----

// ColumnDef is a column as written. Nullable is nil when neither NULL nor
// NOT NULL was given; Default is nil without a DEFAULT clause.
type ColumnDef struct {
	Name     string
	Type     record.DataType
	Nullable *bool
	Default  Expression
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- INSERT -----

// InsertStmt is INSERT INTO t [(cols)] VALUES (...), (...). Columns is nil
// when no column list was given.
type InsertStmt struct {
	TableName string
	Columns   []string
	Values    [][]Expression
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	TableName string
}

func (*SelectStmt) stmtNode() {}

// ----- Expressions -----
type Expression interface {
	exprNode()
}

// LiteralExpr is a constant.
type LiteralExpr struct {
	Value record.Value
}

func (*LiteralExpr) exprNode() {}

// Evaluate reduces an expression to a value. Only constants exist so far.
func Evaluate(e Expression) (record.Value, error) {
	switch x := e.(type) {
	case *LiteralExpr:
		return x.Value, nil
	default:
		return record.Value{}, unsupportedExpr(e)
	}
}
