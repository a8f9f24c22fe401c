package executor

import "github.com/tuannm99/kvsql/internal/record"

// ResultSet is what a statement returns to the caller.
type ResultSet interface {
	resultSet()
}

type CreateTableResult struct {
	TableName string
}

type InsertResult struct {
	Count int
}

// ScanResult holds the table's column names in declared order and its rows.
type ScanResult struct {
	Columns []string
	Rows    []record.Row
}

func (CreateTableResult) resultSet() {}
func (InsertResult) resultSet()      {}
func (ScanResult) resultSet()        {}
