package executor

import "github.com/tuannm99/kvsql/internal/record"

type CreateTable struct {
	schema record.Table
}

func (c CreateTable) Execute(txn Transaction) (ResultSet, error) {
	schema := c.schema
	if err := txn.CreateTable(&schema); err != nil {
		return nil, err
	}
	return CreateTableResult{TableName: schema.Name}, nil
}
