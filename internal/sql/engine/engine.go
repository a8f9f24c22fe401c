// Package engine connects the SQL executor to a transactional store and runs
// statements one auto-committed transaction at a time.
package engine

import "github.com/tuannm99/kvsql/internal/sql/executor"

// Engine starts transactions.
type Engine interface {
	Begin() (Transaction, error)
}

// Transaction is the executor's view of a transaction plus its completion.
// Rollback after Rollback is a no-op.
type Transaction interface {
	executor.Transaction
	Commit() error
	Rollback() error
}
