package engine

import (
	"log/slog"

	"go.uber.org/multierr"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/sql/executor"
	"github.com/tuannm99/kvsql/internal/sql/parser"
	"github.com/tuannm99/kvsql/internal/sql/planner"
)

// Session executes SQL statements, each in its own transaction.
type Session struct {
	engine Engine
}

func NewSession(e Engine) *Session {
	return &Session{engine: e}
}

// Execute parses, plans and runs one statement. On success the transaction
// commits. On failure it rolls back and the error is returned as is; if the
// rollback fails too, both errors are returned combined.
func (s *Session) Execute(sql string) (executor.ResultSet, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Build(stmt)
	if err != nil {
		return nil, err
	}

	txn, err := s.engine.Begin()
	if err != nil {
		return nil, err
	}

	rs, err := executor.Run(plan, txn)
	if err != nil {
		slog.Debug("session: statement failed, rolling back", "kind", errs.KindName(err), "err", err)
		if rbErr := txn.Rollback(); rbErr != nil {
			slog.Error("session: rollback failed", "err", rbErr, "cause", err)
			return nil, multierr.Append(err, rbErr)
		}
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return rs, nil
}
