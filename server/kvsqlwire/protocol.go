package kvsqlwire

import (
	"github.com/pkg/errors"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/executor"
)

// ExecuteRequest is a single SQL command request.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse is the response for a request ID. Exactly one of Result
// and Error is set; Kind classifies the error.
type ExecuteResponse struct {
	ID     uint64         `json:"id"`
	Result *ResultPayload `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

// Result types.
const (
	ResultCreateTable = "create_table"
	ResultInsert      = "insert"
	ResultScan        = "scan"
)

// ResultPayload is an executor.ResultSet on the wire.
type ResultPayload struct {
	Type      string       `json:"type"`
	TableName string       `json:"table_name,omitempty"`
	Count     int          `json:"count,omitempty"`
	Columns   []string     `json:"columns,omitempty"`
	Rows      []record.Row `json:"rows,omitempty"`
}

func NewResultPayload(rs executor.ResultSet) (*ResultPayload, error) {
	switch r := rs.(type) {
	case executor.CreateTableResult:
		return &ResultPayload{Type: ResultCreateTable, TableName: r.TableName}, nil
	case executor.InsertResult:
		return &ResultPayload{Type: ResultInsert, Count: r.Count}, nil
	case executor.ScanResult:
		return &ResultPayload{Type: ResultScan, Columns: r.Columns, Rows: r.Rows}, nil
	default:
		return nil, errs.Internalf("unsupported result set %T", rs)
	}
}

// ResultSet converts the payload back to the executor's result.
func (p *ResultPayload) ResultSet() (executor.ResultSet, error) {
	switch p.Type {
	case ResultCreateTable:
		return executor.CreateTableResult{TableName: p.TableName}, nil
	case ResultInsert:
		return executor.InsertResult{Count: p.Count}, nil
	case ResultScan:
		rows := p.Rows
		if rows == nil {
			rows = []record.Row{}
		}
		return executor.ScanResult{Columns: p.Columns, Rows: rows}, nil
	default:
		return nil, errors.Errorf("kvsqlwire: unknown result type %q", p.Type)
	}
}

// RemoteError is an error reported by the server. It unwraps to the errs
// kind named in the response, so errors.Is works across the wire.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case "parse":
		return errs.ErrParse
	case "conflict":
		return errs.ErrConflict
	case "not_found":
		return errs.ErrNotFound
	case "internal":
		return errs.ErrInternal
	default:
		return nil
	}
}

// Err returns the response error, or nil on success.
func (r *ExecuteResponse) Err() error {
	if r.Error == "" && r.Kind == "" {
		return nil
	}
	return &RemoteError{Kind: r.Kind, Message: r.Error}
}
