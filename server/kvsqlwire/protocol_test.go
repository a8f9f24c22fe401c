package kvsqlwire

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/executor"
)

func TestResultPayload(t *testing.T) {
	tests := []executor.ResultSet{
		executor.CreateTableResult{TableName: "t"},
		executor.InsertResult{Count: 3},
		executor.ScanResult{
			Columns: []string{"a", "b", "c", "d"},
			Rows: []record.Row{
				{record.Int(1), record.String("x"), record.Float(0.5), record.Bool(true)},
				{record.Int(-2), record.Null(), record.Float(2), record.Bool(false)},
			},
		},
		executor.ScanResult{Columns: []string{"a"}, Rows: []record.Row{}},
	}
	for _, rs := range tests {
		payload, err := NewResultPayload(rs)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, ExecuteResponse{ID: 1, Result: payload}))
		var resp ExecuteResponse
		require.NoError(t, ReadFrame(&buf, &resp))
		require.NoError(t, resp.Err())

		got, err := resp.Result.ResultSet()
		require.NoError(t, err)
		assert.Equal(t, rs, got)
	}
}

func TestResultPayload_UnknownType(t *testing.T) {
	_, err := (&ResultPayload{Type: "drop"}).ResultSet()
	assert.ErrorContains(t, err, `unknown result type "drop"`)
}

func TestExecuteResponse_Err(t *testing.T) {
	assert.NoError(t, (&ExecuteResponse{ID: 1}).Err())

	err := (&ExecuteResponse{ID: 1, Error: "serialization failure", Kind: "conflict"}).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConflict))
	assert.Equal(t, "serialization failure", err.Error())

	err = (&ExecuteResponse{Error: "boom", Kind: "weird"}).Err()
	assert.Nil(t, errs.Kind(err))
}
