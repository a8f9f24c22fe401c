package kvsqlwire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, ExecuteRequest{ID: 7, SQL: "SELECT * FROM t;"}))
	require.NoError(t, WriteFrame(&buf, ExecuteRequest{ID: 8, SQL: "x"}))

	var req ExecuteRequest
	require.NoError(t, ReadFrame(&buf, &req))
	assert.Equal(t, ExecuteRequest{ID: 7, SQL: "SELECT * FROM t;"}, req)
	require.NoError(t, ReadFrame(&buf, &req))
	assert.Equal(t, uint64(8), req.ID)

	assert.ErrorIs(t, ReadFrame(&buf, &req), io.EOF)
}

func TestReadFrame_Errors(t *testing.T) {
	header := func(n uint32) []byte {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], n)
		return b[:]
	}

	t.Run("empty", func(t *testing.T) {
		var req ExecuteRequest
		err := ReadFrame(bytes.NewReader(header(0)), &req)
		assert.ErrorIs(t, err, ErrEmptyFrame)
	})

	t.Run("too large", func(t *testing.T) {
		var req ExecuteRequest
		err := ReadFrame(bytes.NewReader(header(MaxFrameSize+1)), &req)
		assert.True(t, errors.Is(err, ErrFrameTooLarge))
	})

	t.Run("short body", func(t *testing.T) {
		var req ExecuteRequest
		err := ReadFrame(bytes.NewReader(append(header(10), '{')), &req)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("bad json", func(t *testing.T) {
		var req ExecuteRequest
		err := ReadFrame(bytes.NewReader(append(header(3), "{x}"...)), &req)
		assert.ErrorContains(t, err, "bad json")
	})
}
