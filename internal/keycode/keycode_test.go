package keycode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendBytes(t *testing.T) {
	assert.Equal(t, []byte{0, 0}, AppendBytes(nil, []byte{}))
	assert.Equal(t, []byte{'a', 'b', 0, 0}, AppendString(nil, "ab"))
	assert.Equal(t, []byte{'a', 0, 0xff, 'b', 0, 0}, AppendBytes(nil, []byte{'a', 0, 'b'}))
	assert.Equal(t, []byte{7, 'x', 0, 0}, AppendString([]byte{7}, "x"))
}

func TestDecodeBytes(t *testing.T) {
	for _, in := range [][]byte{{}, {0}, {0, 0}, {'a', 0, 'b'}, []byte("table"), {0xff, 0}} {
		enc := AppendUint64(AppendBytes(nil, in), 42)
		rest, out, err := DecodeBytes(enc)
		require.NoError(t, err)
		require.Equal(t, in, out)

		rest, v, err := DecodeUint64(rest)
		require.NoError(t, err)
		require.Equal(t, uint64(42), v)
		require.Empty(t, rest)
	}

	_, _, err := DecodeBytes([]byte{'a', 'b'})
	require.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeBytes([]byte{'a', 0, 7})
	require.ErrorIs(t, err, ErrEscape)

	_, _, err = DecodeUint64([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestOrderPreserved(t *testing.T) {
	keys := [][]byte{{}, {0}, {0, 0}, {0, 1}, {1}, []byte("a"), []byte("a\x00"), []byte("ab"), []byte("b")}
	for i := 1; i < len(keys); i++ {
		a := AppendUint64(AppendBytes(nil, keys[i-1]), 99)
		b := AppendUint64(AppendBytes(nil, keys[i]), 1)
		assert.True(t, bytes.Compare(a, b) < 0, "%q should sort before %q", keys[i-1], keys[i])
	}

	// same string, ascending integer suffix
	assert.True(t, bytes.Compare(AppendUint64(AppendString(nil, "k"), 1), AppendUint64(AppendString(nil, "k"), 2)) < 0)
}

func TestPrefix(t *testing.T) {
	prefix := AppendBytesPrefix(nil, []byte("ta"))
	assert.True(t, bytes.HasPrefix(AppendString(nil, "table"), prefix))
	assert.True(t, bytes.HasPrefix(AppendString(nil, "ta"), prefix))
	assert.False(t, bytes.HasPrefix(AppendString(nil, "t"), prefix))

	// a prefix ending in NUL must not match a shorter key
	nul := AppendBytesPrefix(nil, []byte{'a', 0})
	assert.False(t, bytes.HasPrefix(AppendBytes(nil, []byte{'a'}), nul))
	assert.True(t, bytes.HasPrefix(AppendBytes(nil, []byte{'a', 0, 'z'}), nul))
}
