// Package storagetest holds the behaviour every storage.Engine must share.
package storagetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/storage"
)

// Run exercises an engine created by newEngine. Each sub-test gets a fresh engine.
func Run(t *testing.T, newEngine func(t *testing.T) storage.Engine) {
	t.Run("get_set_delete", func(t *testing.T) {
		e := newEngine(t)

		v, err := e.Get([]byte("a"))
		require.NoError(t, err)
		require.Nil(t, v)

		require.NoError(t, e.Set([]byte("a"), []byte{1}))
		v, err = e.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, v)

		require.NoError(t, e.Set([]byte("a"), []byte{2}))
		v, err = e.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte{2}, v)

		require.NoError(t, e.Delete([]byte("a")))
		v, err = e.Get([]byte("a"))
		require.NoError(t, err)
		require.Nil(t, v)

		// deleting a missing key is fine
		require.NoError(t, e.Delete([]byte("missing")))
	})

	t.Run("empty_value", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Set([]byte("k"), []byte{}))

		v, err := e.Get([]byte("k"))
		require.NoError(t, err)
		require.NotNil(t, v)
		require.Empty(t, v)
	})

	t.Run("caller_buffers_not_retained", func(t *testing.T) {
		e := newEngine(t)
		key, value := []byte("k"), []byte("v")
		require.NoError(t, e.Set(key, value))
		key[0], value[0] = 'x', 'x'

		v, err := e.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)
	})

	t.Run("scan_prefix", func(t *testing.T) {
		e := newEngine(t)
		for _, k := range []string{"b", "a", "ab", "abc", "ac", "b\x00", "\x00"} {
			require.NoError(t, e.Set([]byte(k), []byte("v"+k)))
		}

		pairs, err := storage.Collect(e.ScanPrefix([]byte("a")))
		require.NoError(t, err)
		require.Equal(t, []string{"a", "ab", "abc", "ac"}, keys(pairs))
		assert.Equal(t, []byte("vab"), pairs[1].Value)

		pairs, err = storage.Collect(e.ScanPrefix(nil))
		require.NoError(t, err)
		require.Equal(t, []string{"\x00", "a", "ab", "abc", "ac", "b", "b\x00"}, keys(pairs))

		pairs, err = storage.Collect(e.ScanPrefix([]byte("z")))
		require.NoError(t, err)
		require.Empty(t, pairs)

		// restarting yields the same sequence
		again, err := storage.Collect(e.ScanPrefix([]byte("a")))
		require.NoError(t, err)
		require.Equal(t, []string{"a", "ab", "abc", "ac"}, keys(again))
	})

	t.Run("scan_after_delete", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Set([]byte("p1"), []byte("1")))
		require.NoError(t, e.Set([]byte("p2"), []byte("2")))
		require.NoError(t, e.Delete([]byte("p1")))

		pairs, err := storage.Collect(e.ScanPrefix([]byte("p")))
		require.NoError(t, err)
		require.Equal(t, []string{"p2"}, keys(pairs))
	})

	t.Run("status", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Set([]byte("a"), []byte("1")))
		require.NoError(t, e.Set([]byte("b"), []byte("2")))

		st, err := e.Status()
		require.NoError(t, err)
		require.NotEmpty(t, st.Name)
		require.Equal(t, int64(2), st.Keys)
	})

	t.Run("concurrent_writers", func(t *testing.T) {
		e := newEngine(t)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					assert.NoError(t, e.Set([]byte(fmt.Sprintf("w%d/%03d", w, i)), []byte{byte(i)}))
				}
			}(w)
		}
		wg.Wait()

		pairs, err := storage.Collect(e.ScanPrefix([]byte("w")))
		require.NoError(t, err)
		require.Len(t, pairs, 200)
	})
}

func keys(pairs []storage.KV) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, string(p.Key))
	}
	return out
}
