// Package memory is an in-memory ordered byte store, mostly used for tests
// and ephemeral databases.
package memory

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/tuannm99/kvsql/internal/storage"
)

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// Memory keeps all pairs in a B-tree guarded by a RWMutex.
type Memory struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[item]
	size int64
}

var _ storage.Engine = (*Memory)(nil)

func New() *Memory {
	return &Memory{tree: btree.NewG(degree, less)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.tree.Get(item{key: key})
	if !ok {
		return nil, nil
	}
	return bytes.Clone(it.value), nil
}

func (m *Memory) Set(key, value []byte) error {
	it := item{key: bytes.Clone(key), value: append([]byte{}, value...)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.tree.ReplaceOrInsert(it); ok {
		m.size -= int64(len(old.key) + len(old.value))
	}
	m.size += int64(len(it.key) + len(it.value))
	return nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.tree.Delete(item{key: key}); ok {
		m.size -= int64(len(old.key) + len(old.value))
	}
	return nil
}

// ScanPrefix snapshots the matching range, so writers are never blocked by
// a slow reader.
func (m *Memory) ScanPrefix(prefix []byte) storage.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pairs []storage.KV
	m.tree.AscendGreaterOrEqual(item{key: prefix}, func(it item) bool {
		if !bytes.HasPrefix(it.key, prefix) {
			return false
		}
		pairs = append(pairs, storage.KV{Key: it.key, Value: it.value})
		return true
	})
	return storage.NewSliceIterator(pairs)
}

func (m *Memory) Status() (storage.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return storage.Status{
		Name: "memory",
		Keys: int64(m.tree.Len()),
		Size: m.size,
	}, nil
}

func (m *Memory) Close() error { return nil }
