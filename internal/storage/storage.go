package storage

import "bytes"

// Engine is an ordered byte store. Keys and values are opaque bytes; keys
// iterate in ascending lexicographic order. Every operation is atomic and is
// durable from the caller's point of view once it returns. Implementations
// serialise their own physical mutations and are safe for concurrent use.
type Engine interface {
	// Get returns the value for key, or nil when the key does not exist.
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error
	// ScanPrefix iterates over all keys with the given prefix in ascending
	// order. Each call starts a fresh, finite iteration.
	ScanPrefix(prefix []byte) Iterator
	Status() (Status, error)
	Close() error
}

// Iterator walks key/value pairs. Key and Value are only valid until the
// next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Status describes a store.
type Status struct {
	Name        string `json:"name"`
	Keys        int64  `json:"keys"`
	Size        int64  `json:"size"`
	DiskSize    int64  `json:"disk_size"`
	GarbageSize int64  `json:"garbage_size"`
}

// KV is a single key/value pair.
type KV struct {
	Key   []byte
	Value []byte
}

// SliceIterator iterates over pairs collected up front. Stores that cannot
// hold a read lock across an iteration snapshot the matching range into one.
type SliceIterator struct {
	pairs []KV
	pos   int
	err   error
}

func NewSliceIterator(pairs []KV) *SliceIterator {
	return &SliceIterator{pairs: pairs, pos: -1}
}

// NewErrIterator returns an iterator that yields nothing and reports err.
func NewErrIterator(err error) *SliceIterator {
	return &SliceIterator{pos: -1, err: err}
}

func (it *SliceIterator) Next() bool {
	if it.err != nil || it.pos+1 >= len(it.pairs) {
		it.pos = len(it.pairs)
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Key() []byte   { return it.pairs[it.pos].Key }
func (it *SliceIterator) Value() []byte { return it.pairs[it.pos].Value }
func (it *SliceIterator) Err() error    { return it.err }
func (it *SliceIterator) Close() error  { return nil }

// Collect drains it into a slice of copied pairs and closes it.
func Collect(it Iterator) ([]KV, error) {
	defer func() { _ = it.Close() }()

	var out []KV
	for it.Next() {
		out = append(out, KV{
			Key:   bytes.Clone(it.Key()),
			Value: bytes.Clone(it.Value()),
		})
	}
	return out, it.Err()
}
