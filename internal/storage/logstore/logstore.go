// Package logstore is a log-structured storage engine: every write is
// appended to a single file, and an in-memory key directory maps each live
// key to the position of its latest value. The directory is rebuilt by
// replaying the log on open. Space held by overwritten and deleted entries is
// reclaimed by Compact.
package logstore

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/tuannm99/kvsql/internal/storage"
)

const degree = 32

// Options tune a log store.
type Options struct {
	// Sync fsyncs the file after every write.
	Sync bool
	// CompactRatio triggers a compaction on open when garbage/size reaches it.
	// Zero disables compaction on open.
	CompactRatio float64
	// CacheSize is the number of values kept in the read cache; zero
	// disables it.
	CacheSize int
}

type entry struct {
	key []byte
	off int64 // offset of the value
	len uint32
}

func lessEntry(a, b entry) bool { return bytes.Compare(a.key, b.key) < 0 }

// Log is a log-structured storage.Engine.
type Log struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	f       afero.File
	keydir  *btree.BTreeG[entry]
	size    int64
	garbage int64
	opts    Options
	cache   *valueCache
}

var _ storage.Engine = (*Log)(nil)

// Open opens the log at path, creating it if needed, and replays it.
func Open(fs afero.Fs, path string, opts Options) (*Log, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "logstore: mkdir for %s", path)
	}
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "logstore: open %s", path)
	}

	l := &Log{
		fs:     fs,
		path:   path,
		f:      f,
		keydir: btree.NewG(degree, lessEntry),
		opts:   opts,
		cache:  newValueCache(opts.CacheSize),
	}
	if err := l.replay(); err != nil {
		_ = f.Close()
		return nil, err
	}
	slog.Info("logstore: opened", "path", path, "keys", l.keydir.Len(), "size", l.size, "garbage", l.garbage)

	if opts.CompactRatio > 0 && l.size > 0 && float64(l.garbage)/float64(l.size) >= opts.CompactRatio {
		if err := l.Compact(); err != nil {
			_ = l.Close()
			return nil, err
		}
	}
	return l, nil
}

// replay rebuilds the key directory. A torn or corrupt tail, left by a crash
// in the middle of a write, is truncated away.
func (l *Log) replay() error {
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	r := bufio.NewReaderSize(l.f, 1<<20)

	var off int64
	for {
		rec, err := readRecord(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("logstore: truncating damaged tail", "path", l.path, "offset", off, "err", err)
			if err := l.f.Truncate(off); err != nil {
				return errors.Wrap(err, "logstore: truncate tail")
			}
			break
		}
		l.apply(rec, off)
		off += rec.size()
	}
	l.size = off
	return nil
}

// apply records rec, written at off, in the key directory.
func (l *Log) apply(rec *record, off int64) {
	if old, ok := l.keydir.Get(entry{key: rec.key}); ok {
		l.garbage += headerSize + int64(len(old.key)) + int64(old.len)
	}
	if rec.tombstone {
		l.keydir.Delete(entry{key: rec.key})
		l.garbage += rec.size()
		return
	}
	l.keydir.ReplaceOrInsert(entry{
		key: rec.key,
		off: off + headerSize + int64(len(rec.key)),
		len: uint32(len(rec.value)),
	})
}

func (l *Log) write(key, value []byte, tombstone bool) error {
	buf, err := encodeRecord(key, value, tombstone)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return errors.New("logstore: closed")
	}
	if _, err := l.f.WriteAt(buf, l.size); err != nil {
		return errors.Wrap(err, "logstore: write")
	}
	if l.opts.Sync {
		if err := l.f.Sync(); err != nil {
			return errors.Wrap(err, "logstore: sync")
		}
	}

	rec := &record{key: bytes.Clone(key), tombstone: tombstone}
	if !tombstone {
		rec.value = value
	}
	l.apply(rec, l.size)
	l.size += int64(len(buf))
	return nil
}

func (l *Log) Set(key, value []byte) error {
	return l.write(key, value, false)
}

func (l *Log) Delete(key []byte) error {
	l.mu.RLock()
	_, ok := l.keydir.Get(entry{key: key})
	l.mu.RUnlock()
	if !ok {
		return nil
	}
	return l.write(key, nil, true)
}

func (l *Log) Get(key []byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.f == nil {
		return nil, errors.New("logstore: closed")
	}
	e, ok := l.keydir.Get(entry{key: key})
	if !ok {
		return nil, nil
	}
	return l.readValue(e)
}

func (l *Log) readValue(e entry) ([]byte, error) {
	buf := make([]byte, e.len)
	if e.len == 0 {
		return buf, nil
	}
	if v, ok := l.cache.get(e.off); ok {
		return v, nil
	}
	if _, err := l.f.ReadAt(buf, e.off); err != nil {
		return nil, errors.Wrapf(err, "logstore: read value at %d", e.off)
	}
	l.cache.put(e.off, buf)
	return buf, nil
}

// CacheStats returns the read cache hit and miss counts.
func (l *Log) CacheStats() (hits, misses uint64) {
	hits, misses, _ = l.cache.stats()
	return hits, misses
}

// ScanPrefix reads the matching values up front under the read lock.
func (l *Log) ScanPrefix(prefix []byte) storage.Iterator {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		pairs []storage.KV
		err   error
	)
	l.keydir.AscendGreaterOrEqual(entry{key: prefix}, func(e entry) bool {
		if !bytes.HasPrefix(e.key, prefix) {
			return false
		}
		var v []byte
		v, err = l.readValue(e)
		if err != nil {
			return false
		}
		pairs = append(pairs, storage.KV{Key: e.key, Value: v})
		return true
	})
	if err != nil {
		return storage.NewErrIterator(err)
	}
	return storage.NewSliceIterator(pairs)
}

func (l *Log) Status() (storage.Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var live int64
	l.keydir.Ascend(func(e entry) bool {
		live += int64(len(e.key)) + int64(e.len)
		return true
	})
	return storage.Status{
		Name:        "log",
		Keys:        int64(l.keydir.Len()),
		Size:        live,
		DiskSize:    l.size,
		GarbageSize: l.garbage,
	}, nil
}

// Compact rewrites the live entries into a fresh file and swaps it in.
func (l *Log) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmpPath := l.path + ".compact"
	tmp, err := l.fs.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "logstore: create compaction file")
	}

	keydir := btree.NewG(degree, lessEntry)
	var (
		off     int64
		walkErr error
	)
	l.keydir.Ascend(func(e entry) bool {
		var v, buf []byte
		if v, walkErr = l.readValue(e); walkErr != nil {
			return false
		}
		if buf, walkErr = encodeRecord(e.key, v, false); walkErr != nil {
			return false
		}
		if _, walkErr = tmp.WriteAt(buf, off); walkErr != nil {
			return false
		}
		keydir.ReplaceOrInsert(entry{key: e.key, off: off + headerSize + int64(len(e.key)), len: e.len})
		off += int64(len(buf))
		return true
	})
	if walkErr == nil {
		walkErr = tmp.Sync()
	}
	if closeErr := tmp.Close(); walkErr == nil {
		walkErr = closeErr
	}
	if walkErr != nil {
		_ = l.fs.Remove(tmpPath)
		return errors.Wrap(walkErr, "logstore: compact")
	}

	if err := l.f.Close(); err != nil {
		return errors.Wrap(err, "logstore: close before swap")
	}
	if err := l.fs.Rename(tmpPath, l.path); err != nil {
		return errors.Wrap(err, "logstore: swap compacted file")
	}
	f, err := l.fs.OpenFile(l.path, os.O_RDWR, 0o644)
	if err != nil {
		l.f = nil
		return errors.Wrap(err, "logstore: reopen after compaction")
	}

	slog.Info("logstore: compacted", "path", l.path, "before", l.size, "after", off)
	l.f = f
	l.keydir = keydir
	l.size = off
	l.garbage = 0
	l.cache.reset()
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	if hits, misses, size := l.cache.stats(); hits+misses > 0 {
		slog.Debug("logstore: read cache", "path", l.path, "hits", hits, "misses", misses, "size", size)
	}
	err := l.f.Sync()
	if closeErr := l.f.Close(); err == nil {
		err = closeErr
	}
	l.f = nil
	return errors.Wrapf(err, "logstore: close %s", l.path)
}
