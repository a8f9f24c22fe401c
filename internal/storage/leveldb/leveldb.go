// Package leveldb adapts goleveldb to storage.Engine.
package leveldb

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tuannm99/kvsql/internal/storage"
)

// LevelDB is a storage engine backed by a leveldb directory.
type LevelDB struct {
	db    *leveldb.DB
	dir   string
	write *opt.WriteOptions
}

var _ storage.Engine = (*LevelDB)(nil)

// Open opens (or creates) the database in dir. With sync set every write is
// flushed to stable storage before returning.
func Open(dir string, sync bool) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "leveldb: open %s", dir)
	}
	slog.Info("leveldb: opened", "dir", dir, "sync", sync)
	return &LevelDB{db: db, dir: dir, write: &opt.WriteOptions{Sync: sync}}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (l *LevelDB) Set(key, value []byte) error {
	return errors.WithStack(l.db.Put(key, value, l.write))
}

func (l *LevelDB) Delete(key []byte) error {
	return errors.WithStack(l.db.Delete(key, l.write))
}

func (l *LevelDB) ScanPrefix(prefix []byte) storage.Iterator {
	return &levelIterator{iter: l.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (l *LevelDB) Status() (storage.Status, error) {
	it := l.db.NewIterator(nil, nil)
	defer it.Release()

	var st storage.Status
	st.Name = "leveldb"
	for it.Next() {
		st.Keys++
		st.Size += int64(len(it.Key()) + len(it.Value()))
	}
	if err := it.Error(); err != nil {
		return storage.Status{}, errors.WithStack(err)
	}
	return st, nil
}

func (l *LevelDB) Close() error {
	return errors.Wrapf(l.db.Close(), "leveldb: close %s", l.dir)
}

type levelIterator struct {
	iter iterator.Iterator
}

func (it *levelIterator) Next() bool    { return it.iter.Next() }
func (it *levelIterator) Key() []byte   { return it.iter.Key() }
func (it *levelIterator) Value() []byte { return it.iter.Value() }
func (it *levelIterator) Err() error    { return errors.WithStack(it.iter.Error()) }

func (it *levelIterator) Close() error {
	it.iter.Release()
	return nil
}
