package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/starcoinorg/stargo-chain/log"
)

// defaultLDBCacheSizeMiB and defaultLDBHandles size a single column's
// goleveldb instance; DBManager splits a configured total across columns
// the way klaytn's dbConfigRatio does.
const (
	defaultLDBCacheSizeMiB = 16
	defaultLDBHandles      = 16
)

type levelDB struct {
	fn  string
	db  *leveldb.DB
	log *log.Logger
}

// NewLevelDB opens (or creates) a goleveldb-backed column at dir.
func NewLevelDB(dir string, cacheSizeMiB, handles int) (KVStore, error) {
	if cacheSizeMiB < 1 {
		cacheSizeMiB = defaultLDBCacheSizeMiB
	}
	if handles < 16 {
		handles = defaultLDBHandles
	}
	logger := log.NewModuleLogger(log.ModuleStorage)

	options := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheSizeMiB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMiB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(dir, options)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("opened leveldb column", "dir", dir)
	return &levelDB{fn: dir, db: db, log: logger}, nil
}

func (db *levelDB) Get(key []byte) ([]byte, error) {
	v, err := db.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (db *levelDB) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

func (db *levelDB) Put(key, value []byte) error {
	return db.db.Put(key, value, nil)
}

func (db *levelDB) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}

func (db *levelDB) Close() error {
	return db.db.Close()
}

func (db *levelDB) NewIterator(prefix []byte) Iterator {
	return &levelDBIterator{iter: db.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

type levelDBIterator struct {
	iter iterator.Iterator
}

func (it *levelDBIterator) Next() bool    { return it.iter.Next() }
func (it *levelDBIterator) Key() []byte   { return append([]byte(nil), it.iter.Key()...) }
func (it *levelDBIterator) Value() []byte { return append([]byte(nil), it.iter.Value()...) }
func (it *levelDBIterator) Release()      { it.iter.Release() }
func (it *levelDBIterator) Error() error  { return it.iter.Error() }

func (db *levelDB) NewBatch() Batch {
	return &levelDBBatch{db: db.db, batch: new(leveldb.Batch)}
}

type levelDBBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
	size  int
}

func (b *levelDBBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelDBBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelDBBatch) ValueSize() int { return b.size }

func (b *levelDBBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (b *levelDBBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}
