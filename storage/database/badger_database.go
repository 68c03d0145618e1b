package database

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/starcoinorg/stargo-chain/log"
)

const (
	badgerGCThreshold    = int64(1 << 30)
	badgerGCTickerPeriod = 1 * time.Minute
)

// badgerDB is an alternative KVStore backend to goleveldb; a DBManager
// built with it uses badger for every column. It is a reasonable choice for the high-churn accumulator/state node columns since
// badger's LSM + value-log design favors random point writes.
type badgerDB struct {
	fn       string
	db       *badger.DB
	log      *log.Logger
	gcTicker *time.Ticker
	closeCh  chan struct{}
}

// NewBadgerDB opens (or creates) a badger-backed column at dir.
func NewBadgerDB(dir string) (KVStore, error) {
	logger := log.NewModuleLogger(log.ModuleStorage)

	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("database: badger dir %q is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("database: creating badger dir %q: %w", dir, err)
		}
	} else {
		return nil, fmt.Errorf("database: stat badger dir %q: %w", dir, err)
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database: opening badger at %q: %w", dir, err)
	}

	bg := &badgerDB{
		fn:       dir,
		db:       db,
		log:      logger,
		gcTicker: time.NewTicker(badgerGCTickerPeriod),
		closeCh:  make(chan struct{}),
	}
	go bg.runValueLogGC()

	logger.Info("opened badger column", "dir", dir)
	return bg, nil
}

func (bg *badgerDB) runValueLogGC() {
	_, lastSize := bg.db.Size()
	for {
		select {
		case <-bg.gcTicker.C:
			_, currSize := bg.db.Size()
			if currSize-lastSize < badgerGCThreshold {
				continue
			}
			lastSize = currSize
			_ = bg.db.RunValueLogGC(0.5)
		case <-bg.closeCh:
			return
		}
	}
}

func (bg *badgerDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := bg.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return out, err
}

func (bg *badgerDB) Has(key []byte) (bool, error) {
	var found bool
	err := bg.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (bg *badgerDB) Put(key, value []byte) error {
	return bg.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (bg *badgerDB) Delete(key []byte) error {
	return bg.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (bg *badgerDB) Close() error {
	close(bg.closeCh)
	bg.gcTicker.Stop()
	return bg.db.Close()
}

func (bg *badgerDB) NewIterator(prefix []byte) Iterator {
	txn := bg.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	key     []byte
	value   []byte
	err     error
}

func (it *badgerIterator) Next() bool {
	if !it.started {
		it.started = true
	} else {
		it.it.Next()
	}
	if !it.it.ValidForPrefix(it.prefix) {
		return false
	}
	item := it.it.Item()
	it.key = append([]byte(nil), item.Key()...)
	val, err := item.ValueCopy(nil)
	if err != nil {
		it.err = err
		return false
	}
	it.value = val
	return true
}

func (it *badgerIterator) Key() []byte   { return it.key }
func (it *badgerIterator) Value() []byte { return it.value }
func (it *badgerIterator) Error() error  { return it.err }
func (it *badgerIterator) Release() {
	it.it.Close()
	it.txn.Discard()
}

func (bg *badgerDB) NewBatch() Batch {
	return &badgerBatch{db: bg.db}
}

type badgerOp struct {
	key    []byte
	value  []byte
	delete bool
}

type badgerBatch struct {
	db   *badger.DB
	ops  []badgerOp
	size int
}

func (b *badgerBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, badgerOp{key: bytes.Clone(key), value: bytes.Clone(value)})
	b.size += len(key) + len(value)
	return nil
}

func (b *badgerBatch) Delete(key []byte) error {
	b.ops = append(b.ops, badgerOp{key: bytes.Clone(key), delete: true})
	b.size += len(key)
	return nil
}

func (b *badgerBatch) ValueSize() int { return b.size }

func (b *badgerBatch) Write() error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, op := range b.ops {
		if op.delete {
			if err := wb.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := wb.Set(op.key, op.value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *badgerBatch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}
