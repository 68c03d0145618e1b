package database

import (
	"fmt"
	"path/filepath"
)

// ColumnID names one of the typed column families the block store and the
// state/accumulator layers persist into. Each column is backed by its own
// KVStore instance; every DBManager constructor uses one backend type for
// all of its columns.
type ColumnID uint8

const (
	ColumnHeader ColumnID = iota
	ColumnBody
	ColumnTransaction
	ColumnTransactionInfo
	ColumnEvent
	ColumnBlockInfo
	ColumnBlockTxnIDs
	ColumnBlockTxnInfoIDs
	ColumnTxnHashToInfoIDs
	ColumnAccumulatorTxn
	ColumnAccumulatorBlock
	ColumnAccumulatorVMState
	ColumnStateVM1
	ColumnStateVM2
	ColumnMisc

	numColumns
)

var columnDirs = [numColumns]string{
	"header",
	"body",
	"transaction",
	"transaction_info",
	"event",
	"block_info",
	"block_txn_ids",
	"block_txn_info_ids",
	"txn_hash_to_info_ids",
	"accumulator_txn",
	"accumulator_block",
	"accumulator_vmstate",
	"state_vm1",
	"state_vm2",
	"misc",
}

func (c ColumnID) String() string {
	if int(c) < len(columnDirs) {
		return columnDirs[c]
	}
	return fmt.Sprintf("column(%d)", c)
}

// DBManager multiplexes the logical columns the chain core persists to
// across one or more physical KVStore instances, mirroring klaytn's
// DBManager/DBEntryType split (there: 10 entry types over leveldb/badger;
// here: the column set named in spec.md §4.3/§6.1).
type DBManager struct {
	cols [numColumns]KVStore
}

// NewMemoryDBManager backs every column with an in-process map; the tests
// use it.
func NewMemoryDBManager() *DBManager {
	dbm := &DBManager{}
	for i := range dbm.cols {
		dbm.cols[i] = NewMemDatabase()
	}
	return dbm
}

// NewLevelDBManager opens one goleveldb column per ColumnID under baseDir,
// splitting cacheSizeMiB/handles evenly across them.
func NewLevelDBManager(baseDir string, cacheSizeMiB, handles int) (*DBManager, error) {
	dbm := &DBManager{}
	perColumnCache := cacheSizeMiB / int(numColumns)
	perColumnHandles := handles / int(numColumns)
	for i := ColumnID(0); i < numColumns; i++ {
		dir := filepath.Join(baseDir, columnDirs[i])
		store, err := NewLevelDB(dir, perColumnCache, perColumnHandles)
		if err != nil {
			dbm.Close()
			return nil, fmt.Errorf("database: opening column %s: %w", i, err)
		}
		dbm.cols[i] = store
	}
	return dbm, nil
}

// NewBadgerDBManager opens one badger column per ColumnID under baseDir.
func NewBadgerDBManager(baseDir string) (*DBManager, error) {
	dbm := &DBManager{}
	for i := ColumnID(0); i < numColumns; i++ {
		dir := filepath.Join(baseDir, columnDirs[i])
		store, err := NewBadgerDB(dir)
		if err != nil {
			dbm.Close()
			return nil, fmt.Errorf("database: opening column %s: %w", i, err)
		}
		dbm.cols[i] = store
	}
	return dbm, nil
}

// Column returns the KVStore backing id.
func (dbm *DBManager) Column(id ColumnID) KVStore {
	return dbm.cols[id]
}

// NewBatch returns a batch scoped to a single column. Cross-column atomicity
// (e.g. the executor's commit-order contract) is achieved by the caller
// writing each batch in the documented order, not by a single multi-column
// transaction — matching the "idempotent keyed by content hash" contract in
// spec.md §4.3 rather than promising true cross-column ACID.
func (dbm *DBManager) NewBatch(id ColumnID) Batch {
	return dbm.cols[id].NewBatch()
}

// Close releases every opened column, tolerating columns that were never
// opened (nil) so a partially-constructed manager can clean up after itself.
func (dbm *DBManager) Close() {
	for _, c := range dbm.cols {
		if c != nil {
			_ = c.Close()
		}
	}
}
