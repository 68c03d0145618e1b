// Package database provides the typed, column-family key/value storage the
// chain core persists to: headers, bodies, transaction infos, events,
// block infos, accumulator nodes, state trie nodes, and the genesis/head
// pointers. The backing engine (goleveldb or badger) is an implementation
// detail behind the KVStore contract.
package database

import "errors"

// ErrNotFound is returned by Get when the key is absent. Callers that the
// spec documents as "returns Ok(None)" translate this into a (nil, nil)
// pair instead of propagating the error; callers that must distinguish
// "never written" from "I/O failure" check for it explicitly.
var ErrNotFound = errors.New("database: key not found")

// KVStore is a single logical column: get/put/delete/iterate over byte keys.
// Implementations must be safe for concurrent Get and for concurrent Put of
// distinct keys (every writer in this core is idempotent keyed by content
// hash, so last-writer-wins on a repeated key is harmless).
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
	Close() error
}

// Iterator walks keys (optionally restricted to a prefix) in ascending
// byte order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Batch accumulates writes for atomic application. Write is all-or-nothing
// from the caller's point of view, matching the commit-order contract in
// executor.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	ValueSize() int
	Write() error
	Reset()
}
