package statedb

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/storage/database"
)

const nodeCacheSize = 16384

// Store persists trie nodes content-addressed by their own hash, fronted
// by a bounded LRU the way accumulator.Store fronts its content-addressed
// nodes (and klaytn's trie database fronts goleveldb).
type Store struct {
	kv    database.KVStore
	cache *lru.Cache
}

// NewStore wraps kv (a ColumnStateVM1 or ColumnStateVM2 column) as a trie
// node store.
func NewStore(kv database.KVStore) *Store {
	cache, _ := lru.New(nodeCacheSize)
	return &Store{kv: kv, cache: cache}
}

func (s *Store) get(hash common.HashValue) ([]byte, bool, error) {
	if v, ok := s.cache.Get(hash); ok {
		return v.([]byte), true, nil
	}
	raw, err := s.kv.Get(hash.Bytes())
	if err == database.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(hash, raw)
	return raw, true, nil
}

func (s *Store) stageBatch(dirty map[common.HashValue][]byte) database.Batch {
	batch := s.kv.NewBatch()
	for hash, raw := range dirty {
		_ = batch.Put(hash.Bytes(), raw)
		s.cache.Add(hash, raw)
	}
	return batch
}
