package accumulator

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/storage/database"
)

const nodeCacheSize = 8192

// nodeChildren is the two child hashes that hash to a given internal
// node's own hash — the record persisted under that hash as its key.
type nodeChildren struct {
	left, right common.HashValue
}

// Store persists accumulator nodes content-addressed by their own hash:
// an internal node's key is hash(left, right) and its value is the
// (left, right) pair, the same scheme statedb/store.go uses for trie
// nodes. Because the key is a function of content rather than tree
// position, two chains forked from a common ancestor and later both
// flushed into the same backing column never overwrite each other's
// nodes — identical subtrees dedupe, and divergent ones simply get
// distinct keys. Leaves need no record of their own: a leaf node's
// value *is* its hash, so there is nothing to look up to materialize it.
type Store struct {
	kv    database.KVStore
	cache *lru.Cache
}

// NewStore wraps kv (one ColumnID's worth of storage, e.g.
// ColumnAccumulatorTxn) as a node store for one accumulator.
func NewStore(kv database.KVStore) *Store {
	cache, _ := lru.New(nodeCacheSize)
	return &Store{kv: kv, cache: cache}
}

func encodeChildren(c nodeChildren) []byte {
	buf := make([]byte, 0, 2*common.HashLength)
	buf = append(buf, c.left.Bytes()...)
	buf = append(buf, c.right.Bytes()...)
	return buf
}

func decodeChildren(raw []byte) (nodeChildren, error) {
	if len(raw) != 2*common.HashLength {
		return nodeChildren{}, fmt.Errorf("accumulator: malformed node record (%d bytes)", len(raw))
	}
	left, err := common.HashFromBytes(raw[:common.HashLength])
	if err != nil {
		return nodeChildren{}, err
	}
	right, err := common.HashFromBytes(raw[common.HashLength:])
	if err != nil {
		return nodeChildren{}, err
	}
	return nodeChildren{left: left, right: right}, nil
}

func (s *Store) getChildren(hash common.HashValue) (common.HashValue, common.HashValue, error) {
	if v, ok := s.cache.Get(hash); ok {
		c := v.(nodeChildren)
		return c.left, c.right, nil
	}
	raw, err := s.kv.Get(hash.Bytes())
	if err == database.ErrNotFound {
		return common.HashValue{}, common.HashValue{}, fmt.Errorf("accumulator: missing node %s", hash)
	}
	if err != nil {
		return common.HashValue{}, common.HashValue{}, err
	}
	c, err := decodeChildren(raw)
	if err != nil {
		return common.HashValue{}, common.HashValue{}, err
	}
	s.cache.Add(hash, c)
	return c.left, c.right, nil
}

func (s *Store) stageBatch(dirty map[common.HashValue]nodeChildren) database.Batch {
	batch := s.kv.NewBatch()
	for hash, children := range dirty {
		_ = batch.Put(hash.Bytes(), encodeChildren(children))
		s.cache.Add(hash, children)
	}
	return batch
}
