package statedb

import (
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/common"
)

// WriteOp is one staged mutation: set Path to Value, or delete it when
// Delete is true. Order matters — state_root() after commit is a
// deterministic function of the pre-root and the *ordered* write-set, so
// a later op on the same Path wins.
type WriteOp struct {
	Path   []byte
	Value  []byte
	Delete bool
}

// StateDB is one mutable view onto a sparse Merkle account-state trie.
// Writes are staged by ApplyWriteSet and only take effect — and only
// start contributing dirty nodes — once Commit runs; Flush is the
// separate step that persists those dirty nodes to the backing Store.
type StateDB struct {
	mu sync.RWMutex

	store *Store
	root  common.HashValue

	pending []WriteOp
	dirty   map[common.HashValue][]byte
}

// New opens a view at root, or at the empty-trie root if root is nil.
func New(store *Store, root *common.HashValue) *StateDB {
	r := EmptyRootHash()
	if root != nil {
		r = *root
	}
	return &StateDB{store: store, root: r, dirty: make(map[common.HashValue][]byte)}
}

// StateRoot returns the current (last-committed) root.
func (db *StateDB) StateRoot() common.HashValue {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.root
}

// ApplyWriteSet stages ws for the next Commit. Multiple calls before a
// Commit simply extend the pending list, preserving relative order.
func (db *StateDB) ApplyWriteSet(ws []WriteOp) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.pending = append(db.pending, ws...)
}

// Commit finalizes every staged write in order and returns the new root.
func (db *StateDB) Commit() (common.HashValue, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, op := range db.pending {
		key := common.HashOfData(op.Path)
		newRoot, err := db.update(db.root, 0, key, op.Path, op.Value, op.Delete)
		if err != nil {
			return common.HashValue{}, err
		}
		db.root = newRoot
	}
	db.pending = db.pending[:0]
	return db.root, nil
}

// update recomputes the hash of the subtree rooted at nodeHash (at the
// given depth) after applying one write, creating any new nodes it needs
// in db.dirty. A subtree that collapses back to all-default after a
// delete returns the default hash for its depth rather than persisting an
// empty internal node.
func (db *StateDB) update(nodeHash common.HashValue, depth int, key common.HashValue, path, value []byte, del bool) (common.HashValue, error) {
	if depth == Depth {
		if del {
			return defaultHashes[Depth], nil
		}
		h, raw, err := leafHash(path, value)
		if err != nil {
			return common.HashValue{}, err
		}
		db.dirty[h] = raw
		return h, nil
	}

	left, right, err := db.children(nodeHash, depth)
	if err != nil {
		return common.HashValue{}, err
	}

	if bitAt(key, depth) == 0 {
		left, err = db.update(left, depth+1, key, path, value, del)
	} else {
		right, err = db.update(right, depth+1, key, path, value, del)
	}
	if err != nil {
		return common.HashValue{}, err
	}

	if left == defaultHashes[depth+1] && right == defaultHashes[depth+1] {
		return defaultHashes[depth], nil
	}
	h, raw, err := internalNodeHash(left, right)
	if err != nil {
		return common.HashValue{}, err
	}
	db.dirty[h] = raw
	return h, nil
}

func (db *StateDB) children(nodeHash common.HashValue, depth int) (left, right common.HashValue, err error) {
	if nodeHash == defaultHashes[depth] {
		return defaultHashes[depth+1], defaultHashes[depth+1], nil
	}
	raw, ok, err := db.nodeBytes(nodeHash)
	if err != nil {
		return common.HashValue{}, common.HashValue{}, err
	}
	if !ok {
		return common.HashValue{}, common.HashValue{}, errors.Errorf("statedb: missing internal node %s", nodeHash)
	}
	var in internalNode
	if err := rlp.DecodeBytes(raw, &in); err != nil {
		return common.HashValue{}, common.HashValue{}, err
	}
	return in.Left, in.Right, nil
}

func (db *StateDB) nodeBytes(hash common.HashValue) ([]byte, bool, error) {
	if raw, ok := db.dirty[hash]; ok {
		return raw, true, nil
	}
	return db.store.get(hash)
}

// Get returns the value stored at path, or (nil, false) if absent.
func (db *StateDB) Get(path []byte) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	key := common.HashOfData(path)
	cur := db.root
	for depth := 0; depth < Depth; depth++ {
		if cur == defaultHashes[depth] {
			return nil, false, nil
		}
		raw, ok, err := db.nodeBytes(cur)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, errors.Errorf("statedb: missing internal node %s", cur)
		}
		var in internalNode
		if err := rlp.DecodeBytes(raw, &in); err != nil {
			return nil, false, err
		}
		if bitAt(key, depth) == 0 {
			cur = in.Left
		} else {
			cur = in.Right
		}
	}
	if cur == defaultHashes[Depth] {
		return nil, false, nil
	}
	raw, ok, err := db.nodeBytes(cur)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, errors.Errorf("statedb: missing leaf node %s", cur)
	}
	var leaf leafRecord
	if err := rlp.DecodeBytes(raw, &leaf); err != nil {
		return nil, false, err
	}
	return leaf.Value, true, nil
}

// Flush writes every node created by Commit calls since the last Flush to
// the backing store in one batch.
func (db *StateDB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.dirty) == 0 {
		return nil
	}
	batch := db.store.stageBatch(db.dirty)
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "statedb: flushing nodes")
	}
	db.dirty = make(map[common.HashValue][]byte)
	return nil
}

// Fork returns an independent view at the current root.
func (db *StateDB) Fork() *StateDB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	root := db.root
	return New(db.store, &root)
}

// ForkAt returns an independent view at an explicit historical root.
// ForkAt(r).StateRoot() == r before any mutation.
func (db *StateDB) ForkAt(root common.HashValue) *StateDB {
	return New(db.store, &root)
}
