package statedb

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starcoinorg/stargo-chain/common"
)

// DumpEntry is one leaf surfaced by DumpIter: the raw access path the
// caller inserted (usually an account address) and its current value.
type DumpEntry struct {
	Path  []byte
	Value []byte
}

// DumpIter returns every non-default leaf in the trie, ordered by the
// left-to-right traversal of the hashed key — that is, by sha3-256(path),
// not by the raw path's own byte order. Used for snapshot export.
func (db *StateDB) DumpIter() ([]DumpEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []DumpEntry
	if err := db.walk(db.root, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *StateDB) walk(nodeHash common.HashValue, depth int, out *[]DumpEntry) error {
	if nodeHash == defaultHashes[depth] {
		return nil
	}
	raw, ok, err := db.nodeBytes(nodeHash)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if depth == Depth {
		var leaf leafRecord
		if err := rlp.DecodeBytes(raw, &leaf); err != nil {
			return err
		}
		*out = append(*out, DumpEntry{Path: leaf.Path, Value: leaf.Value})
		return nil
	}
	var in internalNode
	if err := rlp.DecodeBytes(raw, &in); err != nil {
		return err
	}
	if err := db.walk(in.Left, depth+1, out); err != nil {
		return err
	}
	return db.walk(in.Right, depth+1, out)
}
