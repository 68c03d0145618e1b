// Package statedb implements the account-state trie pair (spec.md C2): two
// independent sparse Merkle trees, one per VM generation, keyed by
// sha3-256(access_path). Only non-default subtrees are ever persisted, and
// every node is addressed by its own content hash, matching the
// content-addressed storage discipline the accumulator (C1) also follows.
package statedb

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starcoinorg/stargo-chain/common"
)

// Depth is the fixed bit-depth of the trie: one level per bit of a
// sha3-256 key, giving every account a collision-resistant, fixed-length
// path regardless of insertion order.
const Depth = 256

// defaultHashes[d] is the root of a subtree of height (Depth-d) containing
// only default (absent) leaves. defaultHashes[Depth] is the placeholder
// leaf hash; defaultHashes[0] is the root hash of a completely empty trie.
var defaultHashes = buildDefaultHashes()

func buildDefaultHashes() [Depth + 1]common.HashValue {
	var hashes [Depth + 1]common.HashValue
	hashes[Depth] = common.PlaceholderHash
	for d := Depth - 1; d >= 0; d-- {
		hashes[d] = common.HashPair(hashes[d+1], hashes[d+1])
	}
	return hashes
}

// EmptyRootHash is the state root of a trie with no entries.
func EmptyRootHash() common.HashValue {
	return defaultHashes[0]
}

// bitAt reports the bit at position i (0 = most significant) of key,
// which is the direction (0=left, 1=right) taken at trie depth i.
func bitAt(key common.HashValue, i int) int {
	byteIdx := i / 8
	bitIdx := uint(7 - i%8)
	return int((key[byteIdx] >> bitIdx) & 1)
}

// internalNode is an internal trie node: the hashes of its two children.
// Persisted rlp-encoded under its own hash, hash(left, right).
type internalNode struct {
	Left  common.HashValue
	Right common.HashValue
}

// leafRecord is what a trie leaf actually stores: the raw access path (so
// dump_iter can report it) alongside the opaque value blob the VM wrote.
// Persisted under hash(rlp(leafRecord)).
type leafRecord struct {
	Path  []byte
	Value []byte
}

func leafHash(path, value []byte) (common.HashValue, []byte, error) {
	raw, err := rlp.EncodeToBytes(&leafRecord{Path: path, Value: value})
	if err != nil {
		return common.HashValue{}, nil, err
	}
	return common.HashOfData(raw), raw, nil
}

func internalNodeHash(left, right common.HashValue) (common.HashValue, []byte, error) {
	raw, err := rlp.EncodeToBytes(&internalNode{Left: left, Right: right})
	if err != nil {
		return common.HashValue{}, nil, err
	}
	return common.HashPair(left, right), raw, nil
}
