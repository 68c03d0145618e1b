package statedb

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/common"
)

// ProofStep is one sibling hash on the path from a leaf to the trie root.
type ProofStep struct {
	Sibling common.HashValue
	Right   bool
}

// Proof is an inclusion (or non-inclusion) proof for one access path.
type Proof struct {
	Siblings []ProofStep
}

// GetWithProof returns the value at path (if present) together with a
// proof verifiable against the current root. Spec.md's "(value?,
// leaf_proof, account_proof)" pair collapses to one proof here since this
// trie has no separate nested storage layer — the account trie itself is
// the leaf-level proof target.
func (db *StateDB) GetWithProof(path []byte) ([]byte, *Proof, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	key := common.HashOfData(path)
	cur := db.root
	var steps []ProofStep

	for depth := 0; depth < Depth; depth++ {
		left, right, err := db.children(cur, depth)
		if err != nil {
			return nil, nil, err
		}
		if bitAt(key, depth) == 0 {
			steps = append(steps, ProofStep{Sibling: right, Right: true})
			cur = left
		} else {
			steps = append(steps, ProofStep{Sibling: left, Right: false})
			cur = right
		}
	}

	if cur == defaultHashes[Depth] {
		return nil, &Proof{Siblings: steps}, nil
	}
	raw, ok, err := db.nodeBytes(cur)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.Errorf("statedb: missing leaf node %s", cur)
	}
	var leaf leafRecord
	if err := rlp.DecodeBytes(raw, &leaf); err != nil {
		return nil, nil, err
	}
	return leaf.Value, &Proof{Siblings: steps}, nil
}

// Verify recomputes the root starting from the leaf for (path, value,
// present) and folds the proof's siblings bottom-up, comparing against
// root. present must be false when proving absence.
func (p *Proof) Verify(path, value []byte, present bool, root common.HashValue) bool {
	var acc common.HashValue
	if present {
		h, _, err := leafHash(path, value)
		if err != nil {
			return false
		}
		acc = h
	} else {
		acc = defaultHashes[Depth]
	}
	for i := len(p.Siblings) - 1; i >= 0; i-- {
		step := p.Siblings[i]
		if step.Right {
			acc = common.HashPair(acc, step.Sibling)
		} else {
			acc = common.HashPair(step.Sibling, acc)
		}
	}
	return acc.Equal(root)
}
