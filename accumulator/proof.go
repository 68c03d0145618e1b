package accumulator

import "github.com/starcoinorg/stargo-chain/common"

// ProofStep is one sibling hash on the path from a leaf to the accumulator
// root. Right is true when the sibling sits to the right of the node
// accumulated so far (so the combine step is hash(acc, sibling) rather than
// hash(sibling, acc)).
type ProofStep struct {
	Sibling common.HashValue
	Right   bool
}

// Proof is an inclusion proof for a single leaf: a uniform chain of sibling
// hashes that covers both the intra-peak Merkle path and the bagging of
// any peaks to the leaf's right, per spec.md's accumulator invariants.
type Proof struct {
	LeafIndex uint64
	Siblings  []ProofStep
}

// Verify recomputes the root from leaf by folding over the proof's sibling
// chain and compares it against root.
func (p *Proof) Verify(leaf common.HashValue, root common.HashValue) bool {
	acc := leaf
	for _, step := range p.Siblings {
		if step.Right {
			acc = common.HashPair(acc, step.Sibling)
		} else {
			acc = common.HashPair(step.Sibling, acc)
		}
	}
	return acc.Equal(root)
}
