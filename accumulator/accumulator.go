// Package accumulator implements the append-only Merkle accumulator used
// for the transaction, block, and VM-state proof trees (spec.md C1). It is
// a Merkle Mountain Range: leaves are appended left to right, equal-height
// peaks merge into their parent as soon as they complete, and the root is
// the right fold ("bagging") of the remaining peaks from smallest to
// largest. That structure is what makes the root chunking-independent:
// Append(xs); Append(ys) and Append(xs++ys) produce identical peaks.
package accumulator

import (
	"fmt"
	"sync"

	"github.com/starcoinorg/stargo-chain/common"
)

// Info is the externally persisted, serializable view of an accumulator's
// state — what spec.md calls AccumulatorInfo. It is embedded in BlockInfo
// rather than kept by Accumulator itself, so that forking an accumulator
// is just constructing a new in-memory view from a previously persisted
// Info (see Fork).
type Info struct {
	AccumulatorRoot    common.HashValue
	FrozenSubtreeRoots []common.HashValue
	NumLeaves          uint64
	NumNodes           uint64
}

// Accumulator is one mutable, in-memory view onto an append-only Merkle
// accumulator backed by a Store. Appends are buffered in a dirty set until
// Flush, so a view can be spawned with Fork, explored, and discarded
// without ever touching the backing column — matching spec.md's
// fork-then-flush contract.
type Accumulator struct {
	mu sync.RWMutex

	store *Store

	peaks       []common.HashValue // decreasing height, index 0 = tallest
	peakHeights []uint8            // parallel to peaks
	numLeaves   uint64
	numNodes    uint64

	dirty map[common.HashValue]nodeChildren
}

// New constructs an empty accumulator over store.
func New(store *Store) *Accumulator {
	return &Accumulator{store: store, dirty: make(map[common.HashValue]nodeChildren)}
}

// NewWithInfo reconstructs an accumulator view at a previously persisted
// Info. Peak heights are not stored explicitly; they're recovered from the
// set bits of NumLeaves, which is exactly the set of complete-subtree
// heights a binary counter holding NumLeaves would have.
func NewWithInfo(store *Store, info *Info) (*Accumulator, error) {
	heights := peakHeightsFromNumLeaves(info.NumLeaves)
	if len(heights) != len(info.FrozenSubtreeRoots) {
		return nil, fmt.Errorf("accumulator: info has %d frozen roots, want %d for %d leaves",
			len(info.FrozenSubtreeRoots), len(heights), info.NumLeaves)
	}
	a := &Accumulator{
		store:       store,
		peaks:       append([]common.HashValue(nil), info.FrozenSubtreeRoots...),
		peakHeights: heights,
		numLeaves:   info.NumLeaves,
		numNodes:    info.NumNodes,
		dirty:       make(map[common.HashValue]nodeChildren),
	}
	return a, nil
}

func peakHeightsFromNumLeaves(n uint64) []uint8 {
	var heights []uint8
	for h := 63; h >= 0; h-- {
		if n&(1<<uint(h)) != 0 {
			heights = append(heights, uint8(h))
		}
	}
	return heights
}

// Append adds leaves to the accumulator in order and returns the new root.
func (a *Accumulator) Append(leaves []common.HashValue) (common.HashValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, leaf := range leaves {
		a.appendOne(leaf)
	}
	return a.rootLocked(), nil
}

// appendOne runs the binary-counter carry: the new leaf merges with every
// existing peak whose height it completes, exactly like incrementing a
// binary number propagates a carry through trailing 1 bits. Each merge
// node is recorded under its own hash, not its tree position: position is
// purely a function of append order, and two chains that have appended
// different leaves can legitimately reach the same (height, position)
// with different content, which would collide if stored by position in
// the backing column every fork shares.
func (a *Accumulator) appendOne(leaf common.HashValue) {
	height := uint8(0)
	cur := leaf
	n := a.numLeaves
	a.numNodes++ // the leaf itself is a node, even though it needs no record

	for (n>>height)&1 == 1 {
		leftHash := a.peaks[len(a.peaks)-1]
		a.peaks = a.peaks[:len(a.peaks)-1]
		a.peakHeights = a.peakHeights[:len(a.peakHeights)-1]
		merged := common.HashPair(leftHash, cur)
		a.setDirty(merged, leftHash, cur)
		a.numNodes++
		cur = merged
		height++
	}

	a.peaks = append(a.peaks, cur)
	a.peakHeights = append(a.peakHeights, height)
	a.numLeaves++
}

func (a *Accumulator) setDirty(nodeHash, left, right common.HashValue) {
	a.dirty[nodeHash] = nodeChildren{left: left, right: right}
}

// getChildren returns the two children that hash to nodeHash, checking
// the in-memory dirty set (nodes appended but not yet Flushed) before
// falling back to the backing store.
func (a *Accumulator) getChildren(nodeHash common.HashValue) (common.HashValue, common.HashValue, error) {
	if c, ok := a.dirty[nodeHash]; ok {
		return c.left, c.right, nil
	}
	return a.store.getChildren(nodeHash)
}

// descend walks from node (the root of a perfect subtree of the given
// height) down to the leaf at index within that subtree, following child
// hashes rather than any position-keyed index.
func (a *Accumulator) descend(node common.HashValue, height uint8, index uint64) (common.HashValue, error) {
	if height == 0 {
		return node, nil
	}
	left, right, err := a.getChildren(node)
	if err != nil {
		return common.HashValue{}, err
	}
	half := uint64(1) << (height - 1)
	if index < half {
		return a.descend(left, height-1, index)
	}
	return a.descend(right, height-1, index-half)
}

// GetLeaf returns the leaf hash at index i.
func (a *Accumulator) GetLeaf(i uint64) (common.HashValue, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.leafAtLocked(i)
}

func (a *Accumulator) leafAtLocked(i uint64) (common.HashValue, error) {
	if i >= a.numLeaves {
		return common.HashValue{}, fmt.Errorf("accumulator: leaf index %d out of range (have %d)", i, a.numLeaves)
	}
	peakIdx, height, rangeStart, err := a.locatePeak(i)
	if err != nil {
		return common.HashValue{}, err
	}
	return a.descend(a.peaks[peakIdx], height, i-rangeStart)
}

// GetLeaves reads up to max consecutive leaves starting at start. When
// reverse is true it walks backward from start (inclusive) instead of
// forward, matching the windowed readers spec.md's supplemented features
// add for paginated block/transaction listing.
func (a *Accumulator) GetLeaves(start uint64, reverse bool, max uint64) ([]common.HashValue, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if start >= a.numLeaves {
		return nil, fmt.Errorf("accumulator: start index %d out of range (have %d)", start, a.numLeaves)
	}
	var out []common.HashValue
	if reverse {
		i := start
		for uint64(len(out)) < max {
			h, err := a.leafAtLocked(i)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
			if i == 0 {
				break
			}
			i--
		}
		return out, nil
	}
	for i := start; i < a.numLeaves && uint64(len(out)) < max; i++ {
		h, err := a.leafAtLocked(i)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// RootHash returns the current accumulator root: the bagging fold over the
// peaks from smallest to largest, or the zero hash for an empty tree.
func (a *Accumulator) RootHash() common.HashValue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rootLocked()
}

func (a *Accumulator) rootLocked() common.HashValue {
	return bagFrom(a.peaks, 0)
}

// bagFrom right-folds peaks[from:] into a single hash: Bag(last) =
// peaks[last]; Bag(i) = hash(peaks[i], Bag(i+1)).
func bagFrom(peaks []common.HashValue, from int) common.HashValue {
	if from >= len(peaks) {
		return common.PlaceholderHash
	}
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= from; i-- {
		acc = common.HashPair(peaks[i], acc)
	}
	return acc
}

// NumLeaves returns the number of leaves appended so far.
func (a *Accumulator) NumLeaves() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.numLeaves
}

// GetInfo snapshots the current view for persistence (e.g. into BlockInfo).
func (a *Accumulator) GetInfo() *Info {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &Info{
		AccumulatorRoot:    a.rootLocked(),
		FrozenSubtreeRoots: append([]common.HashValue(nil), a.peaks...),
		NumLeaves:          a.numLeaves,
		NumNodes:           a.numNodes,
	}
}

// Fork returns an independent view at info, sharing this accumulator's
// backing store for reads but starting with an empty dirty set: appends on
// the fork never affect this accumulator (or the backing store) unless and
// until the fork is flushed. Because nodes are content-addressed, two
// forks that are both later flushed into the same backing column never
// overwrite each other: a node's key is its own hash, so divergent
// branches simply occupy distinct keys and shared prefixes dedupe.
func (a *Accumulator) Fork(info *Info) (*Accumulator, error) {
	if info == nil {
		info = a.GetInfo()
	}
	return NewWithInfo(a.store, info)
}

// Flush writes every buffered node to the backing column in one batch and
// clears the dirty set. It does not persist Info; the caller is
// responsible for saving the Info snapshot (as part of BlockInfo) wherever
// spec.md's commit order requires it.
func (a *Accumulator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.dirty) == 0 {
		return nil
	}
	batch := a.store.stageBatch(a.dirty)
	if err := batch.Write(); err != nil {
		return fmt.Errorf("accumulator: flushing nodes: %w", err)
	}
	a.dirty = make(map[common.HashValue]nodeChildren)
	return nil
}

// GetProof builds an inclusion proof for leaf index i.
func (a *Accumulator) GetProof(i uint64) (*Proof, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i >= a.numLeaves {
		return nil, fmt.Errorf("accumulator: leaf index %d out of range (have %d)", i, a.numLeaves)
	}

	peakIdx, height, rangeStart, err := a.locatePeak(i)
	if err != nil {
		return nil, err
	}

	var steps []ProofStep
	if err := a.collectPath(a.peaks[peakIdx], height, i-rangeStart, &steps); err != nil {
		return nil, err
	}

	if peakIdx < len(a.peaks)-1 {
		steps = append(steps, ProofStep{Sibling: bagFrom(a.peaks, peakIdx+1), Right: true})
	}
	for j := peakIdx - 1; j >= 0; j-- {
		steps = append(steps, ProofStep{Sibling: a.peaks[j], Right: false})
	}

	return &Proof{LeafIndex: i, Siblings: steps}, nil
}

// collectPath walks from node down to the leaf at index within it,
// appending one ProofStep per level in leaf-to-root order (it recurses
// first, then appends, so the deepest sibling lands first in steps —
// exactly the order Proof.Verify folds in).
func (a *Accumulator) collectPath(node common.HashValue, height uint8, index uint64, steps *[]ProofStep) error {
	if height == 0 {
		return nil
	}
	left, right, err := a.getChildren(node)
	if err != nil {
		return err
	}
	half := uint64(1) << (height - 1)
	if index < half {
		if err := a.collectPath(left, height-1, index, steps); err != nil {
			return err
		}
		*steps = append(*steps, ProofStep{Sibling: right, Right: true})
		return nil
	}
	if err := a.collectPath(right, height-1, index-half, steps); err != nil {
		return err
	}
	*steps = append(*steps, ProofStep{Sibling: left, Right: false})
	return nil
}

// locatePeak finds which peak covers leaf index i, that peak's height,
// and the index of its first leaf. Peaks cover contiguous, left-to-right
// leaf ranges sized 2^height.
func (a *Accumulator) locatePeak(i uint64) (peakIdx int, height uint8, rangeStart uint64, err error) {
	var start uint64
	for idx, h := range a.peakHeights {
		span := uint64(1) << h
		if i < start+span {
			return idx, h, start, nil
		}
		start += span
	}
	return 0, 0, 0, fmt.Errorf("accumulator: leaf index %d not covered by any peak", i)
}
