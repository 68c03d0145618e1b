package types

import "github.com/starcoinorg/stargo-chain/common"

// AccumulatorInfo is the serializable snapshot of an accumulator's state,
// embedded in BlockInfo. It mirrors accumulator.Info field-for-field;
// kept as a distinct type here so the types package has no dependency on
// accumulator (which depends on storage/database), avoiding an import
// cycle between the two leaf packages.
type AccumulatorInfo struct {
	AccumulatorRoot    common.HashValue
	FrozenSubtreeRoots []common.HashValue
	NumLeaves          uint64
	NumNodes           uint64
}

// BlockInfo is produced only by a successful block execution and is
// uniquely identified by BlockId.
type BlockInfo struct {
	BlockId                common.HashValue
	TotalDifficulty        common.HashValue
	TxnAccumulatorInfo     *AccumulatorInfo
	BlockAccumulatorInfo   *AccumulatorInfo
	VMStateAccumulatorInfo *AccumulatorInfo
}

// MultiState is the pair of account-trie roots (VM1, VM2) associated with
// a committed block.
type MultiState struct {
	StateRootVM1 common.HashValue
	StateRootVM2 common.HashValue
}

// ChainStatus is a chain's head header plus its block-info, the minimal
// pair needed to resume execution after a restart.
type ChainStatus struct {
	HeadHeader *BlockHeader
	BlockInfo  *BlockInfo
}
