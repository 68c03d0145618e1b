package types

import (
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/params"
)

// Epoch is a contiguous block-number window with fixed consensus
// parameters. It is reloaded from StateDB_vm2 whenever the chain connects
// a block at EndBlockNumber.
type Epoch struct {
	StartBlockNumber      uint64
	EndBlockNumber        uint64 // exclusive
	BlockGasLimit         uint64
	Strategy              params.ConsensusStrategy
	BaseRewardAmount      uint64
	RewardHalvingInterval uint64
}

// Contains reports whether height falls inside [Start, End).
func (e *Epoch) Contains(height uint64) bool {
	return height >= e.StartBlockNumber && height < e.EndBlockNumber
}

// UncleMap tracks uncle header ids seen within the current epoch, mapping
// each to the block number that minted it (referenced it in a body).
// Scoped to one Chain; rebuilt on epoch transition or on a fork landing
// outside the cached epoch.
type UncleMap map[common.HashValue]uint64

// NewUncleMap returns an empty map.
func NewUncleMap() UncleMap {
	return make(UncleMap)
}

// Has reports whether id is already recorded as an uncle in this epoch.
func (m UncleMap) Has(id common.HashValue) bool {
	_, ok := m[id]
	return ok
}

// Insert records id as minted at blockNumber.
func (m UncleMap) Insert(id common.HashValue, blockNumber uint64) {
	m[id] = blockNumber
}
