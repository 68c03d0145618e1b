package chain

import (
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/types"
)

// GetBlock returns the block with the given id, or (nil, nil) if it has
// never been committed (on any fork, not just the canonical chain).
func (c *Chain) GetBlock(id common.HashValue) (*types.Block, error) {
	return c.store.GetBlockByHash(id)
}

// GetBlockByNumber returns the canonical block at height number, or
// (nil, nil) if number is beyond the current head.
func (c *Chain) GetBlockByNumber(number uint64) (*types.Block, error) {
	id, ok, err := c.GetHashByNumber(number)
	if err != nil || !ok {
		return nil, err
	}
	return c.store.GetBlockByHash(id)
}

// GetBlockInfo returns the BlockInfo for id, or (nil, nil) if absent.
func (c *Chain) GetBlockInfo(id common.HashValue) (*types.BlockInfo, error) {
	return c.store.GetBlockInfo(id)
}

// GetTotalDifficulty returns the cumulative difficulty recorded for id,
// or the zero value if id was never executed.
func (c *Chain) GetTotalDifficulty(id common.HashValue) (common.HashValue, error) {
	info, err := c.store.GetBlockInfo(id)
	if err != nil || info == nil {
		return common.HashValue{}, err
	}
	return info.TotalDifficulty, nil
}

// ExistBlock reports whether id has ever been committed, canonical or not.
func (c *Chain) ExistBlock(id common.HashValue) (bool, error) {
	header, err := c.store.GetBlockHeaderByHash(id)
	if err != nil {
		return false, err
	}
	return header != nil, nil
}

// GetBlockIds returns up to max canonical block ids starting at start
// (by height), walking backward when reverse is true — the windowed
// reader spec.md's supplemented features add for paginated block
// listing. The block accumulator's leaves already are the id sequence
// this needs.
func (c *Chain) GetBlockIds(start uint64, reverse bool, max uint64) ([]common.HashValue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blockAcc.GetLeaves(start, reverse, max)
}

// GetBlocksByNumber resolves GetBlockIds into full blocks. A nil number
// starts from the current head when reverse, or genesis otherwise.
func (c *Chain) GetBlocksByNumber(number *uint64, reverse bool, max uint64) ([]*types.Block, error) {
	c.mu.RLock()
	head := c.head.Number
	c.mu.RUnlock()

	start := uint64(0)
	if reverse {
		start = head
	}
	if number != nil {
		start = *number
	}

	ids, err := c.GetBlockIds(start, reverse, max)
	if err != nil {
		return nil, err
	}
	return c.store.GetBlocks(ids)
}

// EpochUncles returns a snapshot of the uncle ids cached for the current
// epoch window, mapped to the block number that minted each.
func (c *Chain) EpochUncles() types.UncleMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(types.UncleMap, len(c.uncleCache))
	for id, n := range c.uncleCache {
		out[id] = n
	}
	return out
}

// GetTransaction returns a previously saved transaction by hash.
func (c *Chain) GetTransaction(hash common.HashValue) (*types.SignedUserTransaction, error) {
	return c.store.GetTransaction(hash)
}

// GetTransactionInfoByGlobalIndex returns the info recorded at
// globalIndex in the canonical txn accumulator.
func (c *Chain) GetTransactionInfoByGlobalIndex(globalIndex uint64) (*types.RichTransactionInfo, error) {
	c.mu.RLock()
	infoId, err := c.txnAcc.GetLeaf(globalIndex)
	c.mu.RUnlock()
	if err != nil {
		return nil, nil
	}
	return c.store.GetTransactionInfo(infoId)
}

// GetTransactionInfos resolves up to max consecutive global indices
// starting at start, walking backward when reverse is true.
func (c *Chain) GetTransactionInfos(start uint64, reverse bool, max uint64) ([]*types.RichTransactionInfo, error) {
	c.mu.RLock()
	infoIds, err := c.txnAcc.GetLeaves(start, reverse, max)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return c.store.GetTransactionInfos(infoIds)
}

// GetTransactionInfo returns the info for hash among blocks currently on
// the canonical chain: transaction hashes can accumulate info ids from
// abandoned forks, so every candidate is checked against
// GetHashByNumber(info.BlockNumber) before it's accepted (spec.md's
// Open Question on how get_transaction_info resolves this — resolved
// here in favor of "first id, in insertion order, whose block is
// canonical" over re-sorting or returning every match).
func (c *Chain) GetTransactionInfo(hash common.HashValue) (*types.RichTransactionInfo, error) {
	ids, err := c.store.GetTransactionInfoIdsByTxnHash(hash)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		info, err := c.store.GetTransactionInfo(id)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		canonicalId, ok, err := c.GetHashByNumber(info.BlockNumber)
		if err != nil {
			return nil, err
		}
		if ok && canonicalId == info.BlockId {
			return info, nil
		}
	}
	return nil, nil
}
