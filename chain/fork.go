package chain

import (
	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/types"
)

// Fork returns an independent Chain view rooted at blockId — any already
// connected block, not necessarily the current head — sharing this
// chain's storage, config, driver and VM instances. The two Chains can
// Apply divergent blocks concurrently; the blocks, infos and nodes that
// execution persists go to content-keyed, idempotent-writer columns, and
// only Connect moves a Chain's own head, so a losing fork's writes are
// simply never referenced again.
func (c *Chain) Fork(blockId common.HashValue) (*Chain, error) {
	header, err := c.store.GetBlockHeaderByHash(blockId)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, types.ErrNotFound
	}
	info, err := c.store.GetBlockInfo(blockId)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, types.ErrNotFound
	}

	txnAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorTxn), toAccInfo(info.TxnAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	blockAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorBlock), toAccInfo(info.BlockAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	vmStateAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorVMState), toAccInfo(info.VMStateAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	multiState, err := multiStateFromAccumulator(vmStateAcc)
	if err != nil {
		return nil, err
	}

	nc := &Chain{
		cfg:        c.cfg,
		store:      c.store,
		vm1:        c.vm1,
		vm2:        c.vm2,
		driver:     c.driver,
		metrics:    c.metrics,
		log:        c.log,
		head:       header,
		headInfo:   info,
		txnAcc:     txnAcc,
		blockAcc:   blockAcc,
		vmStateAcc: vmStateAcc,
		stateDB1:   statedb.New(c.store.GetStateStore(blockstore.StateVM1), &multiState.StateRootVM1),
		stateDB2:   statedb.New(c.store.GetStateStore(blockstore.StateVM2), &multiState.StateRootVM2),
	}

	epoch, err := c.vm2.GetEpochFromStateDB(nc.stateDB2)
	if err != nil {
		return nil, err
	}
	nc.epoch = epoch

	// The uncle cache is only reusable unchanged when the forked head
	// still falls within the epoch window this chain is currently
	// caching; otherwise it must be rebuilt against the fork's own
	// window.
	c.mu.RLock()
	sameEpoch := c.epoch != nil && c.epoch.Contains(header.Number) && c.epoch.StartBlockNumber == epoch.StartBlockNumber
	if sameEpoch {
		nc.uncleCache = make(types.UncleMap, len(c.uncleCache))
		for id, n := range c.uncleCache {
			nc.uncleCache[id] = n
		}
	}
	c.mu.RUnlock()

	if !sameEpoch {
		if err := nc.rebuildUncleCache(); err != nil {
			return nil, err
		}
	}
	return nc, nil
}

// FindAncestor returns the highest common ancestor of c and other:
// the hash and number of the newest block that both chains agree is
// canonical at that height. Walks down from the lower of the two heads
// comparing GetHashByNumber results, per spec.md's find_ancestor.
func (c *Chain) FindAncestor(other *Chain) (common.HashValue, uint64, bool, error) {
	c.mu.RLock()
	n := c.head.Number
	c.mu.RUnlock()
	other.mu.RLock()
	if other.head.Number < n {
		n = other.head.Number
	}
	other.mu.RUnlock()

	for {
		id1, ok1, err := c.GetHashByNumber(n)
		if err != nil {
			return common.HashValue{}, 0, false, err
		}
		id2, ok2, err := other.GetHashByNumber(n)
		if err != nil {
			return common.HashValue{}, 0, false, err
		}
		if ok1 && ok2 && id1 == id2 {
			return id1, n, true, nil
		}
		if n == 0 {
			return common.HashValue{}, 0, false, nil
		}
		n--
	}
}
