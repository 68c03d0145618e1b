package chain

import "github.com/starcoinorg/stargo-chain/types"

// rebuildUncleCache rebuilds the uncle cache from scratch, taking the
// write lock itself — used by Open before any other goroutine can see c.
func (c *Chain) rebuildUncleCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildUncleCacheLocked()
}

// rebuildUncleCacheLocked scans every connected block in [epoch.start,
// head.number] and re-inserts the uncles its body references. Callers
// must already hold c.mu for writing. Lazy, on-demand rebuild rather
// than an incrementally-maintained index, since it only needs to run on
// an epoch boundary or a fork landing outside the cached window — both
// rare compared to normal block connects.
func (c *Chain) rebuildUncleCacheLocked() error {
	fresh := types.NewUncleMap()
	start := c.epoch.StartBlockNumber
	if start > c.head.Number {
		c.uncleCache = fresh
		return nil
	}
	for n := start; n <= c.head.Number; n++ {
		id, err := c.blockAcc.GetLeaf(n)
		if err != nil {
			continue
		}
		block, err := c.store.GetBlockByHash(id)
		if err != nil {
			return err
		}
		if block == nil {
			continue
		}
		for _, uncle := range block.Body.Uncles {
			fresh.Insert(uncle.Id(), n)
		}
	}
	c.uncleCache = fresh
	return nil
}
