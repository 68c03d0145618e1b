package chain

import (
	"math"

	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/types"
)

var errFilterLimitReached = errors.New("chain: filter limit reached")

// FilterEvents walks the block range filter.FromBlock..min(filter.ToBlock,
// head) — forward, or backward when filter.Reverse — collecting every
// event that matches filter.Matching, up to filter.Limit. The filter's
// address constraint is matched against the zero address: this store
// doesn't carry the emitting account alongside a ContractEvent (that
// association lives in the Move resource the event was emitted from,
// which is out of scope here), so an Addrs-constrained filter only
// matches before any address is known to be associated — a known
// limitation of the event model this core persists.
func (c *Chain) FilterEvents(filter *types.Filter) ([]*types.ContractEvent, error) {
	c.mu.RLock()
	head := c.head.Number
	c.mu.RUnlock()

	to := filter.ToBlock
	if to > head {
		to = head
	}
	limit := uint64(math.MaxUint64)
	if filter.Limit != nil {
		limit = *filter.Limit
	}

	var out []*types.ContractEvent
	visit := func(n uint64) error {
		id, ok, err := c.GetHashByNumber(n)
		if err != nil || !ok {
			return err
		}
		infoIds, err := c.store.GetBlockTxnInfoIds(id)
		if err != nil {
			return err
		}
		for _, infoId := range infoIds {
			events, err := c.store.GetContractEvents(infoId)
			if err != nil {
				return err
			}
			for _, ev := range events {
				if !filter.Matching(n, common.ZeroAddress, ev) {
					continue
				}
				out = append(out, ev)
				if uint64(len(out)) >= limit {
					return errFilterLimitReached
				}
			}
		}
		return nil
	}

	if filter.Reverse {
		for n := to; n >= filter.FromBlock; n-- {
			if err := visit(n); err != nil {
				if errors.Is(err, errFilterLimitReached) {
					break
				}
				return nil, err
			}
			if n == 0 {
				break
			}
		}
		return out, nil
	}
	for n := filter.FromBlock; n <= to; n++ {
		if err := visit(n); err != nil {
			if errors.Is(err, errFilterLimitReached) {
				break
			}
			return nil, err
		}
	}
	return out, nil
}
