package types

import "github.com/starcoinorg/stargo-chain/common"

// Filter selects a window of contract events across the chain: an
// inclusive block-number range plus any combination of event-key,
// address, and type-tag constraints (empty sets match anything).
type Filter struct {
	FromBlock uint64
	ToBlock   uint64
	EventKeys map[EventKey]struct{}
	Addrs     map[common.Address]struct{}
	TypeTags  map[TypeTag]struct{}
	Limit     *uint64
	Reverse   bool
}

// Matching reports whether blockNumber falls within the filter's window
// and event satisfies every non-empty constraint set. addr is the account
// the event was emitted under (not carried on ContractEvent itself, since
// the Move VM associates events with the emitting resource's address).
func (f *Filter) Matching(blockNumber uint64, addr common.Address, event *ContractEvent) bool {
	if blockNumber < f.FromBlock || blockNumber > f.ToBlock {
		return false
	}
	if len(f.EventKeys) > 0 {
		if _, ok := f.EventKeys[event.Key]; !ok {
			return false
		}
	}
	if len(f.Addrs) > 0 {
		if _, ok := f.Addrs[addr]; !ok {
			return false
		}
	}
	if len(f.TypeTags) > 0 {
		if _, ok := f.TypeTags[event.TypeTag]; !ok {
			return false
		}
	}
	return true
}
