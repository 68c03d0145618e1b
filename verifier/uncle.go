package verifier

import (
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/types"
)

// CanBeUncle reports whether candidate h may be referenced as an uncle by
// a block at candidateNumber: h must be strictly older, not already
// recorded as an uncle this epoch, and not present on the canonical
// chain itself.
func CanBeUncle(chain ChainView, candidateNumber uint64, h *types.BlockHeader) bool {
	id := h.Id()
	if h.Number >= candidateNumber {
		return false
	}
	if chain.HasUncle(id) {
		return false
	}
	canonicalId, onChain, err := chain.GetHashByNumber(h.Number)
	if err == nil && onChain && canonicalId == id {
		return false
	}
	return true
}

func verifyUncles(chain ChainView, block *types.Block) error {
	uncles := block.Uncles()
	if len(uncles) == 0 {
		return nil
	}
	seen := make(map[common.HashValue]bool, len(uncles))
	for _, uncle := range uncles {
		id := uncle.Id()
		if seen[id] {
			return types.NewVerifyBlockFailed(types.VerifyFieldUncle, "duplicate uncle within block")
		}
		seen[id] = true

		parent, err := chain.GetBlockHeaderByHash(uncle.ParentHash)
		if err != nil {
			return err
		}
		if parent == nil || !chain.Epoch().Contains(parent.Number) {
			return types.NewVerifyBlockFailed(types.VerifyFieldUncle, "uncle parent not in current epoch window")
		}
		if !CanBeUncle(chain, block.Header.Number, uncle) {
			return types.NewVerifyBlockFailed(types.VerifyFieldUncle, "uncle rejected: duplicate or already canonical")
		}
	}
	return nil
}
