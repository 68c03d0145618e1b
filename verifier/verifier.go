// Package verifier implements the staged predicate chain (spec.md C5)
// that checks a candidate block using only data available before
// execution: structure, ancestry, consensus attestation, and uncles.
package verifier

import (
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/consensus"
	"github.com/starcoinorg/stargo-chain/types"
)

// ChainView is the read-only slice of Chain the verifier needs. It is
// declared here, not in the chain package, so verifier has no import-time
// dependency on chain — chain.Chain satisfies it structurally.
type ChainView interface {
	ChainID() uint64
	CurrentHeader() *types.BlockHeader
	GetBlockHeaderByHash(id common.HashValue) (*types.BlockHeader, error)
	GetHashByNumber(number uint64) (common.HashValue, bool, error)
	HasUncle(id common.HashValue) bool
	Epoch() *types.Epoch
}

// Verifier checks a candidate block and returns an error describing the
// first failed predicate, or nil if the block passes every check this
// variant runs.
type Verifier interface {
	VerifyBlock(chain ChainView, block *types.Block) error
}

// None checks structure only: the body hash recorded in the header must
// match the actual body.
type None struct{}

func (None) VerifyBlock(chain ChainView, block *types.Block) error {
	return verifyBodyHash(block)
}

func verifyBodyHash(block *types.Block) error {
	if block.Header.BodyHash != block.Body.Hash() {
		return types.NewVerifyBlockFailed(types.VerifyFieldBody, "body_hash does not match header")
	}
	return nil
}

// Basic adds ancestry and header well-formedness checks on top of None.
type Basic struct{}

func (Basic) VerifyBlock(chain ChainView, block *types.Block) error {
	if err := verifyBodyHash(block); err != nil {
		return err
	}
	return verifyBasic(chain, block.Header)
}

func verifyBasic(chain ChainView, header *types.BlockHeader) error {
	if header.ChainID != chain.ChainID() {
		return types.NewVerifyBlockFailed(types.VerifyFieldHeader, "chain_id mismatch")
	}
	if header.Number != 0 && header.Author == common.ZeroAddress {
		return types.NewVerifyBlockFailed(types.VerifyFieldHeader, "author auth-key is not well-formed")
	}
	if header.Number == 0 {
		return nil // genesis has no parent to check against
	}
	parent, err := chain.GetBlockHeaderByHash(header.ParentHash)
	if err != nil {
		return err
	}
	if parent == nil {
		return types.NewVerifyBlockFailed(types.VerifyFieldHeader, "parent does not exist")
	}
	if header.Number != parent.Number+1 {
		return types.NewVerifyBlockFailed(types.VerifyFieldHeader, "number is not parent.number + 1")
	}
	if header.Timestamp <= parent.Timestamp {
		return types.NewVerifyBlockFailed(types.VerifyFieldHeader, "timestamp does not advance past parent")
	}
	return nil
}

// Consensus adds difficulty/nonce and uncle checks on top of Basic.
type Consensus struct{}

func (Consensus) VerifyBlock(chain ChainView, block *types.Block) error {
	if err := (Basic{}).VerifyBlock(chain, block); err != nil {
		return err
	}
	header := block.Header
	var parent *types.BlockHeader
	if header.Number > 0 {
		var err error
		parent, err = chain.GetBlockHeaderByHash(header.ParentHash)
		if err != nil {
			return err
		}
	}
	strategy := consensus.StrategyFor(chain.Epoch().Strategy)
	if err := strategy.VerifyHeader(header, parent); err != nil {
		return err
	}
	return verifyUncles(chain, block)
}

// Full adds body transaction validation on top of Consensus.
type Full struct{}

func (Full) VerifyBlock(chain ChainView, block *types.Block) error {
	if err := (Consensus{}).VerifyBlock(chain, block); err != nil {
		return err
	}
	for _, txn := range block.Body.VM1Transactions {
		if err := verifyTransactionFormat(txn); err != nil {
			return err
		}
	}
	for _, txn := range block.Body.VM2Transactions {
		if err := verifyTransactionFormat(txn); err != nil {
			return err
		}
	}
	return nil
}

func verifyTransactionFormat(txn types.SignedUserTransaction) error {
	if txn.Hash.IsZero() {
		return types.NewVerifyBlockFailed(types.VerifyFieldTransaction, "transaction hash is zero")
	}
	if len(txn.Raw) == 0 {
		return types.NewVerifyBlockFailed(types.VerifyFieldTransaction, "transaction has no payload")
	}
	return nil
}
