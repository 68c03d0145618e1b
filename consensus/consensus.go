// Package consensus exposes the verification-only hook the chain core
// consumes from the mining/consensus layer. Mining and PoW computation
// themselves are out of scope (spec.md §1); the core only needs to check
// that a candidate header's difficulty/nonce satisfy its strategy.
package consensus

import (
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/types"
)

// Strategy verifies the consensus-attestation fields of a header
// (difficulty target and nonce/extra) against its parent. It does not
// compute or mine a valid header — only check one.
type Strategy interface {
	VerifyHeader(header, parent *types.BlockHeader) error
}

// dummyStrategy accepts any header whose difficulty is non-zero once the
// chain is past genesis. It stands in for the real PoW target-verification
// math (Argon2/SHA3/CryptoNight), which is out of scope for this core —
// only the hook shape is, matching klaytn's own dummy consensus engine
// that no-ops VerifyHeader for test/standalone networks.
type dummyStrategy struct{}

func (dummyStrategy) VerifyHeader(header, parent *types.BlockHeader) error {
	if header.Number == 0 {
		return nil
	}
	if header.Difficulty.IsZero() {
		return types.NewVerifyBlockFailed(types.VerifyFieldConsensus, "difficulty must be non-zero past genesis")
	}
	return nil
}

// StrategyFor returns the verification hook for s. Every strategy
// currently resolves to the same structural check; a real deployment
// would dispatch to per-algorithm difficulty/nonce verifiers here.
func StrategyFor(s params.ConsensusStrategy) Strategy {
	switch s {
	case params.StrategyArgon, params.StrategyKeccak, params.StrategyCryptoNight:
		return dummyStrategy{}
	default:
		return dummyStrategy{}
	}
}
