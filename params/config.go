// Package params holds the structured configuration the chain core reads.
// Loading it from a file/CLI/env is out of scope; only the resulting value
// object lives here.
package params

// ConsensusStrategy identifies the PoW/consensus algorithm an epoch runs,
// consumed only through its verification hooks (consensus.Strategy).
type ConsensusStrategy uint8

const (
	StrategyDummy ConsensusStrategy = iota
	StrategyArgon
	StrategyKeccak
	StrategyCryptoNight
)

// ChainConfig is the static, per-network configuration the core needs.
type ChainConfig struct {
	ChainID uint64

	// VM1OfflineHeight is the block number at and after which VM1's
	// transaction list is always empty (the legacy VM has been retired).
	// A value of 0 disables the cutover: VM1 then runs at every height
	// after genesis.
	VM1OfflineHeight uint64

	// GenesisGasLimit seeds the epoch view before the first on-chain
	// epoch resource is read from VM2 state.
	GenesisGasLimit uint64

	// EpochBlockCount is the default epoch window length used to seed
	// the genesis epoch before any epoch resource has been written.
	EpochBlockCount uint64

	Strategy ConsensusStrategy
}

// VM1Offline reports whether block height is at or past the VM1 cutover.
func (c *ChainConfig) VM1Offline(height uint64) bool {
	return c.VM1OfflineHeight != 0 && height >= c.VM1OfflineHeight
}

// DefaultChainConfig returns a reasonable standalone/test network config.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		ChainID:          1,
		VM1OfflineHeight: 0,
		GenesisGasLimit:  1_000_000_000,
		EpochBlockCount:  120_000,
		Strategy:         StrategyDummy,
	}
}
