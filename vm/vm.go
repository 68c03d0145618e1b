// Package vm defines the contracts the chain core consumes from the two
// Move VM generations (spec.md §6.2). The VMs themselves are black-box
// collaborators — out of scope per spec.md §1 — so this package only
// carries the data shapes that cross the boundary: transaction envelopes,
// block metadata, and execution results.
package vm

import (
	"context"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/types"
)

// BlockMetadata is the synthetic first transaction VM1 executes for a
// block: it carries the context a transaction needs but that isn't part
// of the signed user transaction itself. It deliberately excludes the
// block's own id — that id is the hash of the finished header, which
// isn't known until after execution produces state_root and gas_used.
type BlockMetadata struct {
	ParentHash    common.HashValue
	Number        uint64
	Timestamp     uint64
	Author        common.Address
	ParentGasUsed uint64
}

// BlockMetadata2 is VM2's equivalent of BlockMetadata.
type BlockMetadata2 struct {
	ParentHash    common.HashValue
	Number        uint64
	Timestamp     uint64
	Author        common.Address
	ParentGasUsed uint64
}

// Transaction1 is one entry in a VM1 transaction list: either the block
// metadata (always first, when present) or a user transaction.
type Transaction1 struct {
	Metadata *BlockMetadata
	User     *types.SignedUserTransaction
}

// Transaction2 is VM2's equivalent of Transaction1.
type Transaction2 struct {
	Metadata *BlockMetadata2
	User     *types.SignedUserTransaction
}

// TableInfo is an opaque Move table-storage descriptor VM1 reports
// alongside its other execution outputs; the core persists it without
// interpreting it.
type TableInfo struct {
	Id  common.HashValue
	Raw []byte
}

// Metrics is the optional execution/commit instrumentation hook VM calls
// accept, implemented by the metrics package over rcrowley/go-metrics.
type Metrics interface {
	ObserveExecutedTxns(n int)
	ObserveGasUsed(n uint64)
}

// BlockExecutedData is VM1's result for one block.
type BlockExecutedData struct {
	StateRoot     common.HashValue
	TxnInfos      []*types.TransactionInfo
	TxnEvents     [][]*types.ContractEvent // parallel to TxnInfos
	TxnTableInfos []TableInfo
	WriteSets     [][]statedb.WriteOp // parallel to TxnInfos
}

// BlockExecutedData2 is VM2's result for one block.
type BlockExecutedData2 struct {
	StateRoot common.HashValue
	TxnInfos  []*types.TransactionInfo
	TxnEvents [][]*types.ContractEvent
	WriteSets [][]statedb.WriteOp
}

// VM1 is the legacy VM generation, retired at a chain's configured
// vm1_offline_height.
type VM1 interface {
	BlockExecute(ctx context.Context, stateDB *statedb.StateDB, transactions []Transaction1, gasLimit uint64, metrics Metrics) (*BlockExecutedData, error)
}

// VM2 is the current VM generation, always active post-genesis.
type VM2 interface {
	ExecuteTransactions(ctx context.Context, stateDB *statedb.StateDB, transactions []Transaction2, gasLimit uint64, metrics Metrics) (*BlockExecutedData2, error)
	BuildBlockTransactions(userTxns []types.SignedUserTransaction, metadata *BlockMetadata2) []Transaction2
	SaveExecutedTransactions(store *blockstore.Store, blockId common.HashValue, blockNumber uint64, transactions []Transaction2, executed *BlockExecutedData2, startGlobalIndex uint64, startTxnIndex uint64) error
	GetEpochFromStateDB(stateDB *statedb.StateDB) (*types.Epoch, error)
}
