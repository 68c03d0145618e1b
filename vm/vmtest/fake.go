// Package vmtest provides deterministic, hand-written fake VM1/VM2
// implementations so the executor and chain packages are testable without
// a real Move VM. No generated-mock framework is used here; these are
// plain structs implementing vm.VM1/vm.VM2 directly, the way klaytn's own
// test doubles (node/cn's dummy peer, api/debug's dummy backend) are
// hand-written rather than mockgen'd.
package vmtest

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/types"
	"github.com/starcoinorg/stargo-chain/vm"
)

var epochStatePath = []byte("__fake_vm__epoch__")

// VM1 deterministically "executes" a transaction list by writing one
// state-trie entry per transaction (keyed by its hash) and reporting
// fixed gas use of 1 per transaction. Good enough to exercise the
// executor's invariants without needing a real Move interpreter.
type VM1 struct{}

func txnKey(prefix string, index int, hash common.HashValue) []byte {
	return append([]byte(fmt.Sprintf("%s:%d:", prefix, index)), hash.Bytes()...)
}

func transaction1Hash(txn vm.Transaction1) common.HashValue {
	if txn.Metadata != nil {
		raw, _ := rlp.EncodeToBytes(txn.Metadata)
		return common.HashOfData(raw)
	}
	return txn.User.Hash
}

func (VM1) BlockExecute(ctx context.Context, stateDB *statedb.StateDB, transactions []vm.Transaction1, gasLimit uint64, metrics vm.Metrics) (*vm.BlockExecutedData, error) {
	result := &vm.BlockExecutedData{}
	var gasUsed uint64
	for i, txn := range transactions {
		h := transaction1Hash(txn)
		ws := []statedb.WriteOp{{Path: txnKey("vm1", i, h), Value: h.Bytes()}}
		stateDB.ApplyWriteSet(ws)
		newRoot, err := stateDB.Commit()
		if err != nil {
			return nil, err
		}
		gasUsed++
		if gasUsed > gasLimit {
			return nil, fmt.Errorf("vmtest: vm1 gas limit %d exceeded at txn %d", gasLimit, i)
		}
		info := &types.TransactionInfo{TransactionHash: h, StateRootHash: newRoot, EventRootHash: common.ZeroHash, GasUsed: 1, Status: types.TransactionStatusExecuted}
		result.TxnInfos = append(result.TxnInfos, info)
		result.TxnEvents = append(result.TxnEvents, nil)
		result.WriteSets = append(result.WriteSets, ws)
		if metrics != nil {
			metrics.ObserveExecutedTxns(1)
			metrics.ObserveGasUsed(1)
		}
	}
	result.StateRoot = stateDB.StateRoot()
	return result, nil
}

// VM2 mirrors VM1's determinism for the current VM generation, and adds
// the block-transaction assembly and persistence helpers spec.md's VM2
// contract requires.
type VM2 struct{}

func transaction2Hash(txn vm.Transaction2) common.HashValue {
	if txn.Metadata != nil {
		raw, _ := rlp.EncodeToBytes(txn.Metadata)
		return common.HashOfData(raw)
	}
	return txn.User.Hash
}

func (VM2) BuildBlockTransactions(userTxns []types.SignedUserTransaction, metadata *vm.BlockMetadata2) []vm.Transaction2 {
	var out []vm.Transaction2
	if metadata != nil {
		out = append(out, vm.Transaction2{Metadata: metadata})
	}
	for i := range userTxns {
		out = append(out, vm.Transaction2{User: &userTxns[i]})
	}
	return out
}

func (VM2) ExecuteTransactions(ctx context.Context, stateDB *statedb.StateDB, transactions []vm.Transaction2, gasLimit uint64, metrics vm.Metrics) (*vm.BlockExecutedData2, error) {
	result := &vm.BlockExecutedData2{}
	var gasUsed uint64
	for i, txn := range transactions {
		h := transaction2Hash(txn)
		ws := []statedb.WriteOp{{Path: txnKey("vm2", i, h), Value: h.Bytes()}}
		stateDB.ApplyWriteSet(ws)
		newRoot, err := stateDB.Commit()
		if err != nil {
			return nil, err
		}
		gasUsed++
		if gasUsed > gasLimit {
			return nil, fmt.Errorf("vmtest: vm2 gas limit %d exceeded at txn %d", gasLimit, i)
		}
		info := &types.TransactionInfo{TransactionHash: h, StateRootHash: newRoot, EventRootHash: common.ZeroHash, GasUsed: 1, Status: types.TransactionStatusExecuted}
		result.TxnInfos = append(result.TxnInfos, info)
		result.TxnEvents = append(result.TxnEvents, nil)
		result.WriteSets = append(result.WriteSets, ws)
		if metrics != nil {
			metrics.ObserveExecutedTxns(1)
			metrics.ObserveGasUsed(1)
		}
	}
	result.StateRoot = stateDB.StateRoot()
	return result, nil
}

// SaveExecutedTransactions builds a RichTransactionInfo per executed txn
// info (global index assigned from startGlobalIndex, within-block index
// continuing after the VM1 infos from startTxnIndex), saves them plus
// their events, and saves the underlying raw user transactions.
func (VM2) SaveExecutedTransactions(store *blockstore.Store, blockId common.HashValue, blockNumber uint64, transactions []vm.Transaction2, executed *vm.BlockExecutedData2, startGlobalIndex uint64, startTxnIndex uint64) error {
	var infos []*types.RichTransactionInfo
	var userTxns []types.SignedUserTransaction
	for i, info := range executed.TxnInfos {
		rich := &types.RichTransactionInfo{
			TransactionInfo:        *info,
			BlockId:                blockId,
			BlockNumber:            blockNumber,
			TransactionIndex:       startTxnIndex + uint64(i),
			TransactionGlobalIndex: startGlobalIndex + uint64(i),
		}
		infos = append(infos, rich)
		if i < len(transactions) && transactions[i].User != nil {
			userTxns = append(userTxns, *transactions[i].User)
		}
	}
	if err := store.SaveTransactionInfos(infos); err != nil {
		return err
	}
	if len(userTxns) > 0 {
		if err := store.SaveTransactionBatch(userTxns); err != nil {
			return err
		}
	}
	for i, rich := range infos {
		if events := executed.TxnEvents[i]; len(events) > 0 {
			if err := store.SaveContractEvents(rich.Id(), events); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefaultEpoch is the epoch vmtest VM2 instances fall back to until the
// genesis writer stages one explicitly at epochStatePath.
func DefaultEpoch() *types.Epoch {
	return &types.Epoch{
		StartBlockNumber: 0,
		EndBlockNumber:   1 << 32,
		BlockGasLimit:    10_000_000,
		Strategy:         params.StrategyDummy,
	}
}

// GetEpochFromStateDB reads the epoch resource staged at epochStatePath,
// falling back to DefaultEpoch if the chain never wrote one (e.g. a
// genesis built without an explicit epoch configuration).
func (VM2) GetEpochFromStateDB(stateDB *statedb.StateDB) (*types.Epoch, error) {
	raw, found, err := stateDB.Get(epochStatePath)
	if err != nil {
		return nil, err
	}
	if !found {
		return DefaultEpoch(), nil
	}
	var epoch types.Epoch
	if err := rlp.DecodeBytes(raw, &epoch); err != nil {
		return nil, err
	}
	return &epoch, nil
}

// WriteEpoch stages an epoch update in stateDB's pending write-set,
// ready for the caller's next Commit. Tests use this to exercise the
// epoch-rollover path deterministically.
func WriteEpoch(stateDB *statedb.StateDB, epoch *types.Epoch) error {
	raw, err := rlp.EncodeToBytes(epoch)
	if err != nil {
		return err
	}
	stateDB.ApplyWriteSet([]statedb.WriteOp{{Path: epochStatePath, Value: raw}})
	return nil
}
