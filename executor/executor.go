// Package executor implements the block execution driver (spec.md C6): it
// builds the ordered VM1/VM2 transaction lists for a verified block,
// dispatches to both VM generations, merges their results into the three
// accumulators and the two state tries, enforces every post-execution
// invariant, and — on success — runs the commit sequence that makes the
// result durable. Nothing here decides whether a block becomes the new
// head; that is the chain package's job (connect).
package executor

import (
	"context"

	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/log"
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/types"
	"github.com/starcoinorg/stargo-chain/vm"
)

// Forked bundles the three accumulators and two state-dbs already forked at
// the parent block's committed state — the chain package's job, per
// spec.md's data flow ("C7 execute: fork C2 + C1 -> C6 driver"). Execute
// mutates these in place; on any invariant failure the caller discards them
// without ever calling Flush.
type Forked struct {
	TxnAccumulator     *accumulator.Accumulator
	BlockAccumulator   *accumulator.Accumulator
	VMStateAccumulator *accumulator.Accumulator
	StateDB1           *statedb.StateDB
	StateDB2           *statedb.StateDB
}

// Request is everything Execute needs beyond the driver's own fixed
// configuration.
type Request struct {
	Block           *types.Block
	Parent          *types.BlockHeader
	ParentBlockInfo *types.BlockInfo // nil only when Parent is the zero-value (no parent, e.g. a detached genesis check)
	Epoch           *types.Epoch
	Forked          Forked
}

// ExecutedBlock is the result of a successful Execute: the block itself,
// the BlockInfo it produced, and the pair of post-execution state roots.
type ExecutedBlock struct {
	Block      *types.Block
	BlockInfo  *types.BlockInfo
	MultiState types.MultiState
}

// Driver owns the fixed collaborators (VM instances, chain config, the
// block store) that every Execute call shares.
type Driver struct {
	cfg     *params.ChainConfig
	store   *blockstore.Store
	vm1     vm.VM1
	vm2     vm.VM2
	metrics vm.Metrics
	log     *log.Logger

	directSave map[common.HashValue]*DirectSaveEntry
}

// New builds a Driver. metrics may be nil.
func New(cfg *params.ChainConfig, store *blockstore.Store, vm1 vm.VM1, vm2 vm.VM2, metrics vm.Metrics) *Driver {
	return &Driver{
		cfg:     cfg,
		store:   store,
		vm1:     vm1,
		vm2:     vm2,
		metrics: metrics,
		log:     log.NewModuleLogger(log.ModuleExecutor),
	}
}

// buildT1 assembles the VM1 transaction list per spec.md §4.6: empty at
// genesis and at/after the VM1 cutover height, otherwise the block
// metadata followed by the body's VM1 user transactions.
func (d *Driver) buildT1(block *types.Block, parent *types.BlockHeader) []vm.Transaction1 {
	header := block.Header
	if header.Number == 0 || d.cfg.VM1Offline(header.Number) {
		return nil
	}
	out := make([]vm.Transaction1, 0, 1+len(block.Body.VM1Transactions))
	out = append(out, vm.Transaction1{Metadata: &vm.BlockMetadata{
		ParentHash:    header.ParentHash,
		Number:        header.Number,
		Timestamp:     header.Timestamp,
		Author:        header.Author,
		ParentGasUsed: parent.GasUsed,
	}})
	for i := range block.Body.VM1Transactions {
		out = append(out, vm.Transaction1{User: &block.Body.VM1Transactions[i]})
	}
	return out
}

// buildT2 assembles the VM2 transaction list: BuildBlockTransactions
// prepends the block metadata (absent at genesis) and wraps the body's
// VM2 user transactions.
func (d *Driver) buildT2(block *types.Block, parent *types.BlockHeader) []vm.Transaction2 {
	header := block.Header
	var metadata *vm.BlockMetadata2
	if header.Number != 0 {
		metadata = &vm.BlockMetadata2{
			ParentHash:    header.ParentHash,
			Number:        header.Number,
			Timestamp:     header.Timestamp,
			Author:        header.Author,
			ParentGasUsed: parent.GasUsed,
		}
	}
	return d.vm2.BuildBlockTransactions(block.Body.VM2Transactions, metadata)
}

func sumGasUsed(infos []*types.TransactionInfo) uint64 {
	var total uint64
	for _, info := range infos {
		total += info.GasUsed
	}
	return total
}

func infoHashes(infos []*types.TransactionInfo) []common.HashValue {
	out := make([]common.HashValue, len(infos))
	for i, info := range infos {
		out[i] = info.Id()
	}
	return out
}

// Execute runs a verified block to completion: dual-VM execution,
// post-execution invariant checks, and — if every invariant holds — the
// full commit sequence from spec.md §4.6. Any invariant failure aborts
// before the first Flush, so req.Forked's accumulators and state-dbs are
// safe for the caller to simply discard.
func (d *Driver) Execute(ctx context.Context, req *Request) (*ExecutedBlock, error) {
	block := req.Block

	if entry, ok := d.directSave[block.Id()]; ok {
		return d.executeDirect(ctx, req, entry)
	}

	T1 := d.buildT1(block, req.Parent)
	T2 := d.buildT2(block, req.Parent)

	exec1, err := d.vm1.BlockExecute(ctx, req.Forked.StateDB1, T1, req.Epoch.BlockGasLimit, d.metrics)
	if err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	gas1 := sumGasUsed(exec1.TxnInfos)
	var gasLimit2 uint64
	if gas1 < req.Epoch.BlockGasLimit {
		gasLimit2 = req.Epoch.BlockGasLimit - gas1
	}

	exec2, err := d.vm2.ExecuteTransactions(ctx, req.Forked.StateDB2, T2, gasLimit2, d.metrics)
	if err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	return d.mergeAndCommit(req, T1, T2, exec1, exec2)
}

// mergeAndCommit implements the "Post-execution invariants" and "Commit
// order" subsections of spec.md §4.6, shared by the normal and
// direct-save paths.
func (d *Driver) mergeAndCommit(req *Request, T1 []vm.Transaction1, T2 []vm.Transaction2, exec1 *vm.BlockExecutedData, exec2 *vm.BlockExecutedData2) (*ExecutedBlock, error) {
	block := req.Block
	header := block.Header
	f := req.Forked

	if len(exec1.TxnInfos) != len(T1) {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "vm1 produced a different number of txn-infos than transactions submitted")
	}
	if len(exec2.TxnInfos) != len(T2) {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "vm2 produced a different number of txn-infos than transactions submitted")
	}

	preTxnLeaves := f.TxnAccumulator.NumLeaves()

	vmStateRoot, err := f.VMStateAccumulator.Append([]common.HashValue{exec1.StateRoot, exec2.StateRoot})
	if err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	if vmStateRoot != header.StateRoot {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "vm-state accumulator root does not match header.state_root")
	}

	gasUsed := sumGasUsed(exec1.TxnInfos) + sumGasUsed(exec2.TxnInfos)
	if gasUsed != header.GasUsed {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "recomputed gas_used does not match header.gas_used")
	}

	if _, err := f.TxnAccumulator.Append(infoHashes(exec1.TxnInfos)); err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	txnRoot, err := f.TxnAccumulator.Append(infoHashes(exec2.TxnInfos))
	if err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	if txnRoot != header.TxnAccumulatorRoot {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "txn accumulator root does not match header.txn_accumulator_root")
	}

	// Commit order (spec.md §4.6), steps 1-9.
	if err := f.StateDB2.Flush(); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}
	if err := f.StateDB1.Flush(); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}
	if err := f.VMStateAccumulator.Flush(); err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	if err := f.TxnAccumulator.Flush(); err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	if _, err := f.BlockAccumulator.Append([]common.HashValue{block.Id()}); err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}
	if err := f.BlockAccumulator.Flush(); err != nil {
		return nil, types.WrapBlockAccumulatorFlushErr(err)
	}

	var preTotalDifficulty common.HashValue
	if req.ParentBlockInfo != nil {
		preTotalDifficulty = req.ParentBlockInfo.TotalDifficulty
	}
	blockInfo := &types.BlockInfo{
		BlockId:                block.Id(),
		TotalDifficulty:        common.AddDifficulty(preTotalDifficulty, header.Difficulty),
		TxnAccumulatorInfo:     toAccumulatorInfo(f.TxnAccumulator.GetInfo()),
		BlockAccumulatorInfo:   toAccumulatorInfo(f.BlockAccumulator.GetInfo()),
		VMStateAccumulatorInfo: toAccumulatorInfo(f.VMStateAccumulator.GetInfo()),
	}

	startGlobalIndex := preTxnLeaves + uint64(len(T1))
	startTxnIndex := uint64(len(exec1.TxnInfos))
	if err := d.vm2.SaveExecutedTransactions(d.store, block.Id(), header.Number, T2, exec2, startGlobalIndex, startTxnIndex); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	vm1Infos := make([]*types.RichTransactionInfo, len(exec1.TxnInfos))
	for i, info := range exec1.TxnInfos {
		rich := &types.RichTransactionInfo{
			TransactionInfo:        *info,
			BlockId:                block.Id(),
			BlockNumber:            header.Number,
			TransactionIndex:       uint64(i),
			TransactionGlobalIndex: preTxnLeaves + uint64(i),
		}
		vm1Infos[i] = rich
		if i < len(exec1.TxnEvents) {
			if events := exec1.TxnEvents[i]; len(events) > 0 {
				if err := d.store.SaveContractEvents(rich.Id(), events); err != nil {
					return nil, types.WrapBlockChainStateErr(err)
				}
			}
		}
	}
	if err := d.store.SaveTransactionInfos(vm1Infos); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	var vm1TxnIds []common.HashValue
	var vm1UserTxns []types.SignedUserTransaction
	for _, txn := range T1 {
		if txn.User != nil {
			vm1TxnIds = append(vm1TxnIds, txn.User.Hash)
			vm1UserTxns = append(vm1UserTxns, *txn.User)
		}
	}
	if len(vm1UserTxns) > 0 {
		if err := d.store.SaveTransactionBatch(vm1UserTxns); err != nil {
			return nil, types.WrapBlockChainStateErr(err)
		}
	}
	if err := d.store.SaveBlockTransactionIds(block.Id(), vm1TxnIds); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	infoIds := make([]common.HashValue, 0, len(vm1Infos)+len(exec2.TxnInfos))
	for _, info := range vm1Infos {
		infoIds = append(infoIds, info.Id())
	}
	for _, info := range exec2.TxnInfos {
		infoIds = append(infoIds, info.Id())
	}
	if err := d.store.SaveBlockTxnInfoIds(block.Id(), infoIds); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	if err := d.store.CommitBlock(block); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}
	if err := d.store.SaveBlockInfo(blockInfo); err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}

	return &ExecutedBlock{
		Block:      block,
		BlockInfo:  blockInfo,
		MultiState: types.MultiState{StateRootVM1: exec1.StateRoot, StateRootVM2: exec2.StateRoot},
	}, nil
}

func toAccumulatorInfo(info *accumulator.Info) *types.AccumulatorInfo {
	return &types.AccumulatorInfo{
		AccumulatorRoot:    info.AccumulatorRoot,
		FrozenSubtreeRoots: info.FrozenSubtreeRoots,
		NumLeaves:          info.NumLeaves,
		NumNodes:           info.NumNodes,
	}
}
