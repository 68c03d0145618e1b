package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/executor"
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/storage/database"
	"github.com/starcoinorg/stargo-chain/types"
	"github.com/starcoinorg/stargo-chain/vm"
	"github.com/starcoinorg/stargo-chain/vm/vmtest"
)

// proposeHeader speculatively runs a trial execution against the parent's
// committed state to learn the fields only execution can determine
// (state_root, txn_accumulator_root, gas_used) — the way a block proposer
// operates in front of a chain it doesn't get to peek inside. It
// deliberately re-derives the same transaction-list shape executor.Driver
// builds internally (metadata-first, gated on VM1's offline height)
// rather than reaching into the driver, since a real proposer is an
// external component with no access to those internals either.
func proposeHeader(t *testing.T, cfg *params.ChainConfig, store *blockstore.Store, vm1 vmtest.VM1, vm2 vmtest.VM2, parent *types.BlockHeader, parentInfo *types.BlockInfo, number uint64, parentHash common.HashValue, body *types.Body) *types.BlockHeader {
	t.Helper()

	var txnAcc, blockAcc, vmStateAcc *accumulator.Accumulator
	var stateDB1, stateDB2 *statedb.StateDB
	var err error

	if parentInfo == nil {
		txnAcc = accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorTxn))
		blockAcc = accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorBlock))
		vmStateAcc = accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorVMState))
		stateDB1 = statedb.New(store.GetStateStore(blockstore.StateVM1), nil)
		stateDB2 = statedb.New(store.GetStateStore(blockstore.StateVM2), nil)
	} else {
		txnAcc, err = accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorTxn), toAccInfo(parentInfo.TxnAccumulatorInfo))
		require.NoError(t, err)
		blockAcc, err = accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorBlock), toAccInfo(parentInfo.BlockAccumulatorInfo))
		require.NoError(t, err)
		vmStateAcc, err = accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorVMState), toAccInfo(parentInfo.VMStateAccumulatorInfo))
		require.NoError(t, err)
		multiState, err := multiStateFromAccumulator(vmStateAcc)
		require.NoError(t, err)
		stateDB1 = statedb.New(store.GetStateStore(blockstore.StateVM1), &multiState.StateRootVM1)
		stateDB2 = statedb.New(store.GetStateStore(blockstore.StateVM2), &multiState.StateRootVM2)
	}
	_ = blockAcc // not needed to derive a header; kept for symmetry with the real commit path

	var timestamp uint64
	var difficulty common.HashValue
	var parentGasUsed uint64
	if number > 0 {
		timestamp = parent.Timestamp + 1000
		difficulty = common.HashOfData([]byte("difficulty"))
		parentGasUsed = parent.GasUsed
	}

	author := common.ZeroAddress
	if number > 0 {
		author = common.AddressFromBytes([]byte("author"))
	}

	var T1 []vm.Transaction1
	if number != 0 && !cfg.VM1Offline(number) {
		T1 = append(T1, vm.Transaction1{Metadata: &vm.BlockMetadata{
			ParentHash: parentHash, Number: number, Timestamp: timestamp, Author: author, ParentGasUsed: parentGasUsed,
		}})
		for i := range body.VM1Transactions {
			T1 = append(T1, vm.Transaction1{User: &body.VM1Transactions[i]})
		}
	}
	var metadata2 *vm.BlockMetadata2
	if number != 0 {
		metadata2 = &vm.BlockMetadata2{ParentHash: parentHash, Number: number, Timestamp: timestamp, Author: author, ParentGasUsed: parentGasUsed}
	}
	T2 := vm2.BuildBlockTransactions(body.VM2Transactions, metadata2)

	exec1, err := vm1.BlockExecute(context.Background(), stateDB1, T1, cfg.GenesisGasLimit, nil)
	require.NoError(t, err)
	exec2, err := vm2.ExecuteTransactions(context.Background(), stateDB2, T2, cfg.GenesisGasLimit, nil)
	require.NoError(t, err)

	vmStateRoot, err := vmStateAcc.Append([]common.HashValue{exec1.StateRoot, exec2.StateRoot})
	require.NoError(t, err)
	_, err = txnAcc.Append(infoIdsOf(exec1.TxnInfos))
	require.NoError(t, err)
	txnRoot, err := txnAcc.Append(infoIdsOf(exec2.TxnInfos))
	require.NoError(t, err)

	header := &types.BlockHeader{
		ParentHash:         parentHash,
		Number:             number,
		Timestamp:          timestamp,
		Author:             author,
		StateRoot:          vmStateRoot,
		TxnAccumulatorRoot: txnRoot,
		GasUsed:            gasUsedOf(exec1.TxnInfos) + gasUsedOf(exec2.TxnInfos),
		Difficulty:         difficulty,
		BodyHash:           body.Hash(),
		ChainID:            cfg.ChainID,
	}
	return header
}

func infoIdsOf(infos []*types.TransactionInfo) []common.HashValue {
	out := make([]common.HashValue, len(infos))
	for i, info := range infos {
		out[i] = info.Id()
	}
	return out
}

func gasUsedOf(infos []*types.TransactionInfo) uint64 {
	var total uint64
	for _, info := range infos {
		total += info.GasUsed
	}
	return total
}

func newTestChain(t *testing.T) (*Chain, *params.ChainConfig) {
	t.Helper()
	return newTestChainWithConfig(t, params.DefaultChainConfig())
}

func newTestChainWithConfig(t *testing.T, cfg *params.ChainConfig) (*Chain, *params.ChainConfig) {
	t.Helper()
	store := blockstore.New(database.NewMemoryDBManager())
	vm1f, vm2f := vmtest.VM1{}, vmtest.VM2{}

	genesisBody := &types.Body{}
	header := proposeHeader(t, cfg, store, vm1f, vm2f, nil, nil, 0, common.ZeroHash, genesisBody)
	genesis := &types.Block{Header: header, Body: genesisBody}

	c, err := NewWithGenesis(context.Background(), cfg, store, vm1f, vm2f, nil, genesis)
	require.NoError(t, err)
	return c, cfg
}

// proposeAndApply builds and applies the next linear block on top of c's
// current head, using body as its (empty, by default) payload.
func proposeAndApply(t *testing.T, c *Chain, body *types.Body) *types.Block {
	t.Helper()
	if body == nil {
		body = &types.Body{}
	}
	parent := c.CurrentHeader()
	parentInfo := c.HeadBlockInfo()
	header := proposeHeader(t, c.cfg, c.store, c.vm1.(vmtest.VM1), c.vm2.(vmtest.VM2), parent, parentInfo, parent.Number+1, parent.Id(), body)
	block := &types.Block{Header: header, Body: body}
	_, err := c.Apply(context.Background(), block)
	require.NoError(t, err)
	return block
}

// S1 (genesis).
func TestChain_Genesis(t *testing.T) {
	c, _ := newTestChain(t)

	storedGenesis, err := c.store.GetGenesis()
	require.NoError(t, err)
	require.Equal(t, storedGenesis, c.CurrentHeader().Id())
	genesisId := c.CurrentHeader().Id()

	got, err := c.GetBlock(genesisId)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, genesisId, got.Id())

	info := c.HeadBlockInfo()
	require.Equal(t, uint64(2), info.VMStateAccumulatorInfo.NumLeaves)
	require.Equal(t, uint64(1), info.BlockAccumulatorInfo.NumLeaves)
}

// S2 (linear extension).
func TestChain_LinearExtension(t *testing.T) {
	c, _ := newTestChain(t)
	genesisId := c.CurrentHeader().Id()

	b1 := proposeAndApply(t, c, nil)
	b2 := proposeAndApply(t, c, nil)
	b3 := proposeAndApply(t, c, nil)

	ids, err := c.GetBlockIds(0, false, 4)
	require.NoError(t, err)
	require.Equal(t, []common.HashValue{genesisId, b1.Id(), b2.Id(), b3.Id()}, ids)
}

// S3 (invariant violation).
func TestChain_RejectsStateRootMismatch(t *testing.T) {
	c, _ := newTestChain(t)
	headBefore := c.CurrentHeader().Id()

	parent := c.CurrentHeader()
	parentInfo := c.HeadBlockInfo()
	body := &types.Body{}
	header := proposeHeader(t, c.cfg, c.store, c.vm1.(vmtest.VM1), c.vm2.(vmtest.VM2), parent, parentInfo, parent.Number+1, parent.Id(), body)
	header.StateRoot = common.HashOfData([]byte("tampered"))
	block := &types.Block{Header: header, Body: body}

	_, err := c.Apply(context.Background(), block)
	require.Error(t, err)
	var vf *types.VerifyBlockFailed
	require.ErrorAs(t, err, &vf)
	require.Equal(t, types.VerifyFieldState, vf.Field)
	require.Equal(t, headBefore, c.CurrentHeader().Id())
}

// S4 (fork).
func TestChain_Fork(t *testing.T) {
	c, _ := newTestChain(t)
	b1 := proposeAndApply(t, c, nil)
	_ = b1
	b2 := proposeAndApply(t, c, nil)
	b3 := proposeAndApply(t, c, nil)

	c2, err := c.Fork(b2.Id())
	require.NoError(t, err)
	require.Equal(t, b2.Id(), c2.CurrentHeader().Id())

	// A sibling of b3 built on top of b2 connects fine on the fork.
	altBody := &types.Body{VM2Transactions: []types.SignedUserTransaction{{Hash: common.HashOfData([]byte("alt-tx")), Raw: []byte("alt-payload")}}}
	altHeader := proposeHeader(t, c2.cfg, c2.store, c2.vm1.(vmtest.VM1), c2.vm2.(vmtest.VM2), c2.CurrentHeader(), c2.HeadBlockInfo(), b2.Header.Number+1, b2.Id(), altBody)
	altBlock := &types.Block{Header: altHeader, Body: altBody}
	_, err = c2.Apply(context.Background(), altBlock)
	require.NoError(t, err)
	require.Equal(t, altBlock.Id(), c2.CurrentHeader().Id())
	require.NotEqual(t, b3.Id(), altBlock.Id())

	// A block whose parent_hash doesn't match c2's head is rejected.
	wrongBody := &types.Body{}
	wrongHeader := proposeHeader(t, c2.cfg, c2.store, c2.vm1.(vmtest.VM1), c2.vm2.(vmtest.VM2), c2.CurrentHeader(), c2.HeadBlockInfo(), b2.Header.Number+1, b1.Id(), wrongBody)
	wrongBlock := &types.Block{Header: wrongHeader, Body: wrongBody}
	_, err = c2.Apply(context.Background(), wrongBlock)
	require.Error(t, err)

	// The original chain is untouched by anything done on the fork.
	require.Equal(t, b3.Id(), c.CurrentHeader().Id())
}

// S5 (epoch roll).
func TestChain_EpochRoll(t *testing.T) {
	cfg := params.DefaultChainConfig()
	cfg.EpochBlockCount = 1
	cfg.VM1OfflineHeight = 1 // isolate the epoch write to VM2's transaction at the boundary block
	c, _ := newTestChainWithConfig(t, cfg)
	require.Equal(t, uint64(0), c.Epoch().StartBlockNumber)
	require.Equal(t, uint64(1), c.Epoch().EndBlockNumber)

	parent := c.CurrentHeader()
	body1 := &types.Body{}
	metadata2 := &vm.BlockMetadata2{ParentHash: parent.Id(), Number: 1, Timestamp: parent.Timestamp + 1000, Author: common.ZeroAddress, ParentGasUsed: parent.GasUsed}
	T2 := c.vm2.(vmtest.VM2).BuildBlockTransactions(nil, metadata2)

	trialState2 := c.stateDB2.Fork()
	exec2, err := c.vm2.(vmtest.VM2).ExecuteTransactions(context.Background(), trialState2, T2, cfg.GenesisGasLimit, nil)
	require.NoError(t, err)

	newEpoch := &types.Epoch{StartBlockNumber: 1, EndBlockNumber: 2, BlockGasLimit: cfg.GenesisGasLimit, Strategy: cfg.Strategy}
	epochRaw, err := rlp.EncodeToBytes(newEpoch)
	require.NoError(t, err)
	// mirrors vmtest's own epoch-resource convention (see vmtest.WriteEpoch):
	// folding the rollover write into the boundary block's one VM2
	// transaction, so both land in the same write-set slot.
	epochOp := statedb.WriteOp{Path: []byte("__fake_vm__epoch__"), Value: epochRaw}
	exec2.WriteSets[0] = append(exec2.WriteSets[0], epochOp)

	trial2 := c.stateDB2.Fork()
	trial2.ApplyWriteSet(exec2.WriteSets[0])
	splicedRoot, err := trial2.Commit()
	require.NoError(t, err)
	exec2.StateRoot = splicedRoot

	trialTxnAcc, err := c.txnAcc.Fork(nil)
	require.NoError(t, err)
	trialVMStateAcc, err := c.vmStateAcc.Fork(nil)
	require.NoError(t, err)
	vmStateRoot, err := trialVMStateAcc.Append([]common.HashValue{c.stateDB1.StateRoot(), exec2.StateRoot})
	require.NoError(t, err)
	txnRoot, err := trialTxnAcc.Append(infoIdsOf(exec2.TxnInfos))
	require.NoError(t, err)

	header1 := &types.BlockHeader{
		ParentHash:         parent.Id(),
		Number:             1,
		Timestamp:          parent.Timestamp + 1000,
		Author:             common.AddressFromBytes([]byte("author")),
		StateRoot:          vmStateRoot,
		TxnAccumulatorRoot: txnRoot,
		GasUsed:            gasUsedOf(exec2.TxnInfos),
		Difficulty:         common.HashOfData([]byte("difficulty")),
		ChainID:            cfg.ChainID,
	}
	header1.BodyHash = body1.Hash()
	block1 := &types.Block{Header: header1, Body: body1}

	entry := &executor.DirectSaveEntry{
		Exec1: &vm.BlockExecutedData{StateRoot: c.stateDB1.StateRoot()},
		Exec2: exec2,
	}
	c.driver.SetDirectSave(map[common.HashValue]*executor.DirectSaveEntry{block1.Id(): entry})

	_, err = c.Apply(context.Background(), block1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Epoch().StartBlockNumber)
	require.Equal(t, uint64(2), c.Epoch().EndBlockNumber)
}

// S6 (find_ancestor).
func TestChain_FindAncestor(t *testing.T) {
	c1, _ := newTestChain(t)
	var divergeBlock *types.Block
	for i := 0; i < 10; i++ {
		b := proposeAndApply(t, c1, nil)
		if i == 6 { // height 7 (0-indexed genesis + 7 applies)
			divergeBlock = b
		}
	}

	c2, err := c1.Fork(divergeBlock.Id())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		altBody := &types.Body{VM2Transactions: []types.SignedUserTransaction{{Hash: common.HashOfData([]byte{byte(i)}), Raw: []byte{1}}}}
		proposeAndApply(t, c2, altBody)
	}

	id, number, found, err := c1.FindAncestor(c2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(7), number)
	require.Equal(t, divergeBlock.Id(), id)
}
