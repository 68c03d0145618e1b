// Package chain implements the chain (spec.md C7): the single-writer
// component that owns the live head, forks the accumulators and state
// tries for a candidate block, drives it through the verifier and the
// executor, and — on success — swaps the head atomically. Every other
// package in this module is a passive collaborator; chain is the only
// one that decides what the canonical head is.
package chain

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/executor"
	"github.com/starcoinorg/stargo-chain/log"
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/types"
	"github.com/starcoinorg/stargo-chain/verifier"
	"github.com/starcoinorg/stargo-chain/vm"
)

// Chain is one mutable view onto the canonical head: the three live
// accumulators and two live state-dbs forked at the current head block,
// plus the epoch and uncle cache that window covers. Reads (the
// verifier.ChainView methods) take the read lock; Connect takes the
// write lock for the duration of the head swap, matching spec.md §5's
// single-writer, many-reader concurrency model.
type Chain struct {
	mu sync.RWMutex

	cfg     *params.ChainConfig
	store   *blockstore.Store
	vm1     vm.VM1
	vm2     vm.VM2
	driver  *executor.Driver
	metrics vm.Metrics
	log     *log.Logger

	head     *types.BlockHeader
	headInfo *types.BlockInfo

	txnAcc     *accumulator.Accumulator
	blockAcc   *accumulator.Accumulator
	vmStateAcc *accumulator.Accumulator
	stateDB1   *statedb.StateDB
	stateDB2   *statedb.StateDB

	epoch      *types.Epoch
	uncleCache types.UncleMap
}

// NewWithGenesis executes and connects genesis against empty storage,
// seeding the epoch view from cfg until VM2 state carries its own epoch
// resource. genesis must already be fully formed — state_root,
// txn_accumulator_root and gas_used filled in by whatever built the
// candidate block; genesis construction itself is out of scope here.
func NewWithGenesis(ctx context.Context, cfg *params.ChainConfig, store *blockstore.Store, vm1 vm.VM1, vm2 vm.VM2, metrics vm.Metrics, genesis *types.Block) (*Chain, error) {
	if genesis.Header.Number != 0 {
		return nil, errors.New("chain: genesis block must have number 0")
	}
	if existing, err := store.GetGenesis(); err != nil {
		return nil, err
	} else if !existing.IsZero() {
		return nil, errors.Errorf("chain: storage already has genesis %s", existing)
	}

	driver := executor.New(cfg, store, vm1, vm2, metrics)
	forked := executor.Forked{
		TxnAccumulator:     accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorTxn)),
		BlockAccumulator:   accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorBlock)),
		VMStateAccumulator: accumulator.New(store.GetAccumulatorStore(blockstore.AccumulatorVMState)),
		StateDB1:           statedb.New(store.GetStateStore(blockstore.StateVM1), nil),
		StateDB2:           statedb.New(store.GetStateStore(blockstore.StateVM2), nil),
	}
	seedEpoch := &types.Epoch{
		StartBlockNumber: 0,
		EndBlockNumber:   cfg.EpochBlockCount,
		BlockGasLimit:    cfg.GenesisGasLimit,
		Strategy:         cfg.Strategy,
	}

	executed, err := driver.Execute(ctx, &executor.Request{
		Block:  genesis,
		Parent: nil,
		Epoch:  seedEpoch,
		Forked: forked,
	})
	if err != nil {
		return nil, err
	}

	c := &Chain{
		cfg:        cfg,
		store:      store,
		vm1:        vm1,
		vm2:        vm2,
		driver:     driver,
		metrics:    metrics,
		log:        log.NewModuleLogger(log.ModuleChain),
		head:       executed.Block.Header,
		headInfo:   executed.BlockInfo,
		txnAcc:     forked.TxnAccumulator,
		blockAcc:   forked.BlockAccumulator,
		vmStateAcc: forked.VMStateAccumulator,
		stateDB1:   forked.StateDB1,
		stateDB2:   forked.StateDB2,
		epoch:      seedEpoch,
		uncleCache: types.NewUncleMap(),
	}

	if err := store.SaveGenesis(genesis.Id()); err != nil {
		return nil, err
	}
	if err := store.SaveStartupInfo(genesis.Id()); err != nil {
		return nil, err
	}
	return c, nil
}

// Open resumes a chain from durable storage: the last saved startup
// head, the accumulators forked at its BlockInfo, and the state-dbs
// opened at the pair of roots recorded as the VM-state accumulator's
// final two leaves (spec.md §6.6 — no separate MultiState column is
// needed since those two leaves are exactly [state_root_vm1,
// state_root_vm2] for the head block).
func Open(cfg *params.ChainConfig, store *blockstore.Store, vm1 vm.VM1, vm2 vm.VM2, metrics vm.Metrics) (*Chain, error) {
	headId, err := store.GetChainInfo()
	if err != nil {
		return nil, err
	}
	if headId.IsZero() {
		return nil, errors.New("chain: no startup info in storage; construct with NewWithGenesis")
	}

	header, err := store.GetBlockHeaderByHash(headId)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, errors.Errorf("chain: startup head %s missing from block store", headId)
	}
	info, err := store.GetBlockInfo(headId)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Errorf("chain: startup head %s has no block info", headId)
	}

	txnAcc, err := accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorTxn), toAccInfo(info.TxnAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	blockAcc, err := accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorBlock), toAccInfo(info.BlockAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	vmStateAcc, err := accumulator.NewWithInfo(store.GetAccumulatorStore(blockstore.AccumulatorVMState), toAccInfo(info.VMStateAccumulatorInfo))
	if err != nil {
		return nil, err
	}

	multiState, err := multiStateFromAccumulator(vmStateAcc)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		cfg:        cfg,
		store:      store,
		vm1:        vm1,
		vm2:        vm2,
		driver:     executor.New(cfg, store, vm1, vm2, metrics),
		metrics:    metrics,
		log:        log.NewModuleLogger(log.ModuleChain),
		head:       header,
		headInfo:   info,
		txnAcc:     txnAcc,
		blockAcc:   blockAcc,
		vmStateAcc: vmStateAcc,
		stateDB1:   statedb.New(store.GetStateStore(blockstore.StateVM1), &multiState.StateRootVM1),
		stateDB2:   statedb.New(store.GetStateStore(blockstore.StateVM2), &multiState.StateRootVM2),
		uncleCache: types.NewUncleMap(),
	}

	epoch, err := vm2.GetEpochFromStateDB(c.stateDB2)
	if err != nil {
		return nil, err
	}
	c.epoch = epoch

	if err := c.rebuildUncleCache(); err != nil {
		return nil, err
	}
	return c, nil
}

// multiStateFromAccumulator reads the VM-state accumulator's last two
// leaves as [state_root_vm1, state_root_vm2] — the pair every Execute
// call appends together (spec.md §6.6).
func multiStateFromAccumulator(vmStateAcc *accumulator.Accumulator) (types.MultiState, error) {
	n := vmStateAcc.NumLeaves()
	if n == 0 {
		return types.MultiState{}, nil
	}
	if n < 2 {
		return types.MultiState{}, errors.Errorf("chain: vm-state accumulator has %d leaves, want an even count", n)
	}
	root1, err := vmStateAcc.GetLeaf(n - 2)
	if err != nil {
		return types.MultiState{}, err
	}
	root2, err := vmStateAcc.GetLeaf(n - 1)
	if err != nil {
		return types.MultiState{}, err
	}
	return types.MultiState{StateRootVM1: root1, StateRootVM2: root2}, nil
}

func toAccInfo(info *types.AccumulatorInfo) *accumulator.Info {
	if info == nil {
		return &accumulator.Info{}
	}
	return &accumulator.Info{
		AccumulatorRoot:    info.AccumulatorRoot,
		FrozenSubtreeRoots: info.FrozenSubtreeRoots,
		NumLeaves:          info.NumLeaves,
		NumNodes:           info.NumNodes,
	}
}

// ChainID implements verifier.ChainView.
func (c *Chain) ChainID() uint64 {
	return c.cfg.ChainID
}

// CurrentHeader implements verifier.ChainView.
func (c *Chain) CurrentHeader() *types.BlockHeader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// GetBlockHeaderByHash implements verifier.ChainView.
func (c *Chain) GetBlockHeaderByHash(id common.HashValue) (*types.BlockHeader, error) {
	return c.store.GetBlockHeaderByHash(id)
}

// GetHashByNumber implements verifier.ChainView. It is derived from the
// block accumulator's leaves rather than a separate number-to-hash
// index: spec.md §6.6 guarantees one leaf per connected block, in
// height order, valued at that block's id, so the accumulator already
// is the canonical height index.
func (c *Chain) GetHashByNumber(number uint64) (common.HashValue, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if number > c.head.Number {
		return common.HashValue{}, false, nil
	}
	id, err := c.blockAcc.GetLeaf(number)
	if err != nil {
		return common.HashValue{}, false, nil
	}
	return id, true, nil
}

// HasUncle implements verifier.ChainView.
func (c *Chain) HasUncle(id common.HashValue) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uncleCache.Has(id)
}

// Epoch implements verifier.ChainView.
func (c *Chain) Epoch() *types.Epoch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// HeadBlockInfo returns the BlockInfo belonging to the current head.
func (c *Chain) HeadBlockInfo() *types.BlockInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headInfo
}

// Status returns the head header paired with its block-info, the
// minimal pair spec.md's ChainStatus names.
func (c *Chain) Status() *types.ChainStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &types.ChainStatus{HeadHeader: c.head, BlockInfo: c.headInfo}
}

// Apply verifies, executes, and connects block in one step — the
// standard path a block producer or a block-sync consumer uses. On any
// failure the head is left untouched.
func (c *Chain) Apply(ctx context.Context, block *types.Block) (*executor.ExecutedBlock, error) {
	if err := (verifier.Full{}).VerifyBlock(c, block); err != nil {
		return nil, err
	}
	executed, err := c.execute(ctx, block)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(executed); err != nil {
		return nil, err
	}
	return executed, nil
}

// execute forks the live accumulators/state-dbs at the current head and
// runs the executor driver over them. It never mutates c; Connect is the
// only method that swaps the head.
func (c *Chain) execute(ctx context.Context, block *types.Block) (*executor.ExecutedBlock, error) {
	c.mu.RLock()
	txnAcc, err := c.txnAcc.Fork(nil)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	blockAcc, err := c.blockAcc.Fork(nil)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	vmStateAcc, err := c.vmStateAcc.Fork(nil)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	req := &executor.Request{
		Block:           block,
		Parent:          c.head,
		ParentBlockInfo: c.headInfo,
		Epoch:           c.epoch,
		Forked: executor.Forked{
			TxnAccumulator:     txnAcc,
			BlockAccumulator:   blockAcc,
			VMStateAccumulator: vmStateAcc,
			StateDB1:           c.stateDB1.Fork(),
			StateDB2:           c.stateDB2.Fork(),
		},
	}
	c.mu.RUnlock()
	return c.driver.Execute(ctx, req)
}

// Connect swaps the head to an already-executed block, provided its
// parent hash matches the current head. It durably records the new
// startup info; then, on an epoch boundary, it reloads the epoch view from
// VM2 state and rebuilds the uncle cache, and otherwise adds the block's
// uncles to the uncle cache.
func (c *Chain) Connect(executed *executor.ExecutedBlock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if executed == nil || executed.BlockInfo == nil {
		var blockId common.HashValue
		if executed != nil {
			blockId = executed.Block.Id()
		}
		return &types.ConnectBlockError{Kind: types.ConnectBlockErrorNotExecuted, BlockId: blockId}
	}
	block := executed.Block
	if block.Header.ParentHash != c.head.Id() {
		return &types.ConnectBlockError{
			Kind:       types.ConnectBlockErrorParentMismatch,
			BlockId:    block.Id(),
			HeadId:     c.head.Id(),
			ParentHash: block.Header.ParentHash,
		}
	}

	txnAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorTxn), toAccInfo(executed.BlockInfo.TxnAccumulatorInfo))
	if err != nil {
		return err
	}
	blockAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorBlock), toAccInfo(executed.BlockInfo.BlockAccumulatorInfo))
	if err != nil {
		return err
	}
	vmStateAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorVMState), toAccInfo(executed.BlockInfo.VMStateAccumulatorInfo))
	if err != nil {
		return err
	}

	c.txnAcc, c.blockAcc, c.vmStateAcc = txnAcc, blockAcc, vmStateAcc
	c.stateDB1 = statedb.New(c.store.GetStateStore(blockstore.StateVM1), &executed.MultiState.StateRootVM1)
	c.stateDB2 = statedb.New(c.store.GetStateStore(blockstore.StateVM2), &executed.MultiState.StateRootVM2)
	c.head = block.Header
	c.headInfo = executed.BlockInfo

	if err := c.store.SaveStartupInfo(c.head.Id()); err != nil {
		return err
	}

	if c.head.Number == c.epoch.EndBlockNumber {
		newEpoch, err := c.vm2.GetEpochFromStateDB(c.stateDB2)
		if err != nil {
			return err
		}
		c.epoch = newEpoch
		return c.rebuildUncleCacheLocked()
	}

	for _, uncle := range block.Body.Uncles {
		c.uncleCache.Insert(uncle.Id(), c.head.Number)
	}
	return nil
}
