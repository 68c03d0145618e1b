package executor

import (
	"context"

	"github.com/starcoinorg/stargo-chain/types"
)

// ExecuteWithoutSave runs the same dual-VM execution as Execute but skips
// the commit sequence entirely and skips VM-state accumulation, returning
// MultiState's zero value. It exists for speculative verification of a
// block on a fork branch the caller does not intend to connect: the only
// thing worth learning is whether execution itself succeeds.
func (d *Driver) ExecuteWithoutSave(ctx context.Context, req *Request) (*ExecutedBlock, error) {
	block := req.Block

	T1 := d.buildT1(block, req.Parent)
	T2 := d.buildT2(block, req.Parent)

	exec1, err := d.vm1.BlockExecute(ctx, req.Forked.StateDB1, T1, req.Epoch.BlockGasLimit, d.metrics)
	if err != nil {
		return nil, types.WrapBlockChainStateErr(err)
	}
	if len(exec1.TxnInfos) != len(T1) {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "vm1 produced a different number of txn-infos than transactions submitted")
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
	if len(exec2.TxnInfos) != len(T2) {
		return nil, types.NewVerifyBlockFailed(types.VerifyFieldState, "vm2 produced a different number of txn-infos than transactions submitted")
	}

	return &ExecutedBlock{Block: block, MultiState: types.MultiState{}}, nil
}
