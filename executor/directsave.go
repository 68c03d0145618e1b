package executor

import (
	"context"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/vm"
)

// DirectSaveEntry is a pre-computed, trusted execution result for one
// block id: the "execute-save-directly" fast path applies it instead of
// invoking the VMs, while still enforcing every post-execution invariant.
type DirectSaveEntry struct {
	Exec1 *vm.BlockExecutedData
	Exec2 *vm.BlockExecutedData2
}

// SetDirectSave installs the driver's DIRECT_SAVE_MAP. Passing nil (or an
// empty map) disables the fast path.
func (d *Driver) SetDirectSave(entries map[common.HashValue]*DirectSaveEntry) {
	d.directSave = entries
}

func applyWriteSets(db *statedb.StateDB, writeSets [][]statedb.WriteOp) (common.HashValue, error) {
	var root common.HashValue
	for _, ws := range writeSets {
		db.ApplyWriteSet(ws)
		r, err := db.Commit()
		if err != nil {
			return common.HashValue{}, err
		}
		root = r
	}
	return root, nil
}

// executeDirect skips invoking VM1.BlockExecute/VM2.ExecuteTransactions —
// the expensive step — for a block whose execution result is already
// known and trusted, but still materializes the write-sets into the
// forked state-dbs and runs the same invariant checks and commit sequence
// as the normal path.
func (d *Driver) executeDirect(_ context.Context, req *Request, entry *DirectSaveEntry) (*ExecutedBlock, error) {
	block := req.Block

	T1 := d.buildT1(block, req.Parent)
	T2 := d.buildT2(block, req.Parent)

	if len(entry.Exec1.WriteSets) > 0 {
		if _, err := applyWriteSets(req.Forked.StateDB1, entry.Exec1.WriteSets); err != nil {
			return nil, err
		}
	}
	if len(entry.Exec2.WriteSets) > 0 {
		if _, err := applyWriteSets(req.Forked.StateDB2, entry.Exec2.WriteSets); err != nil {
			return nil, err
		}
	}

	return d.mergeAndCommit(req, T1, T2, entry.Exec1, entry.Exec2)
}
