package chain

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/blockstore"
	"github.com/starcoinorg/stargo-chain/storage/database"
	"github.com/starcoinorg/stargo-chain/types"
)

// TransactionProof bundles the inclusion proofs a light client needs to
// verify one transaction's effect without trusting the full chain
// state: that its info was recorded in the block's txn accumulator, and
// — optionally — that one of its events belongs to that info, and that
// a given access path held a given value in the post-execution state.
type TransactionProof struct {
	Info                *types.RichTransactionInfo
	TxnAccumulatorProof *accumulator.Proof
	EventProof          *accumulator.Proof
	StateValue          []byte
	StateProof          *statedb.Proof
}

func eventHash(ev *types.ContractEvent) common.HashValue {
	raw, err := rlp.EncodeToBytes(ev)
	if err != nil {
		panic("chain: encoding event for proof: " + err.Error())
	}
	return common.HashOfData(raw)
}

// GetTransactionProof builds a TransactionProof for the transaction-info
// at globalIndex within blockId's txn accumulator snapshot. eventIndex,
// when non-nil, additionally proves inclusion of that info's eventIndex
// among its own events, via a throwaway in-memory event accumulator
// built fresh from the persisted event list (spec.md's proof builders
// never persist this tree; it exists only for the duration of the
// call). accessPath, when non-nil, additionally proves the value at that
// path in the state generation named by gen, forked at the info's
// post-execution state root.
func (c *Chain) GetTransactionProof(blockId common.HashValue, globalIndex uint64, eventIndex *int, accessPath []byte, gen blockstore.StateGeneration) (*TransactionProof, error) {
	blockInfo, err := c.store.GetBlockInfo(blockId)
	if err != nil {
		return nil, err
	}
	if blockInfo == nil {
		return nil, types.ErrNotFound
	}

	txnAcc, err := accumulator.NewWithInfo(c.store.GetAccumulatorStore(blockstore.AccumulatorTxn), toAccInfo(blockInfo.TxnAccumulatorInfo))
	if err != nil {
		return nil, err
	}
	leafProof, err := txnAcc.GetProof(globalIndex)
	if err != nil {
		return nil, err
	}
	infoId, err := txnAcc.GetLeaf(globalIndex)
	if err != nil {
		return nil, err
	}
	info, err := c.store.GetTransactionInfo(infoId)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, types.ErrNotFound
	}

	proof := &TransactionProof{Info: info, TxnAccumulatorProof: leafProof}

	if eventIndex != nil {
		events, err := c.store.GetContractEvents(infoId)
		if err != nil {
			return nil, err
		}
		eventAcc := accumulator.New(accumulator.NewStore(database.NewMemDatabase()))
		leaves := make([]common.HashValue, len(events))
		for i, ev := range events {
			leaves[i] = eventHash(ev)
		}
		if _, err := eventAcc.Append(leaves); err != nil {
			return nil, err
		}
		eventProof, err := eventAcc.GetProof(uint64(*eventIndex))
		if err != nil {
			return nil, err
		}
		proof.EventProof = eventProof
	}

	if accessPath != nil {
		stateStore := c.store.GetStateStore(gen)
		sdb := statedb.New(stateStore, &info.StateRootHash)
		value, valueProof, err := sdb.GetWithProof(accessPath)
		if err != nil {
			return nil, err
		}
		proof.StateValue = value
		proof.StateProof = valueProof
	}

	return proof, nil
}
