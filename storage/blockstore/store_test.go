package blockstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/storage/database"
	"github.com/starcoinorg/stargo-chain/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(database.NewMemoryDBManager())
}

func sampleBlock() *types.Block {
	header := &types.BlockHeader{Number: 1, ParentHash: common.HashOfData([]byte("p"))}
	body := &types.Body{VM2Transactions: []types.SignedUserTransaction{{Hash: common.HashOfData([]byte("t1"))}}}
	return &types.Block{Header: header, Body: body}
}

func TestStore_CommitAndGetBlock(t *testing.T) {
	s := newTestStore(t)
	block := sampleBlock()

	missing, err := s.GetBlockByHash(block.Id())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.CommitBlock(block))

	got, err := s.GetBlockByHash(block.Id())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, block.Header.Number, got.Header.Number)
	assert.Equal(t, 1, len(got.Body.VM2Transactions))
}

func TestStore_BlockInfoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	block := sampleBlock()
	info := &types.BlockInfo{
		BlockId:                block.Id(),
		TxnAccumulatorInfo:     &types.AccumulatorInfo{NumLeaves: 1},
		BlockAccumulatorInfo:   &types.AccumulatorInfo{NumLeaves: 1},
		VMStateAccumulatorInfo: &types.AccumulatorInfo{NumLeaves: 2},
	}
	require.NoError(t, s.SaveBlockInfo(info))

	got, err := s.GetBlockInfo(block.Id())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info.BlockId, got.BlockId)
	assert.Equal(t, uint64(2), got.VMStateAccumulatorInfo.NumLeaves)
}

func TestStore_TransactionInfoIndexPreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	txnHash := common.HashOfData([]byte("shared-txn"))

	info1 := &types.RichTransactionInfo{TransactionInfo: types.TransactionInfo{TransactionHash: txnHash, GasUsed: 1}, BlockNumber: 1}
	info2 := &types.RichTransactionInfo{TransactionInfo: types.TransactionInfo{TransactionHash: txnHash, GasUsed: 2}, BlockNumber: 2}

	require.NoError(t, s.SaveTransactionInfos([]*types.RichTransactionInfo{info1}))
	require.NoError(t, s.SaveTransactionInfos([]*types.RichTransactionInfo{info2}))

	ids, err := s.GetTransactionInfoIdsByTxnHash(txnHash)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, info1.Id(), ids[0])
	assert.Equal(t, info2.Id(), ids[1])

	fetched, err := s.GetTransactionInfo(ids[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fetched.GasUsed)
}

func TestStore_StartupAndGenesisPointers(t *testing.T) {
	s := newTestStore(t)

	genesis, err := s.GetGenesis()
	require.NoError(t, err)
	assert.True(t, genesis.IsZero())

	gid := common.HashOfData([]byte("genesis-block"))
	require.NoError(t, s.SaveGenesis(gid))
	got, err := s.GetGenesis()
	require.NoError(t, err)
	assert.Equal(t, gid, got)

	headId := common.HashOfData([]byte("head"))
	require.NoError(t, s.SaveStartupInfo(headId))
	chainInfo, err := s.GetChainInfo()
	require.NoError(t, err)
	assert.Equal(t, headId, chainInfo)
}

func TestStore_ContractEventsKeyedByInfoId(t *testing.T) {
	s := newTestStore(t)
	infoId := common.HashOfData([]byte("info"))
	events := []*types.ContractEvent{{SeqNumber: 0, TypeTag: "Foo"}, {SeqNumber: 1, TypeTag: "Bar"}}

	require.NoError(t, s.SaveContractEvents(infoId, events))
	got, err := s.GetContractEvents(infoId)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.TypeTag("Bar"), got[1].TypeTag)
}
