package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/params"
	"github.com/starcoinorg/stargo-chain/types"
)

type fakeChain struct {
	chainID uint64
	headers map[common.HashValue]*types.BlockHeader
	byNum   map[uint64]common.HashValue
	uncles  map[common.HashValue]bool
	epoch   *types.Epoch
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chainID: 1,
		headers: make(map[common.HashValue]*types.BlockHeader),
		byNum:   make(map[uint64]common.HashValue),
		uncles:  make(map[common.HashValue]bool),
		epoch:   &types.Epoch{StartBlockNumber: 0, EndBlockNumber: 1000, Strategy: params.StrategyDummy},
	}
}

func (c *fakeChain) addCanonical(h *types.BlockHeader) {
	id := h.Id()
	c.headers[id] = h
	c.byNum[h.Number] = id
}

func (c *fakeChain) ChainID() uint64                      { return c.chainID }
func (c *fakeChain) CurrentHeader() *types.BlockHeader    { return nil }
func (c *fakeChain) Epoch() *types.Epoch                  { return c.epoch }
func (c *fakeChain) HasUncle(id common.HashValue) bool    { return c.uncles[id] }
func (c *fakeChain) GetBlockHeaderByHash(id common.HashValue) (*types.BlockHeader, error) {
	return c.headers[id], nil
}
func (c *fakeChain) GetHashByNumber(n uint64) (common.HashValue, bool, error) {
	id, ok := c.byNum[n]
	return id, ok, nil
}

func blockAt(number uint64, parentHash common.HashValue, timestamp uint64) *types.Block {
	body := &types.Body{}
	header := &types.BlockHeader{
		ParentHash: parentHash,
		Number:     number,
		Timestamp:  timestamp,
		ChainID:    1,
		Author:     common.AddressFromBytes([]byte("author")),
		Difficulty: common.HashOfData([]byte("difficulty")),
	}
	header.BodyHash = body.Hash()
	return &types.Block{Header: header, Body: body}
}

func TestNoneVerifier_RejectsBodyHashMismatch(t *testing.T) {
	block := blockAt(1, common.ZeroHash, 1000)
	block.Body.VM2Transactions = []types.SignedUserTransaction{{Hash: common.HashOfData([]byte("x")), Raw: []byte("x")}}
	chain := newFakeChain()
	err := (None{}).VerifyBlock(chain, block)
	var vf *types.VerifyBlockFailed
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, types.VerifyFieldBody, vf.Field)
}

func TestBasicVerifier_RequiresParentAndMonotonicNumberAndTimestamp(t *testing.T) {
	chain := newFakeChain()
	genesis := blockAt(0, common.ZeroHash, 1000)
	chain.addCanonical(genesis.Header)

	ok := blockAt(1, genesis.Id(), 2000)
	require.NoError(t, (Basic{}).VerifyBlock(chain, ok))

	wrongNumber := blockAt(5, genesis.Id(), 2000)
	err := (Basic{}).VerifyBlock(chain, wrongNumber)
	require.Error(t, err)

	staleTimestamp := blockAt(1, genesis.Id(), 500)
	err = (Basic{}).VerifyBlock(chain, staleTimestamp)
	require.Error(t, err)

	noParent := blockAt(1, common.HashOfData([]byte("nope")), 2000)
	err = (Basic{}).VerifyBlock(chain, noParent)
	require.Error(t, err)

	zeroAuthor := blockAt(1, genesis.Id(), 2000)
	zeroAuthor.Header.Author = common.ZeroAddress
	zeroAuthor.Header.BodyHash = zeroAuthor.Body.Hash()
	err = (Basic{}).VerifyBlock(chain, zeroAuthor)
	var vf *types.VerifyBlockFailed
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, types.VerifyFieldHeader, vf.Field)
}

func TestConsensusVerifier_RejectsZeroDifficultyPastGenesis(t *testing.T) {
	chain := newFakeChain()
	genesis := blockAt(0, common.ZeroHash, 1000)
	chain.addCanonical(genesis.Header)

	block := blockAt(1, genesis.Id(), 2000)
	block.Header.Difficulty = common.HashValue{}
	block.Header.BodyHash = block.Body.Hash()

	err := (Consensus{}).VerifyBlock(chain, block)
	require.Error(t, err)
}

func TestFullVerifier_RejectsMalformedTransaction(t *testing.T) {
	chain := newFakeChain()
	genesis := blockAt(0, common.ZeroHash, 1000)
	chain.addCanonical(genesis.Header)

	block := blockAt(1, genesis.Id(), 2000)
	block.Body.VM2Transactions = []types.SignedUserTransaction{{Hash: common.HashValue{}, Raw: nil}}
	block.Header.BodyHash = block.Body.Hash()

	err := (Full{}).VerifyBlock(chain, block)
	var vf *types.VerifyBlockFailed
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, types.VerifyFieldTransaction, vf.Field)
}

func TestCanBeUncle(t *testing.T) {
	chain := newFakeChain()
	genesis := blockAt(0, common.ZeroHash, 1000)
	chain.addCanonical(genesis.Header)

	uncleCandidate := blockAt(1, genesis.Id(), 2000)
	assert.True(t, CanBeUncle(chain, 3, uncleCandidate.Header))

	chain.uncles[uncleCandidate.Id()] = true
	assert.False(t, CanBeUncle(chain, 3, uncleCandidate.Header))

	delete(chain.uncles, uncleCandidate.Id())
	chain.addCanonical(uncleCandidate.Header)
	assert.False(t, CanBeUncle(chain, 3, uncleCandidate.Header), "a header already on the canonical chain cannot be an uncle")
}
