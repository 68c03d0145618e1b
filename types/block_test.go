package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starcoinorg/stargo-chain/common"
)

func sampleHeader() *BlockHeader {
	return &BlockHeader{
		ParentHash: common.HashOfData([]byte("parent")),
		Number:     7,
		Timestamp:  1700000000000,
		Author:     common.AddressFromBytes([]byte("author-address..")),
		ChainID:    1,
	}
}

func TestBlockHeader_IdIsDeterministic(t *testing.T) {
	h1 := sampleHeader()
	h2 := sampleHeader()
	assert.Equal(t, h1.Id(), h2.Id())
}

func TestBlockHeader_IdChangesWithAnyField(t *testing.T) {
	base := sampleHeader()
	baseId := base.Id()

	changed := sampleHeader()
	changed.GasUsed = 1
	assert.NotEqual(t, baseId, changed.Id())

	changed = sampleHeader()
	changed.Number++
	assert.NotEqual(t, baseId, changed.Id())
}

func TestBody_HashIsOrderSensitive(t *testing.T) {
	a := &Body{VM1Transactions: []SignedUserTransaction{{Hash: common.HashOfData([]byte("a"))}, {Hash: common.HashOfData([]byte("b"))}}}
	b := &Body{VM1Transactions: []SignedUserTransaction{{Hash: common.HashOfData([]byte("b"))}, {Hash: common.HashOfData([]byte("a"))}}}
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestBlock_IdDelegatesToHeader(t *testing.T) {
	h := sampleHeader()
	block := &Block{Header: h, Body: &Body{}}
	assert.Equal(t, h.Id(), block.Id())
}
