// Package types holds the chain's content-addressed data model: blocks,
// headers, block-infos, transaction-infos, and the epoch/uncle/status
// records the chain package threads between components. Encoding follows
// go-ethereum's rlp, the same wire format klaytn inherited and extended.
package types

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starcoinorg/stargo-chain/common"
)

// BlockHeader is the content-addressed, consensus-relevant summary of a
// block. Number is the height, monotonic from 0. StateRoot is the head of
// the VM-state accumulator as of this block; the VM1/VM2 per-VM roots
// live in MultiState, not the header.
type BlockHeader struct {
	ParentHash             common.HashValue
	Number                 uint64
	Timestamp              uint64 // milliseconds
	Author                 common.Address
	TxnAccumulatorRoot     common.HashValue
	BlockAccumulatorRoot   common.HashValue
	VMStateAccumulatorRoot common.HashValue
	StateRoot              common.HashValue
	GasUsed                uint64
	Difficulty             common.HashValue
	Nonce                  uint64
	Extra                  []byte
	BodyHash               common.HashValue
	ChainID                uint64
}

// Id returns the header's content address: hash(header). BlockHeader has
// no id field of its own, so there is nothing to strip before hashing —
// the id is purely derived, never stored or round-tripped as input.
func (h *BlockHeader) Id() common.HashValue {
	raw, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic("types: encoding header for id: " + err.Error())
	}
	return common.HashOfData(raw)
}

// Body is the mutable payload of a block: the two VM transaction lists
// plus any uncle headers this block references.
type Body struct {
	VM1Transactions []SignedUserTransaction
	VM2Transactions []SignedUserTransaction
	Uncles          []*BlockHeader
}

// SignedUserTransaction is an opaque, already-signed transaction as
// produced by a wallet/client. The chain core only ever needs its content
// hash for accumulator leaves and ordering; decoding and executing its
// payload is the VM's job (out of scope per spec).
type SignedUserTransaction struct {
	Hash common.HashValue
	Raw  []byte
}

// Hash returns the content hash of the body: hash(rlp(body)).
func (b *Body) Hash() common.HashValue {
	raw, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic("types: encoding body hash: " + err.Error())
	}
	return common.HashOfData(raw)
}

// Block pairs a header with its body. Id delegates to the header; BodyHash
// on the header must equal Body.Hash() for the block to be well-formed
// (checked by the None verifier).
type Block struct {
	Header *BlockHeader
	Body   *Body
}

// Id returns the block's content address (its header's id).
func (b *Block) Id() common.HashValue {
	return b.Header.Id()
}

// Uncles returns the uncle headers referenced by this block's body, or
// nil if it has none.
func (b *Block) Uncles() []*BlockHeader {
	return b.Body.Uncles
}
