package types

import "github.com/starcoinorg/stargo-chain/common"

// TransactionStatus is the VM-reported outcome of executing one
// transaction.
type TransactionStatus uint8

const (
	TransactionStatusExecuted TransactionStatus = iota
	TransactionStatusOutOfGas
	TransactionStatusMiscellaneousError
)

// TransactionInfo is the content-derived record of one transaction's
// execution. Two equal infos imply identical deterministic execution —
// it carries no signature or sender, only what execution produced.
type TransactionInfo struct {
	TransactionHash common.HashValue
	StateRootHash   common.HashValue
	EventRootHash   common.HashValue
	GasUsed         uint64
	Status          TransactionStatus
}

// Id is the content address of the info, used as the accumulator leaf
// and as the key other indices point at.
func (ti *TransactionInfo) Id() common.HashValue {
	buf := make([]byte, 0, 32*3+8+1)
	buf = append(buf, ti.TransactionHash.Bytes()...)
	buf = append(buf, ti.StateRootHash.Bytes()...)
	buf = append(buf, ti.EventRootHash.Bytes()...)
	buf = append(buf, byte(ti.GasUsed), byte(ti.GasUsed>>8), byte(ti.GasUsed>>16), byte(ti.GasUsed>>24),
		byte(ti.GasUsed>>32), byte(ti.GasUsed>>40), byte(ti.GasUsed>>48), byte(ti.GasUsed>>56))
	buf = append(buf, byte(ti.Status))
	return common.HashOfData(buf)
}

// RichTransactionInfo decorates a TransactionInfo with its position: the
// block it belongs to and its index both within that block and across
// the whole chain.
type RichTransactionInfo struct {
	TransactionInfo
	BlockId                common.HashValue
	BlockNumber            uint64
	TransactionIndex       uint64 // within block; 0 = block metadata txn
	TransactionGlobalIndex uint64 // chain-wide accumulator leaf index
}

// EventKey identifies an event stream; opaque to the core beyond equality
// and use as a filter predicate.
type EventKey [common.HashLength]byte

// TypeTag identifies a Move event's payload type; opaque beyond equality.
type TypeTag string

// ContractEvent is one event emitted during a transaction's execution.
type ContractEvent struct {
	Key       EventKey
	SeqNumber uint64
	TypeTag   TypeTag
	Data      []byte
}
