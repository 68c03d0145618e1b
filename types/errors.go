package types

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/common"
)

// ErrNotFound is returned (or wrapped) when a block/header/txn/info/hash/
// leaf lookup misses. Contracts that permit it return (nil, nil) instead
// — see each accessor's doc comment for which applies.
var ErrNotFound = errors.New("types: not found")

// VerifyField names which part of a candidate block a verifier rejected.
type VerifyField string

const (
	VerifyFieldHeader      VerifyField = "header"
	VerifyFieldBody        VerifyField = "body"
	VerifyFieldConsensus   VerifyField = "consensus"
	VerifyFieldUncle       VerifyField = "uncle"
	VerifyFieldTransaction VerifyField = "transaction"
	VerifyFieldState       VerifyField = "state"
)

// VerifyBlockFailed is returned by the verifier chain (C5) and by the
// executor's post-execution invariant checks (C6); the block is never
// persisted.
type VerifyBlockFailed struct {
	Field  VerifyField
	Reason string
}

func (e *VerifyBlockFailed) Error() string {
	return fmt.Sprintf("types: verify block failed: field=%s reason=%s", e.Field, e.Reason)
}

// NewVerifyBlockFailed constructs a VerifyBlockFailed.
func NewVerifyBlockFailed(field VerifyField, reason string) *VerifyBlockFailed {
	return &VerifyBlockFailed{Field: field, Reason: reason}
}

// ConnectBlockErrorKind distinguishes the ways connect() can reject an
// executed block.
type ConnectBlockErrorKind int

const (
	ConnectBlockErrorParentMismatch ConnectBlockErrorKind = iota
	ConnectBlockErrorNotExecuted
)

// ConnectBlockError reports why chain.Chain.Connect refused an
// ExecutedBlock — a parent-hash mismatch against the current head, or an
// attempt to connect a block that was never executed.
type ConnectBlockError struct {
	Kind       ConnectBlockErrorKind
	BlockId    common.HashValue
	HeadId     common.HashValue
	ParentHash common.HashValue
}

func (e *ConnectBlockError) Error() string {
	switch e.Kind {
	case ConnectBlockErrorParentMismatch:
		return fmt.Sprintf("types: connect block %s: parent_hash %s != head %s", e.BlockId, e.ParentHash, e.HeadId)
	default:
		return fmt.Sprintf("types: connect block %s: not executed", e.BlockId)
	}
}

// BlockExecutorErrorKind distinguishes the two persistence failure modes
// the executor's commit pipeline can hit after invariants pass.
type BlockExecutorErrorKind int

const (
	BlockExecutorErrorBlockChainState BlockExecutorErrorKind = iota
	BlockExecutorErrorBlockAccumulatorFlush
)

// BlockExecutorError wraps a storage failure encountered during the
// executor's commit sequence (§4.6). After this error the caller must
// treat the chain's on-disk state as indeterminate and recover by
// restarting from the last durable startup-info.
type BlockExecutorError struct {
	Kind  BlockExecutorErrorKind
	Cause error
}

func (e *BlockExecutorError) Error() string {
	switch e.Kind {
	case BlockExecutorErrorBlockAccumulatorFlush:
		return fmt.Sprintf("types: block accumulator flush failed: %v", e.Cause)
	default:
		return fmt.Sprintf("types: block chain state error: %v", e.Cause)
	}
}

func (e *BlockExecutorError) Unwrap() error { return e.Cause }

// WrapBlockChainStateErr wraps a state-db apply/commit/flush failure.
func WrapBlockChainStateErr(cause error) error {
	return &BlockExecutorError{Kind: BlockExecutorErrorBlockChainState, Cause: errors.WithStack(cause)}
}

// WrapBlockAccumulatorFlushErr wraps an accumulator persistence failure.
func WrapBlockAccumulatorFlushErr(cause error) error {
	return &BlockExecutorError{Kind: BlockExecutorErrorBlockAccumulatorFlush, Cause: errors.WithStack(cause)}
}
