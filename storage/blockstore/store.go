// Package blockstore implements the block store (spec.md C3): the
// domain-level operations (commit_block, save_block_info,
// save_transaction_infos, ...) layered over storage/database's typed
// columns. It owns encoding (go-ethereum's rlp) and the secondary
// indices; it has no opinion about which KVStore backend a column uses.
package blockstore

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/starcoinorg/stargo-chain/accumulator"
	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/log"
	"github.com/starcoinorg/stargo-chain/statedb"
	"github.com/starcoinorg/stargo-chain/storage/database"
	"github.com/starcoinorg/stargo-chain/types"
)

// StateGeneration selects which VM generation's account trie a state node
// store is requested for.
type StateGeneration int

const (
	StateVM1 StateGeneration = iota
	StateVM2
)

// AccumulatorKind selects which of the three accumulators a node store is
// requested for.
type AccumulatorKind int

const (
	AccumulatorTxn AccumulatorKind = iota
	AccumulatorBlock
	AccumulatorVMState
)

var (
	miscGenesisKey = []byte("genesis")
	miscStartupKey = []byte("startup")
)

// Store is the block store: one instance wraps a database.DBManager and
// exposes the content-addressed accessors and writers the chain and
// executor packages consume.
type Store struct {
	dbm *database.DBManager
	log *log.Logger
}

// New wraps dbm as a block store.
func New(dbm *database.DBManager) *Store {
	return &Store{dbm: dbm, log: log.NewModuleLogger(log.ModuleStorage)}
}

// GetAccumulatorStore returns the node store backing the named
// accumulator, for use by accumulator.New / accumulator.NewWithInfo.
func (s *Store) GetAccumulatorStore(kind AccumulatorKind) *accumulator.Store {
	switch kind {
	case AccumulatorBlock:
		return accumulator.NewStore(s.dbm.Column(database.ColumnAccumulatorBlock))
	case AccumulatorVMState:
		return accumulator.NewStore(s.dbm.Column(database.ColumnAccumulatorVMState))
	default:
		return accumulator.NewStore(s.dbm.Column(database.ColumnAccumulatorTxn))
	}
}

// GetStateStore returns the content-addressed node store backing the
// named VM generation's account trie, for use by statedb.New/NewStore.
func (s *Store) GetStateStore(gen StateGeneration) *statedb.Store {
	if gen == StateVM2 {
		return statedb.NewStore(s.dbm.Column(database.ColumnStateVM2))
	}
	return statedb.NewStore(s.dbm.Column(database.ColumnStateVM1))
}

func encode(v interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

func putRLP(col database.KVStore, key []byte, v interface{}) error {
	raw, err := encode(v)
	if err != nil {
		return errors.Wrap(err, "blockstore: encoding")
	}
	return col.Put(key, raw)
}

func getRLP(col database.KVStore, key []byte, out interface{}) (bool, error) {
	raw, err := col.Get(key)
	if err == database.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, errors.Wrap(err, "blockstore: decoding")
	}
	return true, nil
}

// CommitBlock writes a block's header and body, keyed by the block id.
// Both writes are plain overwrites of content-addressed keys, so calling
// it twice with the same block is a no-op — the idempotent-writer
// contract spec.md §4.3 requires.
func (s *Store) CommitBlock(block *types.Block) error {
	id := block.Id()
	if err := putRLP(s.dbm.Column(database.ColumnHeader), id.Bytes(), block.Header); err != nil {
		return err
	}
	if err := putRLP(s.dbm.Column(database.ColumnBody), id.Bytes(), block.Body); err != nil {
		return err
	}
	return nil
}

// GetBlockHeaderByHash returns a block's header, or (nil, nil) if absent.
func (s *Store) GetBlockHeaderByHash(id common.HashValue) (*types.BlockHeader, error) {
	var h types.BlockHeader
	ok, err := getRLP(s.dbm.Column(database.ColumnHeader), id.Bytes(), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

// GetBlockByHash reassembles a full block from its header and body
// columns, or returns (nil, nil) if the header is absent.
func (s *Store) GetBlockByHash(id common.HashValue) (*types.Block, error) {
	header, err := s.GetBlockHeaderByHash(id)
	if err != nil || header == nil {
		return nil, err
	}
	var body types.Body
	ok, err := getRLP(s.dbm.Column(database.ColumnBody), id.Bytes(), &body)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("blockstore: block %s has a header but no body", id)
	}
	return &types.Block{Header: header, Body: &body}, nil
}

// GetBlocks resolves a batch of block ids, omitting any that are missing.
func (s *Store) GetBlocks(ids []common.HashValue) ([]*types.Block, error) {
	var out []*types.Block
	for _, id := range ids {
		b, err := s.GetBlockByHash(id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

// SaveBlockInfo persists a BlockInfo, keyed by its BlockId.
func (s *Store) SaveBlockInfo(info *types.BlockInfo) error {
	return putRLP(s.dbm.Column(database.ColumnBlockInfo), info.BlockId.Bytes(), info)
}

// GetBlockInfo returns the BlockInfo for id, or (nil, nil) if absent.
func (s *Store) GetBlockInfo(id common.HashValue) (*types.BlockInfo, error) {
	var info types.BlockInfo
	ok, err := getRLP(s.dbm.Column(database.ColumnBlockInfo), id.Bytes(), &info)
	if err != nil || !ok {
		return nil, err
	}
	return &info, nil
}

// GetBlockInfos resolves a batch of BlockInfos, omitting missing ones.
func (s *Store) GetBlockInfos(ids []common.HashValue) ([]*types.BlockInfo, error) {
	var out []*types.BlockInfo
	for _, id := range ids {
		info, err := s.GetBlockInfo(id)
		if err != nil {
			return nil, err
		}
		if info != nil {
			out = append(out, info)
		}
	}
	return out, nil
}

// SaveTransactionBatch persists a list of signed transactions keyed by
// their content hash.
func (s *Store) SaveTransactionBatch(txns []types.SignedUserTransaction) error {
	col := s.dbm.Column(database.ColumnTransaction)
	for _, txn := range txns {
		if err := putRLP(col, txn.Hash.Bytes(), &txn); err != nil {
			return err
		}
	}
	return nil
}

// GetTransaction returns a previously saved transaction by hash.
func (s *Store) GetTransaction(hash common.HashValue) (*types.SignedUserTransaction, error) {
	var txn types.SignedUserTransaction
	ok, err := getRLP(s.dbm.Column(database.ColumnTransaction), hash.Bytes(), &txn)
	if err != nil || !ok {
		return nil, err
	}
	return &txn, nil
}

// SaveTransactionInfos persists each info keyed by its own id and appends
// that id to the txn-hash -> info-ids secondary index. A transaction hash
// may accumulate entries from both canonical and orphaned blocks; callers
// must filter by canonical chain (see spec.md's Open Questions).
func (s *Store) SaveTransactionInfos(infos []*types.RichTransactionInfo) error {
	infoCol := s.dbm.Column(database.ColumnTransactionInfo)
	idxCol := s.dbm.Column(database.ColumnTxnHashToInfoIDs)
	for _, info := range infos {
		id := info.Id()
		if err := putRLP(infoCol, id.Bytes(), info); err != nil {
			return err
		}
		var ids []common.HashValue
		if _, err := getRLP(idxCol, info.TransactionHash.Bytes(), &ids); err != nil {
			return err
		}
		ids = append(ids, id)
		if err := putRLP(idxCol, info.TransactionHash.Bytes(), &ids); err != nil {
			return err
		}
	}
	return nil
}

// GetTransactionInfoIdsByTxnHash returns every info id ever recorded for
// hash, in insertion order (authoritative per spec.md's Open Questions —
// never sort this list).
func (s *Store) GetTransactionInfoIdsByTxnHash(hash common.HashValue) ([]common.HashValue, error) {
	var ids []common.HashValue
	if _, err := getRLP(s.dbm.Column(database.ColumnTxnHashToInfoIDs), hash.Bytes(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTransactionInfo returns the info for a given info id.
func (s *Store) GetTransactionInfo(infoId common.HashValue) (*types.RichTransactionInfo, error) {
	var info types.RichTransactionInfo
	ok, err := getRLP(s.dbm.Column(database.ColumnTransactionInfo), infoId.Bytes(), &info)
	if err != nil || !ok {
		return nil, err
	}
	return &info, nil
}

// GetTransactionInfos resolves infoIds in order, omitting missing ones.
func (s *Store) GetTransactionInfos(infoIds []common.HashValue) ([]*types.RichTransactionInfo, error) {
	var out []*types.RichTransactionInfo
	for _, id := range infoIds {
		info, err := s.GetTransactionInfo(id)
		if err != nil {
			return nil, err
		}
		if info != nil {
			out = append(out, info)
		}
	}
	return out, nil
}

// SaveBlockTransactionIds persists the ordered list of VM1 user-transaction
// hashes belonging to a block (metadata txns are not included — spec.md's
// "transaction_index 0 = metadata" leaves them out of this index).
func (s *Store) SaveBlockTransactionIds(blockId common.HashValue, txnHashes []common.HashValue) error {
	return putRLP(s.dbm.Column(database.ColumnBlockTxnIDs), blockId.Bytes(), &txnHashes)
}

// GetBlockTransactionIds returns the ordered VM1 user-txn hashes for a block.
func (s *Store) GetBlockTransactionIds(blockId common.HashValue) ([]common.HashValue, error) {
	var ids []common.HashValue
	if _, err := getRLP(s.dbm.Column(database.ColumnBlockTxnIDs), blockId.Bytes(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveBlockTxnInfoIds persists the ordered list of transaction-info ids
// produced by executing a block (VM1 infos, then VM2 infos).
func (s *Store) SaveBlockTxnInfoIds(blockId common.HashValue, infoIds []common.HashValue) error {
	return putRLP(s.dbm.Column(database.ColumnBlockTxnInfoIDs), blockId.Bytes(), &infoIds)
}

// GetBlockTxnInfoIds returns the ordered info ids for a block.
func (s *Store) GetBlockTxnInfoIds(blockId common.HashValue) ([]common.HashValue, error) {
	var ids []common.HashValue
	if _, err := getRLP(s.dbm.Column(database.ColumnBlockTxnInfoIDs), blockId.Bytes(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveContractEvents persists the events emitted by one transaction,
// keyed by its info id.
func (s *Store) SaveContractEvents(infoId common.HashValue, events []*types.ContractEvent) error {
	return putRLP(s.dbm.Column(database.ColumnEvent), infoId.Bytes(), &events)
}

// GetContractEvents returns the events for a given info id.
func (s *Store) GetContractEvents(infoId common.HashValue) ([]*types.ContractEvent, error) {
	var events []*types.ContractEvent
	if _, err := getRLP(s.dbm.Column(database.ColumnEvent), infoId.Bytes(), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetGenesis returns the id of the genesis block, or the zero hash if
// none has been saved yet.
func (s *Store) GetGenesis() (common.HashValue, error) {
	raw, err := s.dbm.Column(database.ColumnMisc).Get(miscGenesisKey)
	if err == database.ErrNotFound {
		return common.HashValue{}, nil
	}
	if err != nil {
		return common.HashValue{}, err
	}
	return common.HashFromBytes(raw)
}

// SaveGenesis records id as the genesis block. Called once, at chain
// construction time.
func (s *Store) SaveGenesis(id common.HashValue) error {
	return s.dbm.Column(database.ColumnMisc).Put(miscGenesisKey, id.Bytes())
}

// SaveStartupInfo durably records the current head so a restarted process
// can resume from it (spec.md's BlockChainStateErr recovery guidance).
func (s *Store) SaveStartupInfo(headId common.HashValue) error {
	return s.dbm.Column(database.ColumnMisc).Put(miscStartupKey, headId.Bytes())
}

// GetChainInfo returns the last durably saved head id, or the zero hash
// if the chain has never saved a startup info (fresh storage).
func (s *Store) GetChainInfo() (common.HashValue, error) {
	raw, err := s.dbm.Column(database.ColumnMisc).Get(miscStartupKey)
	if err == database.ErrNotFound {
		return common.HashValue{}, nil
	}
	if err != nil {
		return common.HashValue{}, err
	}
	return common.HashFromBytes(raw)
}
