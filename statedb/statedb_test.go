package statedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starcoinorg/stargo-chain/storage/database"
)

func newTestStateDB(t *testing.T) *StateDB {
	t.Helper()
	return New(NewStore(database.NewMemDatabase()), nil)
}

func TestStateDB_EmptyRootAndMissingKey(t *testing.T) {
	db := newTestStateDB(t)
	assert.Equal(t, EmptyRootHash(), db.StateRoot())

	_, found, err := db.Get([]byte("nobody"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateDB_ApplyCommitGet(t *testing.T) {
	db := newTestStateDB(t)
	db.ApplyWriteSet([]WriteOp{
		{Path: []byte("alice"), Value: []byte("balance:100")},
		{Path: []byte("bob"), Value: []byte("balance:50")},
	})
	root, err := db.Commit()
	require.NoError(t, err)
	assert.NotEqual(t, EmptyRootHash(), root)

	v, found, err := db.Get([]byte("alice"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("balance:100"), v)

	_, found, err = db.Get([]byte("carol"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateDB_LaterWriteInSameCommitWins(t *testing.T) {
	db := newTestStateDB(t)
	db.ApplyWriteSet([]WriteOp{
		{Path: []byte("alice"), Value: []byte("v1")},
		{Path: []byte("alice"), Value: []byte("v2")},
	})
	_, err := db.Commit()
	require.NoError(t, err)

	v, found, err := db.Get([]byte("alice"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v2"), v)
}

func TestStateDB_DeleteCollapsesToEmptyRoot(t *testing.T) {
	db := newTestStateDB(t)
	db.ApplyWriteSet([]WriteOp{{Path: []byte("alice"), Value: []byte("v1")}})
	_, err := db.Commit()
	require.NoError(t, err)

	db.ApplyWriteSet([]WriteOp{{Path: []byte("alice"), Delete: true}})
	root, err := db.Commit()
	require.NoError(t, err)
	assert.Equal(t, EmptyRootHash(), root)
}

func TestStateDB_ForkAtRootMatchesInvariant(t *testing.T) {
	store := NewStore(database.NewMemDatabase())
	db := New(store, nil)
	db.ApplyWriteSet([]WriteOp{{Path: []byte("alice"), Value: []byte("v1")}})
	root, err := db.Commit()
	require.NoError(t, err)
	require.NoError(t, db.Flush())

	fork := db.ForkAt(root)
	assert.Equal(t, root, fork.StateRoot())

	fork.ApplyWriteSet([]WriteOp{{Path: []byte("bob"), Value: []byte("v2")}})
	_, err = fork.Commit()
	require.NoError(t, err)

	assert.Equal(t, root, db.StateRoot(), "mutating a fork must not affect the original")
}

func TestStateDB_GetWithProofVerifiesPresenceAndAbsence(t *testing.T) {
	db := newTestStateDB(t)
	db.ApplyWriteSet([]WriteOp{{Path: []byte("alice"), Value: []byte("v1")}})
	root, err := db.Commit()
	require.NoError(t, err)

	value, proof, err := db.GetWithProof([]byte("alice"))
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.True(t, proof.Verify([]byte("alice"), value, true, root))
	assert.False(t, proof.Verify([]byte("alice"), []byte("tampered"), true, root))

	_, absenceProof, err := db.GetWithProof([]byte("nobody"))
	require.NoError(t, err)
	assert.True(t, absenceProof.Verify([]byte("nobody"), nil, false, root))
}

func TestStateDB_DumpIterReturnsAllEntries(t *testing.T) {
	db := newTestStateDB(t)
	db.ApplyWriteSet([]WriteOp{
		{Path: []byte("alice"), Value: []byte("v1")},
		{Path: []byte("bob"), Value: []byte("v2")},
		{Path: []byte("carol"), Value: []byte("v3")},
	})
	_, err := db.Commit()
	require.NoError(t, err)

	entries, err := db.DumpIter()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[string]string{}
	for _, e := range entries {
		seen[string(e.Path)] = string(e.Value)
	}
	assert.Equal(t, "v1", seen["alice"])
	assert.Equal(t, "v2", seen["bob"])
	assert.Equal(t, "v3", seen["carol"])
}
