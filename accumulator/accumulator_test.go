package accumulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starcoinorg/stargo-chain/common"
	"github.com/starcoinorg/stargo-chain/storage/database"
)

func leafHash(i int) common.HashValue {
	return common.HashOfData([]byte{byte(i), byte(i >> 8)})
}

func newTestAccumulator(t *testing.T) *Accumulator {
	t.Helper()
	return New(NewStore(database.NewMemDatabase()))
}

func TestAccumulator_EmptyRootIsPlaceholder(t *testing.T) {
	acc := newTestAccumulator(t)
	assert.Equal(t, common.PlaceholderHash, acc.RootHash())
	assert.Equal(t, uint64(0), acc.NumLeaves())
}

func TestAccumulator_ChunkingIndependence(t *testing.T) {
	const n = 37
	var leaves []common.HashValue
	for i := 0; i < n; i++ {
		leaves = append(leaves, leafHash(i))
	}

	whole := New(NewStore(database.NewMemDatabase()))
	root1, err := whole.Append(leaves)
	require.NoError(t, err)

	split := New(NewStore(database.NewMemDatabase()))
	_, err = split.Append(leaves[:13])
	require.NoError(t, err)
	_, err = split.Append(leaves[13:20])
	require.NoError(t, err)
	root2, err := split.Append(leaves[20:])
	require.NoError(t, err)

	assert.Equal(t, root1, root2, "root must not depend on how appends are chunked")
	assert.Equal(t, whole.GetInfo().FrozenSubtreeRoots, split.GetInfo().FrozenSubtreeRoots)
}

func TestAccumulator_ProofVerifiesForEveryLeaf(t *testing.T) {
	const n = 41
	acc := newTestAccumulator(t)
	var leaves []common.HashValue
	for i := 0; i < n; i++ {
		leaves = append(leaves, leafHash(i))
	}
	root, err := acc.Append(leaves)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		proof, err := acc.GetProof(uint64(i))
		require.NoError(t, err)
		assert.True(t, proof.Verify(leaves[i], root), "proof for leaf %d must verify", i)

		wrongLeaf := leafHash(i + 1000)
		assert.False(t, proof.Verify(wrongLeaf, root), "proof must reject a substituted leaf")
	}
}

func TestAccumulator_GetLeafAndGetLeaves(t *testing.T) {
	const n = 10
	acc := newTestAccumulator(t)
	var leaves []common.HashValue
	for i := 0; i < n; i++ {
		leaves = append(leaves, leafHash(i))
	}
	_, err := acc.Append(leaves)
	require.NoError(t, err)

	got, err := acc.GetLeaf(3)
	require.NoError(t, err)
	assert.Equal(t, leaves[3], got)

	_, err = acc.GetLeaf(n)
	assert.Error(t, err)

	forward, err := acc.GetLeaves(2, false, 4)
	require.NoError(t, err)
	assert.Equal(t, leaves[2:6], forward)

	backward, err := acc.GetLeaves(5, true, 3)
	require.NoError(t, err)
	assert.Equal(t, []common.HashValue{leaves[5], leaves[4], leaves[3]}, backward)
}

func TestAccumulator_FlushIsolatesDirtyState(t *testing.T) {
	store := NewStore(database.NewMemDatabase())
	acc := New(store)

	_, err := acc.Append([]common.HashValue{leafHash(1), leafHash(2)})
	require.NoError(t, err)
	info := acc.GetInfo()

	reloaded, err := NewWithInfo(store, info)
	require.NoError(t, err)
	_, err = reloaded.GetLeaf(0)
	assert.Error(t, err, "unflushed nodes must not be visible to a fresh view over the same store")

	require.NoError(t, acc.Flush())
	reloaded, err = NewWithInfo(store, info)
	require.NoError(t, err)
	leaf, err := reloaded.GetLeaf(0)
	require.NoError(t, err)
	assert.Equal(t, leafHash(1), leaf)
}

func TestAccumulator_ForkDoesNotAffectOriginal(t *testing.T) {
	store := NewStore(database.NewMemDatabase())
	acc := New(store)
	_, err := acc.Append([]common.HashValue{leafHash(1), leafHash(2), leafHash(3)})
	require.NoError(t, err)
	require.NoError(t, acc.Flush())

	baseInfo := acc.GetInfo()
	fork, err := acc.Fork(nil)
	require.NoError(t, err)

	_, err = fork.Append([]common.HashValue{leafHash(99)})
	require.NoError(t, err)

	assert.Equal(t, baseInfo.AccumulatorRoot, acc.RootHash(), "appending to a fork must not change the original's root")
	assert.NotEqual(t, acc.RootHash(), fork.RootHash())
	assert.Equal(t, uint64(3), acc.NumLeaves())
	assert.Equal(t, uint64(4), fork.NumLeaves())
}

func TestAccumulator_NewWithInfoRejectsMismatchedPeakCount(t *testing.T) {
	store := NewStore(database.NewMemDatabase())
	_, err := NewWithInfo(store, &Info{NumLeaves: 5, FrozenSubtreeRoots: []common.HashValue{leafHash(0)}})
	assert.Error(t, err)
}
