package canon

import (
	"math/rand"
	"testing"

	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/stretchr/testify/require"
)

func se(v uint64) types.SideEffect { return types.SideEffect{Value: types.NewFr(v)} }

func TestCanonicalize(t *testing.T) {
	items := []types.SideEffect{se(10), se(30), se(20), {}}
	sorted, perm, err := Canonicalize(items, 4)
	require.NoError(t, err)
	require.Equal(t, []types.SideEffect{se(10), se(20), se(30), {}}, sorted)
	require.Equal(t, []uint32{0, 2, 1, 3}, perm)
	require.True(t, IsCanonical(sorted))

	// input untouched
	require.Equal(t, se(30), items[1])
}

func TestCanonicalize_PadsAndMovesEmptiesLast(t *testing.T) {
	items := []types.SideEffect{{}, se(5), {}, se(1)}
	sorted, perm, err := Canonicalize(items, 6)
	require.NoError(t, err)
	require.Len(t, sorted, 6)
	require.Equal(t, []types.SideEffect{se(1), se(5), {}, {}, {}, {}}, sorted)
	require.True(t, IsPermutation(perm))
	for i, it := range items {
		require.Equal(t, it, sorted[perm[i]])
	}
	// empties keep their relative order
	require.Equal(t, uint32(2), perm[0])
	require.Equal(t, uint32(3), perm[2])
}

func TestCanonicalize_Stable(t *testing.T) {
	items := []types.LinkedSideEffect{
		{Value: types.NewFr(7), LinkedTo: types.NewFr(2)},
		{Value: types.NewFr(3)},
		{Value: types.NewFr(7), LinkedTo: types.NewFr(1)},
	}
	sorted, perm, err := Canonicalize(items, 3)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 0, 2}, perm)
	require.Equal(t, types.NewFr(2), sorted[1].LinkedTo)
	require.Equal(t, types.NewFr(1), sorted[2].LinkedTo)
}

func TestCanonicalize_CapacityExceeded(t *testing.T) {
	_, _, err := Canonicalize([]types.SideEffect{se(1), se(2), se(3)}, 2)
	require.ErrorIs(t, err, types.ErrCapacityExceeded)

	_, _, err = Canonicalize([]types.SideEffect{}, 0)
	require.NoError(t, err)
}

func TestCanonicalize_Random(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		n := rnd.Intn(types.MaxNewCommitmentsPerTx + 1)
		items := make([]types.SideEffect, n)
		for i := range items {
			// small range forces duplicates and empties
			items[i] = se(uint64(rnd.Intn(20)))
		}
		sorted, perm, err := Canonicalize(items, types.MaxNewCommitmentsPerTx)
		require.NoError(t, err)
		require.Len(t, sorted, types.MaxNewCommitmentsPerTx)
		require.True(t, IsCanonical(sorted))
		require.True(t, IsPermutation(perm))
		for i, it := range items {
			require.Equal(t, it, sorted[perm[i]])
		}
	}
}

func TestIsPermutation(t *testing.T) {
	require.True(t, IsPermutation([]uint32{2, 0, 1}))
	require.False(t, IsPermutation([]uint32{0, 0, 1}))
	require.False(t, IsPermutation([]uint32{0, 3, 1}))
	require.True(t, IsPermutation(nil))
}

func TestIsCanonical(t *testing.T) {
	require.False(t, IsCanonical([]types.SideEffect{{}, se(1)}))
	require.False(t, IsCanonical([]types.SideEffect{se(2), se(1)}))
	require.True(t, IsCanonical([]types.SideEffect{se(1), se(1), {}}))
}
