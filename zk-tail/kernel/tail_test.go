package kernel

import (
	"math/rand"
	"testing"

	"github.com/kysee/zkp-tail/zk-tail/canon"
	"github.com/kysee/zkp-tail/zk-tail/codec"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/stretchr/testify/require"
)

func se(v uint64) types.SideEffect { return types.SideEffect{Value: types.NewFr(v)} }

func randomPrevious(rnd *rand.Rand) PreviousKernelData {
	var prev PreviousKernelData
	end := &prev.PublicInputs.End

	nc := rnd.Intn(types.MaxNewCommitmentsPerTx + 1)
	for i := 0; i < nc; i++ {
		end.NewCommitments[i] = se(uint64(1 + rnd.Intn(40)))
	}
	nn := rnd.Intn(types.MaxNewNullifiersPerTx + 1)
	for i := 0; i < nn; i++ {
		end.NewNullifiers[i] = types.LinkedSideEffect{Value: types.NewFr(uint64(1000 + rnd.Intn(1000)))}
		if nc > 0 && rnd.Intn(2) == 0 {
			end.NewNullifiers[i].LinkedTo = end.NewCommitments[rnd.Intn(nc)].Value
		}
	}
	nr := rnd.Intn(types.MaxReadRequestsPerTx + 1)
	for i := 0; i < nr; i++ {
		// some read requests target notes from earlier transactions
		end.ReadRequests[i] = se(uint64(1 + rnd.Intn(60)))
	}

	prev.PublicInputs.IsPrivate = true
	prev.Proof = make([]byte, 1+rnd.Intn(64))
	rnd.Read(prev.Proof)
	prev.VK = make([]byte, 1+rnd.Intn(64))
	rnd.Read(prev.VK)
	prev.VKIndex = uint32(rnd.Intn(1 << types.VKTreeHeight))
	for i := range prev.VKPath {
		prev.VKPath[i] = types.NewFr(rnd.Uint64())
	}
	return prev
}

func emptyKeys() []types.GrumpkinScalar {
	return make([]types.GrumpkinScalar, types.MaxNullifierKeyValidationRequestsPerTx)
}

func TestNewTailInputs_Linking(t *testing.T) {
	var prev PreviousKernelData
	end := &prev.PublicInputs.End
	end.NewCommitments[0] = se(10)
	end.NewCommitments[1] = se(30)
	end.NewCommitments[2] = se(20)
	end.NewNullifiers[0] = types.LinkedSideEffect{Value: types.NewFr(77), LinkedTo: types.NewFr(20)}
	end.ReadRequests[0] = se(30)
	end.ReadRequests[1] = se(5)

	ti, err := FromPreviousKernel(prev, emptyKeys())
	require.NoError(t, err)

	require.Equal(t, se(10), ti.SortedNewCommitments[0])
	require.Equal(t, se(20), ti.SortedNewCommitments[1])
	require.Equal(t, se(30), ti.SortedNewCommitments[2])
	require.True(t, ti.SortedNewCommitments[3].IsEmpty())
	require.Equal(t, []uint32{0, 2, 1, 3}, ti.SortedNewCommitmentsIndexes[:4])

	require.Equal(t, types.NewFr(1), ti.NullifierCommitmentHints[0])
	require.Equal(t, types.NewFr(2), ti.ReadCommitmentHints[0])
	require.True(t, ti.ReadCommitmentHints[1].IsZero())

	// prior stage result is carried through
	require.Equal(t, prev, ti.PreviousKernel)
}

func TestNewTailInputs_Lengths(t *testing.T) {
	var prev PreviousKernelData
	commitments := make([]types.SideEffect, types.MaxNewCommitmentsPerTx)
	nullifiers := make([]types.LinkedSideEffect, types.MaxNewNullifiersPerTx)

	_, err := NewTailInputs(prev, commitments[:3], nullifiers, emptyKeys())
	require.ErrorIs(t, err, types.ErrCapacityExceeded)

	_, err = NewTailInputs(prev, commitments, append(nullifiers, types.LinkedSideEffect{}), emptyKeys())
	require.ErrorIs(t, err, types.ErrCapacityExceeded)

	_, err = NewTailInputs(prev, commitments, nullifiers, emptyKeys()[1:])
	require.ErrorIs(t, err, types.ErrCapacityExceeded)

	ti, err := NewTailInputs(prev, commitments, nullifiers, emptyKeys())
	require.NoError(t, err)
	require.True(t, canon.IsPermutation(ti.SortedNewCommitmentsIndexes[:]))
}

func TestTailInputs_Invariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for round := 0; round < 30; round++ {
		prev := randomPrevious(rnd)
		ti, err := FromPreviousKernel(prev, emptyKeys())
		require.NoError(t, err)
		end := &prev.PublicInputs.End

		require.True(t, canon.IsCanonical(ti.SortedNewCommitments[:]))
		require.True(t, canon.IsCanonical(ti.SortedNewNullifiers[:]))
		require.True(t, canon.IsPermutation(ti.SortedNewCommitmentsIndexes[:]))
		require.True(t, canon.IsPermutation(ti.SortedNewNullifiersIndexes[:]))

		for i, c := range end.NewCommitments {
			require.Equal(t, c, ti.SortedNewCommitments[ti.SortedNewCommitmentsIndexes[i]])
		}
		for i, n := range end.NewNullifiers {
			require.Equal(t, n, ti.SortedNewNullifiers[ti.SortedNewNullifiersIndexes[i]])
		}

		checkHint := func(target, hint types.Fr) {
			if hint.IsZero() {
				// either index 0 or no match in this transaction
				if !target.IsZero() && ti.SortedNewCommitments[0].Value != target {
					for _, c := range ti.SortedNewCommitments {
						require.NotEqual(t, target, c.Value)
					}
				}
				return
			}
			idx := hint.Uint256().Uint64()
			require.Less(t, idx, uint64(types.MaxNewCommitmentsPerTx))
			require.Equal(t, target, ti.SortedNewCommitments[idx].Value)
			for k := uint64(0); k < idx; k++ {
				require.NotEqual(t, target, ti.SortedNewCommitments[k].Value, "hint must be the first match")
			}
		}
		for i, rr := range end.ReadRequests {
			checkHint(rr.Value, ti.ReadCommitmentHints[i])
		}
		for i, n := range end.NewNullifiers {
			checkHint(n.LinkedTo, ti.NullifierCommitmentHints[i])
		}
	}
}

func TestTailInputs_RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	prev := randomPrevious(rnd)
	keys := emptyKeys()
	keys[0] = types.NewGrumpkinScalar(99)
	ti, err := FromPreviousKernel(prev, keys)
	require.NoError(t, err)

	bz := ti.Encode()
	require.Len(t, bz, ti.EncodedSize())

	back, err := Decode(bz)
	require.NoError(t, err)
	require.Equal(t, ti, back)
	require.Equal(t, bz, back.Encode())
	require.Equal(t, ti.Digest(), back.Digest())

	var viaBinary TailInputs
	raw, err := ti.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, viaBinary.UnmarshalBinary(raw))
	require.Equal(t, *ti, viaBinary)
}

func TestTailInputs_RoundTripWithoutProof(t *testing.T) {
	var prev PreviousKernelData
	prev.PublicInputs.End.NewCommitments[0] = se(5)
	ti, err := FromPreviousKernel(prev, emptyKeys())
	require.NoError(t, err)
	require.Nil(t, ti.PreviousKernel.Proof)
	require.Nil(t, ti.PreviousKernel.VK)

	back, err := Decode(ti.Encode())
	require.NoError(t, err)
	require.Equal(t, ti, back)

	prev.Proof = []byte{}
	ti, err = FromPreviousKernel(prev, emptyKeys())
	require.NoError(t, err)
	back, err = Decode(ti.Encode())
	require.NoError(t, err)
	require.Nil(t, back.PreviousKernel.Proof)
	require.Equal(t, ti.Digest(), back.Digest())
}

func TestTailInputs_Layout(t *testing.T) {
	var prev PreviousKernelData
	prev.Proof = []byte{0xaa}
	prev.VK = []byte{0xbb, 0xcc}
	prev.PublicInputs.End.NewCommitments[0] = se(5)
	ti, err := FromPreviousKernel(prev, emptyKeys())
	require.NoError(t, err)

	bz := ti.Encode()
	off := accumulatedDataSize
	require.Equal(t, byte(0), bz[off], "is private")
	off++
	require.Equal(t, []byte{0, 0, 0, 1, 0xaa}, bz[off:off+5])
	off += 5
	require.Equal(t, []byte{0, 0, 0, 2, 0xbb, 0xcc}, bz[off:off+6])
	off += 6 + 4 + types.VKTreeHeight*types.FrBytes

	// first sorted commitment follows the prior stage result
	require.Equal(t, types.NewFr(5), types.Fr(bz[off:off+32]))
	off += types.MaxNewCommitmentsPerTx * types.FrBytes
	// perm is big-endian uint32, identity for a single commitment
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, bz[off:off+8])
}

func TestDecode_Errors(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	ti, err := FromPreviousKernel(randomPrevious(rnd), emptyKeys())
	require.NoError(t, err)
	bz := ti.Encode()

	_, err = Decode(bz[:len(bz)-1])
	require.ErrorIs(t, err, codec.ErrBufferUnderflow)

	_, err = Decode(nil)
	require.ErrorIs(t, err, codec.ErrBufferUnderflow)

	_, err = Decode(append(append([]byte{}, bz...), 0))
	require.ErrorIs(t, err, codec.ErrBufferFormat)

	bad := append([]byte{}, bz...)
	bad[accumulatedDataSize] = 2
	_, err = Decode(bad)
	require.ErrorIs(t, err, codec.ErrBufferFormat)

	// a read request above the field modulus
	bad = append([]byte{}, bz...)
	for i := 0; i < types.FrBytes; i++ {
		bad[i] = 0xff
	}
	_, err = Decode(bad)
	require.ErrorIs(t, err, codec.ErrBufferFormat)
}

func TestVKMembershipRoot(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	prev := randomPrevious(rnd)
	root := prev.VKMembershipRoot()
	require.False(t, root.IsZero())
	require.Equal(t, root, prev.VKMembershipRoot())

	prev.VKIndex ^= 1
	require.NotEqual(t, root, prev.VKMembershipRoot())
}
