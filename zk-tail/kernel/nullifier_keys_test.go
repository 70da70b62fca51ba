package kernel

import (
	"testing"

	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/stretchr/testify/require"
)

func TestVerifyNullifierKeys(t *testing.T) {
	sk := types.NewGrumpkinScalar(12345)
	pk := NullifierPublicKey(sk)
	require.False(t, pk.IsZero())
	require.True(t, NullifierPublicKey(types.GrumpkinScalar{}).IsZero())

	var prev PreviousKernelData
	prev.PublicInputs.End.NullifierKeyValidationRequests[2].PublicKey = pk

	keys := emptyKeys()
	keys[2] = sk
	ti, err := FromPreviousKernel(prev, keys)
	require.NoError(t, err)
	require.NoError(t, ti.VerifyNullifierKeys())

	keys[2] = types.NewGrumpkinScalar(54321)
	ti, err = FromPreviousKernel(prev, keys)
	require.NoError(t, err)
	require.ErrorIs(t, ti.VerifyNullifierKeys(), ErrNullifierKeyMismatch)

	// a key at the wrong position
	keys[2] = types.GrumpkinScalar{}
	keys[3] = sk
	ti, err = FromPreviousKernel(prev, keys)
	require.NoError(t, err)
	require.ErrorIs(t, ti.VerifyNullifierKeys(), ErrNullifierKeyMismatch)
}
