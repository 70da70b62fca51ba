package rpc

import (
	"context"
	"testing"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zkp-tail/utils"
	"github.com/kysee/zkp-tail/zk-tail/abi"
	"github.com/kysee/zkp-tail/zk-tail/canon"
	"github.com/kysee/zkp-tail/zk-tail/circuit"
	"github.com/kysee/zkp-tail/zk-tail/prover"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var counterAbi = &abi.ContractAbi{
	Name: "Counter",
	Functions: []abi.FunctionAbi{
		{Name: "constructor", Parameters: []abi.Parameter{{Name: "start", Type: abi.AbiType{Kind: abi.KindField}}}},
		{Name: "increment", Parameters: []abi.Parameter{{Name: "by", Type: abi.AbiType{Kind: abi.KindField}}}},
	},
}

func deploy(t *testing.T, c *MemoryClient, from types.Address) types.Address {
	ctx := context.Background()
	portal := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	req, err := c.CreateDeploymentTxRequest(ctx, counterAbi, []types.Fr{types.NewFr(41)}, portal, types.NewFr(3), from)
	require.NoError(t, err)
	require.True(t, req.IsConstructor)

	deployed, err := c.IsContractDeployed(ctx, req.To)
	require.NoError(t, err)
	require.False(t, deployed)

	sig, err := c.SignTxRequest(ctx, req)
	require.NoError(t, err)
	tx, err := c.CreateTx(ctx, req, sig)
	require.NoError(t, err)
	hash, err := c.SendTx(ctx, tx)
	require.NoError(t, err)

	receipt, err := c.GetTxReceipt(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, TxStatusMined, receipt.Status)
	require.Equal(t, req.To, *receipt.ContractAddress)
	return req.To
}

func TestMemoryClient_Flow(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(nil)

	alice, err := c.AddAccount(ctx)
	require.NoError(t, err)
	bob, err := c.AddAccount(ctx)
	require.NoError(t, err)
	accounts, err := c.GetAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.Address{alice, bob}, accounts)

	counter := deploy(t, c, alice)
	deployed, err := c.IsContractDeployed(ctx, counter)
	require.NoError(t, err)
	require.True(t, deployed)

	v, err := c.GetStorageAt(ctx, counter, types.NewFr(0))
	require.NoError(t, err)
	require.Equal(t, types.NewFr(41), v)

	req, err := c.CreateTxRequest(ctx, "increment", []types.Fr{types.NewFr(1)}, counter, bob)
	require.NoError(t, err)
	sig, err := c.SignTxRequest(ctx, req)
	require.NoError(t, err)
	tx, err := c.CreateTx(ctx, req, sig)
	require.NoError(t, err)

	require.NoError(t, tx.Inputs.VerifyNullifierKeys())
	require.True(t, canon.IsCanonical(tx.Inputs.SortedNewCommitments[:]))
	require.Equal(t, TxHash(tx.Inputs.Digest()), tx.Hash)

	_, err = c.SendTx(ctx, tx)
	require.NoError(t, err)

	// the same nullifier cannot be spent twice
	_, err = c.SendTx(ctx, tx)
	require.ErrorIs(t, err, ErrDuplicateNullifier)
	receipt, err := c.GetTxReceipt(ctx, tx.Hash)
	require.NoError(t, err)
	require.Equal(t, TxStatusDropped, receipt.Status)

	_, err = c.GetTxReceipt(ctx, TxHash(types.NewFr(1)))
	require.ErrorIs(t, err, ErrTxNotFound)
}

func TestMemoryClient_Rejects(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(nil)
	alice, err := c.AddAccount(ctx)
	require.NoError(t, err)
	stranger := types.Address(types.NewFr(999))

	_, err = c.CreateTxRequest(ctx, "increment", nil, stranger, alice)
	require.ErrorIs(t, err, ErrUnknownContract)

	counter := deploy(t, c, alice)
	_, err = c.CreateTxRequest(ctx, "decrement", nil, counter, alice)
	require.ErrorIs(t, err, abi.ErrFunctionNotFound)
	_, err = c.CreateTxRequest(ctx, "increment", nil, counter, stranger)
	require.ErrorIs(t, err, ErrUnknownAccount)

	req, err := c.CreateTxRequest(ctx, "increment", []types.Fr{types.NewFr(2)}, counter, alice)
	require.NoError(t, err)
	sig, err := c.SignTxRequest(ctx, req)
	require.NoError(t, err)

	// tampered request
	req.Args[0] = types.NewFr(3)
	_, err = c.CreateTx(ctx, req, sig)
	require.ErrorIs(t, err, ErrBadSignature)

	_, err = c.GetStorageAt(ctx, stranger, types.Fr{})
	require.ErrorIs(t, err, ErrUnknownContract)

	_, err = c.CreateTxRequest(ctx, "increment", make([]types.Fr, types.MaxNewCommitmentsPerTx), counter, alice)
	require.ErrorIs(t, err, types.ErrCapacityExceeded)
}

func TestMemoryClient_CommitmentProof(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(nil)
	alice, err := c.AddAccount(ctx)
	require.NoError(t, err)
	deploy(t, c, alice)

	require.Len(t, c.commitments, 2)
	root, proof, idx, n, err := c.CommitmentProof(c.commitments[1])
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)
	require.Equal(t, uint64(2), n)
	require.Equal(t, c.CommitmentsRoot(), root)
	require.True(t, merkletree.VerifyProof(utils.MiMCHasher(), root, proof, idx, n))

	_, _, _, _, err = c.CommitmentProof(types.NewFr(12345))
	require.Error(t, err)
}

func TestMemoryClient_CreateTxProves(t *testing.T) {
	ctx := context.Background()
	b, err := prover.NewLocalBackend(circuit.Sizes{Commitments: 4, Nullifiers: 4, ReadRequests: 4}, zerolog.Nop())
	require.NoError(t, err)
	c := NewMemoryClient(b)
	alice, err := c.AddAccount(ctx)
	require.NoError(t, err)

	req, err := c.CreateDeploymentTxRequest(ctx, counterAbi, []types.Fr{types.NewFr(1)}, common.Address{}, types.Fr{}, alice)
	require.NoError(t, err)
	sig, err := c.SignTxRequest(ctx, req)
	require.NoError(t, err)

	// the tail inputs go to the backend, which only fits small bundles
	_, err = c.CreateTx(ctx, req, sig)
	require.ErrorIs(t, err, prover.ErrSizeMismatch)
}
