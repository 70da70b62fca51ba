package rpc

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	grumpkinfr "github.com/consensys/gnark-crypto/ecc/grumpkin/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zkp-tail/utils"
	"github.com/kysee/zkp-tail/zk-tail/abi"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/kysee/zkp-tail/zk-tail/prover"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("module", "rpc").Logger()

type account struct {
	signer       *eddsa.PrivateKey
	nullifierKey types.GrumpkinScalar
	nullifierPub types.Point
	nonce        uint64
}

type contract struct {
	abi      *abi.ContractAbi
	portal   common.Address
	deployed bool
	storage  map[types.Fr]types.Fr
}

// MemoryClient is an in-process node. It executes a call by turning every
// argument into a new note and spending a per-account nonce nullifier, then
// builds the tail inputs for it. Proofs are made only when a backend is set.
type MemoryClient struct {
	mtx sync.RWMutex

	backend prover.Backend

	accounts  map[types.Address]*account
	order     []types.Address
	contracts map[types.Address]*contract
	receipts  map[TxHash]*TxReceipt

	commitmentsTree *merkletree.Tree
	commitments     []types.Fr
	nullifiers      map[types.Fr]struct{}
}

var _ Client = (*MemoryClient)(nil)

func NewMemoryClient(backend prover.Backend) *MemoryClient {
	return &MemoryClient{
		backend:         backend,
		accounts:        make(map[types.Address]*account),
		contracts:       make(map[types.Address]*contract),
		receipts:        make(map[TxHash]*TxReceipt),
		commitmentsTree: merkletree.New(utils.MiMCHasher()),
		nullifiers:      make(map[types.Fr]struct{}),
	}
}

func (c *MemoryClient) AddAccount(ctx context.Context) (types.Address, error) {
	signer, err := eddsa.GenerateKey(crand.Reader)
	if err != nil {
		return types.Address{}, errors.Wrap(err, "generate signing key")
	}
	var e grumpkinfr.Element
	if _, err := e.SetRandom(); err != nil {
		return types.Address{}, errors.Wrap(err, "generate nullifier key")
	}
	b := e.Bytes()
	nk, err := types.GrumpkinScalarFromBytes(b[:])
	if err != nil {
		return types.Address{}, err
	}

	acct := &account{
		signer:       signer,
		nullifierKey: nk,
		nullifierPub: kernel.NullifierPublicKey(nk),
	}
	addr := types.Address(hashFr(signer.Public().Bytes()))

	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.accounts[addr] = acct
	c.order = append(c.order, addr)
	logger.Debug().Str("address", addr.String()).Msg("account added")
	return addr, nil
}

func (c *MemoryClient) GetAccounts(ctx context.Context) ([]types.Address, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return append([]types.Address{}, c.order...), nil
}

func (c *MemoryClient) AddContracts(ctx context.Context, contracts []DeployedContract) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, dc := range contracts {
		if existing, ok := c.contracts[dc.Address]; ok {
			existing.abi = dc.Abi
			existing.portal = dc.PortalAddress
			continue
		}
		c.contracts[dc.Address] = &contract{
			abi:     dc.Abi,
			portal:  dc.PortalAddress,
			storage: make(map[types.Fr]types.Fr),
		}
	}
	return nil
}

func (c *MemoryClient) IsContractDeployed(ctx context.Context, addr types.Address) (bool, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	ct, ok := c.contracts[addr]
	return ok && ct.deployed, nil
}

// ContractAddress derives the address a deployment will get.
func ContractAddress(contractAbi *abi.ContractAbi, args []types.Fr, salt types.Fr, from types.Address) types.Address {
	ins := [][]byte{salt[:], from[:]}
	h := contractAbi.Hash()
	ins = append(ins, h[:])
	for i := range args {
		ins = append(ins, args[i][:])
	}
	return types.Address(hashFr(ins...))
}

func (c *MemoryClient) CreateDeploymentTxRequest(ctx context.Context, contractAbi *abi.ContractAbi, args []types.Fr, portal common.Address, salt types.Fr, from types.Address) (*TxRequest, error) {
	if _, err := contractAbi.Function("constructor"); err != nil {
		return nil, err
	}
	to := ContractAddress(contractAbi, args, salt, from)
	req, err := c.newRequest(from, to, "constructor", args)
	if err != nil {
		return nil, err
	}
	req.IsConstructor = true
	req.PortalAddress = portal
	req.Salt = salt

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if _, ok := c.contracts[to]; !ok {
		c.contracts[to] = &contract{abi: contractAbi, portal: portal, storage: make(map[types.Fr]types.Fr)}
	}
	return req, nil
}

func (c *MemoryClient) CreateTxRequest(ctx context.Context, functionName string, args []types.Fr, to, from types.Address) (*TxRequest, error) {
	c.mtx.RLock()
	ct, ok := c.contracts[to]
	c.mtx.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownContract, "%s", to)
	}
	if ct.abi != nil {
		if _, err := ct.abi.Function(functionName); err != nil {
			return nil, err
		}
	}
	return c.newRequest(from, to, functionName, args)
}

func (c *MemoryClient) newRequest(from, to types.Address, functionName string, args []types.Fr) (*TxRequest, error) {
	if len(args) >= types.MaxNewCommitmentsPerTx {
		return nil, errors.Wrapf(types.ErrCapacityExceeded, "%d arguments", len(args))
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	acct, ok := c.accounts[from]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAccount, "%s", from)
	}
	acct.nonce++
	return &TxRequest{
		From:         from,
		To:           to,
		FunctionName: functionName,
		Args:         append([]types.Fr{}, args...),
		Nonce:        acct.nonce,
	}, nil
}

func (c *MemoryClient) SignTxRequest(ctx context.Context, req *TxRequest) (Signature, error) {
	c.mtx.RLock()
	acct, ok := c.accounts[req.From]
	c.mtx.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAccount, "%s", req.From)
	}
	h := requestHash(req)
	sig, err := acct.signer.Sign(h[:], utils.MiMCHasher())
	if err != nil {
		return nil, errors.Wrap(err, "sign tx request")
	}
	return sig, nil
}

// CreateTx executes req for its sender and returns the transaction with its
// tail inputs, proven when the client has a backend.
func (c *MemoryClient) CreateTx(ctx context.Context, req *TxRequest, sig Signature) (*Tx, error) {
	c.mtx.RLock()
	acct, ok := c.accounts[req.From]
	c.mtx.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAccount, "%s", req.From)
	}
	h := requestHash(req)
	valid, err := acct.signer.Public().Verify(sig, h[:], utils.MiMCHasher())
	if err != nil || !valid {
		return nil, errors.Wrapf(ErrBadSignature, "request from %s", req.From)
	}

	prev := execute(req, h, acct)
	keys := make([]types.GrumpkinScalar, types.MaxNullifierKeyValidationRequestsPerTx)
	keys[0] = acct.nullifierKey
	inputs, err := kernel.FromPreviousKernel(prev, keys)
	if err != nil {
		return nil, err
	}
	if err := inputs.VerifyNullifierKeys(); err != nil {
		return nil, err
	}

	tx := &Tx{
		Hash:      TxHash(inputs.Digest()),
		Request:   *req,
		Signature: sig,
		Inputs:    inputs,
	}
	if c.backend != nil {
		if tx.Proof, err = prover.ProveTail(ctx, c.backend, inputs); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

func execute(req *TxRequest, h types.Fr, acct *account) kernel.PreviousKernelData {
	var prev kernel.PreviousKernelData
	prev.PublicInputs.IsPrivate = true
	end := &prev.PublicInputs.End

	end.NewCommitments[0] = types.SideEffect{Value: hashFr(h[:], []byte("call"))}
	for i := range req.Args {
		end.NewCommitments[i+1] = types.SideEffect{Value: hashFr(req.To[:], req.Args[i][:], h[:])}
	}

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], req.Nonce)
	end.NewNullifiers[0] = types.LinkedSideEffect{Value: hashFr(acct.nullifierKey[:], req.From[:], nonce[:])}
	end.NullifierKeyValidationRequests[0] = types.NullifierKeyValidationRequest{PublicKey: acct.nullifierPub}
	return prev
}

func (c *MemoryClient) SendTx(ctx context.Context, tx *Tx) (TxHash, error) {
	if err := ctx.Err(); err != nil {
		return TxHash{}, err
	}
	if tx.Inputs == nil {
		return TxHash{}, errors.New("tx without inputs")
	}
	if c.backend != nil {
		if err := c.backend.Verify(tx.Proof, tx.Inputs.Encode()); err != nil {
			return TxHash{}, err
		}
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	seen := make(map[types.Fr]struct{})
	for _, n := range tx.Inputs.SortedNewNullifiers {
		if n.Value.IsZero() {
			continue
		}
		_, dupInTx := seen[n.Value]
		if _, dup := c.nullifiers[n.Value]; dup || dupInTx {
			c.receipts[tx.Hash] = &TxReceipt{TxHash: tx.Hash, Status: TxStatusDropped, Error: ErrDuplicateNullifier.Error()}
			return TxHash{}, errors.Wrapf(ErrDuplicateNullifier, "%s", n.Value)
		}
		seen[n.Value] = struct{}{}
	}

	for n := range seen {
		c.nullifiers[n] = struct{}{}
	}
	for _, cm := range tx.Inputs.SortedNewCommitments {
		if cm.IsEmpty() {
			break
		}
		c.commitments = append(c.commitments, cm.Value)
		c.commitmentsTree.Push(cm.Value[:])
	}

	receipt := &TxReceipt{TxHash: tx.Hash, Status: TxStatusMined}
	if tx.Request.IsConstructor {
		ct, ok := c.contracts[tx.Request.To]
		if !ok {
			ct = &contract{portal: tx.Request.PortalAddress, storage: make(map[types.Fr]types.Fr)}
			c.contracts[tx.Request.To] = ct
		}
		ct.deployed = true
		for i, arg := range tx.Request.Args {
			ct.storage[types.NewFr(uint64(i))] = arg
		}
		addr := tx.Request.To
		receipt.ContractAddress = &addr
	}
	c.receipts[tx.Hash] = receipt

	logger.Debug().
		Str("tx", tx.Hash.String()).
		Int("commitments", len(c.commitments)).
		Msg("tx mined")
	return tx.Hash, nil
}

func (c *MemoryClient) GetTxReceipt(ctx context.Context, hash TxHash) (*TxReceipt, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, errors.Wrapf(ErrTxNotFound, "%s", hash)
	}
	cp := *r
	return &cp, nil
}

// GetStorageAt reads a deployed contract's slot. Constructor arguments fill
// slots 0..n-1; unset slots read as zero.
func (c *MemoryClient) GetStorageAt(ctx context.Context, addr types.Address, slot types.Fr) (types.Fr, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	ct, ok := c.contracts[addr]
	if !ok || !ct.deployed {
		return types.Fr{}, errors.Wrapf(ErrUnknownContract, "%s", addr)
	}
	return ct.storage[slot], nil
}

// CommitmentsRoot is the root of the tree of all mined note commitments.
func (c *MemoryClient) CommitmentsRoot() []byte {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return append([]byte{}, c.commitmentsTree.Root()...)
}

// CommitmentProof returns a membership proof of a mined note commitment.
func (c *MemoryClient) CommitmentProof(commitment types.Fr) (root []byte, proofSet [][]byte, idx, numLeaves uint64, err error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	var buf bytes.Buffer
	found := false
	for i, cm := range c.commitments {
		if !found && cm == commitment {
			idx = uint64(i)
			found = true
		}
		buf.Write(cm[:])
	}
	if !found {
		err = errors.Errorf("commitment %s not found", commitment)
		return
	}
	root, proofSet, numLeaves, err = merkletree.BuildReaderProof(&buf, utils.MiMCHasher(), types.FrBytes, idx)
	return
}

func requestHash(req *TxRequest) types.Fr {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], req.Nonce)
	flag := []byte{0}
	if req.IsConstructor {
		flag[0] = 1
	}
	ins := [][]byte{req.From[:], req.To[:], []byte(req.FunctionName), nonce[:], flag, req.PortalAddress[:], req.Salt[:]}
	for i := range req.Args {
		ins = append(ins, req.Args[i][:])
	}
	return hashFr(ins...)
}

func hashFr(ins ...[]byte) types.Fr {
	var f types.Fr
	copy(f[:], utils.MiMCHash(ins...))
	return f
}
