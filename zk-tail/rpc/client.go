// Package rpc is the boundary between tooling and a node that accepts
// private transactions.
package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zkp-tail/zk-tail/abi"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/kysee/zkp-tail/zk-tail/prover"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

var (
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownContract    = errors.New("unknown contract")
	ErrTxNotFound         = errors.New("tx not found")
	ErrBadSignature       = errors.New("bad signature")
	ErrDuplicateNullifier = errors.New("nullifier already exists")
)

type DeployedContract struct {
	Abi           *abi.ContractAbi
	Address       types.Address
	PortalAddress common.Address
}

type TxRequest struct {
	From         types.Address `json:"from"`
	To           types.Address `json:"to"`
	FunctionName string        `json:"functionName"`
	Args         []types.Fr    `json:"args"`
	Nonce        uint64        `json:"nonce"`

	// deployments only
	IsConstructor bool           `json:"isConstructor,omitempty"`
	PortalAddress common.Address `json:"portalAddress,omitempty"`
	Salt          types.Fr       `json:"salt,omitempty"`
}

type Signature []byte

type TxHash types.Fr

func (h TxHash) String() string { return types.Fr(h).String() }

func (h TxHash) MarshalText() ([]byte, error) { return types.Fr(h).MarshalText() }

func (h *TxHash) UnmarshalText(text []byte) error { return (*types.Fr)(h).UnmarshalText(text) }

// Tx is a signed request together with its tail inputs and their proof.
type Tx struct {
	Hash      TxHash             `json:"hash"`
	Request   TxRequest          `json:"request"`
	Signature Signature          `json:"signature"`
	Inputs    *kernel.TailInputs `json:"inputs"`
	Proof     prover.Proof       `json:"proof,omitempty"`
}

type TxStatus string

const (
	TxStatusMined   TxStatus = "mined"
	TxStatusDropped TxStatus = "dropped"
)

type TxReceipt struct {
	TxHash          TxHash         `json:"txHash"`
	Status          TxStatus       `json:"status"`
	Error           string         `json:"error,omitempty"`
	ContractAddress *types.Address `json:"contractAddress,omitempty"`
}

// Client is the node interface used by the command line tools.
type Client interface {
	AddAccount(ctx context.Context) (types.Address, error)
	GetAccounts(ctx context.Context) ([]types.Address, error)
	AddContracts(ctx context.Context, contracts []DeployedContract) error
	IsContractDeployed(ctx context.Context, contract types.Address) (bool, error)
	CreateDeploymentTxRequest(ctx context.Context, contract *abi.ContractAbi, args []types.Fr, portal common.Address, salt types.Fr, from types.Address) (*TxRequest, error)
	CreateTxRequest(ctx context.Context, functionName string, args []types.Fr, to, from types.Address) (*TxRequest, error)
	SignTxRequest(ctx context.Context, req *TxRequest) (Signature, error)
	CreateTx(ctx context.Context, req *TxRequest, sig Signature) (*Tx, error)
	SendTx(ctx context.Context, tx *Tx) (TxHash, error)
	GetTxReceipt(ctx context.Context, hash TxHash) (*TxReceipt, error)
	GetStorageAt(ctx context.Context, contract types.Address, slot types.Fr) (types.Fr, error)
}
