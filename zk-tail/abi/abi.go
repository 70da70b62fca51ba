// Package abi reads compiled contract descriptions and turns command line
// arguments into field elements for a function call.
package abi

import (
	"context"
	"encoding/json"
	"os"

	"github.com/kysee/zkp-tail/utils"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

var ErrFunctionNotFound = errors.New("function not found")

const (
	KindField   = "field"
	KindInteger = "integer"
	KindBoolean = "boolean"
	KindAddress = "address"
)

type AbiType struct {
	Kind  string `json:"kind"`
	Sign  string `json:"sign,omitempty"` // "signed" or "unsigned", integers only
	Width int    `json:"width,omitempty"`
}

type Parameter struct {
	Name string  `json:"name"`
	Type AbiType `json:"type"`
}

type FunctionAbi struct {
	Name         string      `json:"name"`
	FunctionType string      `json:"functionType"`
	Parameters   []Parameter `json:"parameters"`
	Bytecode     string      `json:"bytecode,omitempty"`
}

type ContractAbi struct {
	Name      string        `json:"name"`
	Functions []FunctionAbi `json:"functions"`
}

func LoadContractAbi(path string) (*ContractAbi, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read contract abi")
	}
	var c ContractAbi
	if err := json.Unmarshal(bz, &c); err != nil {
		return nil, errors.Wrapf(err, "invalid contract abi %s", path)
	}
	return &c, nil
}

func (c *ContractAbi) Function(name string) (*FunctionAbi, error) {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return &c.Functions[i], nil
		}
	}
	return nil, errors.Wrapf(ErrFunctionNotFound, "%s on %s", name, c.Name)
}

// Hash commits to the whole description. It takes part in contract address
// derivation.
func (c *ContractAbi) Hash() types.Fr {
	bz, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}
	var f types.Fr
	copy(f[:], utils.MiMCHash(bz))
	return f
}

// PrepTx parses the contract address, finds the function and encodes its
// arguments.
func PrepTx(contractFile, contractAddress, functionName string, args []string) (types.Address, []types.Fr, *ContractAbi, error) {
	addr, err := types.ParseAddress(contractAddress)
	if err != nil {
		return types.Address{}, nil, nil, errors.Wrapf(err, "unable to parse contract address %s", contractAddress)
	}
	c, err := LoadContractAbi(contractFile)
	if err != nil {
		return types.Address{}, nil, nil, err
	}
	fn, err := c.Function(functionName)
	if err != nil {
		return types.Address{}, nil, nil, err
	}
	encoded, err := EncodeArgs(args, fn.Parameters)
	if err != nil {
		return types.Address{}, nil, nil, err
	}
	return addr, encoded, c, nil
}

type AccountLister interface {
	GetAccounts(ctx context.Context) ([]types.Address, error)
}

// TxSender parses from, or falls back to the first account of the client.
func TxSender(ctx context.Context, client AccountLister, from string) (types.Address, error) {
	if from != "" {
		addr, err := types.ParseAddress(from)
		if err != nil {
			return types.Address{}, errors.Wrapf(err, "invalid option 'from' passed: %s", from)
		}
		return addr, nil
	}
	accounts, err := client.GetAccounts(ctx)
	if err != nil {
		return types.Address{}, err
	}
	if len(accounts) == 0 {
		return types.Address{}, errors.New("no accounts found")
	}
	return accounts[0], nil
}
