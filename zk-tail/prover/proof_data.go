package prover

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/circuit"
)

// ProofData is the proof and its public inputs as a contract call expects
// them.
type ProofData struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"publicInputs"` // commitments, nullifiers, links, read requests
}

func NewProofData(proof Proof, assignment *circuit.LinkageCircuit) *ProofData {
	pd := &ProofData{Proof: hexutil.Encode(proof)}
	for _, group := range [][]frontend.Variable{
		assignment.Commitments,
		assignment.Nullifiers,
		assignment.NullifierLinks,
		assignment.ReadRequests,
	} {
		for _, v := range group {
			pd.PublicInputs = append(pd.PublicInputs, hexString(v))
		}
	}
	return pd
}

func hexString(v frontend.Variable) string {
	switch x := v.(type) {
	case *big.Int:
		return hexutil.EncodeBig(x)
	case uint64:
		return hexutil.EncodeUint64(x)
	}
	return "0x0"
}
