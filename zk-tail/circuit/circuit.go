// Package circuit holds the gnark circuit that checks the tail inputs
// against the arrays the previous kernel accumulated.
package circuit

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/std/selector"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

// Sizes are the array capacities a circuit is compiled for. Every size must
// be a power of two so that hints are range checked by the multiplexer.
type Sizes struct {
	Commitments  int
	Nullifiers   int
	ReadRequests int
}

var TailSizes = Sizes{
	Commitments:  types.MaxNewCommitmentsPerTx,
	Nullifiers:   types.MaxNewNullifiersPerTx,
	ReadRequests: types.MaxReadRequestsPerTx,
}

func (s Sizes) validate() error {
	for _, n := range []int{s.Commitments, s.Nullifiers, s.ReadRequests} {
		if n <= 0 || n&(n-1) != 0 {
			return errors.Errorf("circuit size %d is not a power of two", n)
		}
	}
	return nil
}

// LinkageCircuit proves that the sorted arrays are ordered permutations of
// the accumulated ones and that every non-zero hint points at the commitment
// its read request or nullifier refers to.
type LinkageCircuit struct {
	Commitments    []frontend.Variable `gnark:",public"`
	Nullifiers     []frontend.Variable `gnark:",public"`
	NullifierLinks []frontend.Variable `gnark:",public"`
	ReadRequests   []frontend.Variable `gnark:",public"`

	SortedCommitments        []frontend.Variable
	SortedCommitmentsIndexes []frontend.Variable
	ReadCommitmentHints      []frontend.Variable

	SortedNullifiers         []frontend.Variable
	SortedNullifierLinks     []frontend.Variable
	SortedNullifiersIndexes  []frontend.Variable
	NullifierCommitmentHints []frontend.Variable
}

// New allocates an unassigned circuit of the given sizes, ready to compile.
func New(s Sizes) *LinkageCircuit {
	return &LinkageCircuit{
		Commitments:              make([]frontend.Variable, s.Commitments),
		Nullifiers:               make([]frontend.Variable, s.Nullifiers),
		NullifierLinks:           make([]frontend.Variable, s.Nullifiers),
		ReadRequests:             make([]frontend.Variable, s.ReadRequests),
		SortedCommitments:        make([]frontend.Variable, s.Commitments),
		SortedCommitmentsIndexes: make([]frontend.Variable, s.Commitments),
		ReadCommitmentHints:      make([]frontend.Variable, s.ReadRequests),
		SortedNullifiers:         make([]frontend.Variable, s.Nullifiers),
		SortedNullifierLinks:     make([]frontend.Variable, s.Nullifiers),
		SortedNullifiersIndexes:  make([]frontend.Variable, s.Nullifiers),
		NullifierCommitmentHints: make([]frontend.Variable, s.Nullifiers),
	}
}

func (c *LinkageCircuit) Sizes() Sizes {
	return Sizes{
		Commitments:  len(c.Commitments),
		Nullifiers:   len(c.Nullifiers),
		ReadRequests: len(c.ReadRequests),
	}
}

func (c *LinkageCircuit) Define(api frontend.API) error {
	// commitments
	for i := range c.Commitments {
		api.AssertIsEqual(c.Commitments[i], selector.Mux(api, c.SortedCommitmentsIndexes[i], c.SortedCommitments...))
	}
	assertCanonical(api, c.SortedCommitments)

	// nullifiers; value and link move together
	for i := range c.Nullifiers {
		api.AssertIsEqual(c.Nullifiers[i], selector.Mux(api, c.SortedNullifiersIndexes[i], c.SortedNullifiers...))
		api.AssertIsEqual(c.NullifierLinks[i], selector.Mux(api, c.SortedNullifiersIndexes[i], c.SortedNullifierLinks...))
	}
	assertCanonical(api, c.SortedNullifiers)

	// hints
	for i := range c.ReadRequests {
		assertHint(api, c.ReadCommitmentHints[i], c.ReadRequests[i], c.SortedCommitments)
	}
	for i := range c.Nullifiers {
		assertHint(api, c.NullifierCommitmentHints[i], c.NullifierLinks[i], c.SortedCommitments)
	}
	return nil
}

// assertCanonical checks ascending order with zero entries at the end.
func assertCanonical(api frontend.API, sorted []frontend.Variable) {
	for k := 0; k+1 < len(sorted); k++ {
		aEmpty := api.IsZero(sorted[k])
		bEmpty := api.IsZero(sorted[k+1])
		api.AssertIsEqual(api.Mul(aEmpty, api.Sub(1, bEmpty)), 0)

		greater := api.IsZero(api.Sub(api.Cmp(sorted[k], sorted[k+1]), 1))
		api.AssertIsEqual(api.Mul(api.Sub(1, bEmpty), greater), 0)
	}
}

// assertHint checks sorted[hint] == target for a non-zero hint. A zero hint
// is either index 0 or no link, and is left to the caller.
func assertHint(api frontend.API, hint, target frontend.Variable, sorted []frontend.Variable) {
	v := selector.Mux(api, hint, sorted...)
	linked := api.Sub(1, api.IsZero(hint))
	api.AssertIsEqual(api.Mul(linked, api.Sub(v, target)), 0)
}

// Compile builds the PLONK constraint system for the given sizes.
func Compile(s Sizes) (constraint.ConstraintSystem, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, New(s))
	if err != nil {
		return nil, errors.Wrap(err, "compile linkage circuit")
	}
	return ccs, nil
}
