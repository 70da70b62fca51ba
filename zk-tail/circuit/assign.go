package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zkp-tail/zk-tail/canon"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

// Assign fills a full size circuit from tail inputs. The unsorted arrays come
// from the previous kernel.
func Assign(t *kernel.TailInputs) *LinkageCircuit {
	end := &t.PreviousKernel.PublicInputs.End
	c := New(TailSizes)

	for i := range end.NewCommitments {
		c.Commitments[i] = fe(end.NewCommitments[i].Value)
		c.SortedCommitments[i] = fe(t.SortedNewCommitments[i].Value)
		c.SortedCommitmentsIndexes[i] = uint64(t.SortedNewCommitmentsIndexes[i])
	}
	for i := range end.NewNullifiers {
		c.Nullifiers[i] = fe(end.NewNullifiers[i].Value)
		c.NullifierLinks[i] = fe(end.NewNullifiers[i].LinkedTo)
		c.SortedNullifiers[i] = fe(t.SortedNewNullifiers[i].Value)
		c.SortedNullifierLinks[i] = fe(t.SortedNewNullifiers[i].LinkedTo)
		c.SortedNullifiersIndexes[i] = uint64(t.SortedNewNullifiersIndexes[i])
		c.NullifierCommitmentHints[i] = fe(t.NullifierCommitmentHints[i])
	}
	for i := range end.ReadRequests {
		c.ReadRequests[i] = fe(end.ReadRequests[i].Value)
		c.ReadCommitmentHints[i] = fe(t.ReadCommitmentHints[i])
	}
	return c
}

// FromArrays sorts the arrays and resolves hints at their own lengths. It
// serves circuits smaller than the tail capacities.
func FromArrays(commitments []types.SideEffect, nullifiers []types.LinkedSideEffect, readRequests []types.SideEffect) (*LinkageCircuit, error) {
	s := Sizes{Commitments: len(commitments), Nullifiers: len(nullifiers), ReadRequests: len(readRequests)}
	if err := s.validate(); err != nil {
		return nil, err
	}
	sortedCommitments, commitmentPerm, err := canon.Canonicalize(commitments, s.Commitments)
	if err != nil {
		return nil, errors.Wrap(err, "commitments")
	}
	sortedNullifiers, nullifierPerm, err := canon.Canonicalize(nullifiers, s.Nullifiers)
	if err != nil {
		return nil, errors.Wrap(err, "nullifiers")
	}
	readHints := canon.ReadRequestHints(sortedCommitments, readRequests)
	nullifierHints := canon.NullifierHints(sortedCommitments, nullifiers)

	c := New(s)
	for i := range commitments {
		c.Commitments[i] = fe(commitments[i].Value)
		c.SortedCommitments[i] = fe(sortedCommitments[i].Value)
		c.SortedCommitmentsIndexes[i] = uint64(commitmentPerm[i])
	}
	for i := range nullifiers {
		c.Nullifiers[i] = fe(nullifiers[i].Value)
		c.NullifierLinks[i] = fe(nullifiers[i].LinkedTo)
		c.SortedNullifiers[i] = fe(sortedNullifiers[i].Value)
		c.SortedNullifierLinks[i] = fe(sortedNullifiers[i].LinkedTo)
		c.SortedNullifiersIndexes[i] = uint64(nullifierPerm[i])
		c.NullifierCommitmentHints[i] = fe(nullifierHints[i])
	}
	for i := range readRequests {
		c.ReadRequests[i] = fe(readRequests[i].Value)
		c.ReadCommitmentHints[i] = fe(readHints[i])
	}
	return c, nil
}

// PublicOnly keeps the public inputs of an assignment.
func (c *LinkageCircuit) PublicOnly() *LinkageCircuit {
	p := New(c.Sizes())
	copy(p.Commitments, c.Commitments)
	copy(p.Nullifiers, c.Nullifiers)
	copy(p.NullifierLinks, c.NullifierLinks)
	copy(p.ReadRequests, c.ReadRequests)
	return p
}

func fe(f types.Fr) frontend.Variable {
	return f.BigInt()
}
