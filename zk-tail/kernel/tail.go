// Package kernel assembles and encodes the private inputs of the tail
// kernel circuit.
package kernel

import (
	"os"

	"github.com/kysee/zkp-tail/utils"
	"github.com/kysee/zkp-tail/zk-tail/canon"
	"github.com/kysee/zkp-tail/zk-tail/codec"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("module", "kernel").Logger()

const tailFixedSize = types.MaxNewCommitmentsPerTx*types.FrBytes +
	types.MaxNewCommitmentsPerTx*4 +
	types.MaxReadRequestsPerTx*types.FrBytes +
	types.MaxNewNullifiersPerTx*2*types.FrBytes +
	types.MaxNewNullifiersPerTx*4 +
	types.MaxNewNullifiersPerTx*types.FrBytes +
	types.MaxNullifierKeyValidationRequestsPerTx*types.GrumpkinScalarBytes

// TailInputs is the private input bundle of the tail circuit. Fields are in
// wire order. A TailInputs is not modified after construction.
type TailInputs struct {
	PreviousKernel PreviousKernelData `json:"previousKernel"`

	SortedNewCommitments        [types.MaxNewCommitmentsPerTx]types.SideEffect `json:"sortedNewCommitments"`
	SortedNewCommitmentsIndexes [types.MaxNewCommitmentsPerTx]uint32           `json:"sortedNewCommitmentsIndexes"`
	ReadCommitmentHints         [types.MaxReadRequestsPerTx]types.Fr           `json:"readCommitmentHints"`

	SortedNewNullifiers        [types.MaxNewNullifiersPerTx]types.LinkedSideEffect `json:"sortedNewNullifiers"`
	SortedNewNullifiersIndexes [types.MaxNewNullifiersPerTx]uint32                 `json:"sortedNewNullifiersIndexes"`
	NullifierCommitmentHints   [types.MaxNewNullifiersPerTx]types.Fr               `json:"nullifierCommitmentHints"`

	MasterNullifierSecretKeys [types.MaxNullifierKeyValidationRequestsPerTx]types.GrumpkinScalar `json:"masterNullifierSecretKeys"`
}

// NewTailInputs sorts commitments and nullifiers and resolves the hints for
// the read requests of prev and for the nullifiers. Every slice must have
// exactly its capacity.
func NewTailInputs(
	prev PreviousKernelData,
	commitments []types.SideEffect,
	nullifiers []types.LinkedSideEffect,
	keys []types.GrumpkinScalar,
) (*TailInputs, error) {
	if err := checkLen("commitments", len(commitments), types.MaxNewCommitmentsPerTx); err != nil {
		return nil, err
	}
	if err := checkLen("nullifiers", len(nullifiers), types.MaxNewNullifiersPerTx); err != nil {
		return nil, err
	}
	if err := checkLen("master nullifier secret keys", len(keys), types.MaxNullifierKeyValidationRequestsPerTx); err != nil {
		return nil, err
	}

	sortedCommitments, commitmentPerm, err := canon.Canonicalize(commitments, types.MaxNewCommitmentsPerTx)
	if err != nil {
		return nil, errors.Wrap(err, "commitments")
	}
	sortedNullifiers, nullifierPerm, err := canon.Canonicalize(nullifiers, types.MaxNewNullifiersPerTx)
	if err != nil {
		return nil, errors.Wrap(err, "nullifiers")
	}

	t := &TailInputs{PreviousKernel: prev}
	copy(t.SortedNewCommitments[:], sortedCommitments)
	copy(t.SortedNewCommitmentsIndexes[:], commitmentPerm)
	copy(t.ReadCommitmentHints[:], canon.ReadRequestHints(sortedCommitments, prev.PublicInputs.End.ReadRequests[:]))
	copy(t.SortedNewNullifiers[:], sortedNullifiers)
	copy(t.SortedNewNullifiersIndexes[:], nullifierPerm)
	copy(t.NullifierCommitmentHints[:], canon.NullifierHints(sortedCommitments, nullifiers))
	copy(t.MasterNullifierSecretKeys[:], keys)

	logger.Debug().
		Int("commitments", countNonEmpty(commitments)).
		Int("nullifiers", countNonEmpty(nullifiers)).
		Str("digest", t.Digest().String()).
		Msg("tail inputs built")
	return t, nil
}

// FromPreviousKernel builds the tail inputs from the arrays accumulated in prev.
func FromPreviousKernel(prev PreviousKernelData, keys []types.GrumpkinScalar) (*TailInputs, error) {
	end := &prev.PublicInputs.End
	return NewTailInputs(prev, end.NewCommitments[:], end.NewNullifiers[:], keys)
}

func (t *TailInputs) EncodedSize() int {
	return t.PreviousKernel.EncodedSize() + tailFixedSize
}

// Encode writes the bundle in the layout the proving backend reads. Array
// lengths are implied by the capacities and are not written.
func (t *TailInputs) Encode() []byte {
	w := codec.NewWriter(t.EncodedSize())
	t.PreviousKernel.Encode(w)
	codec.WriteArray(w, t.SortedNewCommitments[:])
	codec.WriteUint32s(w, t.SortedNewCommitmentsIndexes[:])
	codec.WriteArray(w, t.ReadCommitmentHints[:])
	codec.WriteArray(w, t.SortedNewNullifiers[:])
	codec.WriteUint32s(w, t.SortedNewNullifiersIndexes[:])
	codec.WriteArray(w, t.NullifierCommitmentHints[:])
	codec.WriteArray(w, t.MasterNullifierSecretKeys[:])
	return w.Bytes()
}

// Decode is the inverse of Encode. The whole buffer must be consumed.
func Decode(bz []byte) (*TailInputs, error) {
	r := codec.NewReader(bz)
	t := &TailInputs{}
	var err error
	if t.PreviousKernel, err = ReadPreviousKernelData(r); err != nil {
		return nil, errors.Wrap(err, "previous kernel")
	}
	if err = readInto(r, t.SortedNewCommitments[:], types.ReadSideEffect); err != nil {
		return nil, errors.Wrap(err, "sorted new commitments")
	}
	if err = readUint32sInto(r, t.SortedNewCommitmentsIndexes[:]); err != nil {
		return nil, errors.Wrap(err, "sorted new commitments indexes")
	}
	if err = readInto(r, t.ReadCommitmentHints[:], types.ReadFr); err != nil {
		return nil, errors.Wrap(err, "read commitment hints")
	}
	if err = readInto(r, t.SortedNewNullifiers[:], types.ReadLinkedSideEffect); err != nil {
		return nil, errors.Wrap(err, "sorted new nullifiers")
	}
	if err = readUint32sInto(r, t.SortedNewNullifiersIndexes[:]); err != nil {
		return nil, errors.Wrap(err, "sorted new nullifiers indexes")
	}
	if err = readInto(r, t.NullifierCommitmentHints[:], types.ReadFr); err != nil {
		return nil, errors.Wrap(err, "nullifier commitment hints")
	}
	if err = readInto(r, t.MasterNullifierSecretKeys[:], types.ReadGrumpkinScalar); err != nil {
		return nil, errors.Wrap(err, "master nullifier secret keys")
	}
	if err = r.Done(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TailInputs) MarshalBinary() ([]byte, error) {
	return t.Encode(), nil
}

func (t *TailInputs) UnmarshalBinary(bz []byte) error {
	d, err := Decode(bz)
	if err != nil {
		return err
	}
	*t = *d
	return nil
}

// Digest is the MiMC hash of the encoding.
func (t *TailInputs) Digest() types.Fr {
	var f types.Fr
	copy(f[:], utils.MiMCHash(t.Encode()))
	return f
}

func readUint32sInto(r *codec.Reader, dst []uint32) error {
	vs, err := codec.ReadUint32s(r, len(dst))
	if err != nil {
		return err
	}
	copy(dst, vs)
	return nil
}

func checkLen(what string, got, capacity int) error {
	if got != capacity {
		return errors.Wrapf(types.ErrCapacityExceeded, "%s: length %d, capacity %d", what, got, capacity)
	}
	return nil
}

func countNonEmpty[T canon.Sortable](items []T) int {
	n := 0
	for _, it := range items {
		if !it.IsEmpty() {
			n++
		}
	}
	return n
}
