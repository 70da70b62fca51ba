package kernel

import (
	"github.com/kysee/zkp-tail/utils"
	"github.com/kysee/zkp-tail/zk-tail/codec"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

// AccumulatedData is what the earlier kernel iterations collected, in the
// order the calls produced it.
type AccumulatedData struct {
	ReadRequests                   [types.MaxReadRequestsPerTx]types.SideEffect                                      `json:"readRequests"`
	NullifierKeyValidationRequests [types.MaxNullifierKeyValidationRequestsPerTx]types.NullifierKeyValidationRequest `json:"nullifierKeyValidationRequests"`
	NewCommitments                 [types.MaxNewCommitmentsPerTx]types.SideEffect                                    `json:"newCommitments"`
	NewNullifiers                  [types.MaxNewNullifiersPerTx]types.LinkedSideEffect                               `json:"newNullifiers"`
}

const accumulatedDataSize = types.MaxReadRequestsPerTx*types.FrBytes +
	types.MaxNullifierKeyValidationRequestsPerTx*2*types.FrBytes +
	types.MaxNewCommitmentsPerTx*types.FrBytes +
	types.MaxNewNullifiersPerTx*2*types.FrBytes

func (a *AccumulatedData) Encode(w *codec.Writer) {
	codec.WriteArray(w, a.ReadRequests[:])
	codec.WriteArray(w, a.NullifierKeyValidationRequests[:])
	codec.WriteArray(w, a.NewCommitments[:])
	codec.WriteArray(w, a.NewNullifiers[:])
}

func readAccumulatedData(r *codec.Reader) (AccumulatedData, error) {
	var a AccumulatedData
	if err := readInto(r, a.ReadRequests[:], types.ReadSideEffect); err != nil {
		return a, errors.Wrap(err, "read requests")
	}
	if err := readInto(r, a.NullifierKeyValidationRequests[:], types.ReadNullifierKeyValidationRequest); err != nil {
		return a, errors.Wrap(err, "nullifier key validation requests")
	}
	if err := readInto(r, a.NewCommitments[:], types.ReadSideEffect); err != nil {
		return a, errors.Wrap(err, "new commitments")
	}
	if err := readInto(r, a.NewNullifiers[:], types.ReadLinkedSideEffect); err != nil {
		return a, errors.Wrap(err, "new nullifiers")
	}
	return a, nil
}

type KernelPublicInputs struct {
	End       AccumulatedData `json:"end"`
	IsPrivate bool            `json:"isPrivate"`
}

// PreviousKernelData is the result of the last inner kernel iteration. The
// tail carries it through unmodified.
type PreviousKernelData struct {
	PublicInputs KernelPublicInputs           `json:"publicInputs"`
	Proof        []byte                       `json:"proof"`
	VK           []byte                       `json:"vk"`
	VKIndex      uint32                       `json:"vkIndex"`
	VKPath       [types.VKTreeHeight]types.Fr `json:"vkPath"`
}

func (p *PreviousKernelData) Encode(w *codec.Writer) {
	p.PublicInputs.End.Encode(w)
	w.Bool(p.PublicInputs.IsPrivate)
	w.VarBytes(p.Proof)
	w.VarBytes(p.VK)
	w.Uint32(p.VKIndex)
	codec.WriteArray(w, p.VKPath[:])
}

func (p *PreviousKernelData) EncodedSize() int {
	return accumulatedDataSize + 1 +
		4 + len(p.Proof) +
		4 + len(p.VK) +
		4 + types.VKTreeHeight*types.FrBytes
}

func ReadPreviousKernelData(r *codec.Reader) (PreviousKernelData, error) {
	var p PreviousKernelData
	var err error
	if p.PublicInputs.End, err = readAccumulatedData(r); err != nil {
		return p, err
	}
	if p.PublicInputs.IsPrivate, err = r.Bool(); err != nil {
		return p, errors.Wrap(err, "is private")
	}
	if p.Proof, err = r.VarBytes(); err != nil {
		return p, errors.Wrap(err, "proof")
	}
	if p.VK, err = r.VarBytes(); err != nil {
		return p, errors.Wrap(err, "vk")
	}
	if p.VKIndex, err = r.Uint32(); err != nil {
		return p, errors.Wrap(err, "vk index")
	}
	if err = readInto(r, p.VKPath[:], types.ReadFr); err != nil {
		return p, errors.Wrap(err, "vk path")
	}
	return p, nil
}

// VKMembershipRoot is the root of the vk tree the previous proof claims
// membership in, folded from the vk hash along VKPath.
func (p *PreviousKernelData) VKMembershipRoot() types.Fr {
	siblings := make([][]byte, len(p.VKPath))
	for i := range p.VKPath {
		siblings[i] = p.VKPath[i][:]
	}
	root := utils.FoldPath(utils.MiMCHash(p.VK), uint64(p.VKIndex), siblings)

	var f types.Fr
	copy(f[:], root)
	return f
}

func readInto[T any](r *codec.Reader, dst []T, dec func(*codec.Reader) (T, error)) error {
	vs, err := codec.ReadArray[T](r, len(dst), dec)
	if err != nil {
		return err
	}
	copy(dst, vs)
	return nil
}
