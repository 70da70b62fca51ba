// Package prover turns tail inputs into a PLONK proof of the linkage circuit.
package prover

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/zkp-tail/zk-tail/circuit"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidProof = errors.New("invalid proof")
	ErrSizeMismatch = errors.New("assignment does not fit the circuit")
)

type Proof []byte

var _ Backend = (*LocalBackend)(nil)

// Backend proves encoded tail inputs and verifies proofs against them.
type Backend interface {
	Prove(ctx context.Context, payload []byte) (Proof, error)
	Verify(proof Proof, payload []byte) error
}

// LocalBackend proves in process with keys from an unsafe in-memory SRS.
// It is meant for development and tests, not for production keys.
type LocalBackend struct {
	sizes circuit.Sizes
	ccs   constraint.ConstraintSystem
	pk    plonk.ProvingKey
	vk    plonk.VerifyingKey

	logger zerolog.Logger
}

func NewLocalBackend(sizes circuit.Sizes, logger zerolog.Logger) (*LocalBackend, error) {
	start := time.Now()
	ccs, err := circuit.Compile(sizes)
	if err != nil {
		return nil, err
	}

	// todo: load the SRS from a ceremony file
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, errors.Wrap(err, "srs")
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, errors.Wrap(err, "plonk setup")
	}

	logger.Info().
		Int("constraints", ccs.GetNbConstraints()).
		Dur("elapsed", time.Since(start)).
		Msg("linkage circuit ready")
	return &LocalBackend{sizes: sizes, ccs: ccs, pk: pk, vk: vk, logger: logger}, nil
}

func (b *LocalBackend) Prove(ctx context.Context, payload []byte) (Proof, error) {
	t, err := kernel.Decode(payload)
	if err != nil {
		return nil, errors.Wrap(err, "payload")
	}
	return b.ProveAssignment(ctx, circuit.Assign(t))
}

func (b *LocalBackend) Verify(proof Proof, payload []byte) error {
	t, err := kernel.Decode(payload)
	if err != nil {
		return errors.Wrap(err, "payload")
	}
	return b.VerifyAssignment(proof, circuit.Assign(t))
}

func (b *LocalBackend) ProveAssignment(ctx context.Context, assignment *circuit.LinkageCircuit) (Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkSizes(assignment); err != nil {
		return nil, err
	}

	wtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrap(err, "witness")
	}
	proof, err := plonk.Prove(b.ccs, b.pk, wtn,
		backend.WithSolverOptions(solver.WithLogger(b.logger)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "prove")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "write proof")
	}
	b.logger.Debug().Int("size", buf.Len()).Msg("proof created")
	return buf.Bytes(), nil
}

// VerifyAssignment checks proof against the public part of assignment.
func (b *LocalBackend) VerifyAssignment(proof Proof, assignment *circuit.LinkageCircuit) error {
	if err := b.checkSizes(assignment); err != nil {
		return err
	}
	p := plonk.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return errors.Wrapf(ErrInvalidProof, "read proof: %v", err)
	}
	pub, err := frontend.NewWitness(assignment.PublicOnly(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return errors.Wrap(err, "public witness")
	}
	if err := plonk.Verify(p, b.vk, pub); err != nil {
		return errors.Wrap(ErrInvalidProof, err.Error())
	}
	return nil
}

func (b *LocalBackend) checkSizes(assignment *circuit.LinkageCircuit) error {
	if s := assignment.Sizes(); s != b.sizes {
		return errors.Wrapf(ErrSizeMismatch, "assignment sizes %+v, circuit sizes %+v", s, b.sizes)
	}
	return nil
}

// ExportSolidity writes an on-chain verifier for the backend's keys.
func (b *LocalBackend) ExportSolidity(w io.Writer) error {
	return b.vk.ExportSolidity(w)
}

func ProveTail(ctx context.Context, b Backend, t *kernel.TailInputs) (Proof, error) {
	return b.Prove(ctx, t.Encode())
}
