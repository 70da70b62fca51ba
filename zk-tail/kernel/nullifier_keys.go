package kernel

import (
	"github.com/consensys/gnark-crypto/ecc/grumpkin"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

var ErrNullifierKeyMismatch = errors.New("nullifier key mismatch")

// NullifierPublicKey returns sk·G on Grumpkin. The zero key maps to the
// zero point.
func NullifierPublicKey(sk types.GrumpkinScalar) types.Point {
	var p grumpkin.G1Affine
	p.ScalarMultiplicationBase(sk.BigInt())
	if p.IsInfinity() {
		return types.Point{}
	}
	return types.Point{X: types.Fr(p.X.Bytes()), Y: types.Fr(p.Y.Bytes())}
}

// VerifyNullifierKeys checks that every non-empty validation request carries
// the public key of the secret key at the same position.
func (t *TailInputs) VerifyNullifierKeys() error {
	reqs := &t.PreviousKernel.PublicInputs.End.NullifierKeyValidationRequests
	for i, req := range reqs {
		if req.IsEmpty() {
			continue
		}
		sk := t.MasterNullifierSecretKeys[i]
		if sk.IsZero() {
			return errors.Wrapf(ErrNullifierKeyMismatch, "request %d: missing secret key", i)
		}
		if pk := NullifierPublicKey(sk); pk != req.PublicKey {
			return errors.Wrapf(ErrNullifierKeyMismatch, "request %d: public key %s,%s", i, req.PublicKey.X, req.PublicKey.Y)
		}
	}
	return nil
}
