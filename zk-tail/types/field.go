package types

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	grumpkinfr "github.com/consensys/gnark-crypto/ecc/grumpkin/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/kysee/zkp-tail/zk-tail/codec"
	"github.com/pkg/errors"
)

const (
	FrBytes             = fr.Bytes
	GrumpkinScalarBytes = grumpkinfr.Bytes
)

// Fr is a bn254 scalar field element in canonical big-endian form.
// The zero value is the empty sentinel.
type Fr [FrBytes]byte

func NewFr(v uint64) Fr {
	e := fr.NewElement(v)
	return FrFromElement(&e)
}

func FrFromElement(e *fr.Element) Fr {
	return Fr(e.Bytes())
}

// FrFromBytes rejects anything that is not exactly 32 bytes below the modulus.
func FrFromBytes(b []byte) (Fr, error) {
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return Fr{}, errors.Wrapf(codec.ErrBufferFormat, "field element 0x%x: %v", b, err)
	}
	return FrFromElement(&e), nil
}

// ParseFr accepts a decimal or 0x-prefixed hex string.
func ParseFr(s string) (Fr, error) {
	v, err := parseUint256(s)
	if err != nil {
		return Fr{}, err
	}
	b := v.Bytes32()
	return FrFromBytes(b[:])
}

func (f Fr) IsZero() bool {
	return f == Fr{}
}

// Cmp orders by numeric value.
func (f Fr) Cmp(o Fr) int {
	return bytes.Compare(f[:], o[:])
}

func (f Fr) Element() fr.Element {
	var e fr.Element
	e.SetBytes(f[:])
	return e
}

func (f Fr) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(f[:])
}

func (f Fr) BigInt() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

func (f Fr) String() string {
	return hexutil.Encode(f[:])
}

func (f Fr) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fr) UnmarshalText(text []byte) error {
	v, err := ParseFr(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Fr) Encode(w *codec.Writer) {
	w.Bytes32(f)
}

func ReadFr(r *codec.Reader) (Fr, error) {
	b, err := r.Bytes32()
	if err != nil {
		return Fr{}, err
	}
	return FrFromBytes(b[:])
}

// GrumpkinScalar is a scalar of the Grumpkin curve (the bn254 base field),
// used for nullifier secret keys.
type GrumpkinScalar [GrumpkinScalarBytes]byte

func NewGrumpkinScalar(v uint64) GrumpkinScalar {
	e := grumpkinfr.NewElement(v)
	return GrumpkinScalar(e.Bytes())
}

func GrumpkinScalarFromBytes(b []byte) (GrumpkinScalar, error) {
	var e grumpkinfr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return GrumpkinScalar{}, errors.Wrapf(codec.ErrBufferFormat, "grumpkin scalar 0x%x: %v", b, err)
	}
	return GrumpkinScalar(e.Bytes()), nil
}

func ParseGrumpkinScalar(s string) (GrumpkinScalar, error) {
	v, err := parseUint256(s)
	if err != nil {
		return GrumpkinScalar{}, err
	}
	b := v.Bytes32()
	return GrumpkinScalarFromBytes(b[:])
}

func (s GrumpkinScalar) IsZero() bool {
	return s == GrumpkinScalar{}
}

func (s GrumpkinScalar) BigInt() *big.Int {
	return new(big.Int).SetBytes(s[:])
}

func (s GrumpkinScalar) String() string {
	return hexutil.Encode(s[:])
}

func (s GrumpkinScalar) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *GrumpkinScalar) UnmarshalText(text []byte) error {
	v, err := ParseGrumpkinScalar(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s GrumpkinScalar) Encode(w *codec.Writer) {
	w.Bytes32(s)
}

func ReadGrumpkinScalar(r *codec.Reader) (GrumpkinScalar, error) {
	b, err := r.Bytes32()
	if err != nil {
		return GrumpkinScalar{}, err
	}
	return GrumpkinScalarFromBytes(b[:])
}

// Point is an affine Grumpkin point; coordinates live in the bn254 scalar field.
type Point struct {
	X Fr `json:"x"`
	Y Fr `json:"y"`
}

func (p Point) IsZero() bool {
	return p.X.IsZero() && p.Y.IsZero()
}

func (p Point) Encode(w *codec.Writer) {
	p.X.Encode(w)
	p.Y.Encode(w)
}

func ReadPoint(r *codec.Reader) (Point, error) {
	var p Point
	var err error
	if p.X, err = ReadFr(r); err != nil {
		return p, err
	}
	p.Y, err = ReadFr(r)
	return p, err
}

func parseUint256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	bi, ok := new(big.Int).SetString(s, 0)
	if !ok || bi.Sign() < 0 {
		return nil, errors.Wrapf(codec.ErrBufferFormat, "not an unsigned integer: %q", s)
	}
	v, overflow := uint256.FromBig(bi)
	if overflow {
		return nil, errors.Wrapf(codec.ErrBufferFormat, "%q overflows 256 bits", s)
	}
	return v, nil
}
