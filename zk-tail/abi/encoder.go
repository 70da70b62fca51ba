package abi

import (
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

var ErrInvalidArg = errors.New("invalid argument")

// EncodeArgs converts one string per parameter into a field element.
func EncodeArgs(args []string, params []Parameter) ([]types.Fr, error) {
	if len(args) != len(params) {
		return nil, errors.Wrapf(ErrInvalidArg, "expected %d arguments, got %d", len(params), len(args))
	}
	out := make([]types.Fr, len(args))
	for i, p := range params {
		v, err := encodeArg(args[i], p.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", p.Name)
		}
		out[i] = v
	}
	return out, nil
}

func encodeArg(arg string, t AbiType) (types.Fr, error) {
	arg = strings.TrimSpace(arg)
	switch t.Kind {
	case KindField:
		v, err := types.ParseFr(arg)
		if err != nil {
			return types.Fr{}, errors.Wrap(ErrInvalidArg, err.Error())
		}
		return v, nil
	case KindBoolean:
		switch strings.ToLower(arg) {
		case "true", "1":
			return types.NewFr(1), nil
		case "false", "0":
			return types.Fr{}, nil
		}
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "not a boolean: %q", arg)
	case KindAddress:
		a, err := types.ParseAddress(arg)
		if err != nil {
			return types.Fr{}, errors.Wrap(ErrInvalidArg, err.Error())
		}
		return a.Fr(), nil
	case KindInteger:
		return encodeInteger(arg, t)
	}
	return types.Fr{}, errors.Wrapf(ErrInvalidArg, "unsupported type %q", t.Kind)
}

// encodeInteger range checks against the declared width. Negative values of
// signed types are encoded as their field negation.
func encodeInteger(arg string, t AbiType) (types.Fr, error) {
	bi, ok := new(big.Int).SetString(arg, 0)
	if !ok {
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "not an integer: %q", arg)
	}
	width := t.Width
	if width <= 0 || width > 254 {
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "integer width %d", width)
	}

	neg := bi.Sign() < 0
	if neg && t.Sign != "signed" {
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "negative value %s for unsigned type", arg)
	}
	mag, overflow := uint256.FromBig(new(big.Int).Abs(bi))
	if overflow {
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "%s overflows uint256", arg)
	}
	bits := width
	if t.Sign == "signed" {
		bits--
	}
	// signed minimum is -2^(w-1)
	limit := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits))
	if mag.Cmp(limit) >= 0 && !(neg && mag.Eq(limit)) {
		return types.Fr{}, errors.Wrapf(ErrInvalidArg, "%s does not fit %d bits", arg, width)
	}

	var e fr.Element
	e.SetBigInt(mag.ToBig())
	if neg {
		e.Neg(&e)
	}
	return types.FrFromElement(&e), nil
}
