package types

import (
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/codec"
	"github.com/pkg/errors"
)

const (
	addrPrefix  = "tz"
	addrVersion = 0x01
)

// Address identifies an account or contract. It is a field element so it
// can be passed as a function argument.
type Address Fr

func (a Address) Fr() Fr { return Fr(a) }

func (a Address) IsZero() bool { return Fr(a).IsZero() }

func (a Address) Hex() string { return Fr(a).String() }

func (a Address) String() string {
	return addrPrefix + base58.CheckEncode(a[:], addrVersion)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAddress accepts the base58check form or 0x-prefixed hex.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	var payload []byte
	switch {
	case strings.HasPrefix(s, "0x"):
		bz, err := hexutil.Decode(s)
		if err != nil {
			return Address{}, errors.Wrapf(codec.ErrBufferFormat, "address %q: %v", s, err)
		}
		payload = bz
	case strings.HasPrefix(s, addrPrefix):
		bz, ver, err := base58.CheckDecode(s[len(addrPrefix):])
		if err != nil {
			return Address{}, errors.Wrapf(codec.ErrBufferFormat, "address %q: %v", s, err)
		}
		if ver != addrVersion {
			return Address{}, errors.Wrapf(codec.ErrBufferFormat, "address version: expected(%d), got(%d)", addrVersion, ver)
		}
		payload = bz
	default:
		return Address{}, errors.Wrapf(codec.ErrBufferFormat, "address %q: wrong prefix", s)
	}
	if len(payload) != FrBytes {
		return Address{}, errors.Wrapf(codec.ErrBufferFormat, "address is %d bytes", len(payload))
	}
	f, err := FrFromBytes(payload)
	return Address(f), err
}
