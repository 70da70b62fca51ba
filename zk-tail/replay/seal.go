package replay

import (
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// SecretSize is the length of the log sealing secret.
const SecretSize = 32

var sealInfo = []byte("tail_replay_seal")

// expand derives outputLen bytes from secret, PRF^expand style: blocks of
// BLAKE2s keyed with secret over info and a counter starting at 1.
func expand(secret, info []byte, outputLen int) ([]byte, error) {
	var out []byte
	var counter byte = 1
	for len(out) < outputLen {
		h, err := blake2s.New256(secret)
		if err != nil {
			return nil, errors.Wrap(err, "blake2s")
		}
		h.Write(info)
		h.Write([]byte{counter})
		out = h.Sum(out)

		counter++
		if counter == 0 {
			return nil, errors.New("kdf counter overflow")
		}
	}
	return out[:outputLen], nil
}

// entryKey gives the key and nonce that seal the bundle with the given
// digest. Each digest gets its own nonce.
func entryKey(secret []byte, digest types.Fr) (key, nonce []byte, err error) {
	info := append(append([]byte{}, sealInfo...), digest[:]...)
	ks, err := expand(secret, info, chacha20poly1305.KeySize+chacha20poly1305.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	return ks[:chacha20poly1305.KeySize], ks[chacha20poly1305.KeySize:], nil
}

func seal(secret []byte, digest types.Fr, plaintext []byte) ([]byte, error) {
	key, nonce, err := entryKey(secret, digest)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "chacha20poly1305")
	}
	return aead.Seal(nil, nonce, plaintext, digest[:]), nil
}

func open(secret []byte, digest types.Fr, sealed []byte) ([]byte, error) {
	key, nonce, err := entryKey(secret, digest)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "chacha20poly1305")
	}
	plaintext, err := aead.Open(nil, nonce, sealed, digest[:])
	if err != nil {
		// wrong secret or tampered entry
		return nil, errors.Wrapf(ErrCorrupt, "entry %s: %v", digest, err)
	}
	return plaintext, nil
}
