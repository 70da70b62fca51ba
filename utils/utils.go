package utils

import (
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

func MiMCHasher() hash.Hash {
	return mimc.NewMiMC()
}

// MiMCHash hashes every input as a sequence of 32-byte blocks.
// Blocks above the modulus are reduced before they reach the hasher.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.BlockSize()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]

			if len(chunk) == blockSize {
				// this value may be greater than the modulus; convert to fr.Element
				var elem fr.Element
				elem.SetBytes(chunk)
				// canonical form
				chunk = elem.Marshal()
			}
			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// FoldPath computes a merkle root from a leaf, its index and the sibling path.
// Bit i of index tells whether the node at level i is a right child.
func FoldPath(leaf []byte, index uint64, siblings [][]byte) []byte {
	node := leaf
	for level, sibling := range siblings {
		if (index>>uint(level))&1 == 1 {
			node = MiMCHash(sibling, node)
		} else {
			node = MiMCHash(node, sibling)
		}
	}
	return node
}
