package canon

import "github.com/kysee/zkp-tail/zk-tail/types"

// Hint locates the sorted commitment a read request or nullifier refers to.
type Hint struct {
	Index uint32
	Found bool
}

// Fr is the wire form of the hint. A missing link encodes as zero, which is
// also the encoding of index 0; the circuit tells them apart by comparing
// the target with sorted[0].
func (h Hint) Fr() types.Fr {
	if !h.Found {
		return types.Fr{}
	}
	return types.NewFr(uint64(h.Index))
}

// ResolveHints finds, for every target, the first sorted commitment with the
// same value. Zero targets and targets created outside this transaction
// resolve to a missing hint.
func ResolveHints(sorted []types.SideEffect, targets []types.Fr) []Hint {
	hints := make([]Hint, len(targets))
	for i, target := range targets {
		if target.IsZero() {
			continue
		}
		for k, c := range sorted {
			// empty entries cluster at the end
			if c.IsEmpty() {
				break
			}
			if c.Value == target {
				hints[i] = Hint{Index: uint32(k), Found: true}
				break
			}
		}
	}
	return hints
}

func ReadRequestHints(sorted, readRequests []types.SideEffect) []types.Fr {
	targets := make([]types.Fr, len(readRequests))
	for i, rr := range readRequests {
		targets[i] = rr.Value
	}
	return encodeHints(ResolveHints(sorted, targets))
}

func NullifierHints(sorted []types.SideEffect, nullifiers []types.LinkedSideEffect) []types.Fr {
	targets := make([]types.Fr, len(nullifiers))
	for i, n := range nullifiers {
		targets[i] = n.LinkedTo
	}
	return encodeHints(ResolveHints(sorted, targets))
}

func encodeHints(hints []Hint) []types.Fr {
	out := make([]types.Fr, len(hints))
	for i, h := range hints {
		out[i] = h.Fr()
	}
	return out
}
