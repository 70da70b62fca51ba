package types

import "github.com/kysee/zkp-tail/zk-tail/codec"

// SideEffect is a value produced by a transaction, e.g. a new note hash or
// the note hash a read request targets.
type SideEffect struct {
	Value Fr `json:"value"`
}

func (s SideEffect) SortKey() Fr   { return s.Value }
func (s SideEffect) IsEmpty() bool { return s.Value.IsZero() }

func (s SideEffect) Encode(w *codec.Writer) {
	s.Value.Encode(w)
}

func ReadSideEffect(r *codec.Reader) (SideEffect, error) {
	v, err := ReadFr(r)
	return SideEffect{Value: v}, err
}

// LinkedSideEffect is a new nullifier and the note hash it nullifies.
// A zero LinkedTo nullifies a note created by an earlier transaction.
type LinkedSideEffect struct {
	Value    Fr `json:"value"`
	LinkedTo Fr `json:"linkedTo"`
}

func (s LinkedSideEffect) SortKey() Fr   { return s.Value }
func (s LinkedSideEffect) IsEmpty() bool { return s.Value.IsZero() && s.LinkedTo.IsZero() }

func (s LinkedSideEffect) Encode(w *codec.Writer) {
	s.Value.Encode(w)
	s.LinkedTo.Encode(w)
}

func ReadLinkedSideEffect(r *codec.Reader) (LinkedSideEffect, error) {
	var s LinkedSideEffect
	var err error
	if s.Value, err = ReadFr(r); err != nil {
		return s, err
	}
	s.LinkedTo, err = ReadFr(r)
	return s, err
}

// NullifierKeyValidationRequest asks the tail to prove knowledge of the
// secret key behind a master nullifier public key.
type NullifierKeyValidationRequest struct {
	PublicKey Point `json:"publicKey"`
}

func (n NullifierKeyValidationRequest) IsEmpty() bool { return n.PublicKey.IsZero() }

func (n NullifierKeyValidationRequest) Encode(w *codec.Writer) {
	n.PublicKey.Encode(w)
}

func ReadNullifierKeyValidationRequest(r *codec.Reader) (NullifierKeyValidationRequest, error) {
	p, err := ReadPoint(r)
	return NullifierKeyValidationRequest{PublicKey: p}, err
}
