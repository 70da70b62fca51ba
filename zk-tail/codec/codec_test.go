package codec

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A [32]byte
	B uint32
}

func (p pair) Encode(w *Writer) {
	w.Bytes32(p.A)
	w.Uint32(p.B)
}

func readPair(r *Reader) (pair, error) {
	var p pair
	var err error
	if p.A, err = r.Bytes32(); err != nil {
		return p, err
	}
	p.B, err = r.Uint32()
	return p, err
}

func TestWriter_Layout(t *testing.T) {
	w := NewWriter(0)
	w.Uint32(0x01020304)
	w.Bool(true)
	w.Bool(false)
	w.VarBytes([]byte{0xaa, 0xbb})

	want := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x01,
		0x00,
		0x00, 0x00, 0x00, 0x02, 0xaa, 0xbb,
	}
	require.Equal(t, want, w.Bytes())
	require.Equal(t, len(want), w.Len())
}

func TestArray_RoundTrip(t *testing.T) {
	items := []pair{
		{A: [32]byte{1}, B: 7},
		{A: [32]byte{2}, B: 8},
		{},
	}
	w := NewWriter(0)
	WriteArray(w, items)
	WriteUint32s(w, []uint32{3, 2, 1})
	require.Equal(t, 3*36+3*4, w.Len())

	r := NewReader(w.Bytes())
	got, err := ReadArray[pair](r, len(items), readPair)
	require.NoError(t, err)
	require.Equal(t, items, got)

	idx, err := ReadUint32s(r, 3)
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 2, 1}, idx)
	require.NoError(t, r.Done())
}

func TestReader_Underflow(t *testing.T) {
	r := NewReader(bytes.Repeat([]byte{0x01}, 31))
	_, err := r.Bytes32()
	require.True(t, errors.Is(err, ErrBufferUnderflow))

	r = NewReader([]byte{0x00, 0x00, 0x01})
	_, err = r.Uint32()
	require.ErrorIs(t, err, ErrBufferUnderflow)

	// length prefix claims more than is left
	r = NewReader([]byte{0x00, 0x00, 0x00, 0x05, 0x01})
	_, err = r.VarBytes()
	require.ErrorIs(t, err, ErrBufferUnderflow)

	w := NewWriter(0)
	WriteArray(w, []pair{{B: 1}, {B: 2}})
	short := w.Bytes()[:w.Len()-1]
	_, err = ReadArray[pair](NewReader(short), 2, readPair)
	require.ErrorIs(t, err, ErrBufferUnderflow)
	require.ErrorContains(t, err, "element 1/2")
}

func TestReader_Format(t *testing.T) {
	_, err := NewReader([]byte{0x02}).Bool()
	require.ErrorIs(t, err, ErrBufferFormat)

	r := NewReader([]byte{0x00, 0x00, 0x00, 0x01, 0xff})
	_, err = r.Uint32()
	require.NoError(t, err)
	require.ErrorIs(t, r.Done(), ErrBufferFormat)
}

func TestReader_VarBytesDoesNotAlias(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x01, 0x42}
	b, err := NewReader(buf).VarBytes()
	require.NoError(t, err)
	buf[4] = 0x00
	require.Equal(t, []byte{0x42}, b)
}

func TestReader_EmptyVarBytesIsNil(t *testing.T) {
	w := NewWriter(8)
	w.VarBytes(nil)
	w.VarBytes([]byte{})

	r := NewReader(w.Bytes())
	for i := 0; i < 2; i++ {
		b, err := r.VarBytes()
		require.NoError(t, err)
		require.Nil(t, b)
	}
	require.NoError(t, r.Done())
}
