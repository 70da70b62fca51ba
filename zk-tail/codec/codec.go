// Package codec implements the fixed-layout binary encoding shared with the
// proving backend.
//
// Every value is written in declared field order with no framing: 32-byte
// values as-is, integers as big-endian uint32, booleans as a single byte and
// opaque byte strings with a uint32 length prefix. Bounded arrays are the
// concatenation of their elements; their length is a protocol constant and
// is never written.
package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Encodable is implemented by every composite that can be written.
type Encodable interface {
	Encode(w *Writer)
}

// DecodeFunc reads one T from r.
type DecodeFunc[T any] func(r *Reader) (T, error)

type Writer struct {
	buf []byte
}

func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes32(b [32]byte) {
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Bool(b bool) {
	if b {
		w.buf = append(w.buf, 0x01)
	} else {
		w.buf = append(w.buf, 0x00)
	}
}

// VarBytes writes b behind a uint32 length prefix.
func (w *Writer) VarBytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) Object(e Encodable) {
	e.Encode(w)
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteArray writes every element of items in order.
func WriteArray[T Encodable](w *Writer, items []T) {
	for _, item := range items {
		item.Encode(w)
	}
}

func WriteUint32s(w *Writer, vs []uint32) {
	for _, v := range vs {
		w.Uint32(v)
	}
}

// Reader consumes a byte slice strictly front to back.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int, what string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errors.Wrapf(ErrBufferUnderflow, "%s needs %d bytes at offset %d, %d left", what, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Bytes32() ([32]byte, error) {
	var out [32]byte
	b, err := r.take(32, "bytes32")
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.take(1, "bool")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, errors.Wrapf(ErrBufferFormat, "bool byte 0x%02x at offset %d", b[0], r.off-1)
	}
}

// VarBytes reads a uint32 length prefix and that many bytes. The result
// does not alias the reader's buffer. An empty string reads as nil.
func (r *Reader) VarBytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, errors.Wrapf(ErrBufferUnderflow, "byte string of length %d at offset %d, %d left", n, r.off, r.Remaining())
	}
	b, err := r.take(int(n), "byte string")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Done fails if any bytes are left unread.
func (r *Reader) Done() error {
	if r.Remaining() != 0 {
		return errors.Wrapf(ErrBufferFormat, "%d trailing bytes", r.Remaining())
	}
	return nil
}

// ReadArray reads exactly n elements with dec.
func ReadArray[T any](r *Reader, n int, dec DecodeFunc[T]) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := dec(r)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d/%d", i, n)
		}
		out[i] = v
	}
	return out, nil
}

func ReadUint32s(r *Reader, n int) ([]uint32, error) {
	return ReadArray[uint32](r, n, (*Reader).Uint32)
}
