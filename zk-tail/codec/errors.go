package codec

import "github.com/pkg/errors"

var (
	// ErrBufferUnderflow is returned when fewer bytes remain than a field needs.
	ErrBufferUnderflow = errors.New("buffer underflow")
	// ErrBufferFormat is returned when decoded bytes fall outside a value's domain.
	ErrBufferFormat = errors.New("buffer format error")
)
