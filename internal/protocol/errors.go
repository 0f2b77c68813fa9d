package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated        = errors.New("protocol: truncated data")
	ErrNonCanonical     = errors.New("protocol: non-canonical encoding")
	ErrTrailingBytes    = errors.New("protocol: trailing bytes after value")
	ErrUnexpectedKind   = errors.New("protocol: unexpected value kind")
	ErrFieldCount       = errors.New("protocol: unexpected field count")
	ErrTooDeep          = errors.New("protocol: nesting too deep")
	ErrOffsetOutOfRange = errors.New("protocol: offset out of range")
	ErrIntegerOverflow  = errors.New("protocol: integer overflow")
	ErrNegativeInteger  = errors.New("protocol: negative integer")
	ErrInvalidAddress   = errors.New("protocol: invalid address")
	ErrInvalidHex       = errors.New("protocol: invalid hex")
	ErrInvalidStatus    = errors.New("protocol: invalid status")
)

// DecodeError reports malformed input. Op names the decoder that failed,
// Offset is the byte position within that decoder's input (-1 when not
// meaningful) and Err is one of the sentinels above.
type DecodeError struct {
	Op     string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Errorf builds a DecodeError whose cause wraps err with extra context.
func Errorf(op string, offset int, err error, format string, args ...any) *DecodeError {
	return &DecodeError{
		Op:     op,
		Offset: offset,
		Err:    fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)),
	}
}

// IsDecodeError reports whether err carries a DecodeError anywhere in its chain.
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}
