package protocol

import (
	"math/big"
	"strings"
)

// AddressHexLen is the hex width of a 20-byte address without its 0x prefix.
const AddressHexLen = 40

// MinimalBigEndian returns v as big-endian bytes with no leading zero byte.
// Zero encodes as the empty byte string.
func MinimalBigEndian(v *big.Int) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeInteger
	}
	return v.Bytes(), nil
}

// MinimalUint64 is MinimalBigEndian for native integers.
func MinimalUint64(v uint64) []byte {
	out := make([]byte, 0, 8)
	started := false
	for shift := 56; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if b == 0 && !started {
			continue
		}
		started = true
		out = append(out, b)
	}
	return out
}

// FromBigEndian interprets b as an unsigned big-endian integer of any width.
func FromBigEndian(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Uint64FromBigEndian decodes b into a uint64, failing rather than wrapping
// when the value needs more than 64 bits. Leading zero bytes are accepted.
func Uint64FromBigEndian(b []byte) (uint64, error) {
	v := FromBigEndian(b)
	if !v.IsUint64() {
		return 0, ErrIntegerOverflow
	}
	return v.Uint64(), nil
}

// AddressFromUint renders v as a 0x-prefixed address, left-padding the hex
// form with '0' to 40 characters.
//
// Values wider than 160 bits are not truncated: the result is simply longer
// than 42 characters. Existing consumers depend on that shape.
func AddressFromUint(v *big.Int) string {
	digits := "0"
	if v != nil {
		digits = v.Text(16)
	}
	if len(digits) < AddressHexLen {
		digits = strings.Repeat("0", AddressHexLen-len(digits)) + digits
	}
	return "0x" + digits
}
