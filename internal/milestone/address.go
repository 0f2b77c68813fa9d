package milestone

import (
	"strings"

	"github.com/danmuck/milestonectl/internal/protocol"
)

// AddressLen is the byte width of a ledger address.
const AddressLen = 20

// Address is a 0x-prefixed lowercase hex account address.
type Address string

// ParseAddress normalizes s and checks it holds exactly 20 bytes.
func ParseAddress(s string) (Address, error) {
	raw, err := protocol.DecodeHex(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return AddressFromBytes(raw)
}

// AddressFromBytes renders a raw 20-byte address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLen {
		return "", protocol.Errorf("address", -1, protocol.ErrInvalidAddress, "%d bytes, want %d", len(b), AddressLen)
	}
	return Address(protocol.EncodeHex(b)), nil
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() ([]byte, error) {
	raw, err := protocol.DecodeHex(string(a))
	if err != nil {
		return nil, err
	}
	if len(raw) != AddressLen {
		return nil, protocol.Errorf("address", -1, protocol.ErrInvalidAddress, "%d bytes, want %d", len(raw), AddressLen)
	}
	return raw, nil
}

// Valid reports whether a holds exactly 20 bytes of hex.
func (a Address) Valid() bool {
	_, err := a.Bytes()
	return err == nil
}

// Equal compares addresses ignoring hex case.
func (a Address) Equal(b Address) bool {
	return strings.EqualFold(string(a), string(b))
}

func (a Address) String() string {
	return string(a)
}
