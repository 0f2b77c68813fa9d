package protocol

import (
	"encoding/hex"
	"strings"
)

// EncodeHex renders b as lowercase hex with a 0x prefix.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// DecodeHex parses 0x-prefixed (or bare) hex. Case is ignored; odd lengths,
// whitespace and non-hex characters are rejected.
func DecodeHex(s string) ([]byte, error) {
	raw := s
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
	}
	if len(raw)%2 != 0 {
		return nil, &DecodeError{Op: "hex", Offset: -1, Err: ErrInvalidHex}
	}
	out, err := hex.DecodeString(raw)
	if err != nil {
		return nil, Errorf("hex", -1, ErrInvalidHex, "%v", err)
	}
	return out, nil
}

// HexBytes is a byte string that crosses text boundaries (JSON, TOML) as
// 0x-prefixed lowercase hex.
type HexBytes []byte

func (h HexBytes) String() string {
	return EncodeHex(h)
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(EncodeHex(h)), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	b, err := DecodeHex(string(text))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// Clone returns a copy that shares no backing array with h.
func (h HexBytes) Clone() HexBytes {
	if h == nil {
		return nil
	}
	out := make(HexBytes, len(h))
	copy(out, h)
	return out
}
