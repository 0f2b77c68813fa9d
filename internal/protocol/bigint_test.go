package protocol

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMinimalBigEndianZeroIsEmpty(t *testing.T) {
	out, err := MinimalBigEndian(big.NewInt(0))
	if err != nil {
		t.Fatalf("minimal zero: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty encoding for zero, got %x", out)
	}
	if got := MinimalUint64(0); len(got) != 0 {
		t.Fatalf("expected empty uint64 encoding for zero, got %x", got)
	}
	if FromBigEndian(nil).Sign() != 0 {
		t.Fatalf("expected empty input to decode as zero")
	}
}

func TestMinimalBigEndianNoLeadingZero(t *testing.T) {
	cases := map[uint64][]byte{
		1:          {0x01},
		0xff:       {0xff},
		0x100:      {0x01, 0x00},
		1000:       {0x03, 0xe8},
		1 << 63:    {0x80, 0, 0, 0, 0, 0, 0, 0},
		0xdeadbeef: {0xde, 0xad, 0xbe, 0xef},
	}
	for v, want := range cases {
		if got := MinimalUint64(v); !bytes.Equal(got, want) {
			t.Fatalf("MinimalUint64(%d) = %x, want %x", v, got, want)
		}
		got, err := MinimalBigEndian(new(big.Int).SetUint64(v))
		if err != nil {
			t.Fatalf("MinimalBigEndian(%d): %v", v, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("MinimalBigEndian(%d) = %x, want %x", v, got, want)
		}
	}
}

func TestMinimalBigEndianRejectsNegative(t *testing.T) {
	if _, err := MinimalBigEndian(big.NewInt(-1)); !errors.Is(err, ErrNegativeInteger) {
		t.Fatalf("expected ErrNegativeInteger, got %v", err)
	}
}

func TestFromBigEndianBeyond64Bits(t *testing.T) {
	want, _ := new(big.Int).SetString("123456789abcdef0123456789abcdef", 16)
	raw, err := MinimalBigEndian(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := FromBigEndian(raw); got.Cmp(want) != 0 {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
	if _, err := Uint64FromBigEndian(raw); !errors.Is(err, ErrIntegerOverflow) {
		t.Fatalf("expected ErrIntegerOverflow for >64-bit value, got %v", err)
	}
}

func TestUint64FromBigEndianAcceptsPaddedSlot(t *testing.T) {
	slot := make([]byte, 32)
	slot[31] = 0x2a
	v, err := Uint64FromBigEndian(slot)
	if err != nil {
		t.Fatalf("decode slot: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestAddressFromUintPadsToTwentyBytes(t *testing.T) {
	if got := AddressFromUint(big.NewInt(1)); got != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("unexpected address: %s", got)
	}
	if got := AddressFromUint(big.NewInt(0)); got != "0x"+strings.Repeat("0", 40) {
		t.Fatalf("unexpected zero address: %s", got)
	}
	if got := AddressFromUint(nil); got != "0x"+strings.Repeat("0", 40) {
		t.Fatalf("unexpected nil address: %s", got)
	}
}

// Values wider than 160 bits keep every hex digit; the result is longer
// than a real address rather than silently truncated.
func TestAddressFromUintDoesNotTruncateWideValues(t *testing.T) {
	wide := new(big.Int).Lsh(big.NewInt(1), 160)
	got := AddressFromUint(wide)
	want := "0x1" + strings.Repeat("0", 40)
	if got != want {
		t.Fatalf("unexpected wide address: got %s want %s", got, want)
	}
	if len(got) <= 2+AddressHexLen {
		t.Fatalf("expected over-length address, got %d chars", len(got))
	}
}

func TestMinimalIntegerLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FromBigEndian inverts MinimalBigEndian", prop.ForAll(
		func(raw []byte) bool {
			n := new(big.Int).SetBytes(raw)
			enc, err := MinimalBigEndian(n)
			if err != nil {
				return false
			}
			if len(enc) > 0 && enc[0] == 0 {
				return false
			}
			return FromBigEndian(enc).Cmp(n) == 0
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("MinimalUint64 agrees with MinimalBigEndian", prop.ForAll(
		func(v uint64) bool {
			enc, err := MinimalBigEndian(new(big.Int).SetUint64(v))
			if err != nil {
				return false
			}
			back, err := Uint64FromBigEndian(enc)
			return err == nil && back == v && bytes.Equal(enc, MinimalUint64(v))
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
