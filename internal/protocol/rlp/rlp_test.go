package rlp

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/danmuck/milestonectl/internal/protocol"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return b
}

func TestEncodeKnownVectors(t *testing.T) {
	lorem := "Lorem ipsum dolor sit amet, consectetur adipisicing elit"
	cases := []struct {
		name string
		item Item
		want string
	}{
		{"empty string", Bytes(nil), "80"},
		{"single low byte", Bytes([]byte{0x0f}), "0f"},
		{"single high byte", Bytes([]byte{0x80}), "8180"},
		{"two bytes", Bytes([]byte{0x04, 0x00}), "820400"},
		{"dog", Bytes([]byte("dog")), "83646f67"},
		{"empty list", NewList(), "c0"},
		{"cat dog", NewList(Bytes([]byte("cat")), Bytes([]byte("dog"))), "c88363617483646f67"},
		{"set theory", NewList(NewList(), NewList(NewList()), NewList(NewList(), NewList(NewList()))), "c7c0c1c0c3c0c1c0"},
		{"long string", Bytes([]byte(lorem)), "b838" + hex.EncodeToString([]byte(lorem))},
	}
	for _, tc := range cases {
		got := Encode(tc.item)
		if hex.EncodeToString(got) != tc.want {
			t.Fatalf("%s: got %x want %s", tc.name, got, tc.want)
		}
		back, err := Decode(got)
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if !bytes.Equal(Encode(back), got) {
			t.Fatalf("%s: re-encode mismatch", tc.name)
		}
	}
}

func TestEncodeLongList(t *testing.T) {
	items := make([]Item, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, Bytes([]byte("abcd")))
	}
	enc := Encode(NewList(items...))
	// 20 * 5 = 100 content bytes -> f8 64
	if enc[0] != 0xf8 || enc[1] != 100 || len(enc) != 102 {
		t.Fatalf("unexpected long list header: %x", enc[:2])
	}
	back, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Kind != List || len(back.Items) != 20 {
		t.Fatalf("unexpected decoded list: kind=%s len=%d", back.Kind, len(back.Items))
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	in := Encode(NewList(Bytes([]byte("cat"))))
	item, err := Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	in[2] = 'x'
	if string(item.Items[0].Bytes) != "cat" {
		t.Fatalf("decoded value aliases input: %q", item.Items[0].Bytes)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty input", "", protocol.ErrTruncated},
		{"string claims more", "83646f", protocol.ErrTruncated},
		{"list claims more", "c88363617483646f", protocol.ErrTruncated},
		{"long list length missing", "f9", protocol.ErrTruncated},
		{"long string claims more", "b90400aa", protocol.ErrTruncated},
		{"wrapped single byte", "8105", protocol.ErrNonCanonical},
		{"long form small size", "b80100", protocol.ErrNonCanonical},
		{"size leading zero", "b90038", protocol.ErrNonCanonical},
		{"trailing bytes", "8000", protocol.ErrTrailingBytes},
		{"child overruns list", "c28363", protocol.ErrTruncated},
	}
	for _, tc := range cases {
		_, err := Decode(mustHex(t, tc.in))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		var decErr *protocol.DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("%s: expected DecodeError, got %T", tc.name, err)
		}
		if decErr.Op != "rlp" {
			t.Fatalf("%s: unexpected op %q", tc.name, decErr.Op)
		}
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	item := NewList()
	for i := 0; i < 6; i++ {
		item = NewList(item)
	}
	enc := Encode(item)

	if _, err := DecodeWithLimits(enc, Limits{MaxDepth: 4}); !errors.Is(err, protocol.ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
	if _, err := DecodeWithLimits(enc, Limits{MaxDepth: 7}); err != nil {
		t.Fatalf("expected depth 7 to decode, got %v", err)
	}
}

func TestDecodeHugeClaimedLengthFailsWithoutAllocating(t *testing.T) {
	// long list claiming 2^56 bytes of content
	in := []byte{0xff, 0x01, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Decode(in); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
