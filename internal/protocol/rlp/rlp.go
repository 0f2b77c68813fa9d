// Package rlp implements recursive length prefix encoding over trees of byte
// strings and lists.
package rlp

import (
	"github.com/danmuck/milestonectl/internal/protocol"
)

const op = "rlp"

const (
	offsetShortString = 0x80
	offsetLongString  = 0xB7
	offsetShortList   = 0xC0
	offsetLongList    = 0xF7
	shortLimit        = 56
)

// Kind distinguishes byte strings from lists.
type Kind uint8

const (
	String Kind = iota
	List
)

func (k Kind) String() string {
	if k == List {
		return "list"
	}
	return "string"
}

// Item is one node of an RLP tree. Bytes is set for strings, Items for lists.
type Item struct {
	Kind  Kind
	Bytes []byte
	Items []Item
}

// Bytes wraps b as a string item.
func Bytes(b []byte) Item {
	return Item{Kind: String, Bytes: b}
}

// NewList wraps items as a list item.
func NewList(items ...Item) Item {
	if items == nil {
		items = []Item{}
	}
	return Item{Kind: List, Items: items}
}

// Limits constrains decode work on untrusted input.
type Limits struct {
	MaxDepth int
}

func DefaultLimits() Limits {
	return Limits{MaxDepth: 16}
}

// Encode returns the RLP encoding of item.
func Encode(item Item) []byte {
	return AppendItem(nil, item)
}

// AppendItem appends the RLP encoding of item to dst.
func AppendItem(dst []byte, item Item) []byte {
	if item.Kind == List {
		var payload []byte
		for _, child := range item.Items {
			payload = AppendItem(payload, child)
		}
		dst = appendHeader(dst, offsetShortList, offsetLongList, len(payload))
		return append(dst, payload...)
	}
	if len(item.Bytes) == 1 && item.Bytes[0] < offsetShortString {
		return append(dst, item.Bytes[0])
	}
	dst = appendHeader(dst, offsetShortString, offsetLongString, len(item.Bytes))
	return append(dst, item.Bytes...)
}

func appendHeader(dst []byte, short, long byte, size int) []byte {
	if size < shortLimit {
		return append(dst, short+byte(size))
	}
	sizeBytes := protocol.MinimalUint64(uint64(size))
	dst = append(dst, long+byte(len(sizeBytes)))
	return append(dst, sizeBytes...)
}

// Decode parses exactly one item from b using DefaultLimits.
func Decode(b []byte) (Item, error) {
	return DecodeWithLimits(b, DefaultLimits())
}

// DecodeWithLimits parses exactly one item from b. Bytes after the item are
// rejected. Decoded strings never alias b.
func DecodeWithLimits(b []byte, limits Limits) (Item, error) {
	if limits.MaxDepth <= 0 {
		limits = DefaultLimits()
	}
	item, n, err := decodeItem(b, 0, 0, limits)
	if err != nil {
		return Item{}, err
	}
	if n != len(b) {
		return Item{}, &protocol.DecodeError{Op: op, Offset: n, Err: protocol.ErrTrailingBytes}
	}
	return item, nil
}

func decodeItem(buf []byte, base, depth int, limits Limits) (Item, int, error) {
	kind, tagSize, contentSize, err := readHeader(buf, base)
	if err != nil {
		return Item{}, 0, err
	}
	end := tagSize + contentSize
	content := buf[tagSize:end]

	if kind == String {
		value := make([]byte, len(content))
		copy(value, content)
		return Item{Kind: String, Bytes: value}, end, nil
	}

	if depth >= limits.MaxDepth {
		return Item{}, 0, &protocol.DecodeError{Op: op, Offset: base, Err: protocol.ErrTooDeep}
	}
	items := make([]Item, 0)
	for offset := 0; offset < len(content); {
		child, n, err := decodeItem(content[offset:], base+tagSize+offset, depth+1, limits)
		if err != nil {
			return Item{}, 0, err
		}
		items = append(items, child)
		offset += n
	}
	return Item{Kind: List, Items: items}, end, nil
}

// readHeader returns the kind, the header size and the content size of the
// item at the start of buf. The content is guaranteed to fit in buf.
func readHeader(buf []byte, base int) (Kind, int, int, error) {
	if len(buf) == 0 {
		return 0, 0, 0, &protocol.DecodeError{Op: op, Offset: base, Err: protocol.ErrTruncated}
	}
	var (
		kind        Kind
		tagSize     int
		contentSize uint64
		err         error
	)
	b := buf[0]
	switch {
	case b < offsetShortString:
		return String, 0, 1, nil
	case b <= offsetLongString:
		kind = String
		tagSize = 1
		contentSize = uint64(b - offsetShortString)
		if contentSize == 1 && len(buf) > 1 && buf[1] < offsetShortString {
			return 0, 0, 0, protocol.Errorf(op, base, protocol.ErrNonCanonical, "single byte %#x wrapped in string header", buf[1])
		}
	case b < offsetShortList:
		kind = String
		lenOfLen := int(b - offsetLongString)
		tagSize = 1 + lenOfLen
		contentSize, err = readSize(buf[1:], lenOfLen, base)
	case b <= offsetLongList:
		kind = List
		tagSize = 1
		contentSize = uint64(b - offsetShortList)
	default:
		kind = List
		lenOfLen := int(b - offsetLongList)
		tagSize = 1 + lenOfLen
		contentSize, err = readSize(buf[1:], lenOfLen, base)
	}
	if err != nil {
		return 0, 0, 0, err
	}
	if contentSize > uint64(len(buf)-tagSize) {
		return 0, 0, 0, protocol.Errorf(op, base, protocol.ErrTruncated,
			"%s claims %d bytes, %d available", kind, contentSize, len(buf)-tagSize)
	}
	return kind, tagSize, int(contentSize), nil
}

func readSize(b []byte, lenOfLen int, base int) (uint64, error) {
	if lenOfLen > len(b) {
		return 0, &protocol.DecodeError{Op: op, Offset: base, Err: protocol.ErrTruncated}
	}
	if b[0] == 0 {
		return 0, protocol.Errorf(op, base, protocol.ErrNonCanonical, "size has leading zero byte")
	}
	var size uint64
	for _, v := range b[:lenOfLen] {
		size = size<<8 | uint64(v)
	}
	if size < shortLimit {
		return 0, protocol.Errorf(op, base, protocol.ErrNonCanonical, "long form used for size %d", size)
	}
	return size, nil
}
