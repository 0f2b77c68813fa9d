// Package directive recognizes the payment directives embedded in a
// milestone's payData: 4-byte selector followed by a block of 32-byte
// parameter slots.
package directive

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const (
	SelectorLen = 4
	SlotLen     = 32
)

// Kind enumerates the directive shapes this package understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorizePayment
)

func (k Kind) String() string {
	if s, ok := lookupKind(k); ok {
		return s.name
	}
	return "unknown"
}

// MarshalText renders the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Directive is one decoded payData payload.
type Directive interface {
	Kind() Kind
}

type kindDef struct {
	kind      Kind
	name      string
	signature string
	selector  [SelectorLen]byte
	decode    func(p params) (Directive, error)
}

// kinds is the closed set of recognized directives. Adding a directive
// means adding an entry here.
var kinds = []kindDef{
	{
		kind:      KindAuthorizePayment,
		name:      "authorizePayment",
		signature: "authorizePayment(string,address,uint256,uint256)",
		selector:  [SelectorLen]byte{0x8e, 0x63, 0x7a, 0x33},
		decode:    decodeAuthorizePayment,
	},
}

func lookupKind(k Kind) (kindDef, bool) {
	for _, s := range kinds {
		if s.kind == k {
			return s, true
		}
	}
	return kindDef{}, false
}

// Signature returns the canonical function signature for k.
func Signature(k Kind) string {
	s, _ := lookupKind(k)
	return s.signature
}

// Selector returns the 4-byte selector for k.
func Selector(k Kind) ([SelectorLen]byte, bool) {
	s, ok := lookupKind(k)
	return s.selector, ok
}

// SelectorHex returns the selector for k as bare lowercase hex.
func SelectorHex(k Kind) string {
	sel, ok := Selector(k)
	if !ok {
		return ""
	}
	return hex.EncodeToString(sel[:])
}

// Identify returns the kind named by the selector at the start of payData,
// or KindUnknown.
func Identify(payData []byte) Kind {
	if len(payData) < SelectorLen {
		return KindUnknown
	}
	for _, s := range kinds {
		if bytes.Equal(payData[:SelectorLen], s.selector[:]) {
			return s.kind
		}
	}
	return KindUnknown
}

// Decode parses payData. An unrecognized selector (or input too short to
// hold one) yields a nil Directive and a nil error; payData stays opaque.
// Malformed parameters of a recognized directive are a *protocol.DecodeError.
func Decode(payData []byte) (Directive, error) {
	kind := Identify(payData)
	if kind == KindUnknown {
		return nil, nil
	}
	s, _ := lookupKind(kind)
	d, err := s.decode(params{block: payData[SelectorLen:]})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func selectorFor(k Kind) []byte {
	sel, ok := Selector(k)
	if !ok {
		panic(fmt.Sprintf("directive: no selector for kind %d", k))
	}
	return sel[:]
}
