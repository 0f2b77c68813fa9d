package directive

import (
	"math/big"

	"github.com/danmuck/milestonectl/internal/protocol"
)

// AuthorizePayment is the vault call a milestone authorizes once approved.
// Recipient is rendered with protocol.AddressFromUint.
type AuthorizePayment struct {
	Description string
	Recipient   string
	Value       *big.Int
	Delay       uint64
}

func (AuthorizePayment) Kind() Kind {
	return KindAuthorizePayment
}

func decodeAuthorizePayment(p params) (Directive, error) {
	description, err := p.readDynamic(0)
	if err != nil {
		return nil, err
	}
	recipient, err := p.readAddress(1)
	if err != nil {
		return nil, err
	}
	value, err := p.readUint(2)
	if err != nil {
		return nil, err
	}
	delay, err := p.readUint64(3)
	if err != nil {
		return nil, err
	}
	return AuthorizePayment{
		Description: string(description),
		Recipient:   recipient,
		Value:       value,
		Delay:       delay,
	}, nil
}

// EncodeAuthorizePayment builds the payData for an authorizePayment call:
// four head slots, then the description's length slot and its bytes padded
// to a slot boundary.
func EncodeAuthorizePayment(a AuthorizePayment) ([]byte, error) {
	recipient, err := protocol.DecodeHex(a.Recipient)
	if err != nil {
		return nil, err
	}
	if len(recipient) != 20 {
		return nil, protocol.Errorf(op, -1, protocol.ErrInvalidAddress, "recipient has %d bytes", len(recipient))
	}
	value := a.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, protocol.ErrNegativeInteger
	}
	if value.BitLen() > SlotLen*8 {
		return nil, protocol.ErrIntegerOverflow
	}

	description := []byte(a.Description)
	padded := (len(description) + SlotLen - 1) / SlotLen * SlotLen
	const headSlots = 4
	out := make([]byte, 0, SelectorLen+(headSlots+1)*SlotLen+padded)
	out = append(out, selectorFor(KindAuthorizePayment)...)
	out = appendSlot(out, new(big.Int).SetUint64(headSlots*SlotLen).Bytes())
	out = appendSlot(out, recipient)
	out = appendSlot(out, value.Bytes())
	out = appendSlot(out, protocol.MinimalUint64(a.Delay))
	out = appendSlot(out, protocol.MinimalUint64(uint64(len(description))))
	out = append(out, description...)
	out = append(out, make([]byte, padded-len(description))...)
	return out, nil
}

// appendSlot left-pads v (at most SlotLen bytes) into one slot.
func appendSlot(dst []byte, v []byte) []byte {
	dst = append(dst, make([]byte, SlotLen-len(v))...)
	return append(dst, v...)
}
