package directive

import (
	"math/big"

	"github.com/danmuck/milestonectl/internal/protocol"
)

const op = "directive"

// params reads 32-byte slots from the parameter block that follows the
// selector. Offsets reported in errors are relative to the start of payData.
type params struct {
	block []byte
}

func (p params) slot(k int) ([]byte, error) {
	start := k * SlotLen
	if start+SlotLen > len(p.block) {
		return nil, protocol.Errorf(op, SelectorLen+start, protocol.ErrTruncated,
			"slot %d needs %d bytes, block has %d", k, start+SlotLen, len(p.block))
	}
	return p.block[start : start+SlotLen], nil
}

func (p params) readUint(k int) (*big.Int, error) {
	raw, err := p.slot(k)
	if err != nil {
		return nil, err
	}
	return protocol.FromBigEndian(raw), nil
}

func (p params) readUint64(k int) (uint64, error) {
	raw, err := p.slot(k)
	if err != nil {
		return 0, err
	}
	v, err := protocol.Uint64FromBigEndian(raw)
	if err != nil {
		return 0, protocol.Errorf(op, SelectorLen+k*SlotLen, err, "slot %d", k)
	}
	return v, nil
}

func (p params) readAddress(k int) (string, error) {
	v, err := p.readUint(k)
	if err != nil {
		return "", err
	}
	return protocol.AddressFromUint(v), nil
}

// readDynamic follows the offset stored in slot k to a length-prefixed byte run.
func (p params) readDynamic(k int) ([]byte, error) {
	offsetValue, err := p.readUint(k)
	if err != nil {
		return nil, err
	}
	limit := uint64(len(p.block))
	if !offsetValue.IsUint64() || offsetValue.Uint64() > limit || limit-offsetValue.Uint64() < SlotLen {
		return nil, protocol.Errorf(op, SelectorLen+k*SlotLen, protocol.ErrOffsetOutOfRange,
			"slot %d offset %s, block has %d bytes", k, offsetValue, len(p.block))
	}
	offset := int(offsetValue.Uint64())

	length := protocol.FromBigEndian(p.block[offset : offset+SlotLen])
	available := uint64(len(p.block) - offset - SlotLen)
	if !length.IsUint64() || length.Uint64() > available {
		return nil, protocol.Errorf(op, SelectorLen+offset, protocol.ErrTruncated,
			"slot %d length %s, %d bytes available", k, length, available)
	}
	start := offset + SlotLen
	out := make([]byte, int(length.Uint64()))
	copy(out, p.block[start:start+len(out)])
	return out, nil
}
