package milestone

import (
	"errors"
	"fmt"

	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/protocol/directive"
	"github.com/danmuck/milestonectl/internal/protocol/rlp"
)

const op = "milestone"

// FieldCount is the number of elements in one encoded milestone.
const FieldCount = 9

// Field positions within one encoded milestone.
const (
	fieldDescription = iota
	fieldURL
	fieldMinCompletionDate
	fieldMaxCompletionDate
	fieldMilestoneLeadLink
	fieldReviewer
	fieldReviewTime
	fieldPaymentSource
	fieldPayData
)

var fieldNames = [FieldCount]string{
	"description", "url", "minCompletionDate", "maxCompletionDate",
	"milestoneLeadLink", "reviewer", "reviewTime", "paymentSource", "payData",
}

// Builder produces payData for a milestone that only carries Payment.
// The payment vault at source is the eventual callee.
type Builder interface {
	AuthorizePaymentData(source Address, p Payment) ([]byte, error)
}

// Encode serializes ms as an RLP list of 9-element lists. Milestones without
// payData get it from b.
func Encode(ms []Milestone, b Builder) ([]byte, error) {
	items := make([]rlp.Item, 0, len(ms))
	for i, m := range ms {
		item, err := encodeOne(m, b)
		if err != nil {
			var vErr ValidationError
			if errors.As(err, &vErr) {
				vErr.Index = i
				return nil, vErr
			}
			return nil, fmt.Errorf("milestone[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return rlp.Encode(rlp.NewList(items...)), nil
}

// EncodeHex is Encode rendered as 0x-prefixed hex, the form the ledger's
// proposeMilestones call takes.
func EncodeHex(ms []Milestone, b Builder) (string, error) {
	out, err := Encode(ms, b)
	if err != nil {
		return "", err
	}
	return protocol.EncodeHex(out), nil
}

func encodeOne(m Milestone, b Builder) (rlp.Item, error) {
	if err := m.Validate(); err != nil {
		return rlp.Item{}, err
	}
	payData := []byte(m.PayData)
	if len(payData) == 0 {
		if b == nil {
			return rlp.Item{}, ErrMissingPayData
		}
		built, err := b.AuthorizePaymentData(m.PaymentSource, *m.Payment)
		if err != nil {
			return rlp.Item{}, fmt.Errorf("build payData: %w", err)
		}
		payData = built
	}

	lead, _ := m.MilestoneLeadLink.Bytes()
	reviewer, _ := m.Reviewer.Bytes()
	source, _ := m.PaymentSource.Bytes()

	fields := make([]rlp.Item, FieldCount)
	fields[fieldDescription] = rlp.Bytes([]byte(m.Description))
	fields[fieldURL] = rlp.Bytes([]byte(m.URL))
	fields[fieldMinCompletionDate] = rlp.Bytes(protocol.MinimalUint64(m.MinCompletionDate))
	fields[fieldMaxCompletionDate] = rlp.Bytes(protocol.MinimalUint64(m.MaxCompletionDate))
	fields[fieldMilestoneLeadLink] = rlp.Bytes(lead)
	fields[fieldReviewer] = rlp.Bytes(reviewer)
	fields[fieldReviewTime] = rlp.Bytes(protocol.MinimalUint64(m.ReviewTime))
	fields[fieldPaymentSource] = rlp.Bytes(source)
	fields[fieldPayData] = rlp.Bytes(payData)
	return rlp.NewList(fields...), nil
}

// Decode parses a proposed-milestone blob. On any error no milestones are
// returned.
func Decode(data []byte) ([]Milestone, error) {
	return DecodeWithLimits(data, rlp.DefaultLimits())
}

// DecodeHex is Decode for 0x-prefixed hex input.
func DecodeHex(s string) ([]Milestone, error) {
	data, err := protocol.DecodeHex(s)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// DecodeWithLimits is Decode with caller-chosen RLP limits.
func DecodeWithLimits(data []byte, limits rlp.Limits) ([]Milestone, error) {
	root, err := rlp.DecodeWithLimits(data, limits)
	if err != nil {
		return nil, err
	}
	if root.Kind != rlp.List {
		return nil, protocol.Errorf(op, -1, protocol.ErrUnexpectedKind, "top level is a %s", root.Kind)
	}
	out := make([]Milestone, 0, len(root.Items))
	for i, item := range root.Items {
		m, err := decodeOne(i, item)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeOne(index int, item rlp.Item) (Milestone, error) {
	if item.Kind != rlp.List {
		return Milestone{}, protocol.Errorf(op, -1, protocol.ErrUnexpectedKind, "milestone %d is a %s", index, item.Kind)
	}
	if len(item.Items) != FieldCount {
		return Milestone{}, protocol.Errorf(op, -1, protocol.ErrFieldCount,
			"milestone %d has %d fields, want %d", index, len(item.Items), FieldCount)
	}
	raw := make([][]byte, FieldCount)
	for j, f := range item.Items {
		if f.Kind != rlp.String {
			return Milestone{}, protocol.Errorf(op, -1, protocol.ErrUnexpectedKind,
				"milestone %d %s is a %s", index, fieldNames[j], f.Kind)
		}
		raw[j] = f.Bytes
	}

	m := Milestone{
		Description: string(raw[fieldDescription]),
		URL:         string(raw[fieldURL]),
		PayData:     protocol.HexBytes(raw[fieldPayData]).Clone(),
	}
	var err error
	for _, slot := range []struct {
		pos int
		dst *uint64
	}{
		{fieldMinCompletionDate, &m.MinCompletionDate},
		{fieldMaxCompletionDate, &m.MaxCompletionDate},
		{fieldReviewTime, &m.ReviewTime},
	} {
		if *slot.dst, err = protocol.Uint64FromBigEndian(raw[slot.pos]); err != nil {
			return Milestone{}, protocol.Errorf(op, -1, err, "milestone %d %s", index, fieldNames[slot.pos])
		}
	}
	for _, slot := range []struct {
		pos int
		dst *Address
	}{
		{fieldMilestoneLeadLink, &m.MilestoneLeadLink},
		{fieldReviewer, &m.Reviewer},
		{fieldPaymentSource, &m.PaymentSource},
	} {
		if len(raw[slot.pos]) != AddressLen {
			return Milestone{}, protocol.Errorf(op, -1, protocol.ErrInvalidAddress,
				"milestone %d %s has %d bytes", index, fieldNames[slot.pos], len(raw[slot.pos]))
		}
		*slot.dst = Address(protocol.EncodeHex(raw[slot.pos]))
	}

	if err := m.mergeDirective(); err != nil {
		return Milestone{}, fmt.Errorf("milestone %d payData: %w", index, err)
	}
	return m, nil
}

// mergeDirective decodes PayData and, when it is a payment authorization,
// sets Payment from it. Unrecognized payData is left opaque.
func (m *Milestone) mergeDirective() error {
	d, err := directive.Decode(m.PayData)
	if err != nil {
		return err
	}
	pay, ok := d.(directive.AuthorizePayment)
	if !ok {
		return nil
	}
	m.Payment = &Payment{
		PayDescription: pay.Description,
		PayRecipient:   Address(pay.Recipient),
		PayValue:       pay.Value,
		PayDelay:       pay.Delay,
	}
	return nil
}
