package milestone

import (
	"fmt"
	"math/big"

	"github.com/danmuck/milestonectl/internal/protocol"
)

// Tuple is one milestone as the live ledger returns it. Status and DoneTime
// are nil for 9-field tuples.
type Tuple struct {
	Description       string
	URL               string
	MinCompletionDate *big.Int
	MaxCompletionDate *big.Int
	MilestoneLeadLink Address
	Reviewer          Address
	ReviewTime        *big.Int
	PaymentSource     Address
	PayData           []byte
	Status            *big.Int
	DoneTime          *big.Int
}

// Milestone converts t with the same coercions the record codec applies.
func (t Tuple) Milestone() (Milestone, error) {
	m := Milestone{
		Description:       t.Description,
		URL:               t.URL,
		MilestoneLeadLink: t.MilestoneLeadLink,
		Reviewer:          t.Reviewer,
		PaymentSource:     t.PaymentSource,
		PayData:           protocol.HexBytes(t.PayData).Clone(),
	}
	var err error
	if m.MinCompletionDate, err = tupleUint64("minCompletionDate", t.MinCompletionDate); err != nil {
		return Milestone{}, err
	}
	if m.MaxCompletionDate, err = tupleUint64("maxCompletionDate", t.MaxCompletionDate); err != nil {
		return Milestone{}, err
	}
	if m.ReviewTime, err = tupleUint64("reviewTime", t.ReviewTime); err != nil {
		return Milestone{}, err
	}
	for _, a := range []struct {
		field string
		addr  Address
	}{
		{"milestoneLeadLink", t.MilestoneLeadLink},
		{"reviewer", t.Reviewer},
		{"paymentSource", t.PaymentSource},
	} {
		if !a.addr.Valid() {
			return Milestone{}, protocol.Errorf(op, -1, protocol.ErrInvalidAddress, "tuple %s %q", a.field, a.addr)
		}
	}

	if t.Status != nil {
		status, err := StatusFromOrdinal(t.Status)
		if err != nil {
			return Milestone{}, err
		}
		done, err := tupleUint64("doneTime", t.DoneTime)
		if err != nil {
			return Milestone{}, err
		}
		m.Progress = &Progress{Status: status, DoneTime: done}
	}

	if err := m.mergeDirective(); err != nil {
		return Milestone{}, fmt.Errorf("tuple payData: %w", err)
	}
	return m, nil
}

// TupleOf is the inverse of Tuple.Milestone, used by ledger emulations that
// store milestones in their raw form.
func TupleOf(m Milestone) Tuple {
	t := Tuple{
		Description:       m.Description,
		URL:               m.URL,
		MinCompletionDate: new(big.Int).SetUint64(m.MinCompletionDate),
		MaxCompletionDate: new(big.Int).SetUint64(m.MaxCompletionDate),
		MilestoneLeadLink: m.MilestoneLeadLink,
		Reviewer:          m.Reviewer,
		ReviewTime:        new(big.Int).SetUint64(m.ReviewTime),
		PaymentSource:     m.PaymentSource,
		PayData:           m.PayData.Clone(),
	}
	if m.Progress != nil {
		t.Status = big.NewInt(int64(m.Progress.Status))
		t.DoneTime = new(big.Int).SetUint64(m.Progress.DoneTime)
	}
	return t
}

func tupleUint64(field string, v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 {
		return 0, protocol.Errorf(op, -1, protocol.ErrNegativeInteger, "tuple %s", field)
	}
	if !v.IsUint64() {
		return 0, protocol.Errorf(op, -1, protocol.ErrIntegerOverflow, "tuple %s needs %d bits", field, v.BitLen())
	}
	return v.Uint64(), nil
}
