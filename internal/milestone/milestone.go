package milestone

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/danmuck/milestonectl/internal/protocol"
)

var ErrMissingPayData = errors.New("milestone: payData missing and no payment to build it from")

// Milestone is one funding checkpoint.
//
// Payment is set when PayData holds a recognized payment directive, or when
// a caller wants the vault to build PayData at encode time. Progress is only
// set for milestones read from the live ledger.
type Milestone struct {
	Description       string            `json:"description"`
	URL               string            `json:"url"`
	MinCompletionDate uint64            `json:"minCompletionDate"`
	MaxCompletionDate uint64            `json:"maxCompletionDate"`
	MilestoneLeadLink Address           `json:"milestoneLeadLink"`
	Reviewer          Address           `json:"reviewer"`
	ReviewTime        uint64            `json:"reviewTime"`
	PaymentSource     Address           `json:"paymentSource"`
	PayData           protocol.HexBytes `json:"payData,omitempty"`
	*Payment
	*Progress
}

// Payment holds the fields of an authorizePayment directive.
type Payment struct {
	PayDescription string   `json:"payDescription"`
	PayRecipient   Address  `json:"payRecipient"`
	PayValue       *big.Int `json:"payValue"`
	PayDelay       uint64   `json:"payDelay"`
}

// Progress is the live ledger state of an accepted milestone.
type Progress struct {
	Status   Status `json:"status"`
	DoneTime uint64 `json:"doneTime"`
}

// ValidationError names the field that made a record unusable.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("milestone: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("milestone[%d]: %s: %s", e.Index, e.Field, e.Reason)
}

// New validates m and returns an independent copy of it.
func New(m Milestone) (Milestone, error) {
	if err := m.Validate(); err != nil {
		return Milestone{}, err
	}
	return m.Clone(), nil
}

// NewList runs New over ms, reporting the index of the first bad record.
func NewList(ms []Milestone) ([]Milestone, error) {
	out := make([]Milestone, 0, len(ms))
	for i, m := range ms {
		built, err := New(m)
		if err != nil {
			var vErr ValidationError
			if errors.As(err, &vErr) {
				vErr.Index = i
				return nil, vErr
			}
			return nil, fmt.Errorf("milestone[%d]: %w", i, err)
		}
		out = append(out, built)
	}
	return out, nil
}

// ParseJSON reads a JSON milestone list. Unknown keys and trailing data are
// rejected, and every record goes through New.
func ParseJSON(data []byte) ([]Milestone, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var ms []Milestone
	if err := dec.Decode(&ms); err != nil {
		return nil, fmt.Errorf("parse milestones: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse milestones: trailing data after list")
	}
	return NewList(ms)
}

// Validate checks that m can be encoded: address fields hold 20 bytes and
// payData is either present or buildable from Payment.
func (m Milestone) Validate() error {
	addresses := []struct {
		field string
		addr  Address
	}{
		{"milestoneLeadLink", m.MilestoneLeadLink},
		{"reviewer", m.Reviewer},
		{"paymentSource", m.PaymentSource},
	}
	for _, a := range addresses {
		if a.addr == "" {
			return ValidationError{Index: -1, Field: a.field, Reason: "required"}
		}
		if !a.addr.Valid() {
			return ValidationError{Index: -1, Field: a.field, Reason: "not a 20-byte address"}
		}
	}
	if m.Progress != nil && !m.Progress.Status.Valid() {
		return ValidationError{Index: -1, Field: "status", Reason: "unknown status"}
	}
	if len(m.PayData) > 0 {
		return nil
	}
	if m.Payment == nil {
		return ValidationError{Index: -1, Field: "payData", Reason: ErrMissingPayData.Error()}
	}
	if !m.Payment.PayRecipient.Valid() {
		return ValidationError{Index: -1, Field: "payRecipient", Reason: "not a 20-byte address"}
	}
	if m.Payment.PayValue == nil {
		return ValidationError{Index: -1, Field: "payValue", Reason: "required"}
	}
	if m.Payment.PayValue.Sign() < 0 {
		return ValidationError{Index: -1, Field: "payValue", Reason: "negative"}
	}
	return nil
}

// Clone returns a deep copy of m.
func (m Milestone) Clone() Milestone {
	out := m
	out.PayData = m.PayData.Clone()
	if m.Payment != nil {
		p := *m.Payment
		if m.Payment.PayValue != nil {
			p.PayValue = new(big.Int).Set(m.Payment.PayValue)
		}
		out.Payment = &p
	}
	if m.Progress != nil {
		p := *m.Progress
		out.Progress = &p
	}
	return out
}

// Equal compares every field, including the optional parts.
func (m Milestone) Equal(o Milestone) bool {
	if m.Description != o.Description ||
		m.URL != o.URL ||
		m.MinCompletionDate != o.MinCompletionDate ||
		m.MaxCompletionDate != o.MaxCompletionDate ||
		!m.MilestoneLeadLink.Equal(o.MilestoneLeadLink) ||
		!m.Reviewer.Equal(o.Reviewer) ||
		m.ReviewTime != o.ReviewTime ||
		!m.PaymentSource.Equal(o.PaymentSource) ||
		string(m.PayData) != string(o.PayData) {
		return false
	}
	if (m.Payment == nil) != (o.Payment == nil) || (m.Progress == nil) != (o.Progress == nil) {
		return false
	}
	if m.Payment != nil {
		a, b := m.Payment, o.Payment
		if a.PayDescription != b.PayDescription || !a.PayRecipient.Equal(b.PayRecipient) || a.PayDelay != b.PayDelay {
			return false
		}
		if (a.PayValue == nil) != (b.PayValue == nil) {
			return false
		}
		if a.PayValue != nil && a.PayValue.Cmp(b.PayValue) != 0 {
			return false
		}
	}
	if m.Progress != nil && *m.Progress != *o.Progress {
		return false
	}
	return true
}
