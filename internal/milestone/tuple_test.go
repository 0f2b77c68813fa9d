package milestone

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/danmuck/milestonectl/internal/protocol"
)

func liveTuple(t *testing.T) Tuple {
	t.Helper()
	m := phaseOne()
	payData, err := (&directiveBuilder{}).AuthorizePaymentData(m.PaymentSource, *m.Payment)
	if err != nil {
		t.Fatalf("build payData: %v", err)
	}
	m.PayData = payData
	m.Progress = &Progress{Status: StatusCompleted, DoneTime: 1550000000}
	return TupleOf(m)
}

func TestTupleMilestoneWithProgress(t *testing.T) {
	m, err := liveTuple(t).Milestone()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if m.Progress == nil || m.Status != StatusCompleted || m.DoneTime != 1550000000 {
		t.Fatalf("unexpected progress: %+v", m.Progress)
	}
	if m.Payment == nil || m.PayDescription != "Phase 1" || m.PayValue.Int64() != 1000 {
		t.Fatalf("expected merged payment, got %+v", m.Payment)
	}
}

func TestTupleNineFieldsHasNoProgress(t *testing.T) {
	tuple := liveTuple(t)
	tuple.Status = nil
	tuple.DoneTime = nil
	m, err := tuple.Milestone()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if m.Progress != nil {
		t.Fatalf("expected no progress, got %+v", m.Progress)
	}
}

func TestTupleRejectsBadSlots(t *testing.T) {
	wide := new(big.Int).Lsh(big.NewInt(1), 64)
	cases := []struct {
		name   string
		mutate func(*Tuple)
		want   error
	}{
		{"status ordinal", func(tp *Tuple) { tp.Status = big.NewInt(4) }, protocol.ErrInvalidStatus},
		{"wide review time", func(tp *Tuple) { tp.ReviewTime = wide }, protocol.ErrIntegerOverflow},
		{"wide done time", func(tp *Tuple) { tp.DoneTime = wide }, protocol.ErrIntegerOverflow},
		{"negative date", func(tp *Tuple) { tp.MinCompletionDate = big.NewInt(-1) }, protocol.ErrNegativeInteger},
		{"short reviewer", func(tp *Tuple) { tp.Reviewer = "0x01" }, protocol.ErrInvalidAddress},
		{"truncated payData", func(tp *Tuple) { tp.PayData = tp.PayData[:20] }, protocol.ErrTruncated},
	}
	for _, tc := range cases {
		tuple := liveTuple(t)
		tc.mutate(&tuple)
		if _, err := tuple.Milestone(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestStatusNames(t *testing.T) {
	for s := StatusAcceptedAndInProgress; s <= StatusCanceled; s++ {
		parsed, err := ParseStatus(s.String())
		if err != nil || parsed != s {
			t.Fatalf("status %d: parsed %v err %v", s, parsed, err)
		}
	}
	if _, err := ParseStatus("Paid"); !errors.Is(err, protocol.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := StatusFromOrdinal(big.NewInt(3)); err != nil {
		t.Fatalf("ordinal 3: %v", err)
	}
	if _, err := StatusFromOrdinal(nil); !errors.Is(err, protocol.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for nil ordinal, got %v", err)
	}
}

func TestMilestoneJSON(t *testing.T) {
	m := phaseOne()
	m.Progress = &Progress{Status: StatusAuthorizedForPayment, DoneTime: 7}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if fields["status"] != "AuthorizedForPayment" || fields["payDescription"] != "Phase 1" {
		t.Fatalf("unexpected json: %s", raw)
	}
	if _, ok := fields["payData"]; ok {
		t.Fatalf("empty payData should be omitted: %s", raw)
	}

	var back Milestone
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(m) {
		t.Fatalf("json round trip mismatch: %+v vs %+v", back, m)
	}
}

func TestNewValidatesAndCopies(t *testing.T) {
	src := phaseOne()
	m, err := New(src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	src.Payment.PayValue.SetInt64(1)
	if m.PayValue.Int64() != 1000 {
		t.Fatalf("New must not share payment state")
	}

	bad := phaseOne()
	bad.MilestoneLeadLink = ""
	_, err = New(bad)
	var vErr ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "milestoneLeadLink" || vErr.Reason != "required" {
		t.Fatalf("expected milestoneLeadLink required, got %v", err)
	}
	if vErr.Error() != "milestone: milestoneLeadLink: required" {
		t.Fatalf("unexpected message %q", vErr.Error())
	}

	neg := phaseOne()
	neg.PayValue = big.NewInt(-5)
	if _, err := New(neg); !errors.As(err, &vErr) || vErr.Field != "payValue" {
		t.Fatalf("expected payValue error, got %v", err)
	}
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress(" 0x00000000000000000000000000000000000000AB ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != "0x00000000000000000000000000000000000000ab" {
		t.Fatalf("expected normalized address, got %s", a)
	}
	if _, err := ParseAddress("0xabcd"); !errors.Is(err, protocol.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	raw, err := json.Marshal([]Milestone{phaseOne()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ms, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ms) != 1 || !ms[0].Equal(phaseOne()) {
		t.Fatalf("unexpected milestones: %+v", ms)
	}

	typo := strings.Replace(string(raw), `"minCompletionDate"`, `"minCompletiondate"`, 1)
	if _, err := ParseJSON([]byte(typo)); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	if _, err := ParseJSON(append(raw, []byte(" []")...)); err == nil {
		t.Fatalf("expected trailing data to be rejected")
	}

	bad := phaseOne()
	bad.Reviewer = "0x1234"
	raw, _ = json.Marshal([]Milestone{phaseOne(), bad})
	_, err = ParseJSON(raw)
	var vErr ValidationError
	if !errors.As(err, &vErr) || vErr.Index != 1 || vErr.Field != "reviewer" {
		t.Fatalf("expected reviewer error at index 1, got %v", err)
	}
}
