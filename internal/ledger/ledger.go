// Package ledger describes the milestone tracker contract the codec talks to
// and provides an in-memory emulation of it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol"
	"golang.org/x/crypto/sha3"
)

var (
	ErrUnauthorized      = errors.New("ledger: caller not allowed")
	ErrUnknownMilestone  = errors.New("ledger: unknown milestone")
	ErrInvalidTransition = errors.New("ledger: invalid state transition")
	ErrUnknownMethod     = errors.New("ledger: unknown method")
	ErrHashMismatch      = errors.New("ledger: proposal hash mismatch")
)

// Reader is the read side of the tracker contract.
type Reader interface {
	Recipient(ctx context.Context) (milestone.Address, error)
	Donor(ctx context.Context) (milestone.Address, error)
	Arbitrator(ctx context.Context) (milestone.Address, error)
	CampaignCanceled(ctx context.Context) (bool, error)
	NumberOfMilestones(ctx context.Context) (uint64, error)
	Milestone(ctx context.Context, id uint64) (milestone.Tuple, error)
	ChangingMilestones(ctx context.Context) (bool, error)
	ProposedMilestones(ctx context.Context) ([]byte, error)
}

// Writer submits state-transition calls.
type Writer interface {
	Send(ctx context.Context, call Call) (Receipt, error)
}

// Executor runs the payData of a milestone against its payment source once
// the milestone is authorized for payment.
type Executor interface {
	Execute(ctx context.Context, source milestone.Address, payData []byte) error
}

// Method names a contract call.
type Method string

const (
	MethodProposeMilestones         Method = "proposeMilestones"
	MethodUnproposeMilestones       Method = "unproposeMilestones"
	MethodAcceptProposedMilestones  Method = "acceptProposedMilestones"
	MethodChangeArbitrator          Method = "changeArbitrator"
	MethodChangeDonor               Method = "changeDonor"
	MethodChangeRecipient           Method = "changeRecipient"
	MethodMarkMilestoneComplete     Method = "markMilestoneComplete"
	MethodApproveCompletedMilestone Method = "approveCompletedMilestone"
	MethodRejectMilestone           Method = "rejectMilestone"
	MethodRequestMilestonePayment   Method = "requestMilestonePayment"
	MethodCancelMilestone           Method = "cancelMilestone"
	MethodArbitrateApproveMilestone Method = "arbitrateApproveMilestone"
	MethodArbitrateCancelCampaign   Method = "arbitrateCancelCampaign"
)

// extraGas is the gas added on top of the node's estimate for each call.
var extraGas = map[Method]uint64{
	MethodProposeMilestones:         50000,
	MethodUnproposeMilestones:       500000,
	MethodAcceptProposedMilestones:  500000,
	MethodChangeArbitrator:          5000,
	MethodChangeDonor:               5000,
	MethodChangeRecipient:           5000,
	MethodMarkMilestoneComplete:     10000,
	MethodApproveCompletedMilestone: 100000,
	MethodRejectMilestone:           25000,
	MethodRequestMilestonePayment:   25000,
	MethodCancelMilestone:           25000,
	MethodArbitrateApproveMilestone: 25000,
	MethodArbitrateCancelCampaign:   25000,
}

// ParseMethod resolves a contract method name.
func ParseMethod(name string) (Method, error) {
	m := Method(name)
	if _, ok := extraGas[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return m, nil
}

// Methods returns every known method in name order.
func Methods() []Method {
	out := make([]Method, 0, len(extraGas))
	for m := range extraGas {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExtraGas returns the gas hint for m, or 0 for an unknown method.
func (m Method) ExtraGas() uint64 {
	return extraGas[m]
}

// TakesMilestoneID reports whether m addresses a single milestone.
func (m Method) TakesMilestoneID() bool {
	switch m {
	case MethodMarkMilestoneComplete, MethodApproveCompletedMilestone, MethodRejectMilestone,
		MethodRequestMilestonePayment, MethodCancelMilestone, MethodArbitrateApproveMilestone:
		return true
	}
	return false
}

// TakesTarget reports whether m carries a new role holder.
func (m Method) TakesTarget() bool {
	switch m {
	case MethodChangeArbitrator, MethodChangeDonor, MethodChangeRecipient:
		return true
	}
	return false
}

// Call is one state-transition request. Only the fields the method uses are
// read: NewMilestones for proposals, Hash for acceptance, MilestoneID for
// per-milestone calls and Target for role changes.
type Call struct {
	Method        Method            `json:"method"`
	From          milestone.Address `json:"from"`
	ExtraGas      uint64            `json:"extraGas"`
	NewMilestones string            `json:"newMilestones,omitempty"`
	Hash          string            `json:"hash,omitempty"`
	MilestoneID   uint64            `json:"milestoneId"`
	Target        milestone.Address `json:"target,omitempty"`
}

// NewCall fills in the method's extra gas.
func NewCall(method Method, from milestone.Address) Call {
	return Call{Method: method, From: from, ExtraGas: method.ExtraGas()}
}

// Receipt acknowledges an applied call.
type Receipt struct {
	Method   Method `json:"method"`
	ExtraGas uint64 `json:"extraGas"`
	Seq      uint64 `json:"seq"`
}

// ProposalHash is the keccak256 of a proposed-milestones blob, as the donor
// passes it to acceptProposedMilestones.
func ProposalHash(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return protocol.EncodeHex(h.Sum(nil))
}
