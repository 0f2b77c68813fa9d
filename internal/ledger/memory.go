package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol"
)

// Roles are the campaign's initial role holders.
type Roles struct {
	Recipient  milestone.Address
	Donor      milestone.Address
	Arbitrator milestone.Address
}

// Memory emulates the tracker contract in process. It is used by tests and
// by the daemon's dev mode.
type Memory struct {
	mu sync.RWMutex

	roles      Roles
	canceled   bool
	milestones []milestone.Milestone
	changing   bool
	proposed   []byte
	seq        uint64

	exec Executor
	now  func() time.Time
}

// NewMemory creates an empty tracker. exec may be nil, in which case
// authorizations only update milestone status.
func NewMemory(roles Roles, exec Executor) *Memory {
	return &Memory{roles: roles, exec: exec, now: time.Now}
}

// SetClock replaces the time source used for completion windows.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Recipient(ctx context.Context) (milestone.Address, error) {
	return readField(ctx, m, func() milestone.Address { return m.roles.Recipient })
}

func (m *Memory) Donor(ctx context.Context) (milestone.Address, error) {
	return readField(ctx, m, func() milestone.Address { return m.roles.Donor })
}

func (m *Memory) Arbitrator(ctx context.Context) (milestone.Address, error) {
	return readField(ctx, m, func() milestone.Address { return m.roles.Arbitrator })
}

func (m *Memory) CampaignCanceled(ctx context.Context) (bool, error) {
	return readField(ctx, m, func() bool { return m.canceled })
}

func (m *Memory) NumberOfMilestones(ctx context.Context) (uint64, error) {
	return readField(ctx, m, func() uint64 { return uint64(len(m.milestones)) })
}

func (m *Memory) ChangingMilestones(ctx context.Context) (bool, error) {
	return readField(ctx, m, func() bool { return m.changing })
}

func (m *Memory) ProposedMilestones(ctx context.Context) ([]byte, error) {
	return readField(ctx, m, func() []byte { return append([]byte{}, m.proposed...) })
}

func (m *Memory) Milestone(ctx context.Context, id uint64) (milestone.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Tuple{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id >= uint64(len(m.milestones)) {
		return milestone.Tuple{}, fmt.Errorf("%w: %d", ErrUnknownMilestone, id)
	}
	return milestone.TupleOf(m.milestones[id]), nil
}

func readField[T any](ctx context.Context, m *Memory, get func() T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(), nil
}

// Send applies call with the contract's access and transition rules.
func (m *Memory) Send(ctx context.Context, call Call) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	gas := call.ExtraGas
	if gas == 0 {
		gas = call.Method.ExtraGas()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	switch call.Method {
	case MethodProposeMilestones:
		err = m.propose(call)
	case MethodUnproposeMilestones:
		err = m.unpropose(call)
	case MethodAcceptProposedMilestones:
		err = m.accept(call)
	case MethodChangeArbitrator:
		err = m.changeRole(call, &m.roles.Arbitrator)
	case MethodChangeDonor:
		err = m.changeRole(call, &m.roles.Donor)
	case MethodChangeRecipient:
		err = m.changeRole(call, &m.roles.Recipient)
	case MethodMarkMilestoneComplete:
		err = m.markComplete(call)
	case MethodApproveCompletedMilestone:
		err = m.approve(ctx, call)
	case MethodRejectMilestone:
		err = m.reject(call)
	case MethodRequestMilestonePayment:
		err = m.requestPayment(ctx, call)
	case MethodCancelMilestone:
		err = m.cancel(call)
	case MethodArbitrateApproveMilestone:
		err = m.arbitrateApprove(ctx, call)
	case MethodArbitrateCancelCampaign:
		err = m.arbitrateCancelCampaign(call)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMethod, call.Method)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("%s: %w", call.Method, err)
	}
	m.seq++
	return Receipt{Method: call.Method, ExtraGas: gas, Seq: m.seq}, nil
}

func (m *Memory) propose(call Call) error {
	if err := m.requireRole(call.From, m.roles.Recipient); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	data, err := protocol.DecodeHex(call.NewMilestones)
	if err != nil {
		return err
	}
	m.proposed = data
	m.changing = true
	return nil
}

func (m *Memory) unpropose(call Call) error {
	if err := m.requireRole(call.From, m.roles.Recipient); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	m.proposed = nil
	m.changing = false
	return nil
}

// accept replaces the unfinished plan with the proposal whose hash the
// donor signed off on. Milestones already authorized for payment survive.
func (m *Memory) accept(call Call) error {
	if err := m.requireRole(call.From, m.roles.Donor); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if !m.changing {
		return fmt.Errorf("%w: no proposal pending", ErrInvalidTransition)
	}
	if !strings.EqualFold(call.Hash, ProposalHash(m.proposed)) {
		return ErrHashMismatch
	}
	proposed, err := milestone.Decode(m.proposed)
	if err != nil {
		return err
	}

	for i := range m.milestones {
		if m.milestones[i].Status != milestone.StatusAuthorizedForPayment {
			m.milestones[i].Status = milestone.StatusCanceled
		}
	}
	for _, p := range proposed {
		p.Progress = &milestone.Progress{Status: milestone.StatusAcceptedAndInProgress}
		m.milestones = append(m.milestones, p)
	}
	m.proposed = nil
	m.changing = false
	return nil
}

func (m *Memory) changeRole(call Call, holder *milestone.Address) error {
	if err := m.requireRole(call.From, *holder); err != nil {
		return err
	}
	if !call.Target.Valid() {
		return fmt.Errorf("%w: target %q", protocol.ErrInvalidAddress, call.Target)
	}
	*holder = call.Target
	return nil
}

func (m *Memory) markComplete(call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if !call.From.Equal(m.roles.Recipient) && !call.From.Equal(ms.MilestoneLeadLink) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, call.From)
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusAcceptedAndInProgress); err != nil {
		return err
	}
	now := uint64(m.now().Unix())
	if now < ms.MinCompletionDate || now > ms.MaxCompletionDate {
		return fmt.Errorf("%w: outside completion window", ErrInvalidTransition)
	}
	ms.Status = milestone.StatusCompleted
	ms.DoneTime = now
	return nil
}

func (m *Memory) approve(ctx context.Context, call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if err := m.requireRole(call.From, ms.Reviewer); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusCompleted); err != nil {
		return err
	}
	return m.authorize(ctx, ms)
}

func (m *Memory) reject(call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if err := m.requireRole(call.From, ms.Reviewer); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusCompleted); err != nil {
		return err
	}
	ms.Status = milestone.StatusAcceptedAndInProgress
	return nil
}

// requestPayment lets the recipient collect once the reviewer let the
// review window lapse.
func (m *Memory) requestPayment(ctx context.Context, call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if !call.From.Equal(m.roles.Recipient) && !call.From.Equal(ms.MilestoneLeadLink) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, call.From)
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusCompleted); err != nil {
		return err
	}
	if uint64(m.now().Unix()) <= ms.DoneTime+ms.ReviewTime {
		return fmt.Errorf("%w: review window still open", ErrInvalidTransition)
	}
	return m.authorize(ctx, ms)
}

func (m *Memory) cancel(call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if err := m.requireRole(call.From, m.roles.Recipient); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusAcceptedAndInProgress, milestone.StatusCompleted); err != nil {
		return err
	}
	ms.Status = milestone.StatusCanceled
	return nil
}

func (m *Memory) arbitrateApprove(ctx context.Context, call Call) error {
	ms, err := m.lookup(call.MilestoneID)
	if err != nil {
		return err
	}
	if err := m.requireRole(call.From, m.roles.Arbitrator); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	if err := requireStatus(ms, milestone.StatusAcceptedAndInProgress, milestone.StatusCompleted); err != nil {
		return err
	}
	return m.authorize(ctx, ms)
}

func (m *Memory) arbitrateCancelCampaign(call Call) error {
	if err := m.requireRole(call.From, m.roles.Arbitrator); err != nil {
		return err
	}
	if err := m.requireOpen(); err != nil {
		return err
	}
	m.canceled = true
	return nil
}

// authorize hands the milestone's payData to its payment source. The status
// only changes when the executor accepts the call.
func (m *Memory) authorize(ctx context.Context, ms *milestone.Milestone) error {
	if m.exec != nil {
		if err := m.exec.Execute(ctx, ms.PaymentSource, ms.PayData); err != nil {
			return fmt.Errorf("execute payData: %w", err)
		}
	}
	ms.Status = milestone.StatusAuthorizedForPayment
	return nil
}

func (m *Memory) lookup(id uint64) (*milestone.Milestone, error) {
	if id >= uint64(len(m.milestones)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMilestone, id)
	}
	return &m.milestones[id], nil
}

func (m *Memory) requireRole(from, holder milestone.Address) error {
	if from == "" || !from.Equal(holder) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, from)
	}
	return nil
}

func (m *Memory) requireOpen() error {
	if m.canceled {
		return fmt.Errorf("%w: campaign canceled", ErrInvalidTransition)
	}
	return nil
}

func requireStatus(ms *milestone.Milestone, allowed ...milestone.Status) error {
	for _, s := range allowed {
		if ms.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: milestone is %s", ErrInvalidTransition, ms.Status)
}
