// Package tracker drives a milestone tracker contract through its ledger
// collaborators: it reads the campaign state, decodes proposals, submits
// state-transition calls and collects authorized payments from vaults.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/observability"
	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/protocol/rlp"
	"github.com/danmuck/milestonectl/internal/vault"
	"github.com/rs/zerolog"
)

var (
	ErrNotPayable      = errors.New("tracker: milestone not payable")
	ErrPaymentNotFound = errors.New("tracker: payment not found")
)

// Config wires a Tracker to its collaborators. Builder defaults to
// vault.Encoder, Cache to no caching and Limits to rlp.DefaultLimits.
type Config struct {
	Reader  ledger.Reader
	Writer  ledger.Writer
	Vaults  vault.Resolver
	Builder milestone.Builder
	Cache   Cache
	Limits  rlp.Limits
	Logger  zerolog.Logger
}

type Tracker struct {
	reader  ledger.Reader
	writer  ledger.Writer
	vaults  vault.Resolver
	builder milestone.Builder
	cache   Cache
	limits  rlp.Limits
	logger  zerolog.Logger
}

func New(cfg Config) *Tracker {
	t := &Tracker{
		reader:  cfg.Reader,
		writer:  cfg.Writer,
		vaults:  cfg.Vaults,
		builder: cfg.Builder,
		cache:   cfg.Cache,
		limits:  cfg.Limits,
		logger:  cfg.Logger.With().Str("component", "tracker").Logger(),
	}
	if t.builder == nil {
		t.builder = vault.Encoder{}
	}
	if t.cache == nil {
		t.cache = NopCache{}
	}
	if t.limits.MaxDepth <= 0 {
		t.limits = rlp.DefaultLimits()
	}
	return t
}

// Send submits call, filling in the method's extra gas when unset.
func (t *Tracker) Send(ctx context.Context, call ledger.Call) (ledger.Receipt, error) {
	if _, err := ledger.ParseMethod(string(call.Method)); err != nil {
		return ledger.Receipt{}, err
	}
	if call.ExtraGas == 0 {
		call.ExtraGas = call.Method.ExtraGas()
	}
	receipt, err := t.writer.Send(ctx, call)
	observability.RecordTrackerCall(string(call.Method), err)
	if err != nil {
		t.logger.Warn().Err(err).Str("method", string(call.Method)).Str("from", call.From.String()).Msg("call rejected")
		return ledger.Receipt{}, err
	}
	t.logger.Info().
		Str("method", string(call.Method)).
		Str("from", call.From.String()).
		Uint64("extra_gas", receipt.ExtraGas).
		Uint64("seq", receipt.Seq).
		Msg("call applied")
	return receipt, nil
}

// ProposeMilestones encodes ms and proposes them as the new plan.
func (t *Tracker) ProposeMilestones(ctx context.Context, from milestone.Address, ms []milestone.Milestone) (ledger.Receipt, error) {
	data, err := milestone.Encode(ms, t.builder)
	observability.RecordCodec("encode", len(data), err)
	if err != nil {
		return ledger.Receipt{}, err
	}
	call := ledger.NewCall(ledger.MethodProposeMilestones, from)
	call.NewMilestones = protocol.EncodeHex(data)
	return t.Send(ctx, call)
}

// ProposeEncoded proposes an already encoded plan after checking it decodes.
func (t *Tracker) ProposeEncoded(ctx context.Context, from milestone.Address, data string) (ledger.Receipt, error) {
	raw, err := protocol.DecodeHex(data)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if _, err := milestone.DecodeWithLimits(raw, t.limits); err != nil {
		observability.RecordCodec("decode", len(raw), err)
		return ledger.Receipt{}, fmt.Errorf("proposal does not decode: %w", err)
	}
	call := ledger.NewCall(ledger.MethodProposeMilestones, from)
	call.NewMilestones = protocol.EncodeHex(raw)
	return t.Send(ctx, call)
}

func (t *Tracker) Unpropose(ctx context.Context, from milestone.Address) (ledger.Receipt, error) {
	return t.Send(ctx, ledger.NewCall(ledger.MethodUnproposeMilestones, from))
}

// AcceptProposed accepts the pending proposal whose keccak256 is hash.
func (t *Tracker) AcceptProposed(ctx context.Context, from milestone.Address, hash string) (ledger.Receipt, error) {
	call := ledger.NewCall(ledger.MethodAcceptProposedMilestones, from)
	call.Hash = hash
	return t.Send(ctx, call)
}

func (t *Tracker) ChangeArbitrator(ctx context.Context, from, target milestone.Address) (ledger.Receipt, error) {
	return t.sendTarget(ctx, ledger.MethodChangeArbitrator, from, target)
}

func (t *Tracker) ChangeDonor(ctx context.Context, from, target milestone.Address) (ledger.Receipt, error) {
	return t.sendTarget(ctx, ledger.MethodChangeDonor, from, target)
}

func (t *Tracker) ChangeRecipient(ctx context.Context, from, target milestone.Address) (ledger.Receipt, error) {
	return t.sendTarget(ctx, ledger.MethodChangeRecipient, from, target)
}

func (t *Tracker) MarkComplete(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodMarkMilestoneComplete, from, id)
}

func (t *Tracker) Approve(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodApproveCompletedMilestone, from, id)
}

func (t *Tracker) Reject(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodRejectMilestone, from, id)
}

func (t *Tracker) RequestPayment(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodRequestMilestonePayment, from, id)
}

func (t *Tracker) Cancel(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodCancelMilestone, from, id)
}

func (t *Tracker) ArbitrateApprove(ctx context.Context, from milestone.Address, id uint64) (ledger.Receipt, error) {
	return t.sendID(ctx, ledger.MethodArbitrateApproveMilestone, from, id)
}

func (t *Tracker) ArbitrateCancelCampaign(ctx context.Context, from milestone.Address) (ledger.Receipt, error) {
	return t.Send(ctx, ledger.NewCall(ledger.MethodArbitrateCancelCampaign, from))
}

func (t *Tracker) sendID(ctx context.Context, method ledger.Method, from milestone.Address, id uint64) (ledger.Receipt, error) {
	call := ledger.NewCall(method, from)
	call.MilestoneID = id
	return t.Send(ctx, call)
}

func (t *Tracker) sendTarget(ctx context.Context, method ledger.Method, from, target milestone.Address) (ledger.Receipt, error) {
	call := ledger.NewCall(method, from)
	call.Target = target
	return t.Send(ctx, call)
}
