package tracker

import (
	"context"
	"fmt"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/observability"
	"github.com/danmuck/milestonectl/internal/protocol"
)

// maxPrealloc bounds the slice capacity taken on trust from the ledger's
// milestone count; append grows past it.
const maxPrealloc = 1024

// State is a full read of the tracker contract. The proposal fields are only
// set while ChangingMilestones is true.
type State struct {
	Recipient              milestone.Address     `json:"recipient"`
	Donor                  milestone.Address     `json:"donor"`
	Arbitrator             milestone.Address     `json:"arbitrator"`
	CampaignCanceled       bool                  `json:"campaignCanceled"`
	Milestones             []milestone.Milestone `json:"milestones"`
	ChangingMilestones     bool                  `json:"changingMilestones"`
	ProposedMilestonesData protocol.HexBytes     `json:"proposedMilestonesData,omitempty"`
	ProposedMilestonesHash string                `json:"proposedMilestonesHash,omitempty"`
	ProposedMilestones     []milestone.Milestone `json:"proposedMilestones,omitempty"`
}

// State reads every field in contract order. Milestones are fetched one at a
// time by id; any error aborts the read.
func (t *Tracker) State(ctx context.Context) (State, error) {
	var (
		st  State
		err error
	)
	if st.Recipient, err = t.reader.Recipient(ctx); err != nil {
		return State{}, fmt.Errorf("read recipient: %w", err)
	}
	if st.Donor, err = t.reader.Donor(ctx); err != nil {
		return State{}, fmt.Errorf("read donor: %w", err)
	}
	if st.Arbitrator, err = t.reader.Arbitrator(ctx); err != nil {
		return State{}, fmt.Errorf("read arbitrator: %w", err)
	}
	if st.CampaignCanceled, err = t.reader.CampaignCanceled(ctx); err != nil {
		return State{}, fmt.Errorf("read campaignCanceled: %w", err)
	}
	n, err := t.reader.NumberOfMilestones(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read numberOfMilestones: %w", err)
	}

	st.Milestones = make([]milestone.Milestone, 0, min(n, maxPrealloc))
	for id := uint64(0); id < n; id++ {
		tuple, err := t.reader.Milestone(ctx, id)
		if err != nil {
			return State{}, fmt.Errorf("read milestone %d: %w", id, err)
		}
		m, err := tuple.Milestone()
		if err != nil {
			return State{}, fmt.Errorf("milestone %d: %w", id, err)
		}
		st.Milestones = append(st.Milestones, m)
	}

	if st.ChangingMilestones, err = t.reader.ChangingMilestones(ctx); err != nil {
		return State{}, fmt.Errorf("read changingMilestones: %w", err)
	}
	if !st.ChangingMilestones {
		return st, nil
	}

	data, err := t.reader.ProposedMilestones(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read proposedMilestones: %w", err)
	}
	st.ProposedMilestonesData = data
	st.ProposedMilestonesHash = ledger.ProposalHash(data)
	if st.ProposedMilestones, err = t.proposal(ctx, st.ProposedMilestonesHash, data); err != nil {
		return State{}, fmt.Errorf("proposedMilestones: %w", err)
	}
	return st, nil
}

// proposal decodes data, consulting the cache by hash first. Cache errors
// are logged and otherwise ignored.
func (t *Tracker) proposal(ctx context.Context, hash string, data []byte) ([]milestone.Milestone, error) {
	cached, ok, err := t.cache.Get(ctx, hash)
	if err != nil {
		t.logger.Warn().Err(err).Str("hash", hash).Msg("proposal cache read failed")
	}
	observability.RecordCacheLookup(t.cache.Name(), ok)
	if ok {
		return cached, nil
	}

	ms, err := milestone.DecodeWithLimits(data, t.limits)
	observability.RecordCodec("decode", len(data), err)
	if err != nil {
		return nil, err
	}
	if err := t.cache.Put(ctx, hash, ms); err != nil {
		t.logger.Warn().Err(err).Str("hash", hash).Msg("proposal cache write failed")
	}
	return ms, nil
}
