package tracker

import (
	"context"
	"fmt"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
)

// Collection describes a payment collected for a milestone.
type Collection struct {
	MilestoneID uint64            `json:"milestoneId"`
	Vault       milestone.Address `json:"vault"`
	PaymentID   int               `json:"paymentId"`
	Recipient   milestone.Address `json:"recipient"`
}

// CollectMilestone collects the vault payment a milestone authorized. The
// payment is the first one in the vault whose description matches the
// milestone's payDescription; it is collected on behalf of its recipient.
func (t *Tracker) CollectMilestone(ctx context.Context, id uint64) (Collection, error) {
	st, err := t.State(ctx)
	if err != nil {
		return Collection{}, err
	}
	if id >= uint64(len(st.Milestones)) {
		return Collection{}, fmt.Errorf("%w: %d", ledger.ErrUnknownMilestone, id)
	}
	m := st.Milestones[id]
	if m.Payment == nil || m.PayRecipient == "" {
		return Collection{}, fmt.Errorf("%w: milestone %d has no payment directive", ErrNotPayable, id)
	}

	v, err := t.vaults.Vault(m.PaymentSource)
	if err != nil {
		return Collection{}, err
	}
	vst, err := v.State(ctx)
	if err != nil {
		return Collection{}, fmt.Errorf("read vault %s: %w", m.PaymentSource, err)
	}
	paymentID := -1
	for i, p := range vst.Payments {
		if p.Description == m.PayDescription {
			paymentID = i
			break
		}
	}
	if paymentID < 0 {
		return Collection{}, fmt.Errorf("%w: %q in vault %s", ErrPaymentNotFound, m.PayDescription, m.PaymentSource)
	}

	recipient := vst.Payments[paymentID].Recipient
	if err := v.CollectAuthorizedPayment(ctx, paymentID, recipient); err != nil {
		return Collection{}, fmt.Errorf("collect payment %d: %w", paymentID, err)
	}
	t.logger.Info().
		Uint64("milestone", id).
		Str("vault", m.PaymentSource.String()).
		Int("payment", paymentID).
		Str("recipient", recipient.String()).
		Msg("payment collected")
	return Collection{MilestoneID: id, Vault: m.PaymentSource, PaymentID: paymentID, Recipient: recipient}, nil
}
