// Package vault is the payment-vault side of the tracker: it builds the
// authorizePayment payData milestones carry and keeps the payments those
// directives authorize.
package vault

import (
	"context"
	"errors"
	"math/big"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol/directive"
)

var (
	ErrUnknownVault         = errors.New("vault: unknown vault")
	ErrUnsupportedDirective = errors.New("vault: unsupported directive")
	ErrUnknownPayment       = errors.New("vault: unknown payment")
	ErrNotRecipient         = errors.New("vault: caller is not the payment recipient")
	ErrNotCollectable       = errors.New("vault: payment not collectable")
)

// Payment is one authorized disbursement.
type Payment struct {
	Description     string            `json:"description"`
	Recipient       milestone.Address `json:"recipient"`
	Value           *big.Int          `json:"value"`
	EarliestPayTime uint64            `json:"earliestPayTime"`
	Paid            bool              `json:"paid"`
	Canceled        bool              `json:"canceled"`
}

// State is a snapshot of a vault's payments, indexed by payment id.
type State struct {
	Payments []Payment `json:"payments"`
}

// Vault is one payment vault instance.
type Vault interface {
	State(ctx context.Context) (State, error)
	CollectAuthorizedPayment(ctx context.Context, id int, from milestone.Address) error
}

// Resolver finds the vault deployed at a milestone's payment source.
type Resolver interface {
	Vault(source milestone.Address) (Vault, error)
}

// Encoder builds authorizePayment payData.
type Encoder struct{}

var _ milestone.Builder = Encoder{}

func (Encoder) AuthorizePaymentData(_ milestone.Address, p milestone.Payment) ([]byte, error) {
	return directive.EncodeAuthorizePayment(directive.AuthorizePayment{
		Description: p.PayDescription,
		Recipient:   string(p.PayRecipient),
		Value:       p.PayValue,
		Delay:       p.PayDelay,
	})
}
