package vault

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol/directive"
)

// Registry holds in-memory vaults keyed by address. It resolves vaults for
// the tracker and executes milestone payData for the ledger emulation.
type Registry struct {
	mu     sync.RWMutex
	vaults map[string]*memoryVault
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{vaults: make(map[string]*memoryVault), now: time.Now}
}

// SetClock replaces the time source used for payment delays.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Open creates the vault at source if it does not exist yet.
func (r *Registry) Open(source milestone.Address) error {
	if !source.Valid() {
		return fmt.Errorf("vault: invalid source %q", source)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(source)
	if _, ok := r.vaults[key]; !ok {
		r.vaults[key] = &memoryVault{registry: r}
	}
	return nil
}

func (r *Registry) Vault(source milestone.Address) (Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaults[registryKey(source)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVault, source)
	}
	return v, nil
}

// Execute applies payData to the vault at source. Only authorizePayment is
// understood.
func (r *Registry) Execute(ctx context.Context, source milestone.Address, payData []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := directive.Decode(payData)
	if err != nil {
		return err
	}
	pay, ok := d.(directive.AuthorizePayment)
	if !ok {
		return fmt.Errorf("%w: selector %x", ErrUnsupportedDirective, leading(payData))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vaults[registryKey(source)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVault, source)
	}
	value := new(big.Int)
	if pay.Value != nil {
		value.Set(pay.Value)
	}
	v.payments = append(v.payments, Payment{
		Description:     pay.Description,
		Recipient:       milestone.Address(pay.Recipient),
		Value:           value,
		EarliestPayTime: uint64(r.now().Unix()) + pay.Delay,
	})
	return nil
}

func registryKey(a milestone.Address) string {
	b, err := a.Bytes()
	if err != nil {
		return string(a)
	}
	return string(b)
}

func leading(b []byte) []byte {
	if len(b) > directive.SelectorLen {
		return b[:directive.SelectorLen]
	}
	return b
}

// memoryVault shares the registry lock.
type memoryVault struct {
	registry *Registry
	payments []Payment
}

func (v *memoryVault) State(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	v.registry.mu.RLock()
	defer v.registry.mu.RUnlock()
	out := State{Payments: make([]Payment, len(v.payments))}
	for i, p := range v.payments {
		p.Value = new(big.Int).Set(p.Value)
		out.Payments[i] = p
	}
	return out, nil
}

func (v *memoryVault) CollectAuthorizedPayment(ctx context.Context, id int, from milestone.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.registry.mu.Lock()
	defer v.registry.mu.Unlock()
	if id < 0 || id >= len(v.payments) {
		return fmt.Errorf("%w: %d", ErrUnknownPayment, id)
	}
	p := &v.payments[id]
	if !from.Equal(p.Recipient) {
		return fmt.Errorf("%w: %s", ErrNotRecipient, from)
	}
	if p.Paid || p.Canceled {
		return fmt.Errorf("%w: paid=%t canceled=%t", ErrNotCollectable, p.Paid, p.Canceled)
	}
	if uint64(v.registry.now().Unix()) < p.EarliestPayTime {
		return fmt.Errorf("%w: earliest pay time %d", ErrNotCollectable, p.EarliestPayTime)
	}
	p.Paid = true
	return nil
}
