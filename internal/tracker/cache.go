package tracker

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/fxamacker/cbor/v2"
)

// Cache stores decoded proposals by their keccak256 hash. Implementations
// hold encoded snapshots, so every Get returns records owned by the caller.
type Cache interface {
	Name() string
	Get(ctx context.Context, hash string) ([]milestone.Milestone, bool, error)
	Put(ctx context.Context, hash string, ms []milestone.Milestone) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Name() string { return "none" }

func (NopCache) Get(context.Context, string) ([]milestone.Milestone, bool, error) {
	return nil, false, nil
}

func (NopCache) Put(context.Context, string, []milestone.Milestone) error { return nil }

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is a process-local Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Name() string { return "memory" }

func (c *MemoryCache) Get(ctx context.Context, hash string) ([]milestone.Milestone, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	entry, ok := c.entries[hash]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.entries, hash)
		c.mu.Unlock()
		return nil, false, nil
	}
	ms, err := unmarshalSnapshot(entry.data)
	if err != nil {
		return nil, false, err
	}
	return ms, true, nil
}

func (c *MemoryCache) Put(ctx context.Context, hash string, ms []milestone.Milestone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := marshalSnapshot(ms)
	if err != nil {
		return err
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[hash] = memoryEntry{data: data, expires: now.Add(c.ttl)}
	return nil
}

// Len reports the number of entries held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// snapshot is the cached form of a proposed milestone. Payment values are
// kept as big-endian bytes.
type snapshot struct {
	Description       string           `cbor:"1,keyasint"`
	URL               string           `cbor:"2,keyasint"`
	MinCompletionDate uint64           `cbor:"3,keyasint"`
	MaxCompletionDate uint64           `cbor:"4,keyasint"`
	MilestoneLeadLink string           `cbor:"5,keyasint"`
	Reviewer          string           `cbor:"6,keyasint"`
	ReviewTime        uint64           `cbor:"7,keyasint"`
	PaymentSource     string           `cbor:"8,keyasint"`
	PayData           []byte           `cbor:"9,keyasint"`
	Payment           *paymentSnapshot `cbor:"10,keyasint,omitempty"`
}

type paymentSnapshot struct {
	Description string `cbor:"1,keyasint"`
	Recipient   string `cbor:"2,keyasint"`
	Value       []byte `cbor:"3,keyasint"`
	Delay       uint64 `cbor:"4,keyasint"`
}

var snapshotEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("tracker: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

func marshalSnapshot(ms []milestone.Milestone) ([]byte, error) {
	out := make([]snapshot, len(ms))
	for i, m := range ms {
		s := snapshot{
			Description:       m.Description,
			URL:               m.URL,
			MinCompletionDate: m.MinCompletionDate,
			MaxCompletionDate: m.MaxCompletionDate,
			MilestoneLeadLink: string(m.MilestoneLeadLink),
			Reviewer:          string(m.Reviewer),
			ReviewTime:        m.ReviewTime,
			PaymentSource:     string(m.PaymentSource),
			PayData:           []byte(m.PayData),
		}
		if m.Payment != nil {
			p := &paymentSnapshot{
				Description: m.PayDescription,
				Recipient:   string(m.PayRecipient),
				Delay:       m.PayDelay,
			}
			if m.PayValue != nil {
				p.Value = m.PayValue.Bytes()
			}
			s.Payment = p
		}
		out[i] = s
	}
	return snapshotEncMode.Marshal(out)
}

func unmarshalSnapshot(data []byte) ([]milestone.Milestone, error) {
	var in []snapshot
	if err := cbor.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	out := make([]milestone.Milestone, len(in))
	for i, s := range in {
		m := milestone.Milestone{
			Description:       s.Description,
			URL:               s.URL,
			MinCompletionDate: s.MinCompletionDate,
			MaxCompletionDate: s.MaxCompletionDate,
			MilestoneLeadLink: milestone.Address(s.MilestoneLeadLink),
			Reviewer:          milestone.Address(s.Reviewer),
			ReviewTime:        s.ReviewTime,
			PaymentSource:     milestone.Address(s.PaymentSource),
			PayData:           s.PayData,
		}
		if s.Payment != nil {
			m.Payment = &milestone.Payment{
				PayDescription: s.Payment.Description,
				PayRecipient:   milestone.Address(s.Payment.Recipient),
				PayValue:       new(big.Int).SetBytes(s.Payment.Value),
				PayDelay:       s.Payment.Delay,
			}
		}
		out[i] = m
	}
	return out, nil
}
