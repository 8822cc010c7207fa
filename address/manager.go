package address

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creamline/milkrun/billing"
	"github.com/creamline/milkrun/geo"
	"github.com/creamline/milkrun/plan"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// VersionAny skips the optimistic version check on Mutate
const VersionAny int64 = -1

// ManagerOptions contains the configuration for the address Manager
type ManagerOptions struct {
	Tiers  *plan.Table
	Logger *zap.Logger
}

// Manager is the in-memory subscription store. It owns every Address,
// keeps insertion order for display, and serializes mutations per address
type Manager struct {
	ManagerOptions

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// entry pairs an address with its mutation lock. Two logical actions
// racing for the same address id queue up here instead of losing updates.
// deleted marks an entry removed from the index while another caller
// still holds a reference to it
type entry struct {
	mu      sync.Mutex
	addr    *Address
	deleted bool
}

// NewManager returns a new Manager for subscription addresses
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.Tiers == nil {
		return nil, fmt.Errorf("nil Tiers is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Manager{
		ManagerOptions: option,
		entries:        make(map[string]*entry),
		order:          make([]string, 0),
	}, nil
}

// CreateOption contains the input for creating a new address
type CreateOption struct {
	Nickname    string `validate:"required"`
	HouseNumber string `validate:"required"`
	TierID      string
	Location    geo.Location
}

// Create registers a new address with an inactive plan and an empty basket
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Address, error) {
	if err := validate.Struct(&opt); err != nil {
		return nil, extErrors.Wrap(ErrValidation, err.Error())
	}
	if len(opt.Location.City) == 0 {
		return nil, extErrors.Wrap(ErrValidation, "no city resolvable for the address")
	}
	tierID := opt.TierID
	if len(tierID) == 0 {
		tierID = plan.DefaultTierID
	}
	tier, ok := m.Tiers.GetDefinedTierByID(tierID)
	if !ok {
		return nil, extErrors.Wrapf(ErrValidation, "unknown plan tier %s", tierID)
	}
	if tier.Retired {
		return nil, extErrors.Wrapf(ErrValidation, "plan tier %s is retired", tierID)
	}

	addr := &Address{
		ID:          uuid.New().String(),
		Nickname:    opt.Nickname,
		HouseNumber: opt.HouseNumber,
		Location:    opt.Location,
		TierID:      tier.ID,
		Status:      StatusActive,
		Products:    make([]Product, 0),
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.entries[addr.ID] = &entry{addr: addr}
	m.order = append(m.order, addr.ID)
	m.mu.Unlock()

	m.Logger.Info("New subscription address created",
		zap.String("AddressID", addr.ID),
		zap.String("TierID", addr.TierID),
	)

	return addr.clone(), nil
}

// Get returns a copy of the address with the given id
func (m *Manager) Get(ctx context.Context, id string) (*Address, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, extErrors.Wrapf(ErrNotFound, "no address with id %s", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, extErrors.Wrapf(ErrNotFound, "no address with id %s", id)
	}
	return e.addr.clone(), nil
}

// List returns copies of all addresses in insertion order
func (m *Manager) List(ctx context.Context) []Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]Address, 0, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		e.mu.Lock()
		results = append(results, *e.addr.clone())
		e.mu.Unlock()
	}
	return results
}

// Delete removes an address entirely. Other addresses keep their order
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return extErrors.Wrapf(ErrNotFound, "no address with id %s", id)
	}
	// Tombstone the entry so a Mutate that already resolved it cannot
	// commit to an address no longer in the index
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	delete(m.entries, id)
	for k, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:k], m.order[k+1:]...)
			break
		}
	}
	return nil
}

// MutateFunc applies one or more transitions to a working copy of the
// address. Returning an error discards every change
type MutateFunc func(addr *Address) error

// Mutate applies a transition function under the per-address lock.
// If version is not VersionAny it must match the stored version, otherwise
// the mutation fails with ErrStaleVersion. On success the version is bumped
// and the new state returned
func (m *Manager) Mutate(ctx context.Context, id string, version int64, fn MutateFunc) (*Address, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, extErrors.Wrapf(ErrNotFound, "no address with id %s", id)
	}
	return m.apply(e, version, fn)
}

// apply commits a transition to an already resolved entry. Split from
// Mutate because the entry lock is taken after the index lock is released,
// so a concurrent Delete may have tombstoned the entry in between
func (m *Manager) apply(e *entry, version int64, fn MutateFunc) (*Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, extErrors.Wrapf(ErrNotFound, "no address with id %s", e.addr.ID)
	}
	if version != VersionAny && version != e.addr.Version {
		return nil, extErrors.Wrapf(ErrStaleVersion, "expected version %d, have %d", version, e.addr.Version)
	}

	working := e.addr.clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Version++
	e.addr = working

	return working.clone(), nil
}

// Aggregate is the derived store-wide summary consumed by the home cards
type Aggregate struct {
	AddressCount         int   `json:"addressCount"`
	TotalProducts        int   `json:"totalProducts"`
	TotalMonthlyEstimate int64 `json:"totalMonthlyEstimate"`
}

// Aggregate sums the derived totals. Only active addresses with an
// activated plan contribute to the monthly estimate; ended and
// not-yet-activated addresses contribute 0
func (m *Manager) Aggregate(ctx context.Context) Aggregate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var agg Aggregate
	for _, id := range m.order {
		e := m.entries[id]
		e.mu.Lock()
		addr := e.addr
		agg.AddressCount++
		agg.TotalProducts += len(addr.Products)
		if addr.Status == StatusActive && addr.PlanActive {
			tier, ok := m.Tiers.GetDefinedTierByID(addr.TierID)
			if !ok {
				m.Logger.Error("Address references an undefined tier",
					zap.String("AddressID", addr.ID),
					zap.String("TierID", addr.TierID),
				)
			} else {
				agg.TotalMonthlyEstimate += billing.MonthlyEstimate(tier, addr.Lines(), billing.EstimateOption{})
			}
		}
		e.mu.Unlock()
	}
	return agg
}

// Export returns a snapshot of every address in insertion order, for the
// JSON persistence layer
func (m *Manager) Export(ctx context.Context) []Address {
	return m.List(ctx)
}

// Restore replaces the store content with a previously exported snapshot
func (m *Manager) Restore(ctx context.Context, addrs []Address) error {
	entries := make(map[string]*entry, len(addrs))
	order := make([]string, 0, len(addrs))
	for k := range addrs {
		addr := addrs[k]
		if len(addr.ID) == 0 {
			return extErrors.Wrap(ErrValidation, "snapshot contains an address without an id")
		}
		if _, ok := entries[addr.ID]; ok {
			return extErrors.Wrapf(ErrValidation, "snapshot contains duplicate address id %s", addr.ID)
		}
		if addr.Products == nil {
			addr.Products = make([]Product, 0)
		}
		entries[addr.ID] = &entry{addr: &addr}
		order = append(order, addr.ID)
	}

	m.mu.Lock()
	m.entries = entries
	m.order = order
	m.mu.Unlock()

	m.Logger.Info("Subscription store restored from snapshot",
		zap.Int("Addresses", len(order)),
	)
	return nil
}
