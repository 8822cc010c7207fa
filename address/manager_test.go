package address

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/creamline/milkrun/geo"
	"github.com/creamline/milkrun/plan"
	"github.com/creamline/milkrun/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testManager(t *testing.T) *Manager {
	tiers, err := plan.NewTableFromTiers([]plan.Tier{
		{ID: "home", Name: "Home Plan", Fee: 99, PerDeliveryRate: 3},
		{ID: "business", Name: "Business Plan", Fee: 399, PerDeliveryRate: 3},
		{ID: "legacy", Name: "Legacy Plan", Fee: 49, PerDeliveryRate: 3, Retired: true},
	})
	require.NoError(t, err)

	m, err := NewManager(ManagerOptions{
		Tiers:  tiers,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return m
}

func validCreate() CreateOption {
	return CreateOption{
		Nickname:    "Home",
		HouseNumber: "42",
		Location: geo.Location{
			Line1:   "MG Road",
			City:    "Bengaluru",
			Pincode: "560001",
		},
	}
}

func TestCreateAddress(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.NotEmpty(t, addr.ID)
	assert.Equal(t, StatusActive, addr.Status)
	assert.False(t, addr.PlanActive)
	assert.Equal(t, 0, addr.PlanDaysLeft)
	assert.Empty(t, addr.Products)
	assert.Equal(t, plan.DefaultTierID, addr.TierID)
}

func TestCreateAddressValidation(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(opt *CreateOption)
	}{
		{"empty nickname", func(opt *CreateOption) { opt.Nickname = "" }},
		{"empty house number", func(opt *CreateOption) { opt.HouseNumber = "" }},
		{"no resolvable city", func(opt *CreateOption) { opt.Location.City = "" }},
		{"unknown tier", func(opt *CreateOption) { opt.TierID = "platinum" }},
		{"retired tier", func(opt *CreateOption) { opt.TierID = "legacy" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opt := validCreate()
			c.mutate(&opt)
			_, err := m.Create(ctx, opt)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestListInsertionOrder(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	nicknames := []string{"Home", "Office", "Parents"}
	for _, n := range nicknames {
		opt := validCreate()
		opt.Nickname = n
		_, err := m.Create(ctx, opt)
		require.NoError(t, err)
	}

	listed := m.List(ctx)
	require.Len(t, listed, 3)
	for k, n := range nicknames {
		assert.Equal(t, n, listed[k].Nickname)
	}
}

func TestGetAndDelete(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)

	fetched, err := m.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, fetched.ID)

	_, err = m.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.Delete(ctx, addr.ID))
	_, err = m.Get(ctx, addr.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(m.Delete(ctx, addr.ID), ErrNotFound))
	assert.Empty(t, m.List(ctx))
}

func TestMutateVersioning(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.Equal(t, int64(0), addr.Version)

	// Unversioned mutate always applies
	updated, err := m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		return a.ActivatePlan()
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	// Correct version applies and bumps
	updated, err = m.Mutate(ctx, addr.ID, 1, func(a *Address) error {
		return a.Hold()
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// Stale version is rejected without touching state
	_, err = m.Mutate(ctx, addr.ID, 1, func(a *Address) error {
		return a.Resume()
	})
	assert.True(t, errors.Is(err, ErrStaleVersion), "got %v", err)

	current, err := m.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnHold, current.Status)
}

func TestMutateDiscardsOnError(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)

	_, err = m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		return a.Hold()
	})
	require.NoError(t, err)

	// Holding twice fails, and the nickname scribble must not leak out
	_, err = m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		a.Nickname = "discarded"
		return a.Hold()
	})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	current, err := m.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "discarded", current.Nickname)
}

func TestMutateSerializesPerAddress(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		return a.ActivatePlan()
	})
	require.NoError(t, err)

	// Concurrent product adds must not lose updates
	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
				return a.AddProduct(Product{
					ID:        "prod-" + string(rune('a'+i)),
					Name:      "Product",
					UnitPrice: 10,
					Quantity:  1,
					Frequency: spec.FrequencyDaily,
				})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	current, err := m.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.Len(t, current.Products, workers)
	assert.Equal(t, int64(1+workers), current.Version)
}

func TestMutateLosesToDelete(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)

	// Resolve the entry the way Mutate does before taking its lock,
	// then delete the address from under it
	m.mu.RLock()
	e := m.entries[addr.ID]
	m.mu.RUnlock()
	require.NoError(t, m.Delete(ctx, addr.ID))

	// Committing to the orphaned entry must fail, not silently succeed
	_, err = m.apply(e, VersionAny, func(a *Address) error {
		return a.ActivatePlan()
	})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.False(t, e.addr.PlanActive)
}

func TestAggregate(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	// Empty store yields all zeroes
	assert.Equal(t, Aggregate{}, m.Aggregate(ctx))

	addr, err := m.Create(ctx, validCreate())
	require.NoError(t, err)

	// Not yet activated: contributes nothing to the estimate
	agg := m.Aggregate(ctx)
	assert.Equal(t, 1, agg.AddressCount)
	assert.Equal(t, int64(0), agg.TotalMonthlyEstimate)

	_, err = m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		if err := a.ActivatePlan(); err != nil {
			return err
		}
		return a.AddProduct(Product{
			ID:        "prod-milk",
			Name:      "Toned Milk",
			UnitPrice: 26,
			Quantity:  1,
			Frequency: spec.FrequencyDaily,
		})
	})
	require.NoError(t, err)

	// 99 base fee + 26 * 30 daily deliveries
	agg = m.Aggregate(ctx)
	assert.Equal(t, 1, agg.AddressCount)
	assert.Equal(t, 1, agg.TotalProducts)
	assert.Equal(t, int64(879), agg.TotalMonthlyEstimate)

	// Ended addresses contribute nothing
	_, err = m.Mutate(ctx, addr.ID, VersionAny, func(a *Address) error {
		_, endErr := a.End("", testTier)
		return endErr
	})
	require.NoError(t, err)

	agg = m.Aggregate(ctx)
	assert.Equal(t, 1, agg.AddressCount)
	assert.Equal(t, 0, agg.TotalProducts)
	assert.Equal(t, int64(0), agg.TotalMonthlyEstimate)
}

func TestExportRestore(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx, validCreate())
	require.NoError(t, err)
	opt := validCreate()
	opt.Nickname = "Office"
	opt.TierID = "business"
	_, err = m.Create(ctx, opt)
	require.NoError(t, err)

	exported := m.Export(ctx)
	require.Len(t, exported, 2)

	fresh := testManager(t)
	require.NoError(t, fresh.Restore(ctx, exported))

	listed := fresh.List(ctx)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, "Office", listed[1].Nickname)

	// Duplicate ids are rejected
	err = fresh.Restore(ctx, []Address{*first, *first})
	assert.True(t, errors.Is(err, ErrValidation))
}
