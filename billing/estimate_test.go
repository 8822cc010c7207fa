package billing

import (
	"testing"

	"github.com/creamline/milkrun/plan"
	"github.com/creamline/milkrun/spec"

	"github.com/stretchr/testify/assert"
)

var homeTier = plan.Tier{
	ID:              "home",
	Name:            "Home Plan",
	Fee:             99,
	PerDeliveryRate: 3,
}

func TestLineMonthlyCost(t *testing.T) {
	cases := []struct {
		name     string
		line     Line
		expected int64
	}{
		{"daily milk", Line{UnitPrice: 26, Quantity: 2, Frequency: spec.FrequencyDaily}, 1560},
		{"weekly ghee", Line{UnitPrice: 210, Quantity: 1, Frequency: spec.FrequencyWeekly}, 840},
		{"monthly single", Line{UnitPrice: 100, Quantity: 1, Frequency: spec.FrequencyMonthly}, 100},
		{"paused still costs", Line{UnitPrice: 26, Quantity: 1, Frequency: spec.FrequencyDaily, Paused: true}, 780},
		{"free sample", Line{UnitPrice: 0, Quantity: 3, Frequency: spec.FrequencyDaily}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, LineMonthlyCost(c.line))
		})
	}
}

func TestMonthlyEstimate(t *testing.T) {
	lines := []Line{
		{UnitPrice: 26, Quantity: 1, Frequency: spec.FrequencyDaily},
		{UnitPrice: 40, Quantity: 1, Frequency: spec.FrequencyWeekly, Paused: true},
	}

	// Default policy: paused lines count
	assert.Equal(t, int64(99+26*30+40*4), MonthlyEstimate(homeTier, lines, EstimateOption{}))

	// Opt-out policy: paused lines drop out
	assert.Equal(t, int64(99+26*30), MonthlyEstimate(homeTier, lines, EstimateOption{ExcludePaused: true}))

	// Bare plan is just the fee
	assert.Equal(t, int64(99), MonthlyEstimate(homeTier, nil, EstimateOption{}))
}

func TestRefundCredit(t *testing.T) {
	assert.Equal(t, int64(90), RefundCredit(30, homeTier))
	assert.Equal(t, int64(3), RefundCredit(1, homeTier))
	assert.Equal(t, int64(0), RefundCredit(0, homeTier))
	assert.Equal(t, int64(0), RefundCredit(-5, homeTier))
}
