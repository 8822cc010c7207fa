package billing

import (
	"github.com/creamline/milkrun/plan"
	"github.com/creamline/milkrun/spec"
)

// Line is one subscribed product line as the calculator sees it.
// UnitPrice is in the smallest currency unit
type Line struct {
	UnitPrice int64
	Quantity  int64
	Frequency spec.Frequency
	Paused    bool
}

// EstimateOption controls how the monthly estimate treats product lines
type EstimateOption struct {
	// ExcludePaused drops paused lines from the estimate. The app displays
	// paused lines in the monthly total (pausing affects delivery, not the
	// shown estimate), so the default is false
	ExcludePaused bool
}

// LineMonthlyCost returns the raw monthly cost of one product line:
// unit price * quantity * deliveries per month. Paused lines still cost
// their full amount here; filtering is the caller's policy
func LineMonthlyCost(l Line) int64 {
	return l.UnitPrice * l.Quantity * l.Frequency.OccurrencesPerMonth()
}

// MonthlyEstimate returns the full monthly estimate for one address:
// the fixed tier fee plus the sum of its product lines
func MonthlyEstimate(tier plan.Tier, lines []Line, opt EstimateOption) int64 {
	total := tier.Fee
	for _, l := range lines {
		if opt.ExcludePaused && l.Paused {
			continue
		}
		total += LineMonthlyCost(l)
	}
	return total
}

// RefundCredit converts unused plan days into the wallet credit owed when
// a subscription ends
func RefundCredit(planDaysLeft int, tier plan.Tier) int64 {
	if planDaysLeft <= 0 {
		return 0
	}
	return int64(planDaysLeft) * tier.PerDeliveryRate
}
