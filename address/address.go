package address

import (
	"time"

	"github.com/creamline/milkrun/billing"
	"github.com/creamline/milkrun/geo"
	"github.com/creamline/milkrun/spec"
)

// Product describes one subscribed product line at an address.
// UnitPrice is in the smallest currency unit
type Product struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Variant   string         `json:"variant"`
	UnitPrice int64          `json:"unitPrice"`
	Quantity  int64          `json:"quantity"`
	Frequency spec.Frequency `json:"frequency"`
	Paused    bool           `json:"paused"`
}

// Address describes one delivery address with its own recurring plan.
// Dates are calendar dates, money is in the smallest currency unit
type Address struct {
	ID           string       `json:"id"`
	Nickname     string       `json:"nickname"`
	HouseNumber  string       `json:"houseNumber"`
	Location     geo.Location `json:"location"`
	TierID       string       `json:"tierId"`
	Status       string       `json:"status"`       // active/on_hold/vacation/ended
	PlanActive   bool         `json:"planActive"`   // Flips true via ActivatePlan, back to false on End
	PlanDaysLeft int          `json:"planDaysLeft"` // Delivery-slot balance, never negative
	VacationFrom spec.Date    `json:"vacationFrom,omitempty"`
	VacationTo   spec.Date    `json:"vacationTo,omitempty"`
	EndReason    string       `json:"endReason,omitempty"`
	Products     []Product    `json:"products"`
	Version      int64        `json:"version"` // Bumped on every successful mutation
	CreatedAt    time.Time    `json:"createdAt"`
}

func (a *Address) findProduct(productID string) *Product {
	for k, p := range a.Products {
		if p.ID == productID {
			return &a.Products[k]
		}
	}
	return nil
}

// clone returns a deep copy so callers never share the stored slice
func (a *Address) clone() *Address {
	copied := *a
	copied.Products = make([]Product, len(a.Products))
	copy(copied.Products, a.Products)
	return &copied
}

// Lines projects the product list into billing calculator lines
func (a *Address) Lines() []billing.Line {
	lines := make([]billing.Line, 0, len(a.Products))
	for _, p := range a.Products {
		lines = append(lines, billing.Line{
			UnitPrice: p.UnitPrice,
			Quantity:  p.Quantity,
			Frequency: p.Frequency,
			Paused:    p.Paused,
		})
	}
	return lines
}
