package address

import (
	"github.com/creamline/milkrun/billing"
	"github.com/creamline/milkrun/plan"
	"github.com/creamline/milkrun/spec"

	extErrors "github.com/pkg/errors"
)

// The transition methods below are the only way address state changes.
// Every guard failure returns ErrInvalidTransition (or ErrNotFound for a
// missing product) so the store and the API layer can branch uniformly.
// The UI hides impossible actions, but the guards here do not rely on that.

// ActivatePlan flips the plan gate on and grants a full cycle of plan days.
// Valid from any status except ended, and only while the plan is inactive
func (a *Address) ActivatePlan() error {
	if a.Status == StatusEnded {
		return extErrors.Wrap(ErrInvalidTransition, "cannot activate plan on an ended subscription")
	}
	if a.PlanActive {
		return extErrors.Wrap(ErrInvalidTransition, "plan is already active")
	}
	a.PlanActive = true
	a.PlanDaysLeft = plan.CycleDays
	a.Status = StatusActive
	return nil
}

// AddProduct appends a product line. Requires an active status and an
// activated plan, so nothing is addable on an ended-then-reactivated
// address until ActivatePlan runs
func (a *Address) AddProduct(p Product) error {
	if a.Status != StatusActive {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot add product while %s", a.Status)
	}
	if !a.PlanActive {
		return extErrors.Wrap(ErrInvalidTransition, "cannot add product before activating the plan")
	}
	if len(p.ID) == 0 || len(p.Name) == 0 {
		return extErrors.Wrap(ErrValidation, "product requires an id and a name")
	}
	if p.Quantity < 1 {
		return extErrors.Wrap(ErrValidation, "product quantity must be at least 1")
	}
	if p.UnitPrice < 0 {
		return extErrors.Wrap(ErrValidation, "product unit price cannot be negative")
	}
	if !p.Frequency.Valid() {
		return extErrors.Wrapf(ErrValidation, "unknown frequency %q", p.Frequency)
	}
	if a.findProduct(p.ID) != nil {
		return extErrors.Wrapf(ErrValidation, "product %s is already subscribed", p.ID)
	}
	a.Products = append(a.Products, p)
	return nil
}

// RemoveProduct drops a product line. Removing the last product never
// changes the address status
func (a *Address) RemoveProduct(productID string) error {
	if a.Status != StatusActive {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot remove product while %s", a.Status)
	}
	for k, p := range a.Products {
		if p.ID == productID {
			a.Products = append(a.Products[:k], a.Products[k+1:]...)
			return nil
		}
	}
	return extErrors.Wrapf(ErrNotFound, "no product with id %s", productID)
}

// TogglePause flips the paused flag of one product line
func (a *Address) TogglePause(productID string) error {
	if a.Status != StatusActive {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot pause product while %s", a.Status)
	}
	p := a.findProduct(productID)
	if p == nil {
		return extErrors.Wrapf(ErrNotFound, "no product with id %s", productID)
	}
	p.Paused = !p.Paused
	return nil
}

// Hold suspends deliveries indefinitely. Mutually exclusive with vacation:
// holding while on vacation is a guard violation, not a merge
func (a *Address) Hold() error {
	if a.Status != StatusActive {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot hold while %s", a.Status)
	}
	a.Status = StatusOnHold
	return nil
}

// Resume lifts a hold
func (a *Address) Resume() error {
	if a.Status != StatusOnHold {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot resume while %s", a.Status)
	}
	a.Status = StatusActive
	a.VacationFrom = spec.Date{}
	a.VacationTo = spec.Date{}
	return nil
}

// SetVacation books a skip window and credits the skipped days back to
// the plan balance. Requires an activated plan: the credited days have no
// balance to land in before ActivatePlan, and gating here keeps vacation
// dates impossible outside the vacation status
func (a *Address) SetVacation(w billing.VacationWindow, today spec.Date) error {
	if a.Status != StatusActive {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot set vacation while %s", a.Status)
	}
	if !a.PlanActive {
		return extErrors.Wrap(ErrInvalidTransition, "cannot set vacation before activating the plan")
	}
	if err := w.Validate(today); err != nil {
		return extErrors.Wrap(ErrValidation, err.Error())
	}
	a.Status = StatusVacation
	a.VacationFrom = w.From
	a.VacationTo = w.To
	a.PlanDaysLeft += w.Days()
	return nil
}

// CancelVacation undoes a booked window, taking the credited days back
// out of the balance (floored at zero)
func (a *Address) CancelVacation() error {
	if a.Status != StatusVacation {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot cancel vacation while %s", a.Status)
	}
	w := billing.VacationWindow{From: a.VacationFrom, To: a.VacationTo}
	a.PlanDaysLeft = billing.DeductDays(a.PlanDaysLeft, w.Days())
	a.Status = StatusActive
	a.VacationFrom = spec.Date{}
	a.VacationTo = spec.Date{}
	return nil
}

// End terminates the subscription from active, on-hold or vacation state.
// It clears the basket and the plan gate, records the reason, and returns
// the wallet credit owed for the unused plan days. Crediting the wallet
// is the caller's side effect
func (a *Address) End(reason string, tier plan.Tier) (int64, error) {
	if a.Status == StatusEnded {
		return 0, extErrors.Wrap(ErrInvalidTransition, "subscription already ended")
	}
	if len(reason) == 0 {
		reason = DefaultEndReason
	}
	creditOwed := billing.RefundCredit(a.PlanDaysLeft, tier)
	a.Status = StatusEnded
	a.PlanActive = false
	a.PlanDaysLeft = 0
	a.Products = make([]Product, 0)
	a.VacationFrom = spec.Date{}
	a.VacationTo = spec.Date{}
	a.EndReason = reason
	return creditOwed, nil
}

// Reactivate re-enters an ended subscription into the activation flow.
// The plan stays inactive; the caller must follow up with ActivatePlan
func (a *Address) Reactivate() error {
	if a.Status != StatusEnded {
		return extErrors.Wrapf(ErrInvalidTransition, "cannot reactivate while %s", a.Status)
	}
	a.Status = StatusActive
	a.EndReason = ""
	return nil
}
