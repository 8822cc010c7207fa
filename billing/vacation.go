package billing

import (
	"github.com/creamline/milkrun/spec"

	extErrors "github.com/pkg/errors"
)

// VacationWindow is an inclusive range of calendar dates during which
// deliveries are skipped and plan days accrue back
type VacationWindow struct {
	From spec.Date
	To   spec.Date
}

// Validate checks the window against the booking rules: both ends set,
// From strictly before To, and From not in the past
func (w VacationWindow) Validate(today spec.Date) error {
	if w.From.IsZero() || w.To.IsZero() {
		return extErrors.New("vacation window requires both dates")
	}
	if !w.From.Before(w.To) {
		return extErrors.New("vacation must start before it ends")
	}
	if w.From.Before(today) {
		return extErrors.New("vacation cannot start in the past")
	}
	return nil
}

// Days returns the inclusive day count of the window
func (w VacationWindow) Days() int {
	return w.From.InclusiveDays(w.To)
}

// DeductDays removes days from a plan-day balance, flooring at zero
func DeductDays(planDaysLeft, days int) int {
	remaining := planDaysLeft - days
	if remaining < 0 {
		return 0
	}
	return remaining
}
