package spec

import (
	"fmt"
	"time"

	extErrors "github.com/pkg/errors"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is a timezone-naive calendar date (a local-date stamp, not an instant).
// The zero value means "no date set"
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string into a Date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, extErrors.Wrap(err, "Cannot parse calendar date")
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Today returns the current date in local time
func Today() Date {
	now := time.Now()
	return Date{Year: now.Year(), Month: now.Month(), Day: now.Day()}
}

// IsZero returns true if no date is set
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.toTime().Format(DateLayout)
}

func (d Date) toTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.toTime().Before(other.toTime())
}

// InclusiveDays counts the days between d and to, counting both endpoints.
// Same day yields 1
func (d Date) InclusiveDays(to Date) int {
	return int(to.toTime().Sub(d.toTime())/(24*time.Hour)) + 1
}

// MarshalJSON encodes the date as a YYYY-MM-DD string, or null when unset
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.String())), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string or null
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("Invalid calendar date: %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
