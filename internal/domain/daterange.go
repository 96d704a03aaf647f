package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is a rental period in whole calendar days. Both ends are rented days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both ends to UTC midnight and validates their order.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q", ErrInvalidDateRange, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q", ErrInvalidDateRange, end)
	}
	return NewDateRange(s, e)
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidDateRange)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start date must be before end date", ErrInvalidDateRange)
	}
	return nil
}

// Overlaps uses closed endpoints: ranges sharing a boundary day conflict.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// Days counts billed days, inclusive of both ends.
func (r DateRange) Days() int {
	return int(truncateDay(r.End).Sub(truncateDay(r.Start)).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
