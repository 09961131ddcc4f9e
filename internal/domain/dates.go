package domain

import (
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

const (
	MaxStayNights = 60
	MaxWindowDays = 366
)

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func DayKey(t time.Time) string { return Day(t).Format(DayLayout) }

// DateRange is the half-open interval of days [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours() / 24)
}

func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.From) && d.Before(r.To)
}

func (r DateRange) Overlaps(o DateRange) bool {
	return r.From.Before(o.To) && o.From.Before(r.To)
}

// Each calls fn for every day in the range, in order.
func (r DateRange) Each(fn func(day time.Time)) {
	for d := r.From; d.Before(r.To); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (r DateRange) List() []time.Time {
	out := make([]time.Time, 0, max(r.Days(), 0))
	r.Each(func(d time.Time) { out = append(out, d) })
	return out
}

// Validate checks ordering and length; field names the range in errors.
func (r DateRange) Validate(field string, maxDays int) error {
	if r.From.IsZero() || r.To.IsZero() {
		return Invalid(field, "from and to are required")
	}
	if !r.To.After(r.From) {
		return Invalid(field, "to must be after from")
	}
	if n := r.Days(); n > maxDays {
		return Invalid(field, "range of %d days exceeds the %d day limit", n, maxDays)
	}
	return nil
}

func (r DateRange) String() string {
	return r.From.Format(DayLayout) + ".." + r.To.Format(DayLayout)
}
