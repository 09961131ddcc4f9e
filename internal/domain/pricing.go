package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RatePolicy struct {
	ID               int64
	Code             string
	Name             string
	Refundable       bool
	CancellationDays int
	PrepayPercent    decimal.Decimal
	MarkupPercent    decimal.Decimal
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p RatePolicy) Validate() error {
	switch {
	case p.Code == "":
		return Invalid("code", "is required")
	case p.Name == "":
		return Invalid("name", "is required")
	case p.CancellationDays < 0:
		return Invalid("cancellationDays", "must not be negative")
	case p.PrepayPercent.IsNegative() || p.PrepayPercent.GreaterThan(hundred):
		return Invalid("prepayPercent", "must be between 0 and 100")
	case p.MarkupPercent.LessThanOrEqual(hundred.Neg()):
		return Invalid("markupPercent", "must be greater than -100")
	}
	return nil
}

// SellPrice applies the policy markup to a nightly base price.
func (p RatePolicy) SellPrice(base decimal.Decimal) decimal.Decimal {
	return Money(base.Mul(hundred.Add(p.MarkupPercent)).Div(hundred))
}

// FreeCancellationUntil is the last day a refundable booking can be cancelled with a refund.
func (p RatePolicy) FreeCancellationUntil(checkIn time.Time) time.Time {
	return Day(checkIn).AddDate(0, 0, -p.CancellationDays)
}

// PolicyAssignment makes a policy sellable for a room on nights in [From, To).
type PolicyAssignment struct {
	ID       int64
	RoomID   int64
	PolicyID int64
	From     time.Time
	To       time.Time
}

func (a PolicyAssignment) Range() DateRange { return NewDateRange(a.From, a.To) }

// PriceOverride replaces the room base price for a single day. One per (room, day).
type PriceOverride struct {
	RoomID  int64
	Day     time.Time
	Price   decimal.Decimal
	MinStay int
	Closed  bool
}

// PriceChange is a bulk edit applied to every day of Range. Nil fields keep current values.
type PriceChange struct {
	RoomID  int64
	Range   DateRange
	Price   *decimal.Decimal
	MinStay *int
	Closed  *bool
}

func (c PriceChange) Validate() error {
	if err := c.Range.Validate("range", MaxWindowDays); err != nil {
		return err
	}
	if c.Price == nil && c.MinStay == nil && c.Closed == nil {
		return Invalid("price", "at least one of price, minStay or closed is required")
	}
	if c.Price != nil && !c.Price.IsPositive() {
		return Invalid("price", "must be positive")
	}
	if c.MinStay != nil && *c.MinStay < 1 {
		return Invalid("minStay", "must be at least 1")
	}
	return nil
}

// Apply merges the change into the current override (or room defaults) for day.
func (c PriceChange) Apply(room Room, day time.Time, cur *PriceOverride) PriceOverride {
	o := PriceOverride{RoomID: room.ID, Day: Day(day), Price: room.BasePrice, MinStay: 1}
	if cur != nil {
		o = *cur
	}
	if c.Price != nil {
		o.Price = Money(*c.Price)
	}
	if c.MinStay != nil {
		o.MinStay = *c.MinStay
	}
	if c.Closed != nil {
		o.Closed = *c.Closed
	}
	return o
}

type CalendarDay struct {
	Day       time.Time
	BasePrice decimal.Decimal
	MinStay   int
	Closed    bool
	Units     int
	Booked    int
	Available int
}

// BuildCalendar merges room defaults, overrides and occupancy for each day of r.
func BuildCalendar(room Room, r DateRange, overrides []PriceOverride, booked map[string]int) []CalendarDay {
	byDay := make(map[string]PriceOverride, len(overrides))
	for _, o := range overrides {
		byDay[DayKey(o.Day)] = o
	}
	out := make([]CalendarDay, 0, r.Days())
	r.Each(func(d time.Time) {
		k := DayKey(d)
		cd := CalendarDay{Day: d, BasePrice: room.BasePrice, MinStay: 1, Units: room.Units, Booked: booked[k]}
		if o, ok := byDay[k]; ok {
			cd.BasePrice = o.Price
			cd.MinStay = o.MinStay
			cd.Closed = o.Closed
		}
		if !cd.Closed && cd.Units > cd.Booked {
			cd.Available = cd.Units - cd.Booked
		}
		out = append(out, cd)
	})
	return out
}

type QuoteRequest struct {
	RoomID   int64
	PolicyID int64
	Stay     DateRange
	Adults   int
	Children int
}

type NightPrice struct {
	Day       time.Time
	BasePrice decimal.Decimal
	Price     decimal.Decimal
}

type Quote struct {
	RoomID       int64
	PolicyID     int64
	Stay         DateRange
	Nights       []NightPrice
	Total        decimal.Decimal
	Prepay       decimal.Decimal
	Balance      decimal.Decimal
	Currency     string
	Refundable   bool
	FreeCancelTo *time.Time
}

// PriceStay checks sellability of every night and prices the stay under policy.
func PriceStay(room Room, policy RatePolicy, assignments []PolicyAssignment, cal []CalendarDay, req QuoteRequest) (Quote, error) {
	if !room.Active {
		return Quote{}, Unavailable("room %d is inactive", room.ID)
	}
	if !policy.Active {
		return Quote{}, Unavailable("policy %s is inactive", policy.Code)
	}
	if req.Adults+req.Children > room.Capacity {
		return Quote{}, Unavailable("room %s sleeps at most %d guests", room.Code, room.Capacity)
	}
	nights := req.Stay.Days()
	if len(cal) != nights {
		return Quote{}, Unavailable("calendar does not cover the stay")
	}
	q := Quote{RoomID: room.ID, PolicyID: policy.ID, Stay: req.Stay, Refundable: policy.Refundable}
	minStay := 1
	total := decimal.Zero
	for _, cd := range cal {
		if cd.Closed {
			return Quote{}, Unavailable("closed on %s", DayKey(cd.Day))
		}
		if cd.Available < 1 {
			return Quote{}, Unavailable("sold out on %s", DayKey(cd.Day))
		}
		if !policyCovers(assignments, policy.ID, cd.Day) {
			return Quote{}, Unavailable("policy %s not offered on %s", policy.Code, DayKey(cd.Day))
		}
		minStay = max(minStay, cd.MinStay)
		price := policy.SellPrice(cd.BasePrice)
		q.Nights = append(q.Nights, NightPrice{Day: cd.Day, BasePrice: cd.BasePrice, Price: price})
		total = total.Add(price)
	}
	if nights < minStay {
		return Quote{}, Unavailable("minimum stay is %d nights", minStay)
	}
	q.Total = Money(total)
	q.Prepay = Percent(q.Total, policy.PrepayPercent)
	q.Balance = q.Total.Sub(q.Prepay)
	if policy.Refundable {
		t := policy.FreeCancellationUntil(req.Stay.From)
		q.FreeCancelTo = &t
	}
	return q, nil
}

func policyCovers(as []PolicyAssignment, policyID int64, day time.Time) bool {
	for _, a := range as {
		if a.PolicyID == policyID && a.Range().Contains(day) {
			return true
		}
	}
	return false
}
