package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money rounds to cents, half away from zero.
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Percent returns amount * pct / 100 rounded to cents.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Money(amount.Mul(pct).Div(hundred))
}

type Room struct {
	ID        int64
	Code      string
	Name      string
	Capacity  int
	Units     int // physical inventory sold under this room type
	BasePrice decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Room) Validate() error {
	switch {
	case r.Code == "":
		return Invalid("code", "is required")
	case r.Name == "":
		return Invalid("name", "is required")
	case r.Capacity < 1:
		return Invalid("capacity", "must be at least 1")
	case r.Units < 1:
		return Invalid("units", "must be at least 1")
	case !r.BasePrice.IsPositive():
		return Invalid("basePrice", "must be positive")
	}
	return nil
}
