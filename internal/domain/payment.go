package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentKind string

const (
	PaymentPrepay  PaymentKind = "prepay"
	PaymentBalance PaymentKind = "balance"
	PaymentRefund  PaymentKind = "refund"
)

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodChannel      PaymentMethod = "channel"
)

type PaymentStatus string

const (
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
)

type Payment struct {
	ID         int64
	BookingID  int64
	Kind       PaymentKind
	Method     PaymentMethod
	Amount     decimal.Decimal // always positive; Kind carries the sign
	Status     PaymentStatus
	Reference  *string
	RecordedBy string
	ReceivedAt time.Time
	CreatedAt  time.Time
}

// Signed is the amount's effect on the booking balance.
func (p Payment) Signed() decimal.Decimal {
	if p.Status != PaymentCaptured {
		return decimal.Zero
	}
	if p.Kind == PaymentRefund {
		return p.Amount.Neg()
	}
	return p.Amount
}

type Ledger struct {
	BookingID   int64
	Payments    []Payment
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Refunded    decimal.Decimal
	Net         decimal.Decimal
	Outstanding decimal.Decimal
}

func BuildLedger(b Booking, ps []Payment) Ledger {
	l := Ledger{BookingID: b.ID, Payments: ps, Total: b.Total, Paid: decimal.Zero, Refunded: decimal.Zero}
	for _, p := range ps {
		if p.Status != PaymentCaptured {
			continue
		}
		if p.Kind == PaymentRefund {
			l.Refunded = l.Refunded.Add(p.Amount)
		} else {
			l.Paid = l.Paid.Add(p.Amount)
		}
	}
	l.Net = l.Paid.Sub(l.Refunded)
	l.Outstanding = b.Total.Sub(l.Net)
	if l.Outstanding.IsNegative() {
		l.Outstanding = decimal.Zero
	}
	return l
}

// PaymentByReference finds the payment already stored under ref.
func PaymentByReference(ps []Payment, ref string) (Payment, bool) {
	if ref == "" {
		return Payment{}, false
	}
	for _, p := range ps {
		if p.Reference != nil && *p.Reference == ref {
			return p, true
		}
	}
	return Payment{}, false
}

// CheckPayment applies the ledger caps to p: a refund cannot exceed the net
// paid and a payment cannot exceed what is outstanding. Stores call it while
// holding the booking lock.
func CheckPayment(b Booking, l Ledger, p Payment) error {
	switch p.Kind {
	case PaymentRefund:
		if p.Amount.GreaterThan(l.Net) {
			return Invalid("amount", "refund %s exceeds net paid %s", p.Amount, l.Net)
		}
	case PaymentPrepay, PaymentBalance:
		if b.Status == BookingCancelled {
			return fmt.Errorf("%w: booking %s is cancelled", ErrConflict, b.Reference)
		}
		if p.Amount.GreaterThan(l.Outstanding) {
			return Invalid("amount", "payment %s exceeds outstanding %s", p.Amount, l.Outstanding)
		}
	default:
		return Invalid("kind", "unknown payment kind %q", p.Kind)
	}
	return nil
}
