package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashStatus string

const (
	CashOpen      CashStatus = "open"
	CashSubmitted CashStatus = "submitted"
	CashApproved  CashStatus = "approved"
	CashRejected  CashStatus = "rejected"
)

var cashTransitions = map[CashStatus][]CashStatus{
	CashOpen:      {CashSubmitted},
	CashSubmitted: {CashApproved, CashRejected},
	CashRejected:  {CashSubmitted},
}

func ParseCashStatus(s string) (CashStatus, bool) {
	switch st := CashStatus(s); st {
	case CashOpen, CashSubmitted, CashApproved, CashRejected:
		return st, true
	}
	return "", false
}

func CheckCashTransition(from, to CashStatus) error {
	for _, t := range cashTransitions[from] {
		if t == to {
			return nil
		}
	}
	return transitionError("cash deposit", from, to)
}

// CashDeposit is the daily count of cash taken at the desk against what payments say.
type CashDeposit struct {
	ID           int64
	BusinessDate time.Time
	Expected     decimal.Decimal
	Counted      *decimal.Decimal
	Discrepancy  *decimal.Decimal
	Status       CashStatus
	SubmittedBy  string
	ReviewedBy   string
	Note         string
	RejectReason string
	SubmittedAt  *time.Time
	ReviewedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CashQuery struct {
	Status *CashStatus
	Range  *DateRange
	Limit  int
}

// ExpectedCash sums captured cash takings net of cash refunds.
func ExpectedCash(ps []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		if p.Method != MethodCash {
			continue
		}
		sum = sum.Add(p.Signed())
	}
	return Money(sum)
}
