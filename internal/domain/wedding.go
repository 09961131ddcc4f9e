package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalSent     ProposalStatus = "sent"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalDeclined ProposalStatus = "declined"
	ProposalExpired  ProposalStatus = "expired" // derived: sent and past ValidUntil
)

func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch st := ProposalStatus(s); st {
	case ProposalDraft, ProposalSent, ProposalAccepted, ProposalDeclined, ProposalExpired:
		return st, true
	}
	return "", false
}

type ProposalItem struct {
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
	PerGuest  bool
}

func (i ProposalItem) LineTotal(guests int) decimal.Decimal {
	t := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	if i.PerGuest {
		t = t.Mul(decimal.NewFromInt(int64(guests)))
	}
	return Money(t)
}

type WeddingProposal struct {
	ID             int64
	Token          string
	CoupleNames    string
	Email          string
	EventDate      time.Time
	GuestCount     int
	Items          []ProposalItem
	Total          decimal.Decimal
	DepositPercent decimal.Decimal
	Deposit        decimal.Decimal
	ValidUntil     time.Time
	Status         ProposalStatus
	CoupleComment  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Recalculate refreshes Total and Deposit from the items.
func (p *WeddingProposal) Recalculate() {
	total := decimal.Zero
	for _, it := range p.Items {
		total = total.Add(it.LineTotal(p.GuestCount))
	}
	p.Total = Money(total)
	p.Deposit = Percent(p.Total, p.DepositPercent)
}

// EffectiveStatus reports expired for a sent proposal past its validity day.
func (p WeddingProposal) EffectiveStatus(now time.Time) ProposalStatus {
	if p.Status == ProposalSent && Day(now).After(Day(p.ValidUntil)) {
		return ProposalExpired
	}
	return p.Status
}

func (p WeddingProposal) Validate() error {
	switch {
	case p.CoupleNames == "":
		return Invalid("coupleNames", "is required")
	case p.Email == "":
		return Invalid("email", "is required")
	case p.EventDate.IsZero():
		return Invalid("eventDate", "is required")
	case p.GuestCount < 1:
		return Invalid("guestCount", "must be at least 1")
	case p.DepositPercent.IsNegative() || p.DepositPercent.GreaterThan(hundred):
		return Invalid("depositPercent", "must be between 0 and 100")
	}
	for _, it := range p.Items {
		if it.Name == "" {
			return Invalid("items.name", "is required")
		}
		if it.Quantity < 1 {
			return Invalid("items.quantity", "must be at least 1")
		}
		if it.UnitPrice.IsNegative() {
			return Invalid("items.unitPrice", "must not be negative")
		}
	}
	return nil
}

type ProposalQuery struct {
	Status *ProposalStatus
	Limit  int
}
