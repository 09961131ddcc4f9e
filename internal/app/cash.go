package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

// CashService runs the daily cash reconciliation: open a deposit for a
// business day, submit the counted cash, then approve or reject it.
type CashService struct {
	cash      domain.CashRepository
	payments  domain.PaymentRepository
	tolerance decimal.Decimal
	now       func() time.Time
}

func NewCashService(c domain.CashRepository, p domain.PaymentRepository, tolerance decimal.Decimal) *CashService {
	return &CashService{cash: c, payments: p, tolerance: tolerance.Abs(), now: time.Now}
}

func (s *CashService) WithClock(now func() time.Time) *CashService {
	s.now = now
	return s
}

func (s *CashService) expected(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	ps, err := s.payments.ListPaymentsReceived(ctx, day, domain.MethodCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list cash payments: %w", err)
	}
	return domain.ExpectedCash(ps), nil
}

func (s *CashService) Open(ctx context.Context, day time.Time) (domain.CashDeposit, error) {
	day = domain.Day(day)
	if day.After(domain.Day(s.now())) {
		return domain.CashDeposit{}, domain.Invalid("businessDate", "must not be in the future")
	}
	exp, err := s.expected(ctx, day)
	if err != nil {
		return domain.CashDeposit{}, err
	}
	return s.cash.CreateDeposit(ctx, domain.CashDeposit{BusinessDate: day, Expected: exp, Status: domain.CashOpen})
}

func (s *CashService) Get(ctx context.Context, id int64) (domain.CashDeposit, error) {
	return s.cash.GetDeposit(ctx, id)
}

func (s *CashService) List(ctx context.Context, q domain.CashQuery) ([]domain.CashDeposit, error) {
	if q.Limit <= 0 || q.Limit > 366 {
		q.Limit = 60
	}
	return s.cash.ListDeposits(ctx, q)
}

func (s *CashService) Submit(ctx context.Context, id int64, counted decimal.Decimal, by, note string) (domain.CashDeposit, error) {
	by = strings.TrimSpace(by)
	if by == "" {
		return domain.CashDeposit{}, domain.Invalid("submittedBy", "is required")
	}
	counted = domain.Money(counted)
	if counted.IsNegative() {
		return domain.CashDeposit{}, domain.Invalid("counted", "must not be negative")
	}
	d, err := s.cash.GetDeposit(ctx, id)
	if err != nil {
		return domain.CashDeposit{}, err
	}
	if err := domain.CheckCashTransition(d.Status, domain.CashSubmitted); err != nil {
		return domain.CashDeposit{}, err
	}
	// Late payments for the day may have arrived since the deposit was opened.
	exp, err := s.expected(ctx, d.BusinessDate)
	if err != nil {
		return domain.CashDeposit{}, err
	}
	from := d.Status
	now := s.now()
	disc := counted.Sub(exp)
	d.Expected = exp
	d.Counted = &counted
	d.Discrepancy = &disc
	d.Status = domain.CashSubmitted
	d.SubmittedBy = by
	d.SubmittedAt = &now
	d.Note = strings.TrimSpace(note)
	d.ReviewedBy, d.ReviewedAt, d.RejectReason = "", nil, ""
	if err := s.cash.UpdateDeposit(ctx, d, from); err != nil {
		return domain.CashDeposit{}, err
	}
	return d, nil
}

func (s *CashService) review(ctx context.Context, id int64, reviewer string, to domain.CashStatus, apply func(*domain.CashDeposit) error) (domain.CashDeposit, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return domain.CashDeposit{}, domain.Invalid("reviewedBy", "is required")
	}
	d, err := s.cash.GetDeposit(ctx, id)
	if err != nil {
		return domain.CashDeposit{}, err
	}
	if err := domain.CheckCashTransition(d.Status, to); err != nil {
		return domain.CashDeposit{}, err
	}
	if strings.EqualFold(reviewer, d.SubmittedBy) {
		return domain.CashDeposit{}, domain.Invalid("reviewedBy", "reviewer must differ from submitter")
	}
	if err := apply(&d); err != nil {
		return domain.CashDeposit{}, err
	}
	now := s.now()
	d.Status = to
	d.ReviewedBy = reviewer
	d.ReviewedAt = &now
	if err := s.cash.UpdateDeposit(ctx, d, domain.CashSubmitted); err != nil {
		return domain.CashDeposit{}, err
	}
	return d, nil
}

// Approve closes the day. A discrepancy beyond tolerance needs an explanatory note.
func (s *CashService) Approve(ctx context.Context, id int64, reviewer, note string) (domain.CashDeposit, error) {
	return s.review(ctx, id, reviewer, domain.CashApproved, func(d *domain.CashDeposit) error {
		note = strings.TrimSpace(note)
		if d.Discrepancy != nil && d.Discrepancy.Abs().GreaterThan(s.tolerance) && note == "" && d.Note == "" {
			return domain.Invalid("note", "discrepancy of %s requires a note", d.Discrepancy.StringFixed(2))
		}
		if note != "" {
			d.Note = note
		}
		return nil
	})
}

func (s *CashService) Reject(ctx context.Context, id int64, reviewer, reason string) (domain.CashDeposit, error) {
	return s.review(ctx, id, reviewer, domain.CashRejected, func(d *domain.CashDeposit) error {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return domain.Invalid("reason", "is required")
		}
		d.RejectReason = reason
		return nil
	})
}
