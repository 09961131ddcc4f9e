package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

type PaymentService struct {
	bookings domain.BookingRepository
	payments domain.PaymentRepository
	now      func() time.Time
}

func NewPaymentService(b domain.BookingRepository, p domain.PaymentRepository) *PaymentService {
	return &PaymentService{bookings: b, payments: p, now: time.Now}
}

func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

type RecordPaymentInput struct {
	BookingID  int64
	Kind       domain.PaymentKind
	Method     domain.PaymentMethod
	Amount     decimal.Decimal
	Reference  string
	RecordedBy string
	ReceivedAt time.Time
	Failed     bool
}

// Record stores a payment against a booking. A repeated non-empty reference
// returns the stored payment with created=false. The outstanding and net-paid
// caps are enforced by the store under the booking lock.
func (s *PaymentService) Record(ctx context.Context, in RecordPaymentInput) (domain.Payment, bool, error) {
	in.Amount = domain.Money(in.Amount)
	if !in.Amount.IsPositive() {
		return domain.Payment{}, false, domain.Invalid("amount", "must be positive")
	}
	switch in.Kind {
	case domain.PaymentPrepay, domain.PaymentBalance, domain.PaymentRefund:
	default:
		return domain.Payment{}, false, domain.Invalid("kind", "unknown payment kind %q", in.Kind)
	}
	b, err := s.bookings.GetBooking(ctx, in.BookingID)
	if err != nil {
		return domain.Payment{}, false, err
	}

	p := domain.Payment{
		BookingID:  b.ID,
		Kind:       in.Kind,
		Method:     in.Method,
		Amount:     in.Amount,
		Status:     domain.PaymentCaptured,
		RecordedBy: in.RecordedBy,
		ReceivedAt: in.ReceivedAt,
	}
	if in.Failed {
		p.Status = domain.PaymentFailed
	}
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		p.Reference = &ref
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = s.now()
	}
	stored, created, err := s.payments.AddPayment(ctx, p)
	if err != nil {
		return domain.Payment{}, false, err
	}
	if created && stored.Status == domain.PaymentCaptured && stored.Kind != domain.PaymentRefund {
		ps, err := s.payments.ListPayments(ctx, b.ID)
		if err != nil {
			return stored, created, fmt.Errorf("list payments: %w", err)
		}
		if err := s.maybeConfirm(ctx, b, domain.BuildLedger(b, ps).Net); err != nil {
			return stored, created, err
		}
	}
	return stored, created, nil
}

// maybeConfirm confirms a pending booking once the prepayment is covered.
func (s *PaymentService) maybeConfirm(ctx context.Context, b domain.Booking, net decimal.Decimal) error {
	if b.Status != domain.BookingPending || net.LessThan(b.Prepay) {
		return nil
	}
	err := s.bookings.SetBookingStatus(ctx, b.ID, domain.BookingPending, domain.BookingConfirmed)
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	return err
}

func (s *PaymentService) Ledger(ctx context.Context, bookingID int64) (domain.Ledger, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Ledger{}, err
	}
	ps, err := s.payments.ListPayments(ctx, b.ID)
	if err != nil {
		return domain.Ledger{}, err
	}
	return domain.BuildLedger(b, ps), nil
}
