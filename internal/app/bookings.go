package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venue_hotel/internal/adapters/observability"
	"venue_hotel/internal/domain"
)

type BookingService struct {
	pricing  *PricingService
	bookings domain.BookingRepository
	rates    domain.RateRepository
	payments domain.PaymentRepository
	now      func() time.Time
}

func NewBookingService(p *PricingService, b domain.BookingRepository, r domain.RateRepository, pay domain.PaymentRepository) *BookingService {
	return &BookingService{pricing: p, bookings: b, rates: r, payments: pay, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

type CreateBookingInput struct {
	RoomID   int64
	PolicyID int64
	CheckIn  time.Time
	CheckOut time.Time
	Guest    domain.Guest
	Adults   int
	Children int
	Notes    string
}

func newReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	in.Guest.FirstName = strings.TrimSpace(in.Guest.FirstName)
	in.Guest.LastName = strings.TrimSpace(in.Guest.LastName)
	if in.Guest.FirstName == "" || in.Guest.LastName == "" {
		return domain.Booking{}, domain.Invalid("guest", "first and last name are required")
	}
	stay := domain.NewDateRange(in.CheckIn, in.CheckOut)
	if stay.From.Before(domain.Day(s.now())) {
		return domain.Booking{}, domain.Invalid("checkIn", "must not be in the past")
	}
	q, err := s.pricing.Quote(ctx, domain.QuoteRequest{
		RoomID: in.RoomID, PolicyID: in.PolicyID, Stay: stay, Adults: in.Adults, Children: in.Children,
	})
	if err != nil {
		return domain.Booking{}, err
	}
	room, err := s.pricing.GetRoom(ctx, in.RoomID)
	if err != nil {
		return domain.Booking{}, err
	}
	b := domain.Booking{
		Reference: newReference(),
		RoomID:    in.RoomID,
		PolicyID:  in.PolicyID,
		Guest:     in.Guest,
		Adults:    in.Adults,
		Children:  in.Children,
		CheckIn:   stay.From,
		CheckOut:  stay.To,
		Status:    domain.BookingPending,
		Source:    domain.SourceDirect,
		Total:     q.Total,
		Prepay:    q.Prepay,
		Currency:  q.Currency,
		Notes:     strings.TrimSpace(in.Notes),
	}
	// A zero prepay policy collects nothing upfront, so nothing gates confirmation.
	if !q.Prepay.IsPositive() {
		b.Status = domain.BookingConfirmed
	}
	created, err := s.bookings.CreateBooking(ctx, b, room.Units)
	if err != nil {
		return domain.Booking{}, err
	}
	s.pricing.InvalidateRoom(ctx, created.RoomID)
	observability.ObserveBooking(string(created.Source), string(created.Status))
	return created, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

func (s *BookingService) GetByReference(ctx context.Context, ref string) (domain.Booking, error) {
	return s.bookings.GetBookingByReference(ctx, strings.ToUpper(strings.TrimSpace(ref)))
}

func (s *BookingService) List(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Range != nil {
		if err := q.Range.Validate("range", domain.MaxWindowDays); err != nil {
			return nil, err
		}
	}
	return s.bookings.ListBookings(ctx, q)
}

// ChangeStatus applies a lifecycle transition. Cancellation goes through Cancel.
func (s *BookingService) ChangeStatus(ctx context.Context, id int64, to domain.BookingStatus) (domain.Booking, error) {
	if to == domain.BookingCancelled {
		res, err := s.Cancel(ctx, id)
		return res.Booking, err
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := domain.CheckBookingTransition(b.Status, to); err != nil {
		return domain.Booking{}, err
	}
	if to == domain.BookingCheckedIn && domain.Day(s.now()).Before(b.Stay().From) {
		return domain.Booking{}, domain.Invalid("status", "cannot check in before %s", domain.DayKey(b.CheckIn))
	}
	if err := s.setStatus(ctx, b, to); err != nil {
		return domain.Booking{}, err
	}
	return s.bookings.GetBooking(ctx, id)
}

func (s *BookingService) setStatus(ctx context.Context, b domain.Booking, to domain.BookingStatus) error {
	if err := s.bookings.SetBookingStatus(ctx, b.ID, b.Status, to); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w: booking %s changed concurrently", domain.ErrConflict, b.Reference)
		}
		return err
	}
	if b.Status.Holds() != to.Holds() {
		s.pricing.InvalidateRoom(ctx, b.RoomID)
	}
	return nil
}

// Cancel releases the inventory and reports how much of the net paid amount
// the policy allows to refund. The refund itself is recorded as a payment.
func (s *BookingService) Cancel(ctx context.Context, id int64) (domain.CancellationResult, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.CancellationResult{}, err
	}
	if err := domain.CheckBookingTransition(b.Status, domain.BookingCancelled); err != nil {
		return domain.CancellationResult{}, err
	}
	ps, err := s.payments.ListPayments(ctx, b.ID)
	if err != nil {
		return domain.CancellationResult{}, fmt.Errorf("list payments: %w", err)
	}
	net := domain.BuildLedger(b, ps).Net

	refundable, reason := decimal.Zero, "managed by channel"
	if b.PolicyID != 0 {
		p, err := s.rates.GetPolicy(ctx, b.PolicyID)
		if err != nil {
			return domain.CancellationResult{}, fmt.Errorf("load policy: %w", err)
		}
		refundable, reason = domain.RefundableAmount(p, b.CheckIn, s.now(), net)
	}
	if err := s.setStatus(ctx, b, domain.BookingCancelled); err != nil {
		return domain.CancellationResult{}, err
	}
	b.Status = domain.BookingCancelled
	return domain.CancellationResult{Booking: b, Refundable: refundable, Reason: reason}, nil
}
