package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCancelled  BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn: {BookingCheckedOut},
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled:
		return st, true
	}
	return "", false
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Holds reports whether a booking in this status occupies inventory.
func (s BookingStatus) Holds() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCheckedIn
}

func CheckBookingTransition(from, to BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return transitionError("booking", from, to)
	}
	return nil
}

type BookingSource string

const (
	SourceDirect BookingSource = "direct"
	SourceBeds24 BookingSource = "beds24"
)

type Guest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type Booking struct {
	ID         int64
	Reference  string
	RoomID     int64
	PolicyID   int64
	Guest      Guest
	Adults     int
	Children   int
	CheckIn    time.Time
	CheckOut   time.Time
	Status     BookingStatus
	Source     BookingSource
	ExternalID *string
	Total      decimal.Decimal
	Prepay     decimal.Decimal
	Currency   string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b Booking) Stay() DateRange { return NewDateRange(b.CheckIn, b.CheckOut) }

func (b Booking) Guests() int { return b.Adults + b.Children }

type BookingsQuery struct {
	Status *BookingStatus
	RoomID *int64
	Range  *DateRange // bookings whose stay overlaps Range
	Limit  int
}

// NightlyOccupancy counts bookings holding inventory on each day of r.
func NightlyOccupancy(bookings []Booking, r DateRange) map[string]int {
	out := make(map[string]int, r.Days())
	for _, b := range bookings {
		if !b.Status.Holds() {
			continue
		}
		stay := b.Stay()
		if !stay.Overlaps(r) {
			continue
		}
		stay.Each(func(d time.Time) {
			if r.Contains(d) {
				out[DayKey(d)]++
			}
		})
	}
	return out
}

// CancellationResult reports what a cancellation released.
type CancellationResult struct {
	Booking    Booking
	Refundable decimal.Decimal
	Reason     string
}

// RefundableAmount applies the policy's cancellation rules to the net amount paid.
func RefundableAmount(p RatePolicy, checkIn, today time.Time, netPaid decimal.Decimal) (decimal.Decimal, string) {
	if !netPaid.IsPositive() {
		return decimal.Zero, "nothing paid"
	}
	if !p.Refundable {
		return decimal.Zero, "non-refundable policy"
	}
	if Day(today).After(p.FreeCancellationUntil(checkIn)) {
		return decimal.Zero, "past free cancellation deadline"
	}
	return netPaid, "within free cancellation"
}
