package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"venue_hotel/internal/domain"
)

// formValidator checks single fields of the check-in form.
var formValidator = validator.New()

const adultAge = 18

type CheckinService struct {
	bookings   domain.BookingRepository
	rooms      domain.RoomRepository
	checkins   domain.CheckinRepository
	windowDays int
	now        func() time.Time
}

func NewCheckinService(b domain.BookingRepository, r domain.RoomRepository, c domain.CheckinRepository, windowDays int) *CheckinService {
	if windowDays < 0 {
		windowDays = 0
	}
	return &CheckinService{bookings: b, rooms: r, checkins: c, windowDays: windowDays, now: time.Now}
}

func (s *CheckinService) WithClock(now func() time.Time) *CheckinService {
	s.now = now
	return s
}

// find resolves a booking from what the guest knows. A wrong last name is
// reported exactly like an unknown reference.
func (s *CheckinService) find(ctx context.Context, reference, lastName string) (domain.Booking, error) {
	b, err := s.bookings.GetBookingByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	if err != nil {
		return domain.Booking{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(b.Guest.LastName), strings.TrimSpace(lastName)) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *CheckinService) Lookup(ctx context.Context, reference, lastName string) (domain.CheckinView, error) {
	b, err := s.find(ctx, reference, lastName)
	if err != nil {
		return domain.CheckinView{}, err
	}
	room, err := s.rooms.GetRoom(ctx, b.RoomID)
	if err != nil {
		return domain.CheckinView{}, err
	}
	w := domain.CheckinWindow(b.CheckIn, s.windowDays)
	v := domain.CheckinView{
		Booking:    b,
		Room:       room,
		Window:     w,
		WindowOpen: b.Status == domain.BookingConfirmed && w.Contains(s.now()),
	}
	c, err := s.checkins.GetCheckin(ctx, b.ID)
	switch {
	case err == nil:
		v.Existing = &c
	case !errors.Is(err, domain.ErrNotFound):
		return domain.CheckinView{}, err
	}
	return v, nil
}

type CheckinForm struct {
	DocumentType     domain.DocumentType
	DocumentNumber   string
	Nationality      string
	DateOfBirth      time.Time
	Address          string
	ArrivalTime      string
	AdditionalGuests []domain.CompanionGuest
	TermsAccepted    bool
}

func (f CheckinForm) validate(b domain.Booking, today time.Time) error {
	switch f.DocumentType {
	case domain.DocPassport, domain.DocIDCard, domain.DocDrivingLicence:
	default:
		return domain.Invalid("documentType", "unsupported document type %q", f.DocumentType)
	}
	if strings.TrimSpace(f.DocumentNumber) == "" {
		return domain.Invalid("documentNumber", "is required")
	}
	if formValidator.Var(f.Nationality, "required,iso3166_1_alpha2") != nil {
		return domain.Invalid("nationality", "must be an ISO 3166 alpha-2 code")
	}
	if f.DateOfBirth.IsZero() || !f.DateOfBirth.Before(today) {
		return domain.Invalid("dateOfBirth", "must be in the past")
	}
	if domain.AgeOn(f.DateOfBirth, today) < adultAge {
		return domain.Invalid("dateOfBirth", "lead guest must be at least %d", adultAge)
	}
	if formValidator.Var(f.ArrivalTime, "omitempty,datetime=15:04") != nil {
		return domain.Invalid("arrivalTime", "must be HH:MM")
	}
	if len(f.AdditionalGuests) > b.Guests()-1 {
		return domain.Invalid("additionalGuests", "booking is for %d guests", b.Guests())
	}
	for _, g := range f.AdditionalGuests {
		if strings.TrimSpace(g.FirstName) == "" || strings.TrimSpace(g.LastName) == "" {
			return domain.Invalid("additionalGuests", "first and last name are required")
		}
	}
	if !f.TermsAccepted {
		return domain.Invalid("termsAccepted", "house rules must be accepted")
	}
	return nil
}

// Submit stores the guest's pre-arrival details. Submitting again replaces them.
func (s *CheckinService) Submit(ctx context.Context, reference, lastName string, f CheckinForm) (domain.OnlineCheckin, error) {
	b, err := s.find(ctx, reference, lastName)
	if err != nil {
		return domain.OnlineCheckin{}, err
	}
	if b.Status != domain.BookingConfirmed {
		return domain.OnlineCheckin{}, domain.Unavailable("online check-in needs a confirmed booking, booking is %s", b.Status)
	}
	now := s.now()
	w := domain.CheckinWindow(b.CheckIn, s.windowDays)
	if !w.Contains(now) {
		return domain.OnlineCheckin{}, domain.Unavailable("online check-in is open %s", w)
	}
	f.Nationality = strings.ToUpper(strings.TrimSpace(f.Nationality))
	if err := f.validate(b, domain.Day(now)); err != nil {
		return domain.OnlineCheckin{}, err
	}
	c := domain.OnlineCheckin{
		BookingID:        b.ID,
		Status:           domain.CheckinSubmitted,
		DocumentType:     f.DocumentType,
		DocumentNumber:   strings.TrimSpace(f.DocumentNumber),
		Nationality:      f.Nationality,
		DateOfBirth:      domain.Day(f.DateOfBirth),
		Address:          strings.TrimSpace(f.Address),
		ArrivalTime:      f.ArrivalTime,
		AdditionalGuests: f.AdditionalGuests,
		TermsAccepted:    true,
		SubmittedAt:      now,
	}
	if err := s.checkins.UpsertCheckin(ctx, c); err != nil {
		return domain.OnlineCheckin{}, err
	}
	return c, nil
}

func (s *CheckinService) Get(ctx context.Context, bookingID int64) (domain.OnlineCheckin, error) {
	return s.checkins.GetCheckin(ctx, bookingID)
}
