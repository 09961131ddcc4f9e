package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"venue_hotel/internal/domain"
)

// PricingService owns rooms, rate policies, daily overrides, the availability
// calendar and quotes. Calendar reads go through the cache.
type PricingService struct {
	rooms    domain.RoomRepository
	rates    domain.RateRepository
	bookings domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
	currency string
}

func NewPricingService(rooms domain.RoomRepository, rates domain.RateRepository, bookings domain.BookingRepository,
	cache domain.Cache, ttl time.Duration, currency string) *PricingService {
	return &PricingService{rooms: rooms, rates: rates, bookings: bookings, cache: cache, cacheTTL: ttl, currency: currency}
}

func (s *PricingService) Currency() string { return s.currency }

// ---- rooms ----

func (s *PricingService) CreateRoom(ctx context.Context, r domain.Room) (domain.Room, error) {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.BasePrice = domain.Money(r.BasePrice)
	if err := r.Validate(); err != nil {
		return domain.Room{}, err
	}
	r.Active = true
	return s.rooms.CreateRoom(ctx, r)
}

func (s *PricingService) UpdateRoom(ctx context.Context, r domain.Room) (domain.Room, error) {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.BasePrice = domain.Money(r.BasePrice)
	if err := r.Validate(); err != nil {
		return domain.Room{}, err
	}
	if err := s.rooms.UpdateRoom(ctx, r); err != nil {
		return domain.Room{}, err
	}
	s.InvalidateRoom(ctx, r.ID)
	return s.rooms.GetRoom(ctx, r.ID)
}

func (s *PricingService) DeactivateRoom(ctx context.Context, id int64) error {
	r, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if !r.Active {
		return nil
	}
	r.Active = false
	if err := s.rooms.UpdateRoom(ctx, r); err != nil {
		return err
	}
	s.InvalidateRoom(ctx, id)
	return nil
}

func (s *PricingService) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	return s.rooms.GetRoom(ctx, id)
}

func (s *PricingService) ListRooms(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	return s.rooms.ListRooms(ctx, activeOnly)
}

// ---- rate policies ----

func (s *PricingService) CreatePolicy(ctx context.Context, p domain.RatePolicy) (domain.RatePolicy, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := p.Validate(); err != nil {
		return domain.RatePolicy{}, err
	}
	p.Active = true
	return s.rates.CreatePolicy(ctx, p)
}

func (s *PricingService) UpdatePolicy(ctx context.Context, p domain.RatePolicy) (domain.RatePolicy, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := p.Validate(); err != nil {
		return domain.RatePolicy{}, err
	}
	if err := s.rates.UpdatePolicy(ctx, p); err != nil {
		return domain.RatePolicy{}, err
	}
	return s.rates.GetPolicy(ctx, p.ID)
}

func (s *PricingService) GetPolicy(ctx context.Context, id int64) (domain.RatePolicy, error) {
	return s.rates.GetPolicy(ctx, id)
}

func (s *PricingService) ListPolicies(ctx context.Context) ([]domain.RatePolicy, error) {
	return s.rates.ListPolicies(ctx)
}

func (s *PricingService) AttachPolicy(ctx context.Context, a domain.PolicyAssignment) (domain.PolicyAssignment, error) {
	r := domain.NewDateRange(a.From, a.To)
	if err := r.Validate("range", 10*domain.MaxWindowDays); err != nil {
		return domain.PolicyAssignment{}, err
	}
	a.From, a.To = r.From, r.To
	if _, err := s.rooms.GetRoom(ctx, a.RoomID); err != nil {
		return domain.PolicyAssignment{}, err
	}
	if _, err := s.rates.GetPolicy(ctx, a.PolicyID); err != nil {
		return domain.PolicyAssignment{}, err
	}
	return s.rates.AttachPolicy(ctx, a)
}

func (s *PricingService) ListAssignments(ctx context.Context, roomID int64) ([]domain.PolicyAssignment, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.rates.ListAssignments(ctx, roomID)
}

// ---- daily prices ----

// SetPrices upserts one override per day of the change's range. Replaying the
// same change leaves the stored rows unchanged.
func (s *PricingService) SetPrices(ctx context.Context, c domain.PriceChange) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	room, err := s.rooms.GetRoom(ctx, c.RoomID)
	if err != nil {
		return 0, err
	}
	cur, err := s.rates.ListPriceOverrides(ctx, room.ID, c.Range)
	if err != nil {
		return 0, fmt.Errorf("list overrides: %w", err)
	}
	byDay := make(map[string]domain.PriceOverride, len(cur))
	for _, o := range cur {
		byDay[domain.DayKey(o.Day)] = o
	}
	rows := make([]domain.PriceOverride, 0, c.Range.Days())
	c.Range.Each(func(d time.Time) {
		var prev *domain.PriceOverride
		if o, ok := byDay[domain.DayKey(d)]; ok {
			prev = &o
		}
		rows = append(rows, c.Apply(room, d, prev))
	})
	if err := s.rates.UpsertPriceOverrides(ctx, rows); err != nil {
		return 0, fmt.Errorf("upsert overrides: %w", err)
	}
	s.InvalidateRoom(ctx, room.ID)
	return len(rows), nil
}

// ---- calendar & quotes ----

func calendarKey(roomID int64, r domain.DateRange) string {
	return fmt.Sprintf("%s%s:%s", calendarPrefix(roomID), domain.DayKey(r.From), domain.DayKey(r.To))
}

func calendarPrefix(roomID int64) string { return fmt.Sprintf("calendar:%d:", roomID) }

// InvalidateRoom drops every cached calendar window for the room.
func (s *PricingService) InvalidateRoom(ctx context.Context, roomID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.DelPrefix(ctx, calendarPrefix(roomID))
}

// Calendar returns the cached per-day availability for the room over r.
func (s *PricingService) Calendar(ctx context.Context, roomID int64, r domain.DateRange) ([]domain.CalendarDay, error) {
	if err := r.Validate("range", domain.MaxWindowDays); err != nil {
		return nil, err
	}
	key := calendarKey(roomID, r)
	var out []domain.CalendarDay
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, key, &out)
		switch {
		case err != nil:
			// unreadable entry: drop it and rebuild from the store
			log.Warn().Err(err).Str("key", key).Msg("calendar cache entry undecodable")
			_ = s.cache.Del(ctx, key)
			out = nil
		case ok:
			return out, nil
		}
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out, err = s.calendar(ctx, room, r)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// calendar reads straight from the store.
func (s *PricingService) calendar(ctx context.Context, room domain.Room, r domain.DateRange) ([]domain.CalendarDay, error) {
	overrides, err := s.rates.ListPriceOverrides(ctx, room.ID, r)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	roomID := room.ID
	bs, err := s.bookings.ListBookings(ctx, domain.BookingsQuery{RoomID: &roomID, Range: &r})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return domain.BuildCalendar(room, r, overrides, domain.NightlyOccupancy(bs, r)), nil
}

func validateStay(stay domain.DateRange, adults, children int) error {
	if err := stay.Validate("stay", domain.MaxStayNights); err != nil {
		return err
	}
	if adults < 1 {
		return domain.Invalid("adults", "must be at least 1")
	}
	if children < 0 {
		return domain.Invalid("children", "must not be negative")
	}
	return nil
}

// Quote prices a stay under a policy against live (uncached) availability.
func (s *PricingService) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	if err := validateStay(req.Stay, req.Adults, req.Children); err != nil {
		return domain.Quote{}, err
	}
	room, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return domain.Quote{}, err
	}
	policy, err := s.rates.GetPolicy(ctx, req.PolicyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, domain.Invalid("policyId", "unknown rate policy %d", req.PolicyID)
		}
		return domain.Quote{}, err
	}
	as, err := s.rates.ListAssignments(ctx, room.ID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("list assignments: %w", err)
	}
	cal, err := s.calendar(ctx, room, req.Stay)
	if err != nil {
		return domain.Quote{}, err
	}
	q, err := domain.PriceStay(room, policy, as, cal, req)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Currency = s.currency
	return q, nil
}
