package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"venue_hotel/internal/adapters/observability"
	"venue_hotel/internal/domain"
)

const pullCursor = "beds24:bookings"

// ChannelSyncService pushes rates/availability to Beds24 and pulls channel
// bookings back.
type ChannelSyncService struct {
	client   domain.ChannelClient
	channel  domain.ChannelRepository
	rooms    domain.RoomRepository
	bookings domain.BookingRepository
	pricing  *PricingService
	workers  int
	now      func() time.Time
}

func NewChannelSyncService(c domain.ChannelClient, ch domain.ChannelRepository, rooms domain.RoomRepository,
	b domain.BookingRepository, p *PricingService, workers int) *ChannelSyncService {
	if workers <= 0 {
		workers = 4
	}
	return &ChannelSyncService{client: c, channel: ch, rooms: rooms, bookings: b, pricing: p, workers: workers, now: time.Now}
}

func (s *ChannelSyncService) WithClock(now func() time.Time) *ChannelSyncService {
	s.now = now
	return s
}

// ---- mappings ----

func (s *ChannelSyncService) CreateMapping(ctx context.Context, m domain.RoomMapping) (domain.RoomMapping, error) {
	if m.Beds24RoomID <= 0 {
		return domain.RoomMapping{}, domain.Invalid("beds24RoomId", "must be positive")
	}
	if m.Beds24PropertyID < 0 {
		return domain.RoomMapping{}, domain.Invalid("beds24PropertyId", "must not be negative")
	}
	if _, err := s.rooms.GetRoom(ctx, m.RoomID); err != nil {
		return domain.RoomMapping{}, err
	}
	m.Active = true
	return s.channel.CreateMapping(ctx, m)
}

func (s *ChannelSyncService) ListMappings(ctx context.Context) ([]domain.RoomMapping, error) {
	return s.channel.ListMappings(ctx, false)
}

func (s *ChannelSyncService) DeleteMapping(ctx context.Context, id int64) error {
	return s.channel.DeleteMapping(ctx, id)
}

func (s *ChannelSyncService) ListSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.channel.ListSyncLogs(ctx, limit)
}

// ---- push ----

// ValidateWindow checks a push window: starts today or later, 1..366 days.
func (s *ChannelSyncService) ValidateWindow(w domain.DateRange) error {
	if err := w.Validate("window", domain.MaxWindowDays); err != nil {
		return err
	}
	if w.From.Before(domain.Day(s.now())) {
		return domain.Invalid("window", "must not start in the past")
	}
	return nil
}

// DefaultWindow is [today, today+days).
func (s *ChannelSyncService) DefaultWindow(days int) domain.DateRange {
	today := domain.Day(s.now())
	return domain.DateRange{From: today, To: today.AddDate(0, 0, days)}
}

// Push sends one room's calendar for the window to Beds24.
func (s *ChannelSyncService) Push(ctx context.Context, roomID int64, w domain.DateRange) (domain.PushResult, error) {
	if err := s.ValidateWindow(w); err != nil {
		return domain.PushResult{}, err
	}
	m, err := s.channel.GetMappingByRoom(ctx, roomID)
	if err != nil {
		return domain.PushResult{}, err
	}
	res := s.push(ctx, m, w)
	return res, res.Err
}

func (s *ChannelSyncService) push(ctx context.Context, m domain.RoomMapping, w domain.DateRange) domain.PushResult {
	res := domain.PushResult{RoomID: m.RoomID, Beds24RoomID: m.Beds24RoomID, Window: w, Days: w.Days()}
	start := time.Now()
	res.Err = func() error {
		if !m.Active {
			return fmt.Errorf("%w: mapping for room %d is inactive", domain.ErrNotFound, m.RoomID)
		}
		room, err := s.rooms.GetRoom(ctx, m.RoomID)
		if err != nil {
			return err
		}
		if !room.Active {
			return fmt.Errorf("%w: room %d is inactive", domain.ErrNotFound, room.ID)
		}
		cal, err := s.pricing.calendar(ctx, room, w)
		if err != nil {
			return err
		}
		res.Spans = domain.CollapseCalendar(cal)
		return s.client.PushCalendar(ctx, m.Beds24RoomID, res.Spans)
	}()

	s.record(ctx, domain.SyncPush, &m.RoomID, &w, res.Err, fmt.Sprintf("%d days in %d ranges", res.Days, len(res.Spans)))
	observability.ObserveSync(string(domain.SyncPush), outcome(res.Err), time.Since(start))
	return res
}

// PushAll pushes every active mapping with bounded concurrency. A failing
// room does not stop the others; its error is carried in its result.
func (s *ChannelSyncService) PushAll(ctx context.Context, w domain.DateRange) ([]domain.PushResult, error) {
	if err := s.ValidateWindow(w); err != nil {
		return nil, err
	}
	ms, err := s.channel.ListMappings(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	sem := semaphore.NewWeighted(int64(s.workers))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make([]domain.PushResult, 0, len(ms))

	for _, m := range ms {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			res := s.push(gctx, m, w)
			if res.Err != nil {
				log.Warn().Int64("room", m.RoomID).Int64("beds24_room", m.Beds24RoomID).Err(res.Err).Msg("calendar push failed")
			} else {
				log.Info().Int64("room", m.RoomID).Int("ranges", len(res.Spans)).Msg("calendar push ok")
			}
			mu.Lock()
			out = append(out, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// ---- pull ----

// Pull imports bookings modified on Beds24 since the stored cursor.
func (s *ChannelSyncService) Pull(ctx context.Context) (domain.PullResult, error) {
	startedAt := s.now()
	start := time.Now()
	since, ok, err := s.channel.GetSyncCursor(ctx, pullCursor)
	if err != nil {
		return domain.PullResult{}, fmt.Errorf("load cursor: %w", err)
	}
	if !ok {
		since = startedAt.AddDate(0, 0, -30)
	}
	res := domain.PullResult{Since: since, Upstream: startedAt}

	err = func() error {
		items, err := s.client.FetchBookings(ctx, since)
		if err != nil {
			return err
		}
		res.Fetched = len(items)
		for _, it := range items {
			cb, err := mapChannelBooking(it)
			if err != nil {
				log.Warn().Err(err).Msg("skipping unreadable channel booking")
				res.Skipped++
				continue
			}
			created, err := s.importBooking(ctx, cb)
			switch {
			case errors.Is(err, errUnmappedRoom):
				log.Warn().Int64("beds24_room", cb.Beds24RoomID).Str("booking", cb.ExternalID).Msg("channel booking for unmapped room")
				res.Skipped++
			case err != nil:
				return fmt.Errorf("import booking %s: %w", cb.ExternalID, err)
			case created:
				res.Created++
			default:
				res.Updated++
			}
		}
		return s.channel.SetSyncCursor(ctx, pullCursor, startedAt)
	}()

	s.record(ctx, domain.SyncPull, nil, nil, err,
		fmt.Sprintf("fetched=%d created=%d updated=%d skipped=%d", res.Fetched, res.Created, res.Updated, res.Skipped))
	observability.ObserveSync(string(domain.SyncPull), outcome(err), time.Since(start))
	return res, err
}

var errUnmappedRoom = errors.New("unmapped room")

// importBooking upserts by external id. New channel bookings skip the local
// occupancy guard: the channel has already sold the room.
func (s *ChannelSyncService) importBooking(ctx context.Context, cb domain.ChannelBooking) (bool, error) {
	m, err := s.channel.GetMappingByBeds24Room(ctx, cb.Beds24RoomID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, errUnmappedRoom
	}
	if err != nil {
		return false, err
	}

	existing, err := s.bookings.GetBookingByExternalID(ctx, domain.SourceBeds24, cb.ExternalID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		ext := cb.ExternalID
		b := domain.Booking{
			Reference:  newReference(),
			RoomID:     m.RoomID,
			Guest:      cb.Guest,
			Adults:     cb.Adults,
			Children:   cb.Children,
			CheckIn:    cb.Arrival,
			CheckOut:   cb.Departure,
			Status:     cb.Status,
			Source:     domain.SourceBeds24,
			ExternalID: &ext,
			Total:      cb.Price,
			Currency:   s.pricing.Currency(),
			Notes:      cb.Notes,
		}
		if _, err := s.bookings.CreateBooking(ctx, b, 0); err != nil {
			return false, err
		}
		s.pricing.InvalidateRoom(ctx, m.RoomID)
		observability.ObserveBooking(string(domain.SourceBeds24), string(b.Status))
		return true, nil
	case err != nil:
		return false, err
	}

	updated := existing
	updated.RoomID = m.RoomID
	updated.Guest = cb.Guest
	updated.Adults, updated.Children = cb.Adults, cb.Children
	updated.CheckIn, updated.CheckOut = cb.Arrival, cb.Departure
	updated.Total = cb.Price
	updated.Notes = cb.Notes
	// local check-in/out progress is never rolled back by the channel
	if existing.Status == domain.BookingPending || existing.Status == domain.BookingConfirmed {
		updated.Status = cb.Status
	}
	if err := s.bookings.UpdateBooking(ctx, updated); err != nil {
		return false, err
	}
	s.pricing.InvalidateRoom(ctx, existing.RoomID)
	if existing.RoomID != m.RoomID {
		s.pricing.InvalidateRoom(ctx, m.RoomID)
	}
	return false, nil
}

// ---- helpers ----

func (s *ChannelSyncService) record(ctx context.Context, dir domain.SyncDirection, roomID *int64, w *domain.DateRange, err error, detail string) {
	l := domain.SyncLog{Direction: dir, RoomID: roomID, OK: err == nil, Detail: detail}
	if w != nil {
		from, to := w.From, w.To
		l.From, l.To = &from, &to
	}
	if err != nil {
		l.Detail = err.Error()
	}
	if rerr := s.channel.RecordSync(ctx, l); rerr != nil {
		log.Error().Err(rerr).Str("direction", string(dir)).Msg("record sync log failed")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
