// Package memory is a mutex-guarded implementation of domain.Store used for
// local development (STORAGE_DRIVER=memory) and service tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"venue_hotel/internal/domain"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	rooms       map[int64]domain.Room
	policies    map[int64]domain.RatePolicy
	assignments map[int64]domain.PolicyAssignment
	overrides   map[string]domain.PriceOverride // roomID|day
	bookings    map[int64]domain.Booking
	payments    map[int64]domain.Payment
	deposits    map[int64]domain.CashDeposit
	checkins    map[int64]domain.OnlineCheckin
	proposals   map[int64]domain.WeddingProposal
	mappings    map[int64]domain.RoomMapping
	syncLogs    []domain.SyncLog
	cursors     map[string]time.Time
}

func New() *Store {
	return &Store{
		now:         time.Now,
		rooms:       map[int64]domain.Room{},
		policies:    map[int64]domain.RatePolicy{},
		assignments: map[int64]domain.PolicyAssignment{},
		overrides:   map[string]domain.PriceOverride{},
		bookings:    map[int64]domain.Booking{},
		payments:    map[int64]domain.Payment{},
		deposits:    map[int64]domain.CashDeposit{},
		checkins:    map[int64]domain.OnlineCheckin{},
		proposals:   map[int64]domain.WeddingProposal{},
		mappings:    map[int64]domain.RoomMapping{},
		cursors:     map[string]time.Time{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func overrideKey(roomID int64, day time.Time) string {
	return strconv.FormatInt(roomID, 10) + "|" + domain.DayKey(day)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---- rooms ----

func (s *Store) CreateRoom(_ context.Context, r domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.rooms {
		if strings.EqualFold(ex.Code, r.Code) {
			return domain.Room{}, domain.ErrConflict
		}
	}
	r.ID = s.nextID()
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	s.rooms[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRoom(_ context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, ex := range s.rooms {
		if id != r.ID && strings.EqualFold(ex.Code, r.Code) {
			return domain.ErrConflict
		}
	}
	r.CreatedAt, r.UpdatedAt = cur.CreatedAt, s.now()
	s.rooms[r.ID] = r
	return nil
}

func (s *Store) GetRoom(_ context.Context, id int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRooms(_ context.Context, activeOnly bool) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Room
	for _, id := range sortedIDs(s.rooms) {
		if r := s.rooms[id]; !activeOnly || r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

// ---- rates ----

func (s *Store) CreatePolicy(_ context.Context, p domain.RatePolicy) (domain.RatePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.policies {
		if strings.EqualFold(ex.Code, p.Code) {
			return domain.RatePolicy{}, domain.ErrConflict
		}
	}
	p.ID = s.nextID()
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.policies[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePolicy(_ context.Context, p domain.RatePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.policies[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, ex := range s.policies {
		if id != p.ID && strings.EqualFold(ex.Code, p.Code) {
			return domain.ErrConflict
		}
	}
	p.CreatedAt, p.UpdatedAt = cur.CreatedAt, s.now()
	s.policies[p.ID] = p
	return nil
}

func (s *Store) GetPolicy(_ context.Context, id int64) (domain.RatePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return domain.RatePolicy{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPolicies(_ context.Context) ([]domain.RatePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RatePolicy, 0, len(s.policies))
	for _, id := range sortedIDs(s.policies) {
		out = append(out, s.policies[id])
	}
	return out, nil
}

func (s *Store) AttachPolicy(_ context.Context, a domain.PolicyAssignment) (domain.PolicyAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[a.RoomID]; !ok {
		return domain.PolicyAssignment{}, domain.ErrNotFound
	}
	if _, ok := s.policies[a.PolicyID]; !ok {
		return domain.PolicyAssignment{}, domain.ErrNotFound
	}
	a.ID = s.nextID()
	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) ListAssignments(_ context.Context, roomID int64) ([]domain.PolicyAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PolicyAssignment
	for _, id := range sortedIDs(s.assignments) {
		if a := s.assignments[id]; a.RoomID == roomID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) UpsertPriceOverrides(_ context.Context, os []domain.PriceOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range os {
		o.Day = domain.Day(o.Day)
		s.overrides[overrideKey(o.RoomID, o.Day)] = o
	}
	return nil
}

func (s *Store) ListPriceOverrides(_ context.Context, roomID int64, r domain.DateRange) ([]domain.PriceOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PriceOverride
	r.Each(func(d time.Time) {
		if o, ok := s.overrides[overrideKey(roomID, d)]; ok {
			out = append(out, o)
		}
	})
	return out, nil
}

// ---- bookings ----

func (s *Store) CreateBooking(_ context.Context, b domain.Booking, units int) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.bookings {
		if ex.Reference == b.Reference {
			return domain.Booking{}, domain.ErrConflict
		}
		if b.ExternalID != nil && ex.ExternalID != nil && ex.Source == b.Source && *ex.ExternalID == *b.ExternalID {
			return domain.Booking{}, domain.ErrConflict
		}
	}
	if units > 0 {
		stay := b.Stay()
		occ := domain.NightlyOccupancy(s.roomBookingsLocked(b.RoomID), stay)
		for _, d := range stay.List() {
			if occ[domain.DayKey(d)] >= units {
				return domain.Booking{}, domain.Unavailable("sold out on %s", domain.DayKey(d))
			}
		}
	}
	b.ID = s.nextID()
	b.CreatedAt, b.UpdatedAt = s.now(), s.now()
	s.bookings[b.ID] = b
	return b, nil
}

func (s *Store) roomBookingsLocked(roomID int64) []domain.Booking {
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) UpdateBooking(_ context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bookings[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	b.CreatedAt, b.UpdatedAt = cur.CreatedAt, s.now()
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) SetBookingStatus(_ context.Context, id int64, from, to domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.ErrConflict
	}
	b.Status, b.UpdatedAt = to, s.now()
	s.bookings[id] = b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBookingByReference(_ context.Context, ref string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if strings.EqualFold(b.Reference, ref) {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrNotFound
}

func (s *Store) GetBookingByExternalID(_ context.Context, source domain.BookingSource, externalID string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Source == source && b.ExternalID != nil && *b.ExternalID == externalID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrNotFound
}

func (s *Store) ListBookings(_ context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, id := range sortedIDs(s.bookings) {
		b := s.bookings[id]
		if q.Status != nil && b.Status != *q.Status {
			continue
		}
		if q.RoomID != nil && b.RoomID != *q.RoomID {
			continue
		}
		if q.Range != nil && !b.Stay().Overlaps(*q.Range) {
			continue
		}
		out = append(out, b)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// ---- payments ----

func (s *Store) AddPayment(_ context.Context, p domain.Payment) (domain.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[p.BookingID]
	if !ok {
		return domain.Payment{}, false, domain.ErrNotFound
	}
	var ps []domain.Payment
	for _, id := range sortedIDs(s.payments) {
		if ex := s.payments[id]; ex.BookingID == p.BookingID {
			ps = append(ps, ex)
		}
	}
	if p.Reference != nil {
		if ex, ok := domain.PaymentByReference(ps, *p.Reference); ok {
			return ex, false, nil
		}
	}
	if err := domain.CheckPayment(b, domain.BuildLedger(b, ps), p); err != nil {
		return domain.Payment{}, false, err
	}
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	s.payments[p.ID] = p
	return p, true, nil
}

func (s *Store) ListPayments(_ context.Context, bookingID int64) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, id := range sortedIDs(s.payments) {
		if p := s.payments[id]; p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListPaymentsReceived(_ context.Context, day time.Time, method domain.PaymentMethod) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	key := domain.DayKey(day)
	for _, id := range sortedIDs(s.payments) {
		p := s.payments[id]
		if p.Method == method && domain.DayKey(p.ReceivedAt) == key {
			out = append(out, p)
		}
	}
	return out, nil
}

// ---- cash ----

func (s *Store) CreateDeposit(_ context.Context, d domain.CashDeposit) (domain.CashDeposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.deposits {
		if ex.BusinessDate.Equal(domain.Day(d.BusinessDate)) {
			return domain.CashDeposit{}, domain.ErrConflict
		}
	}
	d.ID = s.nextID()
	d.BusinessDate = domain.Day(d.BusinessDate)
	d.CreatedAt, d.UpdatedAt = s.now(), s.now()
	s.deposits[d.ID] = d
	return d, nil
}

func (s *Store) UpdateDeposit(_ context.Context, d domain.CashDeposit, from domain.CashStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.deposits[d.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrConflict
	}
	d.CreatedAt, d.UpdatedAt = cur.CreatedAt, s.now()
	s.deposits[d.ID] = d
	return nil
}

func (s *Store) GetDeposit(_ context.Context, id int64) (domain.CashDeposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return domain.CashDeposit{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDeposits(_ context.Context, q domain.CashQuery) ([]domain.CashDeposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CashDeposit
	for _, d := range s.deposits {
		if q.Status != nil && d.Status != *q.Status {
			continue
		}
		if q.Range != nil && !q.Range.Contains(d.BusinessDate) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.After(out[j].BusinessDate) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ---- check-in ----

func (s *Store) UpsertCheckin(_ context.Context, c domain.OnlineCheckin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[c.BookingID]; !ok {
		return domain.ErrNotFound
	}
	c.AdditionalGuests = append([]domain.CompanionGuest(nil), c.AdditionalGuests...)
	s.checkins[c.BookingID] = c
	return nil
}

func (s *Store) GetCheckin(_ context.Context, bookingID int64) (domain.OnlineCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkins[bookingID]
	if !ok {
		return domain.OnlineCheckin{}, domain.ErrNotFound
	}
	return c, nil
}

// ---- weddings ----

func cloneProposal(p domain.WeddingProposal) domain.WeddingProposal {
	p.Items = append([]domain.ProposalItem(nil), p.Items...)
	return p
}

func (s *Store) CreateProposal(_ context.Context, p domain.WeddingProposal) (domain.WeddingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.proposals[p.ID] = cloneProposal(p)
	return p, nil
}

func (s *Store) UpdateProposal(_ context.Context, p domain.WeddingProposal, from domain.ProposalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.proposals[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrConflict
	}
	p.CreatedAt, p.UpdatedAt = cur.CreatedAt, s.now()
	s.proposals[p.ID] = cloneProposal(p)
	return nil
}

func (s *Store) GetProposal(_ context.Context, id int64) (domain.WeddingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return domain.WeddingProposal{}, domain.ErrNotFound
	}
	return cloneProposal(p), nil
}

func (s *Store) GetProposalByToken(_ context.Context, token string) (domain.WeddingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.Token == token {
			return cloneProposal(p), nil
		}
	}
	return domain.WeddingProposal{}, domain.ErrNotFound
}

func (s *Store) ListProposals(_ context.Context, q domain.ProposalQuery) ([]domain.WeddingProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WeddingProposal
	for _, id := range sortedIDs(s.proposals) {
		p := s.proposals[id]
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		out = append(out, cloneProposal(p))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// ---- channel ----

func (s *Store) CreateMapping(_ context.Context, m domain.RoomMapping) (domain.RoomMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[m.RoomID]; !ok {
		return domain.RoomMapping{}, domain.ErrNotFound
	}
	for _, ex := range s.mappings {
		if ex.RoomID == m.RoomID || ex.Beds24RoomID == m.Beds24RoomID {
			return domain.RoomMapping{}, domain.ErrConflict
		}
	}
	m.ID = s.nextID()
	m.CreatedAt = s.now()
	s.mappings[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMapping(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.mappings, id)
	return nil
}

func (s *Store) GetMappingByRoom(_ context.Context, roomID int64) (domain.RoomMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mappings {
		if m.RoomID == roomID {
			return m, nil
		}
	}
	return domain.RoomMapping{}, domain.ErrNotFound
}

func (s *Store) GetMappingByBeds24Room(_ context.Context, beds24RoomID int64) (domain.RoomMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mappings {
		if m.Beds24RoomID == beds24RoomID {
			return m, nil
		}
	}
	return domain.RoomMapping{}, domain.ErrNotFound
}

func (s *Store) ListMappings(_ context.Context, activeOnly bool) ([]domain.RoomMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomMapping
	for _, id := range sortedIDs(s.mappings) {
		if m := s.mappings[id]; !activeOnly || m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) RecordSync(_ context.Context, l domain.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID()
	l.CreatedAt = s.now()
	s.syncLogs = append(s.syncLogs, l)
	return nil
}

func (s *Store) ListSyncLogs(_ context.Context, limit int) ([]domain.SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncLog, 0, len(s.syncLogs))
	for i := len(s.syncLogs) - 1; i >= 0; i-- {
		out = append(out, s.syncLogs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetSyncCursor(_ context.Context, name string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.cursors[name]
	return t, ok, nil
}

func (s *Store) SetSyncCursor(_ context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[name] = at
	return nil
}
