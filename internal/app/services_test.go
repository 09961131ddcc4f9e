package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/adapters/memcache"
	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
	"venue_hotel/internal/storage/memory"
)

// ---- fakes ----

// countingCache records hits and invalidations on top of the in-process cache.
type countingCache struct {
	inner       *memcache.Cache
	hits, miss  int
	invalidated []string
	deleted     []string
}

func (c *countingCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	ok, err := c.inner.Get(ctx, key, dst)
	if ok {
		c.hits++
	} else {
		c.miss++
	}
	return ok, err
}
func (c *countingCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	return c.inner.Set(ctx, key, v, ttlSec)
}
func (c *countingCache) Del(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return c.inner.Del(ctx, key)
}
func (c *countingCache) DelPrefix(ctx context.Context, prefix string) error {
	c.invalidated = append(c.invalidated, prefix)
	return c.inner.DelPrefix(ctx, prefix)
}

type fakeChannel struct {
	mu       sync.Mutex
	failRoom int64
	pushed   map[int64][]domain.InventorySpan
	bookings []map[string]any
	since    []time.Time
}

func (f *fakeChannel) PushCalendar(_ context.Context, room int64, spans []domain.InventorySpan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room == f.failRoom {
		return domain.ErrUpstream
	}
	if f.pushed == nil {
		f.pushed = map[int64][]domain.InventorySpan{}
	}
	f.pushed[room] = spans
	return nil
}

func (f *fakeChannel) FetchBookings(_ context.Context, since time.Time) ([]map[string]any, error) {
	f.since = append(f.since, since)
	return f.bookings, nil
}

// ---- fixture ----

var now = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store    *memory.Store
	cache    *countingCache
	pricing  *app.PricingService
	bookings *app.BookingService
	payments *app.PaymentService
	cash     *app.CashService
	checkin  *app.CheckinService
	weddings *app.WeddingService
	channel  *app.ChannelSyncService
	client   *fakeChannel
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), cache: &countingCache{inner: memcache.New(time.Minute)}, client: &fakeChannel{}, clock: now}
	clock := func() time.Time { return f.clock }
	st := f.store
	f.pricing = app.NewPricingService(st, st, st, f.cache, time.Minute, "EUR")
	f.bookings = app.NewBookingService(f.pricing, st, st, st).WithClock(clock)
	f.payments = app.NewPaymentService(st, st).WithClock(clock)
	f.cash = app.NewCashService(st, st, dec("1.00")).WithClock(clock)
	f.checkin = app.NewCheckinService(st, st, st, 3).WithClock(clock)
	f.weddings = app.NewWeddingService(st, 30).WithClock(clock)
	f.channel = app.NewChannelSyncService(f.client, st, st, st, f.pricing, 2).WithClock(clock)
	return f
}

// room creates an active room offered under a new policy for all of 2026-Q4.
func (f *fixture) room(t *testing.T, units int, prepay string) (domain.Room, domain.RatePolicy) {
	t.Helper()
	ctx := context.Background()
	code := "R" + strings.Repeat("X", units) + prepay
	r, err := f.pricing.CreateRoom(ctx, domain.Room{Code: code, Name: "Room", Capacity: 3, Units: units, BasePrice: dec("100")})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	p, err := f.pricing.CreatePolicy(ctx, domain.RatePolicy{
		Code: "P" + code, Name: "Policy", Refundable: true, CancellationDays: 5, PrepayPercent: dec(prepay),
	})
	if err != nil {
		t.Fatalf("CreatePolicy: %v", err)
	}
	if _, err := f.pricing.AttachPolicy(ctx, domain.PolicyAssignment{RoomID: r.ID, PolicyID: p.ID, From: day("2026-10-01"), To: day("2027-01-01")}); err != nil {
		t.Fatalf("AttachPolicy: %v", err)
	}
	return r, p
}

func (f *fixture) book(t *testing.T, r domain.Room, p domain.RatePolicy, in, out string) domain.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), app.CreateBookingInput{
		RoomID: r.ID, PolicyID: p.ID, CheckIn: day(in), CheckOut: day(out), Adults: 2,
		Guest: domain.Guest{FirstName: "Ana", LastName: "Diaz"},
	})
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	return b
}

// ---- pricing ----

func TestPricing_CalendarCacheAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.room(t, 2, "0")
	w := domain.NewDateRange(day("2026-10-10"), day("2026-10-13"))

	if _, err := f.pricing.Calendar(ctx, r.ID, w); err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	cal, err := f.pricing.Calendar(ctx, r.ID, w)
	if err != nil {
		t.Fatalf("Calendar (cached): %v", err)
	}
	if f.cache.miss != 1 || f.cache.hits != 1 || len(cal) != 3 {
		t.Fatalf("expected miss then hit, got miss=%d hit=%d len=%d", f.cache.miss, f.cache.hits, len(cal))
	}

	price := dec("140")
	n, err := f.pricing.SetPrices(ctx, domain.PriceChange{RoomID: r.ID, Range: domain.NewDateRange(day("2026-10-11"), day("2026-10-12")), Price: &price})
	if err != nil || n != 1 {
		t.Fatalf("SetPrices: n=%d err=%v", n, err)
	}
	cal, _ = f.pricing.Calendar(ctx, r.ID, w)
	if f.cache.miss != 2 || !cal[1].BasePrice.Equal(price) || !cal[0].BasePrice.Equal(dec("100")) {
		t.Fatalf("price change not visible: miss=%d cal=%+v", f.cache.miss, cal)
	}

	// only closing keeps the stored price
	closed := true
	if _, err := f.pricing.SetPrices(ctx, domain.PriceChange{RoomID: r.ID, Range: w, Closed: &closed}); err != nil {
		t.Fatalf("SetPrices close: %v", err)
	}
	cal, _ = f.pricing.Calendar(ctx, r.ID, w)
	if !cal[1].Closed || !cal[1].BasePrice.Equal(price) || cal[1].Available != 0 {
		t.Fatalf("unexpected closed day: %+v", cal[1])
	}

	if _, err := f.pricing.SetPrices(ctx, domain.PriceChange{RoomID: r.ID, Range: w}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty change must be rejected, got %v", err)
	}
}

func TestPricing_UndecodableCacheEntryIsAMiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.room(t, 1, "0")
	w := domain.NewDateRange(day("2026-10-10"), day("2026-10-13"))
	key := fmt.Sprintf("calendar:%d:2026-10-10:2026-10-13", r.ID)
	if err := f.cache.inner.Set(ctx, key, "not a calendar", 60); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cal, err := f.pricing.Calendar(ctx, r.ID, w)
	if err != nil {
		t.Fatalf("Calendar must rebuild past a bad entry: %v", err)
	}
	if len(cal) != 3 || !cal[0].BasePrice.Equal(dec("100")) {
		t.Fatalf("unexpected calendar: %+v", cal)
	}
	if len(f.cache.deleted) != 1 || f.cache.deleted[0] != key {
		t.Fatalf("bad entry not dropped: %v", f.cache.deleted)
	}

	var again []domain.CalendarDay
	if ok, err := f.cache.inner.Get(ctx, key, &again); !ok || err != nil || len(again) != 3 {
		t.Fatalf("rebuilt calendar not cached: ok=%v err=%v len=%d", ok, err, len(again))
	}
}

func TestPricing_QuoteUnknownPolicyIsValidation(t *testing.T) {
	f := newFixture(t)
	r, _ := f.room(t, 1, "0")
	_, err := f.pricing.Quote(context.Background(), domain.QuoteRequest{
		RoomID: r.ID, PolicyID: 999, Stay: domain.NewDateRange(day("2026-10-10"), day("2026-10-11")), Adults: 1,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// ---- bookings & payments ----

func TestBookings_OccupancyAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "20")

	b := f.book(t, r, p, "2026-10-20", "2026-10-22")
	if b.Status != domain.BookingPending || !b.Prepay.Equal(dec("40")) || !strings.HasPrefix(b.Reference, "BK-") {
		t.Fatalf("unexpected booking: %+v", b)
	}
	_, err := f.bookings.Create(ctx, app.CreateBookingInput{
		RoomID: r.ID, PolicyID: p.ID, CheckIn: day("2026-10-21"), CheckOut: day("2026-10-23"), Adults: 1,
		Guest: domain.Guest{FirstName: "Bo", LastName: "Li"},
	})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected sold out, got %v", err)
	}
	_, err = f.bookings.Create(ctx, app.CreateBookingInput{
		RoomID: r.ID, PolicyID: p.ID, CheckIn: day("2026-09-30"), CheckOut: day("2026-10-02"), Adults: 1,
		Guest: domain.Guest{FirstName: "Bo", LastName: "Li"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("past check-in must be rejected, got %v", err)
	}

	if _, err := f.bookings.ChangeStatus(ctx, b.ID, domain.BookingCheckedIn); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending cannot check in, got %v", err)
	}
	if _, err := f.bookings.ChangeStatus(ctx, b.ID, domain.BookingConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.bookings.ChangeStatus(ctx, b.ID, domain.BookingCheckedIn); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("early check-in must be rejected, got %v", err)
	}
	f.clock = day("2026-10-20").Add(15 * time.Hour)
	got, err := f.bookings.ChangeStatus(ctx, b.ID, domain.BookingCheckedIn)
	if err != nil || got.Status != domain.BookingCheckedIn {
		t.Fatalf("check in: %+v %v", got, err)
	}
	if _, err := f.bookings.Cancel(ctx, b.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("checked-in booking cannot be cancelled, got %v", err)
	}
}

func TestBookings_CancelReleasesInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "0")
	b := f.book(t, r, p, "2026-11-01", "2026-11-02")
	if b.Status != domain.BookingConfirmed {
		t.Fatalf("zero prepay should confirm at once, got %s", b.Status)
	}
	res, err := f.bookings.Cancel(ctx, b.ID)
	if err != nil || res.Booking.Status != domain.BookingCancelled || !res.Refundable.IsZero() {
		t.Fatalf("Cancel: %+v %v", res, err)
	}
	// the night is sellable again
	f.book(t, r, p, "2026-11-01", "2026-11-02")
}

func TestPayments_IdempotentAndConfirms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "50")
	b := f.book(t, r, p, "2026-10-20", "2026-10-22")

	in := app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentPrepay, Method: domain.MethodCard, Amount: dec("60"), Reference: "psp-1"}
	p1, created, err := f.payments.Record(ctx, in)
	if err != nil || !created {
		t.Fatalf("Record: created=%v err=%v", created, err)
	}
	// still short of the 100 prepay
	if got, _ := f.bookings.Get(ctx, b.ID); got.Status != domain.BookingPending {
		t.Fatalf("partial prepay must not confirm, got %s", got.Status)
	}
	p2, created, err := f.payments.Record(ctx, in)
	if err != nil || created || p2.ID != p1.ID {
		t.Fatalf("replay: created=%v id=%d/%d err=%v", created, p2.ID, p1.ID, err)
	}

	in.Reference, in.Amount = "psp-2", dec("40")
	if _, _, err := f.payments.Record(ctx, in); err != nil {
		t.Fatalf("Record second: %v", err)
	}
	if got, _ := f.bookings.Get(ctx, b.ID); got.Status != domain.BookingConfirmed {
		t.Fatalf("covered prepay should confirm, got %s", got.Status)
	}

	over := app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentBalance, Method: domain.MethodCash, Amount: dec("100.01")}
	if _, _, err := f.payments.Record(ctx, over); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("overpayment must be rejected, got %v", err)
	}
	refund := app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentRefund, Method: domain.MethodCard, Amount: dec("100.01")}
	if _, _, err := f.payments.Record(ctx, refund); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("refund above net must be rejected, got %v", err)
	}

	l, err := f.payments.Ledger(ctx, b.ID)
	if err != nil || !l.Net.Equal(dec("100")) || !l.Outstanding.Equal(dec("100")) || len(l.Payments) != 2 {
		t.Fatalf("Ledger: %+v %v", l, err)
	}
}

// slowStore widens the gap between a payment's ledger read and its insert.
type slowStore struct{ *memory.Store }

func (s slowStore) AddPayment(ctx context.Context, p domain.Payment) (domain.Payment, bool, error) {
	time.Sleep(20 * time.Millisecond)
	return s.Store.AddPayment(ctx, p)
}

func TestPayments_ConcurrentPaymentsCannotOverpay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "0")
	b := f.book(t, r, p, "2026-10-20", "2026-10-22")
	svc := app.NewPaymentService(f.store, slowStore{f.store}).WithClock(func() time.Time { return now })

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Record(ctx, app.RecordPaymentInput{
				BookingID: b.ID, Kind: domain.PaymentBalance, Method: domain.MethodCard,
				Amount: dec("200"), Reference: fmt.Sprintf("r-%d", i),
			})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("unexpected error: %v", err)
			}
			failed++
		}
	}
	l, _ := f.payments.Ledger(ctx, b.ID)
	if failed != 1 || !l.Paid.Equal(dec("200")) || !l.Outstanding.IsZero() {
		t.Fatalf("failed=%d paid=%s outstanding=%s", failed, l.Paid, l.Outstanding)
	}
}

func TestPayments_RefundAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "0")
	b := f.book(t, r, p, "2026-10-20", "2026-10-22")
	if _, _, err := f.payments.Record(ctx, app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentBalance, Method: domain.MethodCard, Amount: dec("50")}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := f.bookings.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, _, err := f.payments.Record(ctx, app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentBalance, Method: domain.MethodCard, Amount: dec("10")}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("payment on cancelled booking, got %v", err)
	}
	if _, _, err := f.payments.Record(ctx, app.RecordPaymentInput{BookingID: b.ID, Kind: domain.PaymentRefund, Method: domain.MethodCard, Amount: dec("50")}); err != nil {
		t.Fatalf("refund on cancelled booking: %v", err)
	}
}

// ---- cash ----

func TestCash_Workflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "0")
	b := f.book(t, r, p, "2026-10-05", "2026-10-07")
	recv := now.Add(-2 * time.Hour)
	for _, amt := range []string{"80", "20"} {
		if _, _, err := f.payments.Record(ctx, app.RecordPaymentInput{
			BookingID: b.ID, Kind: domain.PaymentBalance, Method: domain.MethodCash, Amount: dec(amt), ReceivedAt: recv,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if _, err := f.cash.Open(ctx, day("2026-10-02")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("future business date must fail, got %v", err)
	}
	d, err := f.cash.Open(ctx, now)
	if err != nil || !d.Expected.Equal(dec("100")) {
		t.Fatalf("Open: %+v %v", d, err)
	}
	if _, err := f.cash.Open(ctx, now); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("one deposit per day, got %v", err)
	}

	d, err = f.cash.Submit(ctx, d.ID, dec("95"), "clerk", "")
	if err != nil || !d.Discrepancy.Equal(dec("-5")) {
		t.Fatalf("Submit: %+v %v", d, err)
	}
	if _, err := f.cash.Approve(ctx, d.ID, "clerk", "ok"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("submitter cannot approve, got %v", err)
	}
	if _, err := f.cash.Approve(ctx, d.ID, "manager", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("discrepancy beyond tolerance needs a note, got %v", err)
	}
	d, err = f.cash.Reject(ctx, d.ID, "manager", "recount")
	if err != nil || d.Status != domain.CashRejected {
		t.Fatalf("Reject: %+v %v", d, err)
	}
	d, err = f.cash.Submit(ctx, d.ID, dec("99.50"), "clerk", "found coins")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	d, err = f.cash.Approve(ctx, d.ID, "manager", "")
	if err != nil || d.Status != domain.CashApproved || d.RejectReason != "" {
		t.Fatalf("Approve within tolerance: %+v %v", d, err)
	}
	if _, err := f.cash.Submit(ctx, d.ID, dec("1"), "clerk", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("approved deposit is final, got %v", err)
	}
}

// ---- online check-in ----

func TestCheckin_WindowAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, p := f.room(t, 1, "0")
	b := f.book(t, r, p, "2026-10-10", "2026-10-12")

	if _, err := f.checkin.Lookup(ctx, b.Reference, "Wrong"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong last name must look like unknown booking, got %v", err)
	}
	v, err := f.checkin.Lookup(ctx, strings.ToLower(b.Reference), "diaz")
	if err != nil || v.WindowOpen || v.Existing != nil {
		t.Fatalf("Lookup: %+v %v", v, err)
	}

	form := app.CheckinForm{
		DocumentType: domain.DocPassport, DocumentNumber: "X123", Nationality: "es",
		DateOfBirth: day("1990-04-02"), Address: "Calle 1", ArrivalTime: "15:30", TermsAccepted: true,
		AdditionalGuests: []domain.CompanionGuest{{FirstName: "Bo", LastName: "Li"}},
	}
	if _, err := f.checkin.Submit(ctx, b.Reference, "Diaz", form); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("window closed, got %v", err)
	}

	f.clock = day("2026-10-08").Add(8 * time.Hour)
	bad := form
	bad.AdditionalGuests = append(bad.AdditionalGuests, domain.CompanionGuest{FirstName: "C", LastName: "D"})
	if _, err := f.checkin.Submit(ctx, b.Reference, "Diaz", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("too many companions, got %v", err)
	}
	bad = form
	bad.DateOfBirth = day("2010-01-01")
	if _, err := f.checkin.Submit(ctx, b.Reference, "Diaz", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("minor lead guest, got %v", err)
	}

	for _, mutate := range []func(*app.CheckinForm){
		func(cf *app.CheckinForm) { cf.Nationality = "ZZ" },
		func(cf *app.CheckinForm) { cf.Nationality = "E1" },
		func(cf *app.CheckinForm) { cf.ArrivalTime = "25:00" },
		func(cf *app.CheckinForm) { cf.ArrivalTime = "noon" },
	} {
		bad = form
		mutate(&bad)
		if _, err := f.checkin.Submit(ctx, b.Reference, "Diaz", bad); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", bad, err)
		}
	}

	c, err := f.checkin.Submit(ctx, b.Reference, "Diaz", form)
	if err != nil || c.Nationality != "ES" || c.Status != domain.CheckinSubmitted {
		t.Fatalf("Submit: %+v %v", c, err)
	}
	form.Address = "Calle 2"
	if _, err := f.checkin.Submit(ctx, b.Reference, "Diaz", form); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	got, err := f.checkin.Get(ctx, b.ID)
	if err != nil || got.Address != "Calle 2" || len(got.AdditionalGuests) != 1 {
		t.Fatalf("Get: %+v %v", got, err)
	}
}

// ---- weddings ----

func TestWeddings_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.weddings.Create(ctx, domain.WeddingProposal{
		CoupleNames: "Ana & Bo", Email: "ab@example.com", EventDate: day("2027-06-01"), GuestCount: 50,
		DepositPercent: dec("10"),
	})
	if err != nil || p.Token == "" || !p.ValidUntil.Equal(day("2026-10-31")) {
		t.Fatalf("Create: %+v %v", p, err)
	}
	if _, err := f.weddings.Send(ctx, p.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty proposal cannot be sent, got %v", err)
	}
	p, err = f.weddings.ReplaceItems(ctx, p.ID, []domain.ProposalItem{{Name: "Menu", Quantity: 1, UnitPrice: dec("40"), PerGuest: true}})
	if err != nil || !p.Total.Equal(dec("2000")) || !p.Deposit.Equal(dec("200")) {
		t.Fatalf("ReplaceItems: %+v %v", p, err)
	}
	if _, err := f.weddings.Send(ctx, p.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := f.weddings.ReplaceItems(ctx, p.ID, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("sent proposals are frozen, got %v", err)
	}

	f.clock = day("2026-11-01")
	v, err := f.weddings.View(ctx, p.Token)
	if err != nil || v.Status != domain.ProposalExpired {
		t.Fatalf("View after expiry: %+v %v", v, err)
	}
	if _, err := f.weddings.Accept(ctx, p.Token, "yes"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expired proposal cannot be accepted, got %v", err)
	}
	expired := domain.ProposalExpired
	ps, err := f.weddings.List(ctx, domain.ProposalQuery{Status: &expired})
	if err != nil || len(ps) != 1 {
		t.Fatalf("List expired: %d %v", len(ps), err)
	}
	if _, err := f.weddings.View(ctx, "not-a-token"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("malformed token, got %v", err)
	}
}

// ---- channel sync ----

func TestChannel_PushAllIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1, _ := f.room(t, 1, "0")
	r2, _ := f.room(t, 2, "0")
	for i, r := range []domain.Room{r1, r2} {
		if _, err := f.channel.CreateMapping(ctx, domain.RoomMapping{RoomID: r.ID, Beds24RoomID: int64(700 + i)}); err != nil {
			t.Fatalf("CreateMapping: %v", err)
		}
	}
	if _, err := f.channel.CreateMapping(ctx, domain.RoomMapping{RoomID: r1.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("beds24 room id required, got %v", err)
	}
	f.client.failRoom = 700

	if _, err := f.channel.PushAll(ctx, domain.NewDateRange(day("2026-09-01"), day("2026-09-10"))); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("past window must be rejected, got %v", err)
	}
	res, err := f.channel.PushAll(ctx, f.channel.DefaultWindow(30))
	if err != nil || len(res) != 2 {
		t.Fatalf("PushAll: %+v %v", res, err)
	}
	var failed int
	for _, r := range res {
		if r.Err != nil {
			failed++
		}
	}
	spans := f.client.pushed[701]
	if failed != 1 || len(spans) != 1 || spans[0].NumAvail != 2 || !spans[0].To.Equal(day("2026-10-30")) {
		t.Fatalf("failed=%d spans=%+v", failed, spans)
	}
	logs, _ := f.channel.ListSyncLogs(ctx, 10)
	if len(logs) != 2 {
		t.Fatalf("expected a sync log per room, got %d", len(logs))
	}
}

func TestChannel_PullImportsAndAdvancesCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.room(t, 1, "0")
	if _, err := f.channel.CreateMapping(ctx, domain.RoomMapping{RoomID: r.ID, Beds24RoomID: 42}); err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	f.client.bookings = []map[string]any{
		{"id": float64(1), "roomId": float64(42), "status": "new", "lastName": "Ng", "arrival": "2026-10-15", "departure": "2026-10-17", "price": "210.5"},
		{"id": float64(2), "roomId": float64(99), "arrival": "2026-10-15", "departure": "2026-10-16"},
		{"roomId": float64(42)},
	}

	res, err := f.channel.Pull(ctx)
	if err != nil || res.Created != 1 || res.Skipped != 2 || !res.Since.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("first pull: %+v %v", res, err)
	}
	b, err := f.store.GetBookingByExternalID(ctx, domain.SourceBeds24, "1")
	if err != nil || b.PolicyID != 0 || !b.Total.Equal(dec("210.5")) || b.Status != domain.BookingConfirmed {
		t.Fatalf("imported booking: %+v %v", b, err)
	}
	if len(f.cache.invalidated) == 0 {
		t.Fatal("import must invalidate the room calendar")
	}

	f.clock = now.Add(time.Hour)
	f.client.bookings[0]["status"] = "cancelled"
	res, err = f.channel.Pull(ctx)
	if err != nil || res.Updated != 1 || !f.client.since[1].Equal(now) {
		t.Fatalf("second pull: %+v %v since=%v", res, err, f.client.since)
	}
	b, _ = f.store.GetBookingByExternalID(ctx, domain.SourceBeds24, "1")
	if b.Status != domain.BookingCancelled {
		t.Fatalf("channel cancellation not applied: %s", b.Status)
	}
}

func TestChannel_PullNeverRollsBackLocalStayProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.room(t, 1, "0")
	if _, err := f.channel.CreateMapping(ctx, domain.RoomMapping{RoomID: r.ID, Beds24RoomID: 43}); err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	f.client.bookings = []map[string]any{
		{"id": "5001", "roomId": float64(43), "status": "confirmed", "lastName": "Ng", "arrival": "2026-10-01", "departure": "2026-10-03"},
	}
	if res, err := f.channel.Pull(ctx); err != nil || res.Created != 1 {
		t.Fatalf("import: %+v %v", res, err)
	}
	b, _ := f.store.GetBookingByExternalID(ctx, domain.SourceBeds24, "5001")

	steps := []struct {
		local    domain.BookingStatus
		upstream string
	}{
		{domain.BookingCheckedIn, "cancelled"},
		{domain.BookingCheckedOut, "request"},
	}
	for i, st := range steps {
		if _, err := f.bookings.ChangeStatus(ctx, b.ID, st.local); err != nil {
			t.Fatalf("ChangeStatus %s: %v", st.local, err)
		}
		f.clock = now.Add(time.Duration(i+1) * time.Hour)
		f.client.bookings[0]["status"] = st.upstream
		if res, err := f.channel.Pull(ctx); err != nil || res.Updated != 1 {
			t.Fatalf("pull after %s: %+v %v", st.local, res, err)
		}
		got, _ := f.bookings.Get(ctx, b.ID)
		if got.Status != st.local {
			t.Fatalf("upstream %q rolled %s back to %s", st.upstream, st.local, got.Status)
		}
	}
}
