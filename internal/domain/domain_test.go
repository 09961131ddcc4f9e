package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDateRange(t *testing.T) {
	r := domain.NewDateRange(time.Date(2026, 3, 28, 23, 30, 0, 0, time.UTC), day("2026-04-01"))
	if r.Days() != 4 {
		t.Fatalf("expected 4 nights, got %d", r.Days())
	}
	if !r.Contains(day("2026-03-28")) || r.Contains(day("2026-04-01")) {
		t.Fatal("range must be half-open")
	}
	if r.Overlaps(domain.NewDateRange(day("2026-04-01"), day("2026-04-03"))) {
		t.Fatal("adjacent ranges must not overlap")
	}
	if !r.Overlaps(domain.NewDateRange(day("2026-03-31"), day("2026-04-03"))) {
		t.Fatal("expected overlap")
	}
	if got := r.List(); len(got) != 4 || !got[3].Equal(day("2026-03-31")) {
		t.Fatalf("unexpected days: %v", got)
	}

	bad := domain.NewDateRange(day("2026-04-01"), day("2026-04-01"))
	if err := bad.Validate("stay", 30); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty range should fail validation, got %v", err)
	}
	long := domain.NewDateRange(day("2026-01-01"), day("2026-03-01"))
	if err := long.Validate("stay", 30); err == nil {
		t.Fatal("expected length limit error")
	}
}

func TestRatePolicy_SellPriceAndValidate(t *testing.T) {
	p := domain.RatePolicy{Code: "NR", Name: "Non-ref", MarkupPercent: dec("-12.5"), PrepayPercent: dec("100")}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid policy rejected: %v", err)
	}
	if got := p.SellPrice(dec("99.99")); !got.Equal(dec("87.49")) {
		t.Fatalf("sell price: %s", got)
	}
	p.PrepayPercent = dec("101")
	if err := p.Validate(); err == nil {
		t.Fatal("prepay over 100% must fail")
	}
}

func TestPriceStay(t *testing.T) {
	room := domain.Room{ID: 1, Code: "DBL", Capacity: 2, Units: 1, BasePrice: dec("100"), Active: true}
	pol := domain.RatePolicy{ID: 7, Code: "FLEX", Refundable: true, CancellationDays: 3,
		PrepayPercent: dec("33.3"), MarkupPercent: dec("10"), Active: true}
	as := []domain.PolicyAssignment{{RoomID: 1, PolicyID: 7, From: day("2026-05-01"), To: day("2026-06-01")}}
	stay := domain.NewDateRange(day("2026-05-10"), day("2026-05-12"))
	cal := domain.BuildCalendar(room, stay, []domain.PriceOverride{
		{RoomID: 1, Day: day("2026-05-11"), Price: dec("120"), MinStay: 2},
	}, nil)
	req := domain.QuoteRequest{RoomID: 1, PolicyID: 7, Stay: stay, Adults: 2}

	q, err := domain.PriceStay(room, pol, as, cal, req)
	if err != nil {
		t.Fatalf("PriceStay: %v", err)
	}
	// 110 + 132
	if !q.Total.Equal(dec("242")) || !q.Prepay.Equal(dec("80.59")) || !q.Balance.Equal(dec("161.41")) {
		t.Fatalf("unexpected totals: %s %s %s", q.Total, q.Prepay, q.Balance)
	}
	if q.FreeCancelTo == nil || !q.FreeCancelTo.Equal(day("2026-05-07")) {
		t.Fatalf("free cancellation: %v", q.FreeCancelTo)
	}

	cases := []struct {
		name string
		mut  func(r *domain.Room, p *domain.RatePolicy, as *[]domain.PolicyAssignment, cal []domain.CalendarDay, q *domain.QuoteRequest)
	}{
		{"inactive room", func(r *domain.Room, _ *domain.RatePolicy, _ *[]domain.PolicyAssignment, _ []domain.CalendarDay, _ *domain.QuoteRequest) {
			r.Active = false
		}},
		{"over capacity", func(_ *domain.Room, _ *domain.RatePolicy, _ *[]domain.PolicyAssignment, _ []domain.CalendarDay, q *domain.QuoteRequest) {
			q.Children = 1
		}},
		{"closed night", func(_ *domain.Room, _ *domain.RatePolicy, _ *[]domain.PolicyAssignment, cal []domain.CalendarDay, _ *domain.QuoteRequest) {
			cal[0].Closed = true
		}},
		{"sold out", func(_ *domain.Room, _ *domain.RatePolicy, _ *[]domain.PolicyAssignment, cal []domain.CalendarDay, _ *domain.QuoteRequest) {
			cal[1].Available = 0
		}},
		{"policy not offered", func(_ *domain.Room, _ *domain.RatePolicy, as *[]domain.PolicyAssignment, _ []domain.CalendarDay, _ *domain.QuoteRequest) {
			(*as)[0].To = day("2026-05-11")
		}},
		{"min stay", func(_ *domain.Room, _ *domain.RatePolicy, _ *[]domain.PolicyAssignment, cal []domain.CalendarDay, _ *domain.QuoteRequest) {
			cal[1].MinStay = 3
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, p, a, q := room, pol, append([]domain.PolicyAssignment(nil), as...), req
			c := append([]domain.CalendarDay(nil), cal...)
			tc.mut(&r, &p, &a, c, &q)
			if _, err := domain.PriceStay(r, p, a, c, q); !errors.Is(err, domain.ErrUnavailable) {
				t.Fatalf("expected unavailable, got %v", err)
			}
		})
	}
}

func TestBuildCalendar_Occupancy(t *testing.T) {
	room := domain.Room{ID: 1, Units: 2, BasePrice: dec("90")}
	r := domain.NewDateRange(day("2026-07-01"), day("2026-07-04"))
	bs := []domain.Booking{
		{RoomID: 1, CheckIn: day("2026-06-30"), CheckOut: day("2026-07-02"), Status: domain.BookingConfirmed},
		{RoomID: 1, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-03"), Status: domain.BookingPending},
		{RoomID: 1, CheckIn: day("2026-07-01"), CheckOut: day("2026-07-04"), Status: domain.BookingCancelled},
	}
	cal := domain.BuildCalendar(room, r, nil, domain.NightlyOccupancy(bs, r))
	want := []int{0, 1, 2}
	for i, cd := range cal {
		if cd.Available != want[i] {
			t.Fatalf("day %s: want %d available, got %d", domain.DayKey(cd.Day), want[i], cd.Available)
		}
	}
}

func TestCollapseCalendar(t *testing.T) {
	mk := func(d string, price string, avail int) domain.CalendarDay {
		return domain.CalendarDay{Day: day(d), BasePrice: dec(price), MinStay: 1, Available: avail}
	}
	days := []domain.CalendarDay{
		mk("2026-08-01", "100", 2), mk("2026-08-02", "100.00", 2), mk("2026-08-03", "100", 1),
		mk("2026-08-04", "120", 1), mk("2026-08-05", "120", 1),
	}
	days[4].Closed = true
	spans := domain.CollapseCalendar(days)
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %+v", spans)
	}
	if !spans[0].To.Equal(day("2026-08-02")) || spans[3].NumAvail != 0 {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.BookingStatus
		ok       bool
	}{
		{domain.BookingPending, domain.BookingConfirmed, true},
		{domain.BookingPending, domain.BookingCheckedIn, false},
		{domain.BookingConfirmed, domain.BookingCheckedIn, true},
		{domain.BookingCheckedIn, domain.BookingCancelled, false},
		{domain.BookingCheckedIn, domain.BookingCheckedOut, true},
		{domain.BookingCancelled, domain.BookingConfirmed, false},
	}
	for _, tc := range cases {
		err := domain.CheckBookingTransition(tc.from, tc.to)
		if tc.ok != (err == nil) {
			t.Fatalf("%s -> %s: ok=%v err=%v", tc.from, tc.to, tc.ok, err)
		}
		if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	}
	if _, ok := domain.ParseBookingStatus(" Checked_In "); !ok {
		t.Fatal("status parsing should be case-insensitive")
	}
}

func TestRefundableAmount(t *testing.T) {
	p := domain.RatePolicy{Refundable: true, CancellationDays: 2}
	in := day("2026-09-10")
	if got, _ := domain.RefundableAmount(p, in, day("2026-09-08"), dec("50")); !got.Equal(dec("50")) {
		t.Fatalf("deadline day is still free: %s", got)
	}
	if got, _ := domain.RefundableAmount(p, in, day("2026-09-09"), dec("50")); !got.IsZero() {
		t.Fatalf("past deadline: %s", got)
	}
	p.Refundable = false
	if got, reason := domain.RefundableAmount(p, in, day("2026-09-01"), dec("50")); !got.IsZero() || reason != "non-refundable policy" {
		t.Fatalf("non-refundable: %s %q", got, reason)
	}
}

func TestLedgerAndExpectedCash(t *testing.T) {
	b := domain.Booking{ID: 1, Total: dec("300")}
	ps := []domain.Payment{
		{Kind: domain.PaymentPrepay, Method: domain.MethodCard, Amount: dec("100"), Status: domain.PaymentCaptured},
		{Kind: domain.PaymentBalance, Method: domain.MethodCash, Amount: dec("250"), Status: domain.PaymentCaptured},
		{Kind: domain.PaymentBalance, Method: domain.MethodCash, Amount: dec("40"), Status: domain.PaymentFailed},
		{Kind: domain.PaymentRefund, Method: domain.MethodCash, Amount: dec("50"), Status: domain.PaymentCaptured},
	}
	l := domain.BuildLedger(b, ps)
	if !l.Paid.Equal(dec("350")) || !l.Refunded.Equal(dec("50")) || !l.Net.Equal(dec("300")) || !l.Outstanding.IsZero() {
		t.Fatalf("unexpected ledger: %+v", l)
	}
	if got := domain.ExpectedCash(ps); !got.Equal(dec("200")) {
		t.Fatalf("expected cash: %s", got)
	}
}

func TestCashTransitions(t *testing.T) {
	if err := domain.CheckCashTransition(domain.CashRejected, domain.CashSubmitted); err != nil {
		t.Fatalf("resubmission after rejection: %v", err)
	}
	if err := domain.CheckCashTransition(domain.CashApproved, domain.CashSubmitted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("approved is final, got %v", err)
	}
}

func TestProposal(t *testing.T) {
	p := domain.WeddingProposal{
		CoupleNames: "A & B", Email: "ab@example.com", EventDate: day("2027-05-01"), GuestCount: 60,
		DepositPercent: dec("20"), ValidUntil: day("2026-11-01"), Status: domain.ProposalSent,
		Items: []domain.ProposalItem{
			{Name: "Menu", Quantity: 1, UnitPrice: dec("42.5"), PerGuest: true},
			{Name: "Band", Quantity: 2, UnitPrice: dec("600")},
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.Recalculate()
	if !p.Total.Equal(dec("3750")) || !p.Deposit.Equal(dec("750")) {
		t.Fatalf("totals: %s %s", p.Total, p.Deposit)
	}
	if st := p.EffectiveStatus(day("2026-11-01")); st != domain.ProposalSent {
		t.Fatalf("valid through its last day, got %s", st)
	}
	if st := p.EffectiveStatus(day("2026-11-02")); st != domain.ProposalExpired {
		t.Fatalf("expected expired, got %s", st)
	}
}

func TestCheckinWindowAndAge(t *testing.T) {
	w := domain.CheckinWindow(day("2026-12-24"), 3)
	if !w.Contains(day("2026-12-21")) || !w.Contains(day("2026-12-24")) || w.Contains(day("2026-12-25")) {
		t.Fatalf("unexpected window: %s", w)
	}
	if got := domain.AgeOn(day("2008-12-25"), day("2026-12-24")); got != 17 {
		t.Fatalf("age the day before birthday: %d", got)
	}
	if got := domain.AgeOn(day("2008-12-24"), day("2026-12-24")); got != 18 {
		t.Fatalf("age on birthday: %d", got)
	}
}
