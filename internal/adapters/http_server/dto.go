package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

// JSON shapes of the REST API. Days are YYYY-MM-DD strings, money is a decimal string.

func dayStr(t time.Time) string { return domain.DayKey(t) }

func dayPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.DayKey(*t)
	return &s
}

type roomDTO struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Capacity  int             `json:"capacity"`
	Units     int             `json:"units"`
	BasePrice decimal.Decimal `json:"basePrice"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toRoomDTO(r domain.Room) roomDTO {
	return roomDTO{
		ID: r.ID, Code: r.Code, Name: r.Name, Capacity: r.Capacity, Units: r.Units,
		BasePrice: r.BasePrice, Active: r.Active, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type policyDTO struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Refundable       bool            `json:"refundable"`
	CancellationDays int             `json:"cancellationDays"`
	PrepayPercent    decimal.Decimal `json:"prepayPercent"`
	MarkupPercent    decimal.Decimal `json:"markupPercent"`
	Active           bool            `json:"active"`
}

func toPolicyDTO(p domain.RatePolicy) policyDTO {
	return policyDTO{
		ID: p.ID, Code: p.Code, Name: p.Name, Refundable: p.Refundable, CancellationDays: p.CancellationDays,
		PrepayPercent: p.PrepayPercent, MarkupPercent: p.MarkupPercent, Active: p.Active,
	}
}

type assignmentDTO struct {
	ID       int64  `json:"id"`
	RoomID   int64  `json:"roomId"`
	PolicyID int64  `json:"policyId"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func toAssignmentDTO(a domain.PolicyAssignment) assignmentDTO {
	return assignmentDTO{ID: a.ID, RoomID: a.RoomID, PolicyID: a.PolicyID, From: dayStr(a.From), To: dayStr(a.To)}
}

type calendarDayDTO struct {
	Day       string          `json:"day"`
	BasePrice decimal.Decimal `json:"basePrice"`
	MinStay   int             `json:"minStay"`
	Closed    bool            `json:"closed"`
	Units     int             `json:"units"`
	Booked    int             `json:"booked"`
	Available int             `json:"available"`
}

type nightDTO struct {
	Day       string          `json:"day"`
	BasePrice decimal.Decimal `json:"basePrice"`
	Price     decimal.Decimal `json:"price"`
}

type quoteDTO struct {
	RoomID       int64           `json:"roomId"`
	PolicyID     int64           `json:"policyId"`
	CheckIn      string          `json:"checkIn"`
	CheckOut     string          `json:"checkOut"`
	Nights       []nightDTO      `json:"nights"`
	Total        decimal.Decimal `json:"total"`
	Prepay       decimal.Decimal `json:"prepay"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Refundable   bool            `json:"refundable"`
	FreeCancelTo *string         `json:"freeCancellationUntil,omitempty"`
}

func toQuoteDTO(q domain.Quote) quoteDTO {
	out := quoteDTO{
		RoomID: q.RoomID, PolicyID: q.PolicyID, CheckIn: dayStr(q.Stay.From), CheckOut: dayStr(q.Stay.To),
		Nights: make([]nightDTO, 0, len(q.Nights)), Total: q.Total, Prepay: q.Prepay, Balance: q.Balance,
		Currency: q.Currency, Refundable: q.Refundable, FreeCancelTo: dayPtr(q.FreeCancelTo),
	}
	for _, n := range q.Nights {
		out.Nights = append(out.Nights, nightDTO{Day: dayStr(n.Day), BasePrice: n.BasePrice, Price: n.Price})
	}
	return out
}

type guestDTO struct {
	FirstName string `json:"firstName" validate:"required,max=128"`
	LastName  string `json:"lastName" validate:"required,max=128"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=64"`
}

type bookingDTO struct {
	ID         int64           `json:"id"`
	Reference  string          `json:"reference"`
	RoomID     int64           `json:"roomId"`
	PolicyID   int64           `json:"policyId,omitempty"`
	Guest      guestDTO        `json:"guest"`
	Adults     int             `json:"adults"`
	Children   int             `json:"children"`
	CheckIn    string          `json:"checkIn"`
	CheckOut   string          `json:"checkOut"`
	Status     string          `json:"status"`
	Source     string          `json:"source"`
	ExternalID *string         `json:"externalId,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Prepay     decimal.Decimal `json:"prepay"`
	Currency   string          `json:"currency"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func toBookingDTO(b domain.Booking) bookingDTO {
	return bookingDTO{
		ID: b.ID, Reference: b.Reference, RoomID: b.RoomID, PolicyID: b.PolicyID,
		Guest:  guestDTO{FirstName: b.Guest.FirstName, LastName: b.Guest.LastName, Email: b.Guest.Email, Phone: b.Guest.Phone},
		Adults: b.Adults, Children: b.Children, CheckIn: dayStr(b.CheckIn), CheckOut: dayStr(b.CheckOut),
		Status: string(b.Status), Source: string(b.Source), ExternalID: b.ExternalID,
		Total: b.Total, Prepay: b.Prepay, Currency: b.Currency, Notes: b.Notes,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

type paymentDTO struct {
	ID         int64           `json:"id"`
	BookingID  int64           `json:"bookingId"`
	Kind       string          `json:"kind"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Reference  *string         `json:"reference,omitempty"`
	RecordedBy string          `json:"recordedBy,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

func toPaymentDTO(p domain.Payment) paymentDTO {
	return paymentDTO{
		ID: p.ID, BookingID: p.BookingID, Kind: string(p.Kind), Method: string(p.Method), Amount: p.Amount,
		Status: string(p.Status), Reference: p.Reference, RecordedBy: p.RecordedBy, ReceivedAt: p.ReceivedAt,
	}
}

type ledgerDTO struct {
	BookingID   int64           `json:"bookingId"`
	Payments    []paymentDTO    `json:"payments"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Refunded    decimal.Decimal `json:"refunded"`
	Net         decimal.Decimal `json:"net"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func toLedgerDTO(l domain.Ledger) ledgerDTO {
	out := ledgerDTO{
		BookingID: l.BookingID, Payments: make([]paymentDTO, 0, len(l.Payments)),
		Total: l.Total, Paid: l.Paid, Refunded: l.Refunded, Net: l.Net, Outstanding: l.Outstanding,
	}
	for _, p := range l.Payments {
		out.Payments = append(out.Payments, toPaymentDTO(p))
	}
	return out
}

type depositDTO struct {
	ID           int64            `json:"id"`
	BusinessDate string           `json:"businessDate"`
	Expected     decimal.Decimal  `json:"expected"`
	Counted      *decimal.Decimal `json:"counted,omitempty"`
	Discrepancy  *decimal.Decimal `json:"discrepancy,omitempty"`
	Status       string           `json:"status"`
	SubmittedBy  string           `json:"submittedBy,omitempty"`
	ReviewedBy   string           `json:"reviewedBy,omitempty"`
	Note         string           `json:"note,omitempty"`
	RejectReason string           `json:"rejectReason,omitempty"`
	SubmittedAt  *time.Time       `json:"submittedAt,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewedAt,omitempty"`
}

func toDepositDTO(d domain.CashDeposit) depositDTO {
	return depositDTO{
		ID: d.ID, BusinessDate: dayStr(d.BusinessDate), Expected: d.Expected, Counted: d.Counted,
		Discrepancy: d.Discrepancy, Status: string(d.Status), SubmittedBy: d.SubmittedBy, ReviewedBy: d.ReviewedBy,
		Note: d.Note, RejectReason: d.RejectReason, SubmittedAt: d.SubmittedAt, ReviewedAt: d.ReviewedAt,
	}
}

type companionDTO struct {
	FirstName string `json:"firstName" validate:"required,max=128"`
	LastName  string `json:"lastName" validate:"required,max=128"`
}

type checkinDTO struct {
	BookingID        int64          `json:"bookingId"`
	Status           string         `json:"status"`
	DocumentType     string         `json:"documentType"`
	DocumentNumber   string         `json:"documentNumber"`
	Nationality      string         `json:"nationality"`
	DateOfBirth      string         `json:"dateOfBirth"`
	Address          string         `json:"address"`
	ArrivalTime      string         `json:"arrivalTime,omitempty"`
	AdditionalGuests []companionDTO `json:"additionalGuests"`
	SubmittedAt      time.Time      `json:"submittedAt"`
}

func toCheckinDTO(c domain.OnlineCheckin) checkinDTO {
	out := checkinDTO{
		BookingID: c.BookingID, Status: c.Status, DocumentType: string(c.DocumentType),
		DocumentNumber: c.DocumentNumber, Nationality: c.Nationality, DateOfBirth: dayStr(c.DateOfBirth),
		Address: c.Address, ArrivalTime: c.ArrivalTime, AdditionalGuests: make([]companionDTO, 0, len(c.AdditionalGuests)),
		SubmittedAt: c.SubmittedAt,
	}
	for _, g := range c.AdditionalGuests {
		out.AdditionalGuests = append(out.AdditionalGuests, companionDTO{FirstName: g.FirstName, LastName: g.LastName})
	}
	return out
}

// checkinViewDTO is what a guest sees: no internal ids or prices beyond the stay.
type checkinViewDTO struct {
	Reference  string      `json:"reference"`
	Status     string      `json:"status"`
	RoomName   string      `json:"roomName"`
	CheckIn    string      `json:"checkIn"`
	CheckOut   string      `json:"checkOut"`
	Guests     int         `json:"guests"`
	WindowFrom string      `json:"windowFrom"`
	WindowTo   string      `json:"windowTo"`
	WindowOpen bool        `json:"windowOpen"`
	Submitted  *checkinDTO `json:"submitted,omitempty"`
}

func toCheckinViewDTO(v domain.CheckinView) checkinViewDTO {
	out := checkinViewDTO{
		Reference: v.Booking.Reference, Status: string(v.Booking.Status), RoomName: v.Room.Name,
		CheckIn: dayStr(v.Booking.CheckIn), CheckOut: dayStr(v.Booking.CheckOut), Guests: v.Booking.Guests(),
		WindowFrom: dayStr(v.Window.From), WindowTo: dayStr(v.Window.To), WindowOpen: v.WindowOpen,
	}
	if v.Existing != nil {
		c := toCheckinDTO(*v.Existing)
		out.Submitted = &c
	}
	return out
}

type proposalItemDTO struct {
	Name      string          `json:"name" validate:"required,max=255"`
	Category  string          `json:"category" validate:"max=64"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	PerGuest  bool            `json:"perGuest"`
}

func toItems(in []proposalItemDTO) []domain.ProposalItem {
	out := make([]domain.ProposalItem, 0, len(in))
	for _, it := range in {
		out = append(out, domain.ProposalItem{
			Name: it.Name, Category: it.Category, Quantity: it.Quantity, UnitPrice: it.UnitPrice, PerGuest: it.PerGuest,
		})
	}
	return out
}

type proposalDTO struct {
	ID             int64             `json:"id,omitempty"`
	Token          string            `json:"token,omitempty"`
	CoupleNames    string            `json:"coupleNames"`
	Email          string            `json:"email,omitempty"`
	EventDate      string            `json:"eventDate"`
	GuestCount     int               `json:"guestCount"`
	Items          []proposalItemDTO `json:"items"`
	Total          decimal.Decimal   `json:"total"`
	DepositPercent decimal.Decimal   `json:"depositPercent"`
	Deposit        decimal.Decimal   `json:"deposit"`
	ValidUntil     string            `json:"validUntil"`
	Status         string            `json:"status"`
	CoupleComment  string            `json:"coupleComment,omitempty"`
}

// toProposalDTO renders p; public hides staff-only fields.
func toProposalDTO(p domain.WeddingProposal, public bool) proposalDTO {
	out := proposalDTO{
		ID: p.ID, Token: p.Token, CoupleNames: p.CoupleNames, Email: p.Email,
		EventDate: dayStr(p.EventDate), GuestCount: p.GuestCount, Items: make([]proposalItemDTO, 0, len(p.Items)),
		Total: p.Total, DepositPercent: p.DepositPercent, Deposit: p.Deposit, ValidUntil: dayStr(p.ValidUntil),
		Status: string(p.Status), CoupleComment: p.CoupleComment,
	}
	if public {
		out.ID, out.Token, out.Email = 0, "", ""
	}
	for _, it := range p.Items {
		out.Items = append(out.Items, proposalItemDTO{
			Name: it.Name, Category: it.Category, Quantity: it.Quantity, UnitPrice: it.UnitPrice, PerGuest: it.PerGuest,
		})
	}
	return out
}

type mappingDTO struct {
	ID               int64     `json:"id"`
	RoomID           int64     `json:"roomId"`
	Beds24PropertyID int64     `json:"beds24PropertyId"`
	Beds24RoomID     int64     `json:"beds24RoomId"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toMappingDTO(m domain.RoomMapping) mappingDTO {
	return mappingDTO{
		ID: m.ID, RoomID: m.RoomID, Beds24PropertyID: m.Beds24PropertyID, Beds24RoomID: m.Beds24RoomID,
		Active: m.Active, CreatedAt: m.CreatedAt,
	}
}

type pushResultDTO struct {
	RoomID       int64  `json:"roomId"`
	Beds24RoomID int64  `json:"beds24RoomId"`
	From         string `json:"from"`
	To           string `json:"to"`
	Days         int    `json:"days"`
	Ranges       int    `json:"ranges"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

func toPushResultDTO(r domain.PushResult) pushResultDTO {
	out := pushResultDTO{
		RoomID: r.RoomID, Beds24RoomID: r.Beds24RoomID, From: dayStr(r.Window.From), To: dayStr(r.Window.To),
		Days: r.Days, Ranges: len(r.Spans), OK: r.Err == nil,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type pullResultDTO struct {
	Fetched int       `json:"fetched"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Skipped int       `json:"skipped"`
	Since   time.Time `json:"since"`
	Cursor  time.Time `json:"cursor"`
}

func toPullResultDTO(r domain.PullResult) pullResultDTO {
	return pullResultDTO{
		Fetched: r.Fetched, Created: r.Created, Updated: r.Updated, Skipped: r.Skipped,
		Since: r.Since, Cursor: r.Upstream,
	}
}

type syncLogDTO struct {
	ID        int64     `json:"id"`
	Direction string    `json:"direction"`
	RoomID    *int64    `json:"roomId,omitempty"`
	From      *string   `json:"from,omitempty"`
	To        *string   `json:"to,omitempty"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSyncLogDTO(l domain.SyncLog) syncLogDTO {
	return syncLogDTO{
		ID: l.ID, Direction: string(l.Direction), RoomID: l.RoomID, From: dayPtr(l.From), To: dayPtr(l.To),
		OK: l.OK, Detail: l.Detail, CreatedAt: l.CreatedAt,
	}
}
