package mysql

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func valDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return p.StringFixed(2)
}

// valPolicy stores the "no policy" id 0 of channel bookings as NULL.
func valPolicy(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func ptrStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func ptrTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func ptrDec(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	return &n.Decimal
}

type roomRow struct {
	ID        int64           `db:"id"`
	Code      string          `db:"code"`
	Name      string          `db:"name"`
	Capacity  int             `db:"capacity"`
	Units     int             `db:"units"`
	BasePrice decimal.Decimal `db:"base_price"`
	Active    bool            `db:"active"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID: r.ID, Code: r.Code, Name: r.Name, Capacity: r.Capacity, Units: r.Units,
		BasePrice: r.BasePrice, Active: r.Active, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type policyRow struct {
	ID               int64           `db:"id"`
	Code             string          `db:"code"`
	Name             string          `db:"name"`
	Refundable       bool            `db:"refundable"`
	CancellationDays int             `db:"cancellation_days"`
	PrepayPercent    decimal.Decimal `db:"prepay_percent"`
	MarkupPercent    decimal.Decimal `db:"markup_percent"`
	Active           bool            `db:"active"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r policyRow) toDomain() domain.RatePolicy {
	return domain.RatePolicy{
		ID: r.ID, Code: r.Code, Name: r.Name, Refundable: r.Refundable, CancellationDays: r.CancellationDays,
		PrepayPercent: r.PrepayPercent, MarkupPercent: r.MarkupPercent, Active: r.Active,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type assignmentRow struct {
	ID       int64     `db:"id"`
	RoomID   int64     `db:"room_id"`
	PolicyID int64     `db:"policy_id"`
	From     time.Time `db:"from_day"`
	To       time.Time `db:"to_day"`
}

func (r assignmentRow) toDomain() domain.PolicyAssignment {
	return domain.PolicyAssignment{ID: r.ID, RoomID: r.RoomID, PolicyID: r.PolicyID, From: domain.Day(r.From), To: domain.Day(r.To)}
}

type overrideRow struct {
	RoomID  int64           `db:"room_id"`
	Day     time.Time       `db:"day"`
	Price   decimal.Decimal `db:"price"`
	MinStay int             `db:"min_stay"`
	Closed  bool            `db:"closed"`
}

func (r overrideRow) toDomain() domain.PriceOverride {
	return domain.PriceOverride{RoomID: r.RoomID, Day: domain.Day(r.Day), Price: r.Price, MinStay: r.MinStay, Closed: r.Closed}
}

type bookingRow struct {
	ID         int64           `db:"id"`
	Reference  string          `db:"reference"`
	RoomID     int64           `db:"room_id"`
	PolicyID   sql.NullInt64   `db:"policy_id"`
	FirstName  string          `db:"first_name"`
	LastName   string          `db:"last_name"`
	Email      string          `db:"email"`
	Phone      string          `db:"phone"`
	Adults     int             `db:"adults"`
	Children   int             `db:"children"`
	CheckIn    time.Time       `db:"check_in"`
	CheckOut   time.Time       `db:"check_out"`
	Status     string          `db:"status"`
	Source     string          `db:"source"`
	ExternalID sql.NullString  `db:"external_id"`
	Total      decimal.Decimal `db:"total"`
	Prepay     decimal.Decimal `db:"prepay"`
	Currency   string          `db:"currency"`
	Notes      string          `db:"notes"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (r bookingRow) toDomain() domain.Booking {
	return domain.Booking{
		ID:        r.ID,
		Reference: r.Reference,
		RoomID:    r.RoomID,
		PolicyID:  r.PolicyID.Int64,
		Guest: domain.Guest{
			FirstName: r.FirstName, LastName: r.LastName, Email: r.Email, Phone: r.Phone,
		},
		Adults:     r.Adults,
		Children:   r.Children,
		CheckIn:    domain.Day(r.CheckIn),
		CheckOut:   domain.Day(r.CheckOut),
		Status:     domain.BookingStatus(r.Status),
		Source:     domain.BookingSource(r.Source),
		ExternalID: ptrStr(r.ExternalID),
		Total:      r.Total,
		Prepay:     r.Prepay,
		Currency:   r.Currency,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type paymentRow struct {
	ID         int64           `db:"id"`
	BookingID  int64           `db:"booking_id"`
	Kind       string          `db:"kind"`
	Method     string          `db:"method"`
	Amount     decimal.Decimal `db:"amount"`
	Status     string          `db:"status"`
	Reference  sql.NullString  `db:"reference"`
	RecordedBy string          `db:"recorded_by"`
	ReceivedAt time.Time       `db:"received_at"`
	CreatedAt  time.Time       `db:"created_at"`
}

func (r paymentRow) toDomain() domain.Payment {
	return domain.Payment{
		ID: r.ID, BookingID: r.BookingID,
		Kind: domain.PaymentKind(r.Kind), Method: domain.PaymentMethod(r.Method),
		Amount: r.Amount, Status: domain.PaymentStatus(r.Status), Reference: ptrStr(r.Reference),
		RecordedBy: r.RecordedBy, ReceivedAt: r.ReceivedAt.UTC(), CreatedAt: r.CreatedAt.UTC(),
	}
}

type depositRow struct {
	ID           int64               `db:"id"`
	BusinessDate time.Time           `db:"business_date"`
	Expected     decimal.Decimal     `db:"expected"`
	Counted      decimal.NullDecimal `db:"counted"`
	Discrepancy  decimal.NullDecimal `db:"discrepancy"`
	Status       string              `db:"status"`
	SubmittedBy  string              `db:"submitted_by"`
	ReviewedBy   string              `db:"reviewed_by"`
	Note         string              `db:"note"`
	RejectReason string              `db:"reject_reason"`
	SubmittedAt  sql.NullTime        `db:"submitted_at"`
	ReviewedAt   sql.NullTime        `db:"reviewed_at"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func (r depositRow) toDomain() domain.CashDeposit {
	return domain.CashDeposit{
		ID: r.ID, BusinessDate: domain.Day(r.BusinessDate), Expected: r.Expected,
		Counted: ptrDec(r.Counted), Discrepancy: ptrDec(r.Discrepancy),
		Status: domain.CashStatus(r.Status), SubmittedBy: r.SubmittedBy, ReviewedBy: r.ReviewedBy,
		Note: r.Note, RejectReason: r.RejectReason,
		SubmittedAt: ptrTime(r.SubmittedAt), ReviewedAt: ptrTime(r.ReviewedAt),
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type companionJSON struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type checkinRow struct {
	BookingID        int64     `db:"booking_id"`
	Status           string    `db:"status"`
	DocumentType     string    `db:"document_type"`
	DocumentNumber   string    `db:"document_number"`
	Nationality      string    `db:"nationality"`
	DateOfBirth      time.Time `db:"date_of_birth"`
	Address          string    `db:"address"`
	ArrivalTime      string    `db:"arrival_time"`
	AdditionalGuests []byte    `db:"additional_guests"`
	TermsAccepted    bool      `db:"terms_accepted"`
	SubmittedAt      time.Time `db:"submitted_at"`
}

func encodeCompanions(gs []domain.CompanionGuest) (string, error) {
	out := make([]companionJSON, 0, len(gs))
	for _, g := range gs {
		out = append(out, companionJSON{FirstName: g.FirstName, LastName: g.LastName})
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func (r checkinRow) toDomain() (domain.OnlineCheckin, error) {
	var gs []companionJSON
	if len(r.AdditionalGuests) > 0 {
		if err := json.Unmarshal(r.AdditionalGuests, &gs); err != nil {
			return domain.OnlineCheckin{}, err
		}
	}
	c := domain.OnlineCheckin{
		BookingID: r.BookingID, Status: r.Status, DocumentType: domain.DocumentType(r.DocumentType),
		DocumentNumber: r.DocumentNumber, Nationality: r.Nationality, DateOfBirth: domain.Day(r.DateOfBirth),
		Address: r.Address, ArrivalTime: r.ArrivalTime, TermsAccepted: r.TermsAccepted,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
	for _, g := range gs {
		c.AdditionalGuests = append(c.AdditionalGuests, domain.CompanionGuest{FirstName: g.FirstName, LastName: g.LastName})
	}
	return c, nil
}

type proposalItemJSON struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	PerGuest  bool            `json:"per_guest"`
}

type proposalRow struct {
	ID             int64           `db:"id"`
	Token          string          `db:"token"`
	CoupleNames    string          `db:"couple_names"`
	Email          string          `db:"email"`
	EventDate      time.Time       `db:"event_date"`
	GuestCount     int             `db:"guest_count"`
	Items          []byte          `db:"items"`
	Total          decimal.Decimal `db:"total"`
	DepositPercent decimal.Decimal `db:"deposit_percent"`
	Deposit        decimal.Decimal `db:"deposit"`
	ValidUntil     time.Time       `db:"valid_until"`
	Status         string          `db:"status"`
	CoupleComment  string          `db:"couple_comment"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func encodeItems(items []domain.ProposalItem) (string, error) {
	out := make([]proposalItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, proposalItemJSON{
			Name: it.Name, Category: it.Category, Quantity: it.Quantity, UnitPrice: it.UnitPrice, PerGuest: it.PerGuest,
		})
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func (r proposalRow) toDomain() (domain.WeddingProposal, error) {
	var items []proposalItemJSON
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &items); err != nil {
			return domain.WeddingProposal{}, err
		}
	}
	p := domain.WeddingProposal{
		ID: r.ID, Token: r.Token, CoupleNames: r.CoupleNames, Email: r.Email,
		EventDate: domain.Day(r.EventDate), GuestCount: r.GuestCount,
		Total: r.Total, DepositPercent: r.DepositPercent, Deposit: r.Deposit,
		ValidUntil: domain.Day(r.ValidUntil), Status: domain.ProposalStatus(r.Status),
		CoupleComment: r.CoupleComment, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
	for _, it := range items {
		p.Items = append(p.Items, domain.ProposalItem{
			Name: it.Name, Category: it.Category, Quantity: it.Quantity, UnitPrice: it.UnitPrice, PerGuest: it.PerGuest,
		})
	}
	return p, nil
}

type mappingRow struct {
	ID               int64     `db:"id"`
	RoomID           int64     `db:"room_id"`
	Beds24PropertyID int64     `db:"beds24_property_id"`
	Beds24RoomID     int64     `db:"beds24_room_id"`
	Active           bool      `db:"active"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r mappingRow) toDomain() domain.RoomMapping {
	return domain.RoomMapping{
		ID: r.ID, RoomID: r.RoomID, Beds24PropertyID: r.Beds24PropertyID, Beds24RoomID: r.Beds24RoomID,
		Active: r.Active, CreatedAt: r.CreatedAt.UTC(),
	}
}

type syncLogRow struct {
	ID        int64         `db:"id"`
	Direction string        `db:"direction"`
	RoomID    sql.NullInt64 `db:"room_id"`
	From      sql.NullTime  `db:"from_day"`
	To        sql.NullTime  `db:"to_day"`
	OK        bool          `db:"ok"`
	Detail    string        `db:"detail"`
	CreatedAt time.Time     `db:"created_at"`
}

func (r syncLogRow) toDomain() domain.SyncLog {
	return domain.SyncLog{
		ID: r.ID, Direction: domain.SyncDirection(r.Direction), RoomID: ptrInt64(r.RoomID),
		From: ptrTime(r.From), To: ptrTime(r.To), OK: r.OK, Detail: r.Detail, CreatedAt: r.CreatedAt.UTC(),
	}
}
