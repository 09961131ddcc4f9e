package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
)

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	var q domain.BookingsQuery
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseBookingStatus(s)
		if !ok {
			writeError(w, r, domain.Invalid("status", "unknown booking status %q", s))
			return
		}
		q.Status = &st
	}
	if s := r.URL.Query().Get("roomId"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, domain.Invalid("roomId", "must be a positive number"))
			return
		}
		q.RoomID = &id
	}
	rng, err := queryRange(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q.Range = rng
	if q.Limit, err = queryInt(r, "limit", 100, 1, 500); err != nil {
		writeError(w, r, err)
		return
	}
	bs, err := h.Bookings.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]bookingDTO, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingDTO(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   int64    `json:"roomId" validate:"gt=0"`
		PolicyID int64    `json:"policyId" validate:"gt=0"`
		CheckIn  string   `json:"checkIn" validate:"required"`
		CheckOut string   `json:"checkOut" validate:"required"`
		Guest    guestDTO `json:"guest"`
		Adults   int      `json:"adults" validate:"gte=1"`
		Children int      `json:"children" validate:"gte=0"`
		Notes    string   `json:"notes" validate:"max=2000"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := parseDay("checkIn", req.CheckIn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := parseDay("checkOut", req.CheckOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), app.CreateBookingInput{
		RoomID: req.RoomID, PolicyID: req.PolicyID, CheckIn: in, CheckOut: out,
		Guest: domain.Guest{
			FirstName: req.Guest.FirstName, LastName: req.Guest.LastName, Email: req.Guest.Email, Phone: req.Guest.Phone,
		},
		Adults: req.Adults, Children: req.Children, Notes: req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+strconv.FormatInt(b.ID, 10))
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toBookingDTO(b))
}

func (h *Handlers) getBookingByReference(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(chi.URLParam(r, "ref"))
	if ref == "" {
		writeError(w, r, domain.Invalid("ref", "is required"))
		return
	}
	b, err := h.Bookings.GetByReference(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toBookingDTO(b))
}

func (h *Handlers) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, ok := domain.ParseBookingStatus(req.Status)
	if !ok {
		writeError(w, r, domain.Invalid("status", "unknown booking status %q", req.Status))
		return
	}
	b, err := h.Bookings.ChangeStatus(r.Context(), id, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Bookings.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"booking":    toBookingDTO(res.Booking),
		"refundable": res.Refundable,
		"reason":     res.Reason,
	})
}

// ---- payments ----

func (h *Handlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Kind       string          `json:"kind" validate:"required,oneof=prepay balance refund"`
		Method     string          `json:"method" validate:"required,oneof=card cash bank_transfer channel"`
		Amount     decimal.Decimal `json:"amount"`
		Reference  string          `json:"reference" validate:"max=128"`
		RecordedBy string          `json:"recordedBy" validate:"max=64"`
		ReceivedAt *time.Time      `json:"receivedAt"`
		Failed     bool            `json:"failed"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := app.RecordPaymentInput{
		BookingID: id, Kind: domain.PaymentKind(req.Kind), Method: domain.PaymentMethod(req.Method),
		Amount: req.Amount, Reference: req.Reference, RecordedBy: req.RecordedBy, Failed: req.Failed,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = req.ReceivedAt.UTC()
	}
	p, created, err := h.Payments.Record(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, toPaymentDTO(p))
}

func (h *Handlers) ledger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Payments.Ledger(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toLedgerDTO(l))
}

func (h *Handlers) getCheckin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Checkin.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toCheckinDTO(c))
}
