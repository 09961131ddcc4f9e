package httpserver

import (
	"net/http"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

type roomReq struct {
	Code      string          `json:"code" validate:"required,max=32"`
	Name      string          `json:"name" validate:"required,max=128"`
	Capacity  int             `json:"capacity" validate:"gte=1,lte=50"`
	Units     int             `json:"units" validate:"gte=1,lte=1000"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

func (q roomReq) toDomain() domain.Room {
	return domain.Room{Code: q.Code, Name: q.Name, Capacity: q.Capacity, Units: q.Units, BasePrice: q.BasePrice}
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rooms, err := h.Pricing.ListRooms(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, toRoomDTO(rm))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := h.Pricing.CreateRoom(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	room, err := h.Pricing.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toRoomDTO(room))
}

func (h *Handlers) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		roomReq
		Active *bool `json:"active"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cur, err := h.Pricing.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next := req.toDomain()
	next.ID, next.Active = id, cur.Active
	if req.Active != nil {
		next.Active = *req.Active
	}
	room, err := h.Pricing.UpdateRoom(r.Context(), next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

func (h *Handlers) deactivateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Pricing.DeactivateRoom(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) calendar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := queryRange(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := h.Pricing.Calendar(r.Context(), id, *rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]calendarDayDTO, 0, len(days))
	for _, d := range days {
		out = append(out, calendarDayDTO{
			Day: dayStr(d.Day), BasePrice: d.BasePrice, MinStay: d.MinStay, Closed: d.Closed,
			Units: d.Units, Booked: d.Booked, Available: d.Available,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"roomId": id, "days": out})
}

func (h *Handlers) setPrices(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		From    string           `json:"from" validate:"required"`
		To      string           `json:"to" validate:"required"`
		Price   *decimal.Decimal `json:"price"`
		MinStay *int             `json:"minStay"`
		Closed  *bool            `json:"closed"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := parseDay("from", req.From)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDay("to", req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Pricing.SetPrices(r.Context(), domain.PriceChange{
		RoomID: id, Range: domain.NewDateRange(from, to), Price: req.Price, MinStay: req.MinStay, Closed: req.Closed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roomId": id, "days": n})
}

func (h *Handlers) listAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	as, err := h.Pricing.ListAssignments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]assignmentDTO, 0, len(as))
	for _, a := range as {
		out = append(out, toAssignmentDTO(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) attachPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		PolicyID int64  `json:"policyId" validate:"gt=0"`
		From     string `json:"from" validate:"required"`
		To       string `json:"to" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := parseDay("from", req.From)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDay("to", req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Pricing.AttachPolicy(r.Context(), domain.PolicyAssignment{RoomID: id, PolicyID: req.PolicyID, From: from, To: to})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// ---- rate policies ----

type policyReq struct {
	Code             string          `json:"code" validate:"required,max=32"`
	Name             string          `json:"name" validate:"required,max=128"`
	Refundable       bool            `json:"refundable"`
	CancellationDays int             `json:"cancellationDays" validate:"gte=0,lte=365"`
	PrepayPercent    decimal.Decimal `json:"prepayPercent"`
	MarkupPercent    decimal.Decimal `json:"markupPercent"`
}

func (q policyReq) toDomain() domain.RatePolicy {
	return domain.RatePolicy{
		Code: q.Code, Name: q.Name, Refundable: q.Refundable, CancellationDays: q.CancellationDays,
		PrepayPercent: q.PrepayPercent, MarkupPercent: q.MarkupPercent,
	}
}

func (h *Handlers) listPolicies(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Pricing.ListPolicies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]policyDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPolicyDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) createPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Pricing.CreatePolicy(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(p))
}

func (h *Handlers) getPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Pricing.GetPolicy(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toPolicyDTO(p))
}

func (h *Handlers) updatePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		policyReq
		Active *bool `json:"active"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cur, err := h.Pricing.GetPolicy(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next := req.toDomain()
	next.ID, next.Active = id, cur.Active
	if req.Active != nil {
		next.Active = *req.Active
	}
	p, err := h.Pricing.UpdatePolicy(r.Context(), next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

// ---- quotes ----

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   int64  `json:"roomId" validate:"gt=0"`
		PolicyID int64  `json:"policyId" validate:"gt=0"`
		CheckIn  string `json:"checkIn" validate:"required"`
		CheckOut string `json:"checkOut" validate:"required"`
		Adults   int    `json:"adults" validate:"gte=1"`
		Children int    `json:"children" validate:"gte=0"`
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
	q, err := h.Pricing.Quote(r.Context(), domain.QuoteRequest{
		RoomID: req.RoomID, PolicyID: req.PolicyID, Stay: domain.NewDateRange(in, out),
		Adults: req.Adults, Children: req.Children,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(q))
}
