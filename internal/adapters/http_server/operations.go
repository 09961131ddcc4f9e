package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
)

// ---- cash reconciliation ----

func (h *Handlers) listDeposits(w http.ResponseWriter, r *http.Request) {
	var q domain.CashQuery
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseCashStatus(s)
		if !ok {
			writeError(w, r, domain.Invalid("status", "unknown deposit status %q", s))
			return
		}
		q.Status = &st
	}
	rng, err := queryRange(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q.Range = rng
	if q.Limit, err = queryInt(r, "limit", 60, 1, 366); err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := h.Cash.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]depositDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDepositDTO(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) openDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessDate string `json:"businessDate" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	day, err := parseDay("businessDate", req.BusinessDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Cash.Open(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepositDTO(d))
}

func (h *Handlers) getDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Cash.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toDepositDTO(d))
}

func (h *Handlers) submitDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Counted     decimal.Decimal `json:"counted"`
		SubmittedBy string          `json:"submittedBy" validate:"required,max=64"`
		Note        string          `json:"note" validate:"max=1000"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Cash.Submit(r.Context(), id, req.Counted, req.SubmittedBy, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(d))
}

type reviewReq struct {
	Reviewer string `json:"reviewer" validate:"required,max=64"`
	Note     string `json:"note" validate:"max=1000"`
}

func (h *Handlers) approveDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Cash.Approve(r.Context(), id, req.Reviewer, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(d))
}

func (h *Handlers) rejectDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Reviewer string `json:"reviewer" validate:"required,max=64"`
		Reason   string `json:"reason" validate:"required,max=1000"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Cash.Reject(r.Context(), id, req.Reviewer, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(d))
}

// ---- online check-in ----

type guestIdentity struct {
	Reference string `json:"reference" validate:"required,max=32"`
	LastName  string `json:"lastName" validate:"required,max=128"`
}

func (h *Handlers) checkinLookup(w http.ResponseWriter, r *http.Request) {
	var req guestIdentity
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Checkin.Lookup(r.Context(), req.Reference, req.LastName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckinViewDTO(v))
}

func (h *Handlers) checkinSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		guestIdentity
		DocumentType     string         `json:"documentType" validate:"required,oneof=passport id_card driving_licence"`
		DocumentNumber   string         `json:"documentNumber" validate:"required,max=64"`
		Nationality      string         `json:"nationality" validate:"required,len=2"`
		DateOfBirth      string         `json:"dateOfBirth" validate:"required"`
		Address          string         `json:"address" validate:"required,max=500"`
		ArrivalTime      string         `json:"arrivalTime" validate:"omitempty,datetime=15:04"`
		AdditionalGuests []companionDTO `json:"additionalGuests" validate:"max=20,dive"`
		TermsAccepted    bool           `json:"termsAccepted"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dob, err := parseDay("dateOfBirth", req.DateOfBirth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form := app.CheckinForm{
		DocumentType: domain.DocumentType(req.DocumentType), DocumentNumber: req.DocumentNumber,
		Nationality: strings.ToUpper(req.Nationality), DateOfBirth: dob, Address: req.Address,
		ArrivalTime: req.ArrivalTime, TermsAccepted: req.TermsAccepted,
	}
	for _, g := range req.AdditionalGuests {
		form.AdditionalGuests = append(form.AdditionalGuests, domain.CompanionGuest{FirstName: g.FirstName, LastName: g.LastName})
	}
	c, err := h.Checkin.Submit(r.Context(), req.Reference, req.LastName, form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckinDTO(c))
}

// ---- wedding proposals ----

func (h *Handlers) listProposals(w http.ResponseWriter, r *http.Request) {
	var q domain.ProposalQuery
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseProposalStatus(s)
		if !ok {
			writeError(w, r, domain.Invalid("status", "unknown proposal status %q", s))
			return
		}
		q.Status = &st
	}
	var err error
	if q.Limit, err = queryInt(r, "limit", 100, 1, 500); err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.Weddings.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]proposalDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProposalDTO(p, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) createProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoupleNames    string            `json:"coupleNames" validate:"required,max=255"`
		Email          string            `json:"email" validate:"required,email"`
		EventDate      string            `json:"eventDate" validate:"required"`
		GuestCount     int               `json:"guestCount" validate:"gte=1,lte=2000"`
		DepositPercent decimal.Decimal   `json:"depositPercent"`
		ValidUntil     string            `json:"validUntil"`
		Items          []proposalItemDTO `json:"items" validate:"max=200,dive"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := parseDay("eventDate", req.EventDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := domain.WeddingProposal{
		CoupleNames: req.CoupleNames, Email: req.Email, EventDate: event, GuestCount: req.GuestCount,
		DepositPercent: req.DepositPercent, Items: toItems(req.Items),
	}
	if req.ValidUntil != "" {
		if p.ValidUntil, err = parseDay("validUntil", req.ValidUntil); err != nil {
			writeError(w, r, err)
			return
		}
	}
	created, err := h.Weddings.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProposalDTO(created, false))
}

func (h *Handlers) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Weddings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toProposalDTO(p, false))
}

func (h *Handlers) replaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Items []proposalItemDTO `json:"items" validate:"max=200,dive"`
	}
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Weddings.ReplaceItems(r.Context(), id, toItems(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalDTO(p, false))
}

func (h *Handlers) sendProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Weddings.Send(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalDTO(p, false))
}

// ---- couple portal ----

func (h *Handlers) portalView(w http.ResponseWriter, r *http.Request) {
	p, err := h.Weddings.View(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResource(w, r, toProposalDTO(p, true))
}

type portalReply struct {
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handlers) portalAccept(w http.ResponseWriter, r *http.Request) {
	var req portalReply
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Weddings.Accept(r.Context(), chi.URLParam(r, "token"), req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalDTO(p, true))
}

func (h *Handlers) portalDecline(w http.ResponseWriter, r *http.Request) {
	var req portalReply
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Weddings.Decline(r.Context(), chi.URLParam(r, "token"), req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalDTO(p, true))
}
