package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct {
	Pricing  *app.PricingService
	Bookings *app.BookingService
	Payments *app.PaymentService
	Cash     *app.CashService
	Checkin  *app.CheckinService
	Weddings *app.WeddingService
	Channel  *app.ChannelSyncService

	StaffAPIKey    string
	SyncWindowDays int

	validate *validator.Validate
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	h.validate = newValidator()
	if h.SyncWindowDays <= 0 {
		h.SyncWindowDays = 180
	}

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// guest-facing
	s.mux.Post("/v1/quotes", h.quote)
	s.mux.Post("/v1/checkin/lookup", h.checkinLookup)
	s.mux.Post("/v1/checkin/submit", h.checkinSubmit)
	s.mux.Get("/v1/portal/proposals/{token}", h.portalView)
	s.mux.Post("/v1/portal/proposals/{token}/accept", h.portalAccept)
	s.mux.Post("/v1/portal/proposals/{token}/decline", h.portalDecline)

	// staff
	s.mux.Group(func(r chi.Router) {
		r.Use(APIKey(h.StaffAPIKey))

		r.Get("/v1/rooms", h.listRooms)
		r.Post("/v1/rooms", h.createRoom)
		r.Get("/v1/rooms/{id}", h.getRoom)
		r.Put("/v1/rooms/{id}", h.updateRoom)
		r.Post("/v1/rooms/{id}/deactivate", h.deactivateRoom)
		r.Get("/v1/rooms/{id}/calendar", h.calendar)
		r.Put("/v1/rooms/{id}/prices", h.setPrices)
		r.Get("/v1/rooms/{id}/policies", h.listAssignments)
		r.Post("/v1/rooms/{id}/policies", h.attachPolicy)

		r.Get("/v1/policies", h.listPolicies)
		r.Post("/v1/policies", h.createPolicy)
		r.Get("/v1/policies/{id}", h.getPolicy)
		r.Put("/v1/policies/{id}", h.updatePolicy)

		r.Get("/v1/bookings", h.listBookings)
		r.Post("/v1/bookings", h.createBooking)
		r.Get("/v1/bookings/{id}", h.getBooking)
		r.Get("/v1/bookings/by-reference/{ref}", h.getBookingByReference)
		r.Post("/v1/bookings/{id}/status", h.changeStatus)
		r.Post("/v1/bookings/{id}/cancel", h.cancelBooking)
		r.Post("/v1/bookings/{id}/payments", h.recordPayment)
		r.Get("/v1/bookings/{id}/ledger", h.ledger)
		r.Get("/v1/bookings/{id}/checkin", h.getCheckin)

		r.Get("/v1/cash/deposits", h.listDeposits)
		r.Post("/v1/cash/deposits", h.openDeposit)
		r.Get("/v1/cash/deposits/{id}", h.getDeposit)
		r.Post("/v1/cash/deposits/{id}/submit", h.submitDeposit)
		r.Post("/v1/cash/deposits/{id}/approve", h.approveDeposit)
		r.Post("/v1/cash/deposits/{id}/reject", h.rejectDeposit)

		r.Get("/v1/weddings/proposals", h.listProposals)
		r.Post("/v1/weddings/proposals", h.createProposal)
		r.Get("/v1/weddings/proposals/{id}", h.getProposal)
		r.Put("/v1/weddings/proposals/{id}/items", h.replaceItems)
		r.Post("/v1/weddings/proposals/{id}/send", h.sendProposal)

		r.Get("/v1/channel/mappings", h.listMappings)
		r.Post("/v1/channel/mappings", h.createMapping)
		r.Delete("/v1/channel/mappings/{id}", h.deleteMapping)
		r.Post("/v1/channel/push", h.push)
		r.Post("/v1/channel/pull", h.pull)
		r.Get("/v1/channel/logs", h.syncLogs)
	})
}

// ---- request helpers ----

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation.
func (h *Handlers) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	// an empty body decodes as {} and falls through to validation
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.Invalid("body", "invalid JSON: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			field := fe.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = strings.TrimLeft(field[i+1:], ".")
			}
			return domain.Invalid(field, "failed %q check", fe.Tag())
		}
		return domain.Invalid("body", "%v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name, "must be a positive number")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, domain.Invalid(name, "must be an integer between %d and %d", lo, hi)
	}
	return n, nil
}

// queryRange parses ?from=&to= as a half-open day range.
func queryRange(r *http.Request, required bool) (*domain.DateRange, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" && !required {
		return nil, nil
	}
	f, err := domain.ParseDay(from)
	if err != nil {
		return nil, domain.Invalid("from", "must be YYYY-MM-DD")
	}
	t, err := domain.ParseDay(to)
	if err != nil {
		return nil, domain.Invalid("to", "must be YYYY-MM-DD")
	}
	dr := domain.NewDateRange(f, t)
	if err := dr.Validate("range", domain.MaxWindowDays); err != nil {
		return nil, err
	}
	return &dr, nil
}

// parseDay parses a required YYYY-MM-DD body field.
func parseDay(field, s string) (time.Time, error) {
	d, err := domain.ParseDay(s)
	if err != nil {
		return time.Time{}, domain.Invalid(field, "must be YYYY-MM-DD")
	}
	return d, nil
}

// ---- response helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, domain.ErrUpstream):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		writeProblem(w, http.StatusBadGateway, "Upstream error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, http.StatusUnprocessableEntity, "Unavailable", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeResource serves a single resource with a weak ETag, answering 304 on a match.
func writeResource(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "encode failed")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write resource body")
	}
}
