// Package beds24 is a client for the Beds24 channel-manager API (v2).
package beds24

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"venue_hotel/internal/adapters/observability"
	"venue_hotel/internal/domain"
)

const (
	service     = "beds24"
	maxAttempts = 4
	pageLimit   = 20 // Beds24 paginates bookings; stop runaway loops
)

// Both wrap ErrUpstream as well, so callers can tell a remote 404/401 from a local one.
var (
	ErrNotFound     = fmt.Errorf("beds24: %w: %w", domain.ErrUpstream, domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("beds24: %w: %w", domain.ErrUpstream, domain.ErrUnauthorized)
)

type Client struct {
	base  string
	token string
	hc    *http.Client
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("beds24 token is required")
	}
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{Timeout: 30 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- wire types ----

type calendarEntry struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Price1   float64 `json:"price1"`
	NumAvail int     `json:"numAvail"`
	MinStay  int     `json:"minStay"`
}

type calendarRoom struct {
	RoomID   int64           `json:"roomId"`
	Calendar []calendarEntry `json:"calendar"`
}

type writeResult struct {
	Success bool     `json:"success"`
	Errors  []apiMsg `json:"errors"`
}

type apiMsg struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type bookingsPage struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data"`
	Pages   struct {
		NextPageExists bool `json:"nextPageExists"`
	} `json:"pages"`
}

// ---- Public API ----

// PushCalendar writes price/availability spans for one Beds24 room.
func (c *Client) PushCalendar(ctx context.Context, beds24RoomID int64, spans []domain.InventorySpan) error {
	if len(spans) == 0 {
		return nil
	}
	room := calendarRoom{RoomID: beds24RoomID, Calendar: make([]calendarEntry, 0, len(spans))}
	for _, s := range spans {
		price, _ := s.Price.Float64()
		room.Calendar = append(room.Calendar, calendarEntry{
			From:     s.From.Format(domain.DayLayout),
			To:       s.To.Format(domain.DayLayout),
			Price1:   price,
			NumAvail: s.NumAvail,
			MinStay:  s.MinStay,
		})
	}
	body, err := json.Marshal([]calendarRoom{room})
	if err != nil {
		return err
	}
	var out []writeResult
	if err := c.do(ctx, http.MethodPost, "/inventory/rooms/calendar", c.base+"/inventory/rooms/calendar", body, &out); err != nil {
		return err
	}
	for _, r := range out {
		if !r.Success {
			msgs := make([]string, 0, len(r.Errors))
			for _, m := range r.Errors {
				msgs = append(msgs, strings.TrimSpace(m.Field+" "+m.Message))
			}
			return fmt.Errorf("%w: beds24 rejected calendar for room %d: %s", domain.ErrUpstream, beds24RoomID, strings.Join(msgs, "; "))
		}
	}
	return nil
}

// FetchBookings returns raw booking payloads modified since the given time, following pagination.
func (c *Client) FetchBookings(ctx context.Context, modifiedSince time.Time) ([]map[string]any, error) {
	var all []map[string]any
	for page := 1; page <= pageLimit; page++ {
		q := url.Values{}
		q.Set("modifiedFrom", modifiedSince.UTC().Format(time.RFC3339))
		q.Set("includeInvoiceItems", "false")
		q.Set("page", strconv.Itoa(page))
		var out bookingsPage
		if err := c.do(ctx, http.MethodGet, "/bookings", c.base+"/bookings?"+q.Encode(), nil, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Data...)
		if !out.Pages.NextPageExists {
			break
		}
	}
	return all, nil
}

// ---- Internals ----

// do performs a request with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, method, endpoint, u string, body []byte, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		req.Header.Set("token", c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "venue-hotel/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", domain.ErrUpstream, lastErr)
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: decode %s: %v", domain.ErrUpstream, endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: remote %d", domain.ErrUpstream, resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: bad status %d: %s", domain.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with up to +50% jitter.
// i = retry attempt (0,1,2,...): 200ms, 400ms, 800ms...
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

// Disabled stands in for the client when no token is configured.
// Every call fails as an upstream error.
type Disabled struct{}

var errDisabled = fmt.Errorf("beds24: %w: BEDS24_TOKEN is not configured", domain.ErrUpstream)

func (Disabled) PushCalendar(context.Context, int64, []domain.InventorySpan) error { return errDisabled }

func (Disabled) FetchBookings(context.Context, time.Time) ([]map[string]any, error) {
	return nil, errDisabled
}
