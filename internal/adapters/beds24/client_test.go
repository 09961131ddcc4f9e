package beds24_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/adapters/beds24"
	"venue_hotel/internal/domain"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClient_PushCalendar_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var got []map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory/rooms/calendar" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("token") != "test-token" {
			t.Errorf("missing token header")
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode([]map[string]any{{"success": true}})
		}
	}))
	defer ts.Close()

	cl, err := beds24.New(ts.URL, "test-token", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	spans := []domain.InventorySpan{
		{From: day("2026-11-01"), To: day("2026-11-03"), Price: decimal.RequireFromString("120.50"), NumAvail: 2, MinStay: 1},
		{From: day("2026-11-04"), To: day("2026-11-04"), Price: decimal.RequireFromString("150"), NumAvail: 0, MinStay: 2},
	}
	if err := cl.PushCalendar(ctx, 777, spans); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
	if len(got) != 1 || got[0]["roomId"].(float64) != 777 {
		t.Fatalf("unexpected body: %+v", got)
	}
	cal := got[0]["calendar"].([]any)
	first := cal[0].(map[string]any)
	if first["from"] != "2026-11-01" || first["to"] != "2026-11-03" || first["price1"].(float64) != 120.5 {
		t.Fatalf("unexpected first entry: %+v", first)
	}
}

func TestClient_PushCalendar_RejectedIsUpstream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"success": false,
			"errors":  []map[string]any{{"field": "roomId", "message": "unknown room"}},
		}})
	}))
	defer ts.Close()

	cl, _ := beds24.New(ts.URL, "t", 100)
	err := cl.PushCalendar(context.Background(), 1, []domain.InventorySpan{{From: day("2026-11-01"), To: day("2026-11-01"), Price: decimal.NewFromInt(1)}})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClient_FetchBookings_Paginates(t *testing.T) {
	var pages int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("modifiedFrom") == "" {
			t.Errorf("modifiedFrom missing")
		}
		n := atomic.AddInt32(&pages, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": float64(n)}},
			"pages":   map[string]any{"nextPageExists": n < 2},
		})
	}))
	defer ts.Close()

	cl, _ := beds24.New(ts.URL, "t", 100)
	items, err := cl.FetchBookings(context.Background(), day("2026-10-01"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(items) != 2 || pages != 2 {
		t.Fatalf("expected 2 items over 2 pages, got %d items, %d pages", len(items), pages)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := beds24.New(ts.URL, "bad", 100)
	_, err := cl.FetchBookings(context.Background(), time.Now())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := beds24.New("http://x", "", 1); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestDisabled_FailsAsUpstream(t *testing.T) {
	var c domain.ChannelClient = beds24.Disabled{}
	if err := c.PushCalendar(context.Background(), 1, nil); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := c.FetchBookings(context.Background(), time.Now()); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
