//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"venue_hotel/internal/adapters/beds24"
	server "venue_hotel/internal/adapters/http_server"
	redisad "venue_hotel/internal/adapters/redis"
	"venue_hotel/internal/app"
	"venue_hotel/internal/domain"
	"venue_hotel/internal/storage/memory"
	mysqlrepo "venue_hotel/internal/storage/mysql"
)

var fixedNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// ---------- helpers ----------

func startMySQL(t *testing.T) *sqlx.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=venue"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/venue?parseTime=true&charset=utf8mb4&loc=UTC", resource.GetPort("3306/tcp"))
	pool.MaxWait = 2 * time.Minute
	var db *sqlx.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sqlx.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := mysqlrepo.Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// fakeBeds24 serves the two endpoints the client uses. Each bookings fetch
// returns the next scripted page.
type fakeBeds24 struct {
	mu       sync.Mutex
	pushes   [][]map[string]any
	bookings [][]map[string]any
	fetches  int
}

func (f *fakeBeds24) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/inventory/rooms/calendar":
		var body []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.pushes = append(f.pushes, body)
		_, _ = io.WriteString(w, `[{"success":true}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/bookings":
		var data []map[string]any
		if f.fetches < len(f.bookings) {
			data = f.bookings[f.fetches]
		}
		f.fetches++
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data, "pages": map[string]any{"nextPageExists": false}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type stack struct {
	url   string
	beds  *fakeBeds24
	store domain.Store
}

func newStack(t *testing.T, store domain.Store) *stack {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	fb := &fakeBeds24{}
	bs := httptest.NewServer(fb)
	t.Cleanup(bs.Close)
	client, err := beds24.New(bs.URL, "test-token", 100)
	if err != nil {
		t.Fatalf("beds24.New: %v", err)
	}

	clock := func() time.Time { return fixedNow }
	pricing := app.NewPricingService(store, store, store, cache, time.Minute, "EUR")
	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Pricing:        pricing,
		Bookings:       app.NewBookingService(pricing, store, store, store).WithClock(clock),
		Payments:       app.NewPaymentService(store, store).WithClock(clock),
		Cash:           app.NewCashService(store, store, decimal.Zero).WithClock(clock),
		Checkin:        app.NewCheckinService(store, store, store, 3).WithClock(clock),
		Weddings:       app.NewWeddingService(store, 30).WithClock(clock),
		Channel:        app.NewChannelSyncService(client, store, store, store, pricing, 2).WithClock(clock),
		SyncWindowDays: 60,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &stack{url: ts.URL, beds: fb, store: store}
}

func (s *stack) call(t *testing.T, method, path string, body any, want int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, s.url+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: want %d, got %d: %s", method, path, want, resp.StatusCode, raw)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return out
}

func id(m map[string]any) int64 { return int64(m["id"].(float64)) }

func availability(t *testing.T, s *stack, roomID int64, from, to string) []float64 {
	t.Helper()
	cal := s.call(t, http.MethodGet, fmt.Sprintf("/v1/rooms/%d/calendar?from=%s&to=%s", roomID, from, to), nil, http.StatusOK)
	var out []float64
	for _, d := range cal["days"].([]any) {
		out = append(out, d.(map[string]any)["available"].(float64))
	}
	return out
}

// ---------- scenario ----------

func runScenario(t *testing.T, s *stack) {
	room := s.call(t, http.MethodPost, "/v1/rooms", map[string]any{
		"code": "twn", "name": "Twin", "capacity": 2, "units": 2, "basePrice": "80",
	}, http.StatusCreated)
	roomID := id(room)
	pol := s.call(t, http.MethodPost, "/v1/policies", map[string]any{
		"code": "payhotel", "name": "Pay at hotel", "refundable": false, "prepayPercent": "0", "markupPercent": "10",
	}, http.StatusCreated)
	s.call(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/policies", roomID), map[string]any{
		"policyId": id(pol), "from": "2026-10-01", "to": "2027-01-01",
	}, http.StatusCreated)
	s.call(t, http.MethodPost, "/v1/channel/mappings", map[string]any{"roomId": roomID, "beds24RoomId": 501}, http.StatusCreated)

	// direct booking with nothing to prepay is confirmed at once
	b := s.call(t, http.MethodPost, "/v1/bookings", map[string]any{
		"roomId": roomID, "policyId": id(pol), "checkIn": "2026-11-10", "checkOut": "2026-11-12", "adults": 1,
		"guest": map[string]any{"firstName": "Ana", "lastName": "Diaz"},
	}, http.StatusCreated)
	if b["status"] != "confirmed" || b["total"] != "176" {
		t.Fatalf("unexpected booking: %v", b)
	}
	if got := availability(t, s, roomID, "2026-11-10", "2026-11-12"); got[0] != 1 || got[1] != 1 {
		t.Fatalf("availability after direct booking: %v", got)
	}

	// a channel booking arrives, then is cancelled on the channel
	channelBooking := map[string]any{
		"id": 9001, "roomId": 501, "status": "confirmed", "firstName": "Li", "lastName": "Wei",
		"numAdult": 2, "arrival": "2026-11-11", "departure": "2026-11-13", "price": 190,
	}
	cancelled := map[string]any{}
	for k, v := range channelBooking {
		cancelled[k] = v
	}
	cancelled["status"] = "cancelled"
	s.beds.bookings = [][]map[string]any{{channelBooking}, {cancelled}}

	pull := s.call(t, http.MethodPost, "/v1/channel/pull", nil, http.StatusOK)
	if pull["created"] != float64(1) || pull["fetched"] != float64(1) {
		t.Fatalf("first pull: %v", pull)
	}
	// cached window must have been invalidated by the import
	if got := availability(t, s, roomID, "2026-11-10", "2026-11-12"); got[0] != 1 || got[1] != 0 {
		t.Fatalf("availability after channel booking: %v", got)
	}

	push := s.call(t, http.MethodPost, "/v1/channel/push", map[string]any{"roomId": roomID, "from": "2026-11-10", "to": "2026-11-14"}, http.StatusOK)
	if push["ok"] != true || push["ranges"] != float64(4) {
		t.Fatalf("push: %v", push)
	}
	sent := s.beds.pushes[len(s.beds.pushes)-1][0]
	if sent["roomId"] != float64(501) || len(sent["calendar"].([]any)) != 4 {
		t.Fatalf("unexpected push body: %v", sent)
	}

	pull = s.call(t, http.MethodPost, "/v1/channel/pull", nil, http.StatusOK)
	if pull["updated"] != float64(1) {
		t.Fatalf("second pull: %v", pull)
	}
	if got := availability(t, s, roomID, "2026-11-10", "2026-11-12"); got[1] != 1 {
		t.Fatalf("availability after channel cancellation: %v", got)
	}
	logs := s.call(t, http.MethodGet, "/v1/channel/logs", nil, http.StatusOK)
	if n := len(logs["items"].([]any)); n != 3 {
		t.Fatalf("expected 3 sync logs, got %d", n)
	}

	// cash taken at the desk reconciles against the day's deposit
	s.call(t, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/payments", id(b)), map[string]any{
		"kind": "balance", "method": "cash", "amount": "176", "receivedAt": "2026-09-30T18:00:00Z", "recordedBy": "desk",
	}, http.StatusCreated)
	dep := s.call(t, http.MethodPost, "/v1/cash/deposits", map[string]any{"businessDate": "2026-09-30"}, http.StatusCreated)
	if dep["expected"] != "176" {
		t.Fatalf("expected cash: %v", dep)
	}
	dep = s.call(t, http.MethodPost, fmt.Sprintf("/v1/cash/deposits/%d/submit", id(dep)), map[string]any{
		"counted": "170", "submittedBy": "night-audit",
	}, http.StatusOK)
	if dep["discrepancy"] != "-6" {
		t.Fatalf("discrepancy: %v", dep)
	}
	s.call(t, http.MethodPost, fmt.Sprintf("/v1/cash/deposits/%d/approve", id(dep)), map[string]any{"reviewer": "manager"}, http.StatusBadRequest)
	dep = s.call(t, http.MethodPost, fmt.Sprintf("/v1/cash/deposits/%d/approve", id(dep)), map[string]any{
		"reviewer": "manager", "note": "short change given",
	}, http.StatusOK)
	if dep["status"] != "approved" {
		t.Fatalf("deposit status: %v", dep)
	}
}

func TestE2E_Memory(t *testing.T) {
	runScenario(t, newStack(t, memory.New()))
}

func TestE2E_MySQL(t *testing.T) {
	db := startMySQL(t)
	runScenario(t, newStack(t, mysqlrepo.New(db)))
}
