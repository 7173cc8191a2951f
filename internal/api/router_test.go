package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

const testHost = "host-1"

// routerNow anchors recurrence expansion so feed fixtures with fixed
// dates stay inside the window forever.
var routerNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// stubFetcher serves feed bodies from memory instead of the network.
type stubFetcher struct {
	mu   sync.Mutex
	body []byte
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *stubFetcher) serve(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
	f.err = nil
}

func (f *stubFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// testServer runs the full router against a throwaway SQLite database
// with one seeded property.
type testServer struct {
	server   *httptest.Server
	fetcher  *stubFetcher
	hub      *notify.Hub
	property *models.Property
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Discard()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db, log); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	properties := storage.NewPropertyRepository(db)
	bookings := storage.NewBookingRepository(db)
	connections := storage.NewConnectionRepository(db)
	events := storage.NewEventRepository(db)
	dates := storage.NewUnavailableDateRepository(db)

	hub := notify.NewHub(log)
	go hub.Run()
	notifier := notify.NewHubNotifier(hub, log)

	fetcher := &stubFetcher{}
	projector := calendar.NewProjector(db, dates, log)
	syncSvc := calendar.NewSyncService(
		db, properties, connections, events,
		fetcher, ical.NewParser(log), projector, notifier, log,
		calendar.SyncConfig{Expand: ical.ExpandOptions{Now: routerNow}},
	)

	deps := Deps{
		DB:          db,
		Properties:  properties,
		Connections: connections,
		Events:      events,
		Dates:       dates,
		Registry:    calendar.NewRegistry(db, properties, connections, events, dates, syncSvc, log),
		Sync:        syncSvc,
		Exporter:    calendar.NewExporter(properties, bookings, events, dates),
		Manual:      calendar.NewManualService(db, properties, events, dates, projector, log),
		Bookings:    calendar.NewBookingService(properties, bookings, dates, projector, notifier, log),
		Hub:         hub,
		Log:         log,
	}

	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)

	property := &models.Property{HostID: testHost, Name: "Seaside Cottage"}
	if err := properties.Create(context.Background(), property); err != nil {
		t.Fatalf("seeding property: %v", err)
	}

	return &testServer{
		server:   server,
		fetcher:  fetcher,
		hub:      hub,
		property: property,
	}
}

// path builds a property-scoped API path.
func (ts *testServer) path(suffix string) string {
	return "/api/properties/" + ts.property.ID + suffix
}

// do sends a request with the given host header and optional JSON body.
func (ts *testServer) do(t *testing.T, method, path, hostID string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if hostID != "" {
		req.Header.Set("X-Host-ID", hostID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func decodeAPIError(t *testing.T, resp *http.Response) middleware.ErrorResponse {
	t.Helper()
	var apiErr middleware.ErrorResponse
	decodeBody(t, resp, &apiErr)
	return apiErr
}

// reservedFeed renders a feed with one all-day reservation.
func reservedFeed(uid, start, end string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN",
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"DTSTAMP:20250301T000000Z",
		"UID:" + uid,
		"DTSTART;VALUE=DATE:" + start,
		"DTEND;VALUE=DATE:" + end,
		"SUMMARY:Reserved",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}
	return []byte(strings.Join(lines, "\r\n"))
}

func TestRouterRequiresHostHeader(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, ts.path("/calendar-connections"), "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Error != middleware.ErrUnauthorized {
		t.Errorf("error code = %q, want %q", apiErr.Error, middleware.ErrUnauthorized)
	}

	// Health stays open for load balancer probes.
	if resp := ts.do(t, http.MethodGet, "/api/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status      string `json:"status"`
		DBConnected bool   `json:"db_connected"`
	}
	decodeBody(t, resp, &health)
	if health.Status != "healthy" {
		t.Errorf("status = %q, want %q", health.Status, "healthy")
	}
	if !health.DBConnected {
		t.Error("db_connected = false, want true")
	}
}

func TestConnectFeedRunsFirstSync(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.serve(reservedFeed("res-1", "20250320", "20250323"))

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections"), testHost, map[string]string{
		"source": "airbnb",
		"url":    "webcal://feeds.example.com/abc.ics?s=secret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got struct {
		Connection *models.CalendarConnection `json:"connection"`
		Sync       *models.SyncResult         `json:"sync"`
	}
	decodeBody(t, resp, &got)

	if got.Connection == nil || got.Sync == nil {
		t.Fatalf("response missing connection or sync: %+v", got)
	}
	if !strings.HasPrefix(got.Connection.URL, "https://") {
		t.Errorf("stored URL = %q, want webcal rewritten to https", got.Connection.URL)
	}
	if got.Connection.LastSyncedAt == nil {
		t.Error("LastSyncedAt = nil, want set after first pass")
	}
	if got.Sync.EventsFound != 1 || got.Sync.Added != 1 {
		t.Errorf("sync = found %d added %d, want 1 and 1", got.Sync.EventsFound, got.Sync.Added)
	}

	list := ts.do(t, http.MethodGet, ts.path("/calendar-connections"), testHost, nil)
	var connections []models.CalendarConnection
	decodeBody(t, list, &connections)
	if len(connections) != 1 {
		t.Errorf("listed %d connections, want 1", len(connections))
	}
}

func TestConnectFeedValidationDetails(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections"), testHost, map[string]string{
		"source": "ebay",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	apiErr := decodeAPIError(t, resp)
	if apiErr.Error != middleware.ErrValidation {
		t.Fatalf("error code = %q, want %q", apiErr.Error, middleware.ErrValidation)
	}
	details, ok := apiErr.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %T, want a field map", apiErr.Details)
	}
	if details["Source"] != "oneof" {
		t.Errorf("details[Source] = %v, want %q", details["Source"], "oneof")
	}
	if details["URL"] != "required" {
		t.Errorf("details[URL] = %v, want %q", details["URL"], "required")
	}
}

func TestForeignHostSeesNothing(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.serve(reservedFeed("res-1", "20250320", "20250323"))

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections"), "host-2", map[string]string{
		"source": "airbnb",
		"url":    "https://feeds.example.com/abc.ics",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Error != middleware.ErrNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Error, middleware.ErrNotFound)
	}
}

func TestSyncConnectionMapsFeedErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.serve(reservedFeed("res-1", "20250320", "20250323"))

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections"), testHost, map[string]string{
		"source": "airbnb",
		"url":    "https://feeds.example.com/abc.ics",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("connect status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	syncPath := ts.path("/calendar-connections/airbnb/sync")

	tests := []struct {
		name       string
		setup      func()
		wantStatus int
		wantCode   string
	}{
		{
			name:       "feed down",
			setup:      func() { ts.fetcher.fail(&ical.FetchError{URL: "https://feeds.example.com/abc.ics", Status: 503, Transient: true}) },
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   middleware.ErrFeedUnreachable,
		},
		{
			name:       "feed rejects us",
			setup:      func() { ts.fetcher.fail(&ical.FetchError{URL: "https://feeds.example.com/abc.ics", Status: 403}) },
			wantStatus: http.StatusBadGateway,
			wantCode:   middleware.ErrFeedRejected,
		},
		{
			name:       "feed serves garbage",
			setup:      func() { ts.fetcher.serve([]byte("<html>maintenance</html>")) },
			wantStatus: http.StatusBadGateway,
			wantCode:   middleware.ErrFeedInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			resp := ts.do(t, http.MethodPost, syncPath, testHost, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if apiErr := decodeAPIError(t, resp); apiErr.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", apiErr.Error, tt.wantCode)
			}
		})
	}

	t.Run("recovers once the feed is back", func(t *testing.T) {
		ts.fetcher.serve(reservedFeed("res-1", "20250320", "20250323"))
		resp := ts.do(t, http.MethodPost, syncPath, testHost, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var result models.SyncResult
		decodeBody(t, resp, &result)
		if result.EventsFound != 1 {
			t.Errorf("events_found = %d, want 1", result.EventsFound)
		}
	})
}

func TestSyncConnectionUnknownSource(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections/other/sync"), testHost, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestBatchSyncKeepsErrorsInResults(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.serve(reservedFeed("res-1", "20250320", "20250323"))

	if resp := ts.do(t, http.MethodPost, ts.path("/calendar-connections"), testHost, map[string]string{
		"source": "airbnb",
		"url":    "https://feeds.example.com/abc.ics",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("connect status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	// A broken feed fails the connection's result, not the request.
	ts.fetcher.fail(&ical.FetchError{URL: "https://feeds.example.com/abc.ics", Status: 503, Transient: true})

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-sync"), testHost, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got struct {
		Results []models.SyncResult `json:"results"`
	}
	decodeBody(t, resp, &got)
	if len(got.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(got.Results))
	}
	if got.Results[0].ErrorMessage == "" {
		t.Error("result carries no error message, want the fetch failure")
	}
}

func TestExportCalendarDownload(t *testing.T) {
	ts := newTestServer(t)

	if resp := ts.do(t, http.MethodPost, ts.path("/blocked-dates"), testHost, map[string]string{
		"start_date": "2025-05-01",
		"end_date":   "2025-05-04",
		"reason":     "Renovation",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("block status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp := ts.do(t, http.MethodGet, ts.path("/calendar.ics"), testHost, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "calendar.ics") {
		t.Errorf("Content-Disposition = %q, want a calendar.ics attachment", cd)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	ics := string(body)
	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR") {
		t.Errorf("body does not start with BEGIN:VCALENDAR:\n%s", ics)
	}
	if !strings.Contains(ics, "DTSTART:20250501T000000Z") {
		t.Errorf("body missing blocked range start:\n%s", ics)
	}
}

func TestBlockedDatesLifecycle(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{
		"start_date": "2025-05-01",
		"end_date":   "2025-05-04",
		"reason":     "Painting",
	}

	resp := ts.do(t, http.MethodPost, ts.path("/blocked-dates"), testHost, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("block status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var blocked struct {
		Days int `json:"days"`
	}
	decodeBody(t, resp, &blocked)
	if blocked.Days != 3 {
		t.Errorf("blocked %d days, want 3", blocked.Days)
	}

	resp = ts.do(t, http.MethodDelete, ts.path("/blocked-dates"), testHost, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unblock status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var unblocked struct {
		Days int `json:"days"`
	}
	decodeBody(t, resp, &unblocked)
	if unblocked.Days != 3 {
		t.Errorf("unblocked %d days, want 3", unblocked.Days)
	}
}

func TestManualEventLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, ts.path("/calendar-events"), testHost, map[string]string{
		"summary":    "Family stay",
		"start_date": "2025-05-01",
		"end_date":   "2025-05-03",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var event models.CalendarEvent
	decodeBody(t, resp, &event)
	if event.ID == "" {
		t.Fatal("created event has no id")
	}
	if event.Source != models.SourceManual {
		t.Errorf("source = %q, want %q", event.Source, models.SourceManual)
	}

	resp = ts.do(t, http.MethodDelete, ts.path("/calendar-events/"+event.ID), testHost, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = ts.do(t, http.MethodDelete, ts.path("/calendar-events/"+event.ID), testHost, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestBookingEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, ts.path("/bookings"), testHost, map[string]string{
		"guest_name": "Jane Doe",
		"check_in":   "2025-04-01",
		"check_out":  "2025-04-04",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var booking models.Booking
	decodeBody(t, resp, &booking)
	if booking.Status != models.BookingStatusConfirmed {
		t.Errorf("status = %q, want %q", booking.Status, models.BookingStatusConfirmed)
	}

	resp = ts.do(t, http.MethodPost, ts.path("/bookings"), testHost, map[string]string{
		"guest_name": "John Roe",
		"check_in":   "2025-04-03",
		"check_out":  "2025-04-06",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overlap status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Error != middleware.ErrConflict {
		t.Errorf("error code = %q, want %q", apiErr.Error, middleware.ErrConflict)
	}

	resp = ts.do(t, http.MethodDelete, ts.path("/bookings/"+booking.ID), testHost, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var cancelled models.Booking
	decodeBody(t, resp, &cancelled)
	if cancelled.Status != models.BookingStatusCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, models.BookingStatusCancelled)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	ts := newTestServer(t)

	if resp := ts.do(t, http.MethodPost, ts.path("/blocked-dates"), testHost, map[string]string{
		"start_date": "2025-05-01",
		"end_date":   "2025-05-04",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("block status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp := ts.do(t, http.MethodGet, "/api/status", testHost, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var status struct {
		PropertiesCount  int    `json:"properties_count"`
		ConnectionsCount int    `json:"connections_count"`
		EventsCount      int    `json:"events_count"`
		BlockedDays      int    `json:"blocked_days"`
		ConnectedClients int    `json:"connected_clients"`
		NextSyncAt       string `json:"next_sync_at"`
	}
	decodeBody(t, resp, &status)

	if status.PropertiesCount != 1 {
		t.Errorf("properties_count = %d, want 1", status.PropertiesCount)
	}
	if status.ConnectionsCount != 0 {
		t.Errorf("connections_count = %d, want 0", status.ConnectionsCount)
	}
	if status.BlockedDays != 3 {
		t.Errorf("blocked_days = %d, want 3", status.BlockedDays)
	}
	if status.NextSyncAt != "" {
		t.Errorf("next_sync_at = %q, want empty without a scheduler", status.NextSyncAt)
	}
}

func TestWebSocketPingPong(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("upgrade status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("sending ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading pong: %v", err)
	}

	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		t.Fatalf("decoding pong: %v", err)
	}
	if msg.Type != string(notify.TypePong) {
		t.Errorf("message type = %q, want %q", msg.Type, notify.TypePong)
	}
}
