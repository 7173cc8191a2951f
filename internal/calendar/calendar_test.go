package calendar

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// testNow anchors recurrence expansion so feeds with fixed dates stay
// inside the window forever.
var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// stubFetcher serves feed bodies from memory instead of the network.
// When fn is set it decides per URL; otherwise every fetch returns the
// same body or error.
type stubFetcher struct {
	mu    sync.Mutex
	body  []byte
	err   error
	fn    func(url string) ([]byte, error)
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fn != nil {
		return f.fn(url)
	}
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

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []models.SyncResult
	failed    []models.SyncResult
	confirmed []*models.Booking
	cancelled []*models.Booking
}

func (n *recordingNotifier) SyncCompleted(result models.SyncResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, result)
}

func (n *recordingNotifier) SyncFailed(result models.SyncResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, result)
}

func (n *recordingNotifier) BookingConfirmed(booking *models.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, booking)
}

func (n *recordingNotifier) BookingCancelled(booking *models.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, booking)
}

// testEnv wires the full engine against a throwaway SQLite database with
// one seeded property.
type testEnv struct {
	db          *storage.DB
	properties  *storage.PropertyRepository
	bookings    *storage.BookingRepository
	connections *storage.ConnectionRepository
	events      *storage.EventRepository
	dates       *storage.UnavailableDateRepository

	fetcher  *stubFetcher
	notifier *recordingNotifier

	projector  *Projector
	sync       *SyncService
	registry   *Registry
	exporter   *Exporter
	manual     *ManualService
	bookingSvc *BookingService

	property *models.Property
	access   models.Access
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:          db,
		properties:  storage.NewPropertyRepository(db),
		bookings:    storage.NewBookingRepository(db),
		connections: storage.NewConnectionRepository(db),
		events:      storage.NewEventRepository(db),
		dates:       storage.NewUnavailableDateRepository(db),
		fetcher:     &stubFetcher{},
		notifier:    &recordingNotifier{},
	}

	env.projector = NewProjector(db, env.dates, log)
	env.sync = NewSyncService(
		db, env.properties, env.connections, env.events,
		env.fetcher, ical.NewParser(log), env.projector, env.notifier, log,
		SyncConfig{Expand: ical.ExpandOptions{Now: testNow}},
	)
	env.registry = NewRegistry(db, env.properties, env.connections, env.events, env.dates, env.sync, log)
	env.exporter = NewExporter(env.properties, env.bookings, env.events, env.dates)
	env.manual = NewManualService(db, env.properties, env.events, env.dates, env.projector, log)
	env.bookingSvc = NewBookingService(env.properties, env.bookings, env.dates, env.projector, env.notifier, log)

	env.property = &models.Property{HostID: "host-1", Name: "Seaside Cottage"}
	if err := env.properties.Create(context.Background(), env.property); err != nil {
		t.Fatalf("seeding property: %v", err)
	}
	env.access = models.Access{HostID: "host-1"}

	return env
}

// connect seeds a connection and returns it without syncing.
func (env *testEnv) connect(t *testing.T, source models.Source) *models.CalendarConnection {
	t.Helper()
	conn, err := env.connections.Upsert(context.Background(), &models.CalendarConnection{
		PropertyID: env.property.ID,
		Source:     source,
		URL:        "https://feeds.example.com/" + string(source) + ".ics",
	})
	if err != nil {
		t.Fatalf("seeding connection: %v", err)
	}
	return conn
}

// blockedDates returns the property's unavailable dates as a set of
// YYYY-MM-DD strings.
func (env *testEnv) blockedDates(t *testing.T) map[string]models.UnavailableDate {
	t.Helper()
	days, err := env.dates.ListByProperty(context.Background(), env.property.ID)
	if err != nil {
		t.Fatalf("listing unavailable dates: %v", err)
	}
	byDate := make(map[string]models.UnavailableDate, len(days))
	for _, day := range days {
		byDate[models.FormatDate(day.Date)] = day
	}
	return byDate
}

// icalFeed builds a feed body with proper CRLF line endings.
func icalFeed(body ...string) []byte {
	lines := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN",
		"CALSCALE:GREGORIAN",
	}, body...)
	lines = append(lines, "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

// allDayEvent renders one date-only VEVENT block.
func allDayEvent(uid, summary, start, end string) []string {
	return []string{
		"BEGIN:VEVENT",
		"DTSTAMP:20250301T000000Z",
		"UID:" + uid,
		"DTSTART;VALUE=DATE:" + start,
		"DTEND;VALUE=DATE:" + end,
		"SUMMARY:" + summary,
		"END:VEVENT",
	}
}

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
