package calendar

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// findExport returns the first VEVENT whose UID starts with the prefix.
func findExport(t *testing.T, cal *ics.Calendar, prefix string) *ics.VEvent {
	t.Helper()
	for _, ev := range cal.Events() {
		p := ev.GetProperty(ics.ComponentPropertyUniqueId)
		if p != nil && strings.HasPrefix(p.Value, prefix) {
			return ev
		}
	}
	t.Fatalf("no exported event with UID prefix %q", prefix)
	return nil
}

func TestExportMergesAllSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.bookingSvc.Create(ctx, env.access, env.property.ID, BookingRequest{
		GuestName:  "Jane Doe",
		GuestEmail: "jane@example.com",
		CheckIn:    day("2025-04-01"),
		CheckOut:   day("2025-04-04"),
	})
	if err != nil {
		t.Fatalf("creating booking: %v", err)
	}
	if _, err := env.manual.Block(ctx, env.access, env.property.ID, day("2025-05-10"), day("2025-05-11"), "Renovation"); err != nil {
		t.Fatalf("blocking dates: %v", err)
	}
	imported := seedImportedEvent(t, env, "uid-1", "Airbnb (Not available)", "2025-03-20", "2025-03-23")

	data, err := env.exporter.Export(ctx, env.access, env.property.ID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("export does not parse: %v", err)
	}
	if got := len(cal.Events()); got != 3 {
		t.Fatalf("got %d exported events, want 3", got)
	}

	reserved := findExport(t, cal, "booking-"+booking.ID)
	if p := reserved.GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "Reserved" {
		t.Errorf("booking summary = %v, want Reserved", p)
	}
	start, err := reserved.GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt() error = %v", err)
	}
	if want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("booking start = %v, want %v", start, want)
	}
	end, err := reserved.GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt() error = %v", err)
	}
	if want := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("booking end = %v, want %v (checkout exclusive)", end, want)
	}

	block := findExport(t, cal, "blocked-")
	if p := block.GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "Renovation" {
		t.Errorf("block summary = %v, want Renovation", p)
	}

	findExport(t, cal, "event-"+imported.ID)

	// Guest details stay out of the shared feed.
	if s := string(data); strings.Contains(s, "Jane") || strings.Contains(s, "jane@example.com") {
		t.Error("export leaks guest details")
	}
}

func TestExportKeepsStoredRanges(t *testing.T) {
	env := newTestEnv(t)
	seedImportedEvent(t, env, "uid-1", "Reserved", "2025-03-20", "2025-03-23")

	data, err := env.exporter.Export(context.Background(), env.access, env.property.ID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("export does not parse: %v", err)
	}
	end, err := cal.Events()[0].GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt() error = %v", err)
	}
	// Stored ends are already exclusive; the export must not widen them.
	if want := time.Date(2025, 3, 23, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestExportEmptyPropertyIsValid(t *testing.T) {
	env := newTestEnv(t)

	data, err := env.exporter.Export(context.Background(), env.access, env.property.ID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("export does not parse: %v", err)
	}
	if got := len(cal.Events()); got != 0 {
		t.Errorf("got %d events, want 0", got)
	}
}

func TestExportForeignHostLooksMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.exporter.Export(context.Background(), models.Access{HostID: "host-2"}, env.property.ID)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}
