package calendar

import (
	"context"
	"fmt"

	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// Exporter assembles a property's merged availability feed: confirmed
// bookings, manual blocks and imported events in one iCalendar document
// for Airbnb and the other platforms to subscribe to.
type Exporter struct {
	properties *storage.PropertyRepository
	bookings   *storage.BookingRepository
	events     *storage.EventRepository
	dates      *storage.UnavailableDateRepository
}

// NewExporter creates a new export generator.
func NewExporter(
	properties *storage.PropertyRepository,
	bookings *storage.BookingRepository,
	events *storage.EventRepository,
	dates *storage.UnavailableDateRepository,
) *Exporter {
	return &Exporter{
		properties: properties,
		bookings:   bookings,
		events:     events,
		dates:      dates,
	}
}

// Export renders the merged calendar for a property. Bookings appear as
// "Reserved" with no guest details. Stored event ranges pass through
// as-is, their ends already exclusive, so re-importing the export never
// widens a range. A property with nothing on it yields a valid empty
// calendar.
func (e *Exporter) Export(ctx context.Context, access models.Access, propertyID string) ([]byte, error) {
	property, err := e.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	bookings, err := e.bookings.ListConfirmedByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	blocks, err := e.dates.ListManual(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing manual blocks: %w", err)
	}
	events, err := e.events.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	exports := make([]ical.ExportEvent, 0, len(bookings)+len(blocks)+len(events))
	for i := range bookings {
		b := &bookings[i]
		exports = append(exports, ical.ExportEvent{
			UID:     "booking-" + b.ID,
			Summary: "Reserved",
			Start:   b.CheckIn,
			End:     b.CheckOut,
		})
	}
	for i := range blocks {
		day := &blocks[i]
		summary := day.Reason
		if summary == "" {
			summary = "Blocked"
		}
		exports = append(exports, ical.ExportEvent{
			UID:     "blocked-" + day.ID,
			Summary: summary,
			Start:   day.Date,
			End:     day.Date.AddDate(0, 0, 1),
		})
	}
	for i := range events {
		ev := &events[i]
		exports = append(exports, ical.ExportEvent{
			UID:     "event-" + ev.ID,
			Summary: eventReason(ev),
			Start:   ev.StartDate,
			End:     ev.EndDate,
		})
	}

	return ical.Build(property.Name, exports)
}
