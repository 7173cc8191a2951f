package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// maxProjectionDays clamps how many days a single owner may project.
// No legitimate stay or block spans three years; a feed carrying a
// decade-long event gets truncated instead of flooding the table.
const maxProjectionDays = 1100

// Projector flattens bookings, calendar events and manual blocks into
// per-day unavailable rows, the form the booking flow queries. One row
// exists per (property, day); the last projection to touch a day owns it.
type Projector struct {
	db    *storage.DB
	dates *storage.UnavailableDateRepository
	log   *logger.Logger
}

// NewProjector creates a new availability projector.
func NewProjector(db *storage.DB, dates *storage.UnavailableDateRepository, log *logger.Logger) *Projector {
	return &Projector{db: db, dates: dates, log: log}
}

// ProjectEvent replaces the projection of one calendar event: every day
// previously owned by the event is removed, then one row per day in
// [start, end) is written.
func (p *Projector) ProjectEvent(ctx context.Context, ev *models.CalendarEvent) error {
	if err := p.dates.DeleteByEvent(ctx, p.db, ev.ID); err != nil {
		return fmt.Errorf("clearing event projection: %w", err)
	}

	reason := eventReason(ev)
	eventID := ev.ID
	for _, day := range p.projectionDays("event", ev.ID, ev.StartDate, ev.EndDate) {
		row := &models.UnavailableDate{
			PropertyID:      ev.PropertyID,
			Date:            day,
			Reason:          reason,
			CalendarEventID: &eventID,
		}
		if err := p.dates.UpsertDay(ctx, p.db, row); err != nil {
			return fmt.Errorf("projecting event day %s: %w", models.FormatDate(day), err)
		}
	}

	return nil
}

// ClearEvent removes every day projected from the given event.
func (p *Projector) ClearEvent(ctx context.Context, eventID string) error {
	return p.dates.DeleteByEvent(ctx, p.db, eventID)
}

// ProjectBooking replaces the projection of a confirmed booking. The
// checkout day itself stays open.
func (p *Projector) ProjectBooking(ctx context.Context, b *models.Booking) error {
	if err := p.dates.DeleteByBooking(ctx, p.db, b.ID); err != nil {
		return fmt.Errorf("clearing booking projection: %w", err)
	}

	bookingID := b.ID
	reason := "Booked: " + b.GuestName
	for _, day := range p.projectionDays("booking", b.ID, b.CheckIn, b.CheckOut) {
		row := &models.UnavailableDate{
			PropertyID: b.PropertyID,
			Date:       day,
			Reason:     reason,
			BookingID:  &bookingID,
		}
		if err := p.dates.UpsertDay(ctx, p.db, row); err != nil {
			return fmt.Errorf("projecting booking day %s: %w", models.FormatDate(day), err)
		}
	}

	return nil
}

// ClearBooking removes every day projected from the given booking.
func (p *Projector) ClearBooking(ctx context.Context, bookingID string) error {
	return p.dates.DeleteByBooking(ctx, p.db, bookingID)
}

// BlockRange marks every day in [start, end) as manually unavailable and
// returns how many days were written.
func (p *Projector) BlockRange(ctx context.Context, propertyID string, start, end time.Time, reason string) (int, error) {
	startDay := models.CivilDate(start)
	endDay := models.CivilDate(end)
	if !endDay.After(startDay) {
		return 0, ErrInvalidDateRange
	}
	if reason == "" {
		reason = "Blocked"
	}

	days := p.projectionDays("block", propertyID, startDay, endDay)
	for _, day := range days {
		row := &models.UnavailableDate{
			PropertyID: propertyID,
			Date:       day,
			Reason:     reason,
		}
		if err := p.dates.UpsertDay(ctx, p.db, row); err != nil {
			return 0, fmt.Errorf("blocking day %s: %w", models.FormatDate(day), err)
		}
	}

	return len(days), nil
}

// UnblockRange removes manual blocks in [start, end), leaving days owned
// by bookings or calendar events alone. Returns how many were removed.
func (p *Projector) UnblockRange(ctx context.Context, propertyID string, start, end time.Time) (int, error) {
	startDay := models.CivilDate(start)
	endDay := models.CivilDate(end)
	if !endDay.After(startDay) {
		return 0, ErrInvalidDateRange
	}

	return p.dates.DeleteManualRange(ctx, propertyID, startDay, endDay)
}

// projectionDays lists the civil days in [start, end). An empty range
// widens to one day so a timed event that collapses under date
// truncation still blocks the day it touches.
func (p *Projector) projectionDays(owner, id string, start, end time.Time) []time.Time {
	startDay := models.CivilDate(start)
	endDay := models.CivilDate(end)
	if !endDay.After(startDay) {
		endDay = startDay.AddDate(0, 0, 1)
	}

	if total := int(endDay.Sub(startDay).Hours() / 24); total > maxProjectionDays {
		p.log.Warn("projection clamped", "owner", owner, "id", id, "days", total, "max", maxProjectionDays)
		endDay = startDay.AddDate(0, 0, maxProjectionDays)
	}

	var days []time.Time
	for day := startDay; day.Before(endDay); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// eventReason picks the projected reason text for a calendar event.
func eventReason(ev *models.CalendarEvent) string {
	if ev.Summary != "" {
		return ev.Summary
	}
	switch ev.Source {
	case models.SourceAirbnb:
		return "Airbnb booking"
	case models.SourceManual:
		return "Blocked"
	default:
		return "Imported event"
	}
}
