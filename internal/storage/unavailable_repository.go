package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// UnavailableDateRepository provides data access for the flattened per-day
// availability table.
type UnavailableDateRepository struct {
	BaseRepository
}

// NewUnavailableDateRepository creates a new unavailable date repository.
func NewUnavailableDateRepository(db *DB) *UnavailableDateRepository {
	return &UnavailableDateRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// UpsertDay writes one blocked day. The (property, date) key makes the
// write last-write-wins: a later projection replaces the reason and owner
// references of an existing row for the same day.
func (r *UnavailableDateRepository) UpsertDay(ctx context.Context, q Queryable, day *models.UnavailableDate) error {
	if day.ID == "" {
		day.ID = GenerateID()
	}
	day.CreatedAt = r.Now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO unavailable_dates (
			id, property_id, date, reason, booking_id, calendar_event_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, date) DO UPDATE SET
			reason = excluded.reason,
			booking_id = excluded.booking_id,
			calendar_event_id = excluded.calendar_event_id
	`,
		day.ID, day.PropertyID, models.FormatDate(day.Date), day.Reason,
		day.BookingID, day.CalendarEventID, day.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("upserting unavailable date: %w", err)
	}

	return nil
}

// DeleteByEvent removes every day projected from the given calendar event.
// Deleting zero rows is not an error.
func (r *UnavailableDateRepository) DeleteByEvent(ctx context.Context, q Queryable, eventID string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM unavailable_dates WHERE calendar_event_id = ?
	`, eventID)
	if err != nil {
		return fmt.Errorf("deleting unavailable dates for event: %w", err)
	}

	return nil
}

// DeleteByBooking removes every day projected from the given booking.
func (r *UnavailableDateRepository) DeleteByBooking(ctx context.Context, q Queryable, bookingID string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM unavailable_dates WHERE booking_id = ?
	`, bookingID)
	if err != nil {
		return fmt.Errorf("deleting unavailable dates for booking: %w", err)
	}

	return nil
}

// DeleteManualRange removes manually blocked days in [start, end) and
// returns how many were removed. Days owned by a booking or a calendar
// event are left alone.
func (r *UnavailableDateRepository) DeleteManualRange(ctx context.Context, propertyID string, start, end time.Time) (int, error) {
	result, err := r.DB().ExecContext(ctx, `
		DELETE FROM unavailable_dates
		WHERE property_id = ?
		  AND booking_id IS NULL AND calendar_event_id IS NULL
		  AND date >= ? AND date < ?
	`, propertyID, models.FormatDate(start), models.FormatDate(end))
	if err != nil {
		return 0, fmt.Errorf("deleting manual blocks: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// ListByProperty retrieves all blocked days for a property in date order.
func (r *UnavailableDateRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.UnavailableDate, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, date, reason, booking_id, calendar_event_id, created_at
		FROM unavailable_dates
		WHERE property_id = ?
		ORDER BY date
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying unavailable dates: %w", err)
	}
	defer rows.Close()

	var days []models.UnavailableDate
	for rows.Next() {
		var day models.UnavailableDate
		var date string
		if err := rows.Scan(
			&day.ID, &day.PropertyID, &date, &day.Reason,
			&day.BookingID, &day.CalendarEventID, &day.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning unavailable date: %w", err)
		}
		if day.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("decoding unavailable date %s: %w", day.ID, err)
		}
		days = append(days, day)
	}

	return days, rows.Err()
}

// ListManual retrieves the manually blocked days for a property, the rows
// with no booking or calendar event behind them.
func (r *UnavailableDateRepository) ListManual(ctx context.Context, propertyID string) ([]models.UnavailableDate, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, date, reason, booking_id, calendar_event_id, created_at
		FROM unavailable_dates
		WHERE property_id = ? AND booking_id IS NULL AND calendar_event_id IS NULL
		ORDER BY date
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying manual blocks: %w", err)
	}
	defer rows.Close()

	var days []models.UnavailableDate
	for rows.Next() {
		var day models.UnavailableDate
		var date string
		if err := rows.Scan(
			&day.ID, &day.PropertyID, &date, &day.Reason,
			&day.BookingID, &day.CalendarEventID, &day.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning unavailable date: %w", err)
		}
		if day.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("decoding unavailable date %s: %w", day.ID, err)
		}
		days = append(days, day)
	}

	return days, rows.Err()
}

// CountRange returns how many days are blocked for a property in
// [start, end), whatever the reason. Booking creation uses it to refuse
// ranges that overlap existing unavailability.
func (r *UnavailableDateRepository) CountRange(ctx context.Context, propertyID string, start, end time.Time) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM unavailable_dates
		WHERE property_id = ? AND date >= ? AND date < ?
	`, propertyID, models.FormatDate(start), models.FormatDate(end)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unavailable dates: %w", err)
	}

	return count, nil
}

// Count returns the total number of blocked days across all properties.
func (r *UnavailableDateRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM unavailable_dates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unavailable dates: %w", err)
	}

	return count, nil
}
