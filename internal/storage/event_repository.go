package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// EventRepository provides data access for calendar events. The write
// methods accept a Queryable so a sync pass can stage all of its inserts,
// updates and removals inside a single transaction.
type EventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new calendar event.
func (r *EventRepository) Create(ctx context.Context, q Queryable, ev *models.CalendarEvent) error {
	if ev.ID == "" {
		ev.ID = GenerateID()
	}
	ev.CreatedAt = r.Now()
	ev.UpdatedAt = r.Now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO calendar_events (
			id, property_id, source, external_id, summary, start_date, end_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID, ev.PropertyID, ev.Source, ev.ExternalID, ev.Summary,
		models.FormatDate(ev.StartDate), models.FormatDate(ev.EndDate),
		ev.CreatedAt, ev.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting calendar event: %w", err)
	}

	return nil
}

// Update rewrites an event's summary and date range.
func (r *EventRepository) Update(ctx context.Context, q Queryable, ev *models.CalendarEvent) error {
	ev.UpdatedAt = r.Now()

	result, err := q.ExecContext(ctx, `
		UPDATE calendar_events SET
			summary = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?
	`,
		ev.Summary, models.FormatDate(ev.StartDate), models.FormatDate(ev.EndDate),
		ev.UpdatedAt, ev.ID,
	)

	if err != nil {
		return fmt.Errorf("updating calendar event: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("calendar event not found: %s", ev.ID)
	}

	return nil
}

// Delete removes an event. Projected dates referencing it go with it via
// the foreign key cascade; callers that need notification-grade accounting
// clear the projection explicitly first.
func (r *EventRepository) Delete(ctx context.Context, q Queryable, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar event: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("calendar event not found: %s", id)
	}

	return nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	ev := &models.CalendarEvent{}
	var startDate, endDate string

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, property_id, source, external_id, summary, start_date, end_date,
		       created_at, updated_at
		FROM calendar_events WHERE id = ?
	`, id).Scan(
		&ev.ID, &ev.PropertyID, &ev.Source, &ev.ExternalID, &ev.Summary,
		&startDate, &endDate, &ev.CreatedAt, &ev.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar event: %w", err)
	}

	if ev.StartDate, err = models.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("decoding calendar event %s: %w", ev.ID, err)
	}
	if ev.EndDate, err = models.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("decoding calendar event %s: %w", ev.ID, err)
	}

	return ev, nil
}

// ListExternalBySource retrieves the feed-imported events for a property
// and source. Manually entered events (no external ID) are never part of
// a sync diff and are excluded here.
func (r *EventRepository) ListExternalBySource(ctx context.Context, propertyID string, source models.Source) ([]models.CalendarEvent, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, source, external_id, summary, start_date, end_date,
		       created_at, updated_at
		FROM calendar_events
		WHERE property_id = ? AND source = ? AND external_id IS NOT NULL
		ORDER BY start_date
	`, propertyID, source)
	if err != nil {
		return nil, fmt.Errorf("querying calendar events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByProperty retrieves all events for a property, imported and manual.
func (r *EventRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.CalendarEvent, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, source, external_id, summary, start_date, end_date,
		       created_at, updated_at
		FROM calendar_events
		WHERE property_id = ?
		ORDER BY start_date
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying calendar events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		var startDate, endDate string
		if err := rows.Scan(
			&ev.ID, &ev.PropertyID, &ev.Source, &ev.ExternalID, &ev.Summary,
			&startDate, &endDate, &ev.CreatedAt, &ev.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning calendar event: %w", err)
		}
		var err error
		if ev.StartDate, err = models.ParseDate(startDate); err != nil {
			return nil, fmt.Errorf("decoding calendar event %s: %w", ev.ID, err)
		}
		if ev.EndDate, err = models.ParseDate(endDate); err != nil {
			return nil, fmt.Errorf("decoding calendar event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Count returns the total number of calendar events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting calendar events: %w", err)
	}

	return count, nil
}
