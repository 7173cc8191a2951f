package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// ManualService handles host-entered availability edits: calendar events
// typed in by hand and plain blocked-date ranges. Both are projected the
// moment they are written, so the booking UI sees them without waiting
// for a sync pass.
type ManualService struct {
	db         *storage.DB
	properties *storage.PropertyRepository
	events     *storage.EventRepository
	dates      *storage.UnavailableDateRepository
	projector  *Projector
	log        *logger.Logger
}

// NewManualService creates a new manual-entry service.
func NewManualService(
	db *storage.DB,
	properties *storage.PropertyRepository,
	events *storage.EventRepository,
	dates *storage.UnavailableDateRepository,
	projector *Projector,
	log *logger.Logger,
) *ManualService {
	return &ManualService{
		db:         db,
		properties: properties,
		events:     events,
		dates:      dates,
		projector:  projector,
		log:        log,
	}
}

// ManualEventRequest carries the fields of a host-entered calendar event.
// EndDate is exclusive, matching every other range in the system.
type ManualEventRequest struct {
	Summary   string
	StartDate time.Time
	EndDate   time.Time
}

// AddEvent records a manual calendar event and projects its days. Manual
// events carry no external UID, so sync passes never touch them.
func (s *ManualService) AddEvent(ctx context.Context, access models.Access, propertyID string, req ManualEventRequest) (*models.CalendarEvent, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	start := models.CivilDate(req.StartDate)
	end := models.CivilDate(req.EndDate)
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}

	ev := &models.CalendarEvent{
		PropertyID: propertyID,
		Source:     models.SourceManual,
		Summary:    req.Summary,
		StartDate:  start,
		EndDate:    end,
	}
	if err := s.events.Create(ctx, s.db, ev); err != nil {
		return nil, fmt.Errorf("creating manual event: %w", err)
	}

	if err := s.projector.ProjectEvent(ctx, ev); err != nil {
		s.log.Error("projecting manual event", "error", err, "event_id", ev.ID)
	}

	s.log.Info("manual event added",
		"property_id", propertyID,
		"event_id", ev.ID,
		"start", models.FormatDate(ev.StartDate),
		"end", models.FormatDate(ev.EndDate))

	return ev, nil
}

// RemoveEvent deletes a manual calendar event and its projected days.
// Feed-imported events are refused; removing one here would only last
// until the next sync pass re-created it.
func (s *ManualService) RemoveEvent(ctx context.Context, access models.Access, propertyID, eventID string) error {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return &NotFoundError{Resource: "property", ID: propertyID}
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}
	if ev == nil || ev.PropertyID != propertyID {
		return &NotFoundError{Resource: "calendar event", ID: eventID}
	}
	if ev.Source != models.SourceManual {
		return &ConflictError{Resource: "calendar event", Key: "only manual events can be removed"}
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := s.dates.DeleteByEvent(ctx, tx, ev.ID); err != nil {
			return err
		}
		return s.events.Delete(ctx, tx, ev.ID)
	})
	if err != nil {
		return fmt.Errorf("removing manual event: %w", err)
	}

	s.log.Info("manual event removed", "property_id", propertyID, "event_id", eventID)
	return nil
}

// Block marks [start, end) manually unavailable and returns how many days
// were written.
func (s *ManualService) Block(ctx context.Context, access models.Access, propertyID string, start, end time.Time, reason string) (int, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return 0, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return 0, &NotFoundError{Resource: "property", ID: propertyID}
	}

	count, err := s.projector.BlockRange(ctx, propertyID, start, end, reason)
	if err != nil {
		return 0, err
	}

	s.log.Info("dates blocked", "property_id", propertyID, "days", count)
	return count, nil
}

// Unblock removes manual blocks in [start, end), leaving days owned by
// bookings or calendar events alone. Returns how many were removed.
func (s *ManualService) Unblock(ctx context.Context, access models.Access, propertyID string, start, end time.Time) (int, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return 0, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return 0, &NotFoundError{Resource: "property", ID: propertyID}
	}

	count, err := s.projector.UnblockRange(ctx, propertyID, start, end)
	if err != nil {
		return 0, err
	}

	s.log.Info("dates unblocked", "property_id", propertyID, "days", count)
	return count, nil
}
