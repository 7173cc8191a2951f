package calendar

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// Registry manages a property's feed connections: importing a feed,
// listing what is connected, and tearing a connection down together with
// everything it brought in.
type Registry struct {
	db          *storage.DB
	properties  *storage.PropertyRepository
	connections *storage.ConnectionRepository
	events      *storage.EventRepository
	dates       *storage.UnavailableDateRepository
	sync        *SyncService
	log         *logger.Logger
}

// NewRegistry creates a new connection registry.
func NewRegistry(
	db *storage.DB,
	properties *storage.PropertyRepository,
	connections *storage.ConnectionRepository,
	events *storage.EventRepository,
	dates *storage.UnavailableDateRepository,
	sync *SyncService,
	log *logger.Logger,
) *Registry {
	return &Registry{
		db:          db,
		properties:  properties,
		connections: connections,
		events:      events,
		dates:       dates,
		sync:        sync,
		log:         log,
	}
}

// Import subscribes a property to a feed and runs the first pass
// synchronously. Importing again for the same (property, source) replaces
// the URL on the existing connection and clears its sync timestamp. A
// failed first pass keeps the connection; the returned result carries the
// error so the caller can surface it.
func (r *Registry) Import(ctx context.Context, access models.Access, propertyID string, source models.Source, rawURL string) (*models.CalendarConnection, *models.SyncResult, error) {
	property, err := r.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	feedURL, err := ical.NormalizeFeedURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	conn, err := r.connections.Upsert(ctx, &models.CalendarConnection{
		PropertyID: propertyID,
		Source:     source,
		URL:        feedURL,
	})
	if err != nil {
		return nil, nil, err
	}

	r.log.Info("calendar connected",
		"property_id", propertyID,
		"source", source,
		"url", ical.RedactURL(feedURL),
	)

	result, err := r.sync.SyncConnection(ctx, conn)
	if result == nil {
		result = &models.SyncResult{
			ConnectionID: conn.ID,
			PropertyID:   conn.PropertyID,
			Source:       conn.Source,
			Error:        err,
		}
		if err != nil {
			result.ErrorMessage = err.Error()
		}
	}

	return conn, result, nil
}

// List returns the connections of a property the caller may manage.
func (r *Registry) List(ctx context.Context, access models.Access, propertyID string) ([]models.CalendarConnection, error) {
	property, err := r.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	return r.connections.ListByProperty(ctx, propertyID)
}

// Remove deletes a connection together with the events it imported and
// their projected days. Manual events and other sources are untouched.
func (r *Registry) Remove(ctx context.Context, access models.Access, propertyID string, source models.Source) error {
	property, err := r.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return &NotFoundError{Resource: "property", ID: propertyID}
	}

	conn, err := r.connections.GetByPropertyAndSource(ctx, propertyID, source)
	if err != nil {
		return err
	}
	if conn == nil {
		return &NotFoundError{Resource: "calendar connection", ID: string(source)}
	}

	events, err := r.events.ListExternalBySource(ctx, propertyID, source)
	if err != nil {
		return fmt.Errorf("listing connection events: %w", err)
	}

	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		for i := range events {
			if err := r.dates.DeleteByEvent(ctx, tx, events[i].ID); err != nil {
				return err
			}
			if err := r.events.Delete(ctx, tx, events[i].ID); err != nil {
				return err
			}
		}
		return r.connections.Delete(ctx, tx, conn.ID)
	})
	if err != nil {
		return fmt.Errorf("removing connection: %w", err)
	}

	r.log.Info("calendar disconnected",
		"property_id", propertyID,
		"source", source,
		"events_removed", len(events),
	)

	return nil
}
