// Package calendar implements the availability reconciliation engine:
// feed sync, per-day projection, connection registry and iCal export.
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// FeedFetcher downloads a feed body. *ical.Fetcher is the production
// implementation; tests substitute a local one.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SyncConfig carries the tunables of the sync engine.
type SyncConfig struct {
	// Expand bounds recurrence expansion during parsing.
	Expand ical.ExpandOptions
	// MinInterval is the advisory spacing between passes over the same
	// connection. Zero disables the guard.
	MinInterval time.Duration
}

// SyncService reconciles stored calendar events against external feeds.
// Each pass fetches one connection's feed, diffs its occurrences against
// the stored events keyed by external UID, applies the changes in one
// transaction, and then refreshes the per-day projection.
type SyncService struct {
	db          *storage.DB
	properties  *storage.PropertyRepository
	connections *storage.ConnectionRepository
	events      *storage.EventRepository
	fetcher     FeedFetcher
	parser      *ical.Parser
	projector   *Projector
	notifier    notify.Notifier
	log         *logger.Logger

	expand      ical.ExpandOptions
	minInterval time.Duration

	// lastStarted guards against overlapping passes per connection.
	// Entries age out by comparison, never by deletion.
	mu          sync.Mutex
	lastStarted map[string]time.Time
}

// NewSyncService creates a new sync service.
func NewSyncService(
	db *storage.DB,
	properties *storage.PropertyRepository,
	connections *storage.ConnectionRepository,
	events *storage.EventRepository,
	fetcher FeedFetcher,
	parser *ical.Parser,
	projector *Projector,
	notifier notify.Notifier,
	log *logger.Logger,
	cfg SyncConfig,
) *SyncService {
	return &SyncService{
		db:          db,
		properties:  properties,
		connections: connections,
		events:      events,
		fetcher:     fetcher,
		parser:      parser,
		projector:   projector,
		notifier:    notifier,
		log:         log,
		expand:      cfg.Expand,
		minInterval: cfg.MinInterval,
		lastStarted: make(map[string]time.Time),
	}
}

// SyncConnection runs one reconciliation pass over a single connection.
// A pass that changes nothing reports zero counts and leaves every stored
// row untouched, so repeated syncs of an unchanged feed are no-ops.
func (s *SyncService) SyncConnection(ctx context.Context, conn *models.CalendarConnection) (*models.SyncResult, error) {
	if err := s.markStarted(conn.ID); err != nil {
		return nil, err
	}

	result := &models.SyncResult{
		ConnectionID: conn.ID,
		PropertyID:   conn.PropertyID,
		Source:       conn.Source,
		SyncedAt:     time.Now().UTC(),
	}

	s.log.Info("sync started",
		"connection_id", conn.ID,
		"property_id", conn.PropertyID,
		"source", conn.Source,
		"url", ical.RedactURL(conn.URL),
	)

	body, err := s.fetcher.Fetch(ctx, conn.URL)
	if err != nil {
		return s.fail(result, err)
	}

	occurrences, err := s.parser.Parse(body, s.expand)
	if err != nil {
		return s.fail(result, err)
	}
	result.EventsFound = len(occurrences)

	stored, err := s.events.ListExternalBySource(ctx, conn.PropertyID, conn.Source)
	if err != nil {
		return s.fail(result, fmt.Errorf("listing stored events: %w", err))
	}

	plan := s.plan(conn, occurrences, stored)
	result.Added = len(plan.added)
	result.Updated = len(plan.updated)
	result.Removed = len(plan.removed)

	if err := s.apply(ctx, plan); err != nil {
		return s.fail(result, fmt.Errorf("applying changes: %w", err))
	}

	// Projection and the timestamp are best effort after the commit: a
	// failure here leaves the flattened dates stale until the next pass,
	// never the event rows.
	for _, ev := range plan.added {
		if err := s.projector.ProjectEvent(ctx, ev); err != nil {
			s.log.Error("projecting added event", "event_id", ev.ID, "error", err)
		}
	}
	for _, ev := range plan.updated {
		if err := s.projector.ProjectEvent(ctx, ev); err != nil {
			s.log.Error("projecting updated event", "event_id", ev.ID, "error", err)
		}
	}
	for _, ev := range plan.removed {
		if err := s.projector.ClearEvent(ctx, ev.ID); err != nil {
			s.log.Error("clearing removed event projection", "event_id", ev.ID, "error", err)
		}
	}

	if err := s.connections.UpdateLastSynced(ctx, conn.ID, result.SyncedAt); err != nil {
		s.log.Error("recording sync time", "connection_id", conn.ID, "error", err)
	}

	s.log.Info("sync completed",
		"connection_id", conn.ID,
		"events_found", result.EventsFound,
		"added", result.Added,
		"updated", result.Updated,
		"removed", result.Removed,
	)
	s.notifier.SyncCompleted(*result)

	return result, nil
}

// SyncProperty runs a pass over every connection of one property.
func (s *SyncService) SyncProperty(ctx context.Context, access models.Access, propertyID string) ([]models.SyncResult, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	connections, err := s.connections.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	return s.syncBatch(ctx, connections), nil
}

// SyncOne runs a pass over a single named connection. Unlike the batch
// entry points it returns the pass's typed error directly, so callers
// can turn a feed failure into a meaningful response.
func (s *SyncService) SyncOne(ctx context.Context, access models.Access, propertyID string, source models.Source) (*models.SyncResult, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	conn, err := s.connections.GetByPropertyAndSource(ctx, propertyID, source)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &NotFoundError{Resource: "calendar connection", ID: string(source)}
	}

	return s.SyncConnection(ctx, conn)
}

// SyncAll runs a pass over every connection in the system. The scheduler
// calls it; one broken feed never stops the others.
func (s *SyncService) SyncAll(ctx context.Context) ([]models.SyncResult, error) {
	connections, err := s.connections.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	return s.syncBatch(ctx, connections), nil
}

func (s *SyncService) syncBatch(ctx context.Context, connections []models.CalendarConnection) []models.SyncResult {
	var results []models.SyncResult
	for i := range connections {
		conn := &connections[i]
		result, err := s.SyncConnection(ctx, conn)
		if errors.Is(err, ErrSyncInProgress) {
			s.log.Info("sync pass skipped, recently started", "connection_id", conn.ID)
			continue
		}
		if result == nil {
			result = &models.SyncResult{
				ConnectionID: conn.ID,
				PropertyID:   conn.PropertyID,
				Source:       conn.Source,
				Error:        err,
				SyncedAt:     time.Now().UTC(),
			}
			if err != nil {
				result.ErrorMessage = err.Error()
			}
		}
		results = append(results, *result)
	}
	return results
}

// markStarted enforces the advisory spacing between passes over one
// connection. The map is never pruned; stale entries lose by comparison.
func (s *SyncService) markStarted(connectionID string) error {
	if s.minInterval <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if started, ok := s.lastStarted[connectionID]; ok && time.Since(started) < s.minInterval {
		return ErrSyncInProgress
	}
	s.lastStarted[connectionID] = time.Now()
	return nil
}

func (s *SyncService) fail(result *models.SyncResult, err error) (*models.SyncResult, error) {
	result.Error = err
	result.ErrorMessage = err.Error()
	s.log.Error("sync failed",
		"connection_id", result.ConnectionID,
		"property_id", result.PropertyID,
		"error", err,
	)
	s.notifier.SyncFailed(*result)
	return result, err
}

// syncPlan stages the row changes of one pass before they are applied.
type syncPlan struct {
	added   []*models.CalendarEvent
	updated []*models.CalendarEvent
	removed []*models.CalendarEvent
}

// plan diffs feed occurrences against stored events keyed by external
// UID. An occurrence whose summary and normalized dates match the stored
// row stages nothing, so its row is never rewritten.
func (s *SyncService) plan(conn *models.CalendarConnection, occurrences []ical.Occurrence, stored []models.CalendarEvent) syncPlan {
	byUID := make(map[string]*models.CalendarEvent, len(stored))
	for i := range stored {
		byUID[*stored[i].ExternalID] = &stored[i]
	}

	var plan syncPlan
	seen := make(map[string]bool, len(occurrences))
	for _, occ := range occurrences {
		if seen[occ.UID] {
			continue
		}
		seen[occ.UID] = true

		start, end := normalizeRange(occ.Start, occ.End)
		existing, ok := byUID[occ.UID]
		if !ok {
			uid := occ.UID
			plan.added = append(plan.added, &models.CalendarEvent{
				PropertyID: conn.PropertyID,
				Source:     conn.Source,
				ExternalID: &uid,
				Summary:    occ.Summary,
				StartDate:  start,
				EndDate:    end,
			})
			continue
		}
		if !existing.Unchanged(occ.Summary, start, end) {
			existing.Summary = occ.Summary
			existing.StartDate = start
			existing.EndDate = end
			plan.updated = append(plan.updated, existing)
		}
	}

	for i := range stored {
		if !seen[*stored[i].ExternalID] {
			plan.removed = append(plan.removed, &stored[i])
		}
	}

	return plan
}

// apply writes the staged changes in one transaction. Deleting an event
// drops its projected days with it through the foreign key.
func (s *SyncService) apply(ctx context.Context, plan syncPlan) error {
	if len(plan.added)+len(plan.updated)+len(plan.removed) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, ev := range plan.added {
			if err := s.events.Create(ctx, tx, ev); err != nil {
				return err
			}
		}
		for _, ev := range plan.updated {
			if err := s.events.Update(ctx, tx, ev); err != nil {
				return err
			}
		}
		for _, ev := range plan.removed {
			if err := s.events.Delete(ctx, tx, ev.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// normalizeRange converts a remote occurrence to a UTC civil date range
// with an exclusive end. A timed event that collapses to an empty range
// under truncation widens to the single day it touches.
func normalizeRange(start, end time.Time) (time.Time, time.Time) {
	startDay := models.CivilDate(start)
	endDay := models.CivilDate(end)
	if !endDay.After(startDay) {
		endDay = startDay.AddDate(0, 0, 1)
	}
	return startDay, endDay
}
