package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// ConnectionRepository provides data access for calendar connections.
type ConnectionRepository struct {
	BaseRepository
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Upsert inserts a connection or, when one already exists for the same
// (property, source) pair, replaces its URL and clears the last sync
// timestamp so the next pass treats the feed as fresh. The returned row
// is the canonical one, which keeps its original ID on replacement.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *models.CalendarConnection) (*models.CalendarConnection, error) {
	if conn.ID == "" {
		conn.ID = GenerateID()
	}
	now := r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_connections (
			id, property_id, source, url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, source) DO UPDATE SET
			url = excluded.url,
			last_synced_at = NULL,
			updated_at = excluded.updated_at
	`,
		conn.ID, conn.PropertyID, conn.Source, conn.URL, now, now,
	)

	if err != nil {
		return nil, fmt.Errorf("upserting calendar connection: %w", err)
	}

	return r.GetByPropertyAndSource(ctx, conn.PropertyID, conn.Source)
}

// GetByPropertyAndSource retrieves the connection for a (property, source)
// pair, or nil when the property has no feed from that source.
func (r *ConnectionRepository) GetByPropertyAndSource(ctx context.Context, propertyID string, source models.Source) (*models.CalendarConnection, error) {
	conn := &models.CalendarConnection{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, property_id, source, url, last_synced_at, created_at, updated_at
		FROM calendar_connections
		WHERE property_id = ? AND source = ?
	`, propertyID, source).Scan(
		&conn.ID, &conn.PropertyID, &conn.Source, &conn.URL,
		&conn.LastSyncedAt, &conn.CreatedAt, &conn.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar connection: %w", err)
	}

	return conn, nil
}

// ListByProperty retrieves all connections for a property.
func (r *ConnectionRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.CalendarConnection, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, source, url, last_synced_at, created_at, updated_at
		FROM calendar_connections
		WHERE property_id = ?
		ORDER BY source
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying calendar connections: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

// ListAll retrieves every connection, for the scheduled batch pass.
func (r *ConnectionRepository) ListAll(ctx context.Context) ([]models.CalendarConnection, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, source, url, last_synced_at, created_at, updated_at
		FROM calendar_connections
		ORDER BY property_id, source
	`)
	if err != nil {
		return nil, fmt.Errorf("querying calendar connections: %w", err)
	}
	defer rows.Close()

	return scanConnections(rows)
}

func scanConnections(rows *sql.Rows) ([]models.CalendarConnection, error) {
	var connections []models.CalendarConnection
	for rows.Next() {
		var conn models.CalendarConnection
		if err := rows.Scan(
			&conn.ID, &conn.PropertyID, &conn.Source, &conn.URL,
			&conn.LastSyncedAt, &conn.CreatedAt, &conn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning calendar connection: %w", err)
		}
		connections = append(connections, conn)
	}

	return connections, rows.Err()
}

// UpdateLastSynced records the completion time of a successful sync pass.
func (r *ConnectionRepository) UpdateLastSynced(ctx context.Context, id string, syncedAt time.Time) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_connections SET last_synced_at = ?, updated_at = ? WHERE id = ?
	`, syncedAt, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating last synced: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("calendar connection not found: %s", id)
	}

	return nil
}

// Delete removes a connection. It runs on a Queryable so the registry can
// delete the connection and its imported events in one transaction.
func (r *ConnectionRepository) Delete(ctx context.Context, q Queryable, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM calendar_connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar connection: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("calendar connection not found: %s", id)
	}

	return nil
}

// Count returns the total number of connections.
func (r *ConnectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_connections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting calendar connections: %w", err)
	}

	return count, nil
}
