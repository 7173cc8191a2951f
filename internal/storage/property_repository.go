package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// PropertyRepository provides data access for properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	p.CreatedAt = r.Now()
	p.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO properties (id, host_id, name, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.HostID, p.Name, p.Currency, p.CreatedAt, p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by its ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p := &models.Property{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, host_id, name, currency, created_at, updated_at
		FROM properties WHERE id = ?
	`, id).Scan(
		&p.ID, &p.HostID, &p.Name, &p.Currency, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}

	return p, nil
}

// GetOwned retrieves a property only if the given access may manage it.
// A property the caller may not touch looks the same as a missing one.
func (r *PropertyRepository) GetOwned(ctx context.Context, access models.Access, id string) (*models.Property, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}

	if !access.CanManage(p.HostID) {
		return nil, nil
	}

	return p, nil
}

// List retrieves the properties visible to the given access, all of them
// for admin capabilities.
func (r *PropertyRepository) List(ctx context.Context, access models.Access) ([]models.Property, error) {
	query := `
		SELECT id, host_id, name, currency, created_at, updated_at
		FROM properties
		ORDER BY name
	`
	args := []any{}
	if !access.Admin {
		query = `
			SELECT id, host_id, name, currency, created_at, updated_at
			FROM properties
			WHERE host_id = ?
			ORDER BY name
		`
		args = append(args, access.HostID)
	}

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.HostID, &p.Name, &p.Currency, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// Count returns the total number of properties.
func (r *PropertyRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting properties: %w", err)
	}

	return count, nil
}
