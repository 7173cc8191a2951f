package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// BookingRepository provides data access for bookings.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = GenerateID()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	b.CreatedAt = r.Now()
	b.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (
			id, property_id, guest_name, guest_email, check_in, check_out,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.PropertyID, b.GuestName, b.GuestEmail,
		models.FormatDate(b.CheckIn), models.FormatDate(b.CheckOut),
		b.Status, b.CreatedAt, b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b := &models.Booking{}
	var checkIn, checkOut string

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, property_id, guest_name, guest_email, check_in, check_out,
		       status, created_at, updated_at
		FROM bookings WHERE id = ?
	`, id).Scan(
		&b.ID, &b.PropertyID, &b.GuestName, &b.GuestEmail,
		&checkIn, &checkOut, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, fmt.Errorf("decoding booking %s: %w", b.ID, err)
	}
	if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, fmt.Errorf("decoding booking %s: %w", b.ID, err)
	}

	return b, nil
}

// ListConfirmedByProperty retrieves all confirmed bookings for a property,
// ordered by check-in date.
func (r *BookingRepository) ListConfirmedByProperty(ctx context.Context, propertyID string) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, guest_name, guest_email, check_in, check_out,
		       status, created_at, updated_at
		FROM bookings
		WHERE property_id = ? AND status = ?
		ORDER BY check_in
	`, propertyID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		var checkIn, checkOut string
		if err := rows.Scan(
			&b.ID, &b.PropertyID, &b.GuestName, &b.GuestEmail,
			&checkIn, &checkOut, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
			return nil, fmt.Errorf("decoding booking %s: %w", b.ID, err)
		}
		if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
			return nil, fmt.Errorf("decoding booking %s: %w", b.ID, err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// UpdateStatus transitions a booking to the given status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?
	`, status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found: %s", id)
	}

	return nil
}
