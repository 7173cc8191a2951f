package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// BookingService records host-entered bookings and keeps the availability
// projection in step with them. Guest-facing payment-driven bookings are
// a separate system; what arrives here is already agreed.
type BookingService struct {
	properties *storage.PropertyRepository
	bookings   *storage.BookingRepository
	dates      *storage.UnavailableDateRepository
	projector  *Projector
	notifier   notify.Notifier
	log        *logger.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(
	properties *storage.PropertyRepository,
	bookings *storage.BookingRepository,
	dates *storage.UnavailableDateRepository,
	projector *Projector,
	notifier notify.Notifier,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		properties: properties,
		bookings:   bookings,
		dates:      dates,
		projector:  projector,
		notifier:   notifier,
		log:        log,
	}
}

// BookingRequest carries the host-entered details of an offline booking.
type BookingRequest struct {
	GuestName  string
	GuestEmail string
	CheckIn    time.Time
	CheckOut   time.Time
}

// Create books [check-in, check-out) for a guest. The booking is created
// confirmed and projected immediately. A range overlapping any
// unavailable day is refused with a ConflictError.
func (s *BookingService) Create(ctx context.Context, access models.Access, propertyID string, req BookingRequest) (*models.Booking, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	checkIn := models.CivilDate(req.CheckIn)
	checkOut := models.CivilDate(req.CheckOut)
	if !checkOut.After(checkIn) {
		return nil, ErrInvalidDateRange
	}

	blocked, err := s.dates.CountRange(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}
	if blocked > 0 {
		return nil, &ConflictError{
			Resource: "booking",
			Key:      fmt.Sprintf("%s to %s", models.FormatDate(checkIn), models.FormatDate(checkOut)),
		}
	}

	booking := &models.Booking{
		PropertyID: propertyID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     models.BookingStatusConfirmed,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.projector.ProjectBooking(ctx, booking); err != nil {
		s.log.Error("projecting booking", "booking_id", booking.ID, "error", err)
	}

	s.log.Info("booking created",
		"booking_id", booking.ID,
		"property_id", propertyID,
		"check_in", models.FormatDate(checkIn),
		"check_out", models.FormatDate(checkOut),
	)
	s.notifier.BookingConfirmed(booking)

	return booking, nil
}

// Cancel transitions a booking to cancelled and frees its days.
// Cancelling an already cancelled booking is a no-op.
func (s *BookingService) Cancel(ctx context.Context, access models.Access, propertyID, bookingID string) (*models.Booking, error) {
	property, err := s.properties.GetOwned(ctx, access, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	if property == nil {
		return nil, &NotFoundError{Resource: "property", ID: propertyID}
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil || booking.PropertyID != propertyID {
		return nil, &NotFoundError{Resource: "booking", ID: bookingID}
	}
	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusCancelled

	if err := s.projector.ClearBooking(ctx, bookingID); err != nil {
		s.log.Error("clearing booking projection", "booking_id", bookingID, "error", err)
	}

	s.log.Info("booking cancelled", "booking_id", bookingID, "property_id", propertyID)
	s.notifier.BookingCancelled(booking)

	return booking, nil
}
