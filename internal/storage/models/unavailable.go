package models

import (
	"time"
)

// UnavailableDate is one blocked day on a property, the flattened form
// the booking UI queries. Rows are keyed (property, date); a later write
// for the same day replaces the owner references. A row with neither a
// booking nor a calendar event reference is a manual block.
type UnavailableDate struct {
	ID              string    `json:"id"`
	PropertyID      string    `json:"property_id"`
	Date            time.Time `json:"date"`
	Reason          string    `json:"reason"`
	BookingID       *string   `json:"booking_id,omitempty"`
	CalendarEventID *string   `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Manual reports whether this day was blocked by hand rather than
// projected from a booking or calendar event.
func (u *UnavailableDate) Manual() bool {
	return u.BookingID == nil && u.CalendarEventID == nil
}
