package notify

import (
	"encoding/json"
	"time"

	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// MessageType identifies the type of notification message.
type MessageType string

const (
	// Server -> Client event types
	TypeSyncCompleted    MessageType = "calendar.sync_completed"
	TypeSyncFailed       MessageType = "calendar.sync_failed"
	TypeBookingConfirmed MessageType = "booking.confirmed"
	TypeBookingCancelled MessageType = "booking.cancelled"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong MessageType = "pong"
)

// Message is the envelope every notification travels in, over the
// WebSocket and on the Kafka topic alike.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncPayload is the payload for calendar.sync_completed and
// calendar.sync_failed events.
type SyncPayload struct {
	ConnectionID string    `json:"connection_id"`
	PropertyID   string    `json:"property_id"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	EventsFound  int       `json:"events_found"`
	Added        int       `json:"added"`
	Updated      int       `json:"updated"`
	Removed      int       `json:"removed"`
	Error        string    `json:"error,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}

// BookingPayload is the payload for booking.confirmed and
// booking.cancelled events.
type BookingPayload struct {
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	GuestName  string `json:"guest_name"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
}

func syncPayload(result models.SyncResult, status string) SyncPayload {
	p := SyncPayload{
		ConnectionID: result.ConnectionID,
		PropertyID:   result.PropertyID,
		Source:       string(result.Source),
		Status:       status,
		EventsFound:  result.EventsFound,
		Added:        result.Added,
		Updated:      result.Updated,
		Removed:      result.Removed,
		SyncedAt:     result.SyncedAt,
	}
	if result.Error != nil {
		p.Error = result.Error.Error()
	}
	return p
}

func bookingPayload(b *models.Booking) BookingPayload {
	return BookingPayload{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestName:  b.GuestName,
		CheckIn:    models.FormatDate(b.CheckIn),
		CheckOut:   models.FormatDate(b.CheckOut),
		Status:     b.Status,
	}
}
