// Package notify decouples domain events from their delivery. Services
// call a Notifier after a change is committed; implementations fan the
// event out to the dashboard WebSocket and to Kafka without ever being
// part of the write path.
package notify

import (
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// Notifier receives domain events after they commit. Implementations
// must not block the caller; they buffer or drop instead.
type Notifier interface {
	SyncCompleted(result models.SyncResult)
	SyncFailed(result models.SyncResult)
	BookingConfirmed(booking *models.Booking)
	BookingCancelled(booking *models.Booking)
}

// Nop discards all events. The CLI and tests use it.
type Nop struct{}

func (Nop) SyncCompleted(models.SyncResult) {}

func (Nop) SyncFailed(models.SyncResult) {}

func (Nop) BookingConfirmed(*models.Booking) {}

func (Nop) BookingCancelled(*models.Booking) {}

// Multi fans each event out to several notifiers in order.
type Multi []Notifier

func (m Multi) SyncCompleted(result models.SyncResult) {
	for _, n := range m {
		n.SyncCompleted(result)
	}
}

func (m Multi) SyncFailed(result models.SyncResult) {
	for _, n := range m {
		n.SyncFailed(result)
	}
}

func (m Multi) BookingConfirmed(booking *models.Booking) {
	for _, n := range m {
		n.BookingConfirmed(booking)
	}
}

func (m Multi) BookingCancelled(booking *models.Booking) {
	for _, n := range m {
		n.BookingCancelled(booking)
	}
}
