package notify

import (
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// HubNotifier turns domain events into dashboard WebSocket broadcasts.
type HubNotifier struct {
	hub *Hub
	log *logger.Logger
}

// NewHubNotifier creates a notifier that broadcasts through the given hub.
func NewHubNotifier(hub *Hub, log *logger.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, log: log}
}

// SyncCompleted broadcasts a calendar.sync_completed event.
func (n *HubNotifier) SyncCompleted(result models.SyncResult) {
	n.send(NewMessage(TypeSyncCompleted, syncPayload(result, "success")))
}

// SyncFailed broadcasts a calendar.sync_failed event.
func (n *HubNotifier) SyncFailed(result models.SyncResult) {
	n.send(NewMessage(TypeSyncFailed, syncPayload(result, "error")))
}

// BookingConfirmed broadcasts a booking.confirmed event.
func (n *HubNotifier) BookingConfirmed(booking *models.Booking) {
	n.send(NewMessage(TypeBookingConfirmed, bookingPayload(booking)))
}

// BookingCancelled broadcasts a booking.cancelled event.
func (n *HubNotifier) BookingCancelled(booking *models.Booking) {
	n.send(NewMessage(TypeBookingCancelled, bookingPayload(booking)))
}

func (n *HubNotifier) send(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		n.log.Error("encoding notification", "type", msg.Type, "error", err)
		return
	}
	n.hub.Broadcast(data)
}
