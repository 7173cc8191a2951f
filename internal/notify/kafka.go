package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// KafkaNotifier publishes domain events to a Kafka topic for external
// consumers, the guest email service first among them. Messages are keyed
// by property so one property's events stay ordered within a partition.
// Publishing runs on a short background deadline; a slow broker never
// stalls a sync pass or a booking write.
type KafkaNotifier struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaNotifier creates a notifier writing to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string, log *logger.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	return &KafkaNotifier{writer: writer, log: log}
}

// SyncCompleted publishes a calendar.sync_completed event.
func (n *KafkaNotifier) SyncCompleted(result models.SyncResult) {
	n.publish(result.PropertyID, NewMessage(TypeSyncCompleted, syncPayload(result, "success")))
}

// SyncFailed publishes a calendar.sync_failed event.
func (n *KafkaNotifier) SyncFailed(result models.SyncResult) {
	n.publish(result.PropertyID, NewMessage(TypeSyncFailed, syncPayload(result, "error")))
}

// BookingConfirmed publishes a booking.confirmed event.
func (n *KafkaNotifier) BookingConfirmed(booking *models.Booking) {
	n.publish(booking.PropertyID, NewMessage(TypeBookingConfirmed, bookingPayload(booking)))
}

// BookingCancelled publishes a booking.cancelled event.
func (n *KafkaNotifier) BookingCancelled(booking *models.Booking) {
	n.publish(booking.PropertyID, NewMessage(TypeBookingCancelled, bookingPayload(booking)))
}

func (n *KafkaNotifier) publish(key string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		n.log.Error("encoding notification", "type", msg.Type, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := n.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: data,
			Time:  msg.Timestamp,
		})
		if err != nil {
			n.log.Error("publishing notification", "type", msg.Type, "key", key, "error", err)
		}
	}()
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
