package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultCreateTopic = "calendar.event.create.v1"
	DefaultDeleteTopic = "calendar.event.delete.v1"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers     string
	CreateTopic string
	DeleteTopic string
}

// KafkaConnector hands mirroring to a downstream calendar worker over Kafka. The external
// event id is minted here and travels with the message.
type KafkaConnector struct {
	writer      MessageWriter
	brokers     string
	createTopic string
	deleteTopic string
}

type createEventPayload struct {
	EventID   string   `json:"event_id"`
	BookingID string   `json:"booking_id"`
	MeetingID string   `json:"meeting_id"`
	Summary   string   `json:"summary"`
	Notes     string   `json:"notes,omitempty"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Attendees []string `json:"attendees,omitempty"`
}

type deleteEventPayload struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
}

func NewKafkaConnector(cfg KafkaConfig) (*KafkaConnector, error) {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka calendar connector requires brokers")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaConnector(writer, cfg), nil
}

func newKafkaConnector(w MessageWriter, cfg KafkaConfig) *KafkaConnector {
	if cfg.CreateTopic == "" {
		cfg.CreateTopic = DefaultCreateTopic
	}
	if cfg.DeleteTopic == "" {
		cfg.DeleteTopic = DefaultDeleteTopic
	}
	return &KafkaConnector{writer: w, brokers: cfg.Brokers, createTopic: cfg.CreateTopic, deleteTopic: cfg.DeleteTopic}
}

func (k *KafkaConnector) Name() string { return "kafka" }

func (k *KafkaConnector) MirrorCreate(ctx context.Context, b model.Booking) (string, error) {
	eventID := uuid.NewString()
	payload := createEventPayload{
		EventID:   eventID,
		BookingID: b.ID,
		MeetingID: b.MeetingID,
		Summary:   summary(b),
		Notes:     b.Booker.Notes,
		StartTime: b.StartTime.UTC().Format(time.RFC3339),
		EndTime:   b.EndTime.UTC().Format(time.RFC3339),
	}
	if b.Booker.Email != "" {
		payload.Attendees = []string{b.Booker.Email}
	}
	if err := k.publish(ctx, k.createTopic, b.ID, eventID, payload); err != nil {
		return "", unavailable("create", err)
	}
	return eventID, nil
}

// MirrorDelete keys the message by booking id like MirrorCreate, so both land on one partition in order.
func (k *KafkaConnector) MirrorDelete(ctx context.Context, bookingID, eventID string) error {
	payload := deleteEventPayload{EventID: eventID, BookingID: bookingID}
	if err := k.publish(ctx, k.deleteTopic, bookingID, eventID, payload); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (k *KafkaConnector) Ping(ctx context.Context) error {
	return kafkax.ReadyCheck(k.brokers)(ctx)
}

func (k *KafkaConnector) Close() error {
	return k.writer.Close()
}

func (k *KafkaConnector) publish(ctx context.Context, topic, key, eventID string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: kafkax.InjectTraceHeaders(ctx, kafkax.EventHeaders(eventID, topic)),
	}
	return k.writer.WriteMessages(ctx, msg)
}
