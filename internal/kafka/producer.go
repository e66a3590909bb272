package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingCreated         = "booking_created"
	EventBookingCancelled       = "booking_cancelled"
	EventBookingCompleted       = "booking_completed"
	EventReservationCompensated = "reservation_compensated"
)

// BookingEvent is published on the booking events topic. Compensation
// events carry no booking, only the spot and saga.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id,omitempty"`
	SagaID     string    `json:"saga_id,omitempty"`
	SpotID     string    `json:"spot_id"`
	RenterID   string    `json:"renter_id"`
	HostID     string    `json:"host_id"`
	Status     string    `json:"status,omitempty"`
	TotalPrice float64   `json:"total_price,omitempty"`
	StartTime  time.Time `json:"start_time,omitempty"`
	EndTime    time.Time `json:"end_time,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		SagaID:     b.SagaID,
		SpotID:     b.ParkingSpotID,
		RenterID:   b.RenterID,
		HostID:     b.HostID,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		OccurredAt: at,
	}
}

// Key partitions events by spot so a spot's history stays ordered.
func (e BookingEvent) Key() string {
	return e.SpotID
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	log     *slog.Logger
}

func NewProducer(brokers []string, log *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		log:     log,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	const op = "kafka.Producer.Publish"

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", op, err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("%s: write message: %w", op, err)
	}

	p.log.Debug("published event", slog.String("op", op), slog.String("topic", topic), slog.String("key", key))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.log.Info("connected to kafka", slog.Int("partitions", len(partitions)))
	return nil
}
