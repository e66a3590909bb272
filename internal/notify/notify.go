// Package notify turns booking events into user notifications. It is an
// explicitly constructed service: New wires it, Start begins consuming and
// Close stops it and releases the event source.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ParkPal-co/parking-app-sub000/internal/kafka"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	kafkago "github.com/segmentio/kafka-go"
)

var ErrAlreadyStarted = errors.New("notifier already started")

type Notification struct {
	UserID    string
	EventType string
	Subject   string
	Body      string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Source interface {
	Consume(ctx context.Context, handler func(context.Context, kafkago.Message) error) error
	Close() error
}

type Service struct {
	source Source
	sender Sender
	log    *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	started bool
}

func New(source Source, sender Sender, log *slog.Logger) *Service {
	return &Service{source: source, sender: sender, log: log}
}

// Start consumes in the background until ctx ends or Close is called.
func (s *Service) Start(ctx context.Context) error {
	const op = "notify.Service.Start"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return fmt.Errorf("%s: %w", op, ErrAlreadyStarted)
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.source.Consume(ctx, s.Handle); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("notifier stopped", slog.String("op", op), sl.Err(err))
		}
	}()
	return nil
}

// Close stops consumption, waits for the in-flight event and closes the
// source. Calling it again is a no-op.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.source.Close()
}

// Handle delivers the notifications of one event. Undecodable events and
// failed deliveries are logged and skipped so one bad message does not
// stall the consumer.
func (s *Service) Handle(ctx context.Context, msg kafkago.Message) error {
	const op = "notify.Service.Handle"
	log := s.log.With(slog.String("op", op))

	var event kafka.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Warn("failed to decode event", sl.Err(err))
		return nil
	}

	for _, n := range Compose(event) {
		if err := s.sender.Send(ctx, n); err != nil {
			log.Error("failed to send notification", slog.String("user_id", n.UserID), slog.String("type", n.EventType), sl.Err(err))
		}
	}
	return nil
}

// Compose maps an event to the notifications its participants receive.
func Compose(e kafka.BookingEvent) []Notification {
	var out []Notification
	add := func(userID, subject, body string) {
		if userID != "" {
			out = append(out, Notification{UserID: userID, EventType: e.Type, Subject: subject, Body: body})
		}
	}

	window := fmt.Sprintf("%s to %s", e.StartTime.Format("Jan 2 15:04"), e.EndTime.Format("15:04"))
	switch e.Type {
	case kafka.EventBookingCreated:
		add(e.RenterID, "Booking confirmed", fmt.Sprintf("Your parking for %s is confirmed.", window))
		add(e.HostID, "Your spot was booked", fmt.Sprintf("Your spot was booked for %s at %.2f.", window, e.TotalPrice))
	case kafka.EventBookingCancelled:
		add(e.RenterID, "Booking cancelled", fmt.Sprintf("Your parking for %s was cancelled.", window))
		add(e.HostID, "Booking cancelled", fmt.Sprintf("The booking for %s was cancelled and your spot is available again.", window))
	case kafka.EventBookingCompleted:
		add(e.HostID, "Booking completed", fmt.Sprintf("The booking for %s has ended.", window))
	case kafka.EventReservationCompensated:
		add(e.RenterID, "Reservation released", "Your checkout did not finish and the spot was released.")
	}
	return out
}

// LogSender delivers notifications to the log. It stands in for a mail or
// push gateway.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.log.Info("notification",
		slog.String("user_id", n.UserID),
		slog.String("type", n.EventType),
		slog.String("subject", n.Subject),
		slog.String("body", n.Body),
	)
	return nil
}

var (
	_ Source = (*kafka.Consumer)(nil)
	_ Sender = (*LogSender)(nil)
)
