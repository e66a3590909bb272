package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ParkPal-co/parking-app-sub000/config"
	"github.com/ParkPal-co/parking-app-sub000/internal/bootstrap"
	"github.com/ParkPal-co/parking-app-sub000/internal/kafka"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/handlers/slogpretty"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/ParkPal-co/parking-app-sub000/internal/payment"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/checkout"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/conversation"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/reservation"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting parking app", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warn("kafka is unreachable, booking events will be dropped", sl.Err(err))
	}

	provider, err := bootstrap.NewPaymentProvider(cfg.Payment, log)
	if err != nil {
		os.Exit(1)
	}

	guard := reservation.NewGuard(storage.Spots, cfg.Booking.StoreTimeout, log)
	payments := payment.NewCoordinator(provider, storage.Intents, cfg.Payment.Timeout, log)
	bookingService := booking.NewBookingService(
		storage.Bookings,
		storage.Spots,
		guard,
		producer,
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.StoreTimeout,
		log,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	hub := live.NewHub(storage.Broker, storage.Conversations, storage.Messages, log,
		live.WithLoadTimeout(cfg.Booking.StoreTimeout))
	conversationService := conversation.NewConversationService(
		storage.Conversations,
		storage.Messages,
		storage.Bookings,
		hub,
		cfg.Booking.WelcomeMessage,
		cfg.Booking.StoreTimeout,
		log,
	)
	checkoutService := checkout.NewCheckoutService(
		storage.Spots,
		guard,
		payments,
		bookingService,
		conversationService,
		storage.Sagas,
		cfg.Payment.Currency,
		cfg.Booking.StoreTimeout,
		log,
	)

	// Nothing else can reach process memory, so the sweeps run here.
	if cfg.Database.Driver == "memory" {
		reconciler := booking.NewReconciler(storage.Spots, storage.Sagas, guard, producer,
			cfg.Kafka.BookingEventsTopic, cfg.Booking.ClaimTimeout, log,
			booking.WithCompensationNotices(cfg.Kafka.NotificationsTopic))
		go bootstrap.RunSweeps(ctx, cfg.Worker, bookingService, reconciler, log)
	}

	if err := bootstrap.Run(ctx, cfg, bootstrap.Services{
		Checkout:      checkoutService,
		Bookings:      bookingService,
		Conversations: conversationService,
	}, log); err != nil {
		log.Error("server error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("parking app stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
		}
		log = slog.New(opts.NewPrettyHandler(os.Stdout))
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
