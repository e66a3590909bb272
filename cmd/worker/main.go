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
	"github.com/ParkPal-co/parking-app-sub000/internal/notify"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
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
	if cfg.Database.Driver == "memory" {
		log.Error("the worker needs the postgres driver; the app runs the sweeps itself with the memory driver")
		os.Exit(1)
	}

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

	guard := reservation.NewGuard(storage.Spots, cfg.Booking.StoreTimeout, log)
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
	reconciler := booking.NewReconciler(storage.Spots, storage.Sagas, guard, producer,
		cfg.Kafka.BookingEventsTopic, cfg.Booking.ClaimTimeout, log,
		booking.WithCompensationNotices(cfg.Kafka.NotificationsTopic))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	notifier := notify.New(consumer, notify.NewLogSender(log), log)
	if err := notifier.Start(ctx); err != nil {
		log.Error("failed to start notifier", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Error("failed to close notifier", sl.Err(err))
		}
	}()

	log.Info("worker started",
		slog.Duration("reconcile_interval", cfg.Worker.ReconcileInterval),
		slog.Duration("complete_interval", cfg.Worker.CompleteInterval),
	)
	bootstrap.RunSweeps(ctx, cfg.Worker, bookingService, reconciler, log)
	log.Info("worker stopped")
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
