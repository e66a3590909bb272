package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ParkPal-co/parking-app-sub000/config"
	"github.com/ParkPal-co/parking-app-sub000/internal/cache"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/ParkPal-co/parking-app-sub000/internal/payment"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository/memstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage is every store the services need, backed either by Postgres and
// Redis or entirely by process memory.
type Storage struct {
	Spots         repository.SpotRepository
	Bookings      repository.BookingRepository
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Sagas         repository.SagaRepository
	Intents       payment.IntentStore
	Broker        live.Broker

	closers []func()
}

func OpenStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	const op = "bootstrap.OpenStorage"

	var (
		s   *Storage
		err error
	)
	switch cfg.Database.Driver {
	case "memory":
		s = openMemory(cfg)
	default:
		s, err = openPostgres(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Database.SeedPath != "" {
		spots, err := repository.LoadSpotSeed(cfg.Database.SeedPath)
		if err == nil {
			err = repository.SeedSpots(ctx, s.Spots, spots)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("spots seeded", slog.Int("count", len(spots)), slog.String("path", cfg.Database.SeedPath))
	}

	log.Info("storage ready", slog.String("driver", cfg.Database.Driver))
	return s, nil
}

func openMemory(cfg *config.Config) *Storage {
	store := memstore.New()
	return &Storage{
		Spots:         store.Spots(),
		Bookings:      store.Bookings(),
		Conversations: store.Conversations(),
		Messages:      store.Messages(),
		Sagas:         store.Sagas(),
		Intents:       payment.NewMemoryIntentStore(cfg.Payment.IntentTTL),
		Broker:        live.NewMemoryBroker(),
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Payment.IntentTTL)
	if err := redisCache.Ping(ctx); err != nil {
		pool.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		Spots:         repository.NewSpotRepository(pool),
		Bookings:      repository.NewBookingRepository(pool),
		Conversations: repository.NewConversationRepository(pool),
		Messages:      repository.NewMessageRepository(pool),
		Sagas:         repository.NewSagaRepository(pool),
		Intents:       redisCache,
		Broker:        redisCache,
		closers:       []func(){pool.Close, func() { _ = redisCache.Close() }},
	}, nil
}

func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewPaymentProvider picks the charge backend named in the config.
func NewPaymentProvider(cfg config.PaymentConfig, log *slog.Logger) (payment.Provider, error) {
	switch cfg.Provider {
	case "omise":
		client, err := payment.NewOmiseClient(cfg.PublicKey, cfg.SecretKey)
		if err != nil {
			log.Error("failed to create omise client", sl.Err(err))
			return nil, err
		}
		return payment.NewOmiseProvider(client), nil
	default:
		log.Warn("using sandbox payment provider, no real charges are made")
		return payment.NewSandboxProvider(), nil
	}
}
