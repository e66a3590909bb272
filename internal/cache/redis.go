package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/config"
	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds payment intents until they are confirmed and carries
// the live change notices over pub/sub.
type RedisCache struct {
	client    *redis.Client
	intentTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, intentTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		intentTTL: intentTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SaveIntent(ctx context.Context, intent domain.PaymentIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	ok, err := c.client.SetNX(ctx, intentKey(intent.ClientSecret), payload, c.intentTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("intent %s already stored", intent.ClientSecret)
	}
	return nil
}

// GetIntent returns domain.ErrNotFound for unknown or expired secrets.
func (c *RedisCache) GetIntent(ctx context.Context, clientSecret string) (*domain.PaymentIntent, error) {
	data, err := c.client.Get(ctx, intentKey(clientSecret)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decodeIntent(data)
}

func (c *RedisCache) DeleteIntent(ctx context.Context, clientSecret string) error {
	return c.client.Del(ctx, intentKey(clientSecret)).Err()
}

func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.client.Publish(ctx, channel, payload).Err()
}

// Subscribe waits for the subscription to be confirmed before returning.
func (c *RedisCache) Subscribe(ctx context.Context, channel string) (live.Stream, error) {
	ps := c.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return newPubSubStream(ps), nil
}

type pubSubStream struct {
	ps     *redis.PubSub
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPubSubStream(ps *redis.PubSub) *pubSubStream {
	s := &pubSubStream{ps: ps, out: make(chan []byte, 16), closed: make(chan struct{})}
	go func() {
		defer close(s.out)
		for msg := range ps.Channel() {
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.closed:
				return
			}
		}
	}()
	return s
}

func (s *pubSubStream) Messages() <-chan []byte {
	return s.out
}

func (s *pubSubStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.ps.Close()
	})
	return err
}

func decodeIntent(data []byte) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &intent, nil
}

func intentKey(clientSecret string) string {
	return "payment:intent:" + clientSecret
}

var _ live.Broker = (*RedisCache)(nil)
