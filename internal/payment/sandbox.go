package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/google/uuid"
)

// SandboxProvider approves every card token except "tok_fail*", which is
// declined, and "tok_timeout", which never answers.
type SandboxProvider struct{}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{}
}

func (SandboxProvider) Charge(ctx context.Context, intent domain.PaymentIntent, details Details) (Receipt, error) {
	switch {
	case details.CardToken == "tok_timeout":
		<-ctx.Done()
		return Receipt{}, ctx.Err()
	case strings.HasPrefix(details.CardToken, "tok_fail"):
		return Receipt{}, &domain.PaymentError{Code: CodeCardDeclined, Message: "the card was declined"}
	}
	return Receipt{
		Reference:   "chrg_sandbox_" + uuid.NewString(),
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
	}, nil
}

// MemoryIntentStore keeps intents in process with the same expiry rules as
// the Redis store.
type MemoryIntentStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	intents map[string]domain.PaymentIntent
	now     func() time.Time
}

func NewMemoryIntentStore(ttl time.Duration) *MemoryIntentStore {
	return &MemoryIntentStore{ttl: ttl, intents: make(map[string]domain.PaymentIntent), now: time.Now}
}

func (s *MemoryIntentStore) SaveIntent(_ context.Context, intent domain.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.ClientSecret] = intent
	return nil
}

func (s *MemoryIntentStore) GetIntent(_ context.Context, clientSecret string) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[clientSecret]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(intent.CreatedAt) > s.ttl {
		delete(s.intents, clientSecret)
		return nil, domain.ErrNotFound
	}
	return &intent, nil
}

func (s *MemoryIntentStore) DeleteIntent(_ context.Context, clientSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, clientSecret)
	return nil
}

var (
	_ Provider    = SandboxProvider{}
	_ IntentStore = (*MemoryIntentStore)(nil)
)
