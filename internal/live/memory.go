package live

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker. Notices to a subscriber whose
// buffer is full are dropped, since a pending notice already forces a
// reload.
type MemoryBroker struct {
	mu      sync.Mutex
	streams map[string]map[*memoryStream]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{streams: make(map[string]map[*memoryStream]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.streams[channel] {
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, channel string) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &memoryStream{broker: b, channel: channel, ch: make(chan []byte, 16)}
	if b.streams[channel] == nil {
		b.streams[channel] = make(map[*memoryStream]struct{})
	}
	b.streams[channel][s] = struct{}{}
	return s, nil
}

// Disconnect closes every stream on channel as if the connection dropped.
func (b *MemoryBroker) Disconnect(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.streams[channel] {
		b.remove(s)
	}
}

// Subscribers reports the number of open streams on channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[channel])
}

func (b *MemoryBroker) remove(s *memoryStream) {
	if _, ok := b.streams[s.channel][s]; !ok {
		return
	}
	delete(b.streams[s.channel], s)
	if len(b.streams[s.channel]) == 0 {
		delete(b.streams, s.channel)
	}
	close(s.ch)
}

type memoryStream struct {
	broker  *MemoryBroker
	channel string
	ch      chan []byte
}

func (s *memoryStream) Messages() <-chan []byte {
	return s.ch
}

func (s *memoryStream) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.remove(s)
	return nil
}
