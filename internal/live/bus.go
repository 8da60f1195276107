package live

import (
	"errors"
	"sort"
	"sync"
)

var ErrBusClosed = errors.New("live: bus closed")

// Bus is an in-process Broker for single-binary deployments and tests.
// Delivery is synchronous on the publisher's goroutine, in subscription
// order, which keeps tests deterministic.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

func (b *Bus) Publish(topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	ids := make([]int, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[topic][id])
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

func (b *Bus) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = h
	return &busSub{bus: b, topic: topic, id: id}, nil
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]Handler)
}

type busSub struct {
	bus   *Bus
	topic string
	id    int
}

func (s *busSub) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if handlers, ok := s.bus.subs[s.topic]; ok {
		delete(handlers, s.id)
		if len(handlers) == 0 {
			delete(s.bus.subs, s.topic)
		}
	}
}
