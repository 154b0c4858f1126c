package relay

import (
	"context"
	"sync"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.Relay = (*Hub)(nil)

const subscriberBuffer = 64

// Hub is an in-process relay. Publish never blocks: a subscriber whose
// buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	log    *logger.Logger
	closed bool
}

type subscriber struct {
	ch   chan Message
	stop chan struct{}
	once sync.Once
}

// close ends delivery and releases the ctx watcher.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.ch)
		close(s.stop)
	})
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
		log:  log,
	}
}

// Publish fans msg out to every subscriber of its recipe.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[msg.RecipeID] {
		select {
		case s.ch <- msg:
		default:
			h.log.Debug("relay: subscriber buffer full on %s, dropping message", ChannelName(msg.RecipeID))
		}
	}
	return nil
}

// Subscribe calls fn for every message on the recipe's channel until the
// returned function is called or ctx is cancelled. fn runs on a dedicated
// goroutine, in publish order.
func (h *Hub) Subscribe(ctx context.Context, recipeID string, fn func(Message)) (func(), error) {
	s := &subscriber{
		ch:   make(chan Message, subscriberBuffer),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, context.Canceled
	}
	if h.subs[recipeID] == nil {
		h.subs[recipeID] = make(map[*subscriber]struct{})
	}
	h.subs[recipeID][s] = struct{}{}
	h.mu.Unlock()

	go func() {
		for msg := range s.ch {
			fn(msg)
		}
	}()

	unsubscribe := func() {
		h.mu.Lock()
		if set := h.subs[recipeID]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, recipeID)
			}
		}
		h.mu.Unlock()
		s.close()
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				unsubscribe()
			case <-s.stop:
			}
		}()
	}

	h.log.Debug("relay: subscribed to %s", ChannelName(recipeID))
	return unsubscribe, nil
}

// Subscribers returns the number of live subscriptions on a recipe.
func (h *Hub) Subscribers(recipeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[recipeID])
}

// Close drops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]map[*subscriber]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.close()
		}
	}
}
