// internal/hub/hub.go
package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tysiac/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the per-subscriber inbox capacity.
const DefaultBuffer = 16

// EventType names a change that viewers care about.
type EventType string

const (
	EventNewGameCreated EventType = "new_game_created"
	EventScoresUpdated  EventType = "scores_updated"
)

// Event tells subscribers that something changed. It is not a diff: receivers
// re-read the game to see the new state.
type Event struct {
	Type   EventType `json:"type"`
	GameID int32     `json:"game_id"`
	At     time.Time `json:"at"`
}

// Hub fans events out to every live Subscription. Publish never waits on a subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription
	buffer int
	closed bool

	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-subscriber inbox capacity. Values below 1 are ignored.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// New creates a Hub. The service builds exactly one and passes it to whoever publishes or subscribes.
func New(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[uuid.UUID]*Subscription),
		buffer: DefaultBuffer,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers ev to every current subscriber. A subscriber whose inbox is full
// loses its oldest buffered event to make room. With no subscribers ev is discarded.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.metrics.EventPublished(string(ev.Type))

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		sub.deliver(ev, h)
	}
}

// Subscribe registers a new subscriber. Only events published after this call are seen.
// The subscription is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		ID:   uuid.New(),
		ch:   make(chan Event, h.buffer),
		done: make(chan struct{}),
		hub:  h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.closeOnce.Do(func() {
			close(sub.ch)
			close(sub.done)
		})
		return sub
	}
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	h.logger.WithField("subscription", sub.ID).Debug("hub subscriber added")

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and makes later subscriptions start closed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	// Closing under the hub lock keeps Publish from sending on a closed channel.
	close(sub.ch)
	h.metrics.SubscriberRemoved()
	h.logger.WithFields(logrus.Fields{
		"subscription": sub.ID,
		"dropped":      sub.Dropped(),
	}).Debug("hub subscriber removed")
}

// Subscription is one listener's view of the hub.
type Subscription struct {
	ID uuid.UUID

	ch        chan Event
	done      chan struct{}
	hub       *Hub
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// Events yields events in publish order. The channel is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped counts events discarded because this subscriber fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and releases its buffer. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

// deliver enqueues ev without blocking. Called with the hub lock held, so this is
// the only sender on s.ch.
func (s *Subscription) deliver(ev Event, h *Hub) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	select {
	case <-s.ch:
		s.dropped.Add(1)
		h.metrics.EventDropped()
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
		h.metrics.EventDropped()
	}
}
