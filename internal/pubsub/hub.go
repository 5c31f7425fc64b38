package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stagehand/internal/logging"
	"stagehand/internal/metrics"
)

// ErrClosed is returned by a hub that has been shut down.
var ErrClosed = errors.New("notifier closed")

const (
	defaultHistoryCapacity  = 1024
	defaultSubscriberBuffer = 64
)

// Hub sequences events, keeps a bounded history for long-poll readers, and
// pushes each event to the live subscribers of its topic.
type Hub struct {
	mu         sync.Mutex
	cond       *sync.Cond
	capacity   int
	buffer     []Event
	nextSeq    uint64
	subs       map[Topic]map[string]*Subscription
	bufferSize int
	closed     bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewHub builds a hub. Non-positive sizes fall back to defaults; logger and
// m may be nil.
func NewHub(historyCapacity, subscriberBuffer int, logger *slog.Logger, m *metrics.Metrics) *Hub {
	if historyCapacity <= 0 {
		historyCapacity = defaultHistoryCapacity
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = defaultSubscriberBuffer
	}
	h := &Hub{
		capacity:   historyCapacity,
		subs:       make(map[Topic]map[string]*Subscription, len(Topics)),
		bufferSize: subscriberBuffer,
		logger:     logging.NewComponentLogger(logger, "pubsub"),
		metrics:    m,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish sequences evt and delivers it. Delivery never blocks: a
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(evt Event) (Event, error) {
	if err := evt.Validate(); err != nil {
		return Event{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Event{}, ErrClosed
	}

	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.metrics.EventPublished(string(evt.Topic))

	for _, sub := range h.subs[evt.Topic] {
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
			h.metrics.EventDropped(string(evt.Topic))
			logging.WarnWithContext(h.logger, "subscriber buffer full; event dropped", "notify_dropped",
				logging.String(logging.FieldTopic, string(evt.Topic)),
				logging.String("subscriber_id", sub.ID),
				logging.Uint64("seq", evt.Sequence),
				logging.String(logging.FieldErrorHint, "slow client; it should refetch via /api/events"),
				logging.String(logging.FieldImpact, "subscriber view may be stale"),
			)
		}
	}
	h.cond.Broadcast()
	return evt, nil
}

// Subscribe registers a live subscriber on topic.
func (h *Hub) Subscribe(topic Topic) (*Subscription, error) {
	if !topic.Valid() {
		return nil, errors.New("subscribe: unknown topic " + string(topic))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	sub := &Subscription{
		ID:    uuid.NewString(),
		Topic: topic,
		ch:    make(chan Event, h.bufferSize),
		hub:   h,
	}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[string]*Subscription)
	}
	h.subs[topic][sub.ID] = sub
	h.metrics.SubscriberDelta(string(topic), 1)
	h.logger.Debug("subscriber added",
		logging.String(logging.FieldTopic, string(topic)),
		logging.String("subscriber_id", sub.ID),
	)
	return sub, nil
}

// SubscriberCount reports live subscribers on topic.
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// LastSequence reports the sequence of the newest event.
func (h *Hub) LastSequence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// Page is one Fetch result.
type Page struct {
	Events []Event
	// Next is the sequence to pass as since on the next call.
	Next uint64
	// Oldest is the lowest sequence still held in history, 0 when empty.
	Oldest uint64
	// Gap reports that events after since have already left history, or
	// that since lies beyond the newest sequence (the hub restarted).
	// Readers should reload frame state before trusting further events.
	Gap bool
}

// Fetch returns buffered events with sequence greater than since,
// restricted to topic unless topic is empty. When wait is true it blocks
// until a matching event arrives, the hub closes, or ctx ends.
func (h *Hub) Fetch(ctx context.Context, topic Topic, since uint64, limit int, wait bool) (Page, error) {
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		page := h.snapshotLocked(topic, since, limit)
		if len(page.Events) > 0 || page.Gap || !wait {
			return page, contextError(ctx)
		}
		if h.closed {
			return page, ErrClosed
		}
		if err := contextError(ctx); err != nil {
			return page, err
		}
		h.cond.Wait()
	}
}

// Close drops every subscriber and wakes blocked fetchers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.subs {
		for id, sub := range subs {
			close(sub.ch)
			delete(subs, id)
			h.metrics.SubscriberDelta(string(topic), -1)
		}
	}
	h.cond.Broadcast()
}

func (h *Hub) snapshotLocked(topic Topic, since uint64, limit int) Page {
	page := Page{Next: h.nextSeq, Gap: since > h.nextSeq}
	if len(h.buffer) > 0 {
		page.Oldest = h.buffer[0].Sequence
		page.Gap = page.Gap || since+1 < page.Oldest
	}
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		if topic != "" && evt.Topic != topic {
			continue
		}
		page.Events = append(page.Events, evt)
		if len(page.Events) == limit {
			page.Next = evt.Sequence
			break
		}
	}
	return page
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[sub.Topic]
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	close(sub.ch)
	h.metrics.SubscriberDelta(string(sub.Topic), -1)
	h.logger.Debug("subscriber removed",
		logging.String(logging.FieldTopic, string(sub.Topic)),
		logging.String("subscriber_id", sub.ID),
		logging.Uint64("dropped", sub.dropped.Load()),
	)
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// Subscription is one live consumer of a topic.
type Subscription struct {
	ID      string
	Topic   Topic
	ch      chan Event
	hub     *Hub
	dropped atomic.Uint64
}

// Events yields delivered events. The channel closes when the
// subscription or the hub closes.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped reports how many events this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}
