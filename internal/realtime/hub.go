package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/observability"
)

// Subscriber receives room envelopes. Send must not block: slow
// consumers are the transport's problem, not the hub's.
type Subscriber interface {
	Send(env Envelope)
}

// Relay mirrors envelopes to other service instances.
type Relay interface {
	Publish(ctx context.Context, postID string, env Envelope) error
}

// Hub maintains the per-listing subscriber sets and fans envelopes out,
// best effort, to every current subscriber of a listing.
type Hub struct {
	logger  *zap.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	relay Relay
	rooms map[string]map[Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		rooms:   make(map[string]map[Subscriber]struct{}),
	}
}

// SetRelay attaches the cross-instance relay. Optional.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

// Join adds a subscriber to the listing's room.
func (h *Hub) Join(postID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[postID]
	if !ok {
		room = make(map[Subscriber]struct{})
		h.rooms[postID] = room
	}
	if _, ok := room[sub]; !ok {
		room[sub] = struct{}{}
		h.metrics.AddRoomSubscribers(1)
	}
}

// JoinWithReplay runs the replay callback, adds the subscriber, and
// queues the replay envelope, all under the room lock. A broadcast
// racing the join blocks until both are done, so the subscriber sees
// the replay strictly before anything newer and a racing envelope is
// never queued ahead of it. On a replay error the subscriber is not
// joined.
func (h *Hub) JoinWithReplay(postID string, sub Subscriber, replay func() (Envelope, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	env, err := replay()
	if err != nil {
		return err
	}
	room, ok := h.rooms[postID]
	if !ok {
		room = make(map[Subscriber]struct{})
		h.rooms[postID] = room
	}
	if _, ok := room[sub]; !ok {
		room[sub] = struct{}{}
		h.metrics.AddRoomSubscribers(1)
	}
	sub.Send(env)
	return nil
}

// Leave removes a subscriber from the listing's room. No-op when the
// subscriber never joined.
func (h *Hub) Leave(postID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[postID]
	if !ok {
		return
	}
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	h.metrics.AddRoomSubscribers(-1)
	if len(room) == 0 {
		delete(h.rooms, postID)
	}
}

// Broadcast delivers the envelope to every local subscriber of the
// listing and mirrors it through the relay when one is attached.
func (h *Hub) Broadcast(postID string, env Envelope) {
	h.DeliverLocal(postID, env)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}
	if err := relay.Publish(context.Background(), postID, env); err != nil {
		h.logger.Warn("room relay publish failed", zap.String("post_id", postID), zap.Error(err))
	}
}

// DeliverLocal sends the envelope to local subscribers only. The relay
// bridge uses it to avoid echo loops.
func (h *Hub) DeliverLocal(postID string, env Envelope) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[postID]))
	for sub := range h.rooms[postID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Send(env)
	}
	h.metrics.RecordBroadcast(env.Event)
}

// Subscribers reports the current room size for a listing.
func (h *Hub) Subscribers(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[postID])
}
