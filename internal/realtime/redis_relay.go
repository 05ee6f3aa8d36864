package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayPattern = "room:*"

// RedisRelay mirrors room envelopes across service instances through
// Redis pub/sub, so subscribers connected to different instances see
// the same room traffic.
type RedisRelay struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

type relayFrame struct {
	Origin   string   `json:"origin"`
	PostID   string   `json:"postId"`
	Envelope Envelope `json:"envelope"`
}

// NewRedisRelay creates a relay with a fresh instance identity.
func NewRedisRelay(client *redis.Client, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:     client,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Publish mirrors one envelope to the listing's channel.
func (r *RedisRelay) Publish(ctx context.Context, postID string, env Envelope) error {
	frame := relayFrame{Origin: r.instanceID, PostID: postID, Envelope: env}
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, "room:"+postID, body).Err()
}

// Run subscribes to all room channels and re-delivers frames published
// by other instances to the local hub, until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) {
	sub := r.client.PSubscribe(ctx, relayPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame relayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				r.logger.Warn("dropping malformed relay frame", zap.Error(err))
				continue
			}
			if frame.Origin == r.instanceID {
				continue
			}
			hub.DeliverLocal(frame.PostID, frame.Envelope)
		}
	}
}
