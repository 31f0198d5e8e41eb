package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Stream and group names for the Redis Streams bus
const (
	StreamEvents = "stream:events"

	// StreamDeadLetter holds messages that exceeded the redelivery limit.
	StreamDeadLetter = "stream:events:dead"

	ConsumerGroup = "fanout_workers"
)

// RedisBus implements Bus on Redis Streams with a consumer group.
//
// At-least-once semantics: XREADGROUP delivers new messages to this
// consumer's pending list; a message stays pending until XACK. The
// visibility timeout is enforced with XAUTOCLAIM: any message pending longer
// than the timeout (its consumer crashed or stalled) is claimed by the next
// Receive call. XPENDING delivery counts drive the dead-letter move.
type RedisBus struct {
	client            *redis.Client
	consumerName      string
	visibilityTimeout time.Duration
	maxReceives       int
}

// NewRedisBus creates the Redis Streams bus. Each bus instance gets a unique
// consumer name so multiple worker processes can share the group.
func NewRedisBus(client *redis.Client, visibilityTimeout time.Duration, maxReceives int) *RedisBus {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}
	if maxReceives <= 0 {
		maxReceives = 3
	}
	return &RedisBus{
		client:            client,
		consumerName:      "consumer-" + uuid.NewString(),
		visibilityTimeout: visibilityTimeout,
		maxReceives:       maxReceives,
	}
}

// EnsureGroup creates the consumer group if it doesn't exist. "$" starts the
// group at the stream tail so a fresh group does not replay history.
func (b *RedisBus) EnsureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, StreamEvents, ConsumerGroup, "$").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}
	log.Printf("[RedisBus] Created consumer group: stream=%s group=%s", StreamEvents, ConsumerGroup)
	return nil
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return err
	}

	return publishWithRetry(ctx, func(ctx context.Context) error {
		id, err := b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamEvents,
			Values: map[string]interface{}{"body": string(body)},
		}).Result()
		if err != nil {
			return fmt.Errorf("xadd: %w", err)
		}
		log.Printf("[RedisBus] Publish OK: type=%s post=%d msgID=%s", event.Type, event.PostID, id)
		return nil
	})
}

// Receive first reclaims messages whose visibility timeout expired, then
// long-polls for new ones. Reclaimed messages over the redelivery limit are
// diverted to the dead-letter stream and acked here.
func (b *RedisBus) Receive(ctx context.Context, maxCount int, wait time.Duration) ([]Message, error) {
	if err := b.EnsureGroup(ctx); err != nil {
		return nil, err
	}

	messages, err := b.reclaimExpired(ctx, maxCount)
	if err != nil {
		return nil, err
	}
	if len(messages) >= maxCount {
		return messages, nil
	}

	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: b.consumerName,
		Streams:  []string{StreamEvents, ">"},
		Count:    int64(maxCount - len(messages)),
		Block:    wait,
	}).Result()
	if err == redis.Nil {
		return messages, nil // wait elapsed, nothing new
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			body, ok := msg.Values["body"].(string)
			if !ok {
				// No payload at all; nothing downstream can do with it.
				log.Printf("[RedisBus] Dropping message without body: msgID=%s", msg.ID)
				b.ackQuiet(ctx, msg.ID)
				continue
			}
			messages = append(messages, Message{Handle: msg.ID, Body: []byte(body)})
		}
	}

	return messages, nil
}

// reclaimExpired claims messages pending longer than the visibility timeout
// from any consumer in the group, dead-lettering those already redelivered
// maxReceives times.
func (b *RedisBus) reclaimExpired(ctx context.Context, maxCount int) ([]Message, error) {
	claimed, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamEvents,
		Group:    ConsumerGroup,
		Consumer: b.consumerName,
		MinIdle:  b.visibilityTimeout,
		Start:    "0-0",
		Count:    int64(maxCount),
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}

	var messages []Message
	for _, msg := range claimed {
		body, ok := msg.Values["body"].(string)
		if !ok {
			b.ackQuiet(ctx, msg.ID)
			continue
		}

		if b.deliveryCount(ctx, msg.ID) > int64(b.maxReceives) {
			log.Printf("[RedisBus] Dead-lettering message: msgID=%s receives>%d", msg.ID, b.maxReceives)
			if err := b.client.XAdd(ctx, &redis.XAddArgs{
				Stream: StreamDeadLetter,
				Values: map[string]interface{}{"body": body, "origin_id": msg.ID},
			}).Err(); err != nil {
				// Leave it pending so the move is retried next claim.
				log.Printf("[RedisBus] Dead-letter XADD FAILED: msgID=%s err=%v", msg.ID, err)
				continue
			}
			b.ackQuiet(ctx, msg.ID)
			continue
		}

		messages = append(messages, Message{Handle: msg.ID, Body: []byte(body)})
	}
	if len(messages) > 0 {
		log.Printf("[RedisBus] Reclaimed %d expired messages", len(messages))
	}
	return messages, nil
}

// deliveryCount reads the redelivery counter XPENDING keeps per message.
// Unknown counts err on the side of redelivery, not dead-lettering.
func (b *RedisBus) deliveryCount(ctx context.Context, msgID string) int64 {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamEvents,
		Group:  ConsumerGroup,
		Start:  msgID,
		End:    msgID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return pending[0].RetryCount
}

func (b *RedisBus) Ack(ctx context.Context, handle string) error {
	if err := b.client.XAck(ctx, StreamEvents, ConsumerGroup, handle).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (b *RedisBus) ackQuiet(ctx context.Context, handle string) {
	if err := b.Ack(ctx, handle); err != nil {
		log.Printf("[RedisBus] Ack FAILED: msgID=%s err=%v", handle, err)
	}
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
