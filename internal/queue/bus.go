package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pulse-social/pulse/internal/config"
	pulseredis "github.com/pulse-social/pulse/internal/redis"
)

const (
	// PublishMaxAttempts bounds publish retries on transient failures.
	PublishMaxAttempts = 3

	// publishTimeout bounds a single publish attempt.
	publishTimeout = 5 * time.Second

	// publishBackoff is the base delay between publish attempts,
	// doubled per attempt.
	publishBackoff = 200 * time.Millisecond
)

// Message is one received event with its opaque receipt handle. Body is the
// raw payload; consumers parse it themselves so malformed messages can be
// acked instead of redelivered forever.
type Message struct {
	Handle string
	Body   []byte
}

// Bus is an at-least-once event queue. Unacked messages become visible again
// after the visibility timeout; messages redelivered more than the configured
// maximum are moved to a dead-letter sink and never seen by consumers again.
// Ordering is not guaranteed and duplicates are possible.
type Bus interface {
	// Publish durably enqueues the event, retrying transient failures up
	// to PublishMaxAttempts with exponential backoff.
	Publish(ctx context.Context, event Event) error

	// Receive long-polls for up to wait, returning at most maxCount
	// messages. An empty batch means the wait elapsed.
	Receive(ctx context.Context, maxCount int, wait time.Duration) ([]Message, error)

	// Ack removes the message identified by its receipt handle.
	Ack(ctx context.Context, handle string) error

	// Ping probes bus liveness for health reporting.
	Ping(ctx context.Context) error

	Close() error
}

// NewBus selects the bus implementation from EVENT_BUS_URL: redis:// URLs
// (or an empty URL, which reuses CACHE_URL) get the Redis Streams bus,
// anything else is treated as an SQS queue URL.
func NewBus(ctx context.Context, cfg *config.Config) (Bus, error) {
	url := cfg.EventBusURL

	if url == "" || strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		if url == "" {
			url = cfg.CacheURL
		}
		client, err := pulseredis.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("event bus redis client: %w", err)
		}
		log.Printf("[Bus] Using Redis Streams bus: url=%s", url)
		bus := NewRedisBus(client.Client, cfg.EventBusVisibilityTimeout, cfg.EventBusMaxReceives)
		// Create the group now, at the stream tail, so events published
		// before the first worker receive are still delivered.
		if err := bus.EnsureGroup(ctx); err != nil {
			log.Printf("[Bus] EnsureGroup FAILED (will retry on receive): %v", err)
		}
		return bus, nil
	}

	log.Printf("[Bus] Using SQS bus: queue=%s", url)
	return NewSQSBus(ctx, url, cfg.EventBusVisibilityTimeout)
}

// publishWithRetry runs attempt up to PublishMaxAttempts times with a
// per-attempt deadline and exponential backoff between attempts.
func publishWithRetry(ctx context.Context, attempt func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i < PublishMaxAttempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		lastErr = attempt(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		log.Printf("[Bus] Publish attempt %d/%d failed: %v", i+1, PublishMaxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(publishBackoff << i):
		}
	}
	return fmt.Errorf("publish after %d attempts: %w", PublishMaxAttempts, lastErr)
}
