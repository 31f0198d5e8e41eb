package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/queue"
)

// DefaultFanoutBatchSize is the follower chunk size per cache write.
const DefaultFanoutBatchSize = 1000

// AuthorProvider fetches the author of an event. The worker re-reads the
// author on every delivery so a flag flip between publish and processing
// is honored.
type AuthorProvider interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// FollowerChunker pages follower ids in keyset chunks, so fan-out memory
// stays bounded regardless of follower count.
type FollowerChunker interface {
	FollowerIDsAfter(ctx context.Context, userID, afterID int64, limit int) ([]int64, error)
}

// Handler processes fan-out events from the bus.
type Handler struct {
	timelineCache cache.TimelineCache
	authors       AuthorProvider
	followers     FollowerChunker
	batchSize     int
}

func NewHandler(timelineCache cache.TimelineCache, authors AuthorProvider, followers FollowerChunker, batchSize int) *Handler {
	if batchSize <= 0 {
		batchSize = DefaultFanoutBatchSize
	}
	return &Handler{
		timelineCache: timelineCache,
		authors:       authors,
		followers:     followers,
		batchSize:     batchSize,
	}
}

// HandleEvent routes an event by type. A nil return tells the caller to
// acknowledge; an error leaves the message in flight for redelivery.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	default:
		// Unknown types are acked: retrying cannot make them known.
		log.Printf("[Worker] Unknown event type, skipping: type=%s", event.Type)
		return nil
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s post=%d duration=%v err=%v",
			event.Type, event.PostID, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s post=%d duration=%v",
		event.Type, event.PostID, time.Since(startTime))
	return nil
}

// handlePostCreated fans a post out to the author's followers in chunks.
// Every cache write is an idempotent ZADD, so a redelivery after a partial
// fan-out just re-covers chunks that already succeeded.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.Event) error {
	author, err := h.authors.GetByID(ctx, event.AuthorID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			log.Printf("[Worker] PostCreated: author gone, skipping: post=%d author=%d", event.PostID, event.AuthorID)
			return nil
		}
		return fmt.Errorf("load author: %w", err)
	}

	// Authors who crossed the celebrity threshold after publish are served
	// by the pull path; pushing would double-deliver their posts.
	if author.IsCelebrity {
		log.Printf("[Worker] PostCreated: author is celebrity, skipping fan-out: post=%d author=%d",
			event.PostID, event.AuthorID)
		return nil
	}

	entry := cache.Entry{PostID: event.PostID, Score: event.Timestamp}

	var fannedOut int
	afterID := int64(0)
	for {
		followerIDs, err := h.followers.FollowerIDsAfter(ctx, event.AuthorID, afterID, h.batchSize)
		if err != nil {
			return fmt.Errorf("page followers after id=%d: %w", afterID, err)
		}
		if len(followerIDs) == 0 {
			break
		}

		if err := h.timelineCache.AddToMany(ctx, followerIDs, entry); err != nil {
			return fmt.Errorf("fan out chunk after id=%d: %w", afterID, err)
		}

		fannedOut += len(followerIDs)
		afterID = followerIDs[len(followerIDs)-1]

		if len(followerIDs) < h.batchSize {
			break
		}
	}

	// Authors see their own posts in their timeline.
	if err := h.timelineCache.Add(ctx, event.AuthorID, entry); err != nil {
		return fmt.Errorf("add to author timeline: %w", err)
	}

	log.Printf("[Worker] PostCreated: fanned out post=%d author=%d followers=%d",
		event.PostID, event.AuthorID, fannedOut)
	return nil
}

// handlePostDeleted purges the post from every cached timeline. Best
// effort: the store is the source of truth and hydration drops dead ids,
// so a failed purge is logged and the message acked anyway.
func (h *Handler) handlePostDeleted(ctx context.Context, event queue.Event) error {
	if err := h.timelineCache.RemovePostEverywhere(ctx, event.PostID); err != nil {
		log.Printf("[Worker] PostDeleted: purge incomplete: post=%d err=%v", event.PostID, err)
	}
	return nil
}
