package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulse-social/pulse/internal/model"
)

const (
	// TimelineKeyPrefix is the key prefix for per-user timelines
	TimelineKeyPrefix = "timeline:"

	// DefaultTimelineCap is the maximum number of entries per cached timeline
	DefaultTimelineCap = 1000

	// opTimeout bounds every cache round-trip so a slow Redis cannot stall
	// request handlers or the fan-out worker
	opTimeout = 2 * time.Second
)

// Entry is one (post id, score) pair in a timeline. Score is the post's
// created_at as fractional seconds.
type Entry struct {
	PostID int64
	Score  float64
}

// TimelineCache defines the interface for the per-user timeline cache.
// Using an interface enables testing with mocks and potential future backends.
type TimelineCache interface {
	// Add inserts one entry into the owner's timeline and trims it to the
	// cap. Insert and trim execute atomically against concurrent adds on
	// the same owner.
	Add(ctx context.Context, ownerID int64, entry Entry) error

	// AddMany is the bulk form of Add with the same atomicity for the
	// whole batch.
	AddMany(ctx context.Context, ownerID int64, entries []Entry) error

	// AddToMany inserts the same entry into many owners' timelines in one
	// pipelined round-trip, trimming each to the cap. This is the fan-out
	// write path: one post, a batch of followers.
	AddToMany(ctx context.Context, ownerIDs []int64, entry Entry) error

	// Range returns up to limit entries starting at offset, descending by
	// score. Returns ErrCacheUnavailable-style errors when Redis is down;
	// a missing key yields (entries=nil, exists=false, err=nil).
	Range(ctx context.Context, ownerID int64, offset, limit int) (entries []Entry, exists bool, err error)

	// Invalidate drops the owner's entire timeline.
	Invalidate(ctx context.Context, ownerID int64) error

	// RemovePost removes one post from one owner's timeline.
	RemovePost(ctx context.Context, ownerID, postID int64) error

	// RemovePostEverywhere scans all timelines and removes the post from
	// each. Best effort; used after post deletion, off the request path.
	RemovePostEverywhere(ctx context.Context, postID int64) error

	// Size returns the number of entries in the owner's timeline.
	Size(ctx context.Context, ownerID int64) (int64, error)

	// Available is a cheap liveness probe. It never panics and never
	// returns an error, only false.
	Available(ctx context.Context) bool
}

// RedisTimelineCache implements TimelineCache using Redis sorted sets.
type RedisTimelineCache struct {
	client *redis.Client
	cap    int
}

// NewTimelineCache creates a TimelineCache backed by Redis. cap <= 0 falls
// back to DefaultTimelineCap.
func NewTimelineCache(client *redis.Client, cap int) TimelineCache {
	if cap <= 0 {
		cap = DefaultTimelineCap
	}
	return &RedisTimelineCache{client: client, cap: cap}
}

func timelineKey(ownerID int64) string {
	return fmt.Sprintf("%s%d", TimelineKeyPrefix, ownerID)
}

// member encodes a post id as a fixed-width decimal string. Redis orders
// equal-score members lexicographically, so zero padding makes that order
// equal to numeric post-id order: score ties evict the lower id first and
// descending reads return the lower id last.
func member(postID int64) string {
	return fmt.Sprintf("%020d", postID)
}

func parseMember(m string) (int64, error) {
	return strconv.ParseInt(m, 10, 64)
}

// Add inserts one entry and trims to cap in a single MULTI/EXEC so no
// concurrent add can observe the set above cap.
func (c *RedisTimelineCache) Add(ctx context.Context, ownerID int64, entry Entry) error {
	return c.AddMany(ctx, ownerID, []Entry{entry})
}

func (c *RedisTimelineCache) AddMany(ctx context.Context, ownerID int64, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := timelineKey(ownerID)
	startTime := time.Now()

	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{
			Score:  e.Score,
			Member: member(e.PostID),
		}
	}

	// ZADD re-adding an existing member with the same score is a no-op,
	// which is what makes redelivered fan-out events idempotent.
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-c.cap-1))

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[TimelineCache] AddMany FAILED: owner=%d entries=%d err=%v", ownerID, len(entries), err)
		return fmt.Errorf("add to timeline: %w", err)
	}

	log.Printf("[TimelineCache] AddMany OK: owner=%d entries=%d duration=%v",
		ownerID, len(entries), time.Since(startTime))
	return nil
}

// AddToMany writes one entry to a batch of timelines. All ZADD+trim pairs
// ride one TxPipeline, so a 1000-follower chunk costs a single round-trip.
// Each pair is still atomic per key; a failure fails the whole batch and
// the caller redelivers, which ZADD absorbs idempotently.
func (c *RedisTimelineCache) AddToMany(ctx context.Context, ownerIDs []int64, entry Entry) error {
	if len(ownerIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	startTime := time.Now()
	z := redis.Z{Score: entry.Score, Member: member(entry.PostID)}

	pipe := c.client.TxPipeline()
	for _, ownerID := range ownerIDs {
		key := timelineKey(ownerID)
		pipe.ZAdd(ctx, key, z)
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-c.cap-1))
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[TimelineCache] AddToMany FAILED: post=%d owners=%d err=%v", entry.PostID, len(ownerIDs), err)
		return fmt.Errorf("fan out to timelines: %w", err)
	}

	log.Printf("[TimelineCache] AddToMany OK: post=%d owners=%d duration=%v",
		entry.PostID, len(ownerIDs), time.Since(startTime))
	return nil
}

// Range returns entries [offset, offset+limit) by descending score.
// exists=false distinguishes a never-built timeline from an empty one, so
// the reader can fall back to the database instead of serving nothing.
func (c *RedisTimelineCache) Range(ctx context.Context, ownerID int64, offset, limit int) ([]Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := timelineKey(ownerID)
	startTime := time.Now()

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("[TimelineCache] Range FAILED: owner=%d err=%v", ownerID, err)
		return nil, false, fmt.Errorf("%w: %v", model.ErrCacheUnavailable, err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	results, err := c.client.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		log.Printf("[TimelineCache] Range FAILED: owner=%d err=%v", ownerID, err)
		return nil, false, fmt.Errorf("%w: %v", model.ErrCacheUnavailable, err)
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		id, err := parseMember(z.Member.(string))
		if err != nil {
			return nil, false, fmt.Errorf("parse post id: %w", err)
		}
		entries[i] = Entry{PostID: id, Score: z.Score}
	}

	log.Printf("[TimelineCache] Range OK: owner=%d offset=%d returned=%d duration=%v",
		ownerID, offset, len(entries), time.Since(startTime))
	return entries, true, nil
}

func (c *RedisTimelineCache) Invalidate(ctx context.Context, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, timelineKey(ownerID)).Err(); err != nil {
		log.Printf("[TimelineCache] Invalidate FAILED: owner=%d err=%v", ownerID, err)
		return fmt.Errorf("invalidate timeline: %w", err)
	}

	log.Printf("[TimelineCache] Invalidate OK: owner=%d", ownerID)
	return nil
}

func (c *RedisTimelineCache) RemovePost(ctx context.Context, ownerID, postID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.ZRem(ctx, timelineKey(ownerID), member(postID)).Err(); err != nil {
		log.Printf("[TimelineCache] RemovePost FAILED: owner=%d post=%d err=%v", ownerID, postID, err)
		return fmt.Errorf("remove post from timeline: %w", err)
	}
	return nil
}

// RemovePostEverywhere walks timeline keys with SCAN and issues one ZREM
// per key. Errors on individual keys are logged and skipped.
func (c *RedisTimelineCache) RemovePostEverywhere(ctx context.Context, postID int64) error {
	startTime := time.Now()
	m := member(postID)

	var scanned, removed int
	iter := c.client.Scan(ctx, 0, TimelineKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		scanned++
		n, err := c.client.ZRem(ctx, iter.Val(), m).Result()
		if err != nil {
			log.Printf("[TimelineCache] RemovePostEverywhere: key=%s err=%v", iter.Val(), err)
			continue
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		log.Printf("[TimelineCache] RemovePostEverywhere FAILED: post=%d err=%v", postID, err)
		return fmt.Errorf("scan timelines: %w", err)
	}

	log.Printf("[TimelineCache] RemovePostEverywhere OK: post=%d scanned=%d removed=%d duration=%v",
		postID, scanned, removed, time.Since(startTime))
	return nil
}

func (c *RedisTimelineCache) Size(ctx context.Context, ownerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	size, err := c.client.ZCard(ctx, timelineKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get timeline size: %w", err)
	}
	return size, nil
}

func (c *RedisTimelineCache) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return c.client.Ping(ctx).Err() == nil
}
