package cache_test

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/pulse-social/pulse/internal/cache"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)
	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

func postIDs(entries []cache.Entry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}
	return ids
}

func TestAddAndRange(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)
	ownerID := int64(1)

	// Insert out of order; reads must come back newest first.
	for _, e := range []cache.Entry{
		{PostID: 10, Score: 100.0},
		{PostID: 30, Score: 300.0},
		{PostID: 20, Score: 200.0},
	} {
		if err := tc.Add(ctx, ownerID, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	entries, exists, err := tc.Range(ctx, ownerID, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if !exists {
		t.Fatal("expected timeline to exist")
	}

	want := []int64{30, 20, 10}
	got := postIDs(entries)
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: post = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRangeMissingTimeline(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	tc := cache.NewTimelineCache(client, 1000)

	entries, exists, err := tc.Range(context.Background(), 999, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if exists {
		t.Error("expected exists=false for a never-built timeline")
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestTrimToCap(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 5)
	ownerID := int64(1)

	for i := 1; i <= 8; i++ {
		err := tc.Add(ctx, ownerID, cache.Entry{PostID: int64(i), Score: float64(i * 100)})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	size, err := tc.Size(ctx, ownerID)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}

	// The three lowest-scored posts must be gone.
	entries, _, err := tc.Range(ctx, ownerID, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	for _, id := range postIDs(entries) {
		if id <= 3 {
			t.Errorf("post %d should have been evicted", id)
		}
	}
}

func TestEvictionTieBreaksOnLowerPostID(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 2)
	ownerID := int64(1)

	// Three posts with the same score in a cap-2 timeline: the lowest id
	// is the eviction victim.
	err := tc.AddMany(ctx, ownerID, []cache.Entry{
		{PostID: 101, Score: 500.0},
		{PostID: 102, Score: 500.0},
		{PostID: 103, Score: 500.0},
	})
	if err != nil {
		t.Fatalf("AddMany failed: %v", err)
	}

	entries, _, err := tc.Range(ctx, ownerID, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	for _, id := range postIDs(entries) {
		if id == 101 {
			t.Error("post 101 should have been evicted (lowest id on score tie)")
		}
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestRangeTieOrderLowerIDLast(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)
	ownerID := int64(1)

	err := tc.AddMany(ctx, ownerID, []cache.Entry{
		{PostID: 7, Score: 500.0},
		{PostID: 9, Score: 500.0},
		{PostID: 8, Score: 500.0},
	})
	if err != nil {
		t.Fatalf("AddMany failed: %v", err)
	}

	entries, _, err := tc.Range(ctx, ownerID, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	want := []int64{9, 8, 7}
	got := postIDs(entries)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tie order: entry %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAddIsIdempotent(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)
	ownerID := int64(1)
	entry := cache.Entry{PostID: 42, Score: 123.456}

	for i := 0; i < 3; i++ {
		if err := tc.Add(ctx, ownerID, entry); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	size, err := tc.Size(ctx, ownerID)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1 {
		t.Errorf("size = %d, want 1 after duplicate adds", size)
	}
}

func TestAddToMany(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)
	owners := []int64{2, 3, 4}
	entry := cache.Entry{PostID: 77, Score: 900.0}

	if err := tc.AddToMany(ctx, owners, entry); err != nil {
		t.Fatalf("AddToMany failed: %v", err)
	}

	for _, ownerID := range owners {
		entries, exists, err := tc.Range(ctx, ownerID, 0, 10)
		if err != nil {
			t.Fatalf("Range failed for owner %d: %v", ownerID, err)
		}
		if !exists || len(entries) != 1 || entries[0].PostID != 77 {
			t.Errorf("owner %d: post 77 missing from timeline", ownerID)
		}
	}
}

func TestInvalidate(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)
	ownerID := int64(1)

	if err := tc.Add(ctx, ownerID, cache.Entry{PostID: 1, Score: 1.0}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := tc.Invalidate(ctx, ownerID); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	_, exists, err := tc.Range(ctx, ownerID, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if exists {
		t.Error("expected timeline to be gone after Invalidate")
	}
}

func TestRemovePostEverywhere(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	tc := cache.NewTimelineCache(client, 1000)

	if err := tc.AddToMany(ctx, []int64{1, 2, 3}, cache.Entry{PostID: 55, Score: 10.0}); err != nil {
		t.Fatalf("AddToMany failed: %v", err)
	}
	if err := tc.Add(ctx, 2, cache.Entry{PostID: 56, Score: 11.0}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := tc.RemovePostEverywhere(ctx, 55); err != nil {
		t.Fatalf("RemovePostEverywhere failed: %v", err)
	}

	for _, ownerID := range []int64{1, 2, 3} {
		entries, _, err := tc.Range(ctx, ownerID, 0, 10)
		if err != nil {
			t.Fatalf("Range failed: %v", err)
		}
		for _, id := range postIDs(entries) {
			if id == 55 {
				t.Errorf("post 55 still present in owner %d's timeline", ownerID)
			}
		}
	}

	// Unrelated posts survive the purge.
	entries, _, err := tc.Range(ctx, 2, 0, 10)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(entries) != 1 || entries[0].PostID != 56 {
		t.Error("post 56 should have survived the purge")
	}
}
