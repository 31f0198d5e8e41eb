package service

import (
	"context"
	"testing"
	"time"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
)

func timelineUsers() *mockUserRepo {
	return &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "someone"}, nil
		},
	}
}

func postAt(id int64, score float64) model.Post {
	return model.Post{ID: id, CreatedAt: time.UnixMilli(int64(score * 1000))}
}

func responseIDs(resp *model.TimelineResponse) []int64 {
	ids := make([]int64, len(resp.Posts))
	for i, p := range resp.Posts {
		ids[i] = p.ID
	}
	return ids
}

func TestTimeline_CacheOnly(t *testing.T) {
	tc := newMockTimelineCache()
	tc.timelines[1] = []cache.Entry{
		{PostID: 30, Score: 300},
		{PostID: 20, Score: 200},
		{PostID: 10, Score: 100},
	}

	svc := NewTimelineService(tc, &mockPostRepo{}, timelineUsers(), &mockFollowRepo{}, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	if resp.Source != model.TimelineSourceCache {
		t.Errorf("source = %q, want %q", resp.Source, model.TimelineSourceCache)
	}
	if resp.HasMore {
		t.Error("has_more should be false for a 3-post timeline")
	}

	want := []int64{30, 20, 10}
	got := responseIDs(resp)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("post %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTimeline_CachePlusPullMergesAndDedups(t *testing.T) {
	tc := newMockTimelineCache()
	tc.timelines[1] = []cache.Entry{
		{PostID: 10, Score: 100},
		{PostID: 5, Score: 50},
	}

	follows := &mockFollowRepo{
		followedCelebrityIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{9}, nil
		},
	}
	posts := &mockPostRepo{
		recentPostsByAuthorsFn: func(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error) {
			if len(authorIDs) != 1 || authorIDs[0] != 9 {
				t.Errorf("pull authors = %v, want [9]", authorIDs)
			}
			// One fresh celebrity post plus a duplicate of a cached id.
			return []model.Post{postAt(99, 150), postAt(10, 100)}, nil
		},
	}

	svc := NewTimelineService(tc, posts, timelineUsers(), follows, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	if resp.Source != model.TimelineSourceCachePull {
		t.Errorf("source = %q, want %q", resp.Source, model.TimelineSourceCachePull)
	}

	want := []int64{99, 10, 5}
	got := responseIDs(resp)
	if len(got) != len(want) {
		t.Fatalf("got %d posts %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("post %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTimeline_MergeTieOrderLowerIDLast(t *testing.T) {
	tc := newMockTimelineCache()
	tc.timelines[1] = []cache.Entry{
		{PostID: 7, Score: 500},
	}

	follows := &mockFollowRepo{
		followedCelebrityIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{9}, nil
		},
	}
	posts := &mockPostRepo{
		recentPostsByAuthorsFn: func(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error) {
			return []model.Post{postAt(9, 500)}, nil
		},
	}

	svc := NewTimelineService(tc, posts, timelineUsers(), follows, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	// Equal scores: the higher post id reads first.
	want := []int64{9, 7}
	got := responseIDs(resp)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tie order: post %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTimeline_FallbackWhenCacheUnavailable(t *testing.T) {
	tc := newMockTimelineCache()
	tc.available = false

	follows := &mockFollowRepo{
		followeeIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{2, 3}, nil
		},
	}

	var queriedAuthors []int64
	posts := &mockPostRepo{
		recentPostsByAuthorsFn: func(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error) {
			queriedAuthors = authorIDs
			return []model.Post{postAt(42, 100)}, nil
		},
	}

	svc := NewTimelineService(tc, posts, timelineUsers(), follows, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	if resp.Source != model.TimelineSourceDatabase {
		t.Errorf("source = %q, want %q", resp.Source, model.TimelineSourceDatabase)
	}
	if len(resp.Posts) != 1 || resp.Posts[0].ID != 42 {
		t.Errorf("posts = %v, want [42]", responseIDs(resp))
	}

	// The viewer's own posts belong in the fallback scan.
	var includesViewer bool
	for _, id := range queriedAuthors {
		if id == 1 {
			includesViewer = true
		}
	}
	if !includesViewer {
		t.Errorf("fallback authors = %v, should include the viewer", queriedAuthors)
	}
}

func TestTimeline_FallbackWhenTimelineMissing(t *testing.T) {
	// Cache is up but the viewer has no cached timeline.
	tc := newMockTimelineCache()

	posts := &mockPostRepo{
		recentPostsByAuthorsFn: func(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error) {
			return nil, nil
		},
	}

	svc := NewTimelineService(tc, posts, timelineUsers(), &mockFollowRepo{}, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if resp.Source != model.TimelineSourceDatabase {
		t.Errorf("source = %q, want %q", resp.Source, model.TimelineSourceDatabase)
	}
	if len(resp.Posts) != 0 {
		t.Errorf("expected empty timeline, got %v", responseIDs(resp))
	}
}

func TestTimeline_OffsetBeyondEnd(t *testing.T) {
	tc := newMockTimelineCache()
	tc.timelines[1] = []cache.Entry{{PostID: 1, Score: 10}}

	svc := NewTimelineService(tc, &mockPostRepo{}, timelineUsers(), &mockFollowRepo{}, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 50, 100)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if len(resp.Posts) != 0 {
		t.Errorf("expected no posts past the end, got %d", len(resp.Posts))
	}
	if resp.HasMore {
		t.Error("has_more should be false past the end")
	}
}

func TestTimeline_LimitClamped(t *testing.T) {
	tc := newMockTimelineCache()
	entries := make([]cache.Entry, 150)
	for i := range entries {
		entries[i] = cache.Entry{PostID: int64(1000 - i), Score: float64(1000 - i)}
	}
	tc.timelines[1] = entries

	svc := NewTimelineService(tc, &mockPostRepo{}, timelineUsers(), &mockFollowRepo{}, 24*time.Hour)

	resp, err := svc.GetTimeline(context.Background(), 1, 500, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if len(resp.Posts) != TimelineMaxLimit {
		t.Errorf("got %d posts with limit 500, want clamp to %d", len(resp.Posts), TimelineMaxLimit)
	}
}
