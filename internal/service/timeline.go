package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/repository"
)

const (
	// TimelineDefaultLimit is the default number of posts per page
	TimelineDefaultLimit = 50

	// TimelineMaxLimit is the maximum number of posts per page
	TimelineMaxLimit = 100

	// CelebrityPullLimit caps how many celebrity posts are pulled per read
	CelebrityPullLimit = 20
)

type TimelineService struct {
	timelineCache cache.TimelineCache
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	followRepo    repository.FollowRepository
	pullWindow    time.Duration
}

func NewTimelineService(
	timelineCache cache.TimelineCache,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	pullWindow time.Duration,
) *TimelineService {
	if pullWindow <= 0 {
		pullWindow = 24 * time.Hour
	}
	return &TimelineService{
		timelineCache: timelineCache,
		postRepo:      postRepo,
		userRepo:      userRepo,
		followRepo:    followRepo,
		pullWindow:    pullWindow,
	}
}

// GetTimeline assembles the viewer's timeline.
//
// Hybrid read: the cached push-timeline covers regular authors; posts from
// followed celebrities are pulled fresh from the store and merged in. When
// the cache is down or the viewer has no cached timeline, the whole read
// falls back to a store scan over the viewer's followees.
func (s *TimelineService) GetTimeline(ctx context.Context, viewerID int64, limit, offset int) (*model.TimelineResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = TimelineDefaultLimit
	}
	if limit > TimelineMaxLimit {
		limit = TimelineMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, ok := s.readCache(ctx, viewerID, offset+limit)
	if !ok {
		return s.timelineFromStore(ctx, viewerID, limit, offset)
	}

	source := model.TimelineSourceCache

	celebIDs, err := s.followRepo.FollowedCelebrityIDs(ctx, viewerID)
	if err != nil {
		// Degrade to the push-timeline alone rather than failing the read.
		log.Printf("[TimelineService] Celebrity lookup FAILED: viewer=%d err=%v", viewerID, err)
		celebIDs = nil
	}

	if len(celebIDs) > 0 {
		pulled, err := s.postRepo.RecentPostsByAuthors(ctx, celebIDs, time.Now().Add(-s.pullWindow), CelebrityPullLimit)
		if err != nil {
			log.Printf("[TimelineService] Celebrity pull FAILED: viewer=%d err=%v", viewerID, err)
		} else if len(pulled) > 0 {
			entries = mergeEntries(entries, pulled)
			source = model.TimelineSourceCachePull
		}
	}

	page := paginate(entries, offset, limit)
	posts, err := s.hydrate(ctx, page)
	if err != nil {
		return nil, err
	}

	log.Printf("[TimelineService] GetTimeline OK: viewer=%d posts=%d source=%s duration=%v",
		viewerID, len(posts), source, time.Since(startTime))

	return &model.TimelineResponse{
		Posts:   posts,
		Source:  source,
		HasMore: len(page) == limit,
	}, nil
}

// GetGlobalTimeline returns the newest posts across all authors.
func (s *TimelineService) GetGlobalTimeline(ctx context.Context, limit, offset int) ([]model.Post, error) {
	if limit <= 0 {
		limit = TimelineDefaultLimit
	}
	if limit > TimelineMaxLimit {
		limit = TimelineMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, err := s.postRepo.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.attachAuthors(ctx, posts), nil
}

// readCache fetches the viewer's cached timeline head. ok=false means the
// cache is unavailable or the viewer has no cached timeline yet; both route
// the read to the store fallback. Cache errors are swallowed here by design:
// reads must survive a degraded cache.
func (s *TimelineService) readCache(ctx context.Context, viewerID int64, count int) ([]cache.Entry, bool) {
	if !s.timelineCache.Available(ctx) {
		log.Printf("[TimelineService] Cache unavailable, falling back to store: viewer=%d", viewerID)
		return nil, false
	}

	entries, exists, err := s.timelineCache.Range(ctx, viewerID, 0, count)
	if err != nil {
		log.Printf("[TimelineService] Cache read FAILED: viewer=%d err=%v", viewerID, err)
		return nil, false
	}
	if !exists {
		return nil, false
	}
	return entries, true
}

// timelineFromStore is the degraded path: scan recent posts by everyone the
// viewer follows (and the viewer themselves) within the pull window.
func (s *TimelineService) timelineFromStore(ctx context.Context, viewerID int64, limit, offset int) (*model.TimelineResponse, error) {
	followeeIDs, err := s.followRepo.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	followeeIDs = append(followeeIDs, viewerID)

	fetched, err := s.postRepo.RecentPostsByAuthors(ctx, followeeIDs, time.Now().Add(-s.pullWindow), offset+limit)
	if err != nil {
		return nil, fmt.Errorf("fallback scan: %w", err)
	}

	if offset < len(fetched) {
		fetched = fetched[offset:]
	} else {
		fetched = nil
	}

	posts := s.attachAuthors(ctx, fetched)

	return &model.TimelineResponse{
		Posts:   posts,
		Source:  model.TimelineSourceDatabase,
		HasMore: len(posts) == limit,
	}, nil
}

// mergeEntries merges pulled posts into the cached entries, deduplicating
// by post id (cached score wins; both derive from created_at) and resorting
// by score descending with the lower post id last on ties.
func mergeEntries(entries []cache.Entry, pulled []model.Post) []cache.Entry {
	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		seen[e.PostID] = struct{}{}
	}
	for _, p := range pulled {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		entries = append(entries, cache.Entry{PostID: p.ID, Score: p.Score()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PostID > entries[j].PostID
	})
	return entries
}

func paginate(entries []cache.Entry, offset, limit int) []cache.Entry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// hydrate resolves timeline entries to full posts in one batched read.
// Entries whose post no longer exists are dropped silently.
func (s *TimelineService) hydrate(ctx context.Context, entries []cache.Entry) ([]model.Post, error) {
	if len(entries) == 0 {
		return []model.Post{}, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}

	posts, err := s.postRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}

	return s.attachAuthors(ctx, posts), nil
}

// attachAuthors enriches posts with author summaries. Author lookup
// failures leave the author unset rather than failing the read.
func (s *TimelineService) attachAuthors(ctx context.Context, posts []model.Post) []model.Post {
	if len(posts) == 0 {
		return []model.Post{}
	}

	authors := make(map[int64]*model.UserSummary)
	for _, p := range posts {
		if _, ok := authors[p.AuthorID]; ok {
			continue
		}
		user, err := s.userRepo.GetByID(ctx, p.AuthorID)
		if err != nil {
			log.Printf("[TimelineService] Author lookup FAILED: author=%d err=%v", p.AuthorID, err)
			authors[p.AuthorID] = nil
			continue
		}
		authors[p.AuthorID] = summary(user)
	}

	for i := range posts {
		posts[i].Author = authors[posts[i].AuthorID]
	}
	return posts
}
