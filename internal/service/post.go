package service

import (
	"context"
	"fmt"
	"log"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/queue"
	"github.com/pulse-social/pulse/internal/repository"
)

type PostService struct {
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	bus           queue.Bus
	timelineCache cache.TimelineCache
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	bus queue.Bus,
	timelineCache cache.TimelineCache,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		userRepo:      userRepo,
		bus:           bus,
		timelineCache: timelineCache,
	}
}

// Create persists a post and, for regular authors, emits a post_created
// event for asynchronous fan-out. The request path never touches follower
// timelines, so latency does not depend on the author's follower count.
func (s *PostService) Create(ctx context.Context, authorID int64, req model.CreatePostRequest) (*model.Post, error) {
	content, err := model.ValidateContent(req.Content)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.Create(ctx, authorID, content)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if author.IsCelebrity {
		// Celebrity posts are pulled at read time; no event, no fan-out.
		log.Printf("[PostService] Celebrity post, skipping fan-out: post=%d author=%d", post.ID, authorID)
	} else {
		event := queue.NewPostCreatedEvent(post.ID, authorID, author.IsCelebrity, post.CreatedAt)
		if err := s.bus.Publish(ctx, event); err != nil {
			// The post is durable; it will still surface via the pull
			// path and the database fallback. Seed the author's own
			// timeline directly so they at least see their post.
			log.Printf("[PostService] Publish post_created FAILED: post=%d err=%v", post.ID, err)
			if cacheErr := s.timelineCache.Add(ctx, authorID, cache.Entry{PostID: post.ID, Score: post.Score()}); cacheErr != nil {
				log.Printf("[PostService] Direct timeline write FAILED: post=%d err=%v", post.ID, cacheErr)
			}
		}
	}

	post.Author = summary(author)
	return post, nil
}

// GetByID retrieves a single post with its author.
func (s *PostService) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if author, err := s.userRepo.GetByID(ctx, post.AuthorID); err == nil {
		post.Author = summary(author)
	}

	return post, nil
}

// ListByAuthor returns an author's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	posts, err := s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete removes a post and emits a best-effort post_deleted event so the
// worker can purge it from cached timelines. The store remains the source
// of truth either way: hydration drops ids that no longer resolve.
func (s *PostService) Delete(ctx context.Context, postID, authorID int64) error {
	if err := s.postRepo.Delete(ctx, postID, authorID); err != nil {
		return err
	}

	event := queue.NewPostDeletedEvent(postID, authorID)
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Printf("[PostService] Publish post_deleted FAILED: post=%d err=%v", postID, err)
	}

	return nil
}

func summary(u *model.User) *model.UserSummary {
	return &model.UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		IsCelebrity: u.IsCelebrity,
	}
}
