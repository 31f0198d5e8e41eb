package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/repository"
)

type FollowService struct {
	followRepo         repository.FollowRepository
	userRepo           repository.UserRepository
	db                 *sqlx.DB
	timelineCache      cache.TimelineCache
	celebrityThreshold int
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	timelineCache cache.TimelineCache,
	celebrityThreshold int,
) *FollowService {
	return &FollowService{
		followRepo:         followRepo,
		userRepo:           userRepo,
		db:                 db,
		timelineCache:      timelineCache,
		celebrityThreshold: celebrityThreshold,
	}
}

// Follow inserts the edge, updates both counters and re-derives the
// followee's celebrity flag in one transaction, so is_celebrity never lags
// follower_count after commit. The follower's cached timeline is then
// invalidated; it rebuilds with the new followee on the next read.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID int64) error {
	if followerID == followingID {
		return model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, followingID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.followRepo.Create(ctx, tx, followerID, followingID)
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyFollowing
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followingID, 1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, 1); err != nil {
		return err
	}

	isCelebrity, err := s.userRepo.UpdateCelebrityFlag(ctx, tx, followingID, s.celebrityThreshold)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[FollowService] Follow OK: follower=%d following=%d celebrity=%t",
		followerID, followingID, isCelebrity)

	s.invalidateTimeline(ctx, followerID)
	return nil
}

// Unfollow is symmetric to Follow. A missing edge maps to ErrNotFollowing.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	if followerID == followingID {
		return model.ErrCannotFollowSelf
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.followRepo.Delete(ctx, tx, followerID, followingID); err != nil {
		return err
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followingID, -1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, -1); err != nil {
		return err
	}

	if _, err := s.userRepo.UpdateCelebrityFlag(ctx, tx, followingID, s.celebrityThreshold); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[FollowService] Unfollow OK: follower=%d following=%d", followerID, followingID)

	s.invalidateTimeline(ctx, followerID)
	return nil
}

// invalidateTimeline drops the follower's cached timeline. Failure is
// logged only: the cache rebuilds from the store on the next read.
func (s *FollowService) invalidateTimeline(ctx context.Context, followerID int64) {
	if err := s.timelineCache.Invalidate(ctx, followerID); err != nil {
		log.Printf("[FollowService] Timeline invalidation FAILED: user=%d err=%v", followerID, err)
	}
}

// GetFollowers retrieves a paginated follower list for a user.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, limit, offset int) (*model.FollowerListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	// Fetch one extra row to compute has_more without a count query.
	users, err := s.followRepo.GetFollowers(ctx, userID, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}

	return &model.FollowerListResponse{
		Users:   users,
		HasMore: hasMore,
	}, nil
}
