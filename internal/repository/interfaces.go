package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulse-social/pulse/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	// UpdateCelebrityFlag re-derives is_celebrity from follower_count inside
	// the caller's transaction and returns the new flag.
	UpdateCelebrityFlag(ctx context.Context, tx *sqlx.Tx, userID int64, threshold int) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
	CountCelebrities(ctx context.Context) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, authorID int64, content string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// GetByIDs returns posts in the order of postIDs; missing ids are skipped.
	GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error)
	// RecentPostsByAuthors returns posts by any of the authors created at or
	// after since, newest first. Used by the celebrity pull path and the
	// cache-miss fallback.
	RecentPostsByAuthors(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error)
	ListRecent(ctx context.Context, limit, offset int) ([]model.Post, error)
	Delete(ctx context.Context, postID, authorID int64) error
	CountPosts(ctx context.Context) (int64, error)
}

type FollowRepository interface {
	// Create inserts the edge inside the caller's transaction; returns false
	// when the edge already exists.
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) error
	Exists(ctx context.Context, followerID, followingID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, limit, offset int) ([]model.UserSummary, error)
	// FollowerIDsAfter enumerates follower ids greater than afterID in
	// ascending order, letting callers walk an unbounded follower set in
	// bounded chunks.
	FollowerIDsAfter(ctx context.Context, userID, afterID int64, limit int) ([]int64, error)
	FolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
	// FollowedCelebrityIDs returns followees currently classified celebrity.
	FollowedCelebrityIDs(ctx context.Context, userID int64) ([]int64, error)
	CountFollows(ctx context.Context) (int64, error)
}
