package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pulse-social/pulse/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	result, err := tx.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}

	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// GetFollowers retrieves users who follow the specified user, newest edge
// first, with offset pagination for the HTTP surface.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, limit, offset int) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.full_name, u.is_celebrity
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC, u.id DESC
		LIMIT $2 OFFSET $3
	`
	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}

	return users, nil
}

// FollowerIDsAfter returns up to limit follower ids strictly greater than
// afterID, ascending. The id ordering is stable across calls, so a caller
// can chunk through an arbitrarily large follower set without offsets.
func (r *followRepository) FollowerIDsAfter(ctx context.Context, userID, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT follower_id
		FROM follows
		WHERE following_id = $1 AND follower_id > $2
		ORDER BY follower_id
		LIMIT $3
	`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}

	return ids, nil
}

func (r *followRepository) FolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT following_id FROM follows WHERE follower_id = $1`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}

	return ids, nil
}

// FollowedCelebrityIDs returns followees whose is_celebrity flag is
// currently set. The flag is maintained transactionally with the counters,
// so no join against a threshold is needed here.
func (r *followRepository) FollowedCelebrityIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT u.id
		FROM follows f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1 AND u.is_celebrity
	`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followed celebrities: %w", err)
	}

	return ids, nil
}

func (r *followRepository) CountFollows(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM follows`)
	if err != nil {
		return 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return count, nil
}
