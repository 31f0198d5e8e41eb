package model

import (
	"errors"
	"time"
)

type Follow struct {
	FollowerID  int64     `db:"follower_id" json:"follower_id"`
	FollowingID int64     `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	FullName    *string `db:"full_name" json:"full_name"`
	IsCelebrity bool    `db:"is_celebrity" json:"is_celebrity"`
}

// FollowerListResponse is the paginated follower list response.
type FollowerListResponse struct {
	Users   []UserSummary `json:"users"`
	HasMore bool          `json:"has_more"`
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
