package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostContentLength is the maximum post length in Unicode codepoints.
const MaxPostContentLength = 5000

// Post represents a single immutable post.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined field (not in posts table)
	Author *UserSummary `json:"author,omitempty"`
}

// Score returns the post's timeline score: created_at as fractional
// seconds with millisecond precision.
func (p *Post) Score() float64 {
	return float64(p.CreatedAt.UnixMilli()) / 1000
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// ValidateContent trims the content and checks the 1..5000 codepoint bounds.
// Returns the trimmed content.
func ValidateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrContentEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxPostContentLength {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrContentEmpty   = errors.New("post content must not be empty")
	ErrContentTooLong = errors.New("post content too long")
)
