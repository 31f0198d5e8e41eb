package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/queue"
)

// Function-field mocks for the repository, cache and bus interfaces. Each
// test overrides only the functions it cares about; unset functions return
// zero values or not-found sentinels.

type mockUserRepo struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepo) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepo) UpdateCelebrityFlag(ctx context.Context, tx *sqlx.Tx, userID int64, threshold int) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int64, error)       { return 0, nil }
func (m *mockUserRepo) CountCelebrities(ctx context.Context) (int64, error) { return 0, nil }

type mockPostRepo struct {
	createFn               func(ctx context.Context, authorID int64, content string) (*model.Post, error)
	getByIDFn              func(ctx context.Context, postID int64) (*model.Post, error)
	getByIDsFn             func(ctx context.Context, postIDs []int64) ([]model.Post, error)
	recentPostsByAuthorsFn func(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error)
	listRecentFn           func(ctx context.Context, limit, offset int) ([]model.Post, error)
	deleteFn               func(ctx context.Context, postID, authorID int64) error
}

func (m *mockPostRepo) Create(ctx context.Context, authorID int64, content string) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, content)
	}
	return &model.Post{ID: 1, AuthorID: authorID, Content: content, CreatedAt: time.Now()}, nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepo) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, postIDs)
	}
	// Default: resolve every id to a bare post, preserving order.
	posts := make([]model.Post, len(postIDs))
	for i, id := range postIDs {
		posts[i] = model.Post{ID: id}
	}
	return posts, nil
}

func (m *mockPostRepo) RecentPostsByAuthors(ctx context.Context, authorIDs []int64, since time.Time, limit int) ([]model.Post, error) {
	if m.recentPostsByAuthorsFn != nil {
		return m.recentPostsByAuthorsFn(ctx, authorIDs, since, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Post, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockPostRepo) Delete(ctx context.Context, postID, authorID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID, authorID)
	}
	return nil
}

func (m *mockPostRepo) CountPosts(ctx context.Context) (int64, error) { return 0, nil }

type mockFollowRepo struct {
	followedCelebrityIDsFn func(ctx context.Context, userID int64) ([]int64, error)
	followeeIDsFn          func(ctx context.Context, userID int64) ([]int64, error)
	getFollowersFn         func(ctx context.Context, userID int64, limit, offset int) ([]model.UserSummary, error)
}

func (m *mockFollowRepo) Create(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) (bool, error) {
	return true, nil
}

func (m *mockFollowRepo) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followingID int64) error {
	return nil
}

func (m *mockFollowRepo) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	return false, nil
}

func (m *mockFollowRepo) GetFollowers(ctx context.Context, userID int64, limit, offset int) ([]model.UserSummary, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockFollowRepo) FollowerIDsAfter(ctx context.Context, userID, afterID int64, limit int) ([]int64, error) {
	return nil, nil
}

func (m *mockFollowRepo) FolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.followeeIDsFn != nil {
		return m.followeeIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFollowRepo) FollowedCelebrityIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.followedCelebrityIDsFn != nil {
		return m.followedCelebrityIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFollowRepo) CountFollows(ctx context.Context) (int64, error) { return 0, nil }

// mockTimelineCache is an in-memory TimelineCache with per-call overrides.
type mockTimelineCache struct {
	available   bool
	timelines   map[int64][]cache.Entry // stored newest-first
	rangeFn     func(ctx context.Context, ownerID int64, offset, limit int) ([]cache.Entry, bool, error)
	addFn       func(ctx context.Context, ownerID int64, entry cache.Entry) error
	invalidated []int64
}

func newMockTimelineCache() *mockTimelineCache {
	return &mockTimelineCache{
		available: true,
		timelines: make(map[int64][]cache.Entry),
	}
}

func (m *mockTimelineCache) Add(ctx context.Context, ownerID int64, entry cache.Entry) error {
	if m.addFn != nil {
		return m.addFn(ctx, ownerID, entry)
	}
	m.timelines[ownerID] = append([]cache.Entry{entry}, m.timelines[ownerID]...)
	return nil
}

func (m *mockTimelineCache) AddMany(ctx context.Context, ownerID int64, entries []cache.Entry) error {
	for _, e := range entries {
		if err := m.Add(ctx, ownerID, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTimelineCache) AddToMany(ctx context.Context, ownerIDs []int64, entry cache.Entry) error {
	for _, id := range ownerIDs {
		if err := m.Add(ctx, id, entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTimelineCache) Range(ctx context.Context, ownerID int64, offset, limit int) ([]cache.Entry, bool, error) {
	if m.rangeFn != nil {
		return m.rangeFn(ctx, ownerID, offset, limit)
	}
	entries, ok := m.timelines[ownerID]
	if !ok {
		return nil, false, nil
	}
	if offset >= len(entries) {
		return []cache.Entry{}, true, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, true, nil
}

func (m *mockTimelineCache) Invalidate(ctx context.Context, ownerID int64) error {
	m.invalidated = append(m.invalidated, ownerID)
	delete(m.timelines, ownerID)
	return nil
}

func (m *mockTimelineCache) RemovePost(ctx context.Context, ownerID, postID int64) error { return nil }

func (m *mockTimelineCache) RemovePostEverywhere(ctx context.Context, postID int64) error {
	return nil
}

func (m *mockTimelineCache) Size(ctx context.Context, ownerID int64) (int64, error) {
	return int64(len(m.timelines[ownerID])), nil
}

func (m *mockTimelineCache) Available(ctx context.Context) bool { return m.available }

// mockBus records published events.
type mockBus struct {
	publishFn func(ctx context.Context, event queue.Event) error
	published []queue.Event
}

func (m *mockBus) Publish(ctx context.Context, event queue.Event) error {
	m.published = append(m.published, event)
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func (m *mockBus) Receive(ctx context.Context, maxCount int, wait time.Duration) ([]queue.Message, error) {
	return nil, nil
}

func (m *mockBus) Ack(ctx context.Context, handle string) error { return nil }
func (m *mockBus) Ping(ctx context.Context) error               { return nil }
func (m *mockBus) Close() error                                 { return nil }
