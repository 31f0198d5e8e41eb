package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/queue"
)

func regularAuthor(id int64) *mockUserRepo {
	return &mockUserRepo{
		getByIDFn: func(ctx context.Context, userID int64) (*model.User, error) {
			return &model.User{ID: id, Username: "author", IsCelebrity: false}, nil
		},
	}
}

func TestPostService_Create_EmitsEvent(t *testing.T) {
	bus := &mockBus{}
	tc := newMockTimelineCache()
	svc := NewPostService(&mockPostRepo{}, regularAuthor(1), bus, tc)

	post, err := svc.Create(context.Background(), 1, model.CreatePostRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if post.Content != "hello" {
		t.Errorf("content = %q, want %q", post.Content, "hello")
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	event := bus.published[0]
	if event.Type != queue.EventPostCreated {
		t.Errorf("event type = %q, want %q", event.Type, queue.EventPostCreated)
	}
	if event.PostID != post.ID || event.AuthorID != 1 {
		t.Errorf("event = post %d author %d, want post %d author 1", event.PostID, event.AuthorID, post.ID)
	}
}

func TestPostService_Create_CelebritySkipsEvent(t *testing.T) {
	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, userID int64) (*model.User, error) {
			return &model.User{ID: userID, Username: "star", IsCelebrity: true}, nil
		},
	}
	bus := &mockBus{}
	svc := NewPostService(&mockPostRepo{}, users, bus, newMockTimelineCache())

	if _, err := svc.Create(context.Background(), 1, model.CreatePostRequest{Content: "hi"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events for celebrity post, want 0", len(bus.published))
	}
}

func TestPostService_Create_PublishFailureSeedsOwnTimeline(t *testing.T) {
	bus := &mockBus{
		publishFn: func(ctx context.Context, event queue.Event) error {
			return errors.New("bus down")
		},
	}
	tc := newMockTimelineCache()
	svc := NewPostService(&mockPostRepo{}, regularAuthor(1), bus, tc)

	// A failed publish must not fail the request: the post is durable.
	post, err := svc.Create(context.Background(), 1, model.CreatePostRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries := tc.timelines[1]
	if len(entries) != 1 || entries[0].PostID != post.ID {
		t.Error("author's own timeline should be seeded when publish fails")
	}
}

func TestPostService_Create_ContentBounds(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, regularAuthor(1), &mockBus{}, newMockTimelineCache())
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, model.CreatePostRequest{Content: "   "}); !errors.Is(err, model.ErrContentEmpty) {
		t.Errorf("whitespace content: err = %v, want ErrContentEmpty", err)
	}

	// Exactly at the codepoint limit, multibyte characters included.
	atLimit := strings.Repeat("é", model.MaxPostContentLength)
	if _, err := svc.Create(ctx, 1, model.CreatePostRequest{Content: atLimit}); err != nil {
		t.Errorf("content at limit: err = %v, want nil", err)
	}

	overLimit := strings.Repeat("a", model.MaxPostContentLength+1)
	if _, err := svc.Create(ctx, 1, model.CreatePostRequest{Content: overLimit}); !errors.Is(err, model.ErrContentTooLong) {
		t.Errorf("content over limit: err = %v, want ErrContentTooLong", err)
	}
}

func TestPostService_Create_TrimsContent(t *testing.T) {
	var stored string
	posts := &mockPostRepo{
		createFn: func(ctx context.Context, authorID int64, content string) (*model.Post, error) {
			stored = content
			return &model.Post{ID: 1, AuthorID: authorID, Content: content, CreatedAt: time.Now()}, nil
		},
	}
	svc := NewPostService(posts, regularAuthor(1), &mockBus{}, newMockTimelineCache())

	if _, err := svc.Create(context.Background(), 1, model.CreatePostRequest{Content: "  hello  "}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if stored != "hello" {
		t.Errorf("stored content = %q, want trimmed %q", stored, "hello")
	}
}

func TestPostService_Delete_EmitsPostDeleted(t *testing.T) {
	bus := &mockBus{}
	svc := NewPostService(&mockPostRepo{}, regularAuthor(1), bus, newMockTimelineCache())

	if err := svc.Delete(context.Background(), 10, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(bus.published) != 1 || bus.published[0].Type != queue.EventPostDeleted {
		t.Fatal("expected one post_deleted event")
	}
	if bus.published[0].PostID != 10 {
		t.Errorf("event post = %d, want 10", bus.published[0].PostID)
	}
}

func TestPostService_Delete_NotFound(t *testing.T) {
	posts := &mockPostRepo{
		deleteFn: func(ctx context.Context, postID, authorID int64) error {
			return model.ErrPostNotFound
		},
	}
	bus := &mockBus{}
	svc := NewPostService(posts, regularAuthor(1), bus, newMockTimelineCache())

	if err := svc.Delete(context.Background(), 10, 1); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("err = %v, want ErrPostNotFound", err)
	}
	if len(bus.published) != 0 {
		t.Error("no event should be published for a failed delete")
	}
}
