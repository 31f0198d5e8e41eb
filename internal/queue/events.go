package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried on the bus
const (
	EventPostCreated = "post_created"
	EventPostDeleted = "post_deleted"
)

// Event is the wire payload for post lifecycle events.
// Timestamp is the post's created_at as fractional seconds.
type Event struct {
	Type        string  `json:"event_type"`
	PostID      int64   `json:"post_id"`
	AuthorID    int64   `json:"author_id"`
	IsCelebrity bool    `json:"is_celebrity"`
	Timestamp   float64 `json:"timestamp"`
}

// NewPostCreatedEvent builds the event emitted after a regular author's post
// commits. IsCelebrity records the author's classification at emit time; the
// worker re-checks it before fanning out.
func NewPostCreatedEvent(postID, authorID int64, isCelebrity bool, createdAt time.Time) Event {
	return Event{
		Type:        EventPostCreated,
		PostID:      postID,
		AuthorID:    authorID,
		IsCelebrity: isCelebrity,
		Timestamp:   float64(createdAt.UnixMilli()) / 1000,
	}
}

// NewPostDeletedEvent builds the event emitted after a post is deleted.
// The worker removes the post from cached timelines, best effort.
func NewPostDeletedEvent(postID, authorID int64) Event {
	return Event{
		Type:      EventPostDeleted,
		PostID:    postID,
		AuthorID:  authorID,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	}
}

// Encode serializes the event for publishing.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// ParseEvent decodes an event payload. Consumers ack and drop payloads that
// fail to parse so a poison message cannot stall the queue.
func ParseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event missing event_type")
	}
	return event, nil
}
