package events

import "time"

// Post lifecycle message types, carried in the AMQP Type property.
const (
	PostUpserted = "post.upserted"
	PostDeleted  = "post.deleted"
)

// PostEvent is the JSON payload put on the RabbitMQ queue when a post changes.
// Title, Content and CreatedAt are empty for deletions.
type PostEvent struct {
	Type       string    `json:"type"`
	PostID     int64     `json:"post_id"`
	OwnerID    int64     `json:"owner_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
