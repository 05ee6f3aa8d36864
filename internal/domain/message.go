package domain

import "time"

// Message is one chat entry in a listing's room. The log is append-only
// and ordered by creation time; entries disappear only when the listing
// itself is deleted.
type Message struct {
	ID         string
	PostID     string
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
}

// EnrichedMessage is a Message with display names resolved for delivery
// to room subscribers.
type EnrichedMessage struct {
	Message
	SenderName   string
	ReceiverName string
}
