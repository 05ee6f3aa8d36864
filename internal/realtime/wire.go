package realtime

import (
	"time"

	"github.com/spec-kit/market-service/internal/domain"
)

// Outbound room event names.
const (
	EventChatHistory   = "chatHistory"
	EventChatMessage   = "chatMessage"
	EventSystemMessage = "systemMessage"
)

// System message kinds.
const (
	SystemKindAppointment = "appointment"
	SystemKindReminder    = "reminder"
)

// Envelope is one outbound room event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SystemPayload narrates an appointment transition or a reminder.
type SystemPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatMessage is the wire form of a chat entry delivered to rooms.
type ChatMessage struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	SenderID     string    `json:"senderId"`
	ReceiverID   string    `json:"receiverId"`
	SenderName   string    `json:"senderName"`
	ReceiverName string    `json:"receiverName"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChatMessageFromDomain converts an enriched message to its wire form.
func ChatMessageFromDomain(msg domain.EnrichedMessage) ChatMessage {
	return ChatMessage{
		ID:           msg.ID,
		PostID:       msg.PostID,
		SenderID:     msg.SenderID,
		ReceiverID:   msg.ReceiverID,
		SenderName:   msg.SenderName,
		ReceiverName: msg.ReceiverName,
		Content:      msg.Content,
		CreatedAt:    msg.CreatedAt,
	}
}

// ChatHistoryFromDomain converts a full history replay.
func ChatHistoryFromDomain(msgs []domain.EnrichedMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, ChatMessageFromDomain(msg))
	}
	return out
}
