package events

import (
	"time"

	"github.com/spec-kit/market-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentScheduled       EventType = "appointment_scheduled"
	EventAppointmentCancelRequested EventType = "appointment_cancel_requested"
	EventAppointmentCancelled       EventType = "appointment_cancelled"
	EventReminderDue                EventType = "reminder_due"
	EventChatMessageAdded           EventType = "chat_message_added"
)

// Event represents a domain event emitted by services. PostID scopes
// the event to one listing's room.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	PostID    string      `json:"post_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AppointmentScheduledPayload payload.
type AppointmentScheduledPayload struct {
	AppointmentID string `json:"appointment_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	Datetime      string `json:"datetime"`
	Place         string `json:"place"`
}

// CancelRequestedPayload payload.
type CancelRequestedPayload struct {
	AppointmentID string `json:"appointment_id"`
	RequestedBy   string `json:"requested_by"`
}

// AppointmentCancelledPayload payload.
type AppointmentCancelledPayload struct {
	AppointmentID string `json:"appointment_id"`
	ConfirmedBy   string `json:"confirmed_by"`
}

// ReminderDuePayload payload.
type ReminderDuePayload struct {
	AppointmentID string `json:"appointment_id"`
	Datetime      string `json:"datetime"`
	Place         string `json:"place"`
}

// ChatMessageAddedPayload carries the already-persisted, enriched
// message for fan-out.
type ChatMessageAddedPayload struct {
	Message domain.EnrichedMessage `json:"message"`
}
