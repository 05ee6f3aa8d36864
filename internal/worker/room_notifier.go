package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/realtime"
)

// RoomNotifier turns domain events into room broadcasts so every
// subscriber of a listing sees state transitions without polling. The
// dispatcher is synchronous, so broadcasts happen strictly after the
// durable write that preceded the publish.
type RoomNotifier struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewRoomNotifier creates the notifier.
func NewRoomNotifier(hub *realtime.Hub, logger *zap.Logger) *RoomNotifier {
	return &RoomNotifier{hub: hub, logger: logger}
}

// StartRoomNotifier registers the notifier's event handlers.
func StartRoomNotifier(notifier *RoomNotifier, dispatcher events.Dispatcher) {
	if notifier == nil || dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventAppointmentScheduled, notifier.handleScheduled)
	dispatcher.Subscribe(events.EventAppointmentCancelRequested, notifier.handleCancelRequested)
	dispatcher.Subscribe(events.EventAppointmentCancelled, notifier.handleCancelled)
	dispatcher.Subscribe(events.EventReminderDue, notifier.handleReminderDue)
	dispatcher.Subscribe(events.EventChatMessageAdded, notifier.handleChatMessage)
}

func (n *RoomNotifier) handleScheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentScheduledPayload)
	if !ok {
		return nil
	}
	when := strings.Replace(payload.Datetime, "T", " ", 1)
	n.system(event.PostID, realtime.SystemKindAppointment,
		fmt.Sprintf("Appointment set: %s @ %s", when, payload.Place))
	return nil
}

func (n *RoomNotifier) handleCancelRequested(ctx context.Context, event events.Event) error {
	n.system(event.PostID, realtime.SystemKindAppointment,
		"Cancellation requested. The appointment is removed once the other party agrees.")
	return nil
}

func (n *RoomNotifier) handleCancelled(ctx context.Context, event events.Event) error {
	n.system(event.PostID, realtime.SystemKindAppointment,
		"The appointment was cancelled. Schedule a new time or update the post.")
	return nil
}

func (n *RoomNotifier) handleReminderDue(ctx context.Context, event events.Event) error {
	n.system(event.PostID, realtime.SystemKindReminder,
		"It's time for your meetup. Meet safely and check the item in person!")
	return nil
}

func (n *RoomNotifier) handleChatMessage(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ChatMessageAddedPayload)
	if !ok {
		return nil
	}
	n.hub.Broadcast(event.PostID, realtime.Envelope{
		Event: realtime.EventChatMessage,
		Data:  realtime.ChatMessageFromDomain(payload.Message),
	})
	return nil
}

func (n *RoomNotifier) system(postID, kind, content string) {
	n.hub.Broadcast(postID, realtime.Envelope{
		Event: realtime.EventSystemMessage,
		Data:  realtime.SystemPayload{Type: kind, Content: content},
	})
}
