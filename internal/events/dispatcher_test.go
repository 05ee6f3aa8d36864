package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestPublishInvokesHandlersInSubscriptionOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var order []string
	dispatcher.Subscribe(EventChatMessageAdded, func(context.Context, Event) error {
		order = append(order, "first")
		return nil
	})
	dispatcher.Subscribe(EventChatMessageAdded, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})
	dispatcher.Subscribe(EventReminderDue, func(context.Context, Event) error {
		order = append(order, "other-type")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventChatMessageAdded}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestFailingHandlerDoesNotStopOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var reached bool
	dispatcher.Subscribe(EventReminderDue, func(context.Context, Event) error {
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventReminderDue, func(context.Context, Event) error {
		reached = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventReminderDue}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reached {
		t.Fatal("later handler skipped after failure")
	}
}

func TestPublishWithoutSubscribersIsANoOp(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())
	if err := dispatcher.Publish(context.Background(), Event{Type: EventAppointmentScheduled}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
