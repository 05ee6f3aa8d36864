package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/observability"
	"github.com/spec-kit/market-service/internal/repository"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type capturingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *capturingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *capturingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *capturingDispatcher) last() (events.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return events.Event{}, false
	}
	return d.events[len(d.events)-1], true
}

func newTestScheduler(clock Clock) (*ReminderScheduler, *capturingDispatcher) {
	dispatcher := &capturingDispatcher{}
	return New(dispatcher, clock, zap.NewNop(), observability.NewMetrics()), dispatcher
}

func testAppointment(postID string, at time.Time) *domain.Appointment {
	return &domain.Appointment{
		ID:       "appt-" + postID,
		PostID:   postID,
		BuyerID:  "user2",
		SellerID: "user1",
		Datetime: at.Format(domain.DatetimeLayout),
		Place:    "park",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestArmFiresAtScheduledInstant(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(-50 * time.Millisecond)}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(testAppointment("post-1", at))
	if !sched.Armed("post-1") {
		t.Fatal("reminder not armed")
	}

	if !waitFor(t, 2*time.Second, func() bool { return dispatcher.count() == 1 }) {
		t.Fatal("reminder never fired")
	}
	event, _ := dispatcher.last()
	if event.Type != events.EventReminderDue || event.PostID != "post-1" {
		t.Fatalf("fired event = %s/%s", event.Type, event.PostID)
	}
	payload, ok := event.Payload.(events.ReminderDuePayload)
	if !ok || payload.AppointmentID != "appt-post-1" {
		t.Fatalf("payload = %#v", event.Payload)
	}
	if sched.Armed("post-1") {
		t.Fatal("fired reminder still registered")
	}
}

func TestArmInPastFiresImmediately(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(time.Hour)}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(testAppointment("post-1", at))
	if !waitFor(t, 2*time.Second, func() bool { return dispatcher.count() == 1 }) {
		t.Fatal("past reminder never fired")
	}
}

func TestArmDoesNotFireEarly(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(-time.Hour)}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(testAppointment("post-1", at))
	time.Sleep(50 * time.Millisecond)
	if dispatcher.count() != 0 {
		t.Fatalf("reminder fired %d times before its instant", dispatcher.count())
	}
	if !sched.Armed("post-1") {
		t.Fatal("reminder lost")
	}
}

func TestArmReplacesPendingReminder(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(-time.Hour)}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(testAppointment("post-1", at))

	replacement := testAppointment("post-1", at)
	replacement.ID = "appt-replacement"
	clock.mu.Lock()
	clock.now = at.Add(-20 * time.Millisecond)
	clock.mu.Unlock()
	sched.Arm(replacement)

	if !waitFor(t, 2*time.Second, func() bool { return dispatcher.count() >= 1 }) {
		t.Fatal("replacement never fired")
	}
	time.Sleep(50 * time.Millisecond)
	if dispatcher.count() != 1 {
		t.Fatalf("fired %d times, want exactly 1", dispatcher.count())
	}
	event, _ := dispatcher.last()
	if payload := event.Payload.(events.ReminderDuePayload); payload.AppointmentID != "appt-replacement" {
		t.Fatalf("fired appointment = %s, want replacement", payload.AppointmentID)
	}
}

func TestSupersededCallbackKeepsReplacementDisarmable(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(-time.Hour)}
	sched, dispatcher := newTestScheduler(clock)

	// Timer whose callback has already been kicked off when Arm
	// replaces it: Stop misses, the callback still runs.
	sched.Arm(testAppointment("post-1", at))

	replacement := testAppointment("post-1", at)
	replacement.ID = "appt-fresh"
	sched.Arm(replacement)

	// The first timer's callback runs with its original generation.
	sched.fire("post-1", 1, events.ReminderDuePayload{AppointmentID: "appt-post-1"})

	if !sched.Armed("post-1") {
		t.Fatal("superseded callback evicted the replacement reminder")
	}

	sched.Disarm("post-1")
	if sched.Armed("post-1") {
		t.Fatal("replacement still armed after disarm")
	}
	time.Sleep(50 * time.Millisecond)
	if got := dispatcher.count(); got != 1 {
		t.Fatalf("published %d events, want only the in-flight one", got)
	}
}

func TestDisarmCancelsPendingReminder(t *testing.T) {
	at := time.Now().Truncate(time.Minute)
	clock := &fixedClock{now: at.Add(-30 * time.Millisecond)}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(testAppointment("post-1", at))
	sched.Disarm("post-1")
	if sched.Armed("post-1") {
		t.Fatal("reminder still armed after disarm")
	}

	time.Sleep(100 * time.Millisecond)
	if dispatcher.count() != 0 {
		t.Fatalf("disarmed reminder fired %d times", dispatcher.count())
	}

	// Disarming a listing with nothing pending is a no-op.
	sched.Disarm("post-1")
}

func TestArmRejectsUnparsableDatetime(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	sched, dispatcher := newTestScheduler(clock)

	sched.Arm(&domain.Appointment{ID: "a", PostID: "post-1", Datetime: "not-a-datetime"})
	if sched.Armed("post-1") {
		t.Fatal("unparsable datetime armed a reminder")
	}
	time.Sleep(20 * time.Millisecond)
	if dispatcher.count() != 0 {
		t.Fatal("unparsable datetime fired")
	}
}

func TestRehydrateArmsStoredAppointments(t *testing.T) {
	at := time.Now().Truncate(time.Minute).Add(time.Hour)
	clock := &fixedClock{now: time.Now()}
	sched, _ := newTestScheduler(clock)

	store := repository.NewMemoryStore("", zap.NewNop())
	appointments := store.Appointments()
	ctx := context.Background()
	for _, postID := range []string{"post-1", "post-2"} {
		if err := appointments.Replace(ctx, testAppointment(postID, at)); err != nil {
			t.Fatalf("replace %s: %v", postID, err)
		}
	}

	if err := sched.Rehydrate(ctx, appointments); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	for _, postID := range []string{"post-1", "post-2"} {
		if !sched.Armed(postID) {
			t.Fatalf("reminder for %s not rehydrated", postID)
		}
	}
}
