package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/observability"
	"github.com/spec-kit/market-service/internal/repository"
)

// ReminderScheduler keeps at most one armed timer per listing and
// publishes a reminder_due event at the appointment's scheduled
// instant. It never touches appointment or post records: it only works
// from the snapshot handed to Arm. A fired timer's effect is
// unconditional; a Disarm that loses the race with an in-flight fire is
// accepted as a rare benign false reminder.
type ReminderScheduler struct {
	dispatcher events.Dispatcher
	clock      Clock
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu      sync.Mutex
	nextGen uint64
	timers  map[string]reminderTimer
}

// reminderTimer tags each armed timer with the generation it was armed
// under. A callback whose Stop raced an Arm still runs, and must not
// evict the replacement's registry entry; comparing generations before
// deleting keeps the stale callback from touching the live timer.
type reminderTimer struct {
	gen   uint64
	timer *time.Timer
}

// New creates an empty scheduler.
func New(dispatcher events.Dispatcher, clock Clock, logger *zap.Logger, metrics *observability.Metrics) *ReminderScheduler {
	return &ReminderScheduler{
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		timers:     make(map[string]reminderTimer),
	}
}

// Arm replaces any pending reminder for the appointment's listing with
// a timer for its scheduled instant. Instants already in the past fire
// as soon as the runtime can run them.
func (s *ReminderScheduler) Arm(appt *domain.Appointment) {
	at, err := appt.ScheduledAt()
	if err != nil {
		s.logger.Error("reminder not armed",
			zap.String("post_id", appt.PostID),
			zap.Error(err))
		return
	}
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	postID := appt.PostID
	payload := events.ReminderDuePayload{
		AppointmentID: appt.ID,
		Datetime:      appt.Datetime,
		Place:         appt.Place,
	}

	s.mu.Lock()
	if existing, ok := s.timers[postID]; ok {
		existing.timer.Stop()
	}
	s.nextGen++
	gen := s.nextGen
	s.timers[postID] = reminderTimer{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			s.fire(postID, gen, payload)
		}),
	}
	s.metrics.SetRemindersArmed(len(s.timers))
	s.mu.Unlock()

	s.logger.Info("reminder armed",
		zap.String("post_id", postID),
		zap.String("datetime", appt.Datetime),
		zap.Duration("delay", delay))
}

// Disarm cancels any pending reminder for the listing. No-op when none
// is armed.
func (s *ReminderScheduler) Disarm(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[postID]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(s.timers, postID)
	s.metrics.SetRemindersArmed(len(s.timers))
	s.logger.Info("reminder disarmed", zap.String("post_id", postID))
}

// Armed reports whether a reminder is currently pending for the listing.
func (s *ReminderScheduler) Armed(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[postID]
	return ok
}

// Rehydrate re-arms a reminder for every stored appointment. Instants
// that passed while the process was down fire immediately. Called once
// at startup; an error here is fatal, the process must not run with an
// empty timer table while appointments exist.
func (s *ReminderScheduler) Rehydrate(ctx context.Context, appointments repository.AppointmentRepository) error {
	appts, err := appointments.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range appts {
		s.Arm(&appts[i])
	}
	s.logger.Info("reminders rehydrated", zap.Int("count", len(appts)))
	return nil
}

func (s *ReminderScheduler) fire(postID string, gen uint64, payload events.ReminderDuePayload) {
	s.mu.Lock()
	if entry, ok := s.timers[postID]; ok && entry.gen == gen {
		delete(s.timers, postID)
		s.metrics.SetRemindersArmed(len(s.timers))
	}
	s.mu.Unlock()

	_ = s.dispatcher.Publish(context.Background(), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventReminderDue,
		PostID:    postID,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
}
