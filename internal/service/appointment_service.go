package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/repository"
	apperrors "github.com/spec-kit/market-service/pkg/util/errorutil"
)

// ReminderArmer is the scheduler surface the registry drives. Arm
// unconditionally replaces any pending reminder for the listing.
type ReminderArmer interface {
	Arm(appt *domain.Appointment)
	Disarm(postID string)
}

// AppointmentService owns the appointment lifecycle for listings: one
// live appointment per post, two-phase cancellation negotiation, and
// the reminder arming that follows each transition. All mutations are
// serialized per listing.
type AppointmentService struct {
	posts        repository.PostRepository
	appointments repository.AppointmentRepository
	status       *PostStatusCoordinator
	reminders    ReminderArmer
	dispatcher   events.Dispatcher
	locks        *ListingLocks
	logger       *zap.Logger
}

// AppointmentDependencies bundles collaborators for the service.
type AppointmentDependencies struct {
	PostRepo        repository.PostRepository
	AppointmentRepo repository.AppointmentRepository
	StatusCoord     *PostStatusCoordinator
	Reminders       ReminderArmer
	Dispatcher      events.Dispatcher
	Locks           *ListingLocks
	Logger          *zap.Logger
}

// ScheduleInput describes a scheduling request. Date and Time arrive as
// separate fields and combine into the stored datetime form.
type ScheduleInput struct {
	PostID  string
	BuyerID string
	Date    string
	Time    string
	Place   string
}

// NewAppointmentService constructs the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	return &AppointmentService{
		posts:        deps.PostRepo,
		appointments: deps.AppointmentRepo,
		status:       deps.StatusCoord,
		reminders:    deps.Reminders,
		dispatcher:   deps.Dispatcher,
		locks:        deps.Locks,
		logger:       deps.Logger,
	}
}

// Schedule creates the listing's appointment, discarding any existing
// one first. Last caller wins; overwriting is not an error.
func (s *AppointmentService) Schedule(ctx context.Context, input ScheduleInput) (*domain.Appointment, error) {
	if input.BuyerID == "" || input.Date == "" || input.Time == "" || strings.TrimSpace(input.Place) == "" {
		return nil, apperrors.NewValidationError("buyerId, date, time and place are required", nil)
	}
	datetime := input.Date + "T" + input.Time
	if _, err := time.ParseInLocation(domain.DatetimeLayout, datetime, time.Local); err != nil {
		return nil, apperrors.NewValidationError("datetime must be in YYYY-MM-DDTHH:MM form", map[string]any{
			"datetime": datetime,
		})
	}

	lock := s.locks.ForListing(input.PostID)
	lock.Lock()
	defer lock.Unlock()

	post, err := s.posts.GetByID(ctx, input.PostID)
	if err != nil {
		return nil, mapRepoErr(err, "post")
	}

	appt := &domain.Appointment{
		ID:       uuid.NewString(),
		PostID:   post.ID,
		BuyerID:  input.BuyerID,
		SellerID: post.SellerID,
		Datetime: datetime,
		Place:    strings.TrimSpace(input.Place),
	}
	if err := s.appointments.Replace(ctx, appt); err != nil {
		return nil, err
	}
	if err := s.status.MarkReserved(ctx, post.ID, appt.ID); err != nil {
		return nil, err
	}
	s.reminders.Arm(appt)

	s.publish(ctx, events.Event{
		Type:   events.EventAppointmentScheduled,
		PostID: post.ID,
		Payload: events.AppointmentScheduledPayload{
			AppointmentID: appt.ID,
			BuyerID:       appt.BuyerID,
			SellerID:      appt.SellerID,
			Datetime:      appt.Datetime,
			Place:         appt.Place,
		},
	})
	s.logger.Info("appointment scheduled",
		zap.String("post_id", post.ID),
		zap.String("appointment_id", appt.ID),
		zap.String("datetime", appt.Datetime))
	return appt, nil
}

// Get returns the listing's appointment, or nil when none exists.
func (s *AppointmentService) Get(ctx context.Context, postID string) (*domain.Appointment, error) {
	return s.appointments.GetByPost(ctx, postID)
}

// RequestCancellation marks the appointment pending cancellation on
// behalf of one participant. Re-requesting by the same user is a no-op
// success; a second request by the other party while one is pending is
// a conflict.
func (s *AppointmentService) RequestCancellation(ctx context.Context, postID, userID string) (*domain.Appointment, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}

	lock := s.locks.ForListing(postID)
	lock.Lock()
	defer lock.Unlock()

	appt, err := s.appointments.GetByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	switch domain.StateOf(appt) {
	case domain.StateNoAppointment:
		return nil, apperrors.NewNotFound("appointment", map[string]any{"postId": postID})
	case domain.StatePendingCancel:
		if !appt.IsParticipant(userID) {
			return nil, apperrors.NewForbidden("only appointment participants may request cancellation")
		}
		if *appt.CancelRequestedBy == userID {
			return appt, nil
		}
		return nil, apperrors.NewConflict("waiting for the other party to agree", map[string]any{
			"cancelRequestedBy": *appt.CancelRequestedBy,
		})
	}
	if !appt.IsParticipant(userID) {
		return nil, apperrors.NewForbidden("only appointment participants may request cancellation")
	}

	if err := s.appointments.SetCancelRequestedBy(ctx, postID, &userID); err != nil {
		return nil, mapRepoErr(err, "appointment")
	}
	appt.CancelRequestedBy = &userID

	s.publish(ctx, events.Event{
		Type:   events.EventAppointmentCancelRequested,
		PostID: postID,
		Payload: events.CancelRequestedPayload{
			AppointmentID: appt.ID,
			RequestedBy:   userID,
		},
	})
	s.logger.Info("appointment cancellation requested",
		zap.String("post_id", postID),
		zap.String("requested_by", userID))
	return appt, nil
}

// ConfirmCancellation completes the negotiation: the other participant
// agrees, the appointment is deleted, the listing returns to Selling
// and the reminder is disarmed. The requester cannot confirm their own
// request.
func (s *AppointmentService) ConfirmCancellation(ctx context.Context, postID, userID string) error {
	if userID == "" {
		return apperrors.NewValidationError("userId is required", nil)
	}

	lock := s.locks.ForListing(postID)
	lock.Lock()
	defer lock.Unlock()

	appt, err := s.appointments.GetByPost(ctx, postID)
	if err != nil {
		return err
	}
	switch domain.StateOf(appt) {
	case domain.StateNoAppointment:
		return apperrors.NewNotFound("appointment", map[string]any{"postId": postID})
	case domain.StateScheduled:
		if !appt.IsParticipant(userID) {
			return apperrors.NewForbidden("only appointment participants may confirm cancellation")
		}
		return apperrors.NewConflict("no cancellation has been requested", nil)
	}
	if !appt.IsParticipant(userID) {
		return apperrors.NewForbidden("only appointment participants may confirm cancellation")
	}
	if *appt.CancelRequestedBy == userID {
		return apperrors.NewConflict("the other party must agree to the cancellation", nil)
	}

	if err := s.appointments.DeleteByPost(ctx, postID); err != nil {
		return err
	}
	if err := s.status.MarkSelling(ctx, postID); err != nil {
		return err
	}
	s.reminders.Disarm(postID)

	s.publish(ctx, events.Event{
		Type:   events.EventAppointmentCancelled,
		PostID: postID,
		Payload: events.AppointmentCancelledPayload{
			AppointmentID: appt.ID,
			ConfirmedBy:   userID,
		},
	})
	s.logger.Info("appointment cancelled",
		zap.String("post_id", postID),
		zap.String("confirmed_by", userID))
	return nil
}

func (s *AppointmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapRepoErr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}
