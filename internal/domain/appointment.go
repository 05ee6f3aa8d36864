package domain

import (
	"fmt"
	"time"
)

// DatetimeLayout is the combined date-and-time form appointments are
// stored and exchanged in.
const DatetimeLayout = "2006-01-02T15:04"

// Appointment is the single live meetup for a listing. At most one
// exists per post at any time; scheduling again replaces the old record
// outright. CancelRequestedBy, when set, must be the buyer or the
// seller and marks the appointment pending cancellation.
type Appointment struct {
	ID                string
	PostID            string
	BuyerID           string
	SellerID          string
	Datetime          string
	Place             string
	CancelRequestedBy *string
	CreatedAt         time.Time
}

// ScheduledAt parses the stored datetime in the local timezone.
func (a *Appointment) ScheduledAt() (time.Time, error) {
	t, err := time.ParseInLocation(DatetimeLayout, a.Datetime, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment datetime %q: %w", a.Datetime, err)
	}
	return t, nil
}

// AppointmentState is the explicit lifecycle state a listing's
// appointment slot is in. It is derived, never stored: existence of the
// record and CancelRequestedBy carry the state, so illegal combinations
// (a cancellation request without an appointment) cannot be represented.
type AppointmentState string

const (
	StateNoAppointment AppointmentState = "NoAppointment"
	StateScheduled     AppointmentState = "Scheduled"
	StatePendingCancel AppointmentState = "PendingCancel"
)

// StateOf classifies an appointment slot, where nil means no live
// appointment exists for the listing.
func StateOf(a *Appointment) AppointmentState {
	switch {
	case a == nil:
		return StateNoAppointment
	case a.CancelRequestedBy != nil:
		return StatePendingCancel
	default:
		return StateScheduled
	}
}

// CancelPending reports whether one party has proposed cancellation.
func (a *Appointment) CancelPending() bool {
	return a.CancelRequestedBy != nil
}

// IsParticipant reports whether userID is the buyer or the seller.
func (a *Appointment) IsParticipant(userID string) bool {
	return userID == a.BuyerID || userID == a.SellerID
}
