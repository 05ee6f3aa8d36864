package dto

import "time"

// ScheduleAppointmentRequest payload. Date and time arrive separately
// and combine into the stored YYYY-MM-DDTHH:MM form.
type ScheduleAppointmentRequest struct {
	BuyerID string `json:"buyerId"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Place   string `json:"place"`
}

// CancelRequest identifies the acting participant.
type CancelRequest struct {
	UserID string `json:"userId"`
}

// AppointmentResponse is the wire form of an appointment.
type AppointmentResponse struct {
	ID                string    `json:"id"`
	PostID            string    `json:"postId"`
	BuyerID           string    `json:"buyerId"`
	SellerID          string    `json:"sellerId"`
	Datetime          string    `json:"datetime"`
	Place             string    `json:"place"`
	CancelRequestedBy *string   `json:"cancelRequestedBy"`
	CreatedAt         time.Time `json:"createdAt"`
}
