package domain

import "time"

// PostStatus enumerates listing visibility states.
type PostStatus string

const (
	PostStatusSelling  PostStatus = "Selling"
	PostStatusReserved PostStatus = "Reserved"
)

// Post is a sale listing. Status and AppointmentID are written only by
// the post status coordinator; a post is Reserved exactly while a live
// appointment exists for it.
type Post struct {
	ID            string
	SellerID      string
	Title         string
	Description   string
	Price         int64
	ImageURL      string
	Location      string
	Status        PostStatus
	AppointmentID *string
	CreatedAt     time.Time
}
