package dto

import (
	"time"

	"github.com/spec-kit/market-service/internal/domain"
)

// CreatePostRequest payload.
type CreatePostRequest struct {
	SellerID    string `json:"sellerId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Location    string `json:"location"`
	ImageURL    string `json:"imageUrl"`
}

// PostResponse is the wire form of a listing.
type PostResponse struct {
	ID            string            `json:"id"`
	SellerID      string            `json:"sellerId"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Price         int64             `json:"price"`
	ImageURL      string            `json:"imageUrl"`
	Location      string            `json:"location"`
	Status        domain.PostStatus `json:"status"`
	AppointmentID *string           `json:"appointmentId"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// PostDetailResponse adds the chat log and appointment to a listing.
type PostDetailResponse struct {
	Post        PostResponse         `json:"post"`
	Messages    []MessageResponse    `json:"messages"`
	Appointment *AppointmentResponse `json:"appointment"`
}

// MessageResponse is the wire form of a chat entry.
type MessageResponse struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	SenderID     string    `json:"senderId"`
	ReceiverID   string    `json:"receiverId"`
	SenderName   string    `json:"senderName"`
	ReceiverName string    `json:"receiverName"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserResponse is the wire form of a seed identity.
type UserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
