package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/repository"
	apperrors "github.com/spec-kit/market-service/pkg/util/errorutil"
)

// PostService handles the listing catalog glue around the appointment
// core: creating, listing and deleting posts. Deleting a reserved
// listing with a live appointment is rejected until the parties cancel.
type PostService struct {
	posts        repository.PostRepository
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	chat         *ChatService
	reminders    ReminderArmer
	locks        *ListingLocks
	logger       *zap.Logger
}

// PostDependencies bundles collaborators for the service.
type PostDependencies struct {
	PostRepo        repository.PostRepository
	AppointmentRepo repository.AppointmentRepository
	UserRepo        repository.UserRepository
	Chat            *ChatService
	Reminders       ReminderArmer
	Locks           *ListingLocks
	Logger          *zap.Logger
}

// PostCreateInput describes a new listing.
type PostCreateInput struct {
	SellerID    string
	Title       string
	Description string
	Price       int64
	Location    string
	ImageURL    string
}

// PostDetail is a listing with its chat log and appointment assembled.
type PostDetail struct {
	Post        domain.Post
	Messages    []domain.EnrichedMessage
	Appointment *domain.Appointment
}

// NewPostService constructs the service.
func NewPostService(deps PostDependencies) *PostService {
	return &PostService{
		posts:        deps.PostRepo,
		appointments: deps.AppointmentRepo,
		users:        deps.UserRepo,
		chat:         deps.Chat,
		reminders:    deps.Reminders,
		locks:        deps.Locks,
		logger:       deps.Logger,
	}
}

// Create persists a new listing in Selling state. Location defaults to
// the seller's address when left empty.
func (s *PostService) Create(ctx context.Context, input PostCreateInput) (*domain.Post, error) {
	if input.SellerID == "" || strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("sellerId and title are required", nil)
	}
	seller, err := s.users.GetByID(ctx, input.SellerID)
	if err != nil {
		return nil, mapRepoErr(err, "seller")
	}

	location := strings.TrimSpace(input.Location)
	if location == "" {
		location = seller.Address
	}
	price := input.Price
	if price < 0 {
		price = 0
	}

	post := &domain.Post{
		ID:          uuid.NewString(),
		SellerID:    seller.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       price,
		ImageURL:    input.ImageURL,
		Location:    location,
		Status:      domain.PostStatusSelling,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("seller_id", post.SellerID))
	return post, nil
}

// List returns all listings, newest first.
func (s *PostService) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx)
}

// GetDetail assembles the listing view: post, enriched chat history and
// current appointment.
func (s *PostService) GetDetail(ctx context.Context, postID string) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapRepoErr(err, "post")
	}
	msgs, err := s.chat.History(ctx, postID)
	if err != nil {
		return nil, err
	}
	appt, err := s.appointments.GetByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: *post, Messages: msgs, Appointment: appt}, nil
}

// Delete removes a listing and cascades its appointment and chat log.
// Only the seller may delete, and not while the listing is reserved
// with a live appointment.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	lock := s.locks.ForListing(postID)
	lock.Lock()
	defer lock.Unlock()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return mapRepoErr(err, "post")
	}
	if post.SellerID != userID {
		return apperrors.NewForbidden("only the seller may delete this post")
	}

	appt, err := s.appointments.GetByPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Status == domain.PostStatusReserved && appt != nil {
		return apperrors.NewConflict("cancel the appointment before deleting the post", nil)
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return mapRepoErr(err, "post")
	}
	s.reminders.Disarm(postID)
	s.logger.Info("post deleted", zap.String("post_id", postID))
	return nil
}

// Users lists the seed identities.
func (s *PostService) Users(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}
