package service

import (
	"context"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/repository"
)

// PostStatusCoordinator is the only writer of Post.Status and
// Post.AppointmentID. It reacts to appointment lifecycle outcomes and
// never creates or deletes appointments itself.
type PostStatusCoordinator struct {
	posts repository.PostRepository
}

// NewPostStatusCoordinator constructs the coordinator.
func NewPostStatusCoordinator(posts repository.PostRepository) *PostStatusCoordinator {
	return &PostStatusCoordinator{posts: posts}
}

// MarkReserved links the listing to its new appointment.
func (c *PostStatusCoordinator) MarkReserved(ctx context.Context, postID, appointmentID string) error {
	return c.posts.UpdateStatus(ctx, postID, domain.PostStatusReserved, &appointmentID)
}

// MarkSelling clears the appointment linkage after a cancellation.
func (c *PostStatusCoordinator) MarkSelling(ctx context.Context, postID string) error {
	return c.posts.UpdateStatus(ctx, postID, domain.PostStatusSelling, nil)
}
