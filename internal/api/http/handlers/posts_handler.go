package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/market-service/internal/api/dto"
	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/service"
	apperrors "github.com/spec-kit/market-service/pkg/util/errorutil"
)

// PostsHandler manages listing endpoints.
type PostsHandler struct {
	service *service.PostService
}

// NewPostsHandler constructs handler.
func NewPostsHandler(postService *service.PostService) *PostsHandler {
	return &PostsHandler{service: postService}
}

// CreatePost POST /api/posts.
func (h *PostsHandler) CreatePost(c *fiber.Ctx) error {
	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	post, err := h.service.Create(c.Context(), service.PostCreateInput{
		SellerID:    req.SellerID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": postResponse(post)})
}

// ListPosts GET /api/posts.
func (h *PostsHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, postResponse(&posts[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// GetPost GET /api/posts/:id.
func (h *PostsHandler) GetPost(c *fiber.Ctx) error {
	detail, err := h.service.GetDetail(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.PostDetailResponse{
		Post:     postResponse(&detail.Post),
		Messages: messageResponses(detail.Messages),
	}
	if detail.Appointment != nil {
		appt := appointmentResponse(detail.Appointment)
		resp.Appointment = &appt
	}
	return c.JSON(fiber.Map{"success": true, "data": resp})
}

// DeletePost DELETE /api/posts/:id?user=.
func (h *PostsHandler) DeletePost(c *fiber.Ctx) error {
	userID := c.Query("user")
	if userID == "" {
		return apperrors.NewValidationError("user query parameter is required", nil)
	}
	if err := h.service.Delete(c.Context(), c.Params("id"), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListUsers GET /api/users.
func (h *PostsHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.Users(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.UserResponse{ID: user.ID, Name: user.Name, Address: user.Address})
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

func postResponse(post *domain.Post) dto.PostResponse {
	return dto.PostResponse{
		ID:            post.ID,
		SellerID:      post.SellerID,
		Title:         post.Title,
		Description:   post.Description,
		Price:         post.Price,
		ImageURL:      post.ImageURL,
		Location:      post.Location,
		Status:        post.Status,
		AppointmentID: post.AppointmentID,
		CreatedAt:     post.CreatedAt,
	}
}

func messageResponses(msgs []domain.EnrichedMessage) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, dto.MessageResponse{
			ID:           msg.ID,
			PostID:       msg.PostID,
			SenderID:     msg.SenderID,
			ReceiverID:   msg.ReceiverID,
			SenderName:   msg.SenderName,
			ReceiverName: msg.ReceiverName,
			Content:      msg.Content,
			CreatedAt:    msg.CreatedAt,
		})
	}
	return out
}
