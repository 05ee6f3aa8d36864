package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/market-service/internal/ai"
	"github.com/spec-kit/market-service/internal/api/dto"
	apperrors "github.com/spec-kit/market-service/pkg/util/errorutil"
)

// AIHandler exposes the listing-copy generation endpoint.
type AIHandler struct {
	generator ai.DescriptionGenerator
}

// NewAIHandler constructs handler.
func NewAIHandler(generator ai.DescriptionGenerator) *AIHandler {
	return &AIHandler{generator: generator}
}

// GeneratePost POST /api/ai/generate-post.
func (h *AIHandler) GeneratePost(c *fiber.Ctx) error {
	var req dto.GeneratePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.generator.GenerateSalePost(c.Context(), ai.GenerateInput{
		Title:            req.Title,
		Price:            req.Price,
		Location:         req.Location,
		ExtraDescription: req.ExtraDescription,
		ImageBase64:      req.ImageBase64,
		ImageMime:        req.ImageMime,
	})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.GeneratePostResponse{
		Title: result.Title,
		Body:  result.Body,
	}})
}
