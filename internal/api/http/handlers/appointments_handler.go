package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/market-service/internal/api/dto"
	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/service"
	apperrors "github.com/spec-kit/market-service/pkg/util/errorutil"
)

// AppointmentsHandler manages the appointment lifecycle endpoints.
type AppointmentsHandler struct {
	service *service.AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointmentService *service.AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{service: appointmentService}
}

// GetAppointment GET /api/posts/:id/appointment.
func (h *AppointmentsHandler) GetAppointment(c *fiber.Ctx) error {
	appt, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if appt == nil {
		return c.JSON(fiber.Map{"success": true, "data": nil})
	}
	return c.JSON(fiber.Map{"success": true, "data": appointmentResponse(appt)})
}

// Schedule POST /api/posts/:id/appointment.
func (h *AppointmentsHandler) Schedule(c *fiber.Ctx) error {
	var req dto.ScheduleAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appt, err := h.service.Schedule(c.Context(), service.ScheduleInput{
		PostID:  c.Params("id"),
		BuyerID: req.BuyerID,
		Date:    req.Date,
		Time:    req.Time,
		Place:   req.Place,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": appointmentResponse(appt)})
}

// RequestCancel POST /api/posts/:id/appointment/cancel-request.
func (h *AppointmentsHandler) RequestCancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appt, err := h.service.RequestCancellation(c.Context(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": appointmentResponse(appt)})
}

// ConfirmCancel POST /api/posts/:id/appointment/cancel-confirm.
func (h *AppointmentsHandler) ConfirmCancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.ConfirmCancellation(c.Context(), c.Params("id"), req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func appointmentResponse(appt *domain.Appointment) dto.AppointmentResponse {
	return dto.AppointmentResponse{
		ID:                appt.ID,
		PostID:            appt.PostID,
		BuyerID:           appt.BuyerID,
		SellerID:          appt.SellerID,
		Datetime:          appt.Datetime,
		Place:             appt.Place,
		CancelRequestedBy: appt.CancelRequestedBy,
		CreatedAt:         appt.CreatedAt,
	}
}
