package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/civic-issue-service/internal/api/dto"
	"github.com/civic-kit/civic-issue-service/internal/auth"
	"github.com/civic-kit/civic-issue-service/internal/domain"
	"github.com/civic-kit/civic-issue-service/internal/service"
	apperrors "github.com/civic-kit/civic-issue-service/pkg/util"
)

// WorkOrdersHandler manages field work-order endpoints.
type WorkOrdersHandler struct {
	service *service.WorkOrderService
}

// NewWorkOrdersHandler constructs handler.
func NewWorkOrdersHandler(workOrderService *service.WorkOrderService) *WorkOrdersHandler {
	return &WorkOrdersHandler{service: workOrderService}
}

// Create POST /work-orders.
func (h *WorkOrdersHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	order, err := h.service.Create(c.Context(), actor, service.WorkOrderCreateInput{
		TicketID:    req.TicketID,
		Category:    req.Category,
		Description: req.Description,
		Department:  req.Department,
		WardID:      req.WardID,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workOrderDetail(order)})
}

// List GET /work-orders.
func (h *WorkOrdersHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := service.WorkOrderListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.WorkOrderStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	orders, err := h.service.List(c.Context(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.WorkOrderSummary, 0, len(orders))
	for i := range orders {
		items = append(items, workOrderSummary(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /work-orders/:id.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Assign PATCH /work-orders/:id/assign.
func (h *WorkOrdersHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ContractorID) == "" {
		return apperrors.NewValidationError("contractor_id required", nil)
	}
	order, err := h.service.Assign(c.Context(), actor, c.Params("id"), req.ContractorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Accept PATCH /work-orders/:id/accept.
func (h *WorkOrdersHandler) Accept(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AcceptWorkOrderRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.Accept(c.Context(), actor, c.Params("id"), req.ETA)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Reject PATCH /work-orders/:id/reject.
func (h *WorkOrdersHandler) Reject(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.Reject(c.Context(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// MarkEnRoute PATCH /work-orders/:id/en-route.
func (h *WorkOrdersHandler) MarkEnRoute(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.MarkEnRoute(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// MarkOnSite PATCH /work-orders/:id/on-site.
func (h *WorkOrdersHandler) MarkOnSite(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.MarkOnSite(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Start PATCH /work-orders/:id/start.
func (h *WorkOrdersHandler) Start(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.Start(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Complete PATCH /work-orders/:id/complete.
func (h *WorkOrdersHandler) Complete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CompleteWorkOrderRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.Complete(c.Context(), actor, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Verify PATCH /work-orders/:id/verify.
func (h *WorkOrdersHandler) Verify(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.VerifyWorkOrderRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.Verify(c.Context(), actor, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// Close PATCH /work-orders/:id/close.
func (h *WorkOrdersHandler) Close(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.Close(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

// MarkDelayed PATCH /work-orders/:id/delay.
func (h *WorkOrdersHandler) MarkDelayed(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DelayWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.MarkDelayed(c.Context(), actor, c.Params("id"), req.Reason, req.NewETA)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(order)})
}

func workOrderSummary(order *domain.WorkOrder) dto.WorkOrderSummary {
	return dto.WorkOrderSummary{
		ID:           order.ID,
		WorkOrderID:  order.WorkOrderID,
		TicketID:     order.TicketID,
		Category:     order.Category,
		Status:       order.Status,
		Priority:     order.Priority,
		ContractorID: order.ContractorID,
		Delayed:      order.Delayed,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

func workOrderDetail(order *domain.WorkOrder) dto.WorkOrderDetailResponse {
	timeline := make([]dto.TimelineEntryResponse, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timeline = append(timeline, dto.TimelineEntryResponse{
			Status:    entry.Status,
			ActorID:   entry.ActorID,
			Note:      entry.Note,
			Timestamp: entry.Timestamp,
		})
	}
	return dto.WorkOrderDetailResponse{
		ID:                order.ID,
		WorkOrderID:       order.WorkOrderID,
		TicketID:          order.TicketID,
		Category:          order.Category,
		Description:       order.Description,
		Department:        order.Department,
		WardID:            order.WardID,
		Priority:          order.Priority,
		Status:            order.Status,
		ContractorID:      order.ContractorID,
		AssignedBy:        order.AssignedBy,
		CreatedBy:         order.CreatedBy,
		VerifiedBy:        order.VerifiedBy,
		RejectionReason:   order.RejectionReason,
		VerificationNotes: order.VerificationNotes,
		CompletionNotes:   order.CompletionNotes,
		Delayed:           order.Delayed,
		DelayReason:       order.DelayReason,
		ETA:               order.ETA,
		ActualArrival:     order.ActualArrival,
		Timeline:          timeline,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		AssignedAt:        order.AssignedAt,
		CompletedAt:       order.CompletedAt,
		VerifiedAt:        order.VerifiedAt,
		ClosedAt:          order.ClosedAt,
	}
}
