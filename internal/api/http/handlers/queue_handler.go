package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-service/internal/api/dto"
	"github.com/spec-kit/civic-service/internal/service"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// QueueHandler serves the office queue endpoints.
type QueueHandler struct {
	service *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{service: queueService}
}

// CreateTicket POST /queue/tickets.
func (h *QueueHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), req.ServiceID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		ID:       ticket.ID,
		ListCode: ticket.TicketCode,
	}})
}

// NextCustomer POST /queue/next. Answers 204 when there is nobody to serve,
// including when service_ids is missing or not a list.
func (h *QueueHandler) NextCustomer(c *fiber.Ctx) error {
	var req dto.NextCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ids, ok := req.IDs()
	if !ok {
		return c.SendStatus(http.StatusNoContent)
	}
	ticket, err := h.service.NextCustomerByServiceIDs(c.UserContext(), ids)
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Status GET /queue/status?service_ids=1,2,3.
func (h *QueueHandler) Status(c *fiber.Ctx) error {
	ids := parseIDList(c.Query("service_ids"))
	if len(ids) == 0 {
		return apperrors.NewValidationError("service_ids required", nil)
	}
	lengths, err := h.service.QueueLengths(c.UserContext(), ids)
	if err != nil {
		return err
	}
	items := make([]dto.QueueLengthResponse, 0, len(ids))
	for _, id := range ids {
		items = append(items, dto.QueueLengthResponse{ServiceID: id, Pending: lengths[id]})
	}
	return c.JSON(fiber.Map{"data": items})
}
