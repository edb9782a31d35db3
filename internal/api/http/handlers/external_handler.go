package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-service/internal/api/dto"
	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/service"
)

// ExternalHandler serves endpoints used by external maintainers. The acting
// maintainer is always the authenticated principal.
type ExternalHandler struct {
	service *service.ReportService
}

// NewExternalHandler constructs handler.
func NewExternalHandler(reportService *service.ReportService) *ExternalHandler {
	return &ExternalHandler{service: reportService}
}

// ListAssigned GET /external/reports.
func (h *ExternalHandler) ListAssigned(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter := parseReportQuery(c)
	filter.MaintainerID = &user.ID
	reports, err := h.service.ListReports(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, dto.NewReportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Start POST /external/reports/:id/start.
func (h *ExternalHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, h.service.ExternalStart)
}

// Suspend POST /external/reports/:id/suspend.
func (h *ExternalHandler) Suspend(c *fiber.Ctx) error {
	return h.transition(c, h.service.ExternalSuspend)
}

// Resume POST /external/reports/:id/resume.
func (h *ExternalHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.service.ExternalResume)
}

// Finish POST /external/reports/:id/finish.
func (h *ExternalHandler) Finish(c *fiber.Ctx) error {
	return h.transition(c, h.service.ExternalFinish)
}

// ChangeStatus PATCH /external/reports/:id/status.
func (h *ExternalHandler) ChangeStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.ExternalStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	report, err := h.service.ExternalChangeStatus(c.UserContext(), service.ExternalStatusChange{
		ReportID:             id,
		Status:               req.Status,
		ExternalMaintainerID: user.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

type externalTransition func(ctx context.Context, reportID, maintainerID int64) (*domain.Report, error)

func (h *ExternalHandler) transition(c *fiber.Ctx, apply externalTransition) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	report, err := apply(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}
