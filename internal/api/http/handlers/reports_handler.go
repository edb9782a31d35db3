package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-service/internal/api/dto"
	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/repository"
	"github.com/spec-kit/civic-service/internal/service"
)

// ReportsHandler serves citizen and municipal staff report endpoints.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Submit POST /reports.
func (h *ReportsHandler) Submit(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SubmitReportRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	report, err := h.service.SubmitReport(c.UserContext(), user, service.SubmitReportInput{
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		CategoryID:  req.CategoryID,
		IsAnonymous: req.IsAnonymous,
		Photos:      req.Photos,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// Get GET /reports/:id.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	report, err := h.service.GetReport(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// List GET /reports. Citizens only see their own reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter := parseReportQuery(c)
	if user.Role == domain.RoleCitizen {
		filter.UserID = &user.ID
	}
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

// History GET /reports/:id/history.
func (h *ReportsHandler) History(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.service.ReportHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.ReportHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewReportHistoryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Review POST /reports/:id/review.
func (h *ReportsHandler) Review(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReviewReportRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	report, err := h.service.ReviewReport(c.UserContext(), user, id, service.ReviewAction(req.Action), req.Explanation)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// AssignExternal POST /reports/:id/external-assignment.
func (h *ReportsHandler) AssignExternal(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignExternalRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	report, err := h.service.AssignReportToExternalMaintainer(c.UserContext(), user, id, req.MaintainerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// Start POST /reports/:id/start.
func (h *ReportsHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, h.service.StartReport)
}

// Suspend POST /reports/:id/suspend.
func (h *ReportsHandler) Suspend(c *fiber.Ctx) error {
	return h.transition(c, h.service.SuspendReport)
}

// Resume POST /reports/:id/resume.
func (h *ReportsHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.service.ResumeReport)
}

// Finish POST /reports/:id/finish.
func (h *ReportsHandler) Finish(c *fiber.Ctx) error {
	return h.transition(c, h.service.FinishReport)
}

type internalTransition func(ctx context.Context, actor *domain.User, reportID int64) (*domain.Report, error)

func (h *ReportsHandler) transition(c *fiber.Ctx, apply internalTransition) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	report, err := apply(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

func parseReportQuery(c *fiber.Ctx) repository.ReportFilter {
	filter := repository.ReportFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.ReportStatus(strings.TrimSpace(part))
			if status.Valid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	filter.CategoryID = optionalID(c.Query("category_id"))
	filter.AssignedOfficeID = optionalID(c.Query("office_id"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
