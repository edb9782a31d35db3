package dto

import (
	"time"

	"github.com/spec-kit/civic-service/internal/domain"
)

// SubmitReportRequest payload.
type SubmitReportRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=4000"`
	Latitude    float64  `json:"latitude" validate:"latitude"`
	Longitude   float64  `json:"longitude" validate:"longitude"`
	CategoryID  int64    `json:"category_id" validate:"required,gt=0"`
	IsAnonymous bool     `json:"is_anonymous"`
	Photos      []string `json:"photos" validate:"max=3,dive,required"`
}

// ReviewReportRequest payload.
type ReviewReportRequest struct {
	Action      string  `json:"action" validate:"required,oneof=accept reject"`
	Explanation *string `json:"explanation"`
}

// AssignExternalRequest payload.
type AssignExternalRequest struct {
	MaintainerID int64 `json:"maintainer_id" validate:"required,gt=0"`
}

// ExternalStatusRequest payload.
type ExternalStatusRequest struct {
	Status domain.ReportStatus `json:"status" validate:"required"`
}

// ReportResponse describes a report.
type ReportResponse struct {
	ID                   int64               `json:"id"`
	Title                string              `json:"title"`
	Description          string              `json:"description"`
	Latitude             float64             `json:"latitude"`
	Longitude            float64             `json:"longitude"`
	CategoryID           int64               `json:"category_id"`
	UserID               *int64              `json:"user_id"`
	IsAnonymous          bool                `json:"is_anonymous"`
	Photos               []string            `json:"photos"`
	Status               domain.ReportStatus `json:"status"`
	RejectExplanation    *string             `json:"reject_explanation"`
	AssignedOfficeID     *int64              `json:"assigned_office_id"`
	AssignedExternal     bool                `json:"assigned_external"`
	ExternalMaintainerID *int64              `json:"external_maintainer_id"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ReportHistoryResponse is one audit entry.
type ReportHistoryResponse struct {
	ID        int64               `json:"id"`
	ActorID   *int64              `json:"actor_id"`
	Action    domain.ReportAction `json:"action"`
	OldStatus domain.ReportStatus `json:"old_status,omitempty"`
	NewStatus domain.ReportStatus `json:"new_status"`
	Details   map[string]any      `json:"details,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewReportResponse maps a report. The submitter is hidden on anonymous reports.
func NewReportResponse(report *domain.Report) ReportResponse {
	resp := ReportResponse{
		ID:                   report.ID,
		Title:                report.Title,
		Description:          report.Description,
		Latitude:             report.Latitude,
		Longitude:            report.Longitude,
		CategoryID:           report.CategoryID,
		UserID:               report.UserID,
		IsAnonymous:          report.IsAnonymous,
		Photos:               report.Photos,
		Status:               report.Status,
		RejectExplanation:    report.RejectExplanation,
		AssignedOfficeID:     report.AssignedOfficeID,
		AssignedExternal:     report.AssignedExternal,
		ExternalMaintainerID: report.ExternalMaintainerID,
		CreatedAt:            report.CreatedAt,
		UpdatedAt:            report.UpdatedAt,
	}
	if resp.Photos == nil {
		resp.Photos = []string{}
	}
	if report.IsAnonymous {
		resp.UserID = nil
	}
	return resp
}

// NewReportHistoryResponse maps a history entry.
func NewReportHistoryResponse(h *domain.ReportHistory) ReportHistoryResponse {
	return ReportHistoryResponse{
		ID:        h.ID,
		ActorID:   h.ActorID,
		Action:    h.Action,
		OldStatus: h.OldStatus,
		NewStatus: h.NewStatus,
		Details:   h.Details,
		CreatedAt: h.CreatedAt,
	}
}
