package domain

import "time"

// ReportAction names the lifecycle operation recorded in history.
type ReportAction string

const (
	ReportActionSubmitted        ReportAction = "SUBMITTED"
	ReportActionAccepted         ReportAction = "ACCEPTED"
	ReportActionRejected         ReportAction = "REJECTED"
	ReportActionAssignedExternal ReportAction = "ASSIGNED_EXTERNAL"
	ReportActionStarted          ReportAction = "STARTED"
	ReportActionSuspended        ReportAction = "SUSPENDED"
	ReportActionResumed          ReportAction = "RESUMED"
	ReportActionFinished         ReportAction = "FINISHED"
	ReportActionExternalStatus   ReportAction = "EXTERNAL_STATUS_CHANGE"
)

// ReportHistory is an immutable audit trail entry for a report.
type ReportHistory struct {
	ID        int64
	ReportID  int64
	ActorID   *int64
	Action    ReportAction
	OldStatus ReportStatus
	NewStatus ReportStatus
	Details   map[string]any
	CreatedAt time.Time
}
