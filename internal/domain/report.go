package domain

import "time"

// ReportStatus enumerates lifecycle states for citizen reports.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusAssigned   ReportStatus = "assigned"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusSuspended  ReportStatus = "suspended"
	ReportStatusRejected   ReportStatus = "rejected"
	ReportStatusResolved   ReportStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusAssigned, ReportStatusInProgress,
		ReportStatusSuspended, ReportStatusRejected, ReportStatusResolved:
		return true
	}
	return false
}

// Report is the aggregate for a citizen-submitted municipal issue.
//
// Status and the external escalation pair (AssignedExternal, ExternalMaintainerID)
// are independent fields. RejectExplanation is set iff Status is rejected and
// ExternalMaintainerID is only set while AssignedExternal is true.
type Report struct {
	ID                   int64
	Title                string
	Description          string
	Latitude             float64
	Longitude            float64
	CategoryID           int64
	UserID               *int64
	IsAnonymous          bool
	Photos               []string
	Status               ReportStatus
	RejectExplanation    *string
	AssignedOfficeID     *int64
	AssignedExternal     bool
	ExternalMaintainerID *int64
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Clone returns a deep copy so callers can mutate a candidate state safely.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Photos = append([]string(nil), r.Photos...)
	cp.UserID = cloneInt64(r.UserID)
	cp.AssignedOfficeID = cloneInt64(r.AssignedOfficeID)
	cp.ExternalMaintainerID = cloneInt64(r.ExternalMaintainerID)
	if r.RejectExplanation != nil {
		v := *r.RejectExplanation
		cp.RejectExplanation = &v
	}
	return &cp
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
