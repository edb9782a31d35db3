package service

import (
	"github.com/spec-kit/civic-service/internal/domain"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// ReviewAction is the decision taken on a pending report.
type ReviewAction string

const (
	ReviewAccept ReviewAction = "accept"
	ReviewReject ReviewAction = "reject"
)

// transition describes one lifecycle move: the statuses it may start from and
// the status it lands on.
type transition struct {
	action domain.ReportAction
	from   []domain.ReportStatus
	to     domain.ReportStatus
}

var (
	acceptTransition = transition{
		action: domain.ReportActionAccepted,
		from:   []domain.ReportStatus{domain.ReportStatusPending},
		to:     domain.ReportStatusAssigned,
	}
	rejectTransition = transition{
		action: domain.ReportActionRejected,
		from:   []domain.ReportStatus{domain.ReportStatusPending},
		to:     domain.ReportStatusRejected,
	}
	assignExternalTransition = transition{
		action: domain.ReportActionAssignedExternal,
		from:   []domain.ReportStatus{domain.ReportStatusAssigned},
		to:     domain.ReportStatusAssigned,
	}
	startTransition = transition{
		action: domain.ReportActionStarted,
		from:   []domain.ReportStatus{domain.ReportStatusAssigned},
		to:     domain.ReportStatusInProgress,
	}
	suspendTransition = transition{
		action: domain.ReportActionSuspended,
		from:   []domain.ReportStatus{domain.ReportStatusInProgress},
		to:     domain.ReportStatusSuspended,
	}
	resumeTransition = transition{
		action: domain.ReportActionResumed,
		from:   []domain.ReportStatus{domain.ReportStatusSuspended},
		to:     domain.ReportStatusInProgress,
	}
	finishTransition = transition{
		action: domain.ReportActionFinished,
		from:   []domain.ReportStatus{domain.ReportStatusInProgress, domain.ReportStatusSuspended},
		to:     domain.ReportStatusResolved,
	}
)

// externalTargets lists the statuses an external maintainer may request directly.
var externalTargets = map[domain.ReportStatus]transition{
	domain.ReportStatusInProgress: {
		action: domain.ReportActionExternalStatus,
		from:   []domain.ReportStatus{domain.ReportStatusAssigned, domain.ReportStatusSuspended},
		to:     domain.ReportStatusInProgress,
	},
	domain.ReportStatusSuspended: {
		action: domain.ReportActionExternalStatus,
		from:   []domain.ReportStatus{domain.ReportStatusInProgress},
		to:     domain.ReportStatusSuspended,
	},
	domain.ReportStatusResolved: {
		action: domain.ReportActionExternalStatus,
		from:   []domain.ReportStatus{domain.ReportStatusAssigned, domain.ReportStatusInProgress, domain.ReportStatusSuspended},
		to:     domain.ReportStatusResolved,
	},
}

func (t transition) allows(status domain.ReportStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

func (t transition) check(report *domain.Report) error {
	if t.allows(report.Status) {
		return nil
	}
	return apperrors.NewIllegalTransition("report cannot move from "+string(report.Status)+" to "+string(t.to), map[string]any{
		"report_id": report.ID,
		"status":    report.Status,
		"target":    t.to,
		"action":    t.action,
	})
}
