package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/events"
	"github.com/spec-kit/civic-service/internal/observability"
	"github.com/spec-kit/civic-service/internal/repository"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// ReportService drives the report lifecycle. Every transition is committed
// before conversation and notification side effects run; those never fail the
// caller.
type ReportService struct {
	reports       repository.ReportRepository
	history       repository.ReportHistoryRepository
	offices       repository.OfficeRepository
	conversations ConversationGateway
	notifier      Notifier
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo    repository.ReportRepository
	HistoryRepo   repository.ReportHistoryRepository
	OfficeRepo    repository.OfficeRepository
	Conversations ConversationGateway
	Notifier      Notifier
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:       deps.ReportRepo,
		history:       deps.HistoryRepo,
		offices:       deps.OfficeRepo,
		conversations: deps.Conversations,
		notifier:      deps.Notifier,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// SubmitReportInput carries the citizen-provided fields of a new report.
type SubmitReportInput struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	CategoryID  int64
	IsAnonymous bool
	Photos      []string
}

// ExternalStatusChange is a status change requested by an external maintainer.
type ExternalStatusChange struct {
	ReportID             int64
	Status               domain.ReportStatus
	ExternalMaintainerID int64
}

// SubmitReport records a new pending report. Anonymous reports are stored
// without the submitting user.
func (s *ReportService) SubmitReport(ctx context.Context, actor *domain.User, input SubmitReportInput) (*domain.Report, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if _, err := s.offices.FindCategoryWithOffice(ctx, input.CategoryID); err != nil {
		return nil, storeError(err, "category", map[string]any{"category_id": input.CategoryID})
	}

	report := &domain.Report{
		Title:       input.Title,
		Description: input.Description,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		CategoryID:  input.CategoryID,
		IsAnonymous: input.IsAnonymous,
		Photos:      append([]string(nil), input.Photos...),
		Status:      domain.ReportStatusPending,
	}
	if actor != nil && !input.IsAnonymous {
		id := actor.ID
		report.UserID = &id
	}

	entry := &domain.ReportHistory{
		ActorID:   actorID(actor),
		Action:    domain.ReportActionSubmitted,
		NewStatus: domain.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report, entry); err != nil {
		return nil, storeError(err, "report", nil)
	}

	s.publish(ctx, events.EventReportSubmitted, report.ID, actor, events.ReportStatusChangedPayload{
		Action:    domain.ReportActionSubmitted,
		NewStatus: report.Status,
	})
	return report, nil
}

// GetReport loads a report by id.
func (s *ReportService) GetReport(ctx context.Context, reportID int64) (*domain.Report, error) {
	return s.loadReport(ctx, reportID)
}

// ListReports returns reports matching filter, most recently updated first.
func (s *ReportService) ListReports(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "report", nil)
	}
	return reports, nil
}

// ReportHistory returns the audit trail of a report, oldest first.
func (s *ReportService) ReportHistory(ctx context.Context, reportID int64) ([]domain.ReportHistory, error) {
	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByReport(ctx, reportID)
	if err != nil {
		return nil, storeError(err, "report history", map[string]any{"report_id": reportID})
	}
	return entries, nil
}

// ReviewReport accepts or rejects a pending report. Accepting routes it to the
// internal office of its category; rejecting requires an explanation.
func (s *ReportService) ReviewReport(ctx context.Context, actor *domain.User, reportID int64, action ReviewAction, explanation *string) (*domain.Report, error) {
	var tr transition
	switch action {
	case ReviewAccept:
		tr = acceptTransition
	case ReviewReject:
		tr = rejectTransition
		if explanation == nil {
			return nil, apperrors.NewValidationError("explanation is required to reject a report", map[string]any{
				"report_id": reportID,
			})
		}
	default:
		return nil, apperrors.NewValidationError("unknown review action", map[string]any{"action": action})
	}

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := tr.check(report); err != nil {
		return nil, err
	}

	next := report.Clone()
	next.Status = tr.to
	details := map[string]any{}
	if action == ReviewAccept {
		cat, err := s.offices.FindCategoryWithOffice(ctx, report.CategoryID)
		if err != nil {
			return nil, storeError(err, "category", map[string]any{"category_id": report.CategoryID})
		}
		officeID := cat.Category.OfficeID
		next.AssignedOfficeID = &officeID
		next.RejectExplanation = nil
		details["assigned_office_id"] = officeID
	} else {
		text := *explanation
		next.RejectExplanation = &text
		details["explanation"] = text
	}

	if err := s.commit(ctx, actor, report, next, tr.action, details); err != nil {
		return nil, err
	}
	return next, nil
}

// AssignReportToExternalMaintainer delegates an assigned report to an external
// maintainer and makes sure the maintainer is part of the report conversation.
func (s *ReportService) AssignReportToExternalMaintainer(ctx context.Context, actor *domain.User, reportID, maintainerID int64) (*domain.Report, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := assignExternalTransition.check(report); err != nil {
		return nil, err
	}

	next := report.Clone()
	next.AssignedExternal = true
	next.ExternalMaintainerID = &maintainerID

	if err := s.commit(ctx, actor, report, next, assignExternalTransition.action, map[string]any{
		"maintainer_id": maintainerID,
	}); err != nil {
		return nil, err
	}

	conv := s.ensureConversation(ctx, next, maintainerID)
	var convID int64
	if conv != nil {
		convID = conv.ID
		s.notify(ctx, conv.ID, next.ID, NotificationAssignedExternal)
	}
	s.publish(ctx, events.EventReportAssignedExternal, next.ID, actor, events.ReportAssignedExternalPayload{
		MaintainerID:   maintainerID,
		ConversationID: convID,
	})
	return next, nil
}

// StartReport moves an assigned report into progress.
func (s *ReportService) StartReport(ctx context.Context, actor *domain.User, reportID int64) (*domain.Report, error) {
	return s.applyInternal(ctx, actor, reportID, startTransition)
}

// SuspendReport pauses work on a report in progress.
func (s *ReportService) SuspendReport(ctx context.Context, actor *domain.User, reportID int64) (*domain.Report, error) {
	return s.applyInternal(ctx, actor, reportID, suspendTransition)
}

// ResumeReport restarts work on a suspended report.
func (s *ReportService) ResumeReport(ctx context.Context, actor *domain.User, reportID int64) (*domain.Report, error) {
	return s.applyInternal(ctx, actor, reportID, resumeTransition)
}

// FinishReport resolves a report and notifies its conversation, if any.
func (s *ReportService) FinishReport(ctx context.Context, actor *domain.User, reportID int64) (*domain.Report, error) {
	return s.applyInternal(ctx, actor, reportID, finishTransition)
}

// ExternalStart is StartReport on behalf of the attributed external maintainer.
func (s *ReportService) ExternalStart(ctx context.Context, reportID, maintainerID int64) (*domain.Report, error) {
	return s.applyExternal(ctx, reportID, maintainerID, startTransition, true)
}

// ExternalSuspend is SuspendReport on behalf of the attributed external maintainer.
func (s *ReportService) ExternalSuspend(ctx context.Context, reportID, maintainerID int64) (*domain.Report, error) {
	return s.applyExternal(ctx, reportID, maintainerID, suspendTransition, true)
}

// ExternalResume is ResumeReport on behalf of the attributed external maintainer.
func (s *ReportService) ExternalResume(ctx context.Context, reportID, maintainerID int64) (*domain.Report, error) {
	return s.applyExternal(ctx, reportID, maintainerID, resumeTransition, true)
}

// ExternalFinish is FinishReport on behalf of the attributed external maintainer.
func (s *ReportService) ExternalFinish(ctx context.Context, reportID, maintainerID int64) (*domain.Report, error) {
	return s.applyExternal(ctx, reportID, maintainerID, finishTransition, true)
}

// ExternalChangeStatus applies a status requested by a member of the external
// office responsible for the report's category.
func (s *ReportService) ExternalChangeStatus(ctx context.Context, change ExternalStatusChange) (*domain.Report, error) {
	tr, ok := externalTargets[change.Status]
	if !ok {
		return nil, apperrors.NewIllegalTransition("status cannot be set by an external maintainer", map[string]any{
			"report_id": change.ReportID,
			"target":    change.Status,
		})
	}
	return s.applyExternal(ctx, change.ReportID, change.ExternalMaintainerID, tr, false)
}

func (s *ReportService) applyInternal(ctx context.Context, actor *domain.User, reportID int64, tr transition) (*domain.Report, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := tr.check(report); err != nil {
		return nil, err
	}

	next := report.Clone()
	next.Status = tr.to
	if err := s.commit(ctx, actor, report, next, tr.action, nil); err != nil {
		return nil, err
	}

	if next.Status == domain.ReportStatusResolved {
		s.notifyResolved(ctx, next)
	}
	return next, nil
}

// applyExternal re-derives the maintainer's authority on every call: report,
// category, responsible office, office kind, then membership.
func (s *ReportService) applyExternal(ctx context.Context, reportID, maintainerID int64, tr transition, attributed bool) (*domain.Report, error) {
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if attributed && !isAttributedTo(report, maintainerID) {
		return nil, apperrors.NewDomainError(apperrors.CodeForbidden, "report is not assigned to this maintainer", http.StatusForbidden, map[string]any{
			"report_id":     reportID,
			"maintainer_id": maintainerID,
		})
	}

	cat, err := s.offices.FindCategoryWithOffice(ctx, report.CategoryID)
	if err != nil {
		return nil, storeError(err, "category", map[string]any{"category_id": report.CategoryID})
	}
	office := cat.ResponsibleOffice()
	if !office.IsExternal {
		return nil, apperrors.NewDomainError(apperrors.CodeForbidden, "office is not external", http.StatusForbidden, map[string]any{
			"report_id": reportID,
			"office_id": office.ID,
		})
	}
	if _, err := s.offices.FindMembership(ctx, maintainerID, office.ID); err != nil {
		return nil, storeError(err, "office membership", map[string]any{
			"office_id":     office.ID,
			"maintainer_id": maintainerID,
		})
	}
	if err := tr.check(report); err != nil {
		return nil, err
	}

	next := report.Clone()
	next.Status = tr.to
	actor := &domain.User{ID: maintainerID, Role: domain.RoleExternalMaintainer}
	if err := s.commit(ctx, actor, report, next, tr.action, map[string]any{
		"external":      true,
		"maintainer_id": maintainerID,
		"office_id":     office.ID,
	}); err != nil {
		return nil, err
	}

	conv := s.ensureConversation(ctx, next, maintainerID)
	if conv != nil && next.Status == domain.ReportStatusResolved {
		s.notify(ctx, conv.ID, next.ID, NotificationResolved)
	}
	return next, nil
}

func isAttributedTo(report *domain.Report, maintainerID int64) bool {
	return report.AssignedExternal &&
		report.ExternalMaintainerID != nil &&
		*report.ExternalMaintainerID == maintainerID
}

func (s *ReportService) loadReport(ctx context.Context, reportID int64) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, storeError(err, "report", map[string]any{"report_id": reportID})
	}
	return report, nil
}

// commit writes next over current with its history entry. next carries the
// version read with current, so a concurrent writer makes this fail.
func (s *ReportService) commit(ctx context.Context, actor *domain.User, current, next *domain.Report, action domain.ReportAction, details map[string]any) error {
	entry := &domain.ReportHistory{
		ActorID:   actorID(actor),
		Action:    action,
		OldStatus: current.Status,
		NewStatus: next.Status,
		Details:   details,
	}
	if err := s.reports.UpdateState(ctx, next, entry); err != nil {
		return storeError(err, "report", map[string]any{
			"report_id": current.ID,
			"status":    current.Status,
			"action":    action,
		})
	}

	s.metrics.RecordTransition(string(current.Status), string(next.Status))
	s.logger.Info("report transition",
		zap.Int64("report_id", next.ID),
		zap.String("action", string(action)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)))

	external, _ := details["external"].(bool)
	s.publish(ctx, events.EventReportStatusChanged, next.ID, actor, events.ReportStatusChangedPayload{
		Action:    action,
		OldStatus: current.Status,
		NewStatus: next.Status,
		External:  external,
	})
	return nil
}

// ensureConversation finds or opens the report conversation and adds the
// maintainer. Failures are logged and yield nil.
func (s *ReportService) ensureConversation(ctx context.Context, report *domain.Report, maintainerID int64) *domain.Conversation {
	if s.conversations == nil {
		return nil
	}
	logger := s.logger.With(zap.Int64("report_id", report.ID), zap.Int64("maintainer_id", maintainerID))

	participants := make([]int64, 0, 8)
	if report.UserID != nil {
		participants = append(participants, *report.UserID)
	}
	participants = append(participants, s.internalStaff(ctx, report)...)
	participants = append(participants, maintainerID)

	conv, err := s.conversations.FindOrCreateConversation(ctx, report.ID, participants, false)
	if err != nil {
		logger.Warn("ensure conversation failed", zap.Error(err))
		return nil
	}
	if !conv.HasParticipant(maintainerID) {
		if err := s.conversations.AddParticipantIfAbsent(ctx, conv.ID, maintainerID); err != nil {
			logger.Warn("add maintainer to conversation failed", zap.Int64("conversation_id", conv.ID), zap.Error(err))
			return conv
		}
		conv.Participants = append(conv.Participants, maintainerID)
	}
	return conv
}

func (s *ReportService) internalStaff(ctx context.Context, report *domain.Report) []int64 {
	officeID := int64(0)
	if report.AssignedOfficeID != nil {
		officeID = *report.AssignedOfficeID
	} else {
		cat, err := s.offices.FindCategoryWithOffice(ctx, report.CategoryID)
		if err != nil {
			s.logger.Warn("resolve internal office failed", zap.Int64("report_id", report.ID), zap.Error(err))
			return nil
		}
		officeID = cat.Category.OfficeID
	}
	staff, err := s.offices.ListStaff(ctx, officeID)
	if err != nil {
		s.logger.Warn("list office staff failed", zap.Int64("office_id", officeID), zap.Error(err))
		return nil
	}
	return staff
}

func (s *ReportService) notifyResolved(ctx context.Context, report *domain.Report) {
	if s.conversations == nil {
		return
	}
	conv, err := s.conversations.FindConversationByReport(ctx, report.ID)
	if err != nil {
		s.logger.Warn("lookup conversation failed", zap.Int64("report_id", report.ID), zap.Error(err))
		return
	}
	if conv == nil {
		return
	}
	s.notify(ctx, conv.ID, report.ID, NotificationResolved)
}

func (s *ReportService) notify(ctx context.Context, conversationID, reportID int64, kind NotificationKind) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, Notification{
		ConversationID: conversationID,
		ReportID:       reportID,
		Kind:           kind,
	})
	if err != nil {
		s.logger.Warn("notification not accepted",
			zap.Int64("report_id", reportID),
			zap.Int64("conversation_id", conversationID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (s *ReportService) publish(ctx context.Context, eventType events.EventType, reportID int64, actor *domain.User, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ReportID:  reportID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{UserID: actorID(actor), Role: actor.Role}
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish report event failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("report_id", reportID),
			zap.Error(err))
	}
}

func actorID(actor *domain.User) *int64 {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
