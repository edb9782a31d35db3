package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/events"
	"github.com/spec-kit/civic-service/internal/repository"
)

// Publisher pushes a JSON document onto a broadcast channel.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, payload any) error
}

// NotificationService resolves conversation participants for a notification
// and fans it out through the event dispatcher.
type NotificationService struct {
	dispatcher    events.Dispatcher
	conversations repository.ConversationRepository
	publisher     Publisher
	channel       string
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher    events.Dispatcher
	Conversations repository.ConversationRepository
	Publisher     Publisher
	Channel       string
	Logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		conversations: deps.Conversations,
		publisher:     deps.Publisher,
		channel:       deps.Channel,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventConversationNotified, n.handleConversationNotified)
	n.dispatcher.Subscribe(events.EventReportSubmitted, n.logEvent)
	n.dispatcher.Subscribe(events.EventReportStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventReportAssignedExternal, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketIssued, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketServed, n.logEvent)
}

// Deliver resolves the recipients of a notification and publishes it.
func (n *NotificationService) Deliver(ctx context.Context, note Notification) error {
	recipients, err := n.conversations.ListParticipants(ctx, note.ConversationID)
	if err != nil {
		return storeError(err, "conversation", map[string]any{"conversation_id": note.ConversationID})
	}
	if len(recipients) == 0 {
		n.logger.Debug("notification has no recipients", zap.Int64("conversation_id", note.ConversationID))
		return nil
	}
	if n.dispatcher == nil {
		return nil
	}
	return n.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventConversationNotified,
		ReportID:  note.ReportID,
		Timestamp: time.Now(),
		Payload: events.ConversationNotifiedPayload{
			ConversationID: note.ConversationID,
			Kind:           string(note.Kind),
			Recipients:     recipients,
		},
	})
}

func (n *NotificationService) handleConversationNotified(ctx context.Context, event events.Event) error {
	n.logger.Info("ConversationNotified", zap.Int64("report_id", event.ReportID), zap.Any("payload", event.Payload))
	if n.publisher == nil || n.channel == "" {
		return nil
	}
	return n.publisher.PublishJSON(ctx, n.channel, event)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("report_id", event.ReportID),
		zap.Any("payload", event.Payload))
	return nil
}
